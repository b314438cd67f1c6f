package route

import (
	"bytes"
	"encoding/binary"
)

// View reads record fields in place from an encoded buffer.
//
// A View never copies the buffer; it is meant for evaluating filters on the
// resolve path. Use Record to obtain a value that outlives the buffer.
type View struct {
	buf       []byte
	sourceEnd int
	targetEnd int
	size      int
}

// Wrap validates the record at the start of buf and returns a view over it.
func Wrap(buf []byte) (View, error) {
	if len(buf) < MinRecordSize {
		return View{}, ErrTruncated
	}
	if !Kind(buf[0]).Valid() {
		return View{}, ErrUnknownKind
	}

	sourceEnd := kindSize + nameSizeSize + int(buf[kindSize])
	targetLenAt := sourceEnd + refSize
	if len(buf) < targetLenAt+nameSizeSize {
		return View{}, ErrTruncated
	}
	targetEnd := targetLenAt + nameSizeSize + int(buf[targetLenAt])
	extLenAt := targetEnd + refSize + authSize
	if len(buf) < extLenAt+extensionSize {
		return View{}, ErrTruncated
	}
	extLen := binary.LittleEndian.Uint32(buf[extLenAt:])
	size := extLenAt + extensionSize + int(extLen)
	if uint64(len(buf)) < uint64(extLenAt+extensionSize)+uint64(extLen) {
		return View{}, ErrTruncated
	}

	return View{buf: buf, sourceEnd: sourceEnd, targetEnd: targetEnd, size: size}, nil
}

// Sizeof returns the encoded length of the viewed record.
func (v View) Sizeof() int {
	return v.size
}

// Bytes returns the encoded record without copying.
func (v View) Bytes() []byte {
	return v.buf[:v.size]
}

func (v View) Kind() Kind {
	return Kind(v.buf[0])
}

func (v View) Source() string {
	return string(v.sourceBytes())
}

// SourceEquals compares the source with name without allocating.
func (v View) SourceEquals(name string) bool {
	return string(v.sourceBytes()) == name
}

func (v View) SourceRef() int64 {
	return int64(binary.LittleEndian.Uint64(v.buf[v.sourceEnd:]))
}

func (v View) Target() string {
	return string(v.targetBytes())
}

// TargetEquals compares the target with name without allocating.
func (v View) TargetEquals(name string) bool {
	return string(v.targetBytes()) == name
}

func (v View) TargetRef() int64 {
	return int64(binary.LittleEndian.Uint64(v.buf[v.targetEnd:]))
}

func (v View) Authorization() uint64 {
	return binary.LittleEndian.Uint64(v.buf[v.targetEnd+refSize:])
}

// Extension returns the extension without copying.
func (v View) Extension() []byte {
	return v.buf[v.targetEnd+refSize+authSize+extensionSize : v.size]
}

// Equal reports whether v and other encode the same route.
func (v View) Equal(other View) bool {
	return bytes.Equal(v.Bytes(), other.Bytes())
}

// Record decodes the viewed record into a value that does not alias the buffer.
func (v View) Record() Record {
	r := Record{
		Kind:          v.Kind(),
		Source:        v.Source(),
		SourceRef:     v.SourceRef(),
		Target:        v.Target(),
		TargetRef:     v.TargetRef(),
		Authorization: v.Authorization(),
	}
	if ext := v.Extension(); len(ext) > 0 {
		r.Extension = append([]byte(nil), ext...)
	}
	return r
}

func (v View) sourceBytes() []byte {
	return v.buf[kindSize+nameSizeSize : v.sourceEnd]
}

func (v View) targetBytes() []byte {
	return v.buf[v.sourceEnd+refSize+nameSizeSize : v.targetEnd]
}
