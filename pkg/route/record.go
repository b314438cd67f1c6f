package route

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

var (
	// ErrTruncated is returned when a buffer ends before the encoded value does
	ErrTruncated = errors.New("route: buffer truncated")
	// ErrUnknownKind is returned when a record names a kind that is not declared
	ErrUnknownKind = errors.New("route: unknown kind")
	// ErrNameTooLong is returned when a source or target exceeds 255 bytes
	ErrNameTooLong = errors.New("route: endpoint name too long")
	// ErrTrailingBytes is returned when a buffer holds more than one record
	ErrTrailingBytes = errors.New("route: trailing bytes after record")
)

const (
	// MaxNameLength is the longest source or target name a record can carry
	MaxNameLength = math.MaxUint8

	kindSize      = 1
	nameSizeSize  = 1
	refSize       = 8
	authSize      = 8
	extensionSize = 4

	// MinRecordSize is the encoded size of a record with empty names and no extension.
	MinRecordSize = kindSize + 2*(nameSizeSize+refSize) + authSize + extensionSize
)

// Record is the decoded form of a route.
type Record struct {
	Kind          Kind
	Source        string
	SourceRef     int64
	Target        string
	TargetRef     int64
	Authorization uint64
	Extension     []byte
}

// Size returns the number of bytes Encode produces for r.
func (r Record) Size() int {
	return MinRecordSize + len(r.Source) + len(r.Target) + len(r.Extension)
}

// Encode returns the binary form of r.
func (r Record) Encode() ([]byte, error) {
	return r.AppendTo(make([]byte, 0, r.Size()))
}

// AppendTo appends the binary form of r to dst.
func (r Record) AppendTo(dst []byte) ([]byte, error) {
	if !r.Kind.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownKind, uint8(r.Kind))
	}
	if len(r.Source) > MaxNameLength {
		return nil, fmt.Errorf("%w: source is %d bytes", ErrNameTooLong, len(r.Source))
	}
	if len(r.Target) > MaxNameLength {
		return nil, fmt.Errorf("%w: target is %d bytes", ErrNameTooLong, len(r.Target))
	}

	dst = append(dst, byte(r.Kind))
	dst = appendName(dst, r.Source)
	dst = binary.LittleEndian.AppendUint64(dst, uint64(r.SourceRef))
	dst = appendName(dst, r.Target)
	dst = binary.LittleEndian.AppendUint64(dst, uint64(r.TargetRef))
	dst = binary.LittleEndian.AppendUint64(dst, r.Authorization)
	dst = binary.LittleEndian.AppendUint32(dst, uint32(len(r.Extension)))
	dst = append(dst, r.Extension...)
	return dst, nil
}

// Decode decodes a record occupying the whole of buf.
// The returned record does not alias buf.
func Decode(buf []byte) (Record, error) {
	v, err := Wrap(buf)
	if err != nil {
		return Record{}, err
	}
	if v.Sizeof() != len(buf) {
		return Record{}, ErrTrailingBytes
	}
	return v.Record(), nil
}

// Clone returns a copy of r that shares no memory with it.
func (r Record) Clone() Record {
	c := r
	if r.Extension != nil {
		c.Extension = append([]byte(nil), r.Extension...)
	}
	return c
}

func (r Record) String() string {
	return fmt.Sprintf("%s %s#%d -> %s#%d auth=%#x", r.Kind, r.Source, r.SourceRef, r.Target, r.TargetRef, r.Authorization)
}

func appendName(dst []byte, name string) []byte {
	dst = append(dst, byte(len(name)))
	return append(dst, name...)
}
