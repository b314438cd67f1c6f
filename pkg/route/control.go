package route

import (
	"encoding/binary"
	"fmt"
)

// Control frame type ids. Commands flow towards the conductor, replies flow back.
const (
	RouteTypeID   int32 = 0x00000001
	UnrouteTypeID int32 = 0x00000002

	ErrorTypeID    int32 = 0x40000000
	RoutedTypeID   int32 = 0x40000001
	UnroutedTypeID int32 = 0x40000002
)

const correlationSize = 8

// TypeName returns a diagnostic name for a control frame type id.
func TypeName(typeID int32) string {
	switch typeID {
	case RouteTypeID:
		return "route"
	case UnrouteTypeID:
		return "unroute"
	case ErrorTypeID:
		return "error"
	case RoutedTypeID:
		return "routed"
	case UnroutedTypeID:
		return "unrouted"
	default:
		return fmt.Sprintf("type(%#x)", typeID)
	}
}

// EncodeCommand encodes a route or unroute command carrying rec.
func EncodeCommand(correlationID int64, rec Record) ([]byte, error) {
	dst := make([]byte, correlationSize, correlationSize+rec.Size())
	binary.LittleEndian.PutUint64(dst, uint64(correlationID))
	return rec.AppendTo(dst)
}

// DecodeCommand splits a command frame into its correlation id and the
// encoded record. The record slice aliases frame.
func DecodeCommand(frame []byte) (int64, []byte, error) {
	if len(frame) < correlationSize {
		return 0, nil, ErrTruncated
	}
	correlationID := int64(binary.LittleEndian.Uint64(frame))
	record := frame[correlationSize:]
	v, err := Wrap(record)
	if err != nil {
		return correlationID, nil, err
	}
	if v.Sizeof() != len(record) {
		return correlationID, nil, ErrTrailingBytes
	}
	return correlationID, record, nil
}

// Reply is the decoded form of a reply frame.
type Reply struct {
	TypeID        int32
	CorrelationID int64
	SourceRef     int64
}

// OK reports whether the reply acknowledges its command.
func (r Reply) OK() bool {
	return r.TypeID == RoutedTypeID || r.TypeID == UnroutedTypeID
}

// Encode returns the binary form of the reply.
func (r Reply) Encode() []byte {
	dst := binary.LittleEndian.AppendUint64(nil, uint64(r.CorrelationID))
	if r.TypeID == RoutedTypeID {
		dst = binary.LittleEndian.AppendUint64(dst, uint64(r.SourceRef))
	}
	return dst
}

// DecodeReply decodes a reply frame of the given type.
func DecodeReply(typeID int32, frame []byte) (Reply, error) {
	switch typeID {
	case RoutedTypeID:
		if len(frame) < 2*correlationSize {
			return Reply{}, ErrTruncated
		}
		return Reply{
			TypeID:        typeID,
			CorrelationID: int64(binary.LittleEndian.Uint64(frame)),
			SourceRef:     int64(binary.LittleEndian.Uint64(frame[correlationSize:])),
		}, nil
	case UnroutedTypeID, ErrorTypeID:
		if len(frame) < correlationSize {
			return Reply{}, ErrTruncated
		}
		return Reply{TypeID: typeID, CorrelationID: int64(binary.LittleEndian.Uint64(frame))}, nil
	default:
		return Reply{}, fmt.Errorf("route: unexpected reply type %s", TypeName(typeID))
	}
}
