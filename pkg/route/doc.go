// Package route defines the route record exchanged between the control plane
// and the router, and the binary control frames that carry it.
//
// A route binds a source endpoint and reference to a target endpoint and
// reference for one route kind, guarded by an authorization bitmask:
//   - Kind: which stream factory family owns the route
//   - Source / SourceRef: the originating endpoint and its scoping reference
//   - Target / TargetRef: the destination endpoint and its scoping reference
//   - Authorization: capability bits a caller must hold to use the route
//   - Extension: kind-specific payload, never interpreted by the router
//
// Records are encoded little-endian:
//
//	kind          uint8
//	source        uint8 length + bytes
//	sourceRef     int64
//	target        uint8 length + bytes
//	targetRef     int64
//	authorization uint64
//	extension     uint32 length + bytes
//
// Two routes are the same route when their encoded bytes are equal.
//
// Control frames prefix a record with an int64 correlation id. Replies carry
// the correlation id of the command they answer, and Routed replies also carry
// the source reference the route was registered under.
//
// Example usage:
//
//	rec := route.Record{
//		Kind:   route.Server,
//		Source: "tcp",
//		Target: "http",
//	}
//	frame, err := route.EncodeCommand(correlationID, rec)
//	if err != nil {
//		return err
//	}
//	reply, err := conductor.Execute(route.RouteTypeID, frame)
package route
