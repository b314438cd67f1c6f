package nukleus

import "github.com/rmacdonaldsmith/reaktor-go/pkg/route"

// RouteManager is the view of the route table handed to stream factories.
type RouteManager interface {
	// Resolve returns the first route the caller's authorization grants
	// access to and for which filter holds.
	Resolve(authorization uint64, filter MessagePredicate) (route.Record, bool)
}

// StreamFactory creates data-plane streams for one route kind.
type StreamFactory interface {
	// NewStream handles the begin frame of a new stream that resolved to rt.
	// It returns the consumer for the stream's subsequent frames, or nil when
	// the stream is refused.
	NewStream(rt route.Record, msgTypeID int32, begin []byte, reply MessageConsumer) MessageConsumer
}

// StreamFactoryBuilder builds the stream factory of one route kind.
type StreamFactoryBuilder interface {
	Build(rm RouteManager) (StreamFactory, error)
}

// StreamFactoryBuilderFunc adapts a function to a StreamFactoryBuilder.
type StreamFactoryBuilderFunc func(rm RouteManager) (StreamFactory, error)

// Build implements StreamFactoryBuilder.
func (f StreamFactoryBuilderFunc) Build(rm RouteManager) (StreamFactory, error) {
	return f(rm)
}

// StreamFactoryFunc adapts a function to a StreamFactory.
type StreamFactoryFunc func(rt route.Record, msgTypeID int32, begin []byte, reply MessageConsumer) MessageConsumer

// NewStream implements StreamFactory.
func (f StreamFactoryFunc) NewStream(rt route.Record, msgTypeID int32, begin []byte, reply MessageConsumer) MessageConsumer {
	return f(rt, msgTypeID, begin, reply)
}
