// Package nukleus provides the contracts shared by a reaktor nukleus and the
// components assembled into it.
//
// This package defines:
//   - Nukleus: a named, closeable unit of the runtime
//   - Composite: a Nukleus that owns child units and cascades Start and Close
//   - MessagePredicate, MessageFunction, MessageConsumer: typed frame callbacks
//   - StreamFactory, StreamFactoryBuilder: per route kind data-plane construction
//   - RouteManager: the view of the route table handed to stream factories
//
// Close semantics of a Composite:
//   - every child is closed in construction order, even after a failure
//   - the first failure is returned once all children were given a chance to close
//   - later failures are kept as suppressed errors on the returned CloseError
//
// Example usage:
//
//	n := nukleus.NewComposite("tcp", conductor, watcher, router, acceptor).
//		WithCleanup(context)
//	if err := n.Start(ctx); err != nil {
//		return err
//	}
//	defer n.Close()
package nukleus
