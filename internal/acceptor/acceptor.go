// Package acceptor carries out route commands against the route table and
// opens streams on the routes it holds.
//
// The Acceptor serializes every access to its Router. It builds one stream
// factory per route kind on first use and refuses routes whose kind has no
// registered stream factory builder. Route sources discovered by the watcher
// are published through a gRPC health service.
package acceptor

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"slices"
	"sync"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/rmacdonaldsmith/reaktor-go/internal/router"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/nukleus"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/route"
)

// ErrNoStreamFactory is returned when no stream factory can serve a route kind
var ErrNoStreamFactory = errors.New("no stream factory for route kind")

// Conductor receives the outcome of each route command.
type Conductor interface {
	OnRouted(correlationID, sourceRef int64)
	OnUnrouted(correlationID int64)
	OnError(correlationID int64)
}

// BuilderLookup returns the stream factory builder registered for kind.
type BuilderLookup func(kind route.Kind) (nukleus.StreamFactoryBuilder, bool)

// Acceptor owns the route table of a running nukleus.
type Acceptor struct {
	config *Config
	logger *slog.Logger

	mu            sync.Mutex
	conductor     Conductor
	table         *router.Router
	lookup        BuilderLookup
	factories     map[route.Kind]nukleus.StreamFactory
	nextSourceRef int64
	sources       map[string]struct{}
	closed        bool

	metrics  *metrics
	health   *health.Server
	server   *grpc.Server
	listener net.Listener
}

// New creates an Acceptor. Its conductor, router and stream factory builders
// are linked afterwards.
func New(config *Config) (*Acceptor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	configCopy := *config
	configCopy.SetDefaults()

	return &Acceptor{
		config:    &configCopy,
		logger:    configCopy.Logger,
		factories: make(map[route.Kind]nukleus.StreamFactory),
		sources:   make(map[string]struct{}),
		metrics:   newMetrics(configCopy.Registerer, configCopy.Name),
		health:    health.NewServer(),
	}, nil
}

// Name implements nukleus.Nukleus.
func (a *Acceptor) Name() string {
	return "acceptor"
}

// SetConductor links the conductor that receives command outcomes.
func (a *Acceptor) SetConductor(conductor Conductor) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.conductor = conductor
}

// SetRouter links the route table.
func (a *Acceptor) SetRouter(table *router.Router) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.table = table
}

// SetStreamFactoryBuilder links the lookup for per-kind stream factory builders.
func (a *Acceptor) SetStreamFactoryBuilder(lookup BuilderLookup) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.lookup = lookup
}

// DoRoute adds the encoded route in record. A zero source reference is
// replaced by the next one no route holds; the Routed reply carries the
// reference the route was stored with.
func (a *Acceptor) DoRoute(correlationID int64, record []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	rec, err := route.Decode(record)
	if err != nil || a.closed || a.table == nil {
		a.logger.Warn("route refused", "correlationId", correlationID, "error", err)
		a.metrics.routes.WithLabelValues(resultRejected).Inc()
		a.conductor.OnError(correlationID)
		return
	}

	assigned := rec.SourceRef == 0
	if assigned {
		rec.SourceRef = a.unusedSourceRef()
		if record, err = rec.Encode(); err != nil {
			a.metrics.routes.WithLabelValues(resultRejected).Inc()
			a.conductor.OnError(correlationID)
			return
		}
	}

	if !a.table.AddRoute(record, a.onRouteAccepted) {
		a.logger.Info("route rejected", "correlationId", correlationID, "route", rec)
		a.metrics.routes.WithLabelValues(resultRejected).Inc()
		a.conductor.OnError(correlationID)
		return
	}

	if assigned {
		a.nextSourceRef = rec.SourceRef
	}
	a.logger.Info("route added", "correlationId", correlationID, "route", rec)
	a.metrics.routes.WithLabelValues(resultOK).Inc()
	a.metrics.table.Set(float64(a.table.Len()))
	a.conductor.OnRouted(correlationID, rec.SourceRef)
}

// unusedSourceRef returns the next source reference no route holds yet.
// Callers hold a.mu.
func (a *Acceptor) unusedSourceRef() int64 {
	ref := a.nextSourceRef + 1
	for a.table.Matches(router.SourceRefMatches(ref)) {
		ref++
	}
	return ref
}

func (a *Acceptor) onRouteAccepted(_ int32, buffer []byte) bool {
	v, err := route.Wrap(buffer)
	if err != nil {
		return false
	}
	if _, err := a.streamFactory(v.Kind()); err != nil {
		a.logger.Warn("route kind unavailable", "kind", v.Kind(), "error", err)
		return false
	}
	return true
}

// streamFactory returns the factory for kind, building it on first use.
// Callers hold a.mu.
func (a *Acceptor) streamFactory(kind route.Kind) (nukleus.StreamFactory, error) {
	if factory, ok := a.factories[kind]; ok {
		return factory, nil
	}
	if a.lookup == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoStreamFactory, kind)
	}
	builder, ok := a.lookup(kind)
	if !ok || builder == nil {
		return nil, fmt.Errorf("%w: %s", ErrNoStreamFactory, kind)
	}
	factory, err := builder.Build(a)
	if err != nil {
		return nil, fmt.Errorf("build %s stream factory: %w", kind, err)
	}
	if factory == nil {
		return nil, fmt.Errorf("%w: %s builder returned nil", ErrNoStreamFactory, kind)
	}
	a.factories[kind] = factory
	return factory, nil
}

// DoUnroute removes the routes named by the encoded unroute record.
func (a *Acceptor) DoUnroute(correlationID int64, record []byte) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.closed || a.table == nil || !a.table.Unroute(record, a.onRouteRemoved) {
		a.logger.Info("unroute rejected", "correlationId", correlationID)
		a.metrics.unroutes.WithLabelValues(resultRejected).Inc()
		a.conductor.OnError(correlationID)
		return
	}

	a.logger.Info("routes removed", "correlationId", correlationID, "remaining", a.table.Len())
	a.metrics.unroutes.WithLabelValues(resultOK).Inc()
	a.metrics.table.Set(float64(a.table.Len()))
	a.conductor.OnUnrouted(correlationID)
}

func (a *Acceptor) onRouteRemoved(int32, []byte) bool {
	return !a.closed
}

// Resolve implements nukleus.RouteManager. Stream factory builders must not
// call it from Build.
func (a *Acceptor) Resolve(authorization uint64, filter nukleus.MessagePredicate) (route.Record, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.table == nil {
		return route.Record{}, false
	}
	rec, ok := a.table.Lookup(authorization, filter)
	a.metrics.resolves.WithLabelValues(outcome(ok, resultHit, resultMiss)).Inc()
	return rec, ok
}

type streamTarget struct {
	record  route.Record
	factory nukleus.StreamFactory
}

// NewStream opens a stream on the first route from source and sourceRef that
// authorization grants access to. It returns false when no route matches or
// the stream factory refuses the stream.
func (a *Acceptor) NewStream(
	authorization uint64,
	source string,
	sourceRef int64,
	msgTypeID int32,
	begin []byte,
	reply nukleus.MessageConsumer,
) (nukleus.MessageConsumer, bool) {
	a.mu.Lock()
	if a.closed || a.table == nil {
		a.mu.Unlock()
		return nil, false
	}
	target, ok := router.Resolve(a.table, authorization, router.EndpointFilter(source, sourceRef),
		func(_ int32, buffer []byte) streamTarget {
			rec, _ := route.Decode(buffer)
			return streamTarget{record: rec, factory: a.factories[rec.Kind]}
		})
	a.metrics.resolves.WithLabelValues(outcome(ok, resultHit, resultMiss)).Inc()
	a.mu.Unlock()

	if !ok || target.factory == nil {
		return nil, false
	}
	stream := target.factory.NewStream(target.record, msgTypeID, begin, reply)
	return stream, stream != nil
}

// Routes returns a snapshot of the route table in resolution order.
func (a *Acceptor) Routes() []route.Record {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.table == nil {
		return nil
	}
	return a.table.Routes()
}

// OnSourceAdded marks a route source as serving.
func (a *Acceptor) OnSourceAdded(source string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sources[source] = struct{}{}
	a.health.SetServingStatus(source, healthpb.HealthCheckResponse_SERVING)
	a.logger.Info("source added", "source", source)
}

// OnSourceRemoved drops every route from source and marks it not serving.
func (a *Acceptor) OnSourceRemoved(source string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.sources, source)
	a.health.SetServingStatus(source, healthpb.HealthCheckResponse_NOT_SERVING)

	if a.table == nil {
		return
	}
	before := a.table.Len()
	if a.table.RemoveRoute(router.Criteria{Source: source}, func() bool { return true }) {
		a.metrics.table.Set(float64(a.table.Len()))
	}
	a.logger.Info("source removed", "source", source, "routesRemoved", before-a.table.Len())
}

// Sources returns the known route sources, sorted.
func (a *Acceptor) Sources() []string {
	a.mu.Lock()
	defer a.mu.Unlock()

	sources := make([]string, 0, len(a.sources))
	for source := range a.sources {
		sources = append(sources, source)
	}
	slices.Sort(sources)
	return sources
}

// Start marks the nukleus serving and, when a health address is configured,
// starts the gRPC health service.
func (a *Acceptor) Start(ctx context.Context) error {
	a.health.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	if a.config.HealthAddress == "" {
		return nil
	}

	var lc net.ListenConfig
	listener, err := lc.Listen(ctx, "tcp", a.config.HealthAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", a.config.HealthAddress, err)
	}

	server := grpc.NewServer()
	healthpb.RegisterHealthServer(server, a.health)

	a.mu.Lock()
	a.server = server
	a.listener = listener
	a.mu.Unlock()

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, grpc.ErrServerStopped) {
			a.logger.Error("health service stopped", "error", err)
		}
	}()
	a.logger.Info("health service listening", "address", listener.Addr().String())
	return nil
}

// HealthAddress returns the bound address of the health service, or "" when
// it is not listening.
func (a *Acceptor) HealthAddress() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.listener == nil {
		return ""
	}
	return a.listener.Addr().String()
}

// RouteTable returns the linked Router as a Nukleus whose Close clears the
// table under the acceptor's lock. Streams opened afterwards find no route.
func (a *Acceptor) RouteTable() nukleus.Nukleus {
	return routeTable{acceptor: a}
}

type routeTable struct {
	acceptor *Acceptor
}

func (t routeTable) Name() string {
	return "router"
}

func (t routeTable) Close() error {
	a := t.acceptor
	a.mu.Lock()
	defer a.mu.Unlock()

	table := a.table
	if table == nil {
		return nil
	}
	a.table = nil
	a.metrics.table.Set(0)
	return table.Close()
}

// Close stops the health service and releases the stream factories. It is
// safe to call more than once.
func (a *Acceptor) Close() error {
	a.mu.Lock()
	if a.closed {
		a.mu.Unlock()
		return nil
	}
	a.closed = true
	server := a.server
	a.server = nil
	a.listener = nil
	clear(a.factories)
	a.mu.Unlock()

	a.health.Shutdown()
	if server != nil {
		server.GracefulStop()
	}
	return nil
}

// Verify that Acceptor implements the nukleus contracts at compile time
var (
	_ nukleus.Nukleus      = (*Acceptor)(nil)
	_ nukleus.Starter      = (*Acceptor)(nil)
	_ nukleus.RouteManager = (*Acceptor)(nil)
)
