// Package reaktor assembles a nukleus from its collaborators.
//
// A Builder wires a Conductor, Watcher, Router and Acceptor around a shared
// Context and returns them as one Composite. Collaborators are constructed
// first and linked afterwards, so none of them needs the others at
// construction time.
package reaktor

import (
	"errors"
	"fmt"
	"maps"

	"github.com/rmacdonaldsmith/reaktor-go/internal/acceptor"
	"github.com/rmacdonaldsmith/reaktor-go/internal/conductor"
	"github.com/rmacdonaldsmith/reaktor-go/internal/router"
	"github.com/rmacdonaldsmith/reaktor-go/internal/watcher"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/nukleus"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/route"
)

var (
	// ErrEmptyName is returned when building a nukleus without a name
	ErrEmptyName = errors.New("nukleus name cannot be empty")
	// ErrNilBuilder is returned when registering a nil stream factory builder
	ErrNilBuilder = errors.New("stream factory builder cannot be nil")
)

// Builder collects the stream factory builders of a nukleus and assembles it.
type Builder struct {
	config   *Config
	name     string
	builders map[route.Kind]nukleus.StreamFactoryBuilder
}

// NewBuilder creates a builder for the nukleus called name.
func NewBuilder(config *Config, name string) *Builder {
	return &Builder{
		config:   config,
		name:     name,
		builders: make(map[route.Kind]nukleus.StreamFactoryBuilder),
	}
}

// StreamFactory registers the builder serving routes of kind. A later
// registration for the same kind replaces the earlier one.
func (b *Builder) StreamFactory(kind route.Kind, builder nukleus.StreamFactoryBuilder) error {
	if !kind.Valid() {
		return fmt.Errorf("%w: %d", route.ErrUnknownKind, kind)
	}
	if builder == nil {
		return ErrNilBuilder
	}
	b.builders[kind] = builder
	return nil
}

// Build constructs and links the collaborators of the nukleus. Later calls to
// StreamFactory do not affect a nukleus already built.
func (b *Builder) Build() (*Nukleus, error) {
	if b.name == "" {
		return nil, ErrEmptyName
	}
	if b.config == nil {
		b.config = DefaultConfig()
	}
	if err := b.config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	ctx := NewContext(b.name, b.config)
	if err := ctx.Conclude(); err != nil {
		return nil, fmt.Errorf("build %s: %w", b.name, err)
	}

	cond := conductor.New(ctx.Logger("conductor"))
	watch := watcher.New(watcher.Config{
		Directory: ctx.StreamsDirectory(),
		Interval:  b.config.WatchInterval,
		Logger:    ctx.Logger("watcher"),
	})
	table := router.New()
	accept, err := acceptor.New(&acceptor.Config{
		Name:          b.name,
		HealthAddress: b.config.HealthAddress,
		Logger:        ctx.Logger("acceptor"),
		Registerer:    ctx.Registry(),
	})
	if err != nil {
		_ = ctx.Close()
		return nil, fmt.Errorf("build %s: %w", b.name, err)
	}

	builders := maps.Clone(b.builders)
	cond.SetAcceptor(accept)
	watch.SetAcceptor(accept)
	accept.SetConductor(cond)
	accept.SetRouter(table)
	accept.SetStreamFactoryBuilder(func(kind route.Kind) (nukleus.StreamFactoryBuilder, bool) {
		builder, ok := builders[kind]
		return builder, ok
	})

	return &Nukleus{
		Composite: nukleus.NewComposite(b.name, cond, watch, accept.RouteTable(), accept).WithCleanup(ctx),
		context:   ctx,
		conductor: cond,
		watcher:   watch,
		router:    table,
		acceptor:  accept,
	}, nil
}

// Nukleus is an assembled nukleus. Closing it closes the Conductor, Watcher,
// Router and Acceptor in that order, then the Context. The Router is cleared
// under the Acceptor's lock so streams may still be opening while it closes.
type Nukleus struct {
	*nukleus.Composite

	context   *Context
	conductor *conductor.Conductor
	watcher   *watcher.Watcher
	router    *router.Router
	acceptor  *acceptor.Acceptor
}

// Context returns the shared context.
func (n *Nukleus) Context() *Context { return n.context }

// Conductor returns the administrative entry point.
func (n *Nukleus) Conductor() *conductor.Conductor { return n.conductor }

// Watcher returns the source watcher.
func (n *Nukleus) Watcher() *watcher.Watcher { return n.watcher }

// Router returns the route table. Access it through the Acceptor while the
// nukleus is running.
func (n *Nukleus) Router() *router.Router { return n.router }

// Acceptor returns the owner of the route table.
func (n *Nukleus) Acceptor() *acceptor.Acceptor { return n.acceptor }

// Route adds rec through the Conductor and returns its reply.
func (n *Nukleus) Route(rec route.Record) (route.Reply, error) {
	return n.command(route.RouteTypeID, rec)
}

// Unroute removes the routes rec names through the Conductor and returns its reply.
func (n *Nukleus) Unroute(rec route.Record) (route.Reply, error) {
	return n.command(route.UnrouteTypeID, rec)
}

func (n *Nukleus) command(msgTypeID int32, rec route.Record) (route.Reply, error) {
	frame, err := route.EncodeCommand(n.conductor.NextCorrelationID(), rec)
	if err != nil {
		return route.Reply{}, fmt.Errorf("encode %s command: %w", route.TypeName(msgTypeID), err)
	}
	return n.conductor.Execute(msgTypeID, frame)
}
