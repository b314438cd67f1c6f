// Package conductor processes route administration commands for a nukleus.
//
// The conductor decodes Route and Unroute command frames, hands the route
// record to the acceptor, and encodes the acceptor's outcome as a Routed,
// Unrouted or Error reply carrying the command's correlation id.
package conductor

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/rmacdonaldsmith/reaktor-go/pkg/nukleus"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/route"
)

var (
	// ErrNoAcceptor is returned when a command arrives before the acceptor is linked
	ErrNoAcceptor = errors.New("conductor: acceptor not set")
	// ErrNoReply is returned when a command completes without a reply
	ErrNoReply = errors.New("conductor: command produced no reply")
	// ErrClosed is returned when a command arrives after Close
	ErrClosed = errors.New("conductor: closed")
)

// Acceptor carries out route commands and reports back through OnRouted,
// OnUnrouted or OnError before returning.
type Acceptor interface {
	DoRoute(correlationID int64, record []byte)
	DoUnroute(correlationID int64, record []byte)
}

// Conductor is the administrative entry point of a nukleus.
type Conductor struct {
	mu       sync.Mutex
	logger   *slog.Logger
	acceptor Acceptor
	sink     nukleus.MessageConsumer
	pending  *route.Reply
	outbox   []route.Reply
	closed   bool

	correlations atomic.Int64
}

// New creates a conductor. The acceptor is linked later with SetAcceptor.
func New(logger *slog.Logger) *Conductor {
	return &Conductor{logger: logger}
}

// Name implements nukleus.Nukleus.
func (c *Conductor) Name() string {
	return "conductor"
}

// SetAcceptor links the acceptor that carries out commands.
func (c *Conductor) SetAcceptor(acceptor Acceptor) {
	c.acceptor = acceptor
}

// SetReplySink registers a consumer for every encoded reply frame. The sink
// runs after the command that produced the reply has released every lock, so
// it may issue further commands.
func (c *Conductor) SetReplySink(sink nukleus.MessageConsumer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sink = sink
}

// NextCorrelationID returns a correlation id unique to this conductor.
func (c *Conductor) NextCorrelationID() int64 {
	return c.correlations.Add(1)
}

// OnCommand processes one command frame. Replies go to the reply sink.
func (c *Conductor) OnCommand(msgTypeID int32, frame []byte) error {
	c.mu.Lock()
	err := c.onCommand(msgTypeID, frame)
	sink, replies := c.takeReplies()
	c.mu.Unlock()

	deliver(sink, replies)
	return err
}

// Execute processes one command frame and returns its reply.
func (c *Conductor) Execute(msgTypeID int32, frame []byte) (route.Reply, error) {
	var reply route.Reply

	c.mu.Lock()
	c.pending = &reply
	err := c.onCommand(msgTypeID, frame)
	c.pending = nil
	sink, replies := c.takeReplies()
	c.mu.Unlock()

	deliver(sink, replies)
	if err != nil {
		return route.Reply{}, err
	}
	if reply.TypeID == 0 {
		return route.Reply{}, ErrNoReply
	}
	return reply, nil
}

func (c *Conductor) onCommand(msgTypeID int32, frame []byte) error {
	if c.closed {
		return ErrClosed
	}
	if c.acceptor == nil {
		return ErrNoAcceptor
	}

	correlationID, record, err := route.DecodeCommand(frame)
	if err != nil {
		c.logger.Warn("rejecting malformed command",
			"type", route.TypeName(msgTypeID), "correlationId", correlationID, "error", err)
		if len(frame) >= 8 {
			c.OnError(correlationID)
			return nil
		}
		return fmt.Errorf("decode %s command: %w", route.TypeName(msgTypeID), err)
	}

	switch msgTypeID {
	case route.RouteTypeID:
		c.acceptor.DoRoute(correlationID, record)
	case route.UnrouteTypeID:
		c.acceptor.DoUnroute(correlationID, record)
	default:
		c.logger.Warn("rejecting unknown command", "type", route.TypeName(msgTypeID), "correlationId", correlationID)
		c.OnError(correlationID)
	}
	return nil
}

// OnRouted replies that the command identified by correlationID added a route
// registered under sourceRef. It is called by the acceptor while the command
// is being processed.
func (c *Conductor) OnRouted(correlationID, sourceRef int64) {
	c.reply(route.Reply{TypeID: route.RoutedTypeID, CorrelationID: correlationID, SourceRef: sourceRef})
}

// OnUnrouted replies that the command identified by correlationID removed routes.
func (c *Conductor) OnUnrouted(correlationID int64) {
	c.reply(route.Reply{TypeID: route.UnroutedTypeID, CorrelationID: correlationID})
}

// OnError replies that the command identified by correlationID failed.
func (c *Conductor) OnError(correlationID int64) {
	c.reply(route.Reply{TypeID: route.ErrorTypeID, CorrelationID: correlationID})
}

func (c *Conductor) reply(r route.Reply) {
	c.logger.Debug("reply", "type", route.TypeName(r.TypeID), "correlationId", r.CorrelationID)
	if c.pending != nil {
		*c.pending = r
	}
	c.outbox = append(c.outbox, r)
}

// takeReplies hands over the replies queued by the current command.
// Callers hold c.mu.
func (c *Conductor) takeReplies() (nukleus.MessageConsumer, []route.Reply) {
	replies := c.outbox
	c.outbox = nil
	return c.sink, replies
}

func deliver(sink nukleus.MessageConsumer, replies []route.Reply) {
	if sink == nil {
		return
	}
	for _, r := range replies {
		sink(r.TypeID, r.Encode())
	}
}

// Close stops accepting commands.
func (c *Conductor) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	c.sink = nil
	c.outbox = nil
	return nil
}

// Verify that Conductor implements Nukleus at compile time
var _ nukleus.Nukleus = (*Conductor)(nil)
