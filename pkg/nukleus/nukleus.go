package nukleus

import (
	"context"
	"fmt"
	"io"

	"go.uber.org/multierr"
)

// Nukleus is a named unit of the runtime that releases its resources on Close.
type Nukleus interface {
	io.Closer

	// Name returns a diagnostic name for this unit.
	Name() string
}

// Starter is implemented by units that run background work once assembled.
type Starter interface {
	Start(ctx context.Context) error
}

// CloseError reports the first child of a Composite that failed to close.
type CloseError struct {
	// Composite is the name of the composite being closed.
	Composite string

	// Child is the name of the first unit whose Close failed.
	Child string

	// Err is the failure returned by Child.
	Err error

	// Suppressed combines the failures of units closed after Child, if any.
	Suppressed error
}

func (e *CloseError) Error() string {
	msg := fmt.Sprintf("close %s: %s: %v", e.Composite, e.Child, e.Err)
	if n := len(multierr.Errors(e.Suppressed)); n > 0 {
		msg = fmt.Sprintf("%s (%d suppressed)", msg, n)
	}
	return msg
}

func (e *CloseError) Unwrap() error {
	return e.Err
}

// SuppressedErrors returns the failures that followed the first one.
func (e *CloseError) SuppressedErrors() []error {
	return multierr.Errors(e.Suppressed)
}

// Composite is a Nukleus that owns an ordered list of children.
//
// The children are closed in the order they were given. References between
// siblings are plain associations; only the composite owns them.
type Composite struct {
	name     string
	children []Nukleus
	cleanup  io.Closer
}

// NewComposite creates a composite owning the given children.
func NewComposite(name string, children ...Nukleus) *Composite {
	return &Composite{
		name:     name,
		children: append([]Nukleus(nil), children...),
	}
}

// WithCleanup registers a final step that runs after every child was closed.
func (c *Composite) WithCleanup(cleanup io.Closer) *Composite {
	c.cleanup = cleanup
	return c
}

// Name returns the composite's name.
func (c *Composite) Name() string {
	return c.name
}

// Children returns the composite's children in construction order.
func (c *Composite) Children() []Nukleus {
	return append([]Nukleus(nil), c.children...)
}

// Start starts every child that implements Starter, in construction order.
// It stops at the first child that fails to start.
func (c *Composite) Start(ctx context.Context) error {
	for _, child := range c.children {
		starter, ok := child.(Starter)
		if !ok {
			continue
		}
		if err := starter.Start(ctx); err != nil {
			return fmt.Errorf("start %s: %s: %w", c.name, child.Name(), err)
		}
	}
	return nil
}

// Close closes every child in construction order, then runs the cleanup step.
//
// A failing child does not prevent the remaining children from closing. The
// first failure is returned as a *CloseError once all of them were closed.
// Calling Close more than once is a usage error.
func (c *Composite) Close() error {
	var first *CloseError

	record := func(name string, err error) {
		if err == nil {
			return
		}
		if first == nil {
			first = &CloseError{Composite: c.name, Child: name, Err: err}
			return
		}
		first.Suppressed = multierr.Append(first.Suppressed, fmt.Errorf("%s: %w", name, err))
	}

	for _, child := range c.children {
		record(child.Name(), child.Close())
	}
	if c.cleanup != nil {
		record("cleanup", c.cleanup.Close())
	}

	if first == nil {
		return nil
	}
	return first
}

// Verify that Composite implements Nukleus at compile time
var _ Nukleus = (*Composite)(nil)
