// Package router maintains the route table of a nukleus and resolves new
// streams against it.
//
// The Router performs no synchronization. All calls must be serialized by the
// owner, which in a running nukleus is the Acceptor.
package router

import (
	"bytes"

	"github.com/rmacdonaldsmith/reaktor-go/pkg/nukleus"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/route"
)

type entry struct {
	raw    []byte
	record route.Record
}

// Router owns an insertion-ordered set of routes. Route identity is the
// encoded byte sequence of the route.
type Router struct {
	routes  []entry
	index   map[string]struct{}
	scratch []byte
}

// New creates an empty router.
func New() *Router {
	return &Router{
		index: make(map[string]struct{}),
	}
}

// Name implements nukleus.Nukleus.
func (r *Router) Name() string {
	return "router"
}

// AddRoute adds the encoded route in buffer once onAccepted approves it.
//
// onAccepted receives the caller's buffer. The router stores its own copy of
// the route, taken before onAccepted runs. AddRoute returns false when the
// buffer is not a route, when onAccepted rejects it, or when the same route
// is already present.
func (r *Router) AddRoute(buffer []byte, onAccepted nukleus.MessagePredicate) bool {
	raw := bytes.Clone(buffer)
	rec, err := route.Decode(raw)
	if err != nil {
		return false
	}

	if !onAccepted(route.RouteTypeID, buffer) {
		return false
	}

	key := string(raw)
	if _, exists := r.index[key]; exists {
		return false
	}
	r.index[key] = struct{}{}
	r.routes = append(r.routes, entry{raw: raw, record: rec})
	return true
}

// RemoveRoute removes every route matching criteria once onRemoved approves.
//
// It returns false without calling onRemoved when no route matches, and
// leaves the table untouched when onRemoved returns false.
func (r *Router) RemoveRoute(criteria Criteria, onRemoved func() bool) bool {
	match := criteria.Matcher()

	matched := 0
	for i := range r.routes {
		if match(&r.routes[i].record) {
			matched++
		}
	}
	if matched == 0 || !onRemoved() {
		return false
	}

	kept := r.routes[:0]
	for _, e := range r.routes {
		if match(&e.record) {
			delete(r.index, string(e.raw))
			continue
		}
		kept = append(kept, e)
	}
	clear(r.routes[len(kept):])
	r.routes = kept
	return true
}

// Unroute removes the routes named by the encoded unroute record in buffer.
// onRemoved receives the caller's buffer.
func (r *Router) Unroute(buffer []byte, onRemoved nukleus.MessagePredicate) bool {
	rec, err := route.Decode(buffer)
	if err != nil {
		return false
	}
	return r.RemoveRoute(ExactCriteria(rec), func() bool {
		return onRemoved(route.UnrouteTypeID, buffer)
	})
}

// Resolve scans the routes in table order and maps the first one that the
// caller's authorization grants access to and for which filter holds.
//
// A route grants access when every bit it requires is set in authorization.
// filter sees a scratch copy of each candidate and mapper sees a fresh copy
// of the match; neither can reach the router's storage.
func Resolve[R any](r *Router, authorization uint64, filter nukleus.MessagePredicate, mapper nukleus.MessageFunction[R]) (R, bool) {
	for i := range r.routes {
		e := &r.routes[i]
		required := e.record.Authorization
		if authorization&required != required {
			continue
		}

		r.scratch = append(r.scratch[:0], e.raw...)
		if !filter(route.RouteTypeID, r.scratch) {
			continue
		}

		return mapper(route.RouteTypeID, bytes.Clone(e.raw)), true
	}

	var zero R
	return zero, false
}

// Lookup resolves like Resolve and returns the decoded route.
func (r *Router) Lookup(authorization uint64, filter nukleus.MessagePredicate) (route.Record, bool) {
	return Resolve(r, authorization, filter, decodeRecord)
}

func decodeRecord(_ int32, buffer []byte) route.Record {
	rec, _ := route.Decode(buffer)
	return rec
}

// Routes returns a copy of the table in resolution order.
func (r *Router) Routes() []route.Record {
	routes := make([]route.Record, 0, len(r.routes))
	for _, e := range r.routes {
		routes = append(routes, e.record.Clone())
	}
	return routes
}

// Matches reports whether any route in the table satisfies match.
func (r *Router) Matches(match Matcher) bool {
	for i := range r.routes {
		if match(&r.routes[i].record) {
			return true
		}
	}
	return false
}

// Len returns the number of routes in the table.
func (r *Router) Len() int {
	return len(r.routes)
}

// Close clears the table.
func (r *Router) Close() error {
	clear(r.routes)
	r.routes = nil
	clear(r.index)
	r.scratch = nil
	return nil
}

// Verify that Router implements Nukleus at compile time
var _ nukleus.Nukleus = (*Router)(nil)
