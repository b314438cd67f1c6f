package router

import (
	"github.com/rmacdonaldsmith/reaktor-go/pkg/nukleus"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/route"
)

// Matcher is a predicate over a stored route.
type Matcher func(r *route.Record) bool

// And returns a matcher that holds when both m and other hold.
func (m Matcher) And(other Matcher) Matcher {
	return func(r *route.Record) bool {
		return m(r) && other(r)
	}
}

// Any matches every route.
func Any(*route.Record) bool {
	return true
}

// SourceMatches matches routes from source. An empty source matches any route.
func SourceMatches(source string) Matcher {
	if source == "" {
		return Any
	}
	return func(r *route.Record) bool {
		return r.Source == source
	}
}

// SourceRefMatches matches routes with the given source reference.
func SourceRefMatches(sourceRef int64) Matcher {
	return func(r *route.Record) bool {
		return r.SourceRef == sourceRef
	}
}

// TargetMatches matches routes to target. An empty target matches any route.
func TargetMatches(target string) Matcher {
	if target == "" {
		return Any
	}
	return func(r *route.Record) bool {
		return r.Target == target
	}
}

// TargetRefMatches matches routes with the given target reference.
func TargetRefMatches(targetRef int64) Matcher {
	return func(r *route.Record) bool {
		return r.TargetRef == targetRef
	}
}

// AuthorizationMatches matches routes whose required authorization is exactly
// authorization. Removal targets the bitmask a route was registered with.
func AuthorizationMatches(authorization uint64) Matcher {
	return func(r *route.Record) bool {
		return r.Authorization == authorization
	}
}

// Criteria selects routes for removal. An empty name or a nil field matches
// any route.
type Criteria struct {
	Source        string
	SourceRef     *int64
	Target        string
	TargetRef     *int64
	Authorization *uint64
}

// ExactCriteria selects the routes an unroute record names: references and
// authorization must match exactly, empty names match any endpoint.
func ExactCriteria(rec route.Record) Criteria {
	return Criteria{
		Source:        rec.Source,
		SourceRef:     &rec.SourceRef,
		Target:        rec.Target,
		TargetRef:     &rec.TargetRef,
		Authorization: &rec.Authorization,
	}
}

// Matcher combines one matcher per criterion. Numeric comparisons run before
// name comparisons.
func (c Criteria) Matcher() Matcher {
	m := Matcher(Any)
	if c.SourceRef != nil {
		m = m.And(SourceRefMatches(*c.SourceRef))
	}
	if c.TargetRef != nil {
		m = m.And(TargetRefMatches(*c.TargetRef))
	}
	if c.Authorization != nil {
		m = m.And(AuthorizationMatches(*c.Authorization))
	}
	if c.Source != "" {
		m = m.And(SourceMatches(c.Source))
	}
	if c.Target != "" {
		m = m.And(TargetMatches(c.Target))
	}
	return m
}

// EndpointFilter returns a resolve filter matching routes from source and
// sourceRef. It reads the candidate in place.
func EndpointFilter(source string, sourceRef int64) nukleus.MessagePredicate {
	return func(_ int32, buffer []byte) bool {
		v, err := route.Wrap(buffer)
		if err != nil {
			return false
		}
		return v.SourceRef() == sourceRef && v.SourceEquals(source)
	}
}

// KindFilter returns a resolve filter matching routes of kind.
func KindFilter(kind route.Kind) nukleus.MessagePredicate {
	return func(_ int32, buffer []byte) bool {
		return len(buffer) > 0 && route.Kind(buffer[0]) == kind
	}
}
