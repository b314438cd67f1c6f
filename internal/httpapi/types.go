package httpapi

import "time"

// Request/Response types for the HTTP API

// AuthRequest represents a login request
type AuthRequest struct {
	ClientID string `json:"clientId"`
}

// AuthResponse represents a login response
type AuthResponse struct {
	Token         string    `json:"token"`
	ClientID      string    `json:"clientId"`
	IsAdmin       bool      `json:"isAdmin"`
	Authorization uint64    `json:"authorization"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// RouteRequest describes a route to add or the routes to remove. Extension
// is base64 encoded on the wire.
type RouteRequest struct {
	Kind          string `json:"kind"`
	Source        string `json:"source"`
	SourceRef     int64  `json:"sourceRef"`
	Target        string `json:"target"`
	TargetRef     int64  `json:"targetRef"`
	Authorization uint64 `json:"authorization"`
	Extension     []byte `json:"extension,omitempty"`
}

// RouteInfo represents one route of the route table
type RouteInfo struct {
	Kind          string `json:"kind"`
	Source        string `json:"source"`
	SourceRef     int64  `json:"sourceRef"`
	Target        string `json:"target"`
	TargetRef     int64  `json:"targetRef"`
	Authorization uint64 `json:"authorization"`
	Extension     []byte `json:"extension,omitempty"`
}

// RoutesResponse lists routes in resolution order
type RoutesResponse struct {
	Routes []RouteInfo `json:"routes"`
	Count  int         `json:"count"`
}

// RouteResponse acknowledges an added route
type RouteResponse struct {
	CorrelationID int64 `json:"correlationId"`
	SourceRef     int64 `json:"sourceRef"`
}

// UnrouteResponse acknowledges removed routes
type UnrouteResponse struct {
	CorrelationID int64 `json:"correlationId"`
}

// ResolveRequest asks for the route a new stream from source would take
type ResolveRequest struct {
	Source    string `json:"source"`
	SourceRef int64  `json:"sourceRef"`
}

// SourcesResponse lists the sources found in the streams directory
type SourcesResponse struct {
	Sources []string `json:"sources"`
}

// HealthResponse represents health check response
type HealthResponse struct {
	Healthy    bool     `json:"healthy"`
	Nukleus    string   `json:"nukleus"`
	InstanceID string   `json:"instanceId"`
	Routes     int      `json:"routes"`
	Sources    []string `json:"sources"`
	Message    string   `json:"message"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Code    int    `json:"code"`
}
