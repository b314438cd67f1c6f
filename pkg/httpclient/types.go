package httpclient

import (
	"fmt"
	"time"
)

// Config holds client configuration
type Config struct {
	// ServerURL is the base URL of the admin HTTP API (e.g., "http://localhost:8081")
	ServerURL string

	// ClientID is the identifier presented at login
	ClientID string

	// Timeout for HTTP requests
	Timeout time.Duration
}

// SetDefaults sets reasonable default values for the config
func (c *Config) SetDefaults() {
	if c.Timeout == 0 {
		c.Timeout = 30 * time.Second
	}
}

// AuthResponse represents the response from authentication
type AuthResponse struct {
	Token         string    `json:"token"`
	ClientID      string    `json:"clientId"`
	IsAdmin       bool      `json:"isAdmin"`
	Authorization uint64    `json:"authorization"`
	ExpiresAt     time.Time `json:"expiresAt"`
}

// Route describes a route to add, the routes to remove, or a route of the table
type Route struct {
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
	Routes []Route `json:"routes"`
	Count  int     `json:"count"`
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

// SourcesResponse lists the sources of the nukleus
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

// APIError is returned for responses with a 4xx or 5xx status
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("API error (%d): %s", e.StatusCode, e.Message)
}
