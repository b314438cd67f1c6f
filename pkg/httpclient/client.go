// Package httpclient is a Go client for the reaktor admin HTTP API.
package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
)

// ErrNotAuthenticated is returned by calls that need a token before Authenticate
var ErrNotAuthenticated = errors.New("client not authenticated - call Authenticate() first")

// Client provides HTTP client for the admin API
type Client struct {
	config     Config
	httpClient *http.Client
	token      string
	baseURL    *url.URL
}

// NewClient creates a new admin API client
func NewClient(config Config) (*Client, error) {
	config.SetDefaults()

	if config.ServerURL == "" {
		return nil, fmt.Errorf("ServerURL is required")
	}
	if config.ClientID == "" {
		return nil, fmt.Errorf("ClientID is required")
	}

	baseURL, err := url.Parse(config.ServerURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ServerURL: %w", err)
	}

	return &Client{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		baseURL:    baseURL,
	}, nil
}

// Authenticate logs in with the configured client id and stores the token
func (c *Client) Authenticate(ctx context.Context) (*AuthResponse, error) {
	authReq := map[string]string{
		"clientId": c.config.ClientID,
	}

	var authResp AuthResponse
	if err := c.doRequest(ctx, http.MethodPost, "/api/v1/auth/login", authReq, &authResp, false); err != nil {
		return nil, fmt.Errorf("authentication failed: %w", err)
	}

	c.token = authResp.Token
	return &authResp, nil
}

// ListRoutes returns the route table in resolution order
func (c *Client) ListRoutes(ctx context.Context) (*RoutesResponse, error) {
	var resp RoutesResponse
	if err := c.doAuthenticated(ctx, http.MethodGet, "/api/v1/routes", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list routes: %w", err)
	}
	return &resp, nil
}

// ListSourceRoutes returns the routes from one source
func (c *Client) ListSourceRoutes(ctx context.Context, source string) (*RoutesResponse, error) {
	var resp RoutesResponse
	path := fmt.Sprintf("/api/v1/sources/%s/routes", url.PathEscape(source))
	if err := c.doAuthenticated(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list routes of %s: %w", source, err)
	}
	return &resp, nil
}

// ListSources returns the sources of the nukleus
func (c *Client) ListSources(ctx context.Context) ([]string, error) {
	var resp SourcesResponse
	if err := c.doAuthenticated(ctx, http.MethodGet, "/api/v1/sources", nil, &resp); err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	return resp.Sources, nil
}

// AddRoute adds a route (admin only). A zero SourceRef is assigned by the server.
func (c *Client) AddRoute(ctx context.Context, route Route) (*RouteResponse, error) {
	var resp RouteResponse
	if err := c.doAuthenticated(ctx, http.MethodPost, "/api/v1/routes", route, &resp); err != nil {
		return nil, fmt.Errorf("failed to add route: %w", err)
	}
	return &resp, nil
}

// RemoveRoutes removes every route matching route (admin only). Empty names match any endpoint.
func (c *Client) RemoveRoutes(ctx context.Context, route Route) (*UnrouteResponse, error) {
	var resp UnrouteResponse
	if err := c.doAuthenticated(ctx, http.MethodPost, "/api/v1/routes/unroute", route, &resp); err != nil {
		return nil, fmt.Errorf("failed to remove routes: %w", err)
	}
	return &resp, nil
}

// Resolve returns the route a stream from source and sourceRef resolves to
// under the caller's authorization
func (c *Client) Resolve(ctx context.Context, source string, sourceRef int64) (*Route, error) {
	var resp Route
	req := ResolveRequest{Source: source, SourceRef: sourceRef}
	if err := c.doAuthenticated(ctx, http.MethodPost, "/api/v1/resolve", req, &resp); err != nil {
		return nil, fmt.Errorf("failed to resolve: %w", err)
	}
	return &resp, nil
}

// GetHealth returns the health status of the nukleus
func (c *Client) GetHealth(ctx context.Context) (*HealthResponse, error) {
	var resp HealthResponse
	if err := c.doRequest(ctx, http.MethodGet, "/api/v1/health", nil, &resp, false); err != nil {
		return nil, fmt.Errorf("failed to get health status: %w", err)
	}
	return &resp, nil
}

func (c *Client) doAuthenticated(ctx context.Context, method, path string, reqBody interface{}, respBody interface{}) error {
	if c.token == "" {
		return ErrNotAuthenticated
	}
	return c.doRequest(ctx, method, path, reqBody, respBody, true)
}

// doRequest performs an HTTP request with optional authentication
func (c *Client) doRequest(ctx context.Context, method, path string, reqBody interface{}, respBody interface{}, requireAuth bool) error {
	fullURL := c.baseURL.ResolveReference(&url.URL{Path: path})

	var bodyReader io.Reader
	if reqBody != nil {
		jsonBody, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, fullURL.String(), bodyReader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if requireAuth && c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode >= 400 {
		var errResp ErrorResponse
		if err := json.Unmarshal(bodyBytes, &errResp); err != nil || errResp.Message == "" {
			return &APIError{StatusCode: resp.StatusCode, Message: string(bytes.TrimSpace(bodyBytes))}
		}
		return &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
	}

	if respBody != nil {
		if err := json.Unmarshal(bodyBytes, respBody); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}

	return nil
}

// IsAuthenticated returns whether the client has a token
func (c *Client) IsAuthenticated() bool {
	return c.token != ""
}

// GetToken returns the current authentication token
func (c *Client) GetToken() string {
	return c.token
}

// SetToken sets the authentication token (useful for testing or token reuse)
func (c *Client) SetToken(token string) {
	c.token = token
}

// StatusCode returns the HTTP status of an API error, or 0 when err is not one
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}
