package httpapi

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/rmacdonaldsmith/reaktor-go/internal/reaktor"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/nukleus"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/route"
)

// testSecret is long enough to pass config validation
var testSecret = strings.Repeat("s", 32)

// TestServerSetup holds common test dependencies
type TestServerSetup struct {
	Nukleus *reaktor.Nukleus
	Server  *Server
	Auth    *JWTAuth
}

// NewTestServerSetup builds a nukleus serving server routes and an admin API in front of it
func NewTestServerSetup(t *testing.T) *TestServerSetup {
	t.Helper()

	config := &reaktor.Config{
		Directory:     t.TempDir(),
		WatchInterval: time.Hour,
		AdminAddress:  "127.0.0.1:0",
		SecretKey:     testSecret,
		Admins:        []string{"ops"},
		Grants:        map[string]uint64{"ops": 0xff, "app": 0x1},
	}

	builder := reaktor.NewBuilder(config, "tcp")
	err := builder.StreamFactory(route.Server, nukleus.StreamFactoryBuilderFunc(
		func(nukleus.RouteManager) (nukleus.StreamFactory, error) {
			return nukleus.StreamFactoryFunc(func(route.Record, int32, []byte, nukleus.MessageConsumer) nukleus.MessageConsumer {
				return nil
			}), nil
		}))
	if err != nil {
		t.Fatalf("Failed to register stream factory: %v", err)
	}

	n, err := builder.Build()
	if err != nil {
		t.Fatalf("Failed to build nukleus: %v", err)
	}
	t.Cleanup(func() { _ = n.Close() })

	server := NewServer(n, Config{SecretKey: testSecret})

	return &TestServerSetup{
		Nukleus: n,
		Server:  server,
		Auth:    server.jwtAuth,
	}
}

// GenerateTestToken creates a JWT token for testing
func (setup *TestServerSetup) GenerateTestToken(t *testing.T, clientID string, isAdmin bool, authorization uint64) string {
	t.Helper()

	token, _, err := setup.Auth.GenerateToken(clientID, isAdmin, authorization)
	if err != nil {
		t.Fatalf("Failed to generate test token: %v", err)
	}
	return token
}

// Do sends a request through the server's handler and returns the recorded response
func (setup *TestServerSetup) Do(t *testing.T, method, path, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var payload bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&payload).Encode(body); err != nil {
			t.Fatalf("Failed to encode request body: %v", err)
		}
	}

	req := httptest.NewRequest(method, path, &payload)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	setup.Server.Handler().ServeHTTP(rec, req)
	return rec
}

// DecodeResponse decodes a JSON response body into v
func DecodeResponse(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rec.Body.String(), err)
	}
}
