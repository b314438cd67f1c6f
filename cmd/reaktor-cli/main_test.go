package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rmacdonaldsmith/reaktor-go/pkg/httpclient"
)

// adminAPI fakes the nukleus admin API and records the last route it was sent
type adminAPI struct {
	server *httptest.Server

	mu     sync.Mutex
	last   httpclient.Route
	tokens []string
}

func (api *adminAPI) lastRoute() httpclient.Route {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.last
}

func (api *adminAPI) lastToken() string {
	api.mu.Lock()
	defer api.mu.Unlock()
	return api.lastToken()
}

func (api *adminAPI) decodeRoute(t *testing.T, r *http.Request) httpclient.Route {
	var rt httpclient.Route
	assert.NoError(t, json.NewDecoder(r.Body).Decode(&rt))
	api.mu.Lock()
	api.last = rt
	api.mu.Unlock()
	return rt
}

func newAdminAPI(t *testing.T) *adminAPI {
	api := &adminAPI{}
	mux := http.NewServeMux()
	reply := func(w http.ResponseWriter, status int, v interface{}) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(v)
	}
	mux.HandleFunc("/api/v1/auth/login", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, httpclient.AuthResponse{
			Token:         "test-token-123",
			ClientID:      "ops",
			IsAdmin:       true,
			Authorization: 0xff,
			ExpiresAt:     time.Now().Add(time.Hour),
		})
	})
	mux.HandleFunc("/api/v1/routes", func(w http.ResponseWriter, r *http.Request) {
		api.mu.Lock()
		api.tokens = append(api.tokens, r.Header.Get("Authorization"))
		api.mu.Unlock()
		if r.Method == http.MethodPost {
			api.decodeRoute(t, r)
			reply(w, http.StatusCreated, httpclient.RouteResponse{CorrelationID: 1, SourceRef: 42})
			return
		}
		reply(w, http.StatusOK, httpclient.RoutesResponse{
			Routes: []httpclient.Route{{Kind: "server", Source: "tcp", SourceRef: 1, Target: "http", TargetRef: 2, Authorization: 0x3}},
			Count:  1,
		})
	})
	mux.HandleFunc("/api/v1/routes/unroute", func(w http.ResponseWriter, r *http.Request) {
		if api.decodeRoute(t, r).SourceRef == 9 {
			reply(w, http.StatusNotFound, httpclient.ErrorResponse{Error: "Not Found", Message: "no matching routes", Code: http.StatusNotFound})
			return
		}
		reply(w, http.StatusOK, httpclient.UnrouteResponse{CorrelationID: 2})
	})
	mux.HandleFunc("/api/v1/resolve", func(w http.ResponseWriter, r *http.Request) {
		var req httpclient.ResolveRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		reply(w, http.StatusOK, httpclient.Route{Kind: "server", Source: req.Source, SourceRef: req.SourceRef, Target: "http", TargetRef: 2})
	})
	mux.HandleFunc("/api/v1/sources", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, httpclient.SourcesResponse{Sources: []string{"http", "tcp"}})
	})
	mux.HandleFunc("/api/v1/health", func(w http.ResponseWriter, r *http.Request) {
		reply(w, http.StatusOK, httpclient.HealthResponse{Healthy: true, Nukleus: "tcp", InstanceID: "abc", Routes: 1, Sources: []string{"http"}})
	})
	api.server = httptest.NewServer(mux)
	t.Cleanup(api.server.Close)
	return api
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	client = nil

	cmd := newRootCommand()
	output := &bytes.Buffer{}
	cmd.SetOut(output)
	cmd.SetErr(output)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return output.String(), err
}

func TestRootCommandHelp(t *testing.T) {
	output, err := execute(t, "--help")
	require.NoError(t, err)

	for _, name := range []string{"auth", "routes", "resolve", "sources", "health"} {
		assert.Contains(t, output, name)
	}
}

func TestAuth(t *testing.T) {
	api := newAdminAPI(t)

	t.Run("prints token", func(t *testing.T) {
		output, err := execute(t, "--server", api.server.URL, "--client-id", "ops", "auth")
		require.NoError(t, err)
		assert.Contains(t, output, "Authenticated as ops (admin: true, authorization: 0xff)")
		assert.Contains(t, output, `export REAKTOR_TOKEN="test-token-123"`)
	})

	t.Run("requires client id", func(t *testing.T) {
		_, err := execute(t, "--server", api.server.URL, "--client-id", "", "auth")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "client-id is required")
	})
}

func TestRoutes(t *testing.T) {
	api := newAdminAPI(t)

	t.Run("list with token", func(t *testing.T) {
		output, err := execute(t, "--server", api.server.URL, "--token", "given", "routes", "list")
		require.NoError(t, err)
		assert.Contains(t, output, "KIND")
		assert.Contains(t, output, "tcp")
		assert.Contains(t, output, "0x3")
		assert.Equal(t, "Bearer given", api.lastToken())
	})

	t.Run("list logs in with client id", func(t *testing.T) {
		_, err := execute(t, "--server", api.server.URL, "--token", "", "--client-id", "ops", "routes", "list")
		require.NoError(t, err)
		assert.Equal(t, "Bearer test-token-123", api.lastToken())
	})

	t.Run("list without credentials", func(t *testing.T) {
		_, err := execute(t, "--server", api.server.URL, "--token", "", "--client-id", "", "routes", "list")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "not authenticated")
	})

	t.Run("add", func(t *testing.T) {
		output, err := execute(t, "--server", api.server.URL, "--token", "given",
			"routes", "add", "--kind", "proxy", "--source", "tcp", "--target", "http",
			"--target-ref", "7", "--authorization", "0x3", "--extension", "AQI=")
		require.NoError(t, err)
		assert.Contains(t, output, "Routed tcp -> http (sourceRef 42)")

		assert.Equal(t, httpclient.Route{
			Kind:          "proxy",
			Source:        "tcp",
			Target:        "http",
			TargetRef:     7,
			Authorization: 0x3,
			Extension:     []byte{1, 2},
		}, api.lastRoute())
	})

	t.Run("add rejects bad authorization", func(t *testing.T) {
		_, err := execute(t, "--server", api.server.URL, "--token", "given",
			"routes", "add", "--source", "tcp", "--target", "http", "--authorization", "lots")
		require.Error(t, err)
		assert.Contains(t, err.Error(), "invalid --authorization")
	})

	t.Run("add requires source", func(t *testing.T) {
		_, err := execute(t, "--server", api.server.URL, "--token", "given", "routes", "add", "--target", "http")
		require.Error(t, err)
	})

	t.Run("remove", func(t *testing.T) {
		output, err := execute(t, "--server", api.server.URL, "--token", "given",
			"routes", "remove", "--source-ref", "1", "--target-ref", "2")
		require.NoError(t, err)
		assert.Contains(t, output, "Unrouted")
		assert.Equal(t, int64(1), api.lastRoute().SourceRef)
		assert.Empty(t, api.lastRoute().Source)
	})

	t.Run("remove unmatched", func(t *testing.T) {
		_, err := execute(t, "--server", api.server.URL, "--token", "given", "routes", "remove", "--source-ref", "9")
		require.Error(t, err)
		assert.Equal(t, http.StatusNotFound, httpclient.StatusCode(err))
	})
}

func TestResolveSourcesHealth(t *testing.T) {
	api := newAdminAPI(t)

	output, err := execute(t, "--server", api.server.URL, "--token", "given", "resolve", "--source", "tcp", "--source-ref", "5")
	require.NoError(t, err)
	assert.Contains(t, output, "http")
	assert.Contains(t, output, "5")

	output, err = execute(t, "--server", api.server.URL, "--token", "given", "sources")
	require.NoError(t, err)
	assert.Equal(t, "http\ntcp\n", output)

	output, err = execute(t, "--server", api.server.URL, "health")
	require.NoError(t, err)
	assert.Contains(t, output, "Nukleus tcp is healthy")
	assert.Contains(t, output, "Routes: 1")
}

func TestRouteFlags(t *testing.T) {
	flags := routeFlags{kind: "client", source: "a", target: "b", authorization: "0b101"}
	rt, err := flags.route()
	require.NoError(t, err)
	assert.Equal(t, uint64(5), rt.Authorization)
	assert.Nil(t, rt.Extension)

	flags.extension = "not base64!"
	_, err = flags.route()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid --extension")
}
