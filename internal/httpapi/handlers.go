package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/rmacdonaldsmith/reaktor-go/internal/reaktor"
	"github.com/rmacdonaldsmith/reaktor-go/internal/router"
	"github.com/rmacdonaldsmith/reaktor-go/pkg/route"
)

// Handlers contains all HTTP request handlers
type Handlers struct {
	nukleus *reaktor.Nukleus
	jwtAuth *JWTAuth
}

// NewHandlers creates a new handlers instance
func NewHandlers(n *reaktor.Nukleus, jwtAuth *JWTAuth) *Handlers {
	return &Handlers{
		nukleus: n,
		jwtAuth: jwtAuth,
	}
}

// Auth endpoints

// Login handles POST /api/v1/auth/login
func (h *Handlers) Login(w http.ResponseWriter, r *http.Request) {
	var req AuthRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.ClientID == "" {
		writeError(w, "clientId is required", http.StatusBadRequest)
		return
	}

	config := h.nukleus.Context().Config()
	isAdmin := config.IsAdmin(req.ClientID)
	authorization := config.Authorization(req.ClientID)

	token, expiresAt, err := h.jwtAuth.GenerateToken(req.ClientID, isAdmin, authorization)
	if err != nil {
		writeError(w, "Failed to generate token", http.StatusInternalServerError)
		return
	}

	writeJSON(w, AuthResponse{
		Token:         token,
		ClientID:      req.ClientID,
		IsAdmin:       isAdmin,
		Authorization: authorization,
		ExpiresAt:     expiresAt,
	}, http.StatusOK)
}

// Route endpoints

// ListRoutes handles GET /api/v1/routes
func (h *Handlers) ListRoutes(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, routesResponse(h.nukleus.Acceptor().Routes(), nil), http.StatusOK)
}

// ListSourceRoutes handles GET /api/v1/sources/{source}/routes
func (h *Handlers) ListSourceRoutes(w http.ResponseWriter, r *http.Request) {
	source := mux.Vars(r)["source"]
	match := router.SourceMatches(source)
	writeJSON(w, routesResponse(h.nukleus.Acceptor().Routes(), match), http.StatusOK)
}

// AddRoute handles POST /api/v1/routes
func (h *Handlers) AddRoute(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.readRoute(w, r)
	if !ok {
		return
	}
	if rec.Source == "" || rec.Target == "" {
		writeError(w, "source and target are required", http.StatusBadRequest)
		return
	}

	reply, err := h.nukleus.Route(rec)
	if err != nil {
		writeError(w, fmt.Sprintf("Failed to route: %v", err), http.StatusInternalServerError)
		return
	}
	if !reply.OK() {
		writeError(w, "Route refused", http.StatusConflict)
		return
	}

	writeJSON(w, RouteResponse{
		CorrelationID: reply.CorrelationID,
		SourceRef:     reply.SourceRef,
	}, http.StatusCreated)
}

// Unroute handles POST /api/v1/routes/unroute
func (h *Handlers) Unroute(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.readRoute(w, r)
	if !ok {
		return
	}

	reply, err := h.nukleus.Unroute(rec)
	if err != nil {
		writeError(w, fmt.Sprintf("Failed to unroute: %v", err), http.StatusInternalServerError)
		return
	}
	if !reply.OK() {
		writeError(w, "No matching routes", http.StatusNotFound)
		return
	}

	writeJSON(w, UnrouteResponse{CorrelationID: reply.CorrelationID}, http.StatusOK)
}

// Resolve handles POST /api/v1/resolve using the caller's authorization
func (h *Handlers) Resolve(w http.ResponseWriter, r *http.Request) {
	claims := GetClaims(r)
	if claims == nil {
		writeError(w, "Authentication required", http.StatusUnauthorized)
		return
	}

	var req ResolveRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	}
	if req.Source == "" {
		writeError(w, "source is required", http.StatusBadRequest)
		return
	}

	rec, ok := h.nukleus.Acceptor().Resolve(claims.Authorization, router.EndpointFilter(req.Source, req.SourceRef))
	if !ok {
		writeError(w, "No route", http.StatusNotFound)
		return
	}
	writeJSON(w, routeInfo(rec), http.StatusOK)
}

// ListSources handles GET /api/v1/sources
func (h *Handlers) ListSources(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, SourcesResponse{Sources: h.nukleus.Acceptor().Sources()}, http.StatusOK)
}

// Health handles GET /api/v1/health
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	ctx := h.nukleus.Context()
	writeJSON(w, HealthResponse{
		Healthy:    true,
		Nukleus:    h.nukleus.Name(),
		InstanceID: ctx.InstanceID().String(),
		Routes:     len(h.nukleus.Acceptor().Routes()),
		Sources:    h.nukleus.Acceptor().Sources(),
		Message:    "nukleus is running",
	}, http.StatusOK)
}

// Helper functions

func (h *Handlers) readRoute(w http.ResponseWriter, r *http.Request) (route.Record, bool) {
	var req RouteRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return route.Record{}, false
	}

	rec, err := req.record()
	if err != nil {
		writeError(w, err.Error(), http.StatusBadRequest)
		return route.Record{}, false
	}
	return rec, true
}

func (req RouteRequest) record() (route.Record, error) {
	kind, err := route.ParseKind(req.Kind)
	if err != nil {
		return route.Record{}, err
	}
	if len(req.Source) > route.MaxNameLength || len(req.Target) > route.MaxNameLength {
		return route.Record{}, route.ErrNameTooLong
	}
	return route.Record{
		Kind:          kind,
		Source:        req.Source,
		SourceRef:     req.SourceRef,
		Target:        req.Target,
		TargetRef:     req.TargetRef,
		Authorization: req.Authorization,
		Extension:     req.Extension,
	}, nil
}

func routeInfo(rec route.Record) RouteInfo {
	return RouteInfo{
		Kind:          rec.Kind.String(),
		Source:        rec.Source,
		SourceRef:     rec.SourceRef,
		Target:        rec.Target,
		TargetRef:     rec.TargetRef,
		Authorization: rec.Authorization,
		Extension:     rec.Extension,
	}
}

func routesResponse(routes []route.Record, match router.Matcher) RoutesResponse {
	resp := RoutesResponse{Routes: []RouteInfo{}}
	for i := range routes {
		if match != nil && !match(&routes[i]) {
			continue
		}
		resp.Routes = append(resp.Routes, routeInfo(routes[i]))
	}
	resp.Count = len(resp.Routes)
	return resp
}

// decodeJSON validates the content type and decodes the request body
func decodeJSON(r *http.Request, v interface{}) error {
	contentType := r.Header.Get("Content-Type")
	if !strings.HasPrefix(contentType, "application/json") {
		return errors.New("Content-Type must be application/json")
	}

	decoder := json.NewDecoder(r.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(v); err != nil {
		return errors.New("Invalid request body")
	}
	return nil
}
