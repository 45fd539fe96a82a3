// Package server exposes the HTTP surface: ingest, health, and task listing.
package server

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/alexanderramin/hashi/internal/audit"
	"github.com/alexanderramin/hashi/internal/clarify"
	"github.com/alexanderramin/hashi/internal/dedup"
	"github.com/alexanderramin/hashi/internal/dispatch"
)

// Server wires the clarification engine, dispatcher, and dedup store behind
// the HTTP handlers.
type Server struct {
	log        *zap.Logger
	apiKey     string
	engine     *clarify.Engine
	dispatcher dispatch.Dispatcher // nil when the sink URL is not configured
	dedup      *dedup.Store
	journal    audit.Recorder
}

// New creates a Server. dispatcher may be nil when the sink URL is absent;
// the ingest path then fails with a configuration error at point of use.
func New(log *zap.Logger, apiKey string, engine *clarify.Engine, dispatcher dispatch.Dispatcher, dedupStore *dedup.Store, journal audit.Recorder) *Server {
	if journal == nil {
		journal = audit.NoopRecorder{}
	}
	return &Server{
		log:        log,
		apiKey:     apiKey,
		engine:     engine,
		dispatcher: dispatcher,
		dedup:      dedupStore,
		journal:    journal,
	}
}

// Router builds the chi router with all routes and middleware attached.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(s.requestLogger)

	r.Get("/", s.handleHealth)
	r.Group(func(r chi.Router) {
		r.Use(s.requireAPIKey)
		r.Post("/ingest", s.handleIngest)
		r.Get("/tasks", s.handleListTasks)
	})

	return r
}

// requestLogger tags every request with a uuid and logs method, path, and
// remote address.
func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s.log.Info("request",
			zap.String("request_id", uuid.NewString()),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("remote", r.RemoteAddr),
		)
		next.ServeHTTP(w, r)
	})
}

// requireAPIKey checks the inbound shared credential. Matches the sink-side
// convention: header value must equal the configured key exactly.
func (s *Server) requireAPIKey(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-API-Key") != s.apiKey {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// errorResponse is the payload shape for every failure outcome.
type errorResponse struct {
	OK    bool   `json:"ok"`
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, detail string) {
	writeJSON(w, status, errorResponse{OK: false, Error: detail})
}
