package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/yangwenmai/kirbuk/internal/model"
	"github.com/yangwenmai/kirbuk/internal/store"
)

// maxRequestBody is the maximum allowed request body size (1 MB).
const maxRequestBody int64 = 1 << 20

// DefaultLinkTTL is how long status-page download links stay valid.
const DefaultLinkTTL = time.Hour

// Submitter accepts a submission for asynchronous processing.
type Submitter interface {
	Submit(ctx context.Context, sub model.Submission) error
}

// ArtifactReader serves objects behind signed links.
type ArtifactReader interface {
	GetWithType(ctx context.Context, key string) ([]byte, string, error)
}

// Server holds the HTTP handlers and dependencies.
type Server struct {
	submitter  Submitter
	store      store.ObjectStore
	layout     model.Layout
	linkTTL    time.Duration
	corsOrigin string

	artifacts ArtifactReader
	signer    *store.Signer

	router chi.Router
}

// Option configures a Server.
type Option func(*Server)

// WithLayout sets the artifact key layout.
func WithLayout(l model.Layout) Option {
	return func(s *Server) { s.layout = l }
}

// WithLinkTTL overrides DefaultLinkTTL.
func WithLinkTTL(d time.Duration) Option {
	return func(s *Server) {
		if d > 0 {
			s.linkTTL = d
		}
	}
}

// WithCORSOrigin sets the allowed CORS origin. Defaults to "*".
func WithCORSOrigin(origin string) Option {
	return func(s *Server) {
		if origin != "" {
			s.corsOrigin = origin
		}
	}
}

// WithArtifacts enables the signed download route. It is needed when the
// store has no download URLs of its own.
func WithArtifacts(r ArtifactReader, signer *store.Signer) Option {
	return func(s *Server) {
		s.artifacts = r
		s.signer = signer
	}
}

// New creates a new API server.
func New(sub Submitter, st store.ObjectStore, opts ...Option) *Server {
	srv := &Server{
		submitter:  sub,
		store:      st,
		layout:     model.NewLayout(""),
		linkTTL:    DefaultLinkTTL,
		corsOrigin: "*",
	}
	for _, opt := range opts {
		opt(srv)
	}
	srv.routes()
	return srv
}

// Handler returns the root http.Handler with middleware applied.
func (s *Server) Handler() http.Handler {
	return s.router
}

func (s *Server) routes() {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(corsMiddleware(s.corsOrigin))
	r.Use(limitBody)

	r.Get("/", s.handleForm)
	r.Get("/submission/{id}", s.handleStatusPage)
	r.Get(store.ArtifactRoute+"*", s.handleArtifact)

	r.Group(func(r chi.Router) {
		r.Use(jsonContent)
		r.Post("/submit", s.handleSubmit)
		r.Get("/api/status/{id}", s.handleStatus)
		r.Get("/healthz", s.handleHealth)
	})
	s.router = r
}

// ---------------------------------------------------------------------------
// Middleware
// ---------------------------------------------------------------------------

// corsMiddleware sets CORS headers for origin.
func corsMiddleware(origin string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Access-Control-Allow-Origin", origin)
			w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
			w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// limitBody restricts the request body to maxRequestBody bytes.
func limitBody(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxRequestBody)
		next.ServeHTTP(w, r)
	})
}

func jsonContent(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		next.ServeHTTP(w, r)
	})
}

// ---------------------------------------------------------------------------
// Response helpers
// ---------------------------------------------------------------------------

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
