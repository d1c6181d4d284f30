// Package httpapi is the HTTP facade in front of the kelly allocation core:
// it validates and decodes requests, invokes the orchestration layer, and
// persists/streams the result.
package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/aristath/kellyfolio/internal/archive"
	"github.com/aristath/kellyfolio/internal/events"
	"github.com/aristath/kellyfolio/internal/health"
	"github.com/aristath/kellyfolio/internal/history"
	"github.com/aristath/kellyfolio/internal/kelly"
)

// Server wires the kelly orchestration layer to chi routes.
type Server struct {
	log        zerolog.Logger
	store      *history.Store
	bus        *events.Bus
	archiver   *archive.Uploader // nil disables archival
	solverCfg  kelly.SolverConfig
	healthInfo *health.Reporter
	devMode    bool
}

// Config bundles the Server's dependencies.
type Config struct {
	Log        zerolog.Logger
	Store      *history.Store
	Bus        *events.Bus
	Archiver   *archive.Uploader
	SolverCfg  kelly.SolverConfig
	HealthInfo *health.Reporter
	DevMode    bool
}

// New builds a Server ready to be mounted with Router().
func New(cfg Config) *Server {
	return &Server{
		log:        cfg.Log,
		store:      cfg.Store,
		bus:        cfg.Bus,
		archiver:   cfg.Archiver,
		solverCfg:  cfg.SolverCfg,
		healthInfo: cfg.HealthInfo,
		devMode:    cfg.DevMode,
	}
}

// Router builds the chi router: request-ID middleware, CORS, and the
// allocate/analyze/runs/healthz routes.
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(s.requestIDMiddleware)
	r.Use(s.loggingMiddleware)
	r.Use(middleware.Recoverer)

	corsOptions := cors.Options{
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Content-Type", "X-Request-ID"},
		AllowCredentials: false,
		MaxAge:           300,
	}
	if s.devMode {
		corsOptions.AllowedOrigins = []string{"*"}
	} else {
		corsOptions.AllowedOrigins = []string{"https://*"}
	}
	r.Use(cors.Handler(corsOptions))

	// Bounded requests get a 60s timeout; the run stream is intentionally
	// exempt since it stays open for the lifetime of a client's interest in
	// a run, not one request/response cycle.
	r.Group(func(r chi.Router) {
		r.Use(middleware.Timeout(60 * time.Second))
		r.Post("/allocate", s.handleAllocate)
		r.Post("/analyze", s.handleAnalyze)
		r.Get("/runs/{id}", s.handleGetRun)
		r.Get("/healthz", s.handleHealthz)
	})
	r.Get("/runs/{id}/stream", s.handleStreamRun)

	return r
}

func (s *Server) requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := uuid.NewString()
		w.Header().Set("X-Request-ID", id)
		ctx := r.Context()
		next.ServeHTTP(w, r.WithContext(withRequestID(ctx, id)))
	})
}

func (s *Server) loggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		sub := s.log.With().Str("request_id", requestIDFrom(r.Context())).Logger()
		next.ServeHTTP(w, r.WithContext(sub.WithContext(r.Context())))
		sub.Info().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Dur("duration", time.Since(start)).
			Msg("request handled")
	})
}
