// Package server assembles the HTTP surface of the gateway: the interactions
// webhook, health checks, metrics, and the token-protected operator routes.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/ziadkadry99/opbot/internal/audit"
	"github.com/ziadkadry99/opbot/internal/interactions"
	"github.com/ziadkadry99/opbot/internal/logging"
	"github.com/ziadkadry99/opbot/internal/metrics"
	"github.com/ziadkadry99/opbot/internal/monitor"
)

// Config holds server configuration.
type Config struct {
	Port       int
	AllowAll   bool   // allow all CORS origins (dev mode)
	AdminToken string // operator routes are mounted only when set

	// WriteTimeout must exceed the dispatcher's handler timeout, since the
	// webhook request stays open until the command finishes. 0 disables it.
	WriteTimeout time.Duration
}

// Deps are the components the server routes to. Any of them may be nil.
type Deps struct {
	Dispatcher *interactions.Dispatcher
	Metrics    *metrics.Metrics
	Audit      *audit.Store
	Monitor    *monitor.Monitor
	Logger     *zap.Logger
}

// Server is the gateway's HTTP server.
type Server struct {
	cfg    Config
	deps   Deps
	logger *zap.Logger
	router chi.Router

	mu         sync.Mutex
	httpServer *http.Server
}

// New creates a server and builds its router.
func New(cfg Config, deps Deps) *Server {
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		logger: logging.OrNop(deps.Logger),
	}
	s.router = s.buildRouter()
	return s
}

// buildRouter creates and configures the chi router with all routes. There is
// no global timeout middleware: the dispatcher owns its deadlines.
func (s *Server) buildRouter() chi.Router {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(logging.RequestLogger(s.logger))
	r.Use(middleware.Recoverer)
	if s.deps.Metrics != nil {
		r.Use(s.deps.Metrics.InstrumentHandler)
	}

	// CORS
	corsOpts := cors.Options{
		AllowedOrigins:   []string{"http://localhost:*", "http://127.0.0.1:*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}
	if s.cfg.AllowAll {
		corsOpts.AllowedOrigins = []string{"*"}
		corsOpts.AllowCredentials = false
	}
	r.Use(cors.Handler(corsOpts))

	// Health checks
	for _, path := range []string{"/", "/health", "/_health"} {
		r.Get(path, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/plain; charset=utf-8")
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
	}
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	})

	if s.deps.Dispatcher != nil {
		interactions.RegisterRoutes(r, s.deps.Dispatcher)
	}
	if s.deps.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", s.deps.Metrics.Handler())
	}

	if s.cfg.AdminToken == "" {
		if s.deps.Audit != nil || s.deps.Monitor != nil {
			s.logger.Info("server.admin_token not set, operator routes disabled")
		}
		return r
	}

	r.Group(func(r chi.Router) {
		r.Use(RequireToken(s.cfg.AdminToken))
		if s.deps.Audit != nil {
			audit.RegisterRoutes(r, s.deps.Audit)
		}
		if s.deps.Monitor != nil {
			s.deps.Monitor.RegisterRoutes(r)
		}
	})

	return r
}

// RequireToken rejects requests that do not present token, either as a
// bearer Authorization header or as a ?token= query parameter (browsers
// cannot set headers on websocket upgrades).
func RequireToken(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.URL.Query().Get("token")
			if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
				got = strings.TrimPrefix(h, "Bearer ")
			}
			if got == "" || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				w.Header().Set("WWW-Authenticate", `Bearer realm="opbot"`)
				http.Error(w, "unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Router returns the chi router for registering additional routes.
func (s *Server) Router() chi.Router { return s.router }

// ServerConfig returns the server configuration.
func (s *Server) ServerConfig() Config { return s.cfg }

// Start begins listening on the configured port. It returns nil after a
// graceful Shutdown.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", fmt.Sprintf(":%d", s.cfg.Port))
	if err != nil {
		return fmt.Errorf("listening on port %d: %w", s.cfg.Port, err)
	}
	return s.Serve(ln)
}

// Serve accepts connections on ln.
func (s *Server) Serve(ln net.Listener) error {
	srv := &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       120 * time.Second,
		ErrorLog:          zap.NewStdLog(s.logger.Named("http")),
	}
	s.mu.Lock()
	s.httpServer = srv
	s.mu.Unlock()

	s.logger.Info("opbot listening", zap.String("addr", ln.Addr().String()))
	if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight
// interactions to finish or ctx to expire.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.deps.Monitor != nil {
		s.deps.Monitor.Hub().Close()
	}
	s.mu.Lock()
	srv := s.httpServer
	s.mu.Unlock()
	if srv != nil {
		return srv.Shutdown(ctx)
	}
	return nil
}
