// Package httpapi serves the health and metrics endpoints.
package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"chombot/internal/runtime/supervisor"
	"chombot/pkg/logx"
)

const DefaultAddr = "127.0.0.1:9464"

// HealthFunc reports the supervisor state for /healthz.
type HealthFunc func() supervisor.Snapshot

type Health struct {
	Status     string              `json:"status"`
	Uptime     string              `json:"uptime"`
	Supervisor supervisor.Snapshot `json:"supervisor"`
}

type RouterOption func(*routerOptions)

type routerOptions struct {
	profiler bool
}

// WithProfiler mounts net/http/pprof under /debug.
func WithProfiler() RouterOption { return func(o *routerOptions) { o.profiler = true } }

// NewRouter builds the route table. metrics may be nil.
func NewRouter(health HealthFunc, metrics http.Handler, started time.Time, opts ...RouterOption) http.Handler {
	var o routerOptions
	for _, fn := range opts {
		fn(&o)
	}
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(10 * time.Second))

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		h := Health{Status: "ok", Uptime: time.Since(started).Truncate(time.Second).String()}
		if health != nil {
			h.Supervisor = health()
		}
		code := http.StatusOK
		if h.Supervisor.FirstError != "" {
			h.Status = "degraded"
			code = http.StatusServiceUnavailable
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(code)
		_ = json.NewEncoder(w).Encode(h)
	})
	if metrics != nil {
		r.Method(http.MethodGet, "/metrics", metrics)
	}
	if o.profiler {
		r.Mount("/debug", middleware.Profiler())
	}
	return r
}

// Server owns the listener lifecycle.
type Server struct {
	log logx.Logger

	mu  sync.Mutex
	srv *http.Server
	ln  net.Listener
}

func NewServer(log logx.Logger) *Server {
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Server{log: log.With(logx.String("comp", "http"))}
}

// Start listens on addr (DefaultAddr when empty) and serves h in the
// background.
func (s *Server) Start(addr string, h http.Handler) error {
	if addr == "" {
		addr = DefaultAddr
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.srv != nil {
		return errors.New("http server already running")
	}
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	srv := &http.Server{
		Handler:           h,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.srv, s.ln = srv, ln
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.Error("http serve failed", logx.Err(err))
		}
	}()
	s.log.Info("http listening", logx.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound address, or "" when stopped.
func (s *Server) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ln == nil {
		return ""
	}
	return s.ln.Addr().String()
}

func (s *Server) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.srv
	s.srv, s.ln = nil, nil
	s.mu.Unlock()
	if srv == nil {
		return nil
	}
	if err := srv.Shutdown(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		_ = srv.Close()
		return err
	}
	s.log.Info("http stopped")
	return nil
}
