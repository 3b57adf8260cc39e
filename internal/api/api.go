// Package api provides HTTP handlers and the main API server logic for CallBook.
//
// It exposes the booking session state machine as RESTful endpoints so any
// front-end can drive date/time selection, confirmation, and the submit,
// cancel, and unsubscribe actions.
package api

import (
	"context"
	"log/slog"
	"net/http"

	"callbook/internal/booking"
	"callbook/internal/client"
	"callbook/internal/scheduler"
)

// DefaultAddr is the address the API server listens on when none is configured.
const DefaultAddr = ":8080"

// reapSchedule is the cron expression for the idle-session reaper.
const reapSchedule = "*/5 * * * *"

// Opts holds configuration options for the API server.
type Opts struct {
	Addr string
}

// Option defines a configuration option for the API server.
type Option func(*Opts)

// WithAddr sets the listen address.
func WithAddr(addr string) Option {
	return func(o *Opts) { o.Addr = addr }
}

// Server wires the booking manager, backend client, and scheduler behind the
// HTTP surface.
type Server struct {
	addr    string
	manager *booking.Manager
	backend *client.Client
	sched   *scheduler.Scheduler
}

// NewServer creates an API server.
func NewServer(manager *booking.Manager, backend *client.Client, sched *scheduler.Scheduler, opts ...Option) *Server {
	var cfg Opts
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Addr == "" {
		cfg.Addr = DefaultAddr
	}
	return &Server{addr: cfg.Addr, manager: manager, backend: backend, sched: sched}
}

// Routes builds the HTTP mux.
func (s *Server) Routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/sessions", s.createSessionHandler)
	mux.HandleFunc("/sessions/", s.sessionHandler)
	mux.HandleFunc("/health", s.healthHandler)
	return mux
}

// Run performs the startup login, schedules maintenance, and serves HTTP
// until the listener fails.
func (s *Server) Run(ctx context.Context) error {
	// Login failures at startup are non-fatal: the UI degrades to failing
	// backend calls rather than refusing to start.
	if err := s.backend.Init(ctx); err != nil {
		slog.Warn("Server.Run: startup login failed", "error", err)
	}

	if s.sched != nil {
		if err := s.sched.AddJob(reapSchedule, func() { s.manager.ExpireIdle() }); err != nil {
			slog.Error("Server.Run: failed to schedule session reaper", "error", err)
			return err
		}
	}

	slog.Info("CallBook API running", "addr", s.addr)
	return http.ListenAndServe(s.addr, s.Routes())
}
