// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 GridQuest Contributors

// Package web serves the player-facing JSON API and realtime websocket.
package web

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/gridquest/gridquest/internal/action"
	"github.com/gridquest/gridquest/internal/auth"
	"github.com/gridquest/gridquest/internal/game"
	"github.com/gridquest/gridquest/internal/observability"
	"github.com/gridquest/gridquest/internal/realtime"
	"github.com/gridquest/gridquest/internal/world"
)

// Authenticator is the account and session API the server needs.
type Authenticator interface {
	Signup(ctx context.Context, req auth.SignupRequest) (*auth.Session, string, error)
	Login(ctx context.Context, username, password string) (*auth.Session, string, error)
	Authenticate(ctx context.Context, token string) (*auth.Session, error)
	Logout(ctx context.Context, sessionID ulid.ULID) error
}

// Game runs actions and reads character state.
type Game interface {
	Perform(ctx context.Context, accountID ulid.ULID, req action.Request) (*game.Result, error)
	Snapshot(ctx context.Context, accountID ulid.ULID) (*game.Snapshot, error)
	Logs(ctx context.Context, accountID ulid.ULID, limit int) ([]*world.LogEntry, error)
}

// Subscriber opens realtime subscriptions.
type Subscriber interface {
	Subscribe(accountID ulid.ULID) *realtime.Subscription
}

// Config holds the server's settings.
type Config struct {
	Addr          string
	AllowedOrigin string
	SessionTTL    time.Duration
}

// Server is the player-facing HTTP server.
type Server struct {
	cfg      Config
	auth     Authenticator
	game     Game
	hub      Subscriber
	limiter  *RateLimiter
	metrics  *observability.Metrics
	logger   *slog.Logger
	upgrader websocket.Upgrader

	listener   net.Listener
	httpServer *http.Server
	running    atomic.Bool
}

// Option configures a Server.
type Option func(*Server)

// WithRateLimiter throttles signup, login and actions per client.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(s *Server) { s.limiter = rl }
}

// WithMetrics records request and connection metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(s *Server) { s.metrics = m }
}

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// NewServer creates the server.
func NewServer(cfg Config, authn Authenticator, g Game, hub Subscriber, opts ...Option) (*Server, error) {
	if authn == nil || g == nil || hub == nil {
		return nil, oops.Code("WEB_INVALID_SERVER").Errorf("auth, game and hub are required")
	}
	if cfg.SessionTTL <= 0 {
		cfg.SessionTTL = auth.DefaultSessionTTL
	}
	s := &Server{
		cfg:    cfg,
		auth:   authn,
		game:   g,
		hub:    hub,
		logger: slog.Default(),
	}
	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  4 * 1024,
		WriteBufferSize: 4 * 1024,
		CheckOrigin:     s.checkOrigin,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.Handle("POST /api/signup", s.rateLimited(http.HandlerFunc(s.handleSignup)))
	mux.Handle("POST /api/login", s.rateLimited(http.HandlerFunc(s.handleLogin)))
	mux.Handle("POST /api/logout", s.authenticated(s.handleLogout))
	mux.Handle("GET /api/character", s.authenticated(s.handleCharacter))
	mux.Handle("GET /api/location", s.authenticated(s.handleLocation))
	mux.Handle("GET /api/actions", s.authenticated(s.handleActions))
	mux.Handle("GET /api/logs", s.authenticated(s.handleLogs))
	mux.Handle("POST /api/action", s.rateLimited(s.authenticated(s.handleAction)))
	mux.Handle("GET /ws", s.authenticated(s.handleWebSocket))

	return s.instrument(s.cors(mux))
}

// Start listens on the configured address and serves in the background.
// The returned channel reports serve errors and is closed on shutdown.
func (s *Server) Start() (<-chan error, error) {
	if !s.running.CompareAndSwap(false, true) {
		return nil, oops.Code("WEB_RUNNING").Errorf("web server already running")
	}

	listener, err := net.Listen("tcp", s.cfg.Addr)
	if err != nil {
		s.running.Store(false)
		return nil, oops.Code("WEB_LISTEN_FAILED").With("addr", s.cfg.Addr).Wrap(err)
	}
	s.listener = listener

	httpSrv := &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.httpServer = httpSrv

	errCh := make(chan error, 1)
	go func() {
		defer close(errCh)
		if serveErr := httpSrv.Serve(listener); serveErr != nil && !errors.Is(serveErr, http.ErrServerClosed) {
			s.logger.Error("web server error", "error", serveErr)
			errCh <- serveErr
		}
	}()

	s.logger.Info("web server started", "addr", listener.Addr().String())
	return errCh, nil
}

// Stop gracefully shuts the server down. Open websockets are not tracked by
// http.Server and close when their clients go away or the process exits.
func (s *Server) Stop(ctx context.Context) error {
	if !s.running.CompareAndSwap(true, false) {
		return nil
	}
	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.running.Store(true)
			return oops.With("operation", "shutdown_web_server").Wrap(err)
		}
	}
	s.logger.Info("web server stopped")
	return nil
}

// Addr returns the listening address, or "" when not running.
func (s *Server) Addr() string {
	if s.listener != nil {
		return s.listener.Addr().String()
	}
	return ""
}

func (s *Server) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" || origin == s.cfg.AllowedOrigin {
		return true
	}
	// Same-origin pages served by a reverse proxy.
	return origin == "http://"+r.Host || origin == "https://"+r.Host
}
