// ABOUTME: Server orchestrator that wires stores, sessions, auth and the web app behind one HTTP server
// ABOUTME: Manages listeners (TCP or Tailscale), health endpoints, the session janitor and graceful shutdown

package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/redis/go-redis/v9"
	"tailscale.com/ipn/ipnstate"
	"tailscale.com/tsnet"

	"github.com/2389/pokercircle/internal/auth"
	"github.com/2389/pokercircle/internal/config"
	"github.com/2389/pokercircle/internal/session"
	"github.com/2389/pokercircle/internal/store"
	"github.com/2389/pokercircle/internal/webapp"
)

// Server runs the pokercircle web application.
type Server struct {
	config      *config.Config
	store       store.Store
	manager     *session.Manager
	limiter     *auth.LoginLimiter
	app         *webapp.App
	metrics     *webapp.Metrics
	handler     http.Handler
	httpServer  *http.Server
	tsnetServer *tsnet.Server
	logger      *slog.Logger

	// redisSessions is set when sessions live in Redis and must be closed separately
	redisSessions *store.RedisSessionStore
}

// OpenStore opens the SQLite database named in cfg.
func OpenStore(cfg *config.Config) (*store.SQLiteStore, error) {
	s, err := store.NewSQLiteStore(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("initializing store: %w", err)
	}
	return s, nil
}

// NewGate builds the authentication gate configured by cfg.
func NewGate(cfg *config.Config, members store.MemberStore) *auth.Gate {
	return auth.NewGate(members, auth.GateConfig{
		MinPasswordLength: cfg.Auth.MinPasswordLength,
		Limiter:           auth.NewLoginLimiter(cfg.Auth.LoginBurst, cfg.Auth.LoginRefill),
	})
}

// initSessionStore returns the session backend selected by cfg.
func initSessionStore(cfg *config.Config, sqlStore *store.SQLiteStore) (store.SessionStore, *store.RedisSessionStore) {
	if cfg.Session.Backend != config.BackendRedis {
		return sqlStore, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	rs := store.NewRedisSessionStore(client, cfg.Redis.Prefix)
	return rs, rs
}

// New creates a server from configuration. The database is opened and
// migrated; listeners are not created until Run.
func New(cfg *config.Config, logger *slog.Logger) (*Server, error) {
	sqlStore, err := OpenStore(cfg)
	if err != nil {
		return nil, err
	}

	signer, err := session.NewTokenSigner([]byte(cfg.Session.Secret))
	if err != nil {
		_ = sqlStore.Close()
		return nil, fmt.Errorf("creating session signer: %w", err)
	}

	sessionStore, redisSessions := initSessionStore(cfg, sqlStore)
	manager := session.NewManager(sessionStore, signer, session.Config{
		CookieName:    cfg.Session.CookieName,
		Duration:      cfg.Session.Duration,
		RotateOnAuth:  cfg.Session.Rotate(),
		SecureCookies: cfg.Session.SecureCookies,
	})

	gate := NewGate(cfg, sqlStore)

	var metrics *webapp.Metrics
	if cfg.Metrics.Enabled {
		metrics = webapp.NewMetrics()
	}

	app, err := webapp.New(sqlStore, manager, gate, webapp.Config{
		Location:      cfg.Location(),
		Metrics:       metrics,
		SecureCookies: cfg.Session.SecureCookies,
	})
	if err != nil {
		_ = sqlStore.Close()
		if redisSessions != nil {
			_ = redisSessions.Close()
		}
		return nil, fmt.Errorf("creating web app: %w", err)
	}

	s := &Server{
		config:        cfg,
		store:         sqlStore,
		manager:       manager,
		limiter:       gate.Limiter(),
		app:           app,
		metrics:       metrics,
		logger:        logger,
		redisSessions: redisSessions,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /health", s.handleHealth)
	mux.HandleFunc("GET /health/ready", s.handleReady)
	if metrics != nil {
		mux.Handle("GET "+cfg.Metrics.Path, metrics.Handler())
		logger.Info("metrics endpoint enabled", "path", cfg.Metrics.Path)
	}
	mux.Handle("/", app.Handler())
	s.handler = mux

	s.httpServer = &http.Server{
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	logger.Info("server initialized",
		"session_backend", cfg.Session.Backend,
		"rotate_on_auth", cfg.Session.Rotate(),
	)
	return s, nil
}

// Handler returns the root HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.handler
}

// Run starts the HTTP server and the session janitor, and blocks until ctx is
// canceled or the server fails. Returns nil on graceful shutdown.
func (s *Server) Run(ctx context.Context) error {
	ln, err := s.setupListener(ctx)
	if err != nil {
		return err
	}

	janitorCtx, stopJanitor := context.WithCancel(ctx)
	janitorDone := make(chan struct{})
	go func() {
		defer close(janitorDone)
		s.runJanitor(janitorCtx)
	}()

	errCh := s.startServer(ln)
	serverErr := s.waitForShutdownSignal(ctx, errCh)

	stopJanitor()
	<-janitorDone

	shutdownErr := s.gracefulShutdown()

	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// setupListener creates the listener based on configuration (Tailscale or TCP).
func (s *Server) setupListener(ctx context.Context) (net.Listener, error) {
	if s.config.Tailscale.Enabled {
		if s.config.Server.HTTPAddr != "" {
			s.logger.Warn("server.http_addr is ignored when tailscale is enabled", "http_addr", s.config.Server.HTTPAddr)
		}
		return s.setupTailscaleListener(ctx)
	}

	ln, err := net.Listen("tcp", s.config.Server.HTTPAddr)
	if err != nil {
		return nil, fmt.Errorf("listening on HTTP address %s: %w", s.config.Server.HTTPAddr, err)
	}
	return ln, nil
}

// startServer serves HTTP in a goroutine, returning an error channel.
func (s *Server) startServer(ln net.Listener) chan error {
	errCh := make(chan error, 1)

	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
	}()

	return errCh
}

// waitForShutdownSignal waits for context cancellation or server error.
func (s *Server) waitForShutdownSignal(ctx context.Context, errCh chan error) error {
	select {
	case <-ctx.Done():
		s.logger.Info("context canceled, initiating shutdown")
		return nil
	case err := <-errCh:
		s.logger.Error("server error", "error", err)
		return err
	}
}

// gracefulShutdown performs shutdown with a fresh context and timeout.
// Uses context.Background() since the original context is already canceled.
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.Shutdown(ctx)
}

// runJanitor sweeps expired sessions and prunes idle limiter entries until ctx ends.
func (s *Server) runJanitor(ctx context.Context) {
	interval := s.config.Session.SweepInterval
	if interval <= 0 {
		s.logger.Info("session sweeping disabled")
		return
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.sweep(ctx)
		}
	}
}

// sweep runs one janitor pass.
func (s *Server) sweep(ctx context.Context) {
	n, err := s.manager.Sweep(ctx)
	if err != nil {
		s.logger.Error("session sweep failed", "error", err)
	} else if n > 0 {
		s.logger.Info("swept expired sessions", "count", n)
	}

	// An entry idle for a full refill of the burst is back at capacity
	idle := s.config.Auth.LoginRefill * time.Duration(s.config.Auth.LoginBurst)
	if idle > 0 {
		if pruned := s.limiter.Prune(idle); pruned > 0 {
			s.logger.Debug("pruned login limiter entries", "count", pruned)
		}
	}
}

// resolveTailscaleStateDir returns the state directory, using default if not configured.
func resolveTailscaleStateDir(configured string) (string, error) {
	if configured != "" {
		return configured, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory for tailscale state (set tailscale.state_dir explicitly): %w", err)
	}
	return filepath.Join(homeDir, ".local", "share", "pokercircle", "tailscale"), nil
}

// resolveTailscaleAuthKey returns the auth key from config or environment.
func resolveTailscaleAuthKey(configured string) (string, error) {
	authKey := configured
	if authKey == "" {
		authKey = os.Getenv("TS_AUTHKEY")
	}
	if authKey == "" {
		return "", errors.New("tailscale auth key required: set auth_key in config or TS_AUTHKEY environment variable")
	}
	return authKey, nil
}

// setupTailscaleListener starts a tsnet node and returns its HTTP listener.
func (s *Server) setupTailscaleListener(ctx context.Context) (net.Listener, error) {
	tsCfg := s.config.Tailscale

	stateDir, err := resolveTailscaleStateDir(tsCfg.StateDir)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(stateDir, 0700); err != nil {
		return nil, fmt.Errorf("creating tailscale state dir: %w", err)
	}

	authKey, err := resolveTailscaleAuthKey(tsCfg.AuthKey)
	if err != nil {
		return nil, err
	}

	s.tsnetServer = &tsnet.Server{
		Hostname:  tsCfg.Hostname,
		Dir:       stateDir,
		Ephemeral: tsCfg.Ephemeral,
		AuthKey:   authKey,
	}

	s.logger.Info("starting tailscale node", "hostname", tsCfg.Hostname, "state_dir", stateDir, "ephemeral", tsCfg.Ephemeral)
	status, err := s.tsnetServer.Up(ctx)
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("starting tailscale: %w", err)
	}
	s.logTailscaleStatus(tsCfg.Hostname, status)

	return s.createTailscaleHTTPListener(tsCfg)
}

// logTailscaleStatus logs info about the tailscale node status.
func (s *Server) logTailscaleStatus(hostname string, status *ipnstate.Status) {
	var tsAddr, dnsName string
	if len(status.TailscaleIPs) > 0 {
		tsAddr = status.TailscaleIPs[0].String()
	} else {
		s.logger.Warn("tailscale node has no IP addresses assigned")
	}
	if status.Self != nil {
		dnsName = status.Self.DNSName
	}
	s.logger.Info("tailscale node ready", "hostname", hostname, "tailscale_ip", tsAddr, "dns_name", dnsName)
}

// createTailscaleHTTPListener creates the HTTP listener: Funnel, tailnet HTTPS, or plain :80.
func (s *Server) createTailscaleHTTPListener(tsCfg config.TailscaleConfig) (net.Listener, error) {
	switch {
	case tsCfg.Funnel:
		s.logger.Info("enabling tailscale funnel (public HTTPS) on :443")
		ln, err := s.tsnetServer.ListenFunnel("tcp", ":443")
		if err != nil {
			_ = s.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale funnel: %w", err)
		}
		return ln, nil
	case tsCfg.HTTPS:
		return s.createTailscaleTLSListener()
	default:
		ln, err := s.tsnetServer.Listen("tcp", ":80")
		if err != nil {
			_ = s.tsnetServer.Close()
			return nil, fmt.Errorf("listening on tailscale HTTP port: %w", err)
		}
		return ln, nil
	}
}

// createTailscaleTLSListener creates a TLS listener using Tailscale's auto-provisioned certs.
func (s *Server) createTailscaleTLSListener() (net.Listener, error) {
	s.logger.Info("enabling HTTPS with Tailscale certs on :443")
	ln, err := s.tsnetServer.Listen("tcp", ":443")
	if err != nil {
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("listening on tailscale HTTPS port: %w", err)
	}
	lc, err := s.tsnetServer.LocalClient()
	if err != nil {
		_ = ln.Close()
		_ = s.tsnetServer.Close()
		return nil, fmt.Errorf("getting tailscale local client: %w", err)
	}
	return tls.NewListener(ln, &tls.Config{
		GetCertificate: lc.GetCertificate,
		MinVersion:     tls.VersionTLS12,
	}), nil
}

// appendCloseError appends an error with label if err is non-nil.
func appendCloseError(errs []error, label string, err error) []error {
	if err != nil {
		return append(errs, fmt.Errorf("%s: %w", label, err))
	}
	return errs
}

// Shutdown gracefully stops the HTTP server and releases resources.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down server")

	var errs []error
	errs = appendCloseError(errs, "HTTP shutdown", s.httpServer.Shutdown(ctx))

	if s.tsnetServer != nil {
		errs = appendCloseError(errs, "tailscale shutdown", s.tsnetServer.Close())
	}
	if s.redisSessions != nil {
		errs = appendCloseError(errs, "redis close", s.redisSessions.Close())
	}
	errs = appendCloseError(errs, "store close", s.store.Close())

	return errors.Join(errs...)
}

// handleHealth returns 200 OK if the process is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK when the database and session backend respond.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	if err := s.store.Ping(ctx); err != nil {
		s.logger.Warn("readiness check failed", "component", "database", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("database unavailable"))
		return
	}

	if s.redisSessions != nil {
		if err := s.redisSessions.Ping(ctx); err != nil {
			s.logger.Warn("readiness check failed", "component", "sessions", "error", err)
			w.WriteHeader(http.StatusServiceUnavailable)
			_, _ = w.Write([]byte("session store unavailable"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%s sessions)", s.config.Session.Backend)
}
