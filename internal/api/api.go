// Package api provides HTTP handlers and the main API server logic for
// FocusGuard.
//
// It exposes RESTful endpoints for scheduling and cancelling notifications,
// inspecting scheduler status, evaluating blocking decisions, and managing
// per-app strategies and context rules. The API integrates the scheduler,
// blocking engine, and store modules.
package api

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/BTreeMap/FocusGuard/internal/blocking"
	"github.com/BTreeMap/FocusGuard/internal/delivery"
	"github.com/BTreeMap/FocusGuard/internal/maintenance"
	"github.com/BTreeMap/FocusGuard/internal/profile"
	"github.com/BTreeMap/FocusGuard/internal/scheduler"
	"github.com/BTreeMap/FocusGuard/internal/store"
	"github.com/BTreeMap/FocusGuard/internal/throttle"
)

// Default server configuration.
const (
	// DefaultAddr is the default API listen address.
	DefaultAddr = ":8080"
	// DefaultShutdownTimeout bounds graceful HTTP shutdown.
	DefaultShutdownTimeout = 10 * time.Second
)

// Config selects the storage backend and server parameters for Run.
type Config struct {
	// StoreDriver is "sqlite", "postgres", or "" for in-memory.
	StoreDriver string
	// StoreDSN is the database connection string (file path for SQLite).
	StoreDSN string
	// Addr is the API listen address.
	Addr string
	// DrainInterval overrides the scheduler worker cadence when positive.
	DrainInterval time.Duration
}

// Server wires the scheduler, blocking engine, and store behind HTTP
// handlers.
type Server struct {
	scheduler *scheduler.Scheduler
	engine    *blocking.Engine
	st        store.Store
	addr      string
}

// NewServer creates an API server around the given modules.
func NewServer(sched *scheduler.Scheduler, engine *blocking.Engine, st store.Store, addr string) *Server {
	if addr == "" {
		addr = DefaultAddr
	}
	return &Server{scheduler: sched, engine: engine, st: st, addr: addr}
}

// Handler returns the HTTP handler for all API routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/notifications", s.notificationsHandler)
	mux.HandleFunc("/notifications/preview", s.notificationPreviewHandler)
	mux.HandleFunc("/notifications/", s.notificationHandler)
	mux.HandleFunc("/status", s.statusHandler)
	mux.HandleFunc("/block/check", s.blockCheckHandler)
	mux.HandleFunc("/block/strategy", s.strategyHandler)
	mux.HandleFunc("/block/rules", s.rulesHandler)
	mux.HandleFunc("/usage/sessions", s.usageSessionsHandler)
	return mux
}

// Run builds every module from the configuration and serves the API until
// the process receives an interrupt or termination signal.
func Run(cfg Config) error {
	st, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open store: %w", err)
	}
	defer st.Close()

	ledger := throttle.NewLedger()
	contextAnalyzer := profile.NewContextAnalyzer(st)
	engagementAnalyzer := profile.NewEngagementAnalyzer(st)

	schedOpts := []scheduler.Option{scheduler.WithDeliveryLog(st)}
	if cfg.DrainInterval > 0 {
		schedOpts = append(schedOpts, scheduler.WithDrainInterval(cfg.DrainInterval))
	}
	sched := scheduler.NewScheduler(contextAnalyzer, engagementAnalyzer,
		delivery.NewSlogChannel(), ledger, schedOpts...)
	sched.Start()
	defer sched.Stop()

	engine := blocking.NewEngine(st, blocking.NewAnalyzer(st))

	housekeeping := maintenance.NewRunner()
	defer housekeeping.Stop()
	if err := housekeeping.ScheduleThrottlePrune(ledger); err != nil {
		return fmt.Errorf("failed to schedule throttle prune: %w", err)
	}
	if err := housekeeping.ScheduleUsageRetention(st, maintenance.DefaultUsageRetention); err != nil {
		return fmt.Errorf("failed to schedule usage retention: %w", err)
	}

	server := NewServer(sched, engine, st, cfg.Addr)
	httpServer := &http.Server{Addr: server.addr, Handler: server.Handler()}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("api.Run: serving HTTP API", "addr", server.addr)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("HTTP server failed: %w", err)
	case sig := <-sigCh:
		slog.Info("api.Run: shutting down on signal", "signal", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), DefaultShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("HTTP shutdown failed: %w", err)
	}
	return nil
}

// openStore selects the storage backend from the configuration.
func openStore(cfg Config) (store.Store, error) {
	switch cfg.StoreDriver {
	case "sqlite":
		return store.NewSQLiteStore(store.WithDSN(cfg.StoreDSN))
	case "postgres":
		return store.NewPostgresStore(store.WithDSN(cfg.StoreDSN))
	case "":
		slog.Warn("api.openStore: no store driver configured, state will not survive restarts")
		return store.NewInMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown store driver: %s", cfg.StoreDriver)
	}
}
