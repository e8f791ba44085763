package app

import (
	"context"
	"fmt"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/droprelay/internal/config"
	"github.com/vovakirdan/droprelay/internal/core"
	"github.com/vovakirdan/droprelay/internal/metrics"
	"github.com/vovakirdan/droprelay/internal/store"
	"github.com/vovakirdan/droprelay/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/droprelay/internal/transport/http"
)

// App wires together core and transport layers.
type App struct {
	server          *stdhttp.Server
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.HistoryStore
	recorder        *store.Recorder
	log             *zerolog.Logger
}

// New constructs the application with provided configuration.
func New(cfg *config.Config, logger *zerolog.Logger) (*App, error) {
	codes, err := core.NewCodeGenerator(cfg.RoomCodeLength, cfg.RoomCodeAlphabet)
	if err != nil {
		return nil, fmt.Errorf("room codes: %w", err)
	}

	m := metrics.New()

	a := &App{
		shutdownTimeout: cfg.ShutdownTimeout,
		log:             logger,
	}

	opts := core.Options{
		Codes:   codes,
		Logger:  logger,
		Metrics: m,
	}

	// History is optional; without a database path rooms are never persisted.
	if cfg.DatabasePath != "" {
		st, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return nil, fmt.Errorf("init store: %w", err)
		}
		logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

		a.store = st
		a.recorder = store.NewRecorder(st, cfg.HistoryBuffer, logger)
		opts.History = a.recorder
	}

	a.hub = core.NewHub(opts)
	a.server = transporthttp.NewServer(a.hub, a.store, m, cfg, logger)

	return a, nil
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *App) Run(ctx context.Context) error {
	serverErr := make(chan error, 1)

	hubCtx, stopHub := context.WithCancel(context.Background())
	defer stopHub()
	go a.hub.Run(hubCtx)

	recCtx, stopRecorder := context.WithCancel(context.Background())
	defer stopRecorder()
	if a.recorder != nil {
		go a.recorder.Run(recCtx)
	}

	go func() {
		a.log.Info().Str("addr", a.server.Addr).Msg("http server listening")
		if err := a.server.ListenAndServe(); err != nil && err != stdhttp.ErrServerClosed {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	var runErr error
	select {
	case runErr = <-serverErr:
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		// Hijacked WebSocket connections are not tracked by Shutdown; stopping
		// the hub closes their event streams so the handlers return.
		stopHub()
		runErr = a.server.Shutdown(shutdownCtx)
		if runErr == nil {
			runErr = <-serverErr
		}
	}

	stopHub()
	<-a.hub.Done()
	// The hub records rooms closed during its shutdown; stop the recorder only after.
	stopRecorder()
	a.cleanup()
	return runErr
}

// cleanup closes database and other resources.
func (a *App) cleanup() {
	if a.recorder != nil {
		a.recorder.Wait()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
