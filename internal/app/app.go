package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/dokzlo13/robotd/internal/config"
)

// App is the main application container that manages all services and their lifecycle.
type App struct {
	cfg      *config.Config
	services *Services
}

// New creates a new App instance with all services initialized but not started.
// baseDir is the directory of the config file.
func New(cfg *config.Config, baseDir string) (*App, error) {
	services, err := NewServices(cfg, baseDir)
	if err != nil {
		return nil, err
	}

	return &App{
		cfg:      cfg,
		services: services,
	}, nil
}

// Services returns the service container.
func (a *App) Services() *Services {
	return a.services
}

// Run starts the control loop and its companions and blocks until ctx is
// cancelled or one of them fails. The loop always stops its actions and
// zeroes outputs before Run returns.
func (a *App) Run(ctx context.Context) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.services.Loop.Run(gctx)
	})

	if a.services.Ledger != nil {
		g.Go(func() error {
			return a.services.Loop.RunLedgerCleanup(gctx)
		})
	}

	if a.cfg.Status.Enabled {
		g.Go(func() error {
			return a.services.Status.Run(gctx)
		})
	}

	log.Info().Msg("robotd started")
	return g.Wait()
}

// Close releases all resources. Call after Run returns.
func (a *App) Close() {
	log.Info().Msg("Shutting down...")
	if a.services != nil {
		a.services.Close()
	}
}

// SignalContext creates a context that is cancelled when SIGINT or SIGTERM is received.
func SignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		log.Warn().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	return ctx
}
