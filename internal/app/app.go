// Package app assembles NIDKeeper from its configuration: it opens the
// store, builds the services and runs the terminal until the operator
// exits or the process is signalled.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/nidkeeper/internal/cli"
	"github.com/dmitrijs2005/nidkeeper/internal/config"
	"github.com/dmitrijs2005/nidkeeper/internal/logging"
	"github.com/dmitrijs2005/nidkeeper/internal/metrics"
	"github.com/dmitrijs2005/nidkeeper/internal/repositories/repomanager"
	"github.com/dmitrijs2005/nidkeeper/internal/services"
)

// exitFn is a test seam for os.Exit.
var exitFn = os.Exit

type App struct {
	config  *config.Config
	logger  logging.Logger
	db      *sql.DB
	metrics *metrics.Metrics
	cli     *cli.App

	shutdownOnce sync.Once
}

// NewApp opens the configured store and wires the services to a terminal
// reading in and writing out. Logs go to logOut.
func NewApp(ctx context.Context, c *config.Config, in io.Reader, out, logOut io.Writer) (*App, error) {
	logger, err := logging.New(c.LogFormat, c.LogLevel, logOut)
	if err != nil {
		return nil, err
	}

	db, rm, err := repomanager.Open(ctx, c.DatabaseDriver, c.DatabaseDSN, c.DatabaseBusyTimeout)
	if err != nil {
		return nil, fmt.Errorf("db init error: %w", err)
	}

	met := metrics.New()
	audit := services.NewAuditService(db, rm, c, logger, met)
	creds, err := services.NewCredentialService(db, rm, c, audit, logger, met)
	if err != nil {
		_ = db.Close()
		return nil, err
	}
	session := services.NewSession(rm, creds, audit, logger)
	bootstrap := services.NewBootstrap(creds, logger)

	return &App{
		config:  c,
		logger:  logger.With("session_id", session.ID()),
		db:      db,
		metrics: met,
		cli:     cli.NewApp(c, session, bootstrap, logger, in, out),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "signal received, shutting down", "signal", s.String())
			cancelFunc()
			app.shutdown(ctx)
			exitFn(130)
		case <-ctx.Done():
		}
		signal.Stop(sigs)
	}()
}

// Run serves the terminal until the operator exits. The returned error is
// a setup failure; everything after login is reported interactively.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting NIDKeeper...", "driver", app.config.DatabaseDriver)
	app.initSignalHandler(ctx, cancelFunc)

	err := app.cli.Run(ctx)
	app.shutdown(ctx)
	return err
}

// shutdown writes the metrics snapshot, when configured, and closes the
// store. Only the first call does anything; the signal handler and Run
// may both reach it.
func (app *App) shutdown(ctx context.Context) {
	app.shutdownOnce.Do(func() {
		if app.config.MetricsFile != "" {
			if err := app.metrics.WriteTextfile(app.config.MetricsFile); err != nil {
				app.logger.Error(ctx, "failed to write metrics", "path", app.config.MetricsFile, "error", err)
			}
		}
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "failed to close database", "error", err)
		}
	})
}
