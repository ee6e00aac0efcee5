package server

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"EnsembleView/internal/usecase"
	"EnsembleView/pkg/config"
	xhttp "EnsembleView/pkg/http"
	"EnsembleView/pkg/logger"
)

// Resource is an infrastructure client closed on shutdown, in reverse
// registration order.
type Resource struct {
	Name   string
	Closer io.Closer
}

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *logger.Logger
	session    *usecase.Session
	worker     *usecase.SnapshotWorker
	httpServer *xhttp.Server
	resources  []Resource
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *logger.Logger,
	session *usecase.Session,
	worker *usecase.SnapshotWorker,
	httpServer *xhttp.Server,
	resources ...Resource,
) *App {
	return &App{
		cfg:        cfg,
		log:        log,
		session:    session,
		worker:     worker,
		httpServer: httpServer,
		resources:  resources,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return a.Serve(ctx)
}

// Serve runs until ctx is done, then shuts everything down.
func (a *App) Serve(ctx context.Context) error {
	workerCtx, cancelWorker := context.WithCancel(context.Background())
	workerDone := make(chan struct{})
	go func() {
		defer close(workerDone)
		a.worker.Run(workerCtx)
	}()

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", logger.Error(err))
		cancelWorker()
		<-workerDone
		return err
	}

	if len(a.cfg.Stream.Tickers) > 0 {
		if runID, err := a.session.StartRun(ctx, a.cfg.Stream.Tickers); err != nil {
			a.log.Warn("auto start failed", logger.Error(err))
		} else {
			a.log.Info("run auto-started", logger.String("run_id", runID))
		}
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout())
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", logger.Error(err))
	}
	if err := a.session.Shutdown(shutdownCtx); err != nil {
		a.log.Warn("session stop error", logger.Error(err))
	}
	cancelWorker()
	<-workerDone

	a.log.DetachDigest()
	for i := len(a.resources) - 1; i >= 0; i-- {
		r := a.resources[i]
		if err := r.Closer.Close(); err != nil {
			a.log.Warn("close error", logger.String("resource", r.Name), logger.Error(err))
		}
	}
	a.log.Info("shutdown complete")
	return nil
}

func (a *App) shutdownTimeout() time.Duration {
	if a.cfg.Server.ShutdownTimeout > 0 {
		return a.cfg.Server.ShutdownTimeout
	}
	return 10 * time.Second
}
