package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"SemaforoBot/internal/domain/repository"
	"SemaforoBot/internal/service/pricefeed"
	"SemaforoBot/internal/usecase"
	pkgch "SemaforoBot/pkg/clickhouse"
	"SemaforoBot/pkg/config"
	xhttp "SemaforoBot/pkg/http"
	applogger "SemaforoBot/pkg/logger"
	"SemaforoBot/pkg/store"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg       *config.Config
	log       *applogger.Logger
	store     store.Store
	handler   xhttp.Handler
	analyzer  *usecase.Analyzer
	watcher   *pricefeed.Watcher
	publisher repository.Publisher
	chClient  *pkgch.Client

	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	s store.Store,
	handler xhttp.Handler,
	analyzer *usecase.Analyzer,
	watcher *pricefeed.Watcher,
	publisher repository.Publisher,
	chClient *pkgch.Client,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		store:     s,
		handler:   handler,
		analyzer:  analyzer,
		watcher:   watcher,
		publisher: publisher,
		chClient:  chClient,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler, a.log,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
	)

	// Background semaphore refresh, paced by the cache TTL so the cached
	// view never goes stale between requests.
	go a.analysisLoop(ctx)

	// Stop/target watcher on the live price stream.
	if a.watcher != nil {
		go func() {
			if err := a.watcher.Run(ctx); err != nil && ctx.Err() == nil {
				a.log.Error("price watcher stopped", applogger.Error(err))
			}
		}()
		a.log.Info("price watcher started", applogger.Strings("assets", a.cfg.Risk.DefaultAssets))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	// Wait for interrupt
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	cancel()
	return a.shutdown()
}

func (a *App) analysisLoop(ctx context.Context) {
	interval := a.cfg.Risk.AnalysisCacheTTL
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	run := func() {
		runCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if _, err := a.analyzer.Analyze(runCtx, nil, true); err != nil {
			a.log.Warn("background analysis failed", applogger.Error(err))
		}
	}

	run()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			run()
		}
	}
}

// shutdown gracefully stops all services.
func (a *App) shutdown() error {
	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}
	if a.chClient != nil {
		if err := a.chClient.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("store close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
