package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/cache"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/config"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/document"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/download"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/generation"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/imageload"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/notify"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/platform/hunyuan"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/scheduler"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/service"
)

// application holds every long-lived component so they can be wired once
// and shut down in order.
type application struct {
	config *config.Config
	logger *slog.Logger

	// Main context and its named timers
	loop     *scheduler.Loop
	registry *scheduler.Registry

	// Host document and status messages
	scene *document.Scene
	board *notify.Board

	// Remote service and asset cache
	remote     *hunyuan.Client
	assetCache cache.Cache

	// Background pipelines
	dispatcher *generation.Dispatcher
	downloader *download.Downloader
	loader     *imageload.Loader

	// User-facing operations
	generations *service.GenerationService
	results     *service.ResultService
	previews    *service.PreviewService
}

// newApplication creates the application with all dependencies initialized.
func newApplication(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*application, error) {
	app := &application{
		config: cfg,
		logger: logger,
	}

	app.loop = scheduler.NewLoop(logger)
	app.registry = scheduler.NewRegistry(app.loop, logger)
	app.scene = document.NewScene(logger)
	app.board = notify.NewBoard(notify.DefaultCapacity, logger)

	var err error
	app.remote, err = hunyuan.NewClient(hunyuan.Config{
		BaseURL: cfg.Remote.BaseURL,
		Token:   cfg.Remote.Token,
		UserID:  cfg.Remote.UserID,
		Timeout: cfg.Remote.Timeout,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create hunyuan client: %w", err)
	}

	app.assetCache, err = cache.New(ctx, cache.Config{
		Backend:       cfg.Cache.Backend,
		RedisAddr:     cfg.Cache.RedisAddr,
		RedisPassword: cfg.Cache.RedisPassword,
		RedisDB:       cfg.Cache.RedisDB,
		KeyPrefix:     cfg.Cache.KeyPrefix,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create asset cache: %w", err)
	}

	app.dispatcher = generation.NewDispatcher(app.remote, app.scene.Jobs(), app.registry, app.board,
		generation.Config{
			Capacity:        cfg.Generation.Capacity,
			PollInterval:    cfg.Generation.PollInterval,
			FirstDelay:      cfg.Generation.FirstDelay,
			CallTimeout:     cfg.Generation.CallTimeout,
			MaxPollFailures: cfg.Generation.MaxPollFailures,
		}, logger)

	app.downloader = download.NewDownloader(&http.Client{}, app.assetCache, app.registry, app.scene, app.board,
		download.Config{
			Attempts:      cfg.Download.Attempts,
			Pacing:        cfg.Download.Pacing,
			Timeout:       cfg.Download.Timeout,
			TempDir:       cfg.Storage.TempDir,
			RelayInterval: cfg.Download.RelayInterval,
		}, logger)

	app.loader = imageload.NewLoader(&http.Client{}, app.scene, app.registry,
		imageload.Config{
			Margin:        cfg.Image.Margin,
			Pacing:        cfg.Image.Pacing,
			Timeout:       cfg.Image.Timeout,
			DrainFirst:    cfg.Image.DrainFirst,
			DrainInterval: cfg.Image.DrainInterval,
		}, logger)

	app.generations = service.NewGenerationService(app.loop, app.scene.Jobs(), app.dispatcher, logger)
	app.results = service.NewResultService(app.loop, app.scene.Jobs(), app.scene, app.scene,
		app.downloader, app.board, cfg.Storage.SaveDir, logger)
	app.previews = service.NewPreviewService(app.scene.Jobs(), app.loader, app.scene, app.board, logger)
	app.dispatcher.SetResultHook(app.previews.RequestPreviews)

	logger.Info("application initialized successfully")
	return app, nil
}

// Run serves the control API and runs the main loop until ctx is done.
func (app *application) Run(ctx context.Context) error {
	router := app.setupRouter()

	if err := app.startHTTPServer(ctx, router); err != nil {
		return fmt.Errorf("server error: %w", err)
	}
	return nil
}

// stopPipelines stops accepting work and waits for the workers. The main
// loop must still be running so queued relays can drain.
func (app *application) stopPipelines() {
	app.dispatcher.Close()
	app.downloader.Stop()
	app.loader.Stop()
}

// cleanup releases what outlives the main loop.
func (app *application) cleanup() {
	app.registry.RemoveAll()

	if closer, ok := app.assetCache.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			app.logger.Error("error closing asset cache", "error", err)
		}
	}

	app.logger.Info("application shutdown completed")
}
