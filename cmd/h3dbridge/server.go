package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"
)

// shutdownTimeout bounds the graceful HTTP shutdown
const shutdownTimeout = 10 * time.Second

// startHTTPServer runs the main loop and the HTTP server until ctx is
// cancelled or the server fails. Shutdown order: the server, then the
// pipelines while the loop still drains, then the loop.
func (app *application) startHTTPServer(ctx context.Context, router http.Handler) error {
	server := &http.Server{
		Addr:              net.JoinHostPort("127.0.0.1", strconv.Itoa(app.config.Server.Port)),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	loopCtx, stopLoop := context.WithCancel(context.Background())
	defer stopLoop()

	g, gctx := errgroup.WithContext(ctx)

	loopErr := make(chan error, 1)
	go func() {
		loopErr <- app.loop.Run(loopCtx)
	}()

	g.Go(func() error {
		app.logger.Info("starting server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()

		app.logger.Info("shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown failed: %w", err)
		}
		return nil
	})

	err := g.Wait()
	if err != nil {
		app.logger.Error("server stopped with error", "error", err)
	}

	app.stopPipelines()
	stopLoop()
	if lerr := <-loopErr; lerr != nil {
		app.logger.Error("main loop stopped with error", "error", lerr)
	}
	app.cleanup()

	app.logger.Info("server shutdown completed")
	return err
}
