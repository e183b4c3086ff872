package task

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ErrWorkerPanic wraps a panic recovered while handling an item
var ErrWorkerPanic = errors.New("worker panicked")

// Handler processes a single queued item
type Handler[T any] func(ctx context.Context, item T) error

// WorkerConfig holds configuration options for a LazyWorker
type WorkerConfig struct {
	// Name identifies the worker in log lines
	Name string

	// Pacing is the pause after each handled item, successful or not
	Pacing time.Duration
}

// LazyWorker owns a Queue and runs at most one consumer goroutine for it.
// The goroutine is started by the first Enqueue on an idle queue and exits
// as soon as it finds the queue empty.
type LazyWorker[T any] struct {
	queue  *Queue[T]
	handle Handler[T]
	name   string
	pacing time.Duration

	// wg tracks the consumer goroutine for Wait and Stop. lifeMu orders
	// wg.Add in Enqueue before the wg.Wait in Stop.
	wg      sync.WaitGroup
	lifeMu  sync.Mutex
	stopped bool

	ctx    context.Context
	cancel context.CancelFunc

	logger *slog.Logger

	// errorHandler is called when handling an item fails
	// If nil, errors are only logged
	errMu        sync.RWMutex
	errorHandler func(item T, err error)
}

// NewLazyWorker creates an idle worker around a fresh queue
func NewLazyWorker[T any](handle Handler[T], config WorkerConfig, logger *slog.Logger) *LazyWorker[T] {
	if config.Pacing < 0 {
		logger.Warn("negative pacing specified, using none",
			"worker", config.Name,
			"specified_pacing", config.Pacing)
		config.Pacing = 0
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &LazyWorker[T]{
		queue:  NewQueue[T](),
		handle: handle,
		name:   config.Name,
		pacing: config.Pacing,
		ctx:    ctx,
		cancel: cancel,
		logger: logger.With("worker", config.Name),
	}
}

// SetErrorHandler sets a hook invoked from the worker goroutine for every
// failed item
func (w *LazyWorker[T]) SetErrorHandler(handler func(item T, err error)) {
	w.errMu.Lock()
	defer w.errMu.Unlock()
	w.errorHandler = handler
}

// Enqueue appends an item and starts the consumer if none is running
func (w *LazyWorker[T]) Enqueue(item T) error {
	w.lifeMu.Lock()
	if w.stopped {
		w.lifeMu.Unlock()
		return ErrQueueClosed
	}
	start, err := w.queue.Offer(item)
	if err != nil {
		w.lifeMu.Unlock()
		return err
	}
	if start {
		w.wg.Add(1)
	}
	w.lifeMu.Unlock()

	if start {
		go w.run()
		w.logger.Debug("worker started")
	}
	return nil
}

// Alive reports whether the consumer goroutine is running
func (w *LazyWorker[T]) Alive() bool {
	return w.queue.Draining()
}

// Pending returns the number of items waiting to be handled
func (w *LazyWorker[T]) Pending() int {
	return w.queue.Len()
}

// Wait blocks until the current consumer goroutine, if any, has exited
func (w *LazyWorker[T]) Wait() {
	w.wg.Wait()
}

// Stop rejects new items, cancels the context passed to handlers and waits
// for the consumer to finish what is already queued
func (w *LazyWorker[T]) Stop() {
	w.logger.Info("stopping worker")
	w.lifeMu.Lock()
	w.stopped = true
	w.queue.Close()
	w.lifeMu.Unlock()

	w.cancel()
	w.wg.Wait()
	w.logger.Info("worker stopped")
}

func (w *LazyWorker[T]) run() {
	defer w.wg.Done()

	for {
		item, ok := w.queue.Next()
		if !ok {
			w.logger.Debug("queue empty, worker exiting")
			return
		}

		w.process(item)

		if w.pacing > 0 {
			time.Sleep(w.pacing)
		}
	}
}

func (w *LazyWorker[T]) process(item T) {
	defer func() {
		if r := recover(); r != nil {
			w.fail(item, fmt.Errorf("%w: %v", ErrWorkerPanic, r))
		}
	}()

	if err := w.handle(w.ctx, item); err != nil {
		w.fail(item, err)
	}
}

func (w *LazyWorker[T]) fail(item T, err error) {
	w.logger.Error("item handling failed", "error", err)

	w.errMu.RLock()
	handler := w.errorHandler
	w.errMu.RUnlock()

	if handler != nil {
		handler(item, err)
	}
}
