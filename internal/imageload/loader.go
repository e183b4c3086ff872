// Package imageload downloads and decodes preview images in the background
// and registers them as document images on the main context. Requests for
// an image already in flight join the running pipeline.
package imageload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/document"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/scheduler"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/task"
)

// TimerID names the callback draining processed images
const TimerID = "image_processing"

// Document is the part of the host document the loader needs. HasImage is
// called from the worker goroutine; the rest only on the main context.
type Document interface {
	HasImage(name string) bool
	NewImage(name string, width, height int) (*document.Image, error)
	SetPixels(name string, pixels []float32) error
	RemoveImageIfUnused(name string) bool
}

// Config holds the loader settings
type Config struct {
	Margin        int
	Pacing        time.Duration
	Timeout       time.Duration
	DrainFirst    time.Duration
	DrainInterval time.Duration
}

// DefaultConfig returns the standard settings
func DefaultConfig() Config {
	return Config{
		Margin:        5,
		Pacing:        150 * time.Millisecond,
		Timeout:       30 * time.Second,
		DrainFirst:    100 * time.Millisecond,
		DrainInterval: 500 * time.Millisecond,
	}
}

// Callbacks are invoked on the main context when a request settles
type Callbacks struct {
	OnComplete func(imageName string)
	OnError    func(err error)
}

type job struct {
	id  string
	url string
}

type processed struct {
	id       string
	raster   Raster
	existing bool
	err      error
}

// Loader runs the image pipeline
type Loader struct {
	client    *http.Client
	doc       Document
	registry  *scheduler.Registry
	cfg       Config
	worker    *task.LazyWorker[job]
	processed *task.Queue[processed]
	logger    *slog.Logger

	mu       sync.Mutex
	inflight map[string][]Callbacks
}

// NewLoader creates an idle loader
func NewLoader(client *http.Client, doc Document, registry *scheduler.Registry, cfg Config, logger *slog.Logger) *Loader {
	defaults := DefaultConfig()
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.DrainInterval <= 0 {
		cfg.DrainInterval = defaults.DrainInterval
	}
	if cfg.Margin < 0 {
		cfg.Margin = 0
	}
	if client == nil {
		client = &http.Client{}
	}

	logger = logger.With("component", "image_loader")
	l := &Loader{
		client:    client,
		doc:       doc,
		registry:  registry,
		cfg:       cfg,
		processed: task.NewQueue[processed](),
		inflight:  make(map[string][]Callbacks),
		logger:    logger,
	}
	l.worker = task.NewLazyWorker(l.handle, task.WorkerConfig{
		Name:   "image",
		Pacing: cfg.Pacing,
	}, logger)
	return l
}

// Request loads url into the document image named id and runs one of the
// callbacks on the main context when done. A request for an id already in
// flight only adds its callbacks.
func (l *Loader) Request(id, url string, cb Callbacks) error {
	l.mu.Lock()
	if waiting, ok := l.inflight[id]; ok {
		l.inflight[id] = append(waiting, cb)
		l.mu.Unlock()
		l.logger.Debug("joined in-flight image load", "image", id)
		return nil
	}
	l.inflight[id] = []Callbacks{cb}
	l.mu.Unlock()

	if err := l.worker.Enqueue(job{id: id, url: url}); err != nil {
		l.mu.Lock()
		delete(l.inflight, id)
		l.mu.Unlock()
		return fmt.Errorf("failed to queue image load: %w", err)
	}

	l.registry.Ensure(TimerID, l.Drain, l.cfg.DrainFirst)
	return nil
}

// InFlight reports whether id has an unsettled request
func (l *Loader) InFlight(id string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.inflight[id]
	return ok
}

// Alive reports whether the worker is running
func (l *Loader) Alive() bool {
	return l.worker.Alive()
}

// Pending is the number of images waiting for the worker
func (l *Loader) Pending() int {
	return l.worker.Pending()
}

// Stop rejects new requests and waits for queued ones
func (l *Loader) Stop() {
	l.worker.Stop()
}

// Drain is the main-context callback: it registers every processed image,
// settles its callbacks and keeps running while the worker is alive
func (l *Loader) Drain() time.Duration {
	alive := l.worker.Alive()

	for _, p := range l.processed.Drain() {
		name, err := l.register(p)
		if err != nil {
			l.logger.Error("image load failed", "image", p.id, "error", err)
		}

		l.mu.Lock()
		waiting := l.inflight[p.id]
		delete(l.inflight, p.id)
		l.mu.Unlock()

		for _, cb := range waiting {
			l.settle(cb, name, err)
		}
	}

	if !alive {
		return scheduler.Stop
	}
	return l.cfg.DrainInterval
}

func (l *Loader) settle(cb Callbacks, name string, err error) {
	defer func() {
		if r := recover(); r != nil {
			l.logger.Error("image callback panicked", "image", name, "panic", r)
		}
	}()

	if err != nil {
		if cb.OnError != nil {
			cb.OnError(err)
		}
		return
	}
	if cb.OnComplete != nil {
		cb.OnComplete(name)
	}
}

// register turns a processed raster into a document image. A partially
// created image nobody uses yet is removed again on failure.
func (l *Loader) register(p processed) (string, error) {
	if p.err != nil {
		return "", p.err
	}
	if p.existing {
		return p.id, nil
	}

	if _, err := l.doc.NewImage(p.id, p.raster.Width, p.raster.Height); err != nil {
		if errors.Is(err, document.ErrImageExists) {
			return p.id, nil
		}
		return "", fmt.Errorf("failed to create image: %w", err)
	}
	if err := l.doc.SetPixels(p.id, p.raster.Pix); err != nil {
		l.doc.RemoveImageIfUnused(p.id)
		return "", fmt.Errorf("failed to set pixels: %w", err)
	}

	l.logger.Info("image loaded", "image", p.id, "width", p.raster.Width, "height", p.raster.Height)
	return p.id, nil
}

func (l *Loader) handle(ctx context.Context, j job) error {
	if l.doc.HasImage(j.id) {
		l.logger.Debug("image already exists, reusing", "image", j.id)
		return l.processed.Push(processed{id: j.id, existing: true})
	}

	raster, err := l.load(ctx, j.url)
	return l.processed.Push(processed{id: j.id, raster: raster, err: err})
}

func (l *Loader) load(ctx context.Context, url string) (Raster, error) {
	data, err := l.fetch(ctx, url)
	if isTimeout(err) {
		l.logger.Warn("image fetch timed out, retrying", "url", url)
		data, err = l.fetch(ctx, url)
	}
	if err != nil {
		return Raster{}, err
	}
	return Process(data, l.cfg.Margin)
}

func (l *Loader) fetch(ctx context.Context, url string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, l.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %s", ErrFetch, resp.Status)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrFetch, err)
	}
	return data, nil
}

func isTimeout(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
