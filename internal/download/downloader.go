// Package download fetches generated model files in the background, one at a
// time, and hands finished files to the main context for import.
package download

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/cache"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/notify"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/scheduler"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/task"
)

// Config holds the downloader settings
type Config struct {
	// Attempts is the number of tries per download, without backoff
	Attempts int
	// Pacing is the pause after each request
	Pacing time.Duration
	// Timeout bounds each HTTP attempt
	Timeout time.Duration
	// TempDir receives downloads that have no destination
	TempDir string
	// RelayInterval is the import relay period
	RelayInterval time.Duration
}

// DefaultConfig returns the standard settings
func DefaultConfig() Config {
	return Config{
		Attempts:      3,
		Pacing:        500 * time.Millisecond,
		Timeout:       30 * time.Second,
		TempDir:       os.TempDir(),
		RelayInterval: 500 * time.Millisecond,
	}
}

// Request is a queued download
type Request struct {
	AssetID string
	URL     string
	// Dest is the target file; empty means a file in the temp dir
	Dest   string
	Import bool

	done chan<- outcome
}

type outcome struct {
	path string
	err  error
}

// Downloader owns the download queue, its worker and the import relay
type Downloader struct {
	client   *http.Client
	cache    cache.Cache
	cfg      Config
	worker   *task.LazyWorker[Request]
	relay    *Relay
	reporter notify.Reporter
	logger   *slog.Logger
}

// NewDownloader wires a downloader. Imports run on the main context through
// registry and importer.
func NewDownloader(
	client *http.Client,
	c cache.Cache,
	registry *scheduler.Registry,
	importer Importer,
	reporter notify.Reporter,
	cfg Config,
	logger *slog.Logger,
) *Downloader {
	defaults := DefaultConfig()
	if cfg.Attempts <= 0 {
		cfg.Attempts = defaults.Attempts
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaults.Timeout
	}
	if cfg.TempDir == "" {
		cfg.TempDir = defaults.TempDir
	}
	if cfg.RelayInterval <= 0 {
		cfg.RelayInterval = defaults.RelayInterval
	}
	if client == nil {
		client = &http.Client{}
	}
	if reporter == nil {
		reporter = notify.Discard
	}

	logger = logger.With("component", "downloader")
	d := &Downloader{
		client:   client,
		cache:    c,
		cfg:      cfg,
		reporter: reporter,
		logger:   logger,
	}
	d.worker = task.NewLazyWorker(d.handle, task.WorkerConfig{
		Name:   "download",
		Pacing: cfg.Pacing,
	}, logger)
	d.worker.SetErrorHandler(func(req Request, err error) {
		reporter.Report(notify.LevelError, "Download of %s failed: %v", req.AssetID, err)
	})
	d.relay = NewRelay(registry, importer, d.worker.Alive, reporter, cfg.RelayInterval, logger)
	return d
}

// Request queues a download. When doImport is set the file is imported on
// the main context and the object renamed to assetID.
func (d *Downloader) Request(assetID, url, dest string, doImport bool) error {
	if url == "" {
		return ErrEmptyURL
	}
	if err := d.worker.Enqueue(Request{AssetID: assetID, URL: url, Dest: dest, Import: doImport}); err != nil {
		return fmt.Errorf("failed to queue download: %w", err)
	}
	d.relay.Arm()
	return nil
}

// Fetch downloads url to dest through the same queue and waits for the
// result. The returned path is where the file ended up.
func (d *Downloader) Fetch(ctx context.Context, url, dest string) (string, error) {
	if url == "" {
		return "", ErrEmptyURL
	}

	done := make(chan outcome, 1)
	if err := d.worker.Enqueue(Request{URL: url, Dest: dest, done: done}); err != nil {
		return "", fmt.Errorf("failed to queue download: %w", err)
	}

	select {
	case o := <-done:
		return o.path, o.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Alive reports whether the worker is running
func (d *Downloader) Alive() bool {
	return d.worker.Alive()
}

// Pending returns the number of queued downloads
func (d *Downloader) Pending() int {
	return d.worker.Pending()
}

// Stop rejects new downloads and waits for queued ones
func (d *Downloader) Stop() {
	d.worker.Stop()
}

func (d *Downloader) handle(ctx context.Context, req Request) error {
	path, err := d.download(ctx, req.URL, req.Dest)

	if req.done != nil {
		req.done <- outcome{path: path, err: err}
		return nil
	}
	if err != nil {
		return err
	}

	d.logger.Info("download finished", "asset_id", req.AssetID, "path", path)
	if req.Import {
		d.relay.Push(ImportItem{AssetID: req.AssetID, Path: path})
	}
	return nil
}

// download resolves url to a local file, from the cache when possible
func (d *Downloader) download(ctx context.Context, url, dest string) (string, error) {
	if path, ok := d.fromCache(ctx, url, dest); ok {
		return path, nil
	}

	var lastErr error
	for attempt := 1; attempt <= d.cfg.Attempts; attempt++ {
		path, err := d.attempt(ctx, url, dest)
		if err == nil {
			if err := d.cache.Put(ctx, url, path); err != nil {
				d.logger.Warn("failed to cache download", "url", url, "error", err)
			}
			return path, nil
		}
		lastErr = err
		d.logger.Warn("download attempt failed",
			"url", url,
			"attempt", attempt,
			"max_attempts", d.cfg.Attempts,
			"error", err)
	}

	return "", &Error{URL: url, Path: dest, Attempts: d.cfg.Attempts, Err: lastErr}
}

// fromCache serves a cache hit. Without a destination the cached file is
// reused in place; with one it is moved there and the entry dropped.
func (d *Downloader) fromCache(ctx context.Context, url, dest string) (string, bool) {
	cached, ok, err := cache.Lookup(ctx, d.cache, url)
	if err != nil {
		d.logger.Warn("cache lookup failed", "url", url, "error", err)
		return "", false
	}
	if !ok {
		return "", false
	}

	if dest == "" {
		d.logger.Debug("reusing cached download", "url", url, "path", cached)
		return cached, true
	}

	if err := moveFile(cached, dest); err != nil {
		d.logger.Warn("failed to move cached download", "from", cached, "to", dest, "error", err)
		return "", false
	}
	if err := d.cache.Delete(ctx, url); err != nil {
		d.logger.Warn("failed to drop cache entry", "url", url, "error", err)
	}
	d.logger.Debug("moved cached download", "from", cached, "to", dest)
	return dest, true
}

func (d *Downloader) attempt(ctx context.Context, url, dest string) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, d.cfg.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status)
	}

	target := dest
	if target == "" {
		target = tempPath(d.cfg.TempDir, url, InferFilename(resp.Header.Get("Content-Disposition"), url))
	}

	if err := writeFileAtomic(target, resp.Body); err != nil {
		return "", err
	}
	return target, nil
}
