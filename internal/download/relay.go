package download

import (
	"log/slog"
	"time"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/notify"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/scheduler"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/task"
)

// RelayTimerID names the import relay callback
const RelayTimerID = "import_model_request_timer"

// Importer materializes downloaded files in the document
type Importer interface {
	ImportAsset(path string) (string, error)
	RenameObject(oldName, newName string) (string, error)
}

// ImportItem is a downloaded file waiting to be imported
type ImportItem struct {
	AssetID string
	Path    string
}

// Relay moves finished downloads onto the main context and imports them
type Relay struct {
	queue    *task.Queue[ImportItem]
	registry *scheduler.Registry
	importer Importer
	alive    func() bool
	reporter notify.Reporter
	interval time.Duration
	logger   *slog.Logger
}

// NewRelay creates a relay that keeps running while alive reports true
func NewRelay(
	registry *scheduler.Registry,
	importer Importer,
	alive func() bool,
	reporter notify.Reporter,
	interval time.Duration,
	logger *slog.Logger,
) *Relay {
	return &Relay{
		queue:    task.NewQueue[ImportItem](),
		registry: registry,
		importer: importer,
		alive:    alive,
		reporter: reporter,
		interval: interval,
		logger:   logger.With("component", "import_relay"),
	}
}

// Push queues a file for import. Safe from any goroutine.
func (r *Relay) Push(item ImportItem) {
	if err := r.queue.Push(item); err != nil {
		r.logger.Error("failed to queue import", "asset_id", item.AssetID, "error", err)
	}
}

// Arm makes sure the relay callback is registered
func (r *Relay) Arm() {
	r.registry.Ensure(RelayTimerID, r.Tick, r.interval)
}

// Pending returns the number of files waiting for import
func (r *Relay) Pending() int {
	return r.queue.Len()
}

// Tick drains every queued import. It samples the worker state before
// draining, so files pushed just before the worker exits are still imported
// by the final tick.
func (r *Relay) Tick() time.Duration {
	alive := r.alive()

	for _, item := range r.queue.Drain() {
		r.importOne(item)
	}

	if !alive {
		return scheduler.Stop
	}
	return r.interval
}

func (r *Relay) importOne(item ImportItem) {
	name, err := r.importer.ImportAsset(item.Path)
	if err != nil {
		r.reporter.Report(notify.LevelError, "Import of %s failed: %v", item.AssetID, err)
		return
	}

	renamed, err := r.importer.RenameObject(name, item.AssetID)
	if err != nil {
		r.reporter.Report(notify.LevelWarning, "Imported %s but could not rename it: %v", item.AssetID, err)
		return
	}
	r.logger.Info("model imported", "asset_id", item.AssetID, "object", renamed, "path", item.Path)
}
