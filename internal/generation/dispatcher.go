package generation

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/domain"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/notify"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/scheduler"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/task"
)

// TimerID names the dispatcher callback
const TimerID = "generation_timer"

// Config holds the dispatcher settings
type Config struct {
	// Capacity is the maximum number of jobs submitted but not finished
	Capacity int
	// PollInterval is the tick period while work remains
	PollInterval time.Duration
	// FirstDelay is the delay before the first tick after arming
	FirstDelay time.Duration
	// CallTimeout bounds each Submit and Poll call. Ticks run on the main
	// context, so it is also the longest a tick can hold it.
	CallTimeout time.Duration
	// MaxPollFailures fails a job after that many consecutive poll errors.
	// Zero keeps polling forever.
	MaxPollFailures int
}

// DefaultConfig returns the standard settings
func DefaultConfig() Config {
	return Config{
		Capacity:     3,
		PollInterval: 4 * time.Second,
		FirstDelay:   time.Second,
		CallTimeout:  10 * time.Second,
	}
}

// Stats is a snapshot of the dispatcher load
type Stats struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Capacity   int `json:"capacity"`
}

type tracked struct {
	job      *domain.GenerationJob
	failures int
}

// Dispatcher submits queued requests and polls them to completion
type Dispatcher struct {
	service  Service
	store    JobStore
	registry *scheduler.Registry
	reporter notify.Reporter
	cfg      Config
	logger   *slog.Logger

	queue *task.Queue[domain.GenerationParams]

	// tracked and order are only touched on the main context; mu guards
	// them for Stats and Tracked readers on other goroutines
	mu      sync.RWMutex
	tracked map[string]*tracked
	order   []string

	hook func(job *domain.GenerationJob)

	ctx    context.Context
	cancel context.CancelFunc
}

// NewDispatcher creates an idle dispatcher
func NewDispatcher(
	service Service,
	store JobStore,
	registry *scheduler.Registry,
	reporter notify.Reporter,
	cfg Config,
	logger *slog.Logger,
) *Dispatcher {
	defaults := DefaultConfig()
	if cfg.Capacity <= 0 {
		logger.Warn("invalid dispatch capacity specified, using default",
			"specified_capacity", cfg.Capacity,
			"default_capacity", defaults.Capacity)
		cfg.Capacity = defaults.Capacity
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaults.PollInterval
	}
	if cfg.FirstDelay < 0 {
		cfg.FirstDelay = 0
	}
	if cfg.CallTimeout <= 0 {
		cfg.CallTimeout = defaults.CallTimeout
	}
	if reporter == nil {
		reporter = notify.Discard
	}

	ctx, cancel := context.WithCancel(context.Background())

	return &Dispatcher{
		service:  service,
		store:    store,
		registry: registry,
		reporter: reporter,
		cfg:      cfg,
		logger:   logger.With("component", "dispatcher"),
		queue:    task.NewQueue[domain.GenerationParams](),
		tracked:  make(map[string]*tracked),
		ctx:      ctx,
		cancel:   cancel,
	}
}

// SetResultHook registers a function called on the main context after
// every applied poll of a job that did not fail
func (d *Dispatcher) SetResultHook(hook func(job *domain.GenerationJob)) {
	d.hook = hook
}

// Enqueue validates params, queues them and makes sure the dispatcher
// callback is running
func (d *Dispatcher) Enqueue(params domain.GenerationParams) error {
	if err := params.Validate(); err != nil {
		return err
	}
	if err := d.queue.Push(params); err != nil {
		return ErrDispatcherClosed
	}

	d.logger.Info("generation request queued",
		"prompt", params.Prompt,
		"count", params.Count,
		"queue_len", d.queue.Len())
	d.registry.Ensure(TimerID, d.Tick, d.cfg.FirstDelay)
	return nil
}

// Stats returns the current queue and in-flight counts
func (d *Dispatcher) Stats() Stats {
	d.mu.RLock()
	processing := len(d.tracked)
	d.mu.RUnlock()

	return Stats{
		Queued:     d.queue.Len(),
		Processing: processing,
		Capacity:   d.cfg.Capacity,
	}
}

// Tracked returns the IDs of in-flight jobs in submission order
func (d *Dispatcher) Tracked() []string {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return append([]string(nil), d.order...)
}

// Close rejects new requests and aborts in-flight remote calls
func (d *Dispatcher) Close() {
	d.queue.Close()
	d.cancel()
}

// Tick is the dispatcher callback. It fills free capacity from the queue,
// polls every tracked job and applies the results.
func (d *Dispatcher) Tick() time.Duration {
	for d.inFlight() < d.cfg.Capacity {
		params, ok := d.queue.Pop()
		if !ok {
			break
		}
		d.submit(params)
	}

	if d.inFlight() > 0 {
		d.pollAll()
	}

	if d.inFlight() == 0 && d.queue.Len() == 0 {
		d.logger.Debug("no work left, dispatcher stopping")
		return scheduler.Stop
	}
	return d.cfg.PollInterval
}

func (d *Dispatcher) inFlight() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.tracked)
}

func (d *Dispatcher) submit(params domain.GenerationParams) {
	ctx, cancel := context.WithTimeout(d.ctx, d.cfg.CallTimeout)
	defer cancel()

	id, err := d.service.Submit(ctx, params)
	if err != nil {
		d.reporter.Report(notify.LevelError, "Failed to generate 3D model: %v", err)
		return
	}

	job := domain.NewGenerationJob(id, params)
	d.store.Add(job)
	d.track(job)

	d.logger.Info("generation submitted", "job_id", id, "in_flight", d.inFlight())
}

type pollOutcome struct {
	report *Report
	err    error
}

// pollAll fetches every tracked job concurrently, then applies the
// responses one by one in submission order
func (d *Dispatcher) pollAll() {
	ids := d.Tracked()
	outcomes := make([]pollOutcome, len(ids))

	var g errgroup.Group
	g.SetLimit(d.cfg.Capacity)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			ctx, cancel := context.WithTimeout(d.ctx, d.cfg.CallTimeout)
			defer cancel()

			report, err := d.service.Poll(ctx, id)
			if err == nil && report == nil {
				err = fmt.Errorf("%w: empty report", ErrInvalidResponse)
			}
			outcomes[i] = pollOutcome{report: report, err: err}
			return nil
		})
	}
	_ = g.Wait()

	for i, id := range ids {
		d.apply(id, outcomes[i])
	}
}

func (d *Dispatcher) apply(id string, out pollOutcome) {
	d.mu.RLock()
	t, ok := d.tracked[id]
	d.mu.RUnlock()
	if !ok {
		return
	}
	job := t.job

	if out.err != nil {
		t.failures++
		d.logger.Warn("poll failed",
			"job_id", id,
			"consecutive_failures", t.failures,
			"error", out.err)
		if d.cfg.MaxPollFailures > 0 && t.failures >= d.cfg.MaxPollFailures {
			job.Advance(domain.JobStatusFail)
			d.finish(job)
		}
		return
	}
	t.failures = 0

	job.MergeResults(out.report.Results)
	if status, known := domain.ParseRemoteStatus(out.report.Status); known {
		if job.Advance(status) {
			d.logger.Info("generation status changed", "job_id", id, "status", job.Status)
		}
	} else {
		d.logger.Debug("ignoring unknown remote status", "job_id", id, "status", out.report.Status)
	}

	if job.Status.Terminal() {
		d.finish(job)
	}
	if job.Status != domain.JobStatusFail && d.hook != nil {
		d.hook(job)
	}
}

// finish releases the job's slot. Failed jobs also leave the job store.
func (d *Dispatcher) finish(job *domain.GenerationJob) {
	d.untrack(job.ID)

	switch job.Status {
	case domain.JobStatusSuccess:
		d.reporter.Report(notify.LevelInfo, "Generation %s finished with %d result(s)", job.ID, len(job.Results))
	case domain.JobStatusFail:
		if err := d.store.Remove(job.ID); err != nil {
			d.logger.Warn("failed job already gone from store", "job_id", job.ID, "error", err)
		}
		d.reporter.Report(notify.LevelError, "Generation %s failed", job.ID)
	}
}

func (d *Dispatcher) track(job *domain.GenerationJob) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if _, ok := d.tracked[job.ID]; !ok {
		d.order = append(d.order, job.ID)
	}
	d.tracked[job.ID] = &tracked{job: job}
}

func (d *Dispatcher) untrack(id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.tracked, id)
	for i, v := range d.order {
		if v == id {
			d.order = append(d.order[:i], d.order[i+1:]...)
			break
		}
	}
}
