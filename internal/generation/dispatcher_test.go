package generation

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/document"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/domain"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/notify"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/scheduler"
)

// MockService is a Service whose behavior is set per test
type MockService struct {
	SubmitFn func(ctx context.Context, params domain.GenerationParams) (string, error)
	PollFn   func(ctx context.Context, jobID string) (*Report, error)

	mu       sync.Mutex
	statuses map[string]string
	next     int
}

func (m *MockService) Submit(ctx context.Context, params domain.GenerationParams) (string, error) {
	if m.SubmitFn != nil {
		return m.SubmitFn(ctx, params)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	return fmt.Sprintf("job-%d", m.next), nil
}

func (m *MockService) Poll(ctx context.Context, jobID string) (*Report, error) {
	if m.PollFn != nil {
		return m.PollFn(ctx, jobID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	status, ok := m.statuses[jobID]
	if !ok {
		status = "wait"
	}
	return &Report{Status: status}, nil
}

func (m *MockService) set(jobID, status string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.statuses == nil {
		m.statuses = make(map[string]string)
	}
	m.statuses[jobID] = status
}

type fakeHost struct {
	mu        sync.Mutex
	next      scheduler.TimerID
	scheduled map[scheduler.TimerID]bool
}

func (h *fakeHost) Schedule(cb scheduler.Callback, first time.Duration) scheduler.TimerID {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.scheduled == nil {
		h.scheduled = make(map[scheduler.TimerID]bool)
	}
	h.next++
	h.scheduled[h.next] = true
	return h.next
}

func (h *fakeHost) Cancel(id scheduler.TimerID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.scheduled, id)
}

func (h *fakeHost) IsScheduled(id scheduler.TimerID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.scheduled[id]
}

func (h *fakeHost) Post(fn func()) { fn() }

type fixture struct {
	dispatcher *Dispatcher
	service    *MockService
	jobs       *document.Jobs
	board      *notify.Board
	host       *fakeHost
	registry   *scheduler.Registry
}

func newFixture(t *testing.T, cfg Config) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	f := &fixture{
		service: &MockService{},
		jobs:    document.NewJobs(),
		board:   notify.NewBoard(100, logger),
		host:    &fakeHost{},
	}
	f.registry = scheduler.NewRegistry(f.host, logger)
	f.dispatcher = NewDispatcher(f.service, f.jobs, f.registry, f.board, cfg, logger)
	return f
}

func params(prompt string) domain.GenerationParams {
	return domain.GenerationParams{Prompt: prompt, Title: prompt, Count: 4, EnablePBR: true}
}

func TestDispatcher_EnqueueArmsTimer(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	require.NoError(t, f.dispatcher.Enqueue(params("a")))
	require.NoError(t, f.dispatcher.Enqueue(params("b")))

	assert.True(t, f.registry.Exists(TimerID))
	assert.Equal(t, scheduler.TimerID(1), f.host.next, "second enqueue must not register again")
	assert.Equal(t, Stats{Queued: 2, Processing: 0, Capacity: 3}, f.dispatcher.Stats())

	err := f.dispatcher.Enqueue(domain.GenerationParams{Prompt: " ", Count: 1})
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 2, f.dispatcher.Stats().Queued)
}

func TestDispatcher_RespectsCapacity(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	for i := 0; i < 5; i++ {
		require.NoError(t, f.dispatcher.Enqueue(params(fmt.Sprintf("p%d", i))))
	}

	assert.Equal(t, 4*time.Second, f.dispatcher.Tick())
	assert.Equal(t, Stats{Queued: 2, Processing: 3, Capacity: 3}, f.dispatcher.Stats())
	assert.Equal(t, []string{"job-1", "job-2", "job-3"}, f.dispatcher.Tracked())
	assert.Equal(t, 3, f.jobs.Len())

	// nothing finished, nothing new submitted
	f.dispatcher.Tick()
	assert.Equal(t, 3, f.dispatcher.Stats().Processing)
	assert.Equal(t, 2, f.dispatcher.Stats().Queued)
}

func TestDispatcher_SuccessFreesCapacity(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	for i := 0; i < 4; i++ {
		require.NoError(t, f.dispatcher.Enqueue(params(fmt.Sprintf("p%d", i))))
	}
	f.dispatcher.Tick()

	f.service.set("job-1", "success")
	f.dispatcher.Tick()
	assert.Equal(t, []string{"job-2", "job-3"}, f.dispatcher.Tracked())

	job, err := f.jobs.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusSuccess, job.Status, "finished jobs stay in the store")

	f.dispatcher.Tick()
	assert.Equal(t, []string{"job-2", "job-3", "job-4"}, f.dispatcher.Tracked())
	assert.Equal(t, 0, f.dispatcher.Stats().Queued)
}

func TestDispatcher_FailRemovesJob(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.NoError(t, f.dispatcher.Enqueue(params("a")))
	f.dispatcher.Tick()

	f.service.set("job-1", "fail")
	assert.Equal(t, scheduler.Stop, f.dispatcher.Tick())

	_, err := f.jobs.Get("job-1")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
	assert.Empty(t, f.dispatcher.Tracked())

	latest, ok := f.board.Latest()
	require.True(t, ok)
	assert.Equal(t, notify.LevelError, latest.Level)
}

func TestDispatcher_SubmitFailureDropsRequest(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.service.SubmitFn = func(ctx context.Context, params domain.GenerationParams) (string, error) {
		return "", errors.New("quota exceeded")
	}
	require.NoError(t, f.dispatcher.Enqueue(params("a")))

	assert.Equal(t, scheduler.Stop, f.dispatcher.Tick())
	assert.Equal(t, Stats{Queued: 0, Processing: 0, Capacity: 3}, f.dispatcher.Stats())
	assert.Equal(t, 0, f.jobs.Len())

	latest, ok := f.board.Latest()
	require.True(t, ok)
	assert.Equal(t, notify.LevelError, latest.Level)
	assert.Contains(t, latest.Text, "quota exceeded")
}

func TestDispatcher_PollErrorsKeepJobTracked(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.service.PollFn = func(ctx context.Context, jobID string) (*Report, error) {
		return nil, errors.New("connection reset")
	}
	require.NoError(t, f.dispatcher.Enqueue(params("a")))

	for i := 0; i < 5; i++ {
		assert.Equal(t, 4*time.Second, f.dispatcher.Tick())
	}
	assert.Equal(t, []string{"job-1"}, f.dispatcher.Tracked())
}

func TestDispatcher_MaxPollFailures(t *testing.T) {
	cfg := DefaultConfig()
	cfg.MaxPollFailures = 2
	f := newFixture(t, cfg)

	var fail atomic.Bool
	fail.Store(true)
	f.service.PollFn = func(ctx context.Context, jobID string) (*Report, error) {
		if fail.Load() {
			return nil, errors.New("timeout")
		}
		return &Report{Status: "processing"}, nil
	}
	require.NoError(t, f.dispatcher.Enqueue(params("a")))

	f.dispatcher.Tick()
	assert.Len(t, f.dispatcher.Tracked(), 1)

	// a success in between resets the counter
	fail.Store(false)
	f.dispatcher.Tick()
	fail.Store(true)
	f.dispatcher.Tick()
	assert.Len(t, f.dispatcher.Tracked(), 1)

	assert.Equal(t, scheduler.Stop, f.dispatcher.Tick())
	assert.Empty(t, f.dispatcher.Tracked())
	_, err := f.jobs.Get("job-1")
	assert.ErrorIs(t, err, domain.ErrJobNotFound)
}

func TestDispatcher_StatusNeverMovesBackwards(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	require.NoError(t, f.dispatcher.Enqueue(params("a")))
	f.dispatcher.Tick()

	f.service.set("job-1", "processing")
	f.dispatcher.Tick()
	f.service.set("job-1", "wait")
	f.dispatcher.Tick()
	f.service.set("job-1", "mystery")
	f.dispatcher.Tick()

	job, err := f.jobs.Get("job-1")
	require.NoError(t, err)
	assert.Equal(t, domain.JobStatusProcessing, job.Status)
}

func TestDispatcher_StopsWhenIdle(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	assert.Equal(t, scheduler.Stop, f.dispatcher.Tick())

	require.NoError(t, f.dispatcher.Enqueue(params("a")))
	assert.Equal(t, 4*time.Second, f.dispatcher.Tick())
	f.service.set("job-1", "success")
	assert.Equal(t, scheduler.Stop, f.dispatcher.Tick())
}

func TestDispatcher_ResultHookAndMerge(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.service.PollFn = func(ctx context.Context, jobID string) (*Report, error) {
		return &Report{Status: "success", Results: []domain.Result{
			{AssetID: "a1", ModelURL: "https://cdn/a1.glb", Previews: []domain.Preview{
				{Kind: domain.PreviewImage, URL: "https://cdn/a1.png"},
			}},
		}}, nil
	}

	var hooked []string
	f.dispatcher.SetResultHook(func(job *domain.GenerationJob) {
		hooked = append(hooked, job.ID)
		require.Len(t, job.Results, 1)
		assert.Equal(t, "https://cdn/a1.glb", job.Results[0].ModelURL)
	})

	require.NoError(t, f.dispatcher.Enqueue(params("a")))
	f.dispatcher.Tick()
	assert.Equal(t, []string{"job-1"}, hooked)
}

func TestDispatcher_PollsRunConcurrently(t *testing.T) {
	f := newFixture(t, DefaultConfig())

	var arrived int32
	all := make(chan struct{})
	f.service.PollFn = func(ctx context.Context, jobID string) (*Report, error) {
		if atomic.AddInt32(&arrived, 1) == 3 {
			close(all)
		}
		select {
		case <-all:
			return &Report{Status: "processing"}, nil
		case <-time.After(2 * time.Second):
			return nil, errors.New("polls were serialized")
		}
	}

	for i := 0; i < 3; i++ {
		require.NoError(t, f.dispatcher.Enqueue(params(fmt.Sprintf("p%d", i))))
	}
	f.dispatcher.Tick()

	for _, id := range []string{"job-1", "job-2", "job-3"} {
		job, err := f.jobs.Get(id)
		require.NoError(t, err)
		assert.Equal(t, domain.JobStatusProcessing, job.Status, id)
	}
}

func TestDispatcher_CloseRejectsRequests(t *testing.T) {
	f := newFixture(t, DefaultConfig())
	f.dispatcher.Close()
	assert.ErrorIs(t, f.dispatcher.Enqueue(params("a")), ErrDispatcherClosed)
}
