package scheduler

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// fakeHost records schedules and runs posted closures immediately
type fakeHost struct {
	mu        sync.Mutex
	next      TimerID
	scheduled map[TimerID]time.Duration
	posts     int
}

func newFakeHost() *fakeHost {
	return &fakeHost{scheduled: make(map[TimerID]time.Duration)}
}

func (h *fakeHost) Schedule(cb Callback, first time.Duration) TimerID {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.next++
	h.scheduled[h.next] = first
	return h.next
}

func (h *fakeHost) Cancel(id TimerID) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.scheduled, id)
}

func (h *fakeHost) IsScheduled(id TimerID) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	_, ok := h.scheduled[id]
	return ok
}

func (h *fakeHost) Post(fn func()) {
	h.mu.Lock()
	h.posts++
	h.mu.Unlock()
	fn()
}

// finish simulates a callback returning Stop
func (h *fakeHost) finish(id TimerID) {
	h.Cancel(id)
}

func (h *fakeHost) count() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.scheduled)
}

func noop() time.Duration { return Stop }

func TestRegistry_RegisterIsIdempotent(t *testing.T) {
	host := newFakeHost()
	reg := NewRegistry(host, setupTestLogger())

	assert.True(t, reg.Register("generation_timer", noop, 0))
	assert.False(t, reg.Register("generation_timer", noop, 0))
	assert.Equal(t, 1, host.count())
	assert.True(t, reg.Exists("generation_timer"))
}

func TestRegistry_ExistsPurgesFinishedCallbacks(t *testing.T) {
	host := newFakeHost()
	reg := NewRegistry(host, setupTestLogger())

	reg.Register("import_model_request_timer", noop, 0)
	host.finish(host.next)

	assert.False(t, reg.Exists("import_model_request_timer"))
	assert.True(t, reg.Register("import_model_request_timer", noop, 0), "a stale entry must not block re-registration")
	assert.Equal(t, 1, host.count())
}

func TestRegistry_Remove(t *testing.T) {
	host := newFakeHost()
	reg := NewRegistry(host, setupTestLogger())

	reg.Register("a", noop, 0)
	assert.True(t, reg.Remove("a"))
	assert.False(t, reg.Remove("a"))
	assert.False(t, reg.Exists("a"))
	assert.Equal(t, 0, host.count())
}

func TestRegistry_RemoveAll(t *testing.T) {
	host := newFakeHost()
	reg := NewRegistry(host, setupTestLogger())

	reg.Register("a", noop, 0)
	reg.Register("b", noop, time.Second)
	reg.RemoveAll()

	assert.False(t, reg.Exists("a"))
	assert.False(t, reg.Exists("b"))
	assert.Equal(t, 0, host.count())
}

func TestRegistry_EnsurePostsRegistration(t *testing.T) {
	host := newFakeHost()
	reg := NewRegistry(host, setupTestLogger())

	reg.Ensure("image_processing", noop, 100*time.Millisecond)
	reg.Ensure("image_processing", noop, 100*time.Millisecond)

	assert.Equal(t, 2, host.posts)
	assert.Equal(t, 1, host.count())
	assert.Equal(t, 100*time.Millisecond, host.scheduled[host.next])
}

func TestRegistry_OnRealLoop(t *testing.T) {
	loop := startLoop(t)
	reg := NewRegistry(loop, setupTestLogger())

	ticks := make(chan struct{}, 10)
	reg.Register("tick", func() time.Duration {
		ticks <- struct{}{}
		return Stop
	}, 0)

	select {
	case <-ticks:
	case <-time.After(time.Second):
		t.Fatal("callback did not run")
	}
	assert.Eventually(t, func() bool { return !reg.Exists("tick") }, time.Second, time.Millisecond)
}
