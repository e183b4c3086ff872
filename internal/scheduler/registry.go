package scheduler

import (
	"log/slog"
	"sync"
	"time"
)

// Registry manages named recurring callbacks on a Host. A name maps to at
// most one live registration.
type Registry struct {
	host    Host
	mu      sync.Mutex
	entries map[string]TimerID
	logger  *slog.Logger
}

// NewRegistry creates an empty registry bound to host
func NewRegistry(host Host, logger *slog.Logger) *Registry {
	return &Registry{
		host:    host,
		entries: make(map[string]TimerID),
		logger:  logger.With("component", "timer_registry"),
	}
}

// Register schedules cb under uid unless a live registration already
// exists. It reports whether a new registration was made.
func (r *Registry) Register(uid string, cb Callback, first time.Duration) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.existsLocked(uid) {
		return false
	}
	r.entries[uid] = r.host.Schedule(cb, first)
	r.logger.Debug("timer registered", "uid", uid, "first", first)
	return true
}

// Ensure registers cb under uid from the main context, after whatever is
// currently running there. Producers call this instead of Register so a
// callback that is about to return Stop cannot swallow their request.
func (r *Registry) Ensure(uid string, cb Callback, first time.Duration) {
	r.host.Post(func() {
		r.Register(uid, cb, first)
	})
}

// Exists reports whether uid has a live registration, forgetting it when
// the host no longer runs it
func (r *Registry) Exists(uid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.existsLocked(uid)
}

// Remove cancels uid. It reports whether a registration was found.
func (r *Registry) Remove(uid string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.entries[uid]
	if !ok {
		return false
	}
	delete(r.entries, uid)
	r.host.Cancel(id)
	r.logger.Debug("timer removed", "uid", uid)
	return true
}

// RemoveAll cancels every registration
func (r *Registry) RemoveAll() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for uid, id := range r.entries {
		r.host.Cancel(id)
		delete(r.entries, uid)
	}
	r.logger.Info("all timers removed")
}

func (r *Registry) existsLocked(uid string) bool {
	id, ok := r.entries[uid]
	if !ok {
		return false
	}
	if !r.host.IsScheduled(id) {
		delete(r.entries, uid)
		return false
	}
	return true
}
