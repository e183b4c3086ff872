package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/task"
)

// Stop is returned by a Callback to end its recurrence
const Stop time.Duration = -1

// ErrLoopStopped is returned by Do when the loop is no longer running
var ErrLoopStopped = errors.New("main loop stopped")

// Callback is a recurring unit of main-context work. It returns the delay
// until its next run, or Stop.
type Callback func() time.Duration

// TimerID identifies a callback scheduled on a Host
type TimerID uint64

// Host is the cooperative scheduler the rest of the system runs on
type Host interface {
	// Schedule runs cb after first and then after every delay it returns
	Schedule(cb Callback, first time.Duration) TimerID
	// Cancel removes a scheduled callback; unknown ids are ignored
	Cancel(id TimerID)
	// IsScheduled reports whether the callback will run again
	IsScheduled(id TimerID) bool
	// Post runs fn on the main context as soon as possible
	Post(fn func())
}

type timer struct {
	cb    Callback
	first time.Duration
	due   time.Time
}

// Loop is the Host implementation. Run must be called exactly once; every
// callback and posted closure executes on the goroutine that called it.
type Loop struct {
	mu     sync.Mutex
	timers map[TimerID]*timer
	nextID TimerID

	posts *task.Queue[func()]
	wake  chan struct{}
	done  chan struct{}

	logger *slog.Logger
}

// NewLoop creates a loop that is not yet running
func NewLoop(logger *slog.Logger) *Loop {
	return &Loop{
		timers: make(map[TimerID]*timer),
		posts:  task.NewQueue[func()](),
		wake:   make(chan struct{}, 1),
		done:   make(chan struct{}),
		logger: logger.With("component", "main_loop"),
	}
}

// Schedule implements Host
func (l *Loop) Schedule(cb Callback, first time.Duration) TimerID {
	if first < 0 {
		first = 0
	}

	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.timers[id] = &timer{cb: cb, first: first, due: time.Now().Add(first)}
	l.mu.Unlock()

	l.signal()
	return id
}

// Cancel implements Host
func (l *Loop) Cancel(id TimerID) {
	l.mu.Lock()
	delete(l.timers, id)
	l.mu.Unlock()
}

// IsScheduled implements Host
func (l *Loop) IsScheduled(id TimerID) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.timers[id]
	return ok
}

// Post implements Host. Closures posted after the loop stopped are dropped.
func (l *Loop) Post(fn func()) {
	if err := l.posts.Push(fn); err != nil {
		l.logger.Warn("dropping closure posted to stopped loop")
		return
	}
	l.signal()
}

// Do runs fn on the main context and waits for it to return
func (l *Loop) Do(ctx context.Context, fn func() error) error {
	result := make(chan error, 1)
	l.Post(func() {
		result <- fn()
	})

	select {
	case err := <-result:
		return err
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		// The closure may have run right before the loop exited
		select {
		case err := <-result:
			return err
		default:
			return ErrLoopStopped
		}
	}
}

// Run executes the loop until ctx is cancelled
func (l *Loop) Run(ctx context.Context) error {
	l.logger.Info("main loop started")
	defer func() {
		l.posts.Close()
		close(l.done)
		l.logger.Info("main loop stopped")
	}()

	wait := time.NewTimer(time.Hour)
	defer wait.Stop()

	for {
		l.runPosted()
		next := l.runDue(time.Now())

		if !wait.Stop() {
			select {
			case <-wait.C:
			default:
			}
		}
		wait.Reset(next)

		select {
		case <-ctx.Done():
			return nil
		case <-l.wake:
		case <-wait.C:
		}
	}
}

func (l *Loop) signal() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

func (l *Loop) runPosted() {
	for _, fn := range l.posts.Drain() {
		l.safeCall(func() { fn() })
	}
}

// runDue fires every timer that is due at now and returns how long to sleep
// until the earliest remaining one
func (l *Loop) runDue(now time.Time) time.Duration {
	l.mu.Lock()
	var due []TimerID
	for id, t := range l.timers {
		if !t.due.After(now) {
			due = append(due, id)
		}
	}
	l.mu.Unlock()

	for _, id := range due {
		l.fire(id)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	next := time.Hour
	for _, t := range l.timers {
		if d := time.Until(t.due); d < next {
			next = d
		}
	}
	if next < 0 {
		next = 0
	}
	return next
}

func (l *Loop) fire(id TimerID) {
	l.mu.Lock()
	t, ok := l.timers[id]
	l.mu.Unlock()
	if !ok {
		return
	}

	var delay time.Duration
	panicked := l.safeCall(func() { delay = t.cb() })
	if panicked {
		delay = t.first
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	// The callback may have cancelled itself
	if _, ok := l.timers[id]; !ok {
		return
	}
	if delay < 0 {
		delete(l.timers, id)
		return
	}
	t.due = time.Now().Add(delay)
}

func (l *Loop) safeCall(fn func()) (panicked bool) {
	defer func() {
		if r := recover(); r != nil {
			panicked = true
			l.logger.Error("recovered panic on main context",
				"error", fmt.Sprint(r))
		}
	}()
	fn()
	return false
}
