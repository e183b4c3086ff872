// Package notify carries user-facing status messages. Components report
// through a Reporter; the Board keeps the most recent messages for the
// status endpoint and forwards each one to registered listeners.
package notify

import (
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// Level is the severity of a status message
type Level string

// Possible message levels
const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Message is a single status report
type Message struct {
	Level Level     `json:"level"`
	Text  string    `json:"text"`
	Time  time.Time `json:"time"`
}

// Reporter is implemented by anything that accepts status messages
type Reporter interface {
	Report(level Level, format string, args ...any)
}

// Listener receives every message posted to a Board
type Listener interface {
	HandleMessage(msg Message)
}

// ListenerFunc adapts a function to Listener
type ListenerFunc func(msg Message)

// HandleMessage implements Listener
func (f ListenerFunc) HandleMessage(msg Message) { f(msg) }

// DefaultCapacity is the number of messages a Board keeps
const DefaultCapacity = 50

// Board is the in-memory Reporter
type Board struct {
	mu        sync.RWMutex
	messages  []Message
	capacity  int
	listeners []Listener
	logger    *slog.Logger
}

// NewBoard creates a board keeping the last capacity messages
func NewBoard(capacity int, logger *slog.Logger) *Board {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Board{
		capacity: capacity,
		logger:   logger.With("component", "status_board"),
	}
}

// RegisterListener adds a listener for future messages
func (b *Board) RegisterListener(l Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners = append(b.listeners, l)
}

// Report implements Reporter. The message is also written to the log at the
// matching level.
func (b *Board) Report(level Level, format string, args ...any) {
	msg := Message{
		Level: level,
		Text:  fmt.Sprintf(format, args...),
		Time:  time.Now().UTC(),
	}

	switch level {
	case LevelError:
		b.logger.Error(msg.Text)
	case LevelWarning:
		b.logger.Warn(msg.Text)
	default:
		b.logger.Info(msg.Text)
	}

	b.mu.Lock()
	b.messages = append(b.messages, msg)
	if over := len(b.messages) - b.capacity; over > 0 {
		b.messages = append([]Message(nil), b.messages[over:]...)
	}
	listeners := make([]Listener, len(b.listeners))
	copy(listeners, b.listeners)
	b.mu.Unlock()

	for _, l := range listeners {
		l.HandleMessage(msg)
	}
}

// Recent returns up to n messages, newest last. n <= 0 returns all.
func (b *Board) Recent(n int) []Message {
	b.mu.RLock()
	defer b.mu.RUnlock()

	start := 0
	if n > 0 && n < len(b.messages) {
		start = len(b.messages) - n
	}
	return append([]Message(nil), b.messages[start:]...)
}

// Latest returns the newest message
func (b *Board) Latest() (Message, bool) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.messages) == 0 {
		return Message{}, false
	}
	return b.messages[len(b.messages)-1], true
}

type discard struct{}

func (discard) Report(Level, string, ...any) {}

// Discard is a Reporter that drops everything
var Discard Reporter = discard{}
