package api

import (
	"net/http"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/api/shared"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/generation"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/notify"
)

// DefaultStatusMessages is how many recent messages /api/status returns
const DefaultStatusMessages = 20

// Worker is a lazily started background worker
type Worker interface {
	Alive() bool
	Pending() int
}

// StatsSource reports dispatcher load
type StatsSource interface {
	Stats() generation.Stats
}

// MessageSource returns recent status messages
type MessageSource interface {
	Recent(n int) []notify.Message
}

// StatusHandler serves GET /api/status
type StatusHandler struct {
	dispatcher StatsSource
	downloads  Worker
	images     Worker
	messages   MessageSource
}

// NewStatusHandler creates a new StatusHandler
func NewStatusHandler(dispatcher StatsSource, downloads, images Worker, messages MessageSource) *StatusHandler {
	return &StatusHandler{
		dispatcher: dispatcher,
		downloads:  downloads,
		images:     images,
		messages:   messages,
	}
}

// Status reports worker state and the most recent status messages
func (h *StatusHandler) Status(w http.ResponseWriter, r *http.Request) {
	s := h.dispatcher.Stats()
	messages := h.messages.Recent(DefaultStatusMessages)
	if messages == nil {
		messages = []notify.Message{}
	}

	shared.RespondWithJSON(w, r, http.StatusOK, StatusResponse{
		Generation: GenerationStatus{Queued: s.Queued, Processing: s.Processing, Capacity: s.Capacity},
		Downloads:  WorkerStatus{Alive: h.downloads.Alive(), Pending: h.downloads.Pending()},
		Images:     WorkerStatus{Alive: h.images.Alive(), Pending: h.images.Pending()},
		Messages:   messages,
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}
