package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/api/shared"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/domain"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/generation"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/platform/logger"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/service"
)

// GenerationService is what the generation endpoints need
type GenerationService interface {
	RequestTextTo3D(ctx context.Context, req service.TextTo3DRequest) (domain.GenerationParams, error)
	Jobs(ctx context.Context) ([]domain.GenerationJob, error)
	Job(ctx context.Context, id string) (domain.GenerationJob, error)
	Stats() generation.Stats
}

// GenerationHandler serves /api/generations
type GenerationHandler struct {
	generations GenerationService
	logger      *slog.Logger
}

// NewGenerationHandler creates a new GenerationHandler
func NewGenerationHandler(generations GenerationService, logger *slog.Logger) *GenerationHandler {
	return &GenerationHandler{
		generations: generations,
		logger:      logger.With(slog.String("component", "generation_handler")),
	}
}

// Create handles POST /api/generations. The request is queued, not
// submitted, so the response is 202.
func (h *GenerationHandler) Create(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)

	var req CreateGenerationRequest
	if err := shared.DecodeJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}
	if err := shared.ValidateRequest(req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, SanitizeValidationError(err), err)
		return
	}

	params, err := h.generations.RequestTextTo3D(r.Context(), service.TextTo3DRequest{
		Prompt:    req.Prompt,
		Style:     req.Style,
		Count:     req.Count,
		EnablePBR: req.EnablePBR,
	})
	if err != nil {
		respondError(w, r, err)
		return
	}

	stats := h.generations.Stats()
	log.Info("generation queued", slog.Int("count", params.Count), slog.Int("queued", stats.Queued))
	shared.RespondWithJSON(w, r, http.StatusAccepted, GenerationAcceptedResponse{
		Params: params,
		Queued: stats.Queued,
	})
}

// List handles GET /api/generations
func (h *GenerationHandler) List(w http.ResponseWriter, r *http.Request) {
	jobs, err := h.generations.Jobs(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}

	out := make([]JobResponse, 0, len(jobs))
	for _, job := range jobs {
		out = append(out, jobToResponse(job))
	}
	shared.RespondWithJSON(w, r, http.StatusOK, out)
}

// Get handles GET /api/generations/{jobID}
func (h *GenerationHandler) Get(w http.ResponseWriter, r *http.Request) {
	jobID, err := getPathParam(r, "jobID")
	if err != nil {
		respondError(w, r, err)
		return
	}

	job, err := h.generations.Job(r.Context(), jobID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, jobToResponse(job))
}

// Stats handles GET /api/generations/stats
func (h *GenerationHandler) Stats(w http.ResponseWriter, r *http.Request) {
	s := h.generations.Stats()
	shared.RespondWithJSON(w, r, http.StatusOK, GenerationStatus{
		Queued:     s.Queued,
		Processing: s.Processing,
		Capacity:   s.Capacity,
	})
}
