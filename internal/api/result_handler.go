package api

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/api/shared"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/platform/logger"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/service"
)

// ResultService is what the result endpoints need
type ResultService interface {
	Save(ctx context.Context, jobID, assetID string, doImport bool) (string, error)
	Import(ctx context.Context, jobID, assetID string) (service.ImportMode, error)
	Discard(ctx context.Context, jobID, assetID string) error
}

// ResultHandler serves /api/generations/{jobID}/results/{assetID}
type ResultHandler struct {
	results ResultService
	logger  *slog.Logger
}

// NewResultHandler creates a new ResultHandler
func NewResultHandler(results ResultService, logger *slog.Logger) *ResultHandler {
	return &ResultHandler{
		results: results,
		logger:  logger.With(slog.String("component", "result_handler")),
	}
}

// Save handles POST .../save with an optional {"import": bool} body
func (h *ResultHandler) Save(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	jobID, assetID, ok := handleResultPath(w, r, log)
	if !ok {
		return
	}

	var req SaveRequest
	if err := decodeOptionalJSON(r, &req); err != nil {
		shared.RespondWithErrorAndLog(w, r, http.StatusBadRequest, "Invalid request format", err)
		return
	}

	path, err := h.results.Save(r.Context(), jobID, assetID, req.Import)
	if err != nil {
		respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if req.Import {
		status = http.StatusAccepted
	}
	shared.RespondWithJSON(w, r, status, SaveResponse{Path: path, Imported: req.Import})
}

// Import handles POST .../import
func (h *ResultHandler) Import(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	jobID, assetID, ok := handleResultPath(w, r, log)
	if !ok {
		return
	}

	mode, err := h.results.Import(r.Context(), jobID, assetID)
	if err != nil {
		respondError(w, r, err)
		return
	}

	status := http.StatusOK
	if mode == service.ImportQueued {
		status = http.StatusAccepted
	}
	shared.RespondWithJSON(w, r, status, ImportResponse{Mode: string(mode)})
}

// Discard handles DELETE .../results/{assetID}
func (h *ResultHandler) Discard(w http.ResponseWriter, r *http.Request) {
	log := logger.FromContextOrDefault(r.Context(), h.logger)
	jobID, assetID, ok := handleResultPath(w, r, log)
	if !ok {
		return
	}

	if err := h.results.Discard(r.Context(), jobID, assetID); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
