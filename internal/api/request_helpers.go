package api

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/api/shared"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/domain"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/platform/logger"
)

// getPathParam extracts a required, non-empty path parameter.
//
// Parameters:
//   - r: The HTTP request
//   - paramName: The name of the path parameter to extract
//
// Returns:
//   - (value, nil): The parameter value
//   - ("", error): A validation error if the parameter is missing
func getPathParam(r *http.Request, paramName string) (string, error) {
	value := chi.URLParam(r, paramName)
	if value == "" {
		return "", fmt.Errorf("%w: %s is required", domain.ErrValidation, paramName)
	}
	return value, nil
}

// handleResultPath extracts the job and asset IDs of a result route. It
// writes an error response and returns false when either is missing.
func handleResultPath(w http.ResponseWriter, r *http.Request, log *slog.Logger) (string, string, bool) {
	if log == nil {
		log = logger.FromContextOrDefault(r.Context(), slog.Default())
	}

	jobID, err := getPathParam(r, "jobID")
	if err != nil {
		log.Warn("invalid jobID path parameter")
		shared.RespondWithError(w, r, http.StatusBadRequest, "Job ID is required")
		return "", "", false
	}
	assetID, err := getPathParam(r, "assetID")
	if err != nil {
		log.Warn("invalid assetID path parameter", slog.String("job_id", jobID))
		shared.RespondWithError(w, r, http.StatusBadRequest, "Asset ID is required")
		return "", "", false
	}
	return jobID, assetID, true
}

// decodeOptionalJSON decodes the body into v; an empty body leaves v unchanged
func decodeOptionalJSON(r *http.Request, v any) error {
	err := shared.DecodeJSON(r, v)
	if errors.Is(err, shared.ErrEmptyBody) {
		return nil
	}
	return err
}
