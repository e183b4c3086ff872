package api

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/api/shared"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/document"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/domain"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/download"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/generation"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/platform/hunyuan"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/scheduler"
)

// MapErrorToStatusCode maps internal errors to HTTP status codes without
// leaking internal error types to clients.
func MapErrorToStatusCode(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, shared.ErrEmptyBody):
		return http.StatusBadRequest

	case errors.Is(err, domain.ErrJobNotFound),
		errors.Is(err, domain.ErrResultNotFound),
		errors.Is(err, document.ErrImageNotFound),
		errors.Is(err, document.ErrObjectNotFound):
		return http.StatusNotFound

	case errors.Is(err, domain.ErrNoModelURL):
		return http.StatusConflict

	case errors.Is(err, document.ErrNotGLB):
		return http.StatusUnprocessableEntity

	case errors.Is(err, hunyuan.ErrUnauthorized):
		return http.StatusUnauthorized

	case errors.Is(err, download.ErrHTTPStatus),
		errors.Is(err, hunyuan.ErrHTTPStatus),
		errors.Is(err, generation.ErrInvalidResponse):
		return http.StatusBadGateway

	case errors.Is(err, generation.ErrDispatcherClosed),
		errors.Is(err, scheduler.ErrLoopStopped):
		return http.StatusServiceUnavailable

	default:
		return http.StatusInternalServerError
	}
}

// GetSafeErrorMessage returns a user-facing message for err
func GetSafeErrorMessage(err error) string {
	if err == nil {
		return "An unexpected error occurred"
	}

	switch {
	case errors.Is(err, domain.ErrEmptyPrompt):
		return "Prompt must not be empty"
	case errors.Is(err, domain.ErrInvalidCount):
		return fmt.Sprintf("Count must be between %d and %d", domain.MinCount, domain.MaxCount)
	case errors.Is(err, domain.ErrValidation):
		return "Validation error"
	case errors.Is(err, shared.ErrEmptyBody):
		return "Request body is required"
	case errors.Is(err, domain.ErrJobNotFound):
		return "Job not found"
	case errors.Is(err, domain.ErrResultNotFound):
		return "Result not found"
	case errors.Is(err, domain.ErrNoModelURL):
		return "Result has no model yet"
	case errors.Is(err, document.ErrNotGLB):
		return "Model file is not a binary glTF"
	case errors.Is(err, hunyuan.ErrUnauthorized):
		return "Hunyuan session rejected, check token and user id"
	case errors.Is(err, download.ErrHTTPStatus):
		return "Model download failed"
	case errors.Is(err, hunyuan.ErrHTTPStatus),
		errors.Is(err, generation.ErrInvalidResponse):
		return "Remote service error"
	case errors.Is(err, generation.ErrDispatcherClosed),
		errors.Is(err, scheduler.ErrLoopStopped):
		return "Bridge is shutting down"
	default:
		return "An unexpected error occurred"
	}
}

// SanitizeValidationError turns a validator error into a short message
// naming the first offending field.
func SanitizeValidationError(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return "Validation error"
	}
	fe := verrs[0]
	return fmt.Sprintf("Invalid %s: %s", strings.ToLower(fe.Field()), getValidationTagMessage(fe.Tag()))
}

// getValidationTagMessage maps validation tags to user-friendly error messages
func getValidationTagMessage(tag string) string {
	switch tag {
	case "required":
		return "required field"
	case "min", "gte":
		return "too small"
	case "max", "lte":
		return "too large"
	case "oneof":
		return "invalid value"
	default:
		return "validation failed"
	}
}

// respondError writes the status and safe message for err and logs it
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	shared.RespondWithErrorAndLog(w, r, MapErrorToStatusCode(err), GetSafeErrorMessage(err), err)
}
