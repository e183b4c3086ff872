package shared

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSetAndGetTraceID(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetTraceID(ctx), "Expected empty trace ID in original context")

	withTrace := SetTraceID(ctx)
	assert.Len(t, GetTraceID(withTrace), 36, "Expected a UUID trace ID")
	assert.NotEqual(t, GetTraceID(withTrace), GetTraceID(SetTraceID(ctx)))

	assert.Equal(t, "abc", GetTraceID(WithTraceID(ctx, "abc")))
	assert.Empty(t, GetTraceID(context.WithValue(ctx, TraceIDKey, 123)))
}

func TestDecodeJSON(t *testing.T) {
	type target struct {
		Name string `json:"name"`
	}

	tests := []struct {
		name    string
		body    string
		wantErr bool
		isEmpty bool
	}{
		{name: "valid json", body: `{"name": "test"}`},
		{name: "invalid json", body: `{"name": "test",}`, wantErr: true},
		{name: "empty body", body: "", wantErr: true, isEmpty: true},
		{name: "unknown field", body: `{"name": "a", "age": 3}`, wantErr: true},
		{name: "trailing data", body: `{"name": "a"} {"name": "b"}`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var got target
			err := DecodeJSON(req, &got)
			if !tt.wantErr {
				require.NoError(t, err)
				assert.Equal(t, "test", got.Name)
				return
			}
			require.Error(t, err)
			assert.Equal(t, tt.isEmpty, errors.Is(err, ErrEmptyBody))
		})
	}
}

type tagged struct {
	Prompt string `validate:"required"`
}

type selfValidating struct{}

func (selfValidating) Validate() error { return errors.New("custom") }

func TestValidateRequest(t *testing.T) {
	assert.NoError(t, ValidateRequest(tagged{Prompt: "x"}))
	assert.Error(t, ValidateRequest(tagged{}))
	assert.EqualError(t, ValidateRequest(selfValidating{}), "custom")
}

func TestRespondWithJSON(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	RespondWithJSON(w, req, http.StatusAccepted, map[string]int{"queued": 2})

	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, "application/json", w.Header().Get("Content-Type"))
	assert.JSONEq(t, `{"queued": 2}`, w.Body.String())
}

func TestRespondWithErrorAndLog(t *testing.T) {
	var logBuf strings.Builder
	old := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logBuf, &slog.HandlerOptions{Level: slog.LevelDebug})))
	defer slog.SetDefault(old)

	req := httptest.NewRequest(http.MethodGet, "/api/quota", nil)
	req = req.WithContext(WithTraceID(req.Context(), "trace-1"))
	w := httptest.NewRecorder()

	RespondWithErrorAndLog(w, req, http.StatusBadGateway, "Remote service error",
		errors.New("GET /detail failed, cookie hy_token=supersecret"))

	var body ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "Remote service error", body.Error)
	assert.Equal(t, "trace-1", body.TraceID)

	logs := logBuf.String()
	assert.Contains(t, logs, "level=ERROR")
	assert.Contains(t, logs, "hy_token=[REDACTED]")
	assert.NotContains(t, logs, "supersecret")
}

func TestRespondWithError(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/test", nil)
	w := httptest.NewRecorder()

	RespondWithError(w, req, http.StatusNotFound, "Job not found")

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.JSONEq(t, `{"error": "Job not found"}`, w.Body.String())
}
