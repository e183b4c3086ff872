package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/api/shared"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/platform/hunyuan"
)

// RemoteInfo exposes read-only account data of the remote service
type RemoteInfo interface {
	Quota(ctx context.Context) (*hunyuan.QuotaInfo, error)
	List(ctx context.Context, limit, offset int) (json.RawMessage, error)
	UserInfo(ctx context.Context) (json.RawMessage, error)
}

// Paging defaults for /api/creations
const (
	defaultCreationsLimit = 20
	maxCreationsLimit     = 100
)

// RemoteHandler proxies account endpoints of the remote service
type RemoteHandler struct {
	remote RemoteInfo
	logger *slog.Logger
}

// NewRemoteHandler creates a new RemoteHandler
func NewRemoteHandler(remote RemoteInfo, logger *slog.Logger) *RemoteHandler {
	return &RemoteHandler{
		remote: remote,
		logger: logger.With(slog.String("component", "remote_handler")),
	}
}

// Quota handles GET /api/quota
func (h *RemoteHandler) Quota(w http.ResponseWriter, r *http.Request) {
	quota, err := h.remote.Quota(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, quota)
}

// Creations handles GET /api/creations?limit=&offset=
func (h *RemoteHandler) Creations(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultCreationsLimit)
	if err != nil || limit < 1 || limit > maxCreationsLimit {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid limit")
		return
	}
	offset, err := queryInt(r, "offset", 0)
	if err != nil || offset < 0 {
		shared.RespondWithError(w, r, http.StatusBadRequest, "Invalid offset")
		return
	}

	list, err := h.remote.List(r.Context(), limit, offset)
	if err != nil {
		respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, list)
}

// User handles GET /api/user
func (h *RemoteHandler) User(w http.ResponseWriter, r *http.Request) {
	info, err := h.remote.UserInfo(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	shared.RespondWithJSON(w, r, http.StatusOK, info)
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
