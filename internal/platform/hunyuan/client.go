package hunyuan

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/domain"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/generation"
)

// DefaultBaseURL is the public web API
const DefaultBaseURL = "https://3d.hunyuan.tencent.com"

// Endpoint paths
const (
	pathGenerations = "/api/3d/creations/generations"
	pathDetail      = "/api/3d/creations/detail"
	pathList        = "/api/3d/creations/list"
	pathQuota       = "/api/3d/quotainfo"
	pathUserInfo    = "/api/3d/getuserinfo"
)

// Config holds the client settings
type Config struct {
	BaseURL string
	Token   string
	UserID  string
	Timeout time.Duration
}

// Client talks to the Hunyuan3D web API
type Client struct {
	http    *http.Client
	baseURL *url.URL
	token   string
	userID  string
	logger  *slog.Logger
}

var _ generation.Service = (*Client)(nil)

// NewClient creates a client.
//
// Parameters:
//   - cfg: base URL, session cookie values and the per-request timeout
//   - logger: a structured logger for request logging
//
// Returns:
//   - A ready client, or ErrInvalidConfig when the base URL does not parse
func NewClient(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("%w: bad base URL %q", ErrInvalidConfig, cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}

	logger = logger.With("component", "hunyuan_client")
	if cfg.Token == "" || cfg.UserID == "" {
		logger.Warn("hunyuan session cookies not configured, requests will be anonymous")
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: base,
		token:   cfg.Token,
		userID:  cfg.UserID,
		logger:  logger,
	}, nil
}

// Submit starts a text-to-3D creation and returns its creations ID
func (c *Client) Submit(ctx context.Context, params domain.GenerationParams) (string, error) {
	body := generationRequest{
		Prompt:        params.Prompt,
		Title:         params.Title,
		Style:         params.Style,
		SceneType:     sceneTypePlayground,
		ModelType:     modelTypeCreation,
		Count:         params.Count,
		EnablePBR:     params.EnablePBR,
		EnableLowPoly: params.EnableLowPoly,
	}

	var resp generationResponse
	if err := c.do(ctx, http.MethodPost, pathGenerations, nil, body, &resp); err != nil {
		return "", fmt.Errorf("%w: %w", generation.ErrSubmitFailed, err)
	}
	if resp.CreationsID == "" {
		return "", fmt.Errorf("%w: %w: missing creationsId", generation.ErrSubmitFailed, generation.ErrInvalidResponse)
	}

	c.logger.InfoContext(ctx, "creation submitted", "creations_id", resp.CreationsID)
	return resp.CreationsID, nil
}

// Detail fetches the full detail payload of a creation
func (c *Client) Detail(ctx context.Context, creationsID string) (*CreationDetail, error) {
	query := url.Values{"creationsId": {creationsID}}

	var detail CreationDetail
	if err := c.do(ctx, http.MethodGet, pathDetail, query, nil, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// Poll implements generation.Service
func (c *Client) Poll(ctx context.Context, jobID string) (*generation.Report, error) {
	detail, err := c.Detail(ctx, jobID)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", generation.ErrPollFailed, err)
	}
	return &generation.Report{Status: detail.Status, Results: detail.Results()}, nil
}

// List returns one page of the account's creations as sent by the remote
func (c *Client) List(ctx context.Context, limit, offset int) (json.RawMessage, error) {
	body := listRequest{Limit: limit, Offset: offset, SceneTypeList: []string{}}

	var raw json.RawMessage
	if err := c.do(ctx, http.MethodPost, pathList, nil, body, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// Quota returns the account's quota for 3D creations
func (c *Client) Quota(ctx context.Context) (*QuotaInfo, error) {
	var info QuotaInfo
	if err := c.do(ctx, http.MethodPost, pathQuota, nil, quotaRequest{SceneType: sceneTypeQuota}, &info); err != nil {
		return nil, err
	}
	if info.Date == "" {
		return nil, fmt.Errorf("%w: quota response has no date", generation.ErrInvalidResponse)
	}
	return &info, nil
}

// UserInfo returns the logged-in user's profile as sent by the remote
func (c *Client) UserInfo(ctx context.Context) (json.RawMessage, error) {
	var raw json.RawMessage
	if err := c.do(ctx, http.MethodGet, pathUserInfo, nil, nil, &raw); err != nil {
		return nil, err
	}
	return raw, nil
}

// do sends one request and decodes a JSON response into out
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := *c.baseURL
	u.Path = c.baseURL.Path + path
	u.RawQuery = query.Encode()

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u.String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	c.decorate(req, body != nil)

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	c.logger.DebugContext(ctx, "hunyuan request",
		"method", method,
		"path", path,
		"status", resp.StatusCode,
		"trace_id", req.Header.Get("trace-id"),
		"duration", time.Since(start))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", ErrUnauthorized, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return fmt.Errorf("%w: %s", ErrHTTPStatus, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %w", generation.ErrInvalidResponse, err)
	}
	return nil
}

func (c *Client) decorate(req *http.Request, hasBody bool) {
	req.Header.Set("x-product", "hunyuan3d")
	req.Header.Set("x-source", "web")
	req.Header.Set("trace-id", uuid.NewString())
	req.Header.Set("accept", "application/json, text/plain, */*")
	if hasBody {
		req.Header.Set("Content-Type", "application/json")
	}

	req.AddCookie(&http.Cookie{Name: "hy_token", Value: c.token})
	req.AddCookie(&http.Cookie{Name: "hy_user", Value: c.userID})
	req.AddCookie(&http.Cookie{Name: "hy_source", Value: "web"})
}
