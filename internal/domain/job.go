package domain

import (
	"fmt"
	"strings"
	"time"
)

// JobStatus represents where a generation job is in its lifecycle
type JobStatus string

// Possible job status values
const (
	JobStatusQueued     JobStatus = "queued"
	JobStatusSubmitted  JobStatus = "submitted"
	JobStatusProcessing JobStatus = "processing"
	JobStatusSuccess    JobStatus = "success"
	JobStatusFail       JobStatus = "fail"
)

// rank orders statuses so transitions can only move forward. success and
// fail share the terminal rank.
func (s JobStatus) rank() int {
	switch s {
	case JobStatusQueued:
		return 0
	case JobStatusSubmitted:
		return 1
	case JobStatusProcessing:
		return 2
	case JobStatusSuccess, JobStatusFail:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is a known status
func (s JobStatus) Valid() bool {
	return s.rank() >= 0
}

// Terminal reports whether no further transitions are possible
func (s JobStatus) Terminal() bool {
	return s == JobStatusSuccess || s == JobStatusFail
}

// Active reports whether the job occupies a dispatch slot
func (s JobStatus) Active() bool {
	return s == JobStatusSubmitted || s == JobStatusProcessing
}

// ParseRemoteStatus maps a status string reported by the remote service.
// ok is false for values the remote is not known to send.
func ParseRemoteStatus(remote string) (status JobStatus, ok bool) {
	switch strings.ToLower(strings.TrimSpace(remote)) {
	case "wait":
		return JobStatusSubmitted, true
	case "processing":
		return JobStatusProcessing, true
	case "success":
		return JobStatusSuccess, true
	case "fail", "failed":
		return JobStatusFail, true
	default:
		return "", false
	}
}

// Style value the UI uses for "no style"
const StyleDefault = "DEFAULT"

// Bounds for GenerationParams.Count
const (
	MinCount = 1
	MaxCount = 12
)

// GenerationParams describes one text-to-3D request
type GenerationParams struct {
	Prompt        string `json:"prompt"`
	Title         string `json:"title"`
	Style         string `json:"style"`
	Count         int    `json:"count"`
	EnablePBR     bool   `json:"enable_pbr"`
	EnableLowPoly bool   `json:"enable_low_poly"`
}

// NewTextTo3DParams normalizes a user request: the prompt is trimmed and
// doubles as the title, and the DEFAULT style is sent as an empty style.
func NewTextTo3DParams(prompt, style string, count int, enablePBR bool) (GenerationParams, error) {
	prompt = strings.TrimSpace(prompt)
	if style == StyleDefault {
		style = ""
	}

	params := GenerationParams{
		Prompt:    prompt,
		Title:     prompt,
		Style:     style,
		Count:     count,
		EnablePBR: enablePBR,
	}
	if err := params.Validate(); err != nil {
		return GenerationParams{}, err
	}
	return params, nil
}

// Validate checks the params can be submitted
func (p GenerationParams) Validate() error {
	if strings.TrimSpace(p.Prompt) == "" {
		return fmt.Errorf("%w: %w", ErrValidation, ErrEmptyPrompt)
	}
	if p.Count < MinCount || p.Count > MaxCount {
		return fmt.Errorf("%w: %w: %d not in [%d, %d]",
			ErrValidation, ErrInvalidCount, p.Count, MinCount, MaxCount)
	}
	return nil
}

// GenerationJob is one submitted text-to-3D request and its variants
type GenerationJob struct {
	ID        string           `json:"id"`
	Params    GenerationParams `json:"params"`
	Status    JobStatus        `json:"status"`
	Results   []*Result        `json:"results"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// NewGenerationJob creates a job for an ID the remote service just assigned
func NewGenerationJob(id string, params GenerationParams) *GenerationJob {
	now := time.Now().UTC()
	return &GenerationJob{
		ID:        id,
		Params:    params,
		Status:    JobStatusSubmitted,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Advance moves the job to status if that is a forward transition.
// It reports whether the status changed.
func (j *GenerationJob) Advance(status JobStatus) bool {
	if !status.Valid() || j.Status.Terminal() || status.rank() <= j.Status.rank() {
		return false
	}
	j.Status = status
	j.UpdatedAt = time.Now().UTC()
	return true
}

// Result returns the result with the given asset ID
func (j *GenerationJob) Result(assetID string) (*Result, error) {
	for _, r := range j.Results {
		if r.AssetID == assetID {
			return r, nil
		}
	}
	return nil, fmt.Errorf("%w: %s", ErrResultNotFound, assetID)
}

// RemoveResult drops the result with the given asset ID
func (j *GenerationJob) RemoveResult(assetID string) error {
	for i, r := range j.Results {
		if r.AssetID == assetID {
			j.Results = append(j.Results[:i], j.Results[i+1:]...)
			j.UpdatedAt = time.Now().UTC()
			return nil
		}
	}
	return fmt.Errorf("%w: %s", ErrResultNotFound, assetID)
}

// MergeResults folds freshly polled results into the job. Known results get
// their URLs refreshed without losing local state (loaded image names, the
// saved flag); unknown ones are appended in the order given.
func (j *GenerationJob) MergeResults(polled []Result) {
	for _, p := range polled {
		existing, err := j.Result(p.AssetID)
		if err != nil {
			r := p
			j.Results = append(j.Results, &r)
			continue
		}
		if p.ModelURL != "" {
			existing.ModelURL = p.ModelURL
		}
		for _, pv := range p.Previews {
			existing.mergePreview(pv)
		}
	}
}
