package api

import (
	"time"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/domain"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/notify"
)

// CreateGenerationRequest is the payload of POST /api/generations
type CreateGenerationRequest struct {
	Prompt    string `json:"prompt"     validate:"required"`
	Style     string `json:"style"`
	Count     int    `json:"count"      validate:"gte=1,lte=12"`
	EnablePBR bool   `json:"enable_pbr"`
}

// GenerationAcceptedResponse echoes the normalized request that was queued
type GenerationAcceptedResponse struct {
	Params domain.GenerationParams `json:"params"`
	Queued int                     `json:"queued"`
}

// SaveRequest is the optional payload of the save endpoint
type SaveRequest struct {
	Import bool `json:"import"`
}

// SaveResponse reports where a result was saved
type SaveResponse struct {
	Path     string `json:"path"`
	Imported bool   `json:"import_queued"`
}

// ImportResponse reports how an import was served
type ImportResponse struct {
	Mode string `json:"mode"`
}

// JobResponse is a job as listed by the API
type JobResponse struct {
	ID        string                  `json:"id"`
	Status    domain.JobStatus        `json:"status"`
	Params    domain.GenerationParams `json:"params"`
	Results   []*domain.Result        `json:"results"`
	CreatedAt time.Time               `json:"created_at"`
	UpdatedAt time.Time               `json:"updated_at"`
}

// StatusResponse summarizes the background workers and recent messages
type StatusResponse struct {
	Generation GenerationStatus `json:"generation"`
	Downloads  WorkerStatus     `json:"downloads"`
	Images     WorkerStatus     `json:"images"`
	Messages   []notify.Message `json:"messages"`
}

// GenerationStatus is the dispatcher load
type GenerationStatus struct {
	Queued     int `json:"queued"`
	Processing int `json:"processing"`
	Capacity   int `json:"capacity"`
}

// WorkerStatus describes one lazy worker
type WorkerStatus struct {
	Alive   bool `json:"alive"`
	Pending int  `json:"pending"`
}

func jobToResponse(job domain.GenerationJob) JobResponse {
	results := job.Results
	if results == nil {
		results = []*domain.Result{}
	}
	return JobResponse{
		ID:        job.ID,
		Status:    job.Status,
		Params:    job.Params,
		Results:   results,
		CreatedAt: job.CreatedAt,
		UpdatedAt: job.UpdatedAt,
	}
}
