package generation

import (
	"context"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/domain"
)

// Report is one poll response
type Report struct {
	// Status is the status string as sent by the remote service
	Status  string
	Results []domain.Result
}

// Service is the remote generation service
type Service interface {
	// Submit starts a job and returns its remote ID
	Submit(ctx context.Context, params domain.GenerationParams) (string, error)
	// Poll fetches the current state of a job
	Poll(ctx context.Context, jobID string) (*Report, error)
}

// JobStore holds every job known to the document
type JobStore interface {
	Add(job *domain.GenerationJob)
	Get(id string) (*domain.GenerationJob, error)
	Remove(id string) error
}
