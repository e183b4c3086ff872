package service

import (
	"context"
	"log/slog"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/domain"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/generation"
)

// TextTo3DRequest is a user's text-to-3D request before normalization
type TextTo3DRequest struct {
	Prompt    string
	Style     string
	Count     int
	EnablePBR bool
}

// GenerationService queues generation requests and reads the job store
type GenerationService struct {
	main       MainContext
	jobs       JobStore
	dispatcher Dispatcher
	logger     *slog.Logger
}

// NewGenerationService creates the service
func NewGenerationService(main MainContext, jobs JobStore, dispatcher Dispatcher, logger *slog.Logger) *GenerationService {
	return &GenerationService{
		main:       main,
		jobs:       jobs,
		dispatcher: dispatcher,
		logger:     logger.With("component", "generation_service"),
	}
}

// RequestTextTo3D validates and queues a text-to-3D request
func (s *GenerationService) RequestTextTo3D(ctx context.Context, req TextTo3DRequest) (domain.GenerationParams, error) {
	params, err := domain.NewTextTo3DParams(req.Prompt, req.Style, req.Count, req.EnablePBR)
	if err != nil {
		s.logger.WarnContext(ctx, "rejected text-to-3D request", "error", err)
		return domain.GenerationParams{}, err
	}
	if err := s.dispatcher.Enqueue(params); err != nil {
		return domain.GenerationParams{}, err
	}
	return params, nil
}

// Stats returns the dispatcher load
func (s *GenerationService) Stats() generation.Stats {
	return s.dispatcher.Stats()
}

// Jobs returns a snapshot of every job, oldest first
func (s *GenerationService) Jobs(ctx context.Context) ([]domain.GenerationJob, error) {
	var out []domain.GenerationJob
	err := s.main.Do(ctx, func() error {
		for _, job := range s.jobs.List() {
			out = append(out, snapshot(job))
		}
		return nil
	})
	return out, err
}

// Job returns a snapshot of one job
func (s *GenerationService) Job(ctx context.Context, id string) (domain.GenerationJob, error) {
	var out domain.GenerationJob
	err := s.main.Do(ctx, func() error {
		job, err := s.jobs.Get(id)
		if err != nil {
			return err
		}
		out = snapshot(job)
		return nil
	})
	return out, err
}

// snapshot deep-copies a job so it can leave the main context
func snapshot(job *domain.GenerationJob) domain.GenerationJob {
	cp := *job
	cp.Results = make([]*domain.Result, len(job.Results))
	for i, r := range job.Results {
		rc := *r
		rc.Previews = append([]domain.Preview(nil), r.Previews...)
		cp.Results[i] = &rc
	}
	return cp
}
