package service

import (
	"log/slog"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/domain"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/imageload"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/notify"
)

// PreviewService requests preview images for polled results
type PreviewService struct {
	jobs     JobStore
	loader   ImageLoader
	images   Images
	reporter notify.Reporter
	logger   *slog.Logger
}

// NewPreviewService creates the service
func NewPreviewService(jobs JobStore, loader ImageLoader, images Images, reporter notify.Reporter, logger *slog.Logger) *PreviewService {
	if reporter == nil {
		reporter = notify.Discard
	}
	return &PreviewService{
		jobs:     jobs,
		loader:   loader,
		images:   images,
		reporter: reporter,
		logger:   logger.With("component", "preview_service"),
	}
}

// RequestPreviews asks for every preview of job that has a URL and no
// image yet. It runs on the main context as the dispatcher result hook.
func (s *PreviewService) RequestPreviews(job *domain.GenerationJob) {
	for _, res := range job.Results {
		for _, p := range res.Previews {
			if p.URL == "" || p.Loaded() {
				continue
			}
			id := res.PreviewImageID(p.Kind)
			if s.loader.InFlight(id) {
				continue
			}
			if err := s.loader.Request(id, p.URL, s.callbacks(job.ID, res.AssetID, p.Kind)); err != nil {
				s.logger.Warn("failed to request preview", "image", id, "error", err)
			}
		}
	}
}

func (s *PreviewService) callbacks(jobID, assetID string, kind domain.PreviewKind) imageload.Callbacks {
	return imageload.Callbacks{
		OnComplete: func(imageName string) {
			job, err := s.jobs.Get(jobID)
			if err != nil {
				return
			}
			res, err := job.Result(assetID)
			if err != nil {
				return
			}
			if p, ok := res.Preview(kind); ok && p.ImageName == imageName {
				return
			}
			res.SetPreviewImage(kind, imageName)
			if err := s.images.RetainImage(imageName); err != nil {
				s.logger.Warn("failed to retain preview", "image", imageName, "error", err)
			}
		},
		OnError: func(err error) {
			s.reporter.Report(notify.LevelWarning, "Preview %s of %s could not be loaded: %v", kind, assetID, err)
		},
	}
}
