package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/domain"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/notify"
)

// ImportMode says how an import request was served
type ImportMode string

// Possible import modes
const (
	ImportQueued ImportMode = "queued"
	ImportDirect ImportMode = "direct"
)

// ResultService saves, imports and discards generated results
type ResultService struct {
	main       MainContext
	jobs       JobStore
	images     Images
	importer   Importer
	downloader Downloader
	reporter   notify.Reporter
	saveDir    string
	logger     *slog.Logger
}

// NewResultService creates the service. Saved models go to
// <saveDir>/<jobID>/<assetID>.glb.
func NewResultService(
	main MainContext,
	jobs JobStore,
	images Images,
	importer Importer,
	downloader Downloader,
	reporter notify.Reporter,
	saveDir string,
	logger *slog.Logger,
) *ResultService {
	if reporter == nil {
		reporter = notify.Discard
	}
	return &ResultService{
		main:       main,
		jobs:       jobs,
		images:     images,
		importer:   importer,
		downloader: downloader,
		reporter:   reporter,
		saveDir:    saveDir,
		logger:     logger.With("component", "result_service"),
	}
}

// ModelPath is where a result's model is saved
func (s *ResultService) ModelPath(jobID, assetID string) string {
	return filepath.Join(s.saveDir, jobID, assetID+".glb")
}

// lookup finds a result; it must run on the main context
func (s *ResultService) lookup(jobID, assetID string) (*domain.GenerationJob, *domain.Result, error) {
	job, err := s.jobs.Get(jobID)
	if err != nil {
		return nil, nil, err
	}
	res, err := job.Result(assetID)
	if err != nil {
		return nil, nil, err
	}
	return job, res, nil
}

// Save stores a result's model and loaded previews under the save
// directory and marks it saved. With doImport the download is queued and
// imported when it lands; otherwise Save waits for the file.
func (s *ResultService) Save(ctx context.Context, jobID, assetID string, doImport bool) (string, error) {
	var (
		modelURL string
		images   []string
	)
	err := s.main.Do(ctx, func() error {
		_, res, err := s.lookup(jobID, assetID)
		if err != nil {
			return err
		}
		if res.ModelURL == "" {
			return fmt.Errorf("%w: %s", domain.ErrNoModelURL, assetID)
		}
		modelURL = res.ModelURL
		images = res.LoadedImages()
		return nil
	})
	if err != nil {
		return "", err
	}

	dest := s.ModelPath(jobID, assetID)
	if doImport {
		if err := s.downloader.Request(assetID, modelURL, dest, true); err != nil {
			return "", err
		}
	} else {
		if _, err := s.downloader.Fetch(ctx, modelURL, dest); err != nil {
			s.reporter.Report(notify.LevelError, "Failed to save %s: %v", assetID, err)
			return "", err
		}
	}

	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", NewResultError("save", assetID, "failed to create save directory", err)
	}

	err = s.main.Do(ctx, func() error {
		for _, name := range images {
			path := filepath.Join(filepath.Dir(dest), name+".png")
			if err := s.images.SaveImage(name, path); err != nil {
				s.logger.Warn("failed to save preview", "image", name, "error", err)
			}
		}
		_, res, err := s.lookup(jobID, assetID)
		if err != nil {
			return err
		}
		res.Saved = true
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.InfoContext(ctx, "result saved", "job_id", jobID, "asset_id", assetID, "path", dest)
	return dest, nil
}

// Import brings a result's model into the document. Unsaved results are
// downloaded to the temp dir; saved ones are imported from disk, or
// downloaded again to the save path when the file is gone.
func (s *ResultService) Import(ctx context.Context, jobID, assetID string) (ImportMode, error) {
	var (
		modelURL string
		saved    bool
	)
	err := s.main.Do(ctx, func() error {
		_, res, err := s.lookup(jobID, assetID)
		if err != nil {
			return err
		}
		modelURL, saved = res.ModelURL, res.Saved
		return nil
	})
	if err != nil {
		return "", err
	}

	if !saved {
		if modelURL == "" {
			return "", fmt.Errorf("%w: %s", domain.ErrNoModelURL, assetID)
		}
		return ImportQueued, s.downloader.Request(assetID, modelURL, "", true)
	}

	path := s.ModelPath(jobID, assetID)
	if _, statErr := os.Stat(path); errors.Is(statErr, os.ErrNotExist) {
		if modelURL == "" {
			return "", fmt.Errorf("%w: %s", domain.ErrNoModelURL, assetID)
		}
		return ImportQueued, s.downloader.Request(assetID, modelURL, path, true)
	}

	err = s.main.Do(ctx, func() error {
		name, err := s.importer.ImportAsset(path)
		if err != nil {
			return err
		}
		_, err = s.importer.RenameObject(name, assetID)
		return err
	})
	if err != nil {
		s.reporter.Report(notify.LevelError, "Import of %s failed: %v", assetID, err)
		return "", NewResultError("import", assetID, "failed to import saved model", err)
	}
	return ImportDirect, nil
}

// Discard removes a result and every preview image loaded for it
func (s *ResultService) Discard(ctx context.Context, jobID, assetID string) error {
	return s.main.Do(ctx, func() error {
		job, res, err := s.lookup(jobID, assetID)
		if err != nil {
			return err
		}
		for _, name := range res.LoadedImages() {
			if err := s.images.RemoveImage(name); err != nil {
				s.logger.Warn("preview image already gone", "image", name, "error", err)
			}
		}
		if err := job.RemoveResult(assetID); err != nil {
			return err
		}
		s.logger.InfoContext(ctx, "result discarded", "job_id", jobID, "asset_id", assetID)
		return nil
	})
}
