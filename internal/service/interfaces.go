package service

import (
	"context"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/domain"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/generation"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/imageload"
)

// MainContext runs a closure on the main context and waits for it
type MainContext interface {
	Do(ctx context.Context, fn func() error) error
}

// JobStore is the document's job store
type JobStore interface {
	Get(id string) (*domain.GenerationJob, error)
	List() []*domain.GenerationJob
}

// Dispatcher accepts generation requests
type Dispatcher interface {
	Enqueue(params domain.GenerationParams) error
	Stats() generation.Stats
}

// Downloader fetches model files
type Downloader interface {
	Request(assetID, url, dest string, doImport bool) error
	Fetch(ctx context.Context, url, dest string) (string, error)
}

// Images is the document's image store
type Images interface {
	RetainImage(name string) error
	RemoveImage(name string) error
	SaveImage(name, path string) error
}

// Importer imports model files into the document
type Importer interface {
	ImportAsset(path string) (string, error)
	RenameObject(oldName, newName string) (string, error)
}

// ImageLoader loads preview images
type ImageLoader interface {
	Request(id, url string, cb imageload.Callbacks) error
	InFlight(id string) bool
}
