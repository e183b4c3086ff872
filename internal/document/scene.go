// Package document is the in-memory host document: named float RGBA image
// resources, imported model objects and the generation job store.
//
// Mutating methods must only be called from the main context. Read methods
// are safe from any goroutine.
package document

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
)

// Common errors returned by the Scene
var (
	ErrImageExists    = errors.New("image already exists")
	ErrImageNotFound  = errors.New("image not found")
	ErrInvalidPixels  = errors.New("pixel buffer does not match image size")
	ErrObjectNotFound = errors.New("object not found")
	ErrNotGLB         = errors.New("file is not a binary glTF")
)

// Scene owns every document resource
type Scene struct {
	mu      sync.RWMutex
	images  map[string]*Image
	objects map[string]*Object
	jobs    *Jobs
	logger  *slog.Logger
}

// NewScene creates an empty document
func NewScene(logger *slog.Logger) *Scene {
	return &Scene{
		images:  make(map[string]*Image),
		objects: make(map[string]*Object),
		jobs:    NewJobs(),
		logger:  logger.With("component", "scene"),
	}
}

// Jobs returns the generation job store
func (s *Scene) Jobs() *Jobs {
	return s.jobs
}

// uniqueNameLocked returns name, or name with the first free numeric suffix
func uniqueNameLocked[V any](m map[string]V, name string) string {
	if _, taken := m[name]; !taken {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s.%03d", name, i)
		if _, taken := m[candidate]; !taken {
			return candidate
		}
	}
}
