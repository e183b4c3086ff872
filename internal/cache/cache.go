// Package cache maps remote asset URLs to files already downloaded to disk.
// Entries are advisory: a path is only trusted after checking it still
// exists.
package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
)

// ErrUnknownBackend is returned by New for an unsupported backend name
var ErrUnknownBackend = errors.New("unknown cache backend")

// Cache stores url -> local path entries
type Cache interface {
	// Get returns the cached path for url; ok is false on a miss
	Get(ctx context.Context, url string) (path string, ok bool, err error)
	// Put records path as the local copy of url
	Put(ctx context.Context, url, path string) error
	// Delete forgets url; missing entries are not an error
	Delete(ctx context.Context, url string) error
}

// Lookup returns the cached path for url only if the file is still on disk.
// Entries pointing at missing files are evicted.
func Lookup(ctx context.Context, c Cache, url string) (string, bool, error) {
	path, ok, err := c.Get(ctx, url)
	if err != nil || !ok {
		return "", false, err
	}

	if _, statErr := os.Stat(path); statErr != nil {
		if delErr := c.Delete(ctx, url); delErr != nil {
			return "", false, fmt.Errorf("evicting stale cache entry: %w", delErr)
		}
		return "", false, nil
	}
	return path, true, nil
}

// Config selects and configures a backend
type Config struct {
	Backend       string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	KeyPrefix     string
}

// New builds the backend named by cfg.Backend ("memory" or "redis")
func New(ctx context.Context, cfg Config, logger *slog.Logger) (Cache, error) {
	switch cfg.Backend {
	case "", "memory":
		logger.Info("using in-memory asset cache")
		return NewMemoryCache(), nil
	case "redis":
		c, err := NewRedisCache(ctx, cfg)
		if err != nil {
			return nil, err
		}
		logger.Info("using redis asset cache", "addr", cfg.RedisAddr, "db", cfg.RedisDB)
		return c, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, cfg.Backend)
	}
}
