package download

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/cache"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/document"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/scheduler"
)

var glbBody = []byte("glTF\x02\x00\x00\x00payload")

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fixture struct {
	downloader *Downloader
	cache      *cache.MemoryCache
	scene      *document.Scene
	registry   *scheduler.Registry
	tempDir    string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	logger := testLogger()
	loop := scheduler.NewLoop(logger)
	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		_ = loop.Run(ctx)
	}()
	t.Cleanup(func() {
		cancel()
		<-stopped
	})

	f := &fixture{
		cache:    cache.NewMemoryCache(),
		scene:    document.NewScene(logger),
		registry: scheduler.NewRegistry(loop, logger),
		tempDir:  t.TempDir(),
	}
	f.downloader = NewDownloader(nil, f.cache, f.registry, f.scene, nil, Config{
		Attempts:      3,
		Timeout:       5 * time.Second,
		TempDir:       f.tempDir,
		RelayInterval: 10 * time.Millisecond,
	}, logger)
	return f
}

func glbServer(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		w.Header().Set("Content-Disposition", `attachment; filename="chair"`)
		_, _ = w.Write(glbBody)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestDownloader_FetchMissWritesAndCaches(t *testing.T) {
	f := newFixture(t)
	var hits int32
	srv := glbServer(t, &hits)

	path, err := f.downloader.Fetch(context.Background(), srv.URL+"/model", "")
	require.NoError(t, err)
	assert.Equal(t, "chair.glb", filepath.Base(path))
	assert.Equal(t, f.tempDir, filepath.Dir(filepath.Dir(path)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, glbBody, data)

	cached, ok, err := f.cache.Get(context.Background(), srv.URL+"/model")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, path, cached)

	leftovers, err := filepath.Glob(filepath.Join(f.tempDir, "*", ".download-*"))
	require.NoError(t, err)
	assert.Empty(t, leftovers)
}

func TestDownloader_CacheHitWithoutDestReusesPath(t *testing.T) {
	f := newFixture(t)
	var hits int32
	srv := glbServer(t, &hits)

	first, err := f.downloader.Fetch(context.Background(), srv.URL, "")
	require.NoError(t, err)
	second, err := f.downloader.Fetch(context.Background(), srv.URL, "")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDownloader_SameInferredNameKeepsFilesApart(t *testing.T) {
	f := newFixture(t)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write([]byte("glTF-" + r.URL.Path))
	}))
	defer srv.Close()
	ctx := context.Background()

	pathA, err := f.downloader.Fetch(ctx, srv.URL+"/asset-a", "")
	require.NoError(t, err)
	pathB, err := f.downloader.Fetch(ctx, srv.URL+"/asset-b", "")
	require.NoError(t, err)

	assert.Equal(t, filepath.Base(pathA), filepath.Base(pathB))
	assert.NotEqual(t, pathA, pathB)

	again, err := f.downloader.Fetch(ctx, srv.URL+"/asset-a", "")
	require.NoError(t, err)
	assert.Equal(t, pathA, again)
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))

	data, err := os.ReadFile(again)
	require.NoError(t, err)
	assert.Equal(t, "glTF-/asset-a", string(data))

	data, err = os.ReadFile(pathB)
	require.NoError(t, err)
	assert.Equal(t, "glTF-/asset-b", string(data))
}

func TestDownloader_CacheHitWithDestMovesFile(t *testing.T) {
	f := newFixture(t)
	var hits int32
	srv := glbServer(t, &hits)

	cached, err := f.downloader.Fetch(context.Background(), srv.URL, "")
	require.NoError(t, err)

	dest := filepath.Join(t.TempDir(), "job", "asset.glb")
	got, err := f.downloader.Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, got)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	assert.FileExists(t, dest)
	assert.NoFileExists(t, cached)
	assert.Equal(t, 0, f.cache.Len())
}

func TestDownloader_CacheHitOnSamePath(t *testing.T) {
	f := newFixture(t)
	var hits int32
	srv := glbServer(t, &hits)

	dest := filepath.Join(t.TempDir(), "asset.glb")
	_, err := f.downloader.Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)

	got, err := f.downloader.Fetch(context.Background(), srv.URL, dest)
	require.NoError(t, err)
	assert.Equal(t, dest, got)
	assert.FileExists(t, dest)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, 0, f.cache.Len())
}

func TestDownloader_StaleCacheEntryRedownloads(t *testing.T) {
	f := newFixture(t)
	var hits int32
	srv := glbServer(t, &hits)

	require.NoError(t, f.cache.Put(context.Background(), srv.URL, filepath.Join(f.tempDir, "gone.glb")))

	path, err := f.downloader.Fetch(context.Background(), srv.URL, "")
	require.NoError(t, err)
	assert.FileExists(t, path)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDownloader_RetriesThenSucceeds(t *testing.T) {
	f := newFixture(t)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) < 3 {
			http.Error(w, "busy", http.StatusServiceUnavailable)
			return
		}
		_, _ = w.Write(glbBody)
	}))
	defer srv.Close()

	path, err := f.downloader.Fetch(context.Background(), srv.URL+"/files/m.glb", "")
	require.NoError(t, err)
	assert.Equal(t, "m.glb", filepath.Base(path))
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
}

func TestDownloader_GivesUpAfterAttempts(t *testing.T) {
	f := newFixture(t)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.NotFound(w, r)
	}))
	defer srv.Close()

	dest := filepath.Join(t.TempDir(), "x.glb")
	_, err := f.downloader.Fetch(context.Background(), srv.URL, dest)
	require.Error(t, err)

	var dlErr *Error
	require.True(t, errors.As(err, &dlErr))
	assert.Equal(t, 3, dlErr.Attempts)
	assert.Equal(t, srv.URL, dlErr.URL)
	assert.Equal(t, dest, dlErr.Path)
	assert.ErrorIs(t, err, ErrHTTPStatus)
	assert.Equal(t, int32(3), atomic.LoadInt32(&hits))
	assert.NoFileExists(t, dest)
	assert.Equal(t, 0, f.cache.Len())
}

func TestDownloader_FollowsRedirects(t *testing.T) {
	f := newFixture(t)
	var hits int32
	target := glbServer(t, &hits)
	redirect := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, target.URL, http.StatusFound)
	}))
	defer redirect.Close()

	path, err := f.downloader.Fetch(context.Background(), redirect.URL, "")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "chair.glb"))
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestDownloader_OneFetchInFlight(t *testing.T) {
	f := newFixture(t)
	var active, maxActive int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&active, 1)
		defer atomic.AddInt32(&active, -1)
		for {
			m := atomic.LoadInt32(&maxActive)
			if n <= m || atomic.CompareAndSwapInt32(&maxActive, m, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		_, _ = w.Write(glbBody)
	}))
	defer srv.Close()

	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			dest := filepath.Join(f.tempDir, "n", string(rune('a'+i))+".glb")
			_, err := f.downloader.Fetch(context.Background(), srv.URL+"/"+string(rune('a'+i)), dest)
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&maxActive))
}

func TestDownloader_RequestImportsOnMainContext(t *testing.T) {
	f := newFixture(t)
	var hits int32
	srv := glbServer(t, &hits)

	require.NoError(t, f.downloader.Request("asset-1", srv.URL, "", true))
	require.NoError(t, f.downloader.Request("asset-2", srv.URL+"/other", filepath.Join(t.TempDir(), "a2.glb"), true))

	assert.Eventually(t, func() bool {
		names := f.scene.ObjectNames()
		return len(names) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"asset-1", "asset-2"}, f.scene.ObjectNames())

	assert.Eventually(t, func() bool {
		return !f.registry.Exists(RelayTimerID)
	}, 2*time.Second, 5*time.Millisecond, "relay must stop once the worker is gone")
}

func TestDownloader_RequestWhileSameURLInFlight(t *testing.T) {
	f := newFixture(t)
	var hits int32
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		<-release
		w.Header().Set("Content-Disposition", `attachment; filename="chair"`)
		_, _ = w.Write(glbBody)
	}))
	defer srv.Close()

	require.NoError(t, f.downloader.Request("asset-1", srv.URL, "", true))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&hits) == 1 },
		2*time.Second, 5*time.Millisecond)

	require.NoError(t, f.downloader.Request("asset-2", srv.URL, "", true))
	assert.Equal(t, 1, f.downloader.Pending())
	close(release)

	assert.Eventually(t, func() bool {
		return len(f.scene.ObjectNames()) == 2
	}, 2*time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{"asset-1", "asset-2"}, f.scene.ObjectNames())
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))

	one, err := f.scene.Object("asset-1")
	require.NoError(t, err)
	two, err := f.scene.Object("asset-2")
	require.NoError(t, err)
	assert.Equal(t, one.Source, two.Source)
}

func TestDownloader_RequestWithoutImport(t *testing.T) {
	f := newFixture(t)
	var hits int32
	srv := glbServer(t, &hits)

	require.NoError(t, f.downloader.Request("asset-1", srv.URL, "", false))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&hits) == 1 && !f.downloader.Alive() },
		2*time.Second, 5*time.Millisecond)
	assert.Empty(t, f.scene.ObjectNames())

	assert.ErrorIs(t, f.downloader.Request("asset-2", "", "", true), ErrEmptyURL)
}
