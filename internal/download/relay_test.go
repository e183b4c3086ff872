package download

import (
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/notify"
	"github.com/jfranmatheu/Hunyuan3DBlenderBridge/internal/scheduler"
)

type mockImporter struct {
	ImportAssetFn  func(path string) (string, error)
	RenameObjectFn func(oldName, newName string) (string, error)
	renamed        []string
}

func (m *mockImporter) ImportAsset(path string) (string, error) {
	if m.ImportAssetFn != nil {
		return m.ImportAssetFn(path)
	}
	return "imported", nil
}

func (m *mockImporter) RenameObject(oldName, newName string) (string, error) {
	m.renamed = append(m.renamed, newName)
	if m.RenameObjectFn != nil {
		return m.RenameObjectFn(oldName, newName)
	}
	return newName, nil
}

type nopHost struct{}

func (nopHost) Schedule(scheduler.Callback, time.Duration) scheduler.TimerID { return 1 }
func (nopHost) Cancel(scheduler.TimerID)                                     {}
func (nopHost) IsScheduled(scheduler.TimerID) bool                           { return false }
func (nopHost) Post(fn func())                                               { fn() }

func TestRelay_TickDrainsBeforeStopping(t *testing.T) {
	var alive atomic.Bool
	alive.Store(true)
	importer := &mockImporter{}
	board := notify.NewBoard(10, testLogger())
	relay := NewRelay(scheduler.NewRegistry(nopHost{}, testLogger()), importer, alive.Load, board, 50*time.Millisecond, testLogger())

	relay.Push(ImportItem{AssetID: "a1", Path: "/tmp/a1.glb"})
	assert.Equal(t, 50*time.Millisecond, relay.Tick())
	assert.Equal(t, []string{"a1"}, importer.renamed)

	// an item pushed right before the worker exits is still imported
	relay.Push(ImportItem{AssetID: "a2", Path: "/tmp/a2.glb"})
	alive.Store(false)
	assert.Equal(t, scheduler.Stop, relay.Tick())
	assert.Equal(t, []string{"a1", "a2"}, importer.renamed)
	assert.Equal(t, 0, relay.Pending())
}

func TestRelay_FailedImportDoesNotStopDrain(t *testing.T) {
	importer := &mockImporter{
		ImportAssetFn: func(path string) (string, error) {
			if path == "bad" {
				return "", errors.New("not a glb")
			}
			return "obj", nil
		},
	}
	board := notify.NewBoard(10, testLogger())
	relay := NewRelay(scheduler.NewRegistry(nopHost{}, testLogger()), importer, func() bool { return false }, board, time.Second, testLogger())

	relay.Push(ImportItem{AssetID: "a1", Path: "bad"})
	relay.Push(ImportItem{AssetID: "a2", Path: "good"})
	assert.Equal(t, scheduler.Stop, relay.Tick())

	assert.Equal(t, []string{"a2"}, importer.renamed)
	latest, ok := board.Latest()
	assert.True(t, ok)
	assert.Equal(t, notify.LevelError, latest.Level)
	assert.Contains(t, latest.Text, "a1")
}
