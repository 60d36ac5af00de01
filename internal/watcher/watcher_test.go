package watcher

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const settle = 30 * time.Millisecond

func startWatcher(t *testing.T, path string) *Watcher {
	t.Helper()

	w, err := New(slog.New(slog.DiscardHandler), Options{SettleDelay: settle})
	require.NoError(t, err)
	require.NoError(t, w.Watch(path))

	ctx, cancel := context.WithCancel(context.Background())
	go w.Start(ctx) //nolint:errcheck // returns on cancel
	t.Cleanup(func() {
		cancel()
		_ = w.Stop()
	})
	return w
}

func nextEvent(t *testing.T, w *Watcher) Event {
	t.Helper()
	select {
	case ev := <-w.Events():
		return ev
	case err := <-w.Errors():
		t.Fatalf("unexpected error: %v", err)
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for event")
	}
	return Event{}
}

func TestWatcher_FileModified(t *testing.T) {
	path := filepath.Join(t.TempDir(), "markers.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

	w := startWatcher(t, path)
	require.NoError(t, os.WriteFile(path, []byte(`[{"time": 5}]`), 0o600))

	ev := nextEvent(t, w)
	assert.Equal(t, EventModified, ev.Type)
	assert.Equal(t, path, ev.Path)
	assert.Equal(t, int64(13), ev.Size)
}

func TestWatcher_ReplaceByRename(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "markers.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

	w := startWatcher(t, path)

	scratch := filepath.Join(dir, "markers.json.tmp")
	require.NoError(t, os.WriteFile(scratch, []byte(`[{"time": 1}]`), 0o600))
	require.NoError(t, os.Rename(scratch, path))

	ev := nextEvent(t, w)
	assert.Equal(t, EventModified, ev.Type)
	assert.Equal(t, path, ev.Path)
}

func TestWatcher_IgnoresSiblings(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "markers.json")
	require.NoError(t, os.WriteFile(path, []byte(`[]`), 0o600))

	w := startWatcher(t, path)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "other.json"), []byte(`[]`), 0o600))

	select {
	case ev := <-w.Events():
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(10 * settle):
	}
}

func TestWatcher_Removed(t *testing.T) {
	path := filepath.Join(t.TempDir(), "cues.vtt")
	require.NoError(t, os.WriteFile(path, []byte("WEBVTT\n"), 0o600))

	w := startWatcher(t, path)
	require.NoError(t, os.Remove(path))

	ev := nextEvent(t, w)
	assert.Equal(t, EventRemoved, ev.Type)
	assert.Equal(t, path, ev.Path)
}

func TestWatcher_DirectoryAdded(t *testing.T) {
	dir := t.TempDir()
	w := startWatcher(t, dir)

	path := filepath.Join(dir, "new.srt")
	require.NoError(t, os.WriteFile(path, []byte("1\n"), 0o600))

	ev := nextEvent(t, w)
	assert.Equal(t, EventAdded, ev.Type)
	assert.Equal(t, path, ev.Path)
}

func TestWatcher_WatchMissing(t *testing.T) {
	w, err := New(slog.New(slog.DiscardHandler), Options{})
	require.NoError(t, err)
	defer w.Stop() //nolint:errcheck // test cleanup

	assert.Error(t, w.Watch(filepath.Join(t.TempDir(), "nope.json")))
}

func TestWatcher_StopTwice(t *testing.T) {
	w, err := New(slog.New(slog.DiscardHandler), Options{})
	require.NoError(t, err)

	require.NoError(t, w.Stop())
	assert.NoError(t, w.Stop())
}
