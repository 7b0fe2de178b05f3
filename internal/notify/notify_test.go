package notify

import (
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// refreshRecorder collects refresh callback invocations for assertions.
type refreshRecorder struct {
	mu   sync.Mutex
	dirs []string
}

func (r *refreshRecorder) record(dir string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dirs = append(r.dirs, dir)
}

func (r *refreshRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.dirs)
}

func (r *refreshRecorder) last() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.dirs) == 0 {
		return ""
	}
	return r.dirs[len(r.dirs)-1]
}

func (r *refreshRecorder) all() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, len(r.dirs))
	copy(out, r.dirs)
	return out
}

func newTestNotifier(t *testing.T, debounce time.Duration) (*Notifier, *refreshRecorder) {
	t.Helper()
	rec := &refreshRecorder{}
	n, err := New(debounce, rec.record, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { n.Close() })
	return n, rec
}

func touch(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0o644))
}

func TestWatch_RefreshAfterQuietPeriod(t *testing.T) {
	dir := t.TempDir()
	n, rec := newTestNotifier(t, 50*time.Millisecond)
	require.NoError(t, n.Watch(dir))

	touch(t, filepath.Join(dir, "a.txt"))

	assert.Eventually(t, func() bool {
		return rec.count() == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, dir, rec.last())
	assert.Equal(t, 0, n.PendingCount())
}

func TestWatch_BurstCoalescesToOneRefresh(t *testing.T) {
	dir := t.TempDir()
	n, rec := newTestNotifier(t, 100*time.Millisecond)
	require.NoError(t, n.Watch(dir))

	// Events spaced well inside the debounce window keep resetting the
	// timer; only one refresh fires once the burst ends.
	for i := 0; i < 5; i++ {
		touch(t, filepath.Join(dir, "burst.txt"))
		time.Sleep(10 * time.Millisecond)
	}

	assert.Eventually(t, func() bool {
		return rec.count() >= 1
	}, 2*time.Second, 10*time.Millisecond)

	// A full extra window passes with no further events; the count stays put.
	time.Sleep(200 * time.Millisecond)
	assert.Equal(t, 1, rec.count())
}

func TestWatch_SwitchDirectoryDropsPendingRefresh(t *testing.T) {
	dirA := t.TempDir()
	dirB := t.TempDir()
	n, rec := newTestNotifier(t, 150*time.Millisecond)
	require.NoError(t, n.Watch(dirA))

	touch(t, filepath.Join(dirA, "a.txt"))

	// Re-arming for another directory before the quiet period elapses
	// cancels the pending refresh for the old one.
	require.NoError(t, n.Watch(dirB))
	touch(t, filepath.Join(dirB, "b.txt"))

	assert.Eventually(t, func() bool {
		return rec.count() >= 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.Equal(t, dirB, rec.last())
	for _, d := range rec.all() {
		assert.NotEqual(t, dirA, d)
	}
}

func TestWatch_MissingDirectory(t *testing.T) {
	n, _ := newTestNotifier(t, 50*time.Millisecond)
	err := n.Watch(filepath.Join(t.TempDir(), "does-not-exist"))
	assert.Error(t, err)
}

func TestClose_CancelsPending(t *testing.T) {
	dir := t.TempDir()
	rec := &refreshRecorder{}
	n, err := New(30*time.Second, rec.record, testLogger())
	require.NoError(t, err)
	require.NoError(t, n.Watch(dir))

	touch(t, filepath.Join(dir, "a.txt"))

	// Give the event loop a moment to arm the timer, then close.
	assert.Eventually(t, func() bool {
		return n.PendingCount() == 1
	}, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, n.Close())
	assert.Equal(t, 0, n.PendingCount())
	assert.Equal(t, 0, rec.count())
}

func TestClose_Idempotent(t *testing.T) {
	n, err := New(50*time.Millisecond, nil, testLogger())
	require.NoError(t, err)
	require.NoError(t, n.Close())
	// fsnotify tolerates double close.
	assert.NoError(t, n.Close())
}
