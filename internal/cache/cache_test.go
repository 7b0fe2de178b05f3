package cache

import (
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/dired/internal/filesystem"
	"github.com/stackvity/dired/internal/snapshot"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testOptions() snapshot.Options {
	return snapshot.Options{ShowDotfiles: true, ShowMetaFiles: true, MaxEntries: 5000}
}

func newTestCache(t *testing.T, maxDirs int) (*ListingCache, *filesystem.MockFileSystem) {
	t.Helper()
	mfs := filesystem.NewMockFileSystem()
	t0 := time.Date(2024, time.June, 7, 4, 5, 0, 0, time.UTC)
	mfs.AddDir("/", t0)
	mfs.AddDir("/a", t0)
	mfs.AddFile("/a/one.txt", 10, t0)
	mfs.AddDir("/b", t0)
	mfs.AddDir("/c", t0)
	builder := snapshot.NewBuilder(mfs, nil, testLogger())
	return New(mfs, builder, maxDirs, testLogger()), mfs
}

func TestGet_HitSkipsRebuild(t *testing.T) {
	c, mfs := newTestCache(t, 10)

	first, _ := c.Get("/a", testOptions())
	readsAfterFirst := mfs.ReadDirCalls("/a")
	memberStats := mfs.StatCalls("/a/one.txt")
	require.Equal(t, 1, readsAfterFirst)

	// A hit re-checks the directory mtime only; members are never stat'd
	// again and no re-enumeration happens.
	second, _ := c.Get("/a", testOptions())
	assert.Same(t, first, second)
	assert.Equal(t, readsAfterFirst, mfs.ReadDirCalls("/a"))
	assert.Equal(t, memberStats, mfs.StatCalls("/a/one.txt"))
}

func TestGet_MtimeChangeRebuilds(t *testing.T) {
	c, mfs := newTestCache(t, 10)

	first, _ := c.Get("/a", testOptions())
	require.Len(t, first.Rows, 3)

	later := time.Date(2024, time.June, 8, 0, 0, 0, 0, time.UTC)
	mfs.AddFile("/a/two.txt", 20, later)
	mfs.SetModTime("/a", later)

	second, _ := c.Get("/a", testOptions())
	assert.NotSame(t, first, second)
	assert.Len(t, second.Rows, 4)
	assert.Equal(t, 2, mfs.ReadDirCalls("/a"))

	// The rebuilt entry is fresh again.
	third, _ := c.Get("/a", testOptions())
	assert.Same(t, second, third)
}

func TestGet_HitReplaysWarnings(t *testing.T) {
	c, mfs := newTestCache(t, 10)
	statErr := errors.New("permission denied")
	mfs.SimulateStatError("/a/one.txt", statErr)

	_, first := c.Get("/a", testOptions())
	require.Len(t, first, 1)

	_, second := c.Get("/a", testOptions())
	require.Len(t, second, 1)
	assert.ErrorIs(t, second[0].Err, statErr)
}

func TestGet_UnreadableDirectoryNotCached(t *testing.T) {
	c, _ := newTestCache(t, 10)

	snap, warnings := c.Get("/missing", testOptions())
	assert.Empty(t, snap.Rows)
	assert.Empty(t, warnings)
	assert.False(t, c.Contains("/missing"))
	assert.Equal(t, 0, c.Len())
}

func TestEviction_OldestInsertedFirst(t *testing.T) {
	c, mfs := newTestCache(t, 2)

	c.Get("/a", testOptions())
	c.Get("/b", testOptions())
	c.Get("/c", testOptions())

	assert.False(t, c.Contains("/a"))
	assert.True(t, c.Contains("/b"))
	assert.True(t, c.Contains("/c"))
	assert.Equal(t, 2, c.Len())

	// Re-reading /a rebuilds it and in turn evicts /b.
	c.Get("/a", testOptions())
	assert.Equal(t, 2, mfs.ReadDirCalls("/a"))
	assert.False(t, c.Contains("/b"))
	assert.True(t, c.Contains("/c"))
}

func TestEviction_RefreshKeepsInsertionOrder(t *testing.T) {
	c, mfs := newTestCache(t, 2)

	c.Get("/a", testOptions())
	c.Get("/b", testOptions())

	// A stale rebuild replaces /a in place; it does not move to the back,
	// so the next insertion still evicts /a.
	later := time.Now()
	mfs.SetModTime("/a", later)
	c.Get("/a", testOptions())

	c.Get("/c", testOptions())
	assert.False(t, c.Contains("/a"))
	assert.True(t, c.Contains("/b"))
	assert.True(t, c.Contains("/c"))
}

func TestInvalidate(t *testing.T) {
	c, mfs := newTestCache(t, 10)

	c.Get("/a", testOptions())
	c.Invalidate("/a")
	assert.False(t, c.Contains("/a"))

	c.Get("/a", testOptions())
	assert.Equal(t, 2, mfs.ReadDirCalls("/a"))

	// Invalidating an unknown directory is a no-op.
	c.Invalidate("/never-seen")
}

func TestClear(t *testing.T) {
	c, _ := newTestCache(t, 10)

	c.Get("/a", testOptions())
	c.Get("/b", testOptions())
	require.Equal(t, 2, c.Len())

	c.Clear()
	assert.Equal(t, 0, c.Len())
	assert.False(t, c.Contains("/a"))
	assert.False(t, c.Contains("/b"))
}
