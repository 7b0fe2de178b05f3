package cache

import (
	"container/list"
	"log/slog"
	"sync"
	"time"

	"github.com/stackvity/dired/internal/filesystem"
	"github.com/stackvity/dired/internal/snapshot"
)

// entry pairs a snapshot with the directory mtime observed at capture time.
type entry struct {
	directory      string
	snap           *snapshot.Snapshot
	directoryMtime time.Time
	warnings       []snapshot.Warning
}

// ListingCache maps a directory path to its most recent snapshot. Reads
// validate against the directory's current mtime; entries beyond the
// configured capacity are evicted in insertion order (oldest inserted
// first). All map access is serialized by a single mutex; snapshot builds
// happen outside the lock and the last rebuild to complete wins.
type ListingCache struct {
	mu      sync.Mutex
	fs      filesystem.FileSystem
	builder *snapshot.Builder
	logger  *slog.Logger
	maxDirs int

	entries map[string]*list.Element
	order   *list.List // front = oldest inserted
}

// New creates a ListingCache bounded to maxDirs directories.
func New(fsys filesystem.FileSystem, builder *snapshot.Builder, maxDirs int, logger *slog.Logger) *ListingCache {
	return &ListingCache{
		fs:      fsys,
		builder: builder,
		logger:  logger,
		maxDirs: maxDirs,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
}

// Get returns the cached snapshot for directory when the directory's mtime
// still matches the one recorded at capture; otherwise it rebuilds, stores
// the fresh snapshot, and returns it. A fresh build's soft stat warnings are
// returned alongside; cache hits replay the warnings from the stored build.
func (c *ListingCache) Get(directory string, opts snapshot.Options) (*snapshot.Snapshot, []snapshot.Warning) {
	info, err := c.fs.Stat(directory)
	if err != nil || !info.IsDir() {
		// Unreadable targets are never cached; the builder produces the
		// empty snapshot the caller can still render.
		c.logger.Debug("Cache bypass for unreadable directory", "dir", directory, "error", err)
		snap, warnings := c.builder.Build(directory, opts)
		return snap, warnings
	}

	c.mu.Lock()
	if el, ok := c.entries[directory]; ok {
		e := el.Value.(*entry)
		if e.directoryMtime.Equal(info.ModTime()) {
			c.mu.Unlock()
			c.logger.Debug("Listing cache hit", "dir", directory)
			return e.snap, e.warnings
		}
		c.logger.Debug("Listing cache stale", "dir", directory,
			"cached_mtime", e.directoryMtime, "current_mtime", info.ModTime())
	}
	c.mu.Unlock()

	// Build outside the lock; stat/readdir may block. Concurrent rebuilds
	// of the same directory resolve last-writer-wins on install.
	snap, warnings := c.builder.Build(directory, opts)
	c.install(directory, snap, warnings)
	return snap, warnings
}

// install stores a freshly built snapshot, evicting the oldest-inserted
// entry once the capacity bound is exceeded.
func (c *ListingCache) install(directory string, snap *snapshot.Snapshot, warnings []snapshot.Warning) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := &entry{
		directory:      directory,
		snap:           snap,
		directoryMtime: snap.CapturedAt,
		warnings:       warnings,
	}

	if el, ok := c.entries[directory]; ok {
		el.Value = e
		return
	}

	c.entries[directory] = c.order.PushBack(e)
	if c.maxDirs > 0 && c.order.Len() > c.maxDirs {
		oldest := c.order.Front()
		c.order.Remove(oldest)
		evicted := oldest.Value.(*entry)
		delete(c.entries, evicted.directory)
		c.logger.Debug("Evicted oldest listing cache entry", "dir", evicted.directory)
	}
}

// Invalidate removes the entry for directory unconditionally; the next Get
// rebuilds.
func (c *ListingCache) Invalidate(directory string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[directory]; ok {
		c.order.Remove(el)
		delete(c.entries, directory)
		c.logger.Debug("Invalidated listing cache entry", "dir", directory)
	}
}

// Clear removes all entries. Used on document close / engine dispose.
func (c *ListingCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]*list.Element)
	c.order.Init()
	c.logger.Debug("Listing cache cleared")
}

// Len reports the number of cached directories.
func (c *ListingCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Contains reports whether a directory currently has a cache entry, without
// touching the filesystem.
func (c *ListingCache) Contains(directory string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.entries[directory]
	return ok
}
