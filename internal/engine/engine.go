package engine

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/stackvity/dired/internal/cache"
	"github.com/stackvity/dired/internal/config"
	"github.com/stackvity/dired/internal/filesystem"
	"github.com/stackvity/dired/internal/reconcile"
	"github.com/stackvity/dired/internal/row"
	"github.com/stackvity/dired/internal/snapshot"
)

// Engine exposes the boundary operations of the listing system to the
// surrounding document/UI layer: rendering a directory, mapping a line back
// to a row, reconciling an edited rendering, and cache control.
type Engine struct {
	Opts       *config.Options
	FS         filesystem.FileSystem
	Cache      *cache.ListingCache
	Reconciler *reconcile.Reconciler
	Logger     *slog.Logger
}

// NewEngine wires the snapshot builder, listing cache and reconciler around
// the given filesystem. identity may be nil for listings without ownership
// metadata.
func NewEngine(opts *config.Options, fsys filesystem.FileSystem, identity snapshot.IdentityResolver, logger *slog.Logger) *Engine {
	builder := snapshot.NewBuilder(fsys, identity, logger)
	return &Engine{
		Opts:       opts,
		FS:         fsys,
		Cache:      cache.New(fsys, builder, opts.MaxCachedDirs, logger),
		Reconciler: reconcile.New(fsys, logger),
		Logger:     logger,
	}
}

func (e *Engine) snapshotOptions() snapshot.Options {
	return snapshot.Options{
		ShowDotfiles:  e.Opts.ShowDotfiles,
		ShowMetaFiles: e.Opts.ShowMetaFiles,
		MaxEntries:    e.Opts.MaxEntries,
	}
}

// Render produces the full listing text for a directory: a header line
// "<directory>:", one line per row, and an informational trailer when the
// listing was truncated. An unreadable directory renders as header only.
func (e *Engine) Render(directory string) (string, []snapshot.Warning) {
	snap, warnings := e.Cache.Get(directory, e.snapshotOptions())

	var b strings.Builder
	b.WriteString(directory)
	b.WriteString(":\n")
	for _, r := range snap.Rows {
		line, _ := row.Encode(r)
		b.WriteString(line)
		b.WriteByte('\n')
	}
	if snap.Truncated {
		fmt.Fprintf(&b, "(listing truncated to %d entries)\n", e.Opts.MaxEntries)
	}
	return b.String(), warnings
}

// Rows returns the decoded row objects for a directory, in listing order.
func (e *Engine) Rows(directory string) ([]row.FileRow, []snapshot.Warning) {
	snap, warnings := e.Cache.Get(directory, e.snapshotOptions())
	return snap.Rows, warnings
}

// ParseLine maps a single listing line back to a row. It never fails: lines
// that do not match the listing format decode through the fallback path into
// a best-effort row.
func (e *Engine) ParseLine(directory, line string) row.FileRow {
	return row.Decode(directory, line)
}

// Reconcile applies the filename edits between two renderings of a
// directory and invalidates its cache entry, so the next render reflects
// actual filesystem state no matter how many renames succeeded.
func (e *Engine) Reconcile(directory, oldText, newText string) ([]reconcile.Result, error) {
	results, err := e.Reconciler.Reconcile(directory, oldText, newText)

	e.Cache.Invalidate(directory)
	if abs, absErr := filepath.Abs(directory); absErr == nil && abs != directory {
		e.Cache.Invalidate(abs)
	}

	return results, err
}

// Invalidate drops the cached listing for a directory.
func (e *Engine) Invalidate(directory string) {
	e.Cache.Invalidate(directory)
}

// ClearAll drops every cached listing. Hook for document close / dispose.
func (e *Engine) ClearAll() {
	e.Cache.Clear()
}
