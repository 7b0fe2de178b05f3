package snapshot

import (
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"

	"github.com/stackvity/dired/internal/filesystem"
	"github.com/stackvity/dired/internal/row"
)

// MetaFileSuffix marks auxiliary metadata files that can be filtered out of
// listings. The comparison is case-insensitive.
const MetaFileSuffix = ".meta"

// Options controls which directory entries a snapshot retains.
type Options struct {
	ShowDotfiles  bool
	ShowMetaFiles bool
	MaxEntries    int
}

// Snapshot is the ordered set of rows for one directory at one point in time.
// CapturedAt is the directory's own mtime, sampled at the end of the build so
// changes racing the enumeration are still detected on the next read.
type Snapshot struct {
	Directory  string
	Rows       []row.FileRow
	CapturedAt time.Time
	Truncated  bool
}

// Warning reports a single entry that could not be stat'd during a build.
// Soft by design: one unreadable entry never fails the whole snapshot.
type Warning struct {
	Name string
	Err  error
}

// IdentityResolver resolves a stat result to display names for owner and
// group. Empty strings mean the identity is unavailable; rows render those
// as "-". Name resolution against the OS identity database is a collaborator
// of the engine, not part of it.
type IdentityResolver interface {
	Lookup(info fs.FileInfo) (owner, group string)
}

// Builder constructs listing snapshots from stat/readdir calls.
type Builder struct {
	fs       filesystem.FileSystem
	identity IdentityResolver
	logger   *slog.Logger
}

// NewBuilder creates a Builder. identity may be nil, in which case every row
// carries absent owner/group.
func NewBuilder(fsys filesystem.FileSystem, identity IdentityResolver, logger *slog.Logger) *Builder {
	return &Builder{fs: fsys, identity: identity, logger: logger}
}

// Build enumerates a directory into a Snapshot. A missing or non-directory
// target yields an empty snapshot rather than an error so the caller can
// still render a header-only buffer.
func (b *Builder) Build(directory string, opts Options) (*Snapshot, []Warning) {
	snap := &Snapshot{Directory: directory}

	dirInfo, err := b.fs.Stat(directory)
	if err != nil || !dirInfo.IsDir() {
		b.logger.Warn("Listing target is missing or not a directory", "dir", directory, "error", err)
		return snap, nil
	}

	entries, err := b.fs.ReadDir(directory)
	if err != nil {
		b.logger.Warn("Failed to enumerate directory", "dir", directory, "error", err)
		return snap, []Warning{{Name: ".", Err: err}}
	}

	// Synthetic entries come first and bypass the dotfile filter.
	names := make([]string, 0, len(entries)+2)
	names = append(names, ".", "..")
	for _, entry := range entries {
		name := entry.Name()
		if !opts.ShowDotfiles && strings.HasPrefix(name, ".") {
			continue
		}
		if !opts.ShowMetaFiles && strings.HasSuffix(strings.ToLower(name), MetaFileSuffix) {
			continue
		}
		names = append(names, name)
	}

	if opts.MaxEntries > 0 && len(names) > opts.MaxEntries {
		names = names[:opts.MaxEntries]
		snap.Truncated = true
		b.logger.Debug("Listing truncated", "dir", directory, "max_entries", opts.MaxEntries)
	}

	var warnings []Warning
	snap.Rows = make([]row.FileRow, 0, len(names))
	for _, name := range names {
		info, err := b.fs.Stat(filepath.Join(directory, name))
		if err != nil {
			b.logger.Warn("Skipping unreadable entry", "dir", directory, "name", name, "error", err)
			warnings = append(warnings, Warning{Name: name, Err: err})
			continue
		}
		snap.Rows = append(snap.Rows, b.buildRow(directory, name, info))
	}

	// Sample the directory mtime last; a change during enumeration then
	// invalidates this snapshot on the next cache read.
	if after, err := b.fs.Stat(directory); err == nil {
		snap.CapturedAt = after.ModTime()
	} else {
		snap.CapturedAt = dirInfo.ModTime()
	}

	return snap, warnings
}

// buildRow converts one stat result into a FileRow, with its rendered
// filename column precomputed so later consumers never rescan the line.
func (b *Builder) buildRow(directory, name string, info fs.FileInfo) row.FileRow {
	var owner, group string
	if b.identity != nil {
		owner, group = b.identity.Lookup(info)
	}

	created := changeTime(info)
	r := row.FileRow{
		Directory:     directory,
		Name:          name,
		IsDirectory:   info.IsDir(),
		IsRegularFile: !info.IsDir(),
		Owner:         owner,
		Group:         group,
		SizeBytes:     info.Size(),
		Month:         created.Month().String()[:3],
		Day:           created.Day(),
		Hour:          created.Hour(),
		Minute:        created.Minute(),
		ModeToken:     row.ModeToken(info.IsDir(), info.Mode()),
	}
	_, r.FilenameColumn = row.Encode(r)
	return r
}
