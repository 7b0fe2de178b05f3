package reconcile

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/stackvity/dired/internal/filesystem"
	"github.com/stackvity/dired/internal/row"
)

// Constants for rename result status
const (
	StatusRenamed = "Renamed"
	StatusFailed  = "Failed"
)

// Result records one attempted rename derived from an edited listing.
type Result struct {
	From   string // absolute source path
	To     string // absolute destination path
	Status string
	Err    error
}

// Reconciler derives and executes the renames needed to make a directory
// match a user-edited rendering of its listing.
type Reconciler struct {
	fs     filesystem.FileSystem
	logger *slog.Logger
}

// New creates a Reconciler.
func New(fsys filesystem.FileSystem, logger *slog.Logger) *Reconciler {
	return &Reconciler{fs: fsys, logger: logger}
}

// Reconcile compares the previously rendered listing text with an edited one
// line by line and performs a rename wherever a row's filename changed. The
// header line is never touched. Renames run sequentially in line order;
// individual failures are recorded and do not abort the remaining renames.
// The caller must invalidate the directory's cache entry afterwards
// regardless of how many renames succeeded.
//
// The only hard failure is a directory argument that cannot be resolved to
// an absolute path.
func (r *Reconciler) Reconcile(directory, oldText, newText string) ([]Result, error) {
	absDir, err := filepath.Abs(directory)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve directory %q: %w", directory, err)
	}

	oldLines := splitLines(oldText)
	newLines := splitLines(newText)

	count := len(oldLines)
	if len(newLines) > count {
		count = len(newLines)
	}

	var results []Result
	// Line 0 is the header; start at 1. A missing line on either side is
	// treated as empty.
	for i := 1; i < count; i++ {
		oldLine := lineAt(oldLines, i)
		newLine := lineAt(newLines, i)
		if oldLine == "" && newLine == "" {
			continue
		}

		oldName := row.Decode(absDir, oldLine).Name
		newName := row.Decode(absDir, newLine).Name
		if oldName == "" || newName == "" || oldName == newName {
			continue
		}

		from := filepath.Join(absDir, oldName)
		to := filepath.Join(absDir, newName)
		// Plain rename semantics: an existing destination is the
		// platform's problem, not ours.
		if renameErr := r.fs.Rename(from, to); renameErr != nil {
			r.logger.Warn("Rename failed", "from", from, "to", to, "error", renameErr)
			results = append(results, Result{From: from, To: to, Status: StatusFailed, Err: renameErr})
			continue
		}
		r.logger.Debug("Renamed entry", "from", from, "to", to)
		results = append(results, Result{From: from, To: to, Status: StatusRenamed})
	}

	return results, nil
}

func splitLines(text string) []string {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	for i, line := range lines {
		lines[i] = strings.TrimSuffix(line, "\r")
	}
	return lines
}

func lineAt(lines []string, i int) string {
	if i >= len(lines) {
		return ""
	}
	return lines[i]
}
