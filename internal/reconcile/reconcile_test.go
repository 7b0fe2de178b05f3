package reconcile

import (
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stackvity/dired/internal/filesystem"
	"github.com/stackvity/dired/internal/row"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// listing renders a header plus one encoded row per name, matching what the
// engine hands to an editor.
func listing(directory string, names ...string) string {
	var b strings.Builder
	b.WriteString(directory + ":\n")
	for _, name := range names {
		line, _ := row.Encode(row.FileRow{
			Directory:     directory,
			Name:          name,
			IsRegularFile: true,
			Owner:         "alice",
			Group:         "staff",
			SizeBytes:     532,
			ModeToken:     "-rw-r--r--",
			Month:         "Jun",
			Day:           7,
			Hour:          4,
			Minute:        5,
		})
		b.WriteString(line + "\n")
	}
	return b.String()
}

func newTestFS(t *testing.T, names ...string) *filesystem.MockFileSystem {
	t.Helper()
	t0 := time.Date(2024, time.June, 7, 4, 5, 0, 0, time.UTC)
	mfs := filesystem.NewMockFileSystem()
	mfs.AddDir("/", t0)
	mfs.AddDir("/data", t0)
	for _, name := range names {
		mfs.AddFile("/data/"+name, 532, t0)
	}
	return mfs
}

func TestReconcile_SingleRename(t *testing.T) {
	mfs := newTestFS(t, "a.txt", "b.txt")
	r := New(mfs, testLogger())

	oldText := listing("/data", "a.txt", "b.txt")
	newText := listing("/data", "a.txt", "c.txt")

	results, err := r.Reconcile("/data", oldText, newText)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/data/b.txt", results[0].From)
	assert.Equal(t, "/data/c.txt", results[0].To)
	assert.Equal(t, StatusRenamed, results[0].Status)
	assert.NoError(t, results[0].Err)

	mfs.AssertRenameCalled(t, "/data/b.txt")
	mfs.AssertRenameNotCalled(t, "/data/a.txt")
}

func TestReconcile_NoChanges(t *testing.T) {
	mfs := newTestFS(t, "a.txt", "b.txt")
	r := New(mfs, testLogger())

	text := listing("/data", "a.txt", "b.txt")
	results, err := r.Reconcile("/data", text, text)
	require.NoError(t, err)
	assert.Empty(t, results)
	mfs.AssertRenameNotCalled(t, "/data/a.txt")
	mfs.AssertRenameNotCalled(t, "/data/b.txt")
}

func TestReconcile_HeaderLineIgnored(t *testing.T) {
	mfs := newTestFS(t, "a.txt")
	r := New(mfs, testLogger())

	oldText := listing("/data", "a.txt")
	newText := "/elsewhere:\n" + strings.SplitN(oldText, "\n", 2)[1]

	results, err := r.Reconcile("/data", oldText, newText)
	require.NoError(t, err)
	assert.Empty(t, results)
}

func TestReconcile_FailureDoesNotAbort(t *testing.T) {
	mfs := newTestFS(t, "a.txt", "b.txt")
	renameErr := errors.New("device busy")
	mfs.SimulateRenameError("/data/a.txt", renameErr)
	r := New(mfs, testLogger())

	oldText := listing("/data", "a.txt", "b.txt")
	newText := listing("/data", "x.txt", "y.txt")

	results, err := r.Reconcile("/data", oldText, newText)
	require.NoError(t, err)
	require.Len(t, results, 2)

	assert.Equal(t, StatusFailed, results[0].Status)
	assert.ErrorIs(t, results[0].Err, renameErr)
	assert.Equal(t, StatusRenamed, results[1].Status)
	mfs.AssertRenameCalled(t, "/data/b.txt")
}

func TestReconcile_EmptyNamesSkipped(t *testing.T) {
	mfs := newTestFS(t, "a.txt")
	r := New(mfs, testLogger())

	// A row whose filename was deleted entirely yields no rename.
	oldText := listing("/data", "a.txt")
	line, col := row.Encode(row.Decode("/data", strings.Split(oldText, "\n")[1]))
	newText := "/data:\n" + line[:col] + "\n"

	results, err := r.Reconcile("/data", oldText, newText)
	require.NoError(t, err)
	assert.Empty(t, results)
	mfs.AssertRenameNotCalled(t, "/data/a.txt")
}

func TestReconcile_LineCountMismatch(t *testing.T) {
	mfs := newTestFS(t, "a.txt", "b.txt")
	r := New(mfs, testLogger())

	// Deleted trailing lines are treated as empty rows, never as renames.
	oldText := listing("/data", "a.txt", "b.txt")
	newText := listing("/data", "a.txt")

	results, err := r.Reconcile("/data", oldText, newText)
	require.NoError(t, err)
	assert.Empty(t, results)
	mfs.AssertRenameNotCalled(t, "/data/b.txt")
}

func TestReconcile_CRLFInput(t *testing.T) {
	mfs := newTestFS(t, "a.txt")
	r := New(mfs, testLogger())

	oldText := strings.ReplaceAll(listing("/data", "a.txt"), "\n", "\r\n")
	newText := strings.ReplaceAll(listing("/data", "renamed.txt"), "\n", "\r\n")

	results, err := r.Reconcile("/data", oldText, newText)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/data/a.txt", results[0].From)
	assert.Equal(t, "/data/renamed.txt", results[0].To)
}

func TestReconcile_NameWithSpaces(t *testing.T) {
	mfs := newTestFS(t, "plain.txt")
	r := New(mfs, testLogger())

	oldText := listing("/data", "plain.txt")
	newText := listing("/data", "file with spaces.txt")

	results, err := r.Reconcile("/data", oldText, newText)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "/data/file with spaces.txt", results[0].To)
	assert.Equal(t, StatusRenamed, results[0].Status)
}
