package filesystem

import (
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

// MockFileSystem implements the FileSystem interface for testing purposes.
// It is an in-memory fake with per-path error simulation and call counters
// so tests can assert how often the engine touched the filesystem.
type MockFileSystem struct {
	mu       sync.RWMutex
	infos    map[string]*mockFileInfo
	entries  map[string][]string // directory path -> ordered base names
	contents map[string][]byte

	statErrorPaths    map[string]error
	readDirErrorPaths map[string]error
	renameErrorPaths  map[string]error // keyed by oldpath

	statCalls    map[string]int
	readDirCalls map[string]int
	renameCalls  map[string]int
}

// NewMockFileSystem creates a new instance of MockFileSystem, ready for use.
func NewMockFileSystem() *MockFileSystem {
	return &MockFileSystem{
		infos:             make(map[string]*mockFileInfo),
		entries:           make(map[string][]string),
		contents:          make(map[string][]byte),
		statErrorPaths:    make(map[string]error),
		readDirErrorPaths: make(map[string]error),
		renameErrorPaths:  make(map[string]error),
		statCalls:         make(map[string]int),
		readDirCalls:      make(map[string]int),
		renameCalls:       make(map[string]int),
	}
}

type mockFileInfo struct {
	name    string
	size    int64
	mode    os.FileMode
	modTime time.Time
	isDir   bool
}

func (mfi *mockFileInfo) Name() string       { return mfi.name }
func (mfi *mockFileInfo) Size() int64        { return mfi.size }
func (mfi *mockFileInfo) Mode() os.FileMode  { return mfi.mode }
func (mfi *mockFileInfo) ModTime() time.Time { return mfi.modTime }
func (mfi *mockFileInfo) IsDir() bool        { return mfi.isDir }
func (mfi *mockFileInfo) Sys() interface{}   { return nil }

// mockDirEntry to satisfy fs.DirEntry
type mockDirEntry struct {
	fs.FileInfo
}

func (m *mockDirEntry) Type() fs.FileMode          { return m.Mode().Type() }
func (m *mockDirEntry) Info() (fs.FileInfo, error) { return m.FileInfo, nil }

// --- Helper methods for setting up the mock state ---

// AddDir registers a directory. Entries added under it later keep their
// insertion order, which stands in for filesystem enumeration order.
func (mfs *MockFileSystem) AddDir(path string, modTime time.Time) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	clean := filepath.Clean(path)
	mfs.infos[clean] = &mockFileInfo{
		name:    filepath.Base(clean),
		modTime: modTime,
		mode:    0755 | os.ModeDir,
		isDir:   true,
	}
	if _, ok := mfs.entries[clean]; !ok {
		mfs.entries[clean] = nil
	}
	mfs.registerWithParent(clean)
}

// AddFile registers a regular file of the given size.
func (mfs *MockFileSystem) AddFile(path string, size int64, modTime time.Time) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	clean := filepath.Clean(path)
	mfs.infos[clean] = &mockFileInfo{
		name:    filepath.Base(clean),
		size:    size,
		modTime: modTime,
		mode:    0644,
	}
	mfs.contents[clean] = make([]byte, 0)
	mfs.registerWithParent(clean)
}

// registerWithParent appends the entry to its parent directory's listing,
// preserving insertion order. Caller holds the lock.
func (mfs *MockFileSystem) registerWithParent(clean string) {
	parent := filepath.Dir(clean)
	if _, ok := mfs.entries[parent]; !ok {
		return
	}
	base := filepath.Base(clean)
	for _, existing := range mfs.entries[parent] {
		if existing == base {
			return
		}
	}
	mfs.entries[parent] = append(mfs.entries[parent], base)
}

// SetModTime overrides the modification time of a registered path.
func (mfs *MockFileSystem) SetModTime(path string, modTime time.Time) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	if info, ok := mfs.infos[filepath.Clean(path)]; ok {
		info.modTime = modTime
	}
}

// --- Helper methods for simulating errors ---

func (mfs *MockFileSystem) SimulateStatError(path string, err error) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.statErrorPaths[filepath.Clean(path)] = err
}

func (mfs *MockFileSystem) SimulateReadDirError(path string, err error) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.readDirErrorPaths[filepath.Clean(path)] = err
}

func (mfs *MockFileSystem) SimulateRenameError(oldpath string, err error) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.renameErrorPaths[filepath.Clean(oldpath)] = err
}

// --- Call counters and assert helpers ---

// StatCalls reports how many times Stat was invoked for the path.
func (mfs *MockFileSystem) StatCalls(path string) int {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	return mfs.statCalls[filepath.Clean(path)]
}

// ReadDirCalls reports how many times ReadDir was invoked for the path.
func (mfs *MockFileSystem) ReadDirCalls(path string) int {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	return mfs.readDirCalls[filepath.Clean(path)]
}

// RenameCalls reports how many times Rename was invoked with the oldpath.
func (mfs *MockFileSystem) RenameCalls(oldpath string) int {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	return mfs.renameCalls[filepath.Clean(oldpath)]
}

func (mfs *MockFileSystem) AssertRenameCalled(t *testing.T, oldpath string) {
	t.Helper()
	assert.Greater(t, mfs.RenameCalls(oldpath), 0, "Rename was not called for %s", oldpath)
}

func (mfs *MockFileSystem) AssertRenameNotCalled(t *testing.T, oldpath string) {
	t.Helper()
	assert.Equal(t, 0, mfs.RenameCalls(oldpath), "Rename should not have been called for %s", oldpath)
}

// --- Implement FileSystem interface methods ---

// ReadDir returns the registered entries of a directory in insertion order.
func (mfs *MockFileSystem) ReadDir(name string) ([]fs.DirEntry, error) {
	mfs.mu.Lock()
	clean := filepath.Clean(name)
	mfs.readDirCalls[clean]++
	mfs.mu.Unlock()

	mfs.mu.RLock()
	defer mfs.mu.RUnlock()

	if err, ok := mfs.readDirErrorPaths[clean]; ok {
		return nil, err
	}
	info, ok := mfs.infos[clean]
	if !ok {
		return nil, os.ErrNotExist
	}
	if !info.isDir {
		return nil, &os.PathError{Op: "readdir", Path: name, Err: os.ErrInvalid}
	}

	names := mfs.entries[clean]
	out := make([]fs.DirEntry, 0, len(names))
	for _, base := range names {
		childInfo, ok := mfs.infos[filepath.Join(clean, base)]
		if !ok {
			continue
		}
		out = append(out, &mockDirEntry{FileInfo: childInfo})
	}
	return out, nil
}

// Stat returns the registered FileInfo, counting the call.
func (mfs *MockFileSystem) Stat(name string) (fs.FileInfo, error) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	clean := filepath.Clean(name)
	mfs.statCalls[clean]++

	if err, ok := mfs.statErrorPaths[clean]; ok {
		return nil, err
	}
	info, ok := mfs.infos[clean]
	if !ok {
		return nil, os.ErrNotExist
	}
	return info, nil
}

// Rename moves a registered entry, replacing any existing destination, and
// advances the parent directory's modification time the way a real
// filesystem would.
func (mfs *MockFileSystem) Rename(oldpath, newpath string) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()

	oldClean := filepath.Clean(oldpath)
	newClean := filepath.Clean(newpath)
	mfs.renameCalls[oldClean]++

	if err, ok := mfs.renameErrorPaths[oldClean]; ok {
		return err
	}
	info, ok := mfs.infos[oldClean]
	if !ok {
		return &os.PathError{Op: "rename", Path: oldpath, Err: os.ErrNotExist}
	}

	delete(mfs.infos, oldClean)
	info.name = filepath.Base(newClean)
	mfs.infos[newClean] = info
	if content, ok := mfs.contents[oldClean]; ok {
		delete(mfs.contents, oldClean)
		mfs.contents[newClean] = content
	}

	oldParent := filepath.Dir(oldClean)
	newParent := filepath.Dir(newClean)
	mfs.removeEntry(oldParent, filepath.Base(oldClean))
	mfs.removeEntry(newParent, filepath.Base(newClean))
	if _, ok := mfs.entries[newParent]; ok {
		mfs.entries[newParent] = append(mfs.entries[newParent], filepath.Base(newClean))
	}

	now := time.Now()
	for _, parent := range []string{oldParent, newParent} {
		if parentInfo, ok := mfs.infos[parent]; ok {
			parentInfo.modTime = now
		}
	}
	return nil
}

// removeEntry drops a base name from a directory listing. Caller holds the lock.
func (mfs *MockFileSystem) removeEntry(dir, base string) {
	names := mfs.entries[dir]
	for i, existing := range names {
		if existing == base {
			mfs.entries[dir] = append(names[:i:i], names[i+1:]...)
			return
		}
	}
}

// ReadFile returns registered file content.
func (mfs *MockFileSystem) ReadFile(name string) ([]byte, error) {
	mfs.mu.RLock()
	defer mfs.mu.RUnlock()
	content, ok := mfs.contents[filepath.Clean(name)]
	if !ok {
		return nil, os.ErrNotExist
	}
	return content, nil
}

// WriteFileContent seeds content for a registered file, for ReadFile tests.
func (mfs *MockFileSystem) WriteFileContent(name string, data []byte) {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	mfs.contents[filepath.Clean(name)] = data
}

// Chtimes updates the modification time of a registered path.
func (mfs *MockFileSystem) Chtimes(name string, atime time.Time, mtime time.Time) error {
	mfs.mu.Lock()
	defer mfs.mu.Unlock()
	info, ok := mfs.infos[filepath.Clean(name)]
	if !ok {
		return os.ErrNotExist
	}
	info.modTime = mtime
	return nil
}
