//go:build linux

package snapshot

import (
	"io/fs"
	"syscall"
	"time"
)

// sysIDs extracts uid/gid from a stat result when the platform provides them.
func sysIDs(info fs.FileInfo) (uid, gid uint32, ok bool) {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return 0, 0, false
	}
	return st.Uid, st.Gid, true
}

// changeTime returns the entry's ctime, falling back to mtime when the raw
// stat structure is unavailable (e.g. a mock filesystem).
func changeTime(info fs.FileInfo) time.Time {
	st, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return info.ModTime()
	}
	return time.Unix(st.Ctim.Sec, st.Ctim.Nsec)
}
