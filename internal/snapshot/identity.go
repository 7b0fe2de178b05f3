package snapshot

import (
	"io/fs"
	"os/user"
	"strconv"
	"sync"
)

// OSIdentityResolver resolves uid/gid numbers from stat results into display
// names via the OS identity database, memoizing lookups. Platforms whose
// stat results carry no ownership information resolve everything to absent.
type OSIdentityResolver struct {
	mu     sync.Mutex
	users  map[uint32]string
	groups map[uint32]string
}

// NewOSIdentityResolver creates a resolver with empty lookup caches.
func NewOSIdentityResolver() *OSIdentityResolver {
	return &OSIdentityResolver{
		users:  make(map[uint32]string),
		groups: make(map[uint32]string),
	}
}

// Lookup implements IdentityResolver.
func (r *OSIdentityResolver) Lookup(info fs.FileInfo) (string, string) {
	uid, gid, ok := sysIDs(info)
	if !ok {
		return "", ""
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	owner, cached := r.users[uid]
	if !cached {
		if u, err := user.LookupId(strconv.FormatUint(uint64(uid), 10)); err == nil {
			owner = u.Username
		}
		r.users[uid] = owner
	}

	group, cached := r.groups[gid]
	if !cached {
		if g, err := user.LookupGroupId(strconv.FormatUint(uint64(gid), 10)); err == nil {
			group = g.Name
		}
		r.groups[gid] = group
	}

	return owner, group
}

// StaticIdentityResolver always reports the same owner and group.
// Useful for tests and for rendering listings with fixed identity.
type StaticIdentityResolver struct {
	Owner string
	Group string
}

// Lookup implements IdentityResolver.
func (r StaticIdentityResolver) Lookup(fs.FileInfo) (string, string) {
	return r.Owner, r.Group
}
