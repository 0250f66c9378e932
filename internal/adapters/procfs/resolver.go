// Package procfs resolves process names from a /proc filesystem.
package procfs

import (
	"fmt"
	"strings"
	"sync"

	"github.com/prometheus/procfs"

	"github.com/bft-labs/logtap/internal/ports"
)

// DefaultRoot is the standard procfs mount point.
const DefaultRoot = procfs.DefaultMountPoint

// maxCached bounds the cache; reaching it starts a fresh one.
const maxCached = 4096

// Resolver maps a pid to the first argument of its command line.
//
// Names are cached per process instance: an entry is keyed on the pid and
// the process start time, so a reused pid is read again. Unreadable
// processes are not cached.
type Resolver struct {
	fs procfs.FS

	mu    sync.RWMutex
	cache map[int]cachedName
}

type cachedName struct {
	start uint64
	name  string
}

var (
	_ ports.ProcessNameResolver = (*Resolver)(nil)
	_ ports.ResolverCache       = (*Resolver)(nil)
)

// NewResolver creates a resolver reading from root. An empty root means
// DefaultRoot.
func NewResolver(root string) (*Resolver, error) {
	if root == "" {
		root = DefaultRoot
	}
	fs, err := procfs.NewFS(root)
	if err != nil {
		return nil, fmt.Errorf("open procfs %s: %w", root, err)
	}
	return &Resolver{fs: fs, cache: make(map[int]cachedName)}, nil
}

// Name returns the process name for pid, or "" when it cannot be read.
func (r *Resolver) Name(pid int) string {
	if pid <= 0 {
		return ""
	}
	proc, err := r.fs.Proc(pid)
	if err != nil {
		return ""
	}
	stat, err := proc.Stat()
	if err != nil {
		return ""
	}

	r.mu.RLock()
	c, ok := r.cache[pid]
	r.mu.RUnlock()
	if ok && c.start == stat.Starttime {
		return c.name
	}

	args, err := proc.CmdLine()
	if err != nil || len(args) == 0 {
		return ""
	}
	name := strings.TrimSpace(args[0])
	if name == "" {
		return ""
	}

	r.mu.Lock()
	if len(r.cache) >= maxCached {
		r.cache = make(map[int]cachedName)
	}
	r.cache[pid] = cachedName{start: stat.Starttime, name: name}
	r.mu.Unlock()
	return name
}

// Forget drops every cached name.
func (r *Resolver) Forget() {
	r.mu.Lock()
	r.cache = make(map[int]cachedName)
	r.mu.Unlock()
}

// Len returns the number of cached names.
func (r *Resolver) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.cache)
}
