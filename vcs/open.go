package vcs

import (
	"context"
	"fmt"
	"sort"
	"sync"
)

// An Opener opens the repository rooted at dir.
type Opener func(dir string) (Repository, error)

// A Cloner clones the repository at url into dir.
type Cloner func(ctx context.Context, url, dir string, opt CloneOpt) (Repository, error)

var (
	registryMu sync.RWMutex
	openers    = map[string]Opener{}
	cloners    = map[string]Cloner{}
)

// RegisterOpener registers a func to open repositories of the given
// backend. If a func is already registered for the backend, it is
// overwritten.
//
// Backend packages call RegisterOpener in their init funcs, so they must
// be imported (possibly with a blank import) before Open is called.
func RegisterOpener(backend string, f Opener) {
	registryMu.Lock()
	defer registryMu.Unlock()
	openers[backend] = f
}

// RegisterCloner registers a func to clone repositories of the given
// backend. If a func is already registered for the backend, it is
// overwritten.
func RegisterCloner(backend string, f Cloner) {
	registryMu.Lock()
	defer registryMu.Unlock()
	cloners[backend] = f
}

// Open opens the repository at dir using the named backend.
func Open(backend, dir string) (Repository, error) {
	registryMu.RLock()
	f, ok := openers[backend]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnsupportedBackendError{Backend: backend, Op: "open"}
	}
	return f(dir)
}

// Clone clones the repository at url into dir using the named backend.
func Clone(ctx context.Context, backend, url, dir string, opt CloneOpt) (Repository, error) {
	registryMu.RLock()
	f, ok := cloners[backend]
	registryMu.RUnlock()
	if !ok {
		return nil, &UnsupportedBackendError{Backend: backend, Op: "clone"}
	}
	return f(ctx, url, dir, opt)
}

// Backends returns the names of all backends that can open repositories.
func Backends() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(openers))
	for name := range openers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

type UnsupportedBackendError struct {
	Backend string
	Op      string
}

func (e *UnsupportedBackendError) Error() string {
	return fmt.Sprintf("%s: unsupported backend %q (registered: %v)", e.Op, e.Backend, Backends())
}
