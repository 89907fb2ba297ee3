package gate

import (
	"fmt"
	"slices"
	"sync"
)

// Registry publishes gates under path-like names ("/dev/completion"),
// the user-space stand-in for a device node table. Gates are published
// by their owning device during host initialization and unpublished
// during finalization; callers resolve a path with Open.
//
// Registry errors stay in the host layer: once a Session is obtained,
// the gate's own contract has no registry failure modes.
type Registry struct {
	mu    sync.RWMutex
	gates map[string]*CompletionGate
}

func NewRegistry() *Registry {
	return &Registry{
		gates: make(map[string]*CompletionGate),
	}
}

func (r *Registry) Publish(path string, g *CompletionGate) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.gates[path]; ok {
		return fmt.Errorf("publishing gate: path already taken: %q", path)
	}

	r.gates[path] = g
	return nil
}

func (r *Registry) Unpublish(path string) (*CompletionGate, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	g, ok := r.gates[path]
	if !ok {
		return nil, fmt.Errorf("unpublishing gate: not published: %q", path)
	}

	delete(r.gates, path)
	return g, nil
}

func (r *Registry) Lookup(path string) (*CompletionGate, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.gates[path]
	return g, ok
}

// Open resolves path and binds caller to the published gate.
func (r *Registry) Open(path string, caller string) (*Session, error) {
	g, ok := r.Lookup(path)
	if !ok {
		return nil, fmt.Errorf("opening gate: not published: %q", path)
	}
	return g.Open(caller), nil
}

func (r *Registry) Paths() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	paths := make([]string, 0, len(r.gates))
	for p := range r.gates {
		paths = append(paths, p)
	}
	slices.Sort(paths)
	return paths
}
