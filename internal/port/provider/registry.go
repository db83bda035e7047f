package provider

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs an adapter from its client registration.
type Factory func(cfg Config) (Adapter, error)

var (
	regMu    sync.RWMutex
	registry = map[string]Factory{}
)

// Register makes an adapter factory available under name. It panics when the
// name is already taken; registration happens at startup only.
func Register(name string, f Factory) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, dup := registry[name]; dup {
		panic(fmt.Sprintf("provider: Register called twice for %q", name))
	}
	registry[name] = f
}

// New builds the named adapter.
func New(name string, cfg Config) (Adapter, error) {
	regMu.RLock()
	f, ok := registry[name]
	regMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("provider: unknown adapter %q", name)
	}
	return f(cfg)
}

// Available lists registered adapter names, sorted.
func Available() []string {
	regMu.RLock()
	defer regMu.RUnlock()
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
