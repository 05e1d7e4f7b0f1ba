package scanlator

import "sort"

// The registry maps implementation identifiers to plugin factories. Each
// plugin file registers itself from init, so the table is complete before
// main runs and is never written again; reads need no synchronization.
var registry = map[string]registration{}

type registration struct {
	display string
	factory Factory
}

// Register adds a plugin under its implementation identifier. Meant to be
// called from init; a duplicate identifier is a programming error.
func Register(impl, displayName string, f Factory) {
	if _, dup := registry[impl]; dup {
		panic("scanlator: duplicate registration for " + impl)
	}
	registry[impl] = registration{display: displayName, factory: f}
}

// Resolve looks up a factory by exact implementation identifier. A miss is
// not an error here; the tracker reports it per mapping.
func Resolve(impl string) (Factory, bool) {
	r, ok := registry[impl]
	if !ok {
		return nil, false
	}
	return r.factory, true
}

// DisplayName returns the registered plugin's display name, falling back to
// the identifier itself for unknown implementations.
func DisplayName(impl string) string {
	if r, ok := registry[impl]; ok {
		return r.display
	}
	return impl
}

// Implementations lists every registered identifier, sorted.
func Implementations() []string {
	out := make([]string, 0, len(registry))
	for impl := range registry {
		out = append(out, impl)
	}
	sort.Strings(out)
	return out
}
