// Package registry maps type names to their codecs. Structure definitions
// register themselves under a name, and fields that reference types by name
// resolve them here lazily, at first use, which is what lets mutually
// forward-referencing definitions work.
package registry

import (
	"sort"
	"sync"

	"github.com/pkg/errors"

	"github.com/binarytools/strata/field"
)

// Registry is a named type table. The zero value is not usable; call New.
// Resolve is safe for concurrent use with other Resolves; registration is
// expected to happen up front, but is locked all the same.
type Registry struct {
	mu    sync.RWMutex
	types map[string]field.Type
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{types: map[string]field.Type{}}
}

// Register binds name to t, replacing any previous binding.
func (r *Registry) Register(name string, t field.Type) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.types[name] = t
}

// Resolve returns the type registered under name. Implements field.Resolver.
func (r *Registry) Resolve(name string) (field.Type, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[name]
	if !ok {
		return nil, errors.Wrapf(field.ErrTypeNotFound, "%q", name)
	}
	return t, nil
}

// Names returns the registered type names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.types))
	for n := range r.types {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Default is the process-wide registry used by the package-level functions.
// Independent consumers that must not share type names should carry their
// own Registry instead.
var Default = New()

// Register binds name to t in the default registry.
func Register(name string, t field.Type) { Default.Register(name, t) }

// Resolve resolves name in the default registry.
func Resolve(name string) (field.Type, error) { return Default.Resolve(name) }
