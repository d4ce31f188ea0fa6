// Package preset provides the named preset registry used by convert.
//
// A preset bundles a default output extension with a configurator that
// applies default options to a command.Builder. Configurators run once,
// before any caller-supplied options, so callers can override them.
package preset

import (
	"errors"
	"fmt"
	"iter"
	"slices"
	"sync"

	"ffmerge/command"
)

// ErrNotFound is returned when a preset name is not registered.
var ErrNotFound = errors.New("preset not found")

// Configurator applies preset defaults to a builder.
type Configurator func(b *command.Builder)

// Preset is an immutable named configuration.
type Preset struct {
	Name      string
	Extension string
	Configure Configurator
}

// Apply runs the configurator against b. A nil configurator is a no-op.
func (p Preset) Apply(b *command.Builder) {
	if p.Configure != nil {
		p.Configure(b)
	}
}

// Registry maps preset names to presets. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	presets map[string]Preset
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{presets: make(map[string]Preset)}
}

// Define registers a preset, replacing any existing preset of the same name.
func (r *Registry) Define(name, extension string, configure Configurator) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.presets[name] = Preset{Name: name, Extension: extension, Configure: configure}
}

// Get returns the named preset or ErrNotFound.
func (r *Registry) Get(name string) (Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	return p, nil
}

// Exists reports whether name is registered.
func (r *Registry) Exists(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.presets[name]
	return ok
}

// Delete removes a preset. Deleting an unknown name is a no-op.
func (r *Registry) Delete(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.presets, name)
}

// Len returns the number of registered presets.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.presets)
}

// List returns a lazy, restartable sequence of presets ordered by name.
// Each iteration takes a snapshot of the names registered at that moment.
func (r *Registry) List() iter.Seq[Preset] {
	return func(yield func(Preset) bool) {
		r.mu.RLock()
		names := make([]string, 0, len(r.presets))
		for name := range r.presets {
			names = append(names, name)
		}
		r.mu.RUnlock()
		slices.Sort(names)

		for _, name := range names {
			p, err := r.Get(name)
			if err != nil {
				continue // deleted mid-iteration
			}
			if !yield(p) {
				return
			}
		}
	}
}
