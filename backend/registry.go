package backend

import (
	"sync"

	"github.com/wippyai/wasmbench/errors"
)

// Factory creates a fresh adapter.
type Factory func() Backend

// Registry maps engine kinds to the adapters compiled into the binary.
type Registry struct {
	factories map[Kind]Factory
	order     []Kind
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		factories: make(map[Kind]Factory),
	}
}

// Register adds an adapter factory for kind.
func (r *Registry) Register(kind Kind, f Factory) error {
	if !kind.Known() {
		return errors.New(errors.PhaseConfig, errors.KindUnknownRuntime).
			Detail("cannot register unknown engine kind %d", uint8(kind)).
			Build()
	}
	if f == nil {
		return errors.InvalidConfig("nil factory for %s", kind)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.factories[kind]; ok {
		return errors.New(errors.PhaseConfig, errors.KindDuplicate).
			Runtime(kind.String()).
			Detail("engine already registered").
			Build()
	}
	r.factories[kind] = f
	r.order = append(r.order, kind)
	return nil
}

// MustRegister is Register that panics on error. For init-time wiring.
func (r *Registry) MustRegister(kind Kind, f Factory) {
	if err := r.Register(kind, f); err != nil {
		panic(err)
	}
}

// Resolve selects the adapter for name. Unknown names and engines not
// compiled in fail with errors.ErrUnknownRuntime.
func (r *Registry) Resolve(name string) (*Runtime, error) {
	kind := ParseKind(name)
	if kind == KindUnknown {
		return nil, errors.UnknownRuntime(name)
	}

	r.mu.RLock()
	f, ok := r.factories[kind]
	r.mu.RUnlock()
	if !ok {
		err := errors.UnknownRuntime(name)
		err.Detail = "wasm runtime " + name + " is not compiled into this binary"
		return nil, err
	}

	b := f()
	if b == nil {
		return nil, errors.InvalidConfig("factory for %s returned nil", kind)
	}
	return NewRuntime(kind, b), nil
}

// Has reports whether an adapter for kind is registered.
func (r *Registry) Has(kind Kind) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.factories[kind]
	return ok
}

// Kinds returns registered kinds in registration order.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, len(r.order))
	copy(out, r.order)
	return out
}
