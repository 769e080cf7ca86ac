package generation

import (
	"fmt"

	"github.com/kailas-cloud/medscribe/internal/domain"
	"github.com/kailas-cloud/medscribe/internal/domain/generation"
)

type entry struct {
	backend  Backend
	defaults generation.Parameters
	reason   string
}

// Registry maps every known model type to a backend or to an absent marker.
// It is filled once at startup and read-only afterwards.
type Registry struct {
	entries map[generation.ModelType]entry
}

// NewRegistry returns a registry where every known type starts absent.
func NewRegistry() *Registry {
	r := &Registry{entries: make(map[generation.ModelType]entry, len(generation.KnownModelTypes()))}
	for _, t := range generation.KnownModelTypes() {
		r.entries[t] = entry{reason: "not registered"}
	}
	return r
}

// Register binds a backend with its parameter defaults. Unknown tags panic.
func (r *Registry) Register(t generation.ModelType, b Backend, defaults generation.Parameters) {
	if !t.IsKnown() {
		panic(fmt.Sprintf("generation: register unknown model type %q", t))
	}
	if b == nil {
		panic(fmt.Sprintf("generation: nil backend for %q", t))
	}
	r.entries[t] = entry{backend: b, defaults: defaults}
}

// MarkAbsent records why a known backend is not available in this process.
func (r *Registry) MarkAbsent(t generation.ModelType, reason string) {
	if !t.IsKnown() {
		panic(fmt.Sprintf("generation: mark unknown model type %q", t))
	}
	r.entries[t] = entry{reason: reason}
}

// resolve returns the entry for t.
// Unknown tags yield ErrUnknownModel, absent ones ErrBackendNotConfigured.
func (r *Registry) resolve(t generation.ModelType) (entry, error) {
	e, ok := r.entries[t]
	if !ok {
		return entry{}, fmt.Errorf("%q: %w", t, domain.ErrUnknownModel)
	}
	if e.backend == nil {
		return entry{}, fmt.Errorf("%s: %s: %w", t, e.reason, domain.ErrBackendNotConfigured)
	}
	return e, nil
}

// Check reports whether t can serve requests without calling the backend.
func (r *Registry) Check(t generation.ModelType) error {
	_, err := r.resolve(t)
	return err
}
