package catalog

import (
	"context"
	"fmt"
	"sync"
)

// MemoryRegistry keeps registered types in process memory
type MemoryRegistry struct {
	mu    sync.RWMutex
	types map[string]RequirementType
}

// NewMemoryRegistry returns a registry seeded with the built-in types
func NewMemoryRegistry() *MemoryRegistry {
	r := &MemoryRegistry{types: make(map[string]RequirementType)}
	for _, t := range builtins {
		r.types[t.Code] = t
	}
	return r
}

// Lookup resolves a code against the built-in and registered types
func (r *MemoryRegistry) Lookup(_ context.Context, code string) (RequirementType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.types[code]
	if !ok {
		return RequirementType{}, fmt.Errorf("%w: %s", ErrNotFound, code)
	}
	return t, nil
}

// List returns every known type
func (r *MemoryRegistry) List(_ context.Context) ([]RequirementType, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]RequirementType, 0, len(r.types))
	for _, t := range r.types {
		out = append(out, t)
	}
	sortTypes(out)
	return out, nil
}

// Register adds a new type; built-in and duplicate codes are rejected
func (r *MemoryRegistry) Register(_ context.Context, t RequirementType) (RequirementType, error) {
	t, err := normalize(t)
	if err != nil {
		return RequirementType{}, err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.types[t.Code]; ok {
		return RequirementType{}, fmt.Errorf("%w: %s", ErrDuplicate, t.Code)
	}
	r.types[t.Code] = t
	return t, nil
}
