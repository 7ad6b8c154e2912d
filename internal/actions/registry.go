package actions

import (
	"fmt"
	"sort"
	"sync"

	"gopkg.in/yaml.v3"
)

// Spec is the declarative description of one named action.
type Spec struct {
	Name     string         `yaml:"name"`
	Kind     string         `yaml:"kind"`
	Requires []string       `yaml:"requires"`
	Params   map[string]any `yaml:"params"`
}

// Decode decodes Params into out using its yaml tags.
func (s Spec) Decode(out any) error {
	if len(s.Params) == 0 {
		return nil
	}
	data, err := yaml.Marshal(s.Params)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidParams, s.Name, err)
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrInvalidParams, s.Name, err)
	}
	return nil
}

// Builder creates a fresh action instance from a spec.
type Builder func(ctx *Context, spec Spec) (Action, error)

// Registry maps action kinds to builders.
type Registry struct {
	mu       sync.RWMutex
	builders map[string]Builder
}

// NewRegistry creates an empty kind registry.
func NewRegistry() *Registry {
	return &Registry{
		builders: make(map[string]Builder),
	}
}

// Register adds a builder for kind.
func (r *Registry) Register(kind string, b Builder) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.builders[kind]; exists {
		return fmt.Errorf("action kind %q already registered", kind)
	}

	r.builders[kind] = b
	return nil
}

// Get retrieves the builder for kind.
func (r *Registry) Get(kind string) (Builder, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, exists := r.builders[kind]
	return b, exists
}

// Build instantiates spec using the builder registered for its kind.
func (r *Registry) Build(ctx *Context, spec Spec) (Action, error) {
	b, ok := r.Get(spec.Kind)
	if !ok {
		return nil, fmt.Errorf("%w: %q (action %q)", ErrUnknownKind, spec.Kind, spec.Name)
	}
	return b(ctx, spec)
}

// Kinds returns all registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	kinds := make([]string, 0, len(r.builders))
	for kind := range r.builders {
		kinds = append(kinds, kind)
	}
	sort.Strings(kinds)
	return kinds
}
