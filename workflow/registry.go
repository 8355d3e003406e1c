package workflow

import (
	"fmt"
	"sync"
)

// Registry maps workflow type names to definitions. It is safe for
// concurrent use.
type Registry struct {
	mu   sync.RWMutex
	defs map[string]*Definition
}

// NewRegistry creates an empty workflow registry.
func NewRegistry() *Registry {
	return &Registry{defs: make(map[string]*Definition)}
}

// Register adds a definition. Registering the same type twice replaces
// the earlier entry. It panics on a definition without a type name or
// start node (programming error).
func (r *Registry) Register(def *Definition) {
	if def.Type == "" {
		panic("workflow: definition has no type name")
	}
	if _, ok := def.Steps[NodeStart]; !ok {
		panic(fmt.Sprintf("workflow %q: no %q step", def.Type, NodeStart))
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.defs[def.Type] = def
}

// Get returns the definition for the given workflow type.
func (r *Registry) Get(workflowType string) (*Definition, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	def, ok := r.defs[workflowType]
	return def, ok
}

// Types returns all registered workflow type names.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	types := make([]string, 0, len(r.defs))
	for t := range r.defs {
		types = append(types, t)
	}
	return types
}
