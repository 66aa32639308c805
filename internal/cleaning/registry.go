package cleaning

import (
	"fmt"
)

// Registry holds steps in execution order. A step may only be registered after
// every step it depends on, so registration order is a valid run order.
type Registry struct {
	steps []Step
	index map[string]int
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{index: make(map[string]int)}
}

// Register appends a step
func (r *Registry) Register(step Step) error {
	if step == nil {
		return fmt.Errorf("cannot register nil step")
	}
	id := step.ID()
	if id == "" {
		return fmt.Errorf("step ID cannot be empty")
	}
	if _, exists := r.index[id]; exists {
		return fmt.Errorf("step %s already registered", id)
	}
	for _, dep := range step.Dependencies() {
		if _, ok := r.index[dep]; !ok {
			return fmt.Errorf("step %s depends on %s, which is not registered before it", id, dep)
		}
	}
	r.index[id] = len(r.steps)
	r.steps = append(r.steps, step)
	return nil
}

// MustRegister registers steps and panics on error. It is only used for the
// built-in step set.
func (r *Registry) MustRegister(steps ...Step) *Registry {
	for _, s := range steps {
		if err := r.Register(s); err != nil {
			panic(err)
		}
	}
	return r
}

// Get returns a step by ID
func (r *Registry) Get(id string) (Step, bool) {
	i, ok := r.index[id]
	if !ok {
		return nil, false
	}
	return r.steps[i], true
}

// List returns the steps in execution order
func (r *Registry) List() []Step {
	return append([]Step(nil), r.steps...)
}

// ListIDs returns the step IDs in execution order
func (r *Registry) ListIDs() []string {
	ids := make([]string, len(r.steps))
	for i, s := range r.steps {
		ids[i] = s.ID()
	}
	return ids
}

// Count returns the number of registered steps
func (r *Registry) Count() int {
	return len(r.steps)
}
