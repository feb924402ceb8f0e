package scaffolder

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Registry errors.
var (
	ErrDuplicateAction = errors.New("action already registered")
	ErrActionNotFound  = errors.New("action not found")
	ErrInvalidAction   = errors.New("invalid action")
)

// Registry holds actions by id. It is safe for concurrent use.
type Registry struct {
	mu      sync.RWMutex
	actions map[string]*Action
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{actions: make(map[string]*Action)}
}

// Register adds action.
func (r *Registry) Register(action *Action) error {
	if action == nil || action.ID == "" || action.Handler == nil {
		return fmt.Errorf("%w: id and handler are required", ErrInvalidAction)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.actions[action.ID]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateAction, action.ID)
	}
	r.actions[action.ID] = action
	return nil
}

// Get returns the action registered under id.
func (r *Registry) Get(id string) (*Action, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	action, ok := r.actions[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrActionNotFound, id)
	}
	return action, nil
}

// List returns all actions sorted by id.
func (r *Registry) List() []*Action {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Action, 0, len(r.actions))
	for _, a := range r.actions {
		out = append(out, a)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}
