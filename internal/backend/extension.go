package backend

import (
	"errors"
	"fmt"
	"sync"
)

// Extension point errors.
var (
	ErrDuplicateExtensionPoint = errors.New("extension point already registered")
	ErrExtensionPointNotFound  = errors.New("extension point not found")
	ErrExtensionPointType      = errors.New("extension point has unexpected type")
)

// ExtensionPoint identifies an interface a module exposes to other modules.
// T is the type of the implementation registered under ID.
type ExtensionPoint[T any] struct {
	ID string
}

// NewExtensionPoint creates a typed extension point reference.
func NewExtensionPoint[T any](id string) ExtensionPoint[T] {
	return ExtensionPoint[T]{ID: id}
}

// ExtensionPoints holds the implementations registered in one backend.
type ExtensionPoints struct {
	mu    sync.RWMutex
	impls map[string]any
	owner map[string]string
}

func newExtensionPoints() *ExtensionPoints {
	return &ExtensionPoints{impls: make(map[string]any), owner: make(map[string]string)}
}

func (e *ExtensionPoints) register(id, owner string, impl any) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if prev, ok := e.owner[id]; ok {
		return fmt.Errorf("%w: %s (registered by %s)", ErrDuplicateExtensionPoint, id, prev)
	}
	e.impls[id] = impl
	e.owner[id] = owner
	return nil
}

func (e *ExtensionPoints) lookup(id string) (any, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	impl, ok := e.impls[id]
	return impl, ok
}

// IDs returns the registered extension point ids.
func (e *ExtensionPoints) IDs() []string {
	e.mu.RLock()
	defer e.mu.RUnlock()
	out := make([]string, 0, len(e.impls))
	for id := range e.impls {
		out = append(out, id)
	}
	return out
}

// RegisterExtensionPoint exposes impl under ep for the other modules of env's
// backend.
func RegisterExtensionPoint[T any](env *Env, ep ExtensionPoint[T], impl T) error {
	if err := env.points.register(ep.ID, env.module.String(), impl); err != nil {
		return err
	}
	env.providesPoints = true
	return nil
}

// GetExtensionPoint looks up the implementation registered under ep.
func GetExtensionPoint[T any](points *ExtensionPoints, ep ExtensionPoint[T]) (T, error) {
	var zero T
	impl, ok := points.lookup(ep.ID)
	if !ok {
		return zero, fmt.Errorf("%w: %s", ErrExtensionPointNotFound, ep.ID)
	}
	typed, ok := impl.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s is %T", ErrExtensionPointType, ep.ID, impl)
	}
	return typed, nil
}
