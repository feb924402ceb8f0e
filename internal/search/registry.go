package search

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rshade/stagehand/internal/scheduler"
)

// Registry errors.
var (
	ErrDuplicateCollator = errors.New("collator already registered")
	ErrInvalidCollator   = errors.New("invalid collator registration")
)

// DocumentCollatorFactory produces the documents of one type.
type DocumentCollatorFactory interface {
	// Type names the documents, e.g. "techdocs".
	Type() string

	// GetCollator collects every document of this type.
	GetCollator(ctx context.Context) ([]Document, error)
}

// RegisterCollatorParameters pairs a factory with the schedule it runs on.
type RegisterCollatorParameters struct {
	Schedule scheduler.TaskRunner
	Factory  DocumentCollatorFactory
}

// IndexRegistry collects collators contributed by backend modules.
type IndexRegistry struct {
	mu        sync.RWMutex
	collators []RegisterCollatorParameters
	types     map[string]bool
}

// NewIndexRegistry returns an empty registry.
func NewIndexRegistry() *IndexRegistry {
	return &IndexRegistry{types: make(map[string]bool)}
}

// AddCollator registers p. Each document type may be registered once.
func (r *IndexRegistry) AddCollator(p RegisterCollatorParameters) error {
	if p.Factory == nil || p.Schedule == nil {
		return fmt.Errorf("%w: schedule and factory are required", ErrInvalidCollator)
	}
	docType := p.Factory.Type()
	if docType == "" {
		return fmt.Errorf("%w: factory type is empty", ErrInvalidCollator)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.types[docType] {
		return fmt.Errorf("%w: %s", ErrDuplicateCollator, docType)
	}
	r.types[docType] = true
	r.collators = append(r.collators, p)
	return nil
}

// Collators returns registrations in the order they were added.
func (r *IndexRegistry) Collators() []RegisterCollatorParameters {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]RegisterCollatorParameters, len(r.collators))
	copy(out, r.collators)
	return out
}

// Factory returns the factory registered for docType.
func (r *IndexRegistry) Factory(docType string) (DocumentCollatorFactory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, c := range r.collators {
		if c.Factory.Type() == docType {
			return c.Factory, true
		}
	}
	return nil, false
}
