package backend

import (
	"errors"
	"fmt"
	"sync"
)

// ErrAlreadySet is returned by Once.Set after the first successful call.
var ErrAlreadySet = errors.New("may only be set once")

// Once is a cell that accepts exactly one value. It is safe for concurrent use.
type Once[T any] struct {
	what string

	mu    sync.Mutex
	value T
	set   bool
}

// NewOnce returns an empty cell. what names the value in the error a second
// Set returns, e.g. "TechDocs collator entity transformer".
func NewOnce[T any](what string) *Once[T] {
	return &Once[T]{what: what}
}

// Set stores v. Every call after the first fails with ErrAlreadySet and leaves
// the stored value untouched.
func (o *Once[T]) Set(v T) error {
	o.mu.Lock()
	defer o.mu.Unlock()

	if o.set {
		if o.what == "" {
			return fmt.Errorf("value %w", ErrAlreadySet)
		}
		return fmt.Errorf("%s %w", o.what, ErrAlreadySet)
	}
	o.value = v
	o.set = true
	return nil
}

// Get returns the stored value and whether one was set.
func (o *Once[T]) Get() (T, bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.value, o.set
}
