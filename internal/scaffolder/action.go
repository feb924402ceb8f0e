// Package scaffolder hosts template actions: a registry of named handlers with
// input/output schemas, and Execute to run one against decoded input.
package scaffolder

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rshade/stagehand/internal/engine/batch"
)

// Handler runs an action.
type Handler func(ctx context.Context, actx *ActionContext) error

// Example documents one use of an action in a template.
type Example struct {
	Description string `json:"description" yaml:"description"`
	Example     string `json:"example" yaml:"example"`
}

// Action is a named template step.
type Action struct {
	ID             string
	Description    string
	Examples       []Example
	SupportsDryRun bool
	Schema         Schema
	Handler        Handler
}

// ActionContext is what a handler sees while it runs.
type ActionContext struct {
	TaskID uuid.UUID

	// Input has already been validated against the action's input schema.
	Input batch.Values

	// Output records a named output value.
	Output func(key string, value any)

	Logger    zerolog.Logger
	DryRun    bool
	Workspace string
}

// WithInput returns a shallow copy of the context bound to another input and
// output. Composite actions use it to call a delegate handler per item.
func (a *ActionContext) WithInput(input batch.Values, output func(string, any)) *ActionContext {
	cp := *a
	cp.Input = input
	cp.Output = output
	return &cp
}
