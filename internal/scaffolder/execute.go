package scaffolder

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rshade/stagehand/internal/engine/batch"
	"github.com/rshade/stagehand/internal/logging"
)

// ErrDryRunUnsupported is returned when a dry run is requested for an action
// that does not support one.
var ErrDryRunUnsupported = errors.New("action does not support dry run")

// ExecuteOptions controls a single action run.
type ExecuteOptions struct {
	// TaskID defaults to a random UUID.
	TaskID    uuid.UUID
	DryRun    bool
	Workspace string

	// Logger defaults to the logger carried by ctx.
	Logger *zerolog.Logger
}

// Execute validates input, runs the action and returns what it wrote to its
// output.
func Execute(
	ctx context.Context,
	registry *Registry,
	id string,
	input batch.Values,
	opts ExecuteOptions,
) (batch.Values, error) {
	action, err := registry.Get(id)
	if err != nil {
		return nil, err
	}
	if opts.DryRun && !action.SupportsDryRun {
		return nil, fmt.Errorf("%w: %s", ErrDryRunUnsupported, id)
	}
	if input == nil {
		input = batch.Values{}
	}
	if validateErr := action.Schema.ValidateInput(input); validateErr != nil {
		return nil, fmt.Errorf("%s: %w", id, validateErr)
	}

	taskID := opts.TaskID
	if taskID == uuid.Nil {
		taskID = uuid.New()
	}

	base := logging.FromContext(ctx)
	if opts.Logger != nil {
		base = opts.Logger
	}
	logger := base.With().
		Str("component", "scaffolder").
		Str("action", id).
		Str("task_id", taskID.String()).
		Logger()

	sink := batch.NewSink()
	actx := &ActionContext{
		TaskID:    taskID,
		Input:     input,
		Output:    sink.Output(),
		Logger:    logger,
		DryRun:    opts.DryRun,
		Workspace: opts.Workspace,
	}

	start := time.Now()
	logger.Info().Ctx(ctx).Bool("dry_run", opts.DryRun).Msg("running action")

	if handlerErr := action.Handler(ctx, actx); handlerErr != nil {
		logger.Error().Ctx(ctx).Err(handlerErr).Dur("duration_ms", time.Since(start)).Msg("action failed")
		return nil, fmt.Errorf("%s: %w", id, handlerErr)
	}

	logger.Info().Ctx(ctx).Dur("duration_ms", time.Since(start)).Msg("action completed")
	return sink.Result(), nil
}
