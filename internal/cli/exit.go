package cli

import (
	"errors"

	"github.com/rshade/stagehand/internal/catalog"
	"github.com/rshade/stagehand/internal/config"
	"github.com/rshade/stagehand/internal/scaffolder"
	catalogaction "github.com/rshade/stagehand/internal/scaffolder/actions/catalog"
	"github.com/rshade/stagehand/internal/scheduler"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUsage    = 2
	ExitNotFound = 3
)

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, config.ErrInvalidConfig),
		errors.Is(err, config.ErrMissingConfig),
		errors.Is(err, scheduler.ErrInvalidSchedule),
		errors.Is(err, scaffolder.ErrInvalidInput),
		errors.Is(err, scaffolder.ErrActionNotFound),
		errors.Is(err, catalogaction.ErrMissingRef):
		return ExitUsage
	case errors.Is(err, catalog.ErrEntityNotFound):
		return ExitNotFound
	}
	return ExitFailure
}
