// Package scheduler runs recurring background tasks at a fixed cadence with a
// per-run timeout and an initial delay.
package scheduler

import (
	"errors"
	"fmt"
	"time"

	"github.com/rshade/stagehand/internal/config"
)

// Scopes. Only one process runs stagehand's tasks, so they behave the same; the
// value is kept for config compatibility and reported in task listings.
const (
	ScopeGlobal = "global"
	ScopeLocal  = "local"
)

// ErrInvalidSchedule is returned for malformed schedule configuration.
var ErrInvalidSchedule = errors.New("invalid task schedule")

// TaskScheduleDefinition describes how often a task runs.
type TaskScheduleDefinition struct {
	Frequency    time.Duration
	Timeout      time.Duration
	InitialDelay time.Duration
	Scope        string
}

// Validate checks that frequency and timeout are positive.
func (d TaskScheduleDefinition) Validate() error {
	switch {
	case d.Frequency <= 0:
		return fmt.Errorf("%w: frequency must be positive", ErrInvalidSchedule)
	case d.Timeout <= 0:
		return fmt.Errorf("%w: timeout must be positive", ErrInvalidSchedule)
	case d.InitialDelay < 0:
		return fmt.Errorf("%w: initialDelay must not be negative", ErrInvalidSchedule)
	}
	switch d.Scope {
	case "", ScopeGlobal, ScopeLocal:
	default:
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidSchedule, d.Scope)
	}
	return nil
}

// ReadTaskScheduleDefinitionFromConfig reads {frequency, timeout, initialDelay?,
// scope?} from r. Durations may be objects, ISO-8601 or Go duration strings.
func ReadTaskScheduleDefinitionFromConfig(r *config.Reader) (TaskScheduleDefinition, error) {
	var def TaskScheduleDefinition

	read := func(key string, required bool) (time.Duration, error) {
		v, ok := r.Get(key)
		if !ok {
			if required {
				return 0, fmt.Errorf("%w: %s.%s is required", ErrInvalidSchedule, r.Path(), key)
			}
			return 0, nil
		}
		d, err := ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("%w: %s.%s: %w", ErrInvalidSchedule, r.Path(), key, err)
		}
		return d, nil
	}

	var err error
	if def.Frequency, err = read("frequency", true); err != nil {
		return def, err
	}
	if def.Timeout, err = read("timeout", true); err != nil {
		return def, err
	}
	if def.InitialDelay, err = read("initialDelay", false); err != nil {
		return def, err
	}
	if def.Scope, err = r.OptionalString("scope", ScopeGlobal); err != nil {
		return def, fmt.Errorf("%w: %w", ErrInvalidSchedule, err)
	}

	if err = def.Validate(); err != nil {
		return def, err
	}
	return def, nil
}
