package techdocs

import (
	"context"
	"fmt"
	"time"

	"github.com/rshade/stagehand/internal/backend"
	"github.com/rshade/stagehand/internal/scheduler"
	"github.com/rshade/stagehand/internal/search"
)

// Module identity.
const (
	ModuleID       = "techDocsCollator"
	SearchPluginID = "search"

	scheduleConfigPath = "search.collators.techdocs.schedule"
)

// TransformerExtension lets other modules replace the entity transformer.
type TransformerExtension interface {
	SetTransformer(t EntityTransformer) error
}

// TransformerExtensionPoint is where TransformerExtension is registered.
//
//nolint:gochecknoglobals // extension point identity shared by modules
var TransformerExtensionPoint = backend.NewExtensionPoint[TransformerExtension]("search.techdocsCollator.transformer")

type transformerSlot struct {
	cell *backend.Once[EntityTransformer]
}

func (s transformerSlot) SetTransformer(t EntityTransformer) error {
	return s.cell.Set(t)
}

// DefaultSchedule runs the collator every 10 minutes with a 15 minute timeout,
// starting 3 seconds after the backend comes up.
func DefaultSchedule() scheduler.TaskScheduleDefinition {
	return scheduler.TaskScheduleDefinition{
		Frequency:    10 * time.Minute,
		Timeout:      15 * time.Minute,
		InitialDelay: 3 * time.Second,
		Scope:        scheduler.ScopeGlobal,
	}
}

// NewModule returns the search module that registers the TechDocs collator.
func NewModule() backend.Module {
	return backend.Module{
		PluginID:       SearchPluginID,
		ModuleID:       ModuleID,
		BackendVersion: ">= 0.1.0-0",
		Register:       register,
	}
}

func register(env *backend.Env) error {
	cell := backend.NewOnce[EntityTransformer]("TechDocs collator entity transformer")
	if err := backend.RegisterExtensionPoint[TransformerExtension](env, TransformerExtensionPoint, transformerSlot{cell: cell}); err != nil {
		return err
	}

	env.RegisterInit(func(ctx context.Context, svc *backend.Services) error {
		schedule, err := readSchedule(svc)
		if err != nil {
			return err
		}

		transformer, _ := cell.Get()
		logger := svc.Logger
		factory, err := FromConfig(svc.Config, Options{
			Discovery:   svc.Discovery,
			Tokens:      svc.TokenManager,
			Catalog:     svc.Catalog,
			Logger:      &logger,
			Transformer: transformer,
		})
		if err != nil {
			return err
		}

		svc.Logger.Debug().Ctx(ctx).
			Dur("frequency", schedule.Frequency).
			Dur("timeout", schedule.Timeout).
			Bool("custom_transformer", transformer != nil).
			Msg("registering techdocs collator")

		return svc.IndexRegistry.AddCollator(searchParams(svc.Scheduler, schedule, factory))
	})
	return nil
}

func readSchedule(svc *backend.Services) (scheduler.TaskScheduleDefinition, error) {
	r := svc.Config.Reader()
	if !r.Has(scheduleConfigPath) {
		return DefaultSchedule(), nil
	}
	sub, err := r.GetConfig(scheduleConfigPath)
	if err != nil {
		return scheduler.TaskScheduleDefinition{}, fmt.Errorf("%w: %w", scheduler.ErrInvalidSchedule, err)
	}
	return scheduler.ReadTaskScheduleDefinitionFromConfig(sub)
}

func searchParams(
	s *scheduler.Scheduler,
	schedule scheduler.TaskScheduleDefinition,
	factory *CollatorFactory,
) search.RegisterCollatorParameters {
	return search.RegisterCollatorParameters{
		Schedule: s.CreateScheduledTaskRunner(schedule),
		Factory:  factory,
	}
}
