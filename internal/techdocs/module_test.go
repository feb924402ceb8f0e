package techdocs

import (
	"context"
	"testing"
	"time"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/stagehand/internal/backend"
	"github.com/rshade/stagehand/internal/catalog"
	"github.com/rshade/stagehand/internal/catalog/catalogtest"
	"github.com/rshade/stagehand/internal/config"
	"github.com/rshade/stagehand/internal/scheduler"
)

func startBackend(t *testing.T, yamlConfig string, extra ...backend.Module) (*backend.Backend, error) {
	t.Helper()
	cfg, err := config.Parse([]byte(yamlConfig))
	require.NoError(t, err)

	logger := zerolog.Nop()
	b, err := backend.New(backend.Options{
		Config:  cfg,
		Logger:  &logger,
		Catalog: &catalogtest.MockClient{},
		Version: semver.MustParse("0.1.0"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Stop(context.Background()) })

	require.NoError(t, b.Add(NewModule()))
	for _, m := range extra {
		require.NoError(t, b.Add(m))
	}
	return b, b.Start(context.Background())
}

func transformerModule(id string, fn EntityTransformer, errs *[]error) backend.Module {
	return backend.Module{PluginID: SearchPluginID, ModuleID: id, Register: func(env *backend.Env) error {
		env.RegisterInit(func(_ context.Context, svc *backend.Services) error {
			ext, err := backend.GetExtensionPoint(svc.ExtensionPoints, TransformerExtensionPoint)
			if err != nil {
				return err
			}
			if setErr := ext.SetTransformer(fn); setErr != nil {
				*errs = append(*errs, setErr)
			}
			return nil
		})
		return nil
	}}
}

func TestModule_RegistersCollator(t *testing.T) {
	b, err := startBackend(t, "backend:\n  baseUrl: http://localhost:7007\n")
	require.NoError(t, err)

	collators := b.Services().IndexRegistry.Collators()
	require.Len(t, collators, 1)
	assert.Equal(t, DocumentType, collators[0].Factory.Type())

	factory, ok := collators[0].Factory.(*CollatorFactory)
	require.True(t, ok)
	assert.Nil(t, factory.transformer)
}

func TestModule_TransformerExtension(t *testing.T) {
	var errs []error
	custom := func(*catalog.Entity) map[string]any { return map[string]any{"system": "payments"} }
	other := func(*catalog.Entity) map[string]any { return nil }

	b, err := startBackend(t, "{}",
		transformerModule("first", custom, &errs),
		transformerModule("second", other, &errs),
	)
	require.NoError(t, err)

	require.Len(t, errs, 1)
	assert.ErrorIs(t, errs[0], backend.ErrAlreadySet)
	assert.EqualError(t, errs[0], "TechDocs collator entity transformer may only be set once")

	factory := b.Services().IndexRegistry.Collators()[0].Factory.(*CollatorFactory)
	require.NotNil(t, factory.transformer)
	assert.Equal(t, "payments", factory.transformer(&catalog.Entity{})["system"])
}

func TestModule_Schedule(t *testing.T) {
	t.Run("Default", func(t *testing.T) {
		def := DefaultSchedule()
		assert.Equal(t, 10*time.Minute, def.Frequency)
		assert.Equal(t, 15*time.Minute, def.Timeout)
		assert.Equal(t, 3*time.Second, def.InitialDelay)
		require.NoError(t, def.Validate())
	})

	t.Run("FromConfig", func(t *testing.T) {
		_, err := startBackend(t, `
search:
  collators:
    techdocs:
      schedule:
        frequency: { minutes: 30 }
        timeout: PT45M
        initialDelay: 10s
`)
		require.NoError(t, err)
	})

	t.Run("Malformed", func(t *testing.T) {
		_, err := startBackend(t, `
search:
  collators:
    techdocs:
      schedule:
        frequency: { minutes: 30 }
`)
		require.ErrorIs(t, err, scheduler.ErrInvalidSchedule)
		assert.Contains(t, err.Error(), "search.collators.techdocs.schedule.timeout is required")
		assert.Contains(t, err.Error(), "initializing search.techDocsCollator")
	})

	t.Run("NotAnObject", func(t *testing.T) {
		_, err := startBackend(t, "search:\n  collators:\n    techdocs:\n      schedule: hourly\n")
		assert.ErrorIs(t, err, scheduler.ErrInvalidSchedule)
	})
}
