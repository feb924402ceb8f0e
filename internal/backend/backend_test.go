package backend

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/Masterminds/semver/v3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/stagehand/internal/catalog/catalogtest"
	"github.com/rshade/stagehand/internal/config"
)

func newBackend(t *testing.T) *Backend {
	t.Helper()
	logger := zerolog.Nop()
	b, err := New(Options{
		Config:  config.Defaults(),
		Logger:  &logger,
		Catalog: &catalogtest.MockClient{},
		Version: semver.MustParse("1.2.0"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = b.Stop(context.Background()) })
	return b
}

func TestOnce(t *testing.T) {
	o := NewOnce[string]("TechDocs collator entity transformer")

	_, ok := o.Get()
	assert.False(t, ok)

	require.NoError(t, o.Set("first"))
	err := o.Set("second")
	require.ErrorIs(t, err, ErrAlreadySet)
	assert.EqualError(t, err, "TechDocs collator entity transformer may only be set once")

	v, ok := o.Get()
	assert.True(t, ok)
	assert.Equal(t, "first", v)
}

func TestOnce_Concurrent(t *testing.T) {
	o := NewOnce[int]("")
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0
	for i := range 32 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if o.Set(i) == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
}

func TestBackend_StartOrder(t *testing.T) {
	b := newBackend(t)
	ep := NewExtensionPoint[*Once[string]]("search.example.value")

	var events []string
	provider := Module{PluginID: "search", ModuleID: "provider", Register: func(env *Env) error {
		events = append(events, "register:provider")
		cell := NewOnce[string]("example value")
		if err := RegisterExtensionPoint(env, ep, cell); err != nil {
			return err
		}
		env.RegisterInit(func(context.Context, *Services) error {
			v, _ := cell.Get()
			events = append(events, "init:provider:"+v)
			return nil
		})
		return nil
	}}
	consumer := Module{PluginID: "search", ModuleID: "consumer", Register: func(env *Env) error {
		events = append(events, "register:consumer")
		env.RegisterInit(func(_ context.Context, svc *Services) error {
			cell, err := GetExtensionPoint(svc.ExtensionPoints, ep)
			if err != nil {
				return err
			}
			events = append(events, "init:consumer")
			return cell.Set("custom")
		})
		return nil
	}}
	plain := Module{PluginID: "search", ModuleID: "plain", Register: func(env *Env) error {
		events = append(events, "register:plain")
		env.RegisterInit(func(context.Context, *Services) error {
			events = append(events, "init:plain")
			return nil
		})
		return nil
	}}

	require.NoError(t, b.Add(provider))
	require.NoError(t, b.Add(consumer))
	require.NoError(t, b.Add(plain))

	ctx := context.Background()
	require.NoError(t, b.Start(ctx))
	assert.Equal(t, []string{
		"register:provider", "register:consumer", "register:plain",
		"init:consumer", "init:plain", "init:provider:custom",
	}, events)

	assert.ErrorIs(t, b.Start(ctx), ErrAlreadyStarted)
	assert.ErrorIs(t, b.Add(Module{PluginID: "x", ModuleID: "y", Register: func(*Env) error { return nil }}), ErrAlreadyStarted)
}

func TestBackend_Add(t *testing.T) {
	noop := func(*Env) error { return nil }

	t.Run("Invalid", func(t *testing.T) {
		b := newBackend(t)
		assert.ErrorIs(t, b.Add(Module{ModuleID: "m", Register: noop}), ErrInvalidModule)
		assert.ErrorIs(t, b.Add(Module{PluginID: "p", ModuleID: "m"}), ErrInvalidModule)
		assert.ErrorIs(t, b.Add(Module{PluginID: "p", ModuleID: "m", BackendVersion: "not a range", Register: noop}), ErrInvalidModule)
	})

	t.Run("Duplicate", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Add(Module{PluginID: "p", ModuleID: "m", Register: noop}))
		assert.ErrorIs(t, b.Add(Module{PluginID: "p", ModuleID: "m", Register: noop}), ErrDuplicateModule)
	})

	t.Run("VersionConstraint", func(t *testing.T) {
		b := newBackend(t)
		require.NoError(t, b.Add(Module{PluginID: "p", ModuleID: "ok", BackendVersion: "^1.0.0", Register: noop}))
		err := b.Add(Module{PluginID: "p", ModuleID: "new", BackendVersion: ">= 2.0.0", Register: noop})
		require.ErrorIs(t, err, ErrModuleIncompatible)
		assert.Contains(t, err.Error(), "p.new requires >= 2.0.0")
	})
}

func TestBackend_InitFailureAborts(t *testing.T) {
	b := newBackend(t)
	cause := errors.New("bad schedule")
	var laterRan bool

	require.NoError(t, b.Add(Module{PluginID: "search", ModuleID: "broken", Register: func(env *Env) error {
		env.RegisterInit(func(context.Context, *Services) error { return cause })
		return nil
	}}))
	require.NoError(t, b.Add(Module{PluginID: "search", ModuleID: "later", Register: func(env *Env) error {
		env.RegisterInit(func(context.Context, *Services) error {
			laterRan = true
			return nil
		})
		return nil
	}}))

	err := b.Start(context.Background())
	require.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "initializing search.broken")
	assert.False(t, laterRan)
}

func TestBackend_DuplicateExtensionPoint(t *testing.T) {
	b := newBackend(t)
	ep := NewExtensionPoint[string]("search.dup")
	register := func(env *Env) error { return RegisterExtensionPoint(env, ep, "impl") }

	require.NoError(t, b.Add(Module{PluginID: "search", ModuleID: "a", Register: register}))
	require.NoError(t, b.Add(Module{PluginID: "search", ModuleID: "b", Register: register}))

	err := b.Start(context.Background())
	require.ErrorIs(t, err, ErrDuplicateExtensionPoint)
	assert.Contains(t, err.Error(), "registered by search.a")
}

func TestGetExtensionPoint_Errors(t *testing.T) {
	points := newExtensionPoints()
	require.NoError(t, points.register("x", "owner", 42))

	_, err := GetExtensionPoint(points, NewExtensionPoint[string]("missing"))
	assert.ErrorIs(t, err, ErrExtensionPointNotFound)

	_, err = GetExtensionPoint(points, NewExtensionPoint[string]("x"))
	assert.ErrorIs(t, err, ErrExtensionPointType)

	v, err := GetExtensionPoint(points, NewExtensionPoint[int]("x"))
	require.NoError(t, err)
	assert.Equal(t, 42, v)
}

func TestBackend_Shutdown(t *testing.T) {
	b := newBackend(t)
	var order []string
	for _, id := range []string{"a", "b"} {
		require.NoError(t, b.Add(Module{PluginID: "p", ModuleID: id, Register: func(env *Env) error {
			env.RegisterShutdown(func(context.Context) error {
				order = append(order, id)
				return nil
			})
			return nil
		}}))
	}
	require.NoError(t, b.Start(context.Background()))
	require.NoError(t, b.Stop(context.Background()))
	assert.Equal(t, []string{"b", "a"}, order)
}

func TestHostDiscovery(t *testing.T) {
	d := NewHostDiscovery("http://localhost:7007/", map[string]string{"techdocs": "http://docs:7000/api/techdocs/"})
	ctx := context.Background()

	url, err := d.GetBaseURL(ctx, "catalog")
	require.NoError(t, err)
	assert.Equal(t, "http://localhost:7007/api/catalog", url)

	url, err = d.GetBaseURL(ctx, "techdocs")
	require.NoError(t, err)
	assert.Equal(t, "http://docs:7000/api/techdocs", url)

	cfg := config.Defaults()
	cfg.Backend.BaseURL = ""
	_, err = HostDiscoveryFromConfig(cfg)
	assert.ErrorIs(t, err, config.ErrMissingConfig)
}

func TestStaticTokenManager(t *testing.T) {
	ctx := context.Background()
	m := NewStaticTokenManager("s3cr3t")

	tok, err := m.GetToken(ctx)
	require.NoError(t, err)
	assert.Equal(t, "s3cr3t", tok)
	assert.NoError(t, m.Authenticate(ctx, "s3cr3t"))
	assert.ErrorIs(t, m.Authenticate(ctx, "guess"), ErrUnauthorized)

	assert.NoError(t, NewStaticTokenManager("").Authenticate(ctx, "anything"))
}
