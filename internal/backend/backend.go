// Package backend hosts stagehand modules. Modules register extension points
// and init hooks; the backend wires the shared services they depend on and runs
// the hooks in order.
package backend

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/Masterminds/semver/v3"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"

	"github.com/rshade/stagehand/internal/cache"
	"github.com/rshade/stagehand/internal/catalog"
	"github.com/rshade/stagehand/internal/config"
	"github.com/rshade/stagehand/internal/logging"
	"github.com/rshade/stagehand/internal/scheduler"
	"github.com/rshade/stagehand/internal/search"
	"github.com/rshade/stagehand/pkg/version"
)

// Backend lifecycle errors.
var (
	ErrInvalidModule      = errors.New("invalid module")
	ErrDuplicateModule    = errors.New("module already added")
	ErrModuleIncompatible = errors.New("module incompatible with backend version")
	ErrAlreadyStarted     = errors.New("backend already started")
)

// InitFunc runs once all modules have registered.
type InitFunc func(ctx context.Context, svc *Services) error

// ShutdownFunc runs when the backend stops, in reverse registration order.
type ShutdownFunc func(ctx context.Context) error

// Module is a unit of backend functionality attached to a plugin.
type Module struct {
	PluginID string
	ModuleID string

	// BackendVersion is an optional semver constraint, e.g. ">= 0.1.0-0".
	BackendVersion string

	Register func(env *Env) error
}

// String returns "<pluginID>.<moduleID>".
func (m Module) String() string {
	return m.PluginID + "." + m.ModuleID
}

// Env is handed to Module.Register.
type Env struct {
	module         Module
	points         *ExtensionPoints
	providesPoints bool
	inits          []InitFunc
	shutdown       []ShutdownFunc
}

// RegisterInit adds an init hook for the module.
func (e *Env) RegisterInit(fn InitFunc) {
	e.inits = append(e.inits, fn)
}

// RegisterShutdown adds a shutdown hook for the module.
func (e *Env) RegisterShutdown(fn ShutdownFunc) {
	e.shutdown = append(e.shutdown, fn)
}

// Services are the shared dependencies available to init hooks.
type Services struct {
	Config          *config.Config
	Logger          zerolog.Logger
	Discovery       catalog.Discovery
	TokenManager    *StaticTokenManager
	Scheduler       *scheduler.Scheduler
	Catalog         catalog.Client
	IndexRegistry   *search.IndexRegistry
	ExtensionPoints *ExtensionPoints
}

// Options configures New.
type Options struct {
	Config *config.Config
	Logger *zerolog.Logger

	// Registerer receives scheduler metrics. Defaults to a fresh registry.
	Registerer prometheus.Registerer

	// Catalog replaces the HTTP catalog client built from Config.
	Catalog    catalog.Client
	HTTPClient *http.Client

	// Version overrides the backend version used for module constraints.
	Version *semver.Version
}

// Backend owns the modules and the services they share.
type Backend struct {
	mu       sync.Mutex
	modules  []Module
	seen     map[string]bool
	started  bool
	version  *semver.Version
	svc      *Services
	shutdown []ShutdownFunc
}

// New builds the shared services from opts.Config.
func New(opts Options) (*Backend, error) {
	cfg := opts.Config
	if cfg == nil {
		cfg = config.Defaults()
	}
	base := logging.Default()
	if opts.Logger != nil {
		base = *opts.Logger
	}
	reg := opts.Registerer
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	discovery, err := HostDiscoveryFromConfig(cfg)
	if err != nil {
		return nil, err
	}
	tokens := NewStaticTokenManager(cfg.Backend.Auth.Token)

	sched, err := scheduler.New(scheduler.Options{Logger: &base, Registerer: reg})
	if err != nil {
		return nil, fmt.Errorf("creating scheduler: %w", err)
	}

	client := opts.Catalog
	if client == nil {
		client, err = newCatalogClient(cfg, discovery, tokens, opts.HTTPClient, base)
		if err != nil {
			return nil, err
		}
	}

	v := opts.Version
	if v == nil {
		v = version.Semver()
	}

	return &Backend{
		seen:    make(map[string]bool),
		version: v,
		svc: &Services{
			Config:          cfg,
			Logger:          base,
			Discovery:       discovery,
			TokenManager:    tokens,
			Scheduler:       sched,
			Catalog:         client,
			IndexRegistry:   search.NewIndexRegistry(),
			ExtensionPoints: newExtensionPoints(),
		},
	}, nil
}

func newCatalogClient(
	cfg *config.Config,
	discovery catalog.Discovery,
	tokens catalog.TokenSource,
	httpClient *http.Client,
	logger zerolog.Logger,
) (catalog.Client, error) {
	client, err := catalog.NewHTTPClient(catalog.HTTPClientOptions{
		Discovery:  discovery,
		Tokens:     tokens,
		HTTPClient: httpClient,
		RateLimit:  cfg.Catalog.RateLimit,
		Burst:      cfg.Catalog.Burst,
		Logger:     &logger,
	})
	if err != nil {
		return nil, err
	}
	if !cfg.Catalog.Cache.Enabled {
		return client, nil
	}

	dir, err := cfg.CacheDir()
	if err != nil {
		return nil, err
	}
	ttl, err := cache.TTLFromSeconds(cfg.Catalog.Cache.TTLSeconds)
	if err != nil {
		return nil, fmt.Errorf("%w: catalog.cache.ttlSeconds: %w", config.ErrInvalidConfig, err)
	}
	store, err := cache.NewFileStore(dir, true, ttl)
	if err != nil {
		return nil, fmt.Errorf("opening catalog cache: %w", err)
	}
	return catalog.NewCachingClient(client, store), nil
}

// Services returns the shared services.
func (b *Backend) Services() *Services {
	return b.svc
}

// Add queues m for Start. Modules must be added before Start.
func (b *Backend) Add(m Module) error {
	if m.PluginID == "" || m.ModuleID == "" || m.Register == nil {
		return fmt.Errorf("%w: plugin id, module id and register are required", ErrInvalidModule)
	}
	if m.BackendVersion != "" {
		c, err := semver.NewConstraint(m.BackendVersion)
		if err != nil {
			return fmt.Errorf("%w: %s: backend version %q: %v", ErrInvalidModule, m, m.BackendVersion, err)
		}
		if !c.Check(b.version) {
			return fmt.Errorf("%w: %s requires %s, backend is %s",
				ErrModuleIncompatible, m, m.BackendVersion, b.version)
		}
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.started {
		return ErrAlreadyStarted
	}
	if b.seen[m.String()] {
		return fmt.Errorf("%w: %s", ErrDuplicateModule, m)
	}
	b.seen[m.String()] = true
	b.modules = append(b.modules, m)
	return nil
}

// Start registers every module, then runs the init hooks. Modules that
// registered extension points initialize after the others so that consumers
// have configured them by then; otherwise add order is kept. The first failure
// aborts Start.
func (b *Backend) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return ErrAlreadyStarted
	}
	b.started = true
	modules := append([]Module(nil), b.modules...)
	b.mu.Unlock()

	envs := make([]*Env, 0, len(modules))
	for _, m := range modules {
		env := &Env{module: m, points: b.svc.ExtensionPoints}
		if err := m.Register(env); err != nil {
			return fmt.Errorf("registering %s: %w", m, err)
		}
		envs = append(envs, env)
	}

	sort.SliceStable(envs, func(i, j int) bool {
		return !envs[i].providesPoints && envs[j].providesPoints
	})

	for _, env := range envs {
		logger := b.svc.Logger.With().
			Str("plugin", env.module.PluginID).
			Str("module", env.module.ModuleID).
			Logger()
		for _, fn := range env.inits {
			if err := fn(logger.WithContext(ctx), b.svc); err != nil {
				return fmt.Errorf("initializing %s: %w", env.module, err)
			}
		}
		b.shutdown = append(b.shutdown, env.shutdown...)
		logger.Debug().Msg("module initialized")
	}
	return nil
}

// Stop stops scheduled tasks and runs shutdown hooks, last registered first.
func (b *Backend) Stop(ctx context.Context) error {
	b.svc.Scheduler.Shutdown()

	var errs []error
	for i := len(b.shutdown) - 1; i >= 0; i-- {
		if err := b.shutdown[i](ctx); err != nil {
			errs = append(errs, err)
		}
	}
	b.shutdown = nil
	return errors.Join(errs...)
}
