package cli

import (
	"github.com/prometheus/client_golang/prometheus"

	"github.com/rshade/stagehand/internal/backend"
	"github.com/rshade/stagehand/internal/config"
	"github.com/rshade/stagehand/internal/scaffolder"
	catalogaction "github.com/rshade/stagehand/internal/scaffolder/actions/catalog"
	"github.com/rshade/stagehand/internal/techdocs"
)

// newBackend builds a backend with the TechDocs collator module added.
func newBackend(reg prometheus.Registerer) (*backend.Backend, error) {
	b, err := backend.New(backend.Options{
		Config:     config.GetGlobalConfig(),
		Logger:     &logger,
		Registerer: reg,
	})
	if err != nil {
		return nil, err
	}
	if err = b.Add(techdocs.NewModule()); err != nil {
		return nil, err
	}
	return b, nil
}

// newActionRegistry registers the built-in scaffolder actions.
func newActionRegistry(svc *backend.Services) (*scaffolder.Registry, error) {
	reg := scaffolder.NewRegistry()
	fetch := catalogaction.NewFetchAction(svc.Catalog)
	poly := catalogaction.NewPolyFetchAction(fetch,
		catalogaction.WithConcurrency(svc.Config.Scaffolder.PolyConcurrency))
	if err := reg.Register(poly); err != nil {
		return nil, err
	}
	return reg, nil
}
