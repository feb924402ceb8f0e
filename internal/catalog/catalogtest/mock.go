// Package catalogtest provides test doubles for catalog.Client.
package catalogtest

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/rshade/stagehand/internal/catalog"
)

// MockClient is a testify mock implementing catalog.Client.
type MockClient struct {
	mock.Mock
}

var _ catalog.Client = (*MockClient)(nil)

// GetEntityByRef implements catalog.Client.
func (m *MockClient) GetEntityByRef(ctx context.Context, ref string) (*catalog.Entity, error) {
	args := m.Called(ctx, ref)
	e, _ := args.Get(0).(*catalog.Entity)
	return e, args.Error(1)
}

// GetEntitiesByRefs implements catalog.Client.
func (m *MockClient) GetEntitiesByRefs(ctx context.Context, refs []string) ([]*catalog.Entity, error) {
	args := m.Called(ctx, refs)
	es, _ := args.Get(0).([]*catalog.Entity)
	return es, args.Error(1)
}

// GetEntities implements catalog.Client.
func (m *MockClient) GetEntities(
	ctx context.Context,
	req catalog.GetEntitiesRequest,
) (*catalog.GetEntitiesResponse, error) {
	args := m.Called(ctx, req)
	resp, _ := args.Get(0).(*catalog.GetEntitiesResponse)
	return resp, args.Error(1)
}

// NewEntity builds a minimal entity for tests.
func NewEntity(kind, namespace, name string) *catalog.Entity {
	return &catalog.Entity{
		APIVersion: "backstage.io/v1alpha1",
		Kind:       kind,
		Metadata:   catalog.EntityMeta{Name: name, Namespace: namespace},
	}
}

// StaticDiscovery resolves every plugin to BaseURL + "/api/" + pluginID.
type StaticDiscovery struct {
	BaseURL string
}

// GetBaseURL implements catalog.Discovery.
func (d StaticDiscovery) GetBaseURL(_ context.Context, pluginID string) (string, error) {
	return d.BaseURL + "/api/" + pluginID, nil
}

// StaticToken always returns Token.
type StaticToken struct {
	Token string
}

// GetToken implements catalog.TokenSource.
func (s StaticToken) GetToken(context.Context) (string, error) {
	return s.Token, nil
}
