package backend

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"strings"

	"github.com/rshade/stagehand/internal/config"
)

// ErrUnauthorized is returned by StaticTokenManager.Authenticate for a token
// that does not match.
var ErrUnauthorized = errors.New("invalid backend token")

// HostDiscovery resolves plugin base URLs as <baseURL>/api/<pluginID> unless an
// endpoint override exists for the plugin.
type HostDiscovery struct {
	baseURL   string
	endpoints map[string]string
}

// NewHostDiscovery creates a discovery for baseURL. overrides maps plugin ids
// to full base URLs.
func NewHostDiscovery(baseURL string, overrides map[string]string) *HostDiscovery {
	endpoints := make(map[string]string, len(overrides))
	for id, url := range overrides {
		endpoints[id] = strings.TrimRight(url, "/")
	}
	return &HostDiscovery{baseURL: strings.TrimRight(baseURL, "/"), endpoints: endpoints}
}

// HostDiscoveryFromConfig reads backend.baseUrl and discovery.endpoints.
func HostDiscoveryFromConfig(cfg *config.Config) (*HostDiscovery, error) {
	if cfg.Backend.BaseURL == "" {
		return nil, fmt.Errorf("%w: backend.baseUrl", config.ErrMissingConfig)
	}
	return NewHostDiscovery(cfg.Backend.BaseURL, cfg.Discovery.Endpoints), nil
}

// GetBaseURL returns the base URL of pluginID.
func (d *HostDiscovery) GetBaseURL(_ context.Context, pluginID string) (string, error) {
	if url, ok := d.endpoints[pluginID]; ok {
		return url, nil
	}
	return d.baseURL + "/api/" + pluginID, nil
}

// StaticTokenManager issues and checks a single shared service token.
type StaticTokenManager struct {
	token string
}

// NewStaticTokenManager creates a manager for token. An empty token disables
// authentication: GetToken returns "" and Authenticate accepts anything.
func NewStaticTokenManager(token string) *StaticTokenManager {
	return &StaticTokenManager{token: token}
}

// GetToken returns the token sent to other plugins.
func (m *StaticTokenManager) GetToken(context.Context) (string, error) {
	return m.token, nil
}

// Authenticate checks a token received from another plugin.
func (m *StaticTokenManager) Authenticate(_ context.Context, token string) error {
	if m.token == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(token), []byte(m.token)) != 1 {
		return ErrUnauthorized
	}
	return nil
}
