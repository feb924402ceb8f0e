package catalog

import (
	"context"
	"errors"
	"net/url"
	"sort"
	"strconv"
	"strings"
)

// Lookup errors.
var (
	ErrEntityNotFound = errors.New("entity not found")
	ErrRequestFailed  = errors.New("catalog request failed")
)

// FilterExists as a filter value matches entities where the key is present with
// any value.
const FilterExists = "\x00exists"

// Filter is a set of key/value conditions that must all match. Keys are dotted
// entity paths such as "kind" or "metadata.annotations.backstage.io/techdocs-ref".
type Filter map[string]string

// GetEntitiesRequest selects entities. Entities matching any of the filters are
// returned.
type GetEntitiesRequest struct {
	Filter []Filter
	Fields []string
	Offset int
	Limit  int
}

// GetEntitiesResponse holds the selected entities.
type GetEntitiesResponse struct {
	Items []Entity
}

// Client reads entities from the catalog.
type Client interface {
	// GetEntityByRef returns the entity, or nil when it does not exist.
	GetEntityByRef(ctx context.Context, ref string) (*Entity, error)

	// GetEntitiesByRefs returns one slot per ref, in order; missing entities are nil.
	GetEntitiesByRefs(ctx context.Context, refs []string) ([]*Entity, error)

	// GetEntities lists entities matching the request.
	GetEntities(ctx context.Context, req GetEntitiesRequest) (*GetEntitiesResponse, error)
}

// Discovery resolves a plugin's base URL.
type Discovery interface {
	GetBaseURL(ctx context.Context, pluginID string) (string, error)
}

// TokenSource issues bearer tokens for backend-to-backend calls. An empty token
// means no Authorization header is sent.
type TokenSource interface {
	GetToken(ctx context.Context) (string, error)
}

// query encodes the request the way the catalog's list endpoint expects it.
func (r GetEntitiesRequest) query() url.Values {
	q := url.Values{}
	for _, f := range r.Filter {
		keys := make([]string, 0, len(f))
		for k := range f {
			keys = append(keys, k)
		}
		sort.Strings(keys)

		parts := make([]string, 0, len(keys))
		for _, k := range keys {
			if v := f[k]; v != FilterExists {
				parts = append(parts, k+"="+v)
			} else {
				parts = append(parts, k)
			}
		}
		q.Add("filter", strings.Join(parts, ","))
	}
	if len(r.Fields) > 0 {
		q.Set("fields", strings.Join(r.Fields, ","))
	}
	if r.Offset > 0 {
		q.Set("offset", strconv.Itoa(r.Offset))
	}
	if r.Limit > 0 {
		q.Set("limit", strconv.Itoa(r.Limit))
	}
	return q
}
