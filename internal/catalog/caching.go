package catalog

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/rshade/stagehand/internal/cache"
	"github.com/rshade/stagehand/internal/logging"
)

const cacheKeyPrefix = "entity:"

// CachingClient serves by-ref lookups from a FileStore and falls through to the
// wrapped client on a miss. Missing entities are not cached. Listing is never
// cached.
type CachingClient struct {
	next   Client
	store  *cache.FileStore
	logger zerolog.Logger
}

// NewCachingClient wraps next. A nil or disabled store makes it a pass-through.
func NewCachingClient(next Client, store *cache.FileStore) *CachingClient {
	return &CachingClient{
		next:   next,
		store:  store,
		logger: logging.ComponentLogger(logging.Default(), "catalog-cache"),
	}
}

func (c *CachingClient) enabled() bool {
	return c.store != nil && c.store.Enabled()
}

// GetEntityByRef implements Client.
func (c *CachingClient) GetEntityByRef(ctx context.Context, ref string) (*Entity, error) {
	if !c.enabled() {
		return c.next.GetEntityByRef(ctx, ref)
	}
	if e, ok := c.lookup(ref); ok {
		return e, nil
	}

	entity, err := c.next.GetEntityByRef(ctx, ref)
	if err != nil || entity == nil {
		return entity, err
	}
	c.remember(ref, entity)
	return entity, nil
}

// GetEntitiesByRefs implements Client. Only the refs missing from the cache are
// sent upstream, in one request.
func (c *CachingClient) GetEntitiesByRefs(ctx context.Context, refs []string) ([]*Entity, error) {
	if !c.enabled() {
		return c.next.GetEntitiesByRefs(ctx, refs)
	}

	out := make([]*Entity, len(refs))
	var missRefs []string
	var missIdx []int
	for i, ref := range refs {
		if e, ok := c.lookup(ref); ok {
			out[i] = e
			continue
		}
		missRefs = append(missRefs, ref)
		missIdx = append(missIdx, i)
	}
	if len(missRefs) == 0 {
		return out, nil
	}

	fetched, err := c.next.GetEntitiesByRefs(ctx, missRefs)
	if err != nil {
		return nil, err
	}
	for j, e := range fetched {
		if j >= len(missIdx) {
			break
		}
		out[missIdx[j]] = e
		if e != nil {
			c.remember(missRefs[j], e)
		}
	}
	return out, nil
}

// GetEntities implements Client.
func (c *CachingClient) GetEntities(ctx context.Context, req GetEntitiesRequest) (*GetEntitiesResponse, error) {
	return c.next.GetEntities(ctx, req)
}

func (c *CachingClient) lookup(ref string) (*Entity, bool) {
	var e Entity
	err := c.store.GetJSON(cacheKeyPrefix+ref, &e)
	switch {
	case err == nil:
		return &e, true
	case errors.Is(err, cache.ErrNotFound), errors.Is(err, cache.ErrExpired):
	default:
		c.logger.Warn().Err(err).Str("ref", ref).Msg("ignoring unreadable cache entry")
	}
	return nil, false
}

func (c *CachingClient) remember(ref string, e *Entity) {
	if err := c.store.SetJSON(cacheKeyPrefix+ref, e); err != nil {
		c.logger.Warn().Err(err).Str("ref", ref).Msg("failed to cache entity")
	}
}
