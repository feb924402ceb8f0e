package config_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/stagehand/internal/config"
)

func newReader(t *testing.T) *config.Reader {
	t.Helper()
	cfg, err := config.Parse([]byte(`
search:
  collators:
    techdocs:
      parallelismLimit: 4
      locationTemplate: /docs/:name
      enabled: true
      ratio: 1.5
`))
	require.NoError(t, err)
	return cfg.Reader()
}

func TestReader_Paths(t *testing.T) {
	r := newReader(t)

	assert.True(t, r.Has("search.collators.techdocs"))
	assert.False(t, r.Has("search.collators.catalog"))
	assert.False(t, r.Has("search.collators.techdocs.parallelismLimit.deeper"))

	sub, err := r.GetConfig("search.collators.techdocs")
	require.NoError(t, err)
	assert.Equal(t, "search.collators.techdocs", sub.Path())
	assert.Equal(t, []string{"enabled", "locationTemplate", "parallelismLimit", "ratio"}, sub.Keys())

	limit, err := sub.OptionalInt("parallelismLimit", 10)
	require.NoError(t, err)
	assert.Equal(t, 4, limit)

	tpl, err := sub.OptionalString("locationTemplate", "default")
	require.NoError(t, err)
	assert.Equal(t, "/docs/:name", tpl)

	enabled, err := sub.OptionalBool("enabled", false)
	require.NoError(t, err)
	assert.True(t, enabled)
}

func TestReader_Defaults(t *testing.T) {
	r := newReader(t)

	v, err := r.OptionalInt("search.nothing", 10)
	require.NoError(t, err)
	assert.Equal(t, 10, v)

	s, err := r.OptionalString("search.nothing", "fallback")
	require.NoError(t, err)
	assert.Equal(t, "fallback", s)

	_, ok, err := r.OptionalConfig("search.nothing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestReader_Errors(t *testing.T) {
	r := newReader(t)

	_, err := r.String("search.missing")
	require.ErrorIs(t, err, config.ErrMissingConfig)

	_, err = r.GetConfig("search.collators.techdocs.locationTemplate")
	require.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = r.OptionalInt("search.collators.techdocs.ratio", 0)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
	assert.Contains(t, err.Error(), "search.collators.techdocs.ratio")

	_, err = r.OptionalBool("search.collators.techdocs.locationTemplate", false)
	require.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestNewReader_Nil(t *testing.T) {
	r := config.NewReader(nil)
	assert.False(t, r.Has("anything"))
	assert.Empty(t, r.Keys())
}
