package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/stagehand/internal/config"
	"github.com/rshade/stagehand/internal/logging"
)

func TestDefaults(t *testing.T) {
	cfg := config.Defaults()

	assert.Equal(t, config.DefaultBackendBaseURL, cfg.Backend.BaseURL)
	assert.Equal(t, config.SinkMemory, cfg.Search.Sink.Type)
	assert.Equal(t, config.DefaultCatalogCacheTTL, cfg.Catalog.Cache.TTLSeconds)
	assert.False(t, cfg.TechDocs.LegacyUseCaseSensitiveTripletPaths)
	assert.Equal(t, config.DefaultPolyConcurrency, cfg.Scaffolder.PolyConcurrency)
	require.NoError(t, cfg.Validate())
}

func TestParse_Validation(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr bool
	}{
		{name: "memory sink", yaml: "search:\n  sink:\n    type: memory\n"},
		{name: "s3 without endpoint", yaml: "search:\n  sink:\n    type: s3\n", wantErr: true},
		{
			name: "s3 complete",
			yaml: "search:\n  sink:\n    type: s3\n    s3:\n      endpoint: localhost:9000\n      bucket: docs\n",
		},
		{name: "kafka without brokers", yaml: "search:\n  sink:\n    type: kafka\n", wantErr: true},
		{name: "postgres without dsn", yaml: "search:\n  sink:\n    type: postgres\n", wantErr: true},
		{name: "unknown sink", yaml: "search:\n  sink:\n    type: elastic\n", wantErr: true},
		{name: "negative rate limit", yaml: "catalog:\n  rateLimit: -1\n", wantErr: true},
		{name: "poly concurrency", yaml: "scaffolder:\n  polyConcurrency: 4\n"},
		{name: "negative poly concurrency", yaml: "scaffolder:\n  polyConcurrency: -2\n", wantErr: true},
		{name: "cache ttl too large", yaml: "catalog:\n  cache:\n    enabled: true\n    ttlSeconds: 99999999\n", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.yaml))
			if tt.wantErr {
				require.ErrorIs(t, err, config.ErrInvalidConfig)
				return
			}
			require.NoError(t, err)
		})
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("backend:\n  baseUrl: http://file:7007\n"), 0600))

	t.Setenv(config.EnvBackendURL, "http://env:7007")
	t.Setenv(config.EnvBackendToken, "env-token")
	t.Setenv(config.EnvLogLevel, "DEBUG")
	t.Setenv(config.EnvCatalogCache, "true")

	cfg, err := config.Load(path)
	require.NoError(t, err)

	assert.Equal(t, "http://env:7007", cfg.Backend.BaseURL)
	assert.Equal(t, "env-token", cfg.Backend.Auth.Token)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.True(t, cfg.Catalog.Cache.Enabled)

	token, err := cfg.Reader().String("backend.auth.token")
	require.NoError(t, err)
	assert.Equal(t, "env-token", token)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(path, []byte("STAGEHAND_TEST_DOTENV=loaded\n"), 0600))
	t.Cleanup(func() { _ = os.Unsetenv("STAGEHAND_TEST_DOTENV") })

	require.NoError(t, config.LoadDotEnv(path, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "loaded", os.Getenv("STAGEHAND_TEST_DOTENV"))
}

func TestGlobalConfig(t *testing.T) {
	t.Setenv("STAGEHAND_HOME", t.TempDir())
	config.ResetGlobalConfigForTest()
	t.Cleanup(config.ResetGlobalConfigForTest)

	cfg := config.GetGlobalConfig()
	require.NotNil(t, cfg)
	assert.Same(t, cfg, config.GetGlobalConfig())

	replacement := config.Defaults()
	config.SetGlobalConfig(replacement)
	assert.Same(t, replacement, config.GetGlobalConfig())
}

func TestLoggingConfig_ToLoggingConfig(t *testing.T) {
	lc := config.LoggingConfig{Level: "debug", Format: "json"}
	assert.Equal(t, logging.OutputStderr, lc.ToLoggingConfig().Output)

	lc.File = "/tmp/stagehand.log"
	out := lc.ToLoggingConfig()
	assert.Equal(t, logging.OutputFile, out.Output)
	assert.Equal(t, "/tmp/stagehand.log", out.File)
}
