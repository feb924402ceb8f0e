package config

import (
	"errors"
	"io/fs"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Environment variables that override configuration values.
const (
	EnvLogLevel     = "STAGEHAND_LOG_LEVEL"
	EnvLogFormat    = "STAGEHAND_LOG_FORMAT"
	EnvLogFile      = "STAGEHAND_LOG_FILE"
	EnvBackendURL   = "STAGEHAND_BACKEND_URL"
	EnvBackendToken = "STAGEHAND_BACKEND_TOKEN"
	EnvSinkType     = "STAGEHAND_SEARCH_SINK"
	EnvCatalogCache = "STAGEHAND_CATALOG_CACHE"
)

// LoadDotEnv loads KEY=VALUE pairs from the given files (".env" when none are
// given) into the process environment. Variables already set are not overwritten
// and missing files are not an error.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// applyEnv overlays environment variables on the typed configuration and the raw
// tree so both views agree.
func (c *Config) applyEnv(lookupEnv func(string) (string, bool)) {
	if v, ok := lookupEnv(EnvLogLevel); ok && v != "" {
		c.Logging.Level = strings.ToLower(v)
	}
	if v, ok := lookupEnv(EnvLogFormat); ok && v != "" {
		c.Logging.Format = strings.ToLower(v)
	}
	if v, ok := lookupEnv(EnvLogFile); ok {
		c.Logging.File = v
	}
	if v, ok := lookupEnv(EnvBackendURL); ok && v != "" {
		c.Backend.BaseURL = v
		c.setRaw([]string{keyBackend, "baseUrl"}, v)
	}
	if v, ok := lookupEnv(EnvBackendToken); ok && v != "" {
		c.Backend.Auth.Token = v
		c.setRaw([]string{keyBackend, "auth", "token"}, v)
	}
	if v, ok := lookupEnv(EnvSinkType); ok && v != "" {
		c.Search.Sink.Type = strings.ToLower(v)
		c.setRaw([]string{keySearch, "sink", "type"}, c.Search.Sink.Type)
	}
	if v, ok := lookupEnv(EnvCatalogCache); ok {
		if enabled, err := strconv.ParseBool(v); err == nil {
			c.Catalog.Cache.Enabled = enabled
		}
	}
}

func (c *Config) setRaw(path []string, value any) {
	if c.raw == nil {
		c.raw = map[string]any{}
	}
	node := c.raw
	for _, key := range path[:len(path)-1] {
		next, ok := node[key].(map[string]any)
		if !ok {
			next = map[string]any{}
			node[key] = next
		}
		node = next
	}
	node[path[len(path)-1]] = value
}
