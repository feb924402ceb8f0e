package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/rshade/stagehand/internal/cache"
)

// Defaults applied by New before any file or environment overrides.
const (
	DefaultBackendBaseURL       = "http://localhost:7007"
	DefaultLogLevel             = "info"
	DefaultLogFormat            = "json"
	DefaultSinkType             = SinkMemory
	DefaultCatalogCacheTTL      = 3600
	DefaultCatalogRequestBurst  = 10
	DefaultPolyConcurrency      = 1
	configFileName              = "config.yaml"
	defaultKafkaTopic           = "stagehand.search.documents"
	defaultPostgresTable        = "search_documents"
	defaultS3Prefix             = "search-index"
	defaultS3Bucket             = "stagehand"
	defaultTechDocsLegacyCasing = false
)

// Sink types understood by the search index builder.
const (
	SinkMemory   = "memory"
	SinkS3       = "s3"
	SinkKafka    = "kafka"
	SinkPostgres = "postgres"
)

// Configuration errors.
var (
	ErrInvalidConfig = errors.New("invalid configuration")
	ErrMissingConfig = errors.New("missing configuration value")
)

// Config is the typed view of the stagehand app-config. The raw YAML tree is kept
// alongside it so that modules can read their own keys through Reader.
type Config struct {
	Backend    BackendConfig    `yaml:"backend"`
	Discovery  DiscoveryConfig  `yaml:"discovery"`
	Catalog    CatalogConfig    `yaml:"catalog"`
	Search     SearchConfig     `yaml:"search"`
	TechDocs   TechDocsConfig   `yaml:"techdocs"`
	Scaffolder ScaffolderConfig `yaml:"scaffolder"`
	Logging    LoggingConfig    `yaml:"logging"`

	raw map[string]any
}

// BackendConfig locates the backend and carries its service-to-service credentials.
type BackendConfig struct {
	BaseURL string     `yaml:"baseUrl"`
	Auth    AuthConfig `yaml:"auth"`
}

// AuthConfig holds the static token sent to other backend plugins.
type AuthConfig struct {
	Token string `yaml:"token"`
}

// DiscoveryConfig overrides the base URL of individual plugins.
type DiscoveryConfig struct {
	Endpoints map[string]string `yaml:"endpoints"`
}

// CatalogConfig tunes the catalog client.
type CatalogConfig struct {
	RateLimit float64            `yaml:"rateLimit"`
	Burst     int                `yaml:"burst"`
	Cache     CatalogCacheConfig `yaml:"cache"`
}

// CatalogCacheConfig controls the on-disk entity cache.
type CatalogCacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Directory  string `yaml:"directory"`
	TTLSeconds int    `yaml:"ttlSeconds"`
}

// SearchConfig groups search indexing settings. Collator-specific keys are read
// through Reader by the modules that own them.
type SearchConfig struct {
	Sink SinkConfig `yaml:"sink"`
}

// SinkConfig selects and configures where collated documents are written.
type SinkConfig struct {
	Type     string         `yaml:"type"`
	S3       S3SinkConfig   `yaml:"s3"`
	Kafka    KafkaConfig    `yaml:"kafka"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// S3SinkConfig configures the S3-compatible document sink.
type S3SinkConfig struct {
	Endpoint  string `yaml:"endpoint"`
	AccessKey string `yaml:"accessKey"`
	SecretKey string `yaml:"secretKey"`
	UseSSL    bool   `yaml:"useSSL"`
	Bucket    string `yaml:"bucket"`
	Region    string `yaml:"region"`
	Prefix    string `yaml:"prefix"`
}

// KafkaConfig configures the Kafka document sink.
type KafkaConfig struct {
	Brokers []string `yaml:"brokers"`
	Topic   string   `yaml:"topic"`
}

// PostgresConfig configures the Postgres document sink.
type PostgresConfig struct {
	DSN   string `yaml:"dsn"`
	Table string `yaml:"table"`
}

// TechDocsConfig mirrors the techdocs keys the collator needs.
type TechDocsConfig struct {
	LegacyUseCaseSensitiveTripletPaths bool `yaml:"legacyUseCaseSensitiveTripletPaths"`
}

// ScaffolderConfig tunes scaffolder actions.
type ScaffolderConfig struct {
	// PolyConcurrency is how many items a poly action runs at once.
	PolyConcurrency int `yaml:"polyConcurrency"`
}

// LoggingConfig controls log level, format and destination.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	File   string `yaml:"file"`
}

// Defaults returns a Config holding only built-in defaults.
func Defaults() *Config {
	return &Config{
		Backend: BackendConfig{BaseURL: DefaultBackendBaseURL},
		Catalog: CatalogConfig{
			Burst: DefaultCatalogRequestBurst,
			Cache: CatalogCacheConfig{TTLSeconds: DefaultCatalogCacheTTL},
		},
		Search: SearchConfig{Sink: SinkConfig{
			Type:     DefaultSinkType,
			S3:       S3SinkConfig{Bucket: defaultS3Bucket, Prefix: defaultS3Prefix},
			Kafka:    KafkaConfig{Topic: defaultKafkaTopic},
			Postgres: PostgresConfig{Table: defaultPostgresTable},
		}},
		TechDocs:   TechDocsConfig{LegacyUseCaseSensitiveTripletPaths: defaultTechDocsLegacyCasing},
		Scaffolder: ScaffolderConfig{PolyConcurrency: DefaultPolyConcurrency},
		Logging:    LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		raw:        map[string]any{},
	}
}

// New returns the defaults overlaid with the user's config file, when one exists,
// and environment overrides. Problems reading the file are ignored; use Load to
// surface them.
func New() *Config {
	cfg := Defaults()
	if dir, err := GetConfigDir(); err == nil {
		path := filepath.Join(dir, configFileName)
		if _, statErr := os.Stat(path); statErr == nil {
			_ = cfg.mergeFile(path)
		}
	}
	cfg.applyEnv(os.LookupEnv)
	return cfg
}

// Load reads the config file at path on top of the defaults and applies
// environment overrides.
func Load(path string) (*Config, error) {
	cfg := Defaults()
	if err := cfg.mergeFile(path); err != nil {
		return nil, err
	}
	cfg.applyEnv(os.LookupEnv)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Parse builds a Config from YAML bytes without touching the environment.
func Parse(data []byte) (*Config, error) {
	cfg := Defaults()
	if err := cfg.mergeBytes(data, "<inline>"); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Reader returns a dotted-path reader over the raw configuration tree.
func (c *Config) Reader() *Reader {
	if c == nil {
		return NewReader(nil)
	}
	return NewReader(c.raw)
}

// Validate checks cross-field constraints of the typed configuration.
func (c *Config) Validate() error {
	switch c.Search.Sink.Type {
	case "", SinkMemory:
	case SinkS3:
		if c.Search.Sink.S3.Endpoint == "" || c.Search.Sink.S3.Bucket == "" {
			return fmt.Errorf("%w: search.sink.s3 requires endpoint and bucket", ErrInvalidConfig)
		}
	case SinkKafka:
		if len(c.Search.Sink.Kafka.Brokers) == 0 {
			return fmt.Errorf("%w: search.sink.kafka requires at least one broker", ErrInvalidConfig)
		}
	case SinkPostgres:
		if c.Search.Sink.Postgres.DSN == "" {
			return fmt.Errorf("%w: search.sink.postgres requires dsn", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: unknown search.sink.type %q", ErrInvalidConfig, c.Search.Sink.Type)
	}
	if c.Scaffolder.PolyConcurrency < 0 {
		return fmt.Errorf("%w: scaffolder.polyConcurrency must be >= 0", ErrInvalidConfig)
	}
	if c.Catalog.RateLimit < 0 {
		return fmt.Errorf("%w: catalog.rateLimit must be >= 0", ErrInvalidConfig)
	}
	if c.Catalog.Cache.Enabled {
		if _, err := cache.TTLFromSeconds(c.Catalog.Cache.TTLSeconds); err != nil {
			return fmt.Errorf("%w: catalog.cache.ttlSeconds: %w", ErrInvalidConfig, err)
		}
	}
	return nil
}

func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file %s: %w", path, err)
	}
	return c.mergeBytes(data, path)
}

func (c *Config) mergeBytes(data []byte, source string) error {
	var tree map[string]any
	if err := yaml.Unmarshal(data, &tree); err != nil {
		return fmt.Errorf("%w: parsing %s: %v", ErrInvalidConfig, source, err)
	}
	if len(tree) == 0 {
		return nil
	}
	for key, value := range tree {
		if err := c.applySection(key, value); err != nil {
			return fmt.Errorf("%w: %s: section %q: %v", ErrInvalidConfig, source, key, err)
		}
	}
	return nil
}

// applySection replaces one top-level section in both the raw tree and, when the
// key is known, the typed configuration.
func (c *Config) applySection(key string, value any) error {
	if c.raw == nil {
		c.raw = map[string]any{}
	}
	c.raw[key] = value

	if !knownTopLevelKeys[key] {
		return nil
	}
	sectionBytes, err := yaml.Marshal(value)
	if err != nil {
		return err
	}
	return unmarshalSection(c, key, sectionBytes)
}

// GetConfigDir returns the stagehand configuration directory.
func GetConfigDir() (string, error) {
	if home := os.Getenv("STAGEHAND_HOME"); home != "" {
		return home, nil
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".stagehand"), nil
}
