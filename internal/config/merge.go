package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Top-level YAML config key names used for shallow merge.
const (
	keyBackend    = "backend"
	keyDiscovery  = "discovery"
	keyCatalog    = "catalog"
	keySearch     = "search"
	keyTechDocs   = "techdocs"
	keyScaffolder = "scaffolder"
	keyLogging    = "logging"
)

// knownTopLevelKeys lists the YAML keys that correspond to typed Config fields.
// Other keys are kept in the raw tree only.
//
//nolint:gochecknoglobals // Compile-time constant lookup table.
var knownTopLevelKeys = map[string]bool{
	keyBackend:    true,
	keyDiscovery:  true,
	keyCatalog:    true,
	keySearch:     true,
	keyTechDocs:   true,
	keyScaffolder: true,
	keyLogging:    true,
}

// ShallowMergeYAML loads a YAML file and merges its top-level keys onto
// the target Config. Keys present in the overlay replace entire sections
// in the target. Keys absent in the overlay are left unchanged.
func ShallowMergeYAML(target *Config, overlayPath string) error {
	if target == nil {
		return errors.New("nil target *Config in ShallowMergeYAML")
	}

	data, err := os.ReadFile(overlayPath)
	if err != nil {
		return fmt.Errorf("reading overlay file %s: %w", overlayPath, err)
	}

	return target.mergeBytes(data, overlayPath)
}

// unmarshalSection decodes raw YAML bytes into the typed field for key. Each
// section starts from the built-in defaults so that an overlay replaces what a
// previous file set while fields it omits keep their default values.
func unmarshalSection(target *Config, key string, data []byte) error {
	defaults := Defaults()
	switch key {
	case keyBackend:
		v := defaults.Backend
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Backend = v
	case keyDiscovery:
		v := defaults.Discovery
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Discovery = v
	case keyCatalog:
		v := defaults.Catalog
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Catalog = v
	case keySearch:
		v := defaults.Search
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Search = v
	case keyTechDocs:
		v := defaults.TechDocs
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.TechDocs = v
	case keyScaffolder:
		v := defaults.Scaffolder
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Scaffolder = v
	case keyLogging:
		v := defaults.Logging
		if err := yaml.Unmarshal(data, &v); err != nil {
			return err
		}
		target.Logging = v
	default:
		return fmt.Errorf("unknown config key: %s", key)
	}
	return nil
}
