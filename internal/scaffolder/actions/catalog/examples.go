package catalog

import (
	"gopkg.in/yaml.v3"

	"github.com/rshade/stagehand/internal/logging"
	"github.com/rshade/stagehand/internal/scaffolder"
)

type templateStep struct {
	Action string         `yaml:"action"`
	ID     string         `yaml:"id"`
	Name   string         `yaml:"name"`
	Input  map[string]any `yaml:"input"`
}

type templateSteps struct {
	Steps []templateStep `yaml:"steps"`
}

func example(description, name string, input map[string]any) scaffolder.Example {
	doc := templateSteps{Steps: []templateStep{{
		Action: ActionID,
		ID:     "fetch",
		Name:   name,
		Input:  input,
	}}}
	out, err := yaml.Marshal(doc)
	if err != nil {
		// Static inputs; this only fires on a programming error.
		l := logging.Default()
		l.Error().Err(err).Str("example", description).Msg("failed to render action example")
	}
	return scaffolder.Example{Description: description, Example: string(out)}
}

func fetchExamples() []scaffolder.Example {
	return []scaffolder.Example{
		example("Fetch entity by reference", "Fetch catalog entity", map[string]any{
			keyEntityRef: "component:default/name",
		}),
		example("Fetch multiple entities by reference", "Fetch catalog entities", map[string]any{
			keyEntityRefs: []string{"component:default/name"},
		}),
	}
}

func polyExamples() []scaffolder.Example {
	return []scaffolder.Example{
		example("Fetch several entities, each by reference", "Fetch catalog entities", map[string]any{
			keyValues: []map[string]any{
				{keyEntityRef: "component:default/name"},
				{keyEntityRef: "group:default/team-a"},
			},
		}),
		example("Fetch entities sharing defaults", "Fetch owners and systems", map[string]any{
			keyCommonValues: map[string]any{keyDefaultNamespace: "platform", keyOptional: true},
			keyValues: []map[string]any{
				{keyEntityRef: "group:owners"},
				{keyEntityRefs: []string{"system:billing", "system:payments"}, keyDefaultNamespace: "finance"},
			},
		}),
	}
}
