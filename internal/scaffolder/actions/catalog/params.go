// Package catalog provides the catalog:fetch scaffolder action and its batch
// variant.
package catalog

import (
	"fmt"

	"github.com/rshade/stagehand/internal/engine/batch"
	"github.com/rshade/stagehand/internal/scaffolder"
)

// ActionID is shared by the single and batch actions; only one is registered.
const ActionID = "catalog:fetch"

// Input keys.
const (
	keyEntityRef        = batch.PrimaryRefKey
	keyEntityRefs       = batch.RefListKey
	keyOptional         = "optional"
	keyDefaultKind      = "defaultKind"
	keyDefaultNamespace = "defaultNamespace"
	keyCommonValues     = "commonValues"
	keyValues           = "values"
)

// Output keys.
const (
	OutputEntity   = "entity"
	OutputEntities = "entities"
	OutputResults  = "results"
)

// Params is the decoded input of a single fetch.
type Params struct {
	EntityRef        string   `json:"entityRef,omitempty" yaml:"entityRef,omitempty"`
	EntityRefs       []string `json:"entityRefs,omitempty" yaml:"entityRefs,omitempty"`
	Optional         bool     `json:"optional,omitempty" yaml:"optional,omitempty"`
	DefaultKind      string   `json:"defaultKind,omitempty" yaml:"defaultKind,omitempty"`
	DefaultNamespace string   `json:"defaultNamespace,omitempty" yaml:"defaultNamespace,omitempty"`
}

// paramFields is the schema of Params.
func paramFields() []scaffolder.Field {
	return []scaffolder.Field{
		{Name: keyEntityRef, Type: scaffolder.TypeString, Description: "Entity reference of the entity to get"},
		{
			Name:        keyEntityRefs,
			Type:        scaffolder.TypeArray,
			Items:       &scaffolder.Field{Type: scaffolder.TypeString},
			Description: "Entity references of the entities to get",
		},
		{Name: keyOptional, Type: scaffolder.TypeBoolean, Description: "Allow the entity or entities to optionally exist. Default: false"},
		{Name: keyDefaultKind, Type: scaffolder.TypeString, Description: "The default kind"},
		{Name: keyDefaultNamespace, Type: scaffolder.TypeString, Description: "The default namespace"},
	}
}

func outputFields() []scaffolder.Field {
	return []scaffolder.Field{
		{
			Name:        OutputEntity,
			Type:        scaffolder.TypeAny,
			Description: "Object containing same values used in the Entity schema. Only when used with `entityRef` parameter.",
		},
		{
			Name:        OutputEntities,
			Type:        scaffolder.TypeArray,
			Items:       &scaffolder.Field{Type: scaffolder.TypeAny},
			Description: "Array containing objects with same values used in the Entity schema. Only when used with `entityRefs` parameter.",
		},
	}
}

// decodeParams reads Params from validated input.
func decodeParams(input batch.Values) (Params, error) {
	var p Params
	var ok bool

	if v, present := input[keyEntityRef]; present && v != nil {
		if p.EntityRef, ok = v.(string); !ok {
			return p, fmt.Errorf("%s must be a string", keyEntityRef)
		}
	}
	if v, present := input[keyEntityRefs]; present && v != nil {
		items, isList := scaffolder.AsSlice(v)
		if !isList {
			return p, fmt.Errorf("%s must be a list", keyEntityRefs)
		}
		p.EntityRefs = make([]string, len(items))
		for i, item := range items {
			if p.EntityRefs[i], ok = item.(string); !ok {
				return p, fmt.Errorf("%s[%d] must be a string", keyEntityRefs, i)
			}
		}
	}
	if v, present := input[keyOptional]; present && v != nil {
		if p.Optional, ok = v.(bool); !ok {
			return p, fmt.Errorf("%s must be a boolean", keyOptional)
		}
	}
	if v, present := input[keyDefaultKind]; present && v != nil {
		if p.DefaultKind, ok = v.(string); !ok {
			return p, fmt.Errorf("%s must be a string", keyDefaultKind)
		}
	}
	if v, present := input[keyDefaultNamespace]; present && v != nil {
		if p.DefaultNamespace, ok = v.(string); !ok {
			return p, fmt.Errorf("%s must be a string", keyDefaultNamespace)
		}
	}
	return p, nil
}
