package catalog

import (
	"context"
	"errors"
	"fmt"

	catalogapi "github.com/rshade/stagehand/internal/catalog"
	"github.com/rshade/stagehand/internal/scaffolder"
)

// ErrMissingRef is returned when neither entityRef nor entityRefs is given and
// the fetch is not optional.
var ErrMissingRef = errors.New("missing entity reference or references")

// NewFetchAction returns the single-entity catalog:fetch action.
func NewFetchAction(client catalogapi.Client) *scaffolder.Action {
	return &scaffolder.Action{
		ID:             ActionID,
		Description:    "Returns entity or entities from the catalog by entity reference(s).",
		Examples:       fetchExamples(),
		SupportsDryRun: true,
		Schema: scaffolder.Schema{
			Input:  paramFields(),
			Output: outputFields(),
		},
		Handler: func(ctx context.Context, actx *scaffolder.ActionContext) error {
			params, err := decodeParams(actx.Input)
			if err != nil {
				return fmt.Errorf("%w: %w", scaffolder.ErrInvalidInput, err)
			}
			return fetch(ctx, client, params, actx.Output)
		},
	}
}

// fetch resolves the refs in p and writes entity and/or entities to output.
// A missing entity is an error unless p.Optional, in which case its slot is nil.
func fetch(ctx context.Context, client catalogapi.Client, p Params, output func(string, any)) error {
	if p.EntityRef == "" && p.EntityRefs == nil {
		if p.Optional {
			return nil
		}
		return ErrMissingRef
	}

	defaults := catalogapi.Defaults{Kind: p.DefaultKind, Namespace: p.DefaultNamespace}

	if p.EntityRef != "" {
		ref, err := catalogapi.NormalizeRef(p.EntityRef, defaults)
		if err != nil {
			return err
		}
		entity, err := client.GetEntityByRef(ctx, ref)
		if err != nil {
			return fmt.Errorf("fetching %s: %w", p.EntityRef, err)
		}
		if entity == nil && !p.Optional {
			return fmt.Errorf("%w: %s", catalogapi.ErrEntityNotFound, p.EntityRef)
		}
		output(OutputEntity, entity)
	}

	if p.EntityRefs != nil {
		refs := make([]string, len(p.EntityRefs))
		for i, raw := range p.EntityRefs {
			ref, err := catalogapi.NormalizeRef(raw, defaults)
			if err != nil {
				return err
			}
			refs[i] = ref
		}
		entities, err := client.GetEntitiesByRefs(ctx, refs)
		if err != nil {
			return fmt.Errorf("fetching entities: %w", err)
		}
		for i, e := range entities {
			if e == nil && !p.Optional {
				return fmt.Errorf("%w: %s", catalogapi.ErrEntityNotFound, p.EntityRefs[i])
			}
		}
		output(OutputEntities, entities)
	}
	return nil
}
