package catalog

import (
	"context"
	"fmt"

	"github.com/rshade/stagehand/internal/engine/batch"
	"github.com/rshade/stagehand/internal/scaffolder"
)

// PolyOption configures NewPolyFetchAction.
type PolyOption func(*polyConfig)

type polyConfig struct {
	concurrency int
}

// WithConcurrency lets the batch action resolve up to n items at once. Result
// order is unaffected.
func WithConcurrency(n int) PolyOption {
	return func(c *polyConfig) {
		c.concurrency = n
	}
}

// NewPolyFetchAction returns the batch catalog:fetch action. It runs the single
// fetch handler once per entry of values, with commonValues as defaults, and
// outputs one result object per entry. The first failing entry fails the action.
func NewPolyFetchAction(delegate *scaffolder.Action, opts ...PolyOption) *scaffolder.Action {
	cfg := polyConfig{concurrency: batch.DefaultConcurrency}
	for _, opt := range opts {
		opt(&cfg)
	}

	return &scaffolder.Action{
		ID:             ActionID,
		Description:    "Poly Returns entity or entities from the catalog by entity reference(s).",
		Examples:       polyExamples(),
		SupportsDryRun: true,
		Schema: scaffolder.Schema{
			Input: []scaffolder.Field{
				{Name: keyCommonValues, Type: scaffolder.TypeObject, Properties: paramFields()},
				{
					Name:     keyValues,
					Type:     scaffolder.TypeArray,
					Required: true,
					Items:    &scaffolder.Field{Type: scaffolder.TypeObject, Properties: paramFields()},
				},
			},
			Output: []scaffolder.Field{
				{
					Name:     OutputResults,
					Type:     scaffolder.TypeArray,
					Required: true,
					Items:    &scaffolder.Field{Type: scaffolder.TypeObject, Properties: delegate.Schema.Output},
				},
			},
		},
		Handler: func(ctx context.Context, actx *scaffolder.ActionContext) error {
			common, items, err := decodeBatch(actx.Input)
			if err != nil {
				return fmt.Errorf("%w: %w", scaffolder.ErrInvalidInput, err)
			}

			executor, err := batch.NewExecutor(
				func(ctx context.Context, input batch.Values, sink *batch.Sink) error {
					return delegate.Handler(ctx, actx.WithInput(input, sink.Output()))
				},
				batch.WithConcurrency(cfg.concurrency),
				batch.WithItemLabels(),
				batch.WithObserver(func(p batch.ProgressSnapshot) {
					actx.Logger.Debug().
						Int("index", p.CurrentIndex).
						Int("total", p.TotalItems).
						Float64("percent_complete", p.PercentComplete).
						Dur("elapsed", p.ElapsedTime).
						Msgf("Fetching %s...", p.CurrentLabel)
				}),
			)
			if err != nil {
				return err
			}

			results, err := executor.Run(ctx, common, items)
			if err != nil {
				return err
			}
			actx.Output(OutputResults, results)
			return nil
		},
	}
}

// decodeBatch splits validated batch input into common defaults and items.
func decodeBatch(input batch.Values) (batch.Values, []batch.Values, error) {
	var common batch.Values
	if v, ok := input[keyCommonValues]; ok && v != nil {
		obj, isObj := scaffolder.AsObject(v)
		if !isObj {
			return nil, nil, fmt.Errorf("%s must be an object", keyCommonValues)
		}
		common = obj
	}

	raw, ok := scaffolder.AsSlice(input[keyValues])
	if !ok {
		return nil, nil, fmt.Errorf("%s must be a list", keyValues)
	}
	items := make([]batch.Values, len(raw))
	for i, v := range raw {
		obj, isObj := scaffolder.AsObject(v)
		if !isObj {
			return nil, nil, fmt.Errorf("%s[%d] must be an object", keyValues, i)
		}
		items[i] = obj
	}
	return common, items, nil
}
