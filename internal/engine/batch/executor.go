package batch

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"
)

// Concurrency bounds for WithConcurrency.
const (
	// DefaultConcurrency runs items strictly one after another.
	DefaultConcurrency = 1

	// MaxConcurrency is the largest accepted fan-out.
	MaxConcurrency = 64
)

// Keys inspected by DefaultLabel.
const (
	PrimaryRefKey = "entityRef"
	RefListKey    = "entityRefs"
)

// ErrNilOperation is returned by NewExecutor when no item operation is given.
var ErrNilOperation = errors.New("batch item operation cannot be nil")

// ItemOp processes one item. input is the item's effective input (common defaults
// overlaid with the item's own values); outputs are written to sink.
type ItemOp func(ctx context.Context, input Values, sink *Sink) error

// LabelFunc derives a human-readable identifier for an item's effective input.
type LabelFunc func(input Values) string

// ProgressCallback is invoked once per item, before the item operation runs.
// It is purely observational.
type ProgressCallback func(progress ProgressSnapshot)

// ItemError reports which item of a batch failed.
type ItemError struct {
	Index int
	Label string
	Err   error
}

func (e *ItemError) Error() string {
	if e.Label != "" {
		return fmt.Sprintf("item %d (%s) failed: %v", e.Index, e.Label, e.Err)
	}
	return fmt.Sprintf("item %d failed: %v", e.Index, e.Err)
}

func (e *ItemError) Unwrap() error {
	return e.Err
}

// Executor generalizes an ItemOp into an ordered batch operation.
type Executor struct {
	op          ItemOp
	label       LabelFunc
	onProgress  ProgressCallback
	concurrency int
	partial     bool
	itemLabels  bool
}

// Option configures an Executor.
type Option func(*Executor)

// WithObserver registers a progress callback.
func WithObserver(callback ProgressCallback) Option {
	return func(e *Executor) {
		e.onProgress = callback
	}
}

// WithLabel overrides how items are identified in progress reports and errors.
func WithLabel(fn LabelFunc) Option {
	return func(e *Executor) {
		if fn != nil {
			e.label = fn
		}
	}
}

// WithItemLabels derives labels from each item's own values instead of its
// effective input, so a reference supplied only through common defaults does not
// name every item.
func WithItemLabels() Option {
	return func(e *Executor) {
		e.itemLabels = true
	}
}

// WithConcurrency allows up to n items to run at once. Values below 1 mean 1 and
// values above MaxConcurrency are capped. Results stay index-aligned; the item
// operation and the progress callback may then be called from several goroutines.
func WithConcurrency(n int) Option {
	return func(e *Executor) {
		switch {
		case n < 1:
			n = DefaultConcurrency
		case n > MaxConcurrency:
			n = MaxConcurrency
		}
		e.concurrency = n
	}
}

// WithPartialResults makes Run return the results completed before a failure
// alongside the error. Entries for items that did not complete are nil.
func WithPartialResults() Option {
	return func(e *Executor) {
		e.partial = true
	}
}

// NewExecutor wraps op.
func NewExecutor(op ItemOp, opts ...Option) (*Executor, error) {
	if op == nil {
		return nil, ErrNilOperation
	}
	e := &Executor{
		op:          op,
		label:       DefaultLabel,
		concurrency: DefaultConcurrency,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// DefaultLabel returns the item's primary reference, or the first entry of its
// reference list, or "".
func DefaultLabel(input Values) string {
	if ref, ok := input[PrimaryRefKey].(string); ok && ref != "" {
		return ref
	}
	switch refs := input[RefListKey].(type) {
	case []string:
		if len(refs) > 0 {
			return refs[0]
		}
	case []any:
		if len(refs) > 0 {
			if s, ok := refs[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// Run applies the wrapped operation to every item. result[i] holds what the
// operation wrote for items[i]; an item that wrote nothing yields an empty map.
// The first failure aborts the batch and, unless WithPartialResults is set, no
// results are returned.
func (e *Executor) Run(ctx context.Context, common Values, items []Values) ([]Values, error) {
	results := make([]Values, len(items))
	if len(items) == 0 {
		return results, nil
	}

	progress := NewProgress(len(items))

	var err error
	if e.concurrency <= 1 {
		err = e.runSequential(ctx, common, items, results, progress)
	} else {
		err = e.runConcurrent(ctx, common, items, results, progress)
	}

	if err != nil {
		if e.partial {
			return results, err
		}
		return nil, err
	}
	return results, nil
}

func (e *Executor) runSequential(
	ctx context.Context,
	common Values,
	items []Values,
	results []Values,
	progress *Progress,
) error {
	for i, item := range items {
		// Check for context cancellation
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err := e.runItem(ctx, i, common, item, results, progress); err != nil {
			return err
		}
	}
	return nil
}

func (e *Executor) runConcurrent(
	ctx context.Context,
	common Values,
	items []Values,
	results []Values,
	progress *Progress,
) error {
	g, gCtx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	launched := 0
	for i, item := range items {
		if gCtx.Err() != nil {
			break
		}
		launched++
		g.Go(func() error {
			if gCtx.Err() != nil {
				return gCtx.Err()
			}
			return e.runItem(gCtx, i, common, item, results, progress)
		})
	}

	if err := g.Wait(); err != nil {
		return err
	}
	if launched < len(items) {
		return ctx.Err()
	}
	return nil
}

// runItem executes one item with its own sink and stores the sink's contents at
// results[index]. Each index is written by exactly one goroutine.
func (e *Executor) runItem(
	ctx context.Context,
	index int,
	common Values,
	item Values,
	results []Values,
	progress *Progress,
) error {
	input := Merge(common, item)
	label := e.label(input)
	if e.itemLabels {
		label = e.label(item)
	}

	snapshot := progress.Start(index, label)
	if e.onProgress != nil {
		e.onProgress(snapshot)
	}

	sink := NewSink()
	if err := e.op(ctx, input, sink); err != nil {
		return &ItemError{Index: index, Label: label, Err: err}
	}

	results[index] = sink.Result()
	progress.AddProcessed(1)
	return nil
}
