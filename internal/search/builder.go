package search

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/rshade/stagehand/internal/logging"
	"github.com/rshade/stagehand/internal/scheduler"
)

// TaskIDPrefix prefixes the scheduler task id of each collator.
const TaskIDPrefix = "search_index_"

// CollateResult summarises one collation.
type CollateResult struct {
	Type      string
	Documents int
	Skipped   int
	Duration  time.Duration
}

// IndexBuilder runs registered collators and writes their output to a Sink.
type IndexBuilder struct {
	registry *IndexRegistry
	sink     Sink
	logger   zerolog.Logger
}

// NewIndexBuilder creates a builder. A nil logger uses the default logger.
func NewIndexBuilder(registry *IndexRegistry, sink Sink, logger *zerolog.Logger) *IndexBuilder {
	base := logging.Default()
	if logger != nil {
		base = *logger
	}
	return &IndexBuilder{
		registry: registry,
		sink:     sink,
		logger:   logging.ComponentLogger(base, "search-index"),
	}
}

// Build schedules every registered collator on its runner. Collation then
// happens in the background until ctx is done or the scheduler shuts down.
func (b *IndexBuilder) Build(ctx context.Context) error {
	for _, c := range b.registry.Collators() {
		factory := c.Factory
		err := c.Schedule.Run(ctx, scheduler.TaskInvocation{
			ID: TaskIDPrefix + factory.Type(),
			Fn: func(ctx context.Context) error {
				_, collateErr := b.Collate(ctx, factory)
				return collateErr
			},
		})
		if err != nil {
			return fmt.Errorf("scheduling %s collator: %w", factory.Type(), err)
		}
	}
	return nil
}

// Collate runs factory once and replaces its documents in the sink. Documents
// that fail validation are dropped and counted in Skipped.
func (b *IndexBuilder) Collate(ctx context.Context, factory DocumentCollatorFactory) (CollateResult, error) {
	start := time.Now()
	docType := factory.Type()
	logger := b.logger.With().Str("type", docType).Logger()

	docs, err := factory.GetCollator(ctx)
	if err != nil {
		return CollateResult{Type: docType}, fmt.Errorf("collating %s: %w", docType, err)
	}

	valid := docs[:0:0]
	skipped := 0
	for _, d := range docs {
		if validateErr := d.Validate(); validateErr != nil {
			skipped++
			logger.Warn().Err(validateErr).Str("location", d.Location()).Msg("dropping document")
			continue
		}
		valid = append(valid, d)
	}

	if replaceErr := b.sink.Replace(ctx, docType, valid); replaceErr != nil {
		return CollateResult{Type: docType}, fmt.Errorf("writing %s documents: %w", docType, replaceErr)
	}

	res := CollateResult{Type: docType, Documents: len(valid), Skipped: skipped, Duration: time.Since(start)}
	logger.Info().
		Int("documents", res.Documents).
		Int("skipped", res.Skipped).
		Dur("duration_ms", res.Duration).
		Msg("collation complete")
	return res, nil
}

// CollateAll runs every registered collator once, in registration order. All
// collators run even if one fails; the failures are joined.
func (b *IndexBuilder) CollateAll(ctx context.Context) ([]CollateResult, error) {
	var results []CollateResult
	var errs []error
	for _, c := range b.registry.Collators() {
		res, err := b.Collate(ctx, c.Factory)
		results = append(results, res)
		if err != nil {
			errs = append(errs, err)
		}
	}
	return results, errors.Join(errs...)
}
