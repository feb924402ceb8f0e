package search

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/rshade/stagehand/internal/config"
)

// Sink stores collated documents.
type Sink interface {
	// Replace swaps every stored document of docType for docs.
	Replace(ctx context.Context, docType string, docs []Document) error
	Close() error
}

// NewSinkFromConfig builds the sink selected by cfg.Type.
func NewSinkFromConfig(ctx context.Context, cfg config.SinkConfig) (Sink, error) {
	switch cfg.Type {
	case "", config.SinkMemory:
		return NewMemorySink(), nil
	case config.SinkS3:
		return NewS3Sink(ctx, cfg.S3)
	case config.SinkKafka:
		return NewKafkaSink(cfg.Kafka)
	case config.SinkPostgres:
		return NewPostgresSink(ctx, cfg.Postgres)
	}
	return nil, fmt.Errorf("%w: unknown sink type %q", config.ErrInvalidConfig, cfg.Type)
}

// MemorySink keeps documents in memory, keyed by type.
type MemorySink struct {
	mu   sync.RWMutex
	docs map[string][]Document
}

// NewMemorySink returns an empty sink.
func NewMemorySink() *MemorySink {
	return &MemorySink{docs: make(map[string][]Document)}
}

// Replace implements Sink.
func (m *MemorySink) Replace(_ context.Context, docType string, docs []Document) error {
	cp := make([]Document, len(docs))
	copy(cp, docs)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.docs[docType] = cp
	return nil
}

// Documents returns the documents stored for docType.
func (m *MemorySink) Documents(docType string) []Document {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]Document, len(m.docs[docType]))
	copy(out, m.docs[docType])
	return out
}

// Types returns the stored document types, sorted.
func (m *MemorySink) Types() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]string, 0, len(m.docs))
	for t := range m.docs {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// Close implements Sink.
func (m *MemorySink) Close() error { return nil }
