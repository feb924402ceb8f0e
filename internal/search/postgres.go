package search

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/rshade/stagehand/internal/config"
)

// documentColumns is the column order used for COPY.
//
//nolint:gochecknoglobals // read-only column list
var documentColumns = []string{"doc_type", "location", "title", "text", "body", "indexed_at"}

// PostgresSink stores documents in a single table, one row per document.
type PostgresSink struct {
	pool  *pgxpool.Pool
	table pgx.Identifier
}

// NewPostgresSink opens a pool for cfg.DSN and creates the table if needed.
func NewPostgresSink(ctx context.Context, cfg config.PostgresConfig) (*PostgresSink, error) {
	if cfg.DSN == "" {
		return nil, fmt.Errorf("%w: postgres sink requires dsn", config.ErrInvalidConfig)
	}
	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("connecting to postgres: %w", err)
	}
	sink := NewPostgresSinkWithPool(pool, cfg.Table)
	if err = sink.EnsureSchema(ctx); err != nil {
		pool.Close()
		return nil, err
	}
	return sink, nil
}

// NewPostgresSinkWithPool uses an existing pool. An empty table name uses
// search_documents.
func NewPostgresSinkWithPool(pool *pgxpool.Pool, table string) *PostgresSink {
	if table == "" {
		table = "search_documents"
	}
	return &PostgresSink{pool: pool, table: pgx.Identifier{table}}
}

// EnsureSchema creates the documents table and its type index.
func (p *PostgresSink) EnsureSchema(ctx context.Context) error {
	name := p.table.Sanitize()
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS ` + name + ` (
			doc_type   TEXT NOT NULL,
			location   TEXT NOT NULL,
			title      TEXT NOT NULL,
			text       TEXT NOT NULL,
			body       JSONB NOT NULL,
			indexed_at TIMESTAMPTZ NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS ` + pgx.Identifier{p.table[0] + "_doc_type_idx"}.Sanitize() +
			` ON ` + name + ` (doc_type)`,
	}
	for _, stmt := range stmts {
		if _, err := p.pool.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("creating %s: %w", name, err)
		}
	}
	return nil
}

// Replace implements Sink. Old rows of docType are deleted and the new ones
// copied in within one transaction.
func (p *PostgresSink) Replace(ctx context.Context, docType string, docs []Document) error {
	rows, err := documentRows(docType, docs, time.Now().UTC())
	if err != nil {
		return err
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if _, err = tx.Exec(ctx, `DELETE FROM `+p.table.Sanitize()+` WHERE doc_type = $1`, docType); err != nil {
		return fmt.Errorf("deleting %s documents: %w", docType, err)
	}
	if len(rows) > 0 {
		if _, err = tx.CopyFrom(ctx, p.table, documentColumns, pgx.CopyFromRows(rows)); err != nil {
			return fmt.Errorf("copying %s documents: %w", docType, err)
		}
	}
	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("committing %s documents: %w", docType, err)
	}
	return nil
}

// Close implements Sink.
func (p *PostgresSink) Close() error {
	p.pool.Close()
	return nil
}

func documentRows(docType string, docs []Document, at time.Time) ([][]any, error) {
	rows := make([][]any, 0, len(docs))
	for _, d := range docs {
		body, err := json.Marshal(d)
		if err != nil {
			return nil, fmt.Errorf("encoding document %s: %w", d.Location(), err)
		}
		rows = append(rows, []any{docType, d.Location(), d.Title(), d.Text(), body, at})
	}
	return rows, nil
}
