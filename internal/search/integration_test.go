package search

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/rshade/stagehand/internal/config"
)

//nolint:gochecknoglobals // fixed test clock
var testTime = time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

func TestPostgresSink_Integration(t *testing.T) {
	dsn := os.Getenv("STAGEHAND_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("STAGEHAND_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()

	sink, err := NewPostgresSink(ctx, config.PostgresConfig{DSN: dsn, Table: "search_documents_test"})
	require.NoError(t, err)
	t.Cleanup(func() {
		_, _ = sink.pool.Exec(ctx, `DROP TABLE IF EXISTS search_documents_test`)
		_ = sink.Close()
	})

	require.NoError(t, sink.Replace(ctx, "techdocs", []Document{NewDocument("a", "", "/a"), NewDocument("b", "", "/b")}))
	require.NoError(t, sink.Replace(ctx, "techdocs", []Document{NewDocument("c", "", "/c")}))

	var count int
	require.NoError(t, sink.pool.QueryRow(ctx,
		`SELECT count(*) FROM search_documents_test WHERE doc_type = $1`, "techdocs").Scan(&count))
	require.Equal(t, 1, count)
}

func TestS3Sink_Integration(t *testing.T) {
	endpoint := os.Getenv("STAGEHAND_TEST_S3_ENDPOINT")
	if endpoint == "" {
		t.Skip("STAGEHAND_TEST_S3_ENDPOINT not set")
	}
	ctx := context.Background()

	sink, err := NewS3Sink(ctx, config.S3SinkConfig{
		Endpoint:  endpoint,
		AccessKey: os.Getenv("STAGEHAND_TEST_S3_ACCESS_KEY"),
		SecretKey: os.Getenv("STAGEHAND_TEST_S3_SECRET_KEY"),
		Bucket:    "stagehand-test",
		Prefix:    "it",
	})
	require.NoError(t, err)
	require.NoError(t, sink.Replace(ctx, "techdocs", []Document{NewDocument("a", "", "/a")}))
}
