package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLoggerWithPath(t *testing.T) {
	t.Run("FileOutput", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "logs", "stagehand.log")
		result := NewLoggerWithPath(Config{Level: "debug", Format: FormatJSON, Output: OutputFile, File: path})
		t.Cleanup(func() { _ = result.Close() })

		assert.True(t, result.UsingFile)
		assert.False(t, result.FallbackUsed)
		assert.Equal(t, path, result.FilePath)

		result.Logger.Debug().Str("k", "v").Msg("hello")
		require.NoError(t, result.Close())

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), `"message":"hello"`)
	})

	t.Run("FallbackOnEmptyPath", func(t *testing.T) {
		result := NewLoggerWithPath(Config{Output: OutputFile})
		assert.False(t, result.UsingFile)
		assert.True(t, result.FallbackUsed)
		assert.NotEmpty(t, result.FallbackReason)
	})

	t.Run("InvalidLevelDefaultsToInfo", func(t *testing.T) {
		result := NewLoggerWithPath(Config{Level: "loud"})
		assert.Equal(t, zerolog.InfoLevel, result.Logger.GetLevel())
	})
}

func TestFromContext(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf)
	ctx := l.WithContext(context.Background())

	FromContext(ctx).Info().Msg("from ctx")
	assert.Contains(t, buf.String(), "from ctx")

	assert.NotNil(t, FromContext(context.Background()))
	assert.NotNil(t, FromContext(nil)) //nolint:staticcheck // nil context is tolerated
}

func TestTraceHook(t *testing.T) {
	var buf bytes.Buffer
	l := zerolog.New(&buf).Hook(TraceHook{})
	ctx := ContextWithTraceID(context.Background(), "trace-1")

	l.Info().Ctx(ctx).Msg("traced")

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "trace-1", line[TraceIDField])
}

func TestGetOrGenerateTraceID(t *testing.T) {
	ctx := ContextWithTraceID(context.Background(), "fixed")
	assert.Equal(t, "fixed", GetOrGenerateTraceID(ctx))

	generated := GetOrGenerateTraceID(context.Background())
	assert.Len(t, generated, 26)
	assert.NotEqual(t, generated, GetOrGenerateTraceID(context.Background()))
}

func TestComponentLogger(t *testing.T) {
	var buf bytes.Buffer
	l := ComponentLogger(zerolog.New(&buf), "batch")
	l.Info().Msg("x")
	assert.Contains(t, buf.String(), `"component":"batch"`)
}
