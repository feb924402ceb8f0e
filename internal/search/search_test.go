package search

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/rshade/stagehand/internal/config"
	"github.com/rshade/stagehand/internal/scheduler"
)

type staticFactory struct {
	docType string
	docs    []Document
	err     error
}

func (f *staticFactory) Type() string { return f.docType }

func (f *staticFactory) GetCollator(context.Context) ([]Document, error) {
	return f.docs, f.err
}

// recordingRunner runs every invocation immediately.
type recordingRunner struct {
	ids []string
}

func (r *recordingRunner) Run(ctx context.Context, inv scheduler.TaskInvocation) error {
	r.ids = append(r.ids, inv.ID)
	return inv.Fn(ctx)
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func newBuilder(t *testing.T, reg *IndexRegistry, sink Sink) *IndexBuilder {
	t.Helper()
	logger := zerolog.Nop()
	return NewIndexBuilder(reg, sink, &logger)
}

func TestDocument(t *testing.T) {
	d := NewDocument("Getting started", "Install it", "/docs/default/component/svc/")
	d["kind"] = "component"
	d["namespace"] = "default"

	require.NoError(t, d.Validate())
	assert.Equal(t, "Getting started", d.Title())
	assert.Equal(t, []string{"kind", "namespace"}, d.Extra())

	t.Run("MissingLocation", func(t *testing.T) {
		err := NewDocument("t", "x", "").Validate()
		assert.ErrorIs(t, err, ErrInvalidDocument)
	})

	t.Run("NonStringText", func(t *testing.T) {
		d := Document{FieldTitle: "t", FieldText: 3, FieldLocation: "/l"}
		assert.ErrorIs(t, d.Validate(), ErrInvalidDocument)
	})

	t.Run("EmptyTextAllowed", func(t *testing.T) {
		assert.NoError(t, NewDocument("t", "", "/l").Validate())
	})
}

func TestIndexRegistry(t *testing.T) {
	reg := NewIndexRegistry()
	runner := &recordingRunner{}

	require.NoError(t, reg.AddCollator(RegisterCollatorParameters{Schedule: runner, Factory: &staticFactory{docType: "techdocs"}}))
	require.NoError(t, reg.AddCollator(RegisterCollatorParameters{Schedule: runner, Factory: &staticFactory{docType: "software-catalog"}}))

	err := reg.AddCollator(RegisterCollatorParameters{Schedule: runner, Factory: &staticFactory{docType: "techdocs"}})
	assert.ErrorIs(t, err, ErrDuplicateCollator)

	assert.ErrorIs(t, reg.AddCollator(RegisterCollatorParameters{Factory: &staticFactory{docType: "x"}}), ErrInvalidCollator)
	assert.ErrorIs(t, reg.AddCollator(RegisterCollatorParameters{Schedule: runner, Factory: &staticFactory{}}), ErrInvalidCollator)

	collators := reg.Collators()
	require.Len(t, collators, 2)
	assert.Equal(t, "techdocs", collators[0].Factory.Type())
	assert.Equal(t, "software-catalog", collators[1].Factory.Type())
}

func TestIndexBuilder_Build(t *testing.T) {
	reg := NewIndexRegistry()
	runner := &recordingRunner{}
	require.NoError(t, reg.AddCollator(RegisterCollatorParameters{
		Schedule: runner,
		Factory: &staticFactory{docType: "techdocs", docs: []Document{
			NewDocument("Intro", "hello", "/docs/default/component/a/"),
			{FieldTitle: "broken"},
		}},
	}))
	sink := NewMemorySink()

	require.NoError(t, newBuilder(t, reg, sink).Build(context.Background()))

	assert.Equal(t, []string{"search_index_techdocs"}, runner.ids)
	docs := sink.Documents("techdocs")
	require.Len(t, docs, 1)
	assert.Equal(t, "Intro", docs[0].Title())
}

func TestIndexBuilder_CollateAll(t *testing.T) {
	reg := NewIndexRegistry()
	runner := &recordingRunner{}
	cause := errors.New("catalog unavailable")
	require.NoError(t, reg.AddCollator(RegisterCollatorParameters{Schedule: runner, Factory: &staticFactory{docType: "broken", err: cause}}))
	require.NoError(t, reg.AddCollator(RegisterCollatorParameters{Schedule: runner, Factory: &staticFactory{
		docType: "techdocs",
		docs:    []Document{NewDocument("a", "", "/a"), NewDocument("b", "", "/b")},
	}}))
	sink := NewMemorySink()

	results, err := newBuilder(t, reg, sink).CollateAll(context.Background())
	require.ErrorIs(t, err, cause)
	require.Len(t, results, 2)
	assert.Equal(t, 2, results[1].Documents)
	assert.Equal(t, []string{"techdocs"}, sink.Types())
	assert.Empty(t, runner.ids)
}

func TestMemorySink_Replace(t *testing.T) {
	sink := NewMemorySink()
	ctx := context.Background()

	require.NoError(t, sink.Replace(ctx, "techdocs", []Document{NewDocument("a", "", "/a"), NewDocument("b", "", "/b")}))
	require.NoError(t, sink.Replace(ctx, "techdocs", []Document{NewDocument("c", "", "/c")}))

	docs := sink.Documents("techdocs")
	require.Len(t, docs, 1)
	assert.Equal(t, "c", docs[0].Title())
	assert.Empty(t, sink.Documents("other"))
	assert.NoError(t, sink.Close())
}

func TestKafkaSink_Replace(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 2 || string(msgs[0].Key) != "/a" {
			return false
		}
		var d Document
		if err := json.Unmarshal(msgs[1].Value, &d); err != nil {
			return false
		}
		return d.Title() == "b" &&
			msgs[0].Headers[0].Key == HeaderDocumentType &&
			string(msgs[0].Headers[0].Value) == "techdocs"
	})).Return(nil).Once()
	w.On("Close").Return(nil).Once()

	sink := NewKafkaSinkWithWriter(w)
	require.NoError(t, sink.Replace(context.Background(), "techdocs", []Document{NewDocument("a", "", "/a"), NewDocument("b", "", "/b")}))
	require.NoError(t, sink.Replace(context.Background(), "techdocs", nil))
	require.NoError(t, sink.Close())
	w.AssertExpectations(t)
}

func TestKafkaSink_WriteError(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available"))

	err := NewKafkaSinkWithWriter(w).Replace(context.Background(), "techdocs", []Document{NewDocument("a", "", "/a")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "publishing 1 techdocs documents")
}

func TestNewSinkFromConfig(t *testing.T) {
	ctx := context.Background()

	sink, err := NewSinkFromConfig(ctx, config.SinkConfig{Type: config.SinkMemory})
	require.NoError(t, err)
	assert.IsType(t, &MemorySink{}, sink)

	sink, err = NewSinkFromConfig(ctx, config.SinkConfig{Type: config.SinkKafka, Kafka: config.KafkaConfig{
		Brokers: []string{"localhost:9092"}, Topic: "docs",
	}})
	require.NoError(t, err)
	assert.IsType(t, &KafkaSink{}, sink)
	assert.NoError(t, sink.Close())

	sink, err = NewSinkFromConfig(ctx, config.SinkConfig{Type: config.SinkS3, S3: config.S3SinkConfig{
		Endpoint: "localhost:9000", Bucket: "stagehand", Prefix: "idx",
	}})
	require.NoError(t, err)
	assert.Equal(t, "idx/techdocs.json", sink.(*S3Sink).ObjectName("techdocs"))

	_, err = NewSinkFromConfig(ctx, config.SinkConfig{Type: config.SinkKafka})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)

	_, err = NewSinkFromConfig(ctx, config.SinkConfig{Type: "elastic"})
	assert.ErrorIs(t, err, config.ErrInvalidConfig)
}

func TestDocumentRows(t *testing.T) {
	rows, err := documentRows("techdocs", []Document{NewDocument("a", "body", "/a")}, testTime)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "techdocs", rows[0][0])
	assert.Equal(t, "/a", rows[0][1])
	assert.JSONEq(t, `{"title":"a","text":"body","location":"/a"}`, string(rows[0][4].([]byte)))
}
