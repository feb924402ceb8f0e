package scaffolder

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rshade/stagehand/internal/engine/batch"
)

func echoAction(id string) *Action {
	return &Action{
		ID: id,
		Schema: Schema{Input: []Field{
			{Name: "message", Type: TypeString, Required: true},
			{Name: "tags", Type: TypeArray, Items: &Field{Type: TypeString}},
		}},
		Handler: func(_ context.Context, actx *ActionContext) error {
			actx.Output("message", actx.Input["message"])
			actx.Output("task", actx.TaskID.String())
			actx.Output("dryRun", actx.DryRun)
			return nil
		},
	}
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoAction("debug:log")))
	require.NoError(t, r.Register(echoAction("catalog:fetch")))

	err := r.Register(echoAction("debug:log"))
	assert.ErrorIs(t, err, ErrDuplicateAction)

	assert.ErrorIs(t, r.Register(&Action{ID: "x"}), ErrInvalidAction)
	assert.ErrorIs(t, r.Register(nil), ErrInvalidAction)

	a, err := r.Get("catalog:fetch")
	require.NoError(t, err)
	assert.Equal(t, "catalog:fetch", a.ID)

	_, err = r.Get("fs:delete")
	assert.ErrorIs(t, err, ErrActionNotFound)

	list := r.List()
	require.Len(t, list, 2)
	assert.Equal(t, "catalog:fetch", list[0].ID)
	assert.Equal(t, "debug:log", list[1].ID)
}

func TestSchema_ValidateInput(t *testing.T) {
	schema := Schema{Input: []Field{
		{Name: "name", Type: TypeString, Required: true},
		{Name: "flag", Type: TypeBoolean},
		{Name: "count", Type: TypeNumber},
		{Name: "refs", Type: TypeArray, Items: &Field{Type: TypeString}},
		{Name: "nested", Type: TypeObject, Properties: []Field{{Name: "inner", Type: TypeString}}},
		{Name: "free", Type: TypeObject},
		{Name: "anything", Type: TypeAny},
	}}

	tests := []struct {
		name    string
		input   batch.Values
		wantErr string
	}{
		{name: "minimal", input: batch.Values{"name": "a"}},
		{
			name: "full",
			input: batch.Values{
				"name": "a", "flag": true, "count": 3, "refs": []any{"x", "y"},
				"nested": map[string]any{"inner": "v"}, "free": map[any]any{"k": 1}, "anything": 1.5,
			},
		},
		{name: "null optional", input: batch.Values{"name": "a", "flag": nil}},
		{name: "missing required", input: batch.Values{}, wantErr: "name is required"},
		{name: "wrong type", input: batch.Values{"name": 1}, wantErr: "name must be string"},
		{name: "bad item", input: batch.Values{"name": "a", "refs": []any{"x", 2}}, wantErr: "refs[1] must be string"},
		{name: "not a list", input: batch.Values{"name": "a", "refs": "x"}, wantErr: "refs must be array"},
		{name: "nested unknown", input: batch.Values{"name": "a", "nested": map[string]any{"other": 1}}, wantErr: "nested.other is not a known property"},
		{name: "unknown key", input: batch.Values{"name": "a", "nmae": "b"}, wantErr: "nmae is not a known property"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := schema.ValidateInput(tt.input)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestExecute(t *testing.T) {
	r := NewRegistry()
	require.NoError(t, r.Register(echoAction("debug:log")))

	t.Run("Outputs", func(t *testing.T) {
		taskID := uuid.New()
		out, err := Execute(context.Background(), r, "debug:log", batch.Values{"message": "hi"}, ExecuteOptions{TaskID: taskID})
		require.NoError(t, err)
		assert.Equal(t, "hi", out["message"])
		assert.Equal(t, taskID.String(), out["task"])
		assert.Equal(t, false, out["dryRun"])
	})

	t.Run("GeneratesTaskID", func(t *testing.T) {
		out, err := Execute(context.Background(), r, "debug:log", batch.Values{"message": "hi"}, ExecuteOptions{})
		require.NoError(t, err)
		_, parseErr := uuid.Parse(out["task"].(string))
		assert.NoError(t, parseErr)
	})

	t.Run("UnknownAction", func(t *testing.T) {
		_, err := Execute(context.Background(), r, "nope", nil, ExecuteOptions{})
		assert.ErrorIs(t, err, ErrActionNotFound)
	})

	t.Run("InvalidInput", func(t *testing.T) {
		_, err := Execute(context.Background(), r, "debug:log", nil, ExecuteOptions{})
		assert.ErrorIs(t, err, ErrInvalidInput)
	})

	t.Run("DryRunUnsupported", func(t *testing.T) {
		_, err := Execute(context.Background(), r, "debug:log", batch.Values{"message": "hi"}, ExecuteOptions{DryRun: true})
		assert.ErrorIs(t, err, ErrDryRunUnsupported)
	})

	t.Run("HandlerError", func(t *testing.T) {
		boom := errors.New("boom")
		require.NoError(t, r.Register(&Action{
			ID:      "fail",
			Handler: func(context.Context, *ActionContext) error { return boom },
		}))

		var buf bytes.Buffer
		logger := zerolog.New(&buf)
		_, err := Execute(context.Background(), r, "fail", nil, ExecuteOptions{Logger: &logger})
		assert.ErrorIs(t, err, boom)
		assert.Contains(t, buf.String(), `"action":"fail"`)
		assert.Contains(t, buf.String(), "action failed")
	})
}

func TestActionContext_WithInput(t *testing.T) {
	var got []string
	actx := &ActionContext{
		TaskID: uuid.New(),
		Input:  batch.Values{"a": 1},
		Output: func(k string, _ any) { got = append(got, "parent:"+k) },
	}
	child := actx.WithInput(batch.Values{"b": 2}, func(k string, _ any) { got = append(got, "child:"+k) })

	child.Output("x", nil)
	actx.Output("y", nil)

	assert.Equal(t, actx.TaskID, child.TaskID)
	assert.Equal(t, batch.Values{"a": 1}, actx.Input)
	assert.Equal(t, batch.Values{"b": 2}, child.Input)
	assert.Equal(t, []string{"child:x", "parent:y"}, got)
}

func TestDescribe(t *testing.T) {
	out := Describe([]Field{
		{Name: "entityRef", Type: TypeString, Description: "ref"},
		{Name: "values", Type: TypeArray, Required: true},
	})
	assert.Equal(t, "entityRef (string): ref\nvalues (array, required)\n", out)
}
