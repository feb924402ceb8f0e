package scaffolder

import (
	"errors"
	"fmt"
	"strings"

	"github.com/rshade/stagehand/internal/engine/batch"
)

// ErrInvalidInput is returned when action input does not match the schema.
var ErrInvalidInput = errors.New("invalid action input")

// FieldType is the JSON type of a schema field.
type FieldType string

// Field types.
const (
	TypeString  FieldType = "string"
	TypeBoolean FieldType = "boolean"
	TypeNumber  FieldType = "number"
	TypeArray   FieldType = "array"
	TypeObject  FieldType = "object"
	TypeAny     FieldType = "any"
)

// Field describes one property.
type Field struct {
	Name        string
	Type        FieldType
	Description string
	Required    bool

	// Items describes array elements.
	Items *Field

	// Properties describes object members. An object without properties accepts
	// any keys.
	Properties []Field
}

// Schema holds the input and output shape of an action.
type Schema struct {
	Input  []Field
	Output []Field
}

// ValidateInput checks input against s.Input. Unknown keys are rejected so that
// typos in templates surface early.
func (s Schema) ValidateInput(input batch.Values) error {
	if err := validateObject("", s.Input, input); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidInput, err)
	}
	return nil
}

func validateObject(path string, fields []Field, value map[string]any) error {
	known := make(map[string]bool, len(fields))
	for _, f := range fields {
		known[f.Name] = true
		v, ok := value[f.Name]
		if !ok || v == nil {
			if f.Required {
				return fmt.Errorf("%s is required", join(path, f.Name))
			}
			continue
		}
		if err := validateValue(join(path, f.Name), f, v); err != nil {
			return err
		}
	}
	for k := range value {
		if !known[k] {
			return fmt.Errorf("%s is not a known property", join(path, k))
		}
	}
	return nil
}

func validateValue(path string, f Field, v any) error {
	switch f.Type {
	case TypeAny, "":
		return nil
	case TypeString:
		if _, ok := v.(string); !ok {
			return typeError(path, f.Type, v)
		}
	case TypeBoolean:
		if _, ok := v.(bool); !ok {
			return typeError(path, f.Type, v)
		}
	case TypeNumber:
		switch v.(type) {
		case int, int64, float64, uint64:
		default:
			return typeError(path, f.Type, v)
		}
	case TypeArray:
		items, ok := AsSlice(v)
		if !ok {
			return typeError(path, f.Type, v)
		}
		if f.Items == nil {
			return nil
		}
		for i, item := range items {
			if err := validateValue(fmt.Sprintf("%s[%d]", path, i), *f.Items, item); err != nil {
				return err
			}
		}
	case TypeObject:
		obj, ok := AsObject(v)
		if !ok {
			return typeError(path, f.Type, v)
		}
		if len(f.Properties) > 0 {
			return validateObject(path, f.Properties, obj)
		}
	default:
		return fmt.Errorf("%s has unsupported schema type %q", path, f.Type)
	}
	return nil
}

func typeError(path string, want FieldType, got any) error {
	return fmt.Errorf("%s must be %s, got %T", path, want, got)
}

func join(path, name string) string {
	if path == "" {
		return name
	}
	return path + "." + name
}

// AsSlice accepts the list shapes produced by the JSON and YAML decoders.
func AsSlice(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []string:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case []map[string]any:
		out := make([]any, len(s))
		for i := range s {
			out[i] = s[i]
		}
		return out, true
	case []batch.Values:
		out := make([]any, len(s))
		for i := range s {
			out[i] = map[string]any(s[i])
		}
		return out, true
	}
	return nil, false
}

// AsObject accepts the map shapes produced by the JSON and YAML decoders.
func AsObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case batch.Values:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	}
	return nil, false
}

// Describe renders the field list as "name (type, required)" lines for help output.
func Describe(fields []Field) string {
	var b strings.Builder
	for _, f := range fields {
		b.WriteString(f.Name)
		b.WriteString(" (")
		b.WriteString(string(f.Type))
		if f.Required {
			b.WriteString(", required")
		}
		b.WriteString(")")
		if f.Description != "" {
			b.WriteString(": ")
			b.WriteString(f.Description)
		}
		b.WriteString("\n")
	}
	return b.String()
}
