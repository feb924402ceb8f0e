package config

import (
	"fmt"
	"sort"
	"strings"
)

// Reader gives modules read access to the raw configuration tree using dotted
// paths such as "search.collators.techdocs.schedule". Required accessors fail
// with ErrMissingConfig, type mismatches with ErrInvalidConfig.
type Reader struct {
	data   map[string]any
	prefix string
}

// NewReader wraps a YAML mapping. A nil mapping reads as empty.
func NewReader(data map[string]any) *Reader {
	if data == nil {
		data = map[string]any{}
	}
	return &Reader{data: data}
}

// Has reports whether a value exists at path.
func (r *Reader) Has(path string) bool {
	_, ok := r.Get(path)
	return ok
}

// Get returns the value at path.
func (r *Reader) Get(path string) (any, bool) {
	var node any = r.data
	for _, key := range strings.Split(path, ".") {
		m, ok := asMap(node)
		if !ok {
			return nil, false
		}
		node, ok = m[key]
		if !ok {
			return nil, false
		}
	}
	if node == nil {
		return nil, false
	}
	return node, true
}

// Keys returns the sorted keys of the mapping this reader wraps.
func (r *Reader) Keys() []string {
	keys := make([]string, 0, len(r.data))
	for k := range r.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Data returns the mapping this reader wraps.
func (r *Reader) Data() map[string]any {
	return r.data
}

// GetConfig returns a reader scoped to the mapping at path.
func (r *Reader) GetConfig(path string) (*Reader, error) {
	v, ok := r.Get(path)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrMissingConfig, r.full(path))
	}
	m, ok := asMap(v)
	if !ok {
		return nil, fmt.Errorf("%w: %s: expected object, got %T", ErrInvalidConfig, r.full(path), v)
	}
	return &Reader{data: m, prefix: r.full(path)}, nil
}

// OptionalConfig returns the reader at path when present.
func (r *Reader) OptionalConfig(path string) (*Reader, bool, error) {
	if !r.Has(path) {
		return nil, false, nil
	}
	sub, err := r.GetConfig(path)
	if err != nil {
		return nil, false, err
	}
	return sub, true, nil
}

// String returns the required string at path.
func (r *Reader) String(path string) (string, error) {
	v, ok := r.Get(path)
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrMissingConfig, r.full(path))
	}
	s, ok := v.(string)
	if !ok {
		return "", fmt.Errorf("%w: %s: expected string, got %T", ErrInvalidConfig, r.full(path), v)
	}
	return s, nil
}

// OptionalString returns the string at path or def when absent.
func (r *Reader) OptionalString(path, def string) (string, error) {
	if !r.Has(path) {
		return def, nil
	}
	return r.String(path)
}

// OptionalBool returns the boolean at path or def when absent.
func (r *Reader) OptionalBool(path string, def bool) (bool, error) {
	v, ok := r.Get(path)
	if !ok {
		return def, nil
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("%w: %s: expected boolean, got %T", ErrInvalidConfig, r.full(path), v)
	}
	return b, nil
}

// OptionalInt returns the integer at path or def when absent.
func (r *Reader) OptionalInt(path string, def int) (int, error) {
	v, ok := r.Get(path)
	if !ok {
		return def, nil
	}
	switch n := v.(type) {
	case int:
		return n, nil
	case int64:
		return int(n), nil
	case float64:
		if n == float64(int(n)) {
			return int(n), nil
		}
	}
	return 0, fmt.Errorf("%w: %s: expected integer, got %v", ErrInvalidConfig, r.full(path), v)
}

// Path returns the absolute dotted path this reader is rooted at.
func (r *Reader) Path() string {
	return r.prefix
}

func (r *Reader) full(path string) string {
	if r.prefix == "" {
		return path
	}
	return r.prefix + "." + path
}

func asMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}
