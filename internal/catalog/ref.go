package catalog

import (
	"errors"
	"fmt"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// DefaultNamespace is used when neither the ref nor the defaults name one.
const DefaultNamespace = "default"

// ErrInvalidRef is returned for references that cannot be parsed.
var ErrInvalidRef = errors.New("invalid entity reference")

// Ref identifies an entity as kind:namespace/name.
type Ref struct {
	Kind      string
	Namespace string
	Name      string
}

// Defaults fill in the parts a short reference leaves out.
type Defaults struct {
	Kind      string
	Namespace string
}

// ParseRef parses "[kind:][namespace/]name". Kind and namespace are lower-cased;
// name keeps its case since lookups are case-insensitive server side.
func ParseRef(ref string, defaults Defaults) (Ref, error) {
	raw := strings.TrimSpace(ref)
	if raw == "" {
		return Ref{}, fmt.Errorf("%w: empty reference", ErrInvalidRef)
	}

	var r Ref
	rest := raw
	if kind, after, ok := strings.Cut(rest, ":"); ok {
		r.Kind = kind
		rest = after
	} else {
		r.Kind = defaults.Kind
	}
	if ns, after, ok := strings.Cut(rest, "/"); ok {
		r.Namespace = ns
		rest = after
	} else {
		r.Namespace = defaults.Namespace
	}
	r.Name = rest

	switch {
	case r.Kind == "":
		return Ref{}, fmt.Errorf("%w: %q has missing or empty kind", ErrInvalidRef, raw)
	case r.Name == "":
		return Ref{}, fmt.Errorf("%w: %q has missing or empty name", ErrInvalidRef, raw)
	case strings.ContainsAny(r.Name, ":/"):
		return Ref{}, fmt.Errorf("%w: %q has a malformed name", ErrInvalidRef, raw)
	}
	if r.Namespace == "" {
		r.Namespace = DefaultNamespace
	}
	return r.normalize(), nil
}

// NormalizeRef is ParseRef followed by String.
func NormalizeRef(ref string, defaults Defaults) (string, error) {
	r, err := ParseRef(ref, defaults)
	if err != nil {
		return "", err
	}
	return r.String(), nil
}

func (r Ref) normalize() Ref {
	if r.Namespace == "" {
		r.Namespace = DefaultNamespace
	}
	// A Caser keeps state, so one is built per call.
	lower := cases.Lower(language.AmericanEnglish)
	r.Kind = lower.String(r.Kind)
	r.Namespace = lower.String(r.Namespace)
	return r
}

// String renders kind:namespace/name.
func (r Ref) String() string {
	return r.Kind + ":" + r.Namespace + "/" + r.Name
}
