package catalog

import "strings"

// Well-known annotations.
const (
	AnnotationTechDocsRef = "backstage.io/techdocs-ref"
	AnnotationViewURL     = "backstage.io/view-url"
)

// Entity is a catalog entity envelope. Spec is kept as a generic map since its
// shape depends on Kind.
type Entity struct {
	APIVersion string         `json:"apiVersion" yaml:"apiVersion"`
	Kind       string         `json:"kind" yaml:"kind"`
	Metadata   EntityMeta     `json:"metadata" yaml:"metadata"`
	Spec       map[string]any `json:"spec,omitempty" yaml:"spec,omitempty"`
	Relations  []Relation     `json:"relations,omitempty" yaml:"relations,omitempty"`
}

// EntityMeta is the metadata block shared by all kinds.
type EntityMeta struct {
	UID         string            `json:"uid,omitempty" yaml:"uid,omitempty"`
	Name        string            `json:"name" yaml:"name"`
	Namespace   string            `json:"namespace,omitempty" yaml:"namespace,omitempty"`
	Title       string            `json:"title,omitempty" yaml:"title,omitempty"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Labels      map[string]string `json:"labels,omitempty" yaml:"labels,omitempty"`
	Annotations map[string]string `json:"annotations,omitempty" yaml:"annotations,omitempty"`
	Tags        []string          `json:"tags,omitempty" yaml:"tags,omitempty"`
}

// Relation is a directed edge to another entity.
type Relation struct {
	Type      string `json:"type" yaml:"type"`
	TargetRef string `json:"targetRef" yaml:"targetRef"`
}

// Ref returns the entity's normalized reference.
func (e *Entity) Ref() Ref {
	return Ref{Kind: e.Kind, Namespace: e.Metadata.Namespace, Name: e.Metadata.Name}.normalize()
}

// Annotation returns the named annotation, or "".
func (e *Entity) Annotation(name string) string {
	return e.Metadata.Annotations[name]
}

// SpecString returns spec[key] when it is a string.
func (e *Entity) SpecString(key string) string {
	if s, ok := e.Spec[key].(string); ok {
		return s
	}
	return ""
}

// Owner returns spec.owner, the convention for Component, API, System and friends.
func (e *Entity) Owner() string {
	return strings.TrimSpace(e.SpecString("owner"))
}
