// Package search collects indexable documents from registered collators on a
// schedule and writes them to a document sink. It does no querying or ranking.
package search

import (
	"errors"
	"fmt"
	"sort"
)

// Fields every document carries.
const (
	FieldTitle    = "title"
	FieldText     = "text"
	FieldLocation = "location"

	// FieldAuthorization holds {"resourceRef": "<entity ref>"} for documents
	// that inherit permissions from a catalog entity.
	FieldAuthorization = "authorization"
)

// ErrInvalidDocument is returned for documents missing a required field.
var ErrInvalidDocument = errors.New("invalid search document")

// Document is an indexable document: title, text and location plus whatever
// extra fields the collator adds.
type Document map[string]any

// NewDocument creates a document with the required fields set.
func NewDocument(title, text, location string) Document {
	return Document{FieldTitle: title, FieldText: text, FieldLocation: location}
}

// Title returns the title field.
func (d Document) Title() string { return d.str(FieldTitle) }

// Text returns the text field.
func (d Document) Text() string { return d.str(FieldText) }

// Location returns the location field.
func (d Document) Location() string { return d.str(FieldLocation) }

// Validate checks that title, text and location are strings and that title and
// location are set.
func (d Document) Validate() error {
	for _, f := range []string{FieldTitle, FieldText, FieldLocation} {
		if _, ok := d[f].(string); !ok {
			return fmt.Errorf("%w: %s must be a string", ErrInvalidDocument, f)
		}
	}
	if d.Title() == "" || d.Location() == "" {
		return fmt.Errorf("%w: title and location are required", ErrInvalidDocument)
	}
	return nil
}

// Extra returns the non-required field names in sorted order.
func (d Document) Extra() []string {
	var keys []string
	for k := range d {
		switch k {
		case FieldTitle, FieldText, FieldLocation:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func (d Document) str(key string) string {
	s, _ := d[key].(string)
	return s
}
