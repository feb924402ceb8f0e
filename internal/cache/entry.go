package cache

import (
	"encoding/json"
	"errors"
	"time"
)

// Entry is a single cached value with its expiry metadata.
type Entry struct {
	// Key is the caller's key, before hashing.
	Key string `json:"key"`

	// Data is the cached JSON document.
	Data json.RawMessage `json:"data"`

	CreatedAt  time.Time `json:"created_at"`
	ExpiresAt  time.Time `json:"expires_at"`
	TTLSeconds int       `json:"ttl_seconds"`
}

// NewEntry creates an entry that expires ttl from now.
func NewEntry(key string, data json.RawMessage, ttl time.Duration) *Entry {
	now := time.Now()
	return &Entry{
		Key:        key,
		Data:       data,
		CreatedAt:  now,
		ExpiresAt:  now.Add(ttl),
		TTLSeconds: int(ttl / time.Second),
	}
}

// IsExpired reports whether the entry is past its expiry time.
func (e *Entry) IsExpired() bool {
	return time.Now().After(e.ExpiresAt)
}

// Age returns the duration since the entry was created.
func (e *Entry) Age() time.Duration {
	return time.Since(e.CreatedAt)
}

// Remaining returns the time left before expiry, or 0.
func (e *Entry) Remaining() time.Duration {
	if d := time.Until(e.ExpiresAt); d > 0 {
		return d
	}
	return 0
}

// Decode unmarshals the cached document into v.
func (e *Entry) Decode(v any) error {
	if len(e.Data) == 0 {
		return errors.New("cache entry has no data")
	}
	return json.Unmarshal(e.Data, v)
}

// MarshalJSON writes timestamps as RFC3339 so cache files stay readable.
func (e *Entry) MarshalJSON() ([]byte, error) {
	type alias Entry
	return json.Marshal(&struct {
		*alias

		CreatedAt string `json:"created_at"`
		ExpiresAt string `json:"expires_at"`
	}{
		alias:     (*alias)(e),
		CreatedAt: e.CreatedAt.Format(time.RFC3339Nano),
		ExpiresAt: e.ExpiresAt.Format(time.RFC3339Nano),
	})
}

// UnmarshalJSON parses the RFC3339 timestamps written by MarshalJSON.
func (e *Entry) UnmarshalJSON(data []byte) error {
	if e == nil {
		return errors.New("cannot unmarshal into nil Entry")
	}
	type alias Entry
	aux := &struct {
		*alias

		CreatedAt string `json:"created_at"`
		ExpiresAt string `json:"expires_at"`
	}{
		alias: (*alias)(e),
	}
	if err := json.Unmarshal(data, aux); err != nil {
		return err
	}

	var err error
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, aux.CreatedAt); err != nil {
		return err
	}
	if e.ExpiresAt, err = time.Parse(time.RFC3339Nano, aux.ExpiresAt); err != nil {
		return err
	}
	return nil
}
