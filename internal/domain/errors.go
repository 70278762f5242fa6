package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedRecord marks an event whose structure cannot be flattened:
	// a missing or empty categories/sources/geometries sequence, or a field
	// holding the wrong kind of value.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrMissingField marks an event object, or one of its nested objects,
	// that lacks a required key.
	ErrMissingField = errors.New("missing field")
)

// RecordError reports why a single raw event could not be normalized.
// It unwraps to ErrMalformedRecord or ErrMissingField.
type RecordError struct {
	CategoryID string // category the event was fetched for
	Index      int    // position within the response's events array
	EventID    string // empty when the id itself is unreadable
	Field      string // path of the offending field, e.g. "geometries[0].date"
	Reason     string
	Err        error
}

func (e *RecordError) Error() string {
	id := e.EventID
	if id == "" {
		id = "<unknown>"
	}
	msg := fmt.Sprintf("event %s (category %s, index %d): %v: %s", id, e.CategoryID, e.Index, e.Err, e.Field)
	if e.Reason != "" {
		msg += " " + e.Reason
	}
	return msg
}

func (e *RecordError) Unwrap() error { return e.Err }

// fieldError is the context-free failure raised while walking one event;
// normalizeEvent attaches the event position and id.
type fieldError struct {
	field  string
	reason string
	err    error
}

func (e *fieldError) Error() string { return fmt.Sprintf("%v: %s %s", e.err, e.field, e.reason) }

func missing(field string) *fieldError {
	return &fieldError{field: field, err: ErrMissingField}
}

func malformed(field, reason string) *fieldError {
	return &fieldError{field: field, reason: reason, err: ErrMalformedRecord}
}
