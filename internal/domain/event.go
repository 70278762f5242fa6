package domain

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
)

// Category IDs reported on by default.
const (
	CategoryWildfires    = "8"
	CategorySevereStorms = "10"
	CategoryLandslides   = "14"
)

// DefaultCategories lists the categories fetched when none are configured.
var DefaultCategories = []string{CategoryWildfires, CategorySevereStorms, CategoryLandslides}

// RawEvent is one event object exactly as decoded from the API. Numbers are
// kept as json.Number so their literal text survives into the row.
type RawEvent map[string]any

// Response is the decoded body of one category fetch.
type Response struct {
	CategoryID string
	Events     []RawEvent
}

// Row is the flat twelve-field record persisted and exported per event.
// Closed is nil for events the API reports as still open.
type Row struct {
	EventID          string  `json:"event_id"`
	EventTitle       string  `json:"event_title"`
	EventDescription string  `json:"event_description"`
	EventLink        string  `json:"event_link"`
	Closed           *string `json:"closed"`
	CategoryID       int64   `json:"category_id"`
	CategoryTitle    string  `json:"category_title"`
	SourceID         string  `json:"source_id"`
	SourceURL        string  `json:"source_url"`
	Date             string  `json:"date"`
	GeometryType     string  `json:"geometry_type"`
	Coordinates      string  `json:"coordinates"`
}

// Columns is the table and worksheet column order for a Row.
var Columns = []string{
	"event_id",
	"event_title",
	"event_description",
	"event_link",
	"closed",
	"category_id",
	"category_title",
	"source_id",
	"source_url",
	"date",
	"geometry_type",
	"coordinates",
}

// Values returns the row fields in Columns order. A nil Closed is returned
// as an untyped nil so database drivers write NULL.
func (r Row) Values() []any {
	var closed any
	if r.Closed != nil {
		closed = *r.Closed
	}
	return []any{
		r.EventID,
		r.EventTitle,
		r.EventDescription,
		r.EventLink,
		closed,
		r.CategoryID,
		r.CategoryTitle,
		r.SourceID,
		r.SourceURL,
		r.Date,
		r.GeometryType,
		r.Coordinates,
	}
}

// DecodeResponse reads a category response body. The top-level "events" key
// is required; an empty array is valid.
func DecodeResponse(categoryID string, r io.Reader) (Response, error) {
	var body struct {
		Events *[]RawEvent `json:"events"`
	}

	dec := json.NewDecoder(r)
	dec.UseNumber()
	if err := dec.Decode(&body); err != nil {
		return Response{}, fmt.Errorf("decode category %s response: %w", categoryID, err)
	}
	if body.Events == nil {
		return Response{}, fmt.Errorf("decode category %s response: %w", categoryID, errNoEvents)
	}

	return Response{CategoryID: categoryID, Events: *body.Events}, nil
}

var errNoEvents = errors.New(`missing "events" array`)
