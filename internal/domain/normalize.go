package domain

import (
	"encoding/json"
	"fmt"
	"math"
)

// Strategy selects how multi-valued categories, sources and geometries are
// flattened into rows.
type Strategy string

const (
	// FirstOnly keeps only the first element of each sequence: one row per event.
	FirstOnly Strategy = "first"
	// AllVariants emits one row per category × source × geometry combination.
	AllVariants Strategy = "all"
)

// ParseStrategy validates a configured extraction strategy.
func ParseStrategy(s string) (Strategy, error) {
	switch Strategy(s) {
	case FirstOnly, AllVariants:
		return Strategy(s), nil
	default:
		return "", fmt.Errorf("unknown extraction strategy %q (want %q or %q)", s, FirstOnly, AllVariants)
	}
}

// ErrorPolicy decides what Normalize does with an event it cannot flatten.
type ErrorPolicy string

const (
	// AbortOnError stops at the first bad event and returns its RecordError.
	AbortOnError ErrorPolicy = "abort"
	// SkipOnError drops bad events and collects their errors in the result.
	SkipOnError ErrorPolicy = "skip"
)

// ParseErrorPolicy validates a configured record error policy.
func ParseErrorPolicy(s string) (ErrorPolicy, error) {
	switch ErrorPolicy(s) {
	case AbortOnError, SkipOnError:
		return ErrorPolicy(s), nil
	default:
		return "", fmt.Errorf("unknown record error policy %q (want %q or %q)", s, AbortOnError, SkipOnError)
	}
}

// NormalizeOptions tunes Normalize. The zero value means ExactMonth,
// FirstOnly and AbortOnError.
type NormalizeOptions struct {
	Filter   MonthFilter
	Strategy Strategy
	Policy   ErrorPolicy
}

// NormalizeResult is the outcome of one Normalize call.
type NormalizeResult struct {
	Rows     []Row
	Scanned  int            // raw events inspected
	Rejected []*RecordError // populated under SkipOnError only
}

// Normalize flattens every event of every response into rows and keeps the
// rows whose geometry date passes the month filter. Output order follows
// the responses, then each response's events.
//
// Under AbortOnError the first bad event ends the call with a *RecordError
// and the rows gathered so far.
func Normalize(responses []Response, targetMonth string, opts NormalizeOptions) (NormalizeResult, error) {
	filter := opts.Filter
	if filter == nil {
		filter = ExactMonth
	}

	var res NormalizeResult
	for _, resp := range responses {
		for i, raw := range resp.Events {
			res.Scanned++

			rows, ferr := flattenEvent(raw, opts.Strategy)
			if ferr != nil {
				rerr := &RecordError{
					CategoryID: resp.CategoryID,
					Index:      i,
					EventID:    eventID(raw),
					Field:      ferr.field,
					Reason:     ferr.reason,
					Err:        ferr.err,
				}
				if opts.Policy == SkipOnError {
					res.Rejected = append(res.Rejected, rerr)
					continue
				}
				return res, rerr
			}

			for _, row := range rows {
				if filter(row, targetMonth) {
					res.Rows = append(res.Rows, row)
				}
			}
		}
	}
	return res, nil
}

// eventID reads the id of an event that failed to flatten, or "" when the
// id itself is unreadable.
func eventID(raw RawEvent) string {
	id, ferr := textField(raw, "", "id")
	if ferr != nil {
		return ""
	}
	return id
}

// flattenEvent builds the unfiltered rows for one event.
func flattenEvent(raw RawEvent, strategy Strategy) ([]Row, *fieldError) {
	head, ferr := eventHead(raw)
	if ferr != nil {
		return nil, ferr
	}

	categories, ferr := sequence(raw, "categories", strategy)
	if ferr != nil {
		return nil, ferr
	}
	sources, ferr := sequence(raw, "sources", strategy)
	if ferr != nil {
		return nil, ferr
	}
	geometries, ferr := sequence(raw, "geometries", strategy)
	if ferr != nil {
		return nil, ferr
	}

	rows := make([]Row, 0, len(categories)*len(sources)*len(geometries))
	for ci, cat := range categories {
		prefix := fmt.Sprintf("categories[%d].", ci)
		catID, ferr := integerField(cat, prefix, "id")
		if ferr != nil {
			return nil, ferr
		}
		catTitle, ferr := textField(cat, prefix, "title")
		if ferr != nil {
			return nil, ferr
		}

		for si, src := range sources {
			prefix := fmt.Sprintf("sources[%d].", si)
			srcID, ferr := textField(src, prefix, "id")
			if ferr != nil {
				return nil, ferr
			}
			srcURL, ferr := textField(src, prefix, "url")
			if ferr != nil {
				return nil, ferr
			}

			for gi, geo := range geometries {
				prefix := fmt.Sprintf("geometries[%d].", gi)
				date, ferr := textField(geo, prefix, "date")
				if ferr != nil {
					return nil, ferr
				}
				geoType, ferr := textField(geo, prefix, "type")
				if ferr != nil {
					return nil, ferr
				}
				coords, ferr := coordinatesField(geo, prefix, "coordinates")
				if ferr != nil {
					return nil, ferr
				}

				row := head
				row.CategoryID = catID
				row.CategoryTitle = catTitle
				row.SourceID = srcID
				row.SourceURL = srcURL
				row.Date = date
				row.GeometryType = geoType
				row.Coordinates = coords
				rows = append(rows, row)
			}
		}
	}
	return rows, nil
}

// eventHead extracts the five top-level fields.
func eventHead(raw RawEvent) (Row, *fieldError) {
	var (
		row  Row
		ferr *fieldError
	)
	if row.EventID, ferr = textField(raw, "", "id"); ferr != nil {
		return Row{}, ferr
	}
	if row.EventTitle, ferr = textField(raw, "", "title"); ferr != nil {
		return Row{}, ferr
	}
	if row.EventDescription, ferr = textField(raw, "", "description"); ferr != nil {
		return Row{}, ferr
	}
	if row.EventLink, ferr = textField(raw, "", "link"); ferr != nil {
		return Row{}, ferr
	}
	if row.Closed, ferr = nullableTextField(raw, "", "closed"); ferr != nil {
		return Row{}, ferr
	}
	return row, nil
}

// sequence returns the objects of a nested array: only the first under
// FirstOnly, all of them under AllVariants.
func sequence(raw RawEvent, name string, strategy Strategy) ([]map[string]any, *fieldError) {
	v, ok := raw[name]
	if !ok {
		return nil, malformed(name, "is absent")
	}
	items, ok := v.([]any)
	if !ok {
		return nil, malformed(name, "is not an array")
	}
	if len(items) == 0 {
		return nil, malformed(name, "is empty")
	}
	if strategy != AllVariants {
		items = items[:1]
	}

	objs := make([]map[string]any, 0, len(items))
	for i, item := range items {
		obj, ok := item.(map[string]any)
		if !ok {
			return nil, malformed(fmt.Sprintf("%s[%d]", name, i), "is not an object")
		}
		objs = append(objs, obj)
	}
	return objs, nil
}

// textField reads a string field. JSON null reads as the empty string and
// bare numbers keep their literal text.
func textField(obj map[string]any, prefix, key string) (string, *fieldError) {
	v, ok := obj[key]
	if !ok {
		return "", missing(prefix + key)
	}
	switch t := v.(type) {
	case nil:
		return "", nil
	case string:
		return t, nil
	case json.Number:
		return t.String(), nil
	default:
		return "", malformed(prefix+key, "is not text")
	}
}

func nullableTextField(obj map[string]any, prefix, key string) (*string, *fieldError) {
	v, ok := obj[key]
	if !ok {
		return nil, missing(prefix + key)
	}
	if v == nil {
		return nil, nil
	}
	s, ferr := textField(obj, prefix, key)
	if ferr != nil {
		return nil, ferr
	}
	return &s, nil
}

// integerField reads an integer that fits the 32-bit category_id column.
func integerField(obj map[string]any, prefix, key string) (int64, *fieldError) {
	v, ok := obj[key]
	if !ok {
		return 0, missing(prefix + key)
	}

	var (
		n     int64
		valid bool
	)
	switch t := v.(type) {
	case json.Number:
		var err error
		n, err = t.Int64()
		valid = err == nil
	case float64:
		if t == math.Trunc(t) && t >= math.MinInt32 && t <= math.MaxInt32 {
			n, valid = int64(t), true
		}
	case int:
		n, valid = int64(t), true
	}
	if !valid {
		return 0, malformed(prefix+key, "is not an integer")
	}
	if n < math.MinInt32 || n > math.MaxInt32 {
		return 0, malformed(prefix+key, "is out of the 32-bit integer range")
	}
	return n, nil
}

func coordinatesField(obj map[string]any, prefix, key string) (string, *fieldError) {
	v, ok := obj[key]
	if !ok {
		return "", missing(prefix + key)
	}
	s, ok := formatCoordinates(v)
	if !ok {
		return "", malformed(prefix+key, "is not a number or nested array of numbers")
	}
	return s, nil
}
