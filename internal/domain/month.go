package domain

import (
	"fmt"
	"strings"
	"time"
)

const monthLayout = "2006-01"

// MonthFilter decides whether a flattened row belongs to targetMonth.
type MonthFilter func(row Row, targetMonth string) bool

// ExactMonth keeps a row when the YYYY-MM prefix of its geometry date equals
// targetMonth.
func ExactMonth(row Row, targetMonth string) bool {
	if len(row.Date) < len(monthLayout) {
		return false
	}
	return row.Date[:len(monthLayout)] == targetMonth
}

// SubstringMonth keeps a row when targetMonth appears anywhere in its
// geometry date.
// This is the legacy rule of the historical report: a target of "2017-1"
// also matches "2017-10" through "2017-12". Only use it to reproduce old
// output.
func SubstringMonth(row Row, targetMonth string) bool {
	return strings.Contains(row.Date, targetMonth)
}

// FilterMode names a MonthFilter in configuration.
type FilterMode string

const (
	FilterExact     FilterMode = "exact"
	FilterSubstring FilterMode = "substring"
)

// ParseFilterMode validates a configured filter mode.
func ParseFilterMode(s string) (FilterMode, error) {
	switch FilterMode(s) {
	case FilterExact, FilterSubstring:
		return FilterMode(s), nil
	default:
		return "", fmt.Errorf("unknown filter mode %q (want %q or %q)", s, FilterExact, FilterSubstring)
	}
}

// Filter returns the predicate for the mode. Unknown modes fall back to
// ExactMonth.
func (m FilterMode) Filter() MonthFilter {
	if m == FilterSubstring {
		return SubstringMonth
	}
	return ExactMonth
}

// ValidateMonth checks that s is a YYYY-MM token.
func ValidateMonth(s string) error {
	t, err := time.Parse(monthLayout, s)
	if err != nil || t.Format(monthLayout) != s {
		return fmt.Errorf("invalid month %q: want YYYY-MM", s)
	}
	return nil
}

// PreviousMonth returns the YYYY-MM token of the calendar month before now,
// evaluated in UTC.
func PreviousMonth(now time.Time) string {
	now = now.UTC()
	first := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	return first.AddDate(0, -1, 0).Format(monthLayout)
}

// DefaultTargetMonth is PreviousMonth of the package clock.
func DefaultTargetMonth() string {
	return PreviousMonth(clock.Now())
}
