package domain

import (
	"encoding/json"
	"strconv"
	"strings"
)

// formatCoordinates renders a decoded coordinates value as text: numbers as
// their literal, sequences as "[a, b]" recursively. "[-120.1, 38.2]" and
// "[[[1, 2], [3, 4]]]" are typical results.
func formatCoordinates(v any) (string, bool) {
	var b strings.Builder
	if !writeCoordinates(&b, v) {
		return "", false
	}
	return b.String(), true
}

func writeCoordinates(b *strings.Builder, v any) bool {
	switch c := v.(type) {
	case json.Number:
		b.WriteString(c.String())
	case float64:
		b.WriteString(strconv.FormatFloat(c, 'f', -1, 64))
	case int:
		b.WriteString(strconv.Itoa(c))
	case []any:
		b.WriteByte('[')
		for i, elem := range c {
			if i > 0 {
				b.WriteString(", ")
			}
			if !writeCoordinates(b, elem) {
				return false
			}
		}
		b.WriteByte(']')
	default:
		return false
	}
	return true
}
