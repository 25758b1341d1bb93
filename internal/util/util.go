// Package util provides small string helpers for bridge arguments.
package util

import (
	"errors"
	"strconv"
	"strings"
)

// ErrInvalidCoordinates is returned for a malformed "x,y,z" triple.
var ErrInvalidCoordinates = errors.New("invalid coordinates")

// TrimQuotes removes leading and trailing double quotes from a string.
func TrimQuotes(s string) string {
	return strings.Trim(s, `"`)
}

// FixEscapeQuotes replaces escaped double quotes ("") with single double quotes (").
func FixEscapeQuotes(s string) string {
	return strings.ReplaceAll(s, `""`, `"`)
}

// Clean undoes host-side quoting of one argument.
func Clean(s string) string {
	return FixEscapeQuotes(TrimQuotes(s))
}

// SplitList splits a comma separated list, dropping empty items.
func SplitList(s string) []string {
	out := []string{}
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// ParseTriple parses "x,y,z" into three floats.
func ParseTriple(s string) (x, y, z float64, err error) {
	parts := strings.Split(s, ",")
	if len(parts) != 3 {
		return 0, 0, 0, ErrInvalidCoordinates
	}
	vals := [3]float64{}
	for i, p := range parts {
		vals[i], err = strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, 0, 0, ErrInvalidCoordinates
		}
	}
	return vals[0], vals[1], vals[2], nil
}
