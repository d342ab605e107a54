package domain

import (
	"strings"
)

// NormalizeName lowercases, trims and collapses inner whitespace so names and
// set names from different datasets compare equal
func NormalizeName(value string) string {
	return strings.Join(strings.Fields(strings.ToLower(value)), " ")
}

// NormalizeNumber trims a collector number and strips leading zeros.
// A value made only of zeros is kept as written.
func NormalizeNumber(value string) string {
	v := strings.TrimSpace(value)
	if stripped := strings.TrimLeft(v, "0"); stripped != "" {
		return stripped
	}
	return v
}

var (
	foilValues    = map[string]bool{"foil": true, "etched": true, "true": true, "yes": true, "1": true, "y": true, "t": true}
	nonfoilValues = map[string]bool{"normal": true, "nonfoil": true, "non-foil": true, "false": true, "no": true, "0": true, "n": true, "f": true}
)

// ParseFoil reads a foil flag. It returns nil when the value is not recognised.
func ParseFoil(value string) *bool {
	v := strings.ToLower(strings.TrimSpace(value))
	switch {
	case foilValues[v]:
		t := true
		return &t
	case nonfoilValues[v]:
		f := false
		return &f
	}
	return nil
}

// PickColumn returns the first candidate present in headers, compared case-insensitively.
// The header is returned as written in the source; "" means no candidate matched.
func PickColumn(headers []string, candidates ...string) string {
	lookup := make(map[string]string, len(headers))
	for _, h := range headers {
		key := strings.ToLower(h)
		if _, seen := lookup[key]; !seen {
			lookup[key] = h
		}
	}
	for _, c := range candidates {
		if h, ok := lookup[strings.ToLower(c)]; ok {
			return h
		}
	}
	return ""
}

// Column resolves a column of the table through PickColumn
func (t *Table) Column(candidates ...string) string {
	if t == nil {
		return ""
	}
	return PickColumn(t.Headers, candidates...)
}

// Value returns the trimmed cell of row under column; an empty column yields ""
func Value(row map[string]string, column string) string {
	if column == "" {
		return ""
	}
	return strings.TrimSpace(row[column])
}
