package util

import "strings"

// NormalizeName canonicalizes an entity name for comparison: lower-cased
// and with all runs of whitespace collapsed to single spaces. Used as the
// name part of a resolution key; the original casing is kept for display.
func NormalizeName(name string) string {
	return strings.Join(strings.Fields(strings.ToLower(name)), " ")
}

// Min returns the smaller of a and b.
func Min(a, b int) int {
	if a < b {
		return a
	}
	return b
}
