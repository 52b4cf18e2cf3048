package textutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/unicode/norm"
)

// Fold returns a canonical form for caseless comparison: NFC-normalized, then
// Unicode case-folded. "Straße" and "STRASSE" fold to the same value.
func Fold(value string) string {
	return cases.Fold().String(norm.NFC.String(value))
}

// ContainsFold reports whether needle occurs in haystack ignoring case and
// Unicode normalization differences. An empty needle never matches.
func ContainsFold(haystack, needle string) bool {
	needle = Fold(strings.TrimSpace(needle))
	if needle == "" {
		return false
	}
	return strings.Contains(Fold(haystack), needle)
}
