package dataset

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/unicode/norm"
)

// Normalize trims s and puts it in NFC so that Bengali text typed on
// different keyboards compares equal.
func Normalize(s string) string {
	return norm.NFC.String(strings.TrimSpace(s))
}

// FoldKey returns the case-insensitive comparison form of a course code,
// faculty initial or batch.
func FoldKey(s string) string {
	// Casers keep state and must not be shared across goroutines.
	return cases.Fold().String(Normalize(s))
}

// CanonicalKey returns the form in which new course codes and faculty
// initials are stored: upper case, NFC, trimmed.
func CanonicalKey(s string) string {
	return cases.Upper(language.Und).String(Normalize(s))
}
