// Package stringutil provides common string manipulation utilities.
package stringutil

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// IsNumeric checks if a string contains only ASCII digits.
// Returns false for empty strings.
func IsNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// UpperKey returns the case-insensitive comparison key for a program name.
// It applies full Unicode upper-casing, so "ß" and "SS" share a key
// the same way Cyrillic "история" and "ИСТОРИЯ" do.
//
// A new Caser is built per call because cases.Caser is stateful and
// must not be shared between goroutines.
func UpperKey(s string) string {
	if s == "" {
		return ""
	}
	return cases.Upper(language.Und).String(s)
}

// EqualFold reports whether a and b share the same UpperKey.
func EqualFold(a, b string) bool {
	return UpperKey(a) == UpperKey(b)
}

// IsBlank reports whether s is empty or consists only of whitespace.
func IsBlank(s string) bool {
	return strings.TrimSpace(s) == ""
}
