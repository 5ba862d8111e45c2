package textutil

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var diacriticStripper = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases the input and strips combining diacritical marks, so that
// localized labels such as "Matematică" compare equal to "matematica".
func Fold(value string) string {
	value = strings.ToLower(strings.TrimSpace(value))
	if value == "" {
		return ""
	}
	stripped, _, err := transform.String(diacriticStripper, value)
	if err != nil {
		return value
	}
	return stripped
}

// FoldEqual reports whether two strings are equal under Fold.
func FoldEqual(a, b string) bool {
	return Fold(a) == Fold(b)
}
