package domain

import (
	"strings"
	"unicode"
)

// IdentityKey derives the stable item key from a title. Case, punctuation
// and whitespace differences collapse to the same key.
func IdentityKey(title string) string {
	var b strings.Builder
	b.Grow(len(title))
	space := false
	for _, r := range strings.ToLower(title) {
		switch {
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			if space && b.Len() > 0 {
				b.WriteByte('-')
			}
			space = false
			b.WriteRune(r)
		default:
			space = true
		}
	}
	return b.String()
}
