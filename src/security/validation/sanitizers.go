package validation

import (
	"strings"
	"unicode"
)

// StripUnprintable removes non-printable characters from user text
// (memos, comments), allowing common whitespace like space, tab,
// newline, and carriage return.
func StripUnprintable(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsPrint(r) || r == '\t' || r == '\n' || r == '\r' {
			return r
		}
		return -1
	}, s)
}

// SanitizeUserText trims surrounding whitespace and strips
// unprintable characters; used for memo, comment, and address fields
// before they hit the database.
func SanitizeUserText(s string) string {
	return strings.TrimSpace(StripUnprintable(s))
}
