package validation

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

const MaxMessageLength = 500

// SanitizeMessage prepares a cheering message for submission: NFC
// normalized, control characters other than newlines removed, trimmed and
// capped at MaxMessageLength runes.
func SanitizeMessage(msg string) string {
	msg = normalize(msg)
	msg = strings.ReplaceAll(msg, "\r\n", "\n")

	msg = strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, msg)

	return truncate(strings.TrimSpace(msg), MaxMessageLength)
}

func normalize(s string) string {
	return norm.NFC.String(s)
}
