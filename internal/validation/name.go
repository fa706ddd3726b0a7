package validation

import (
	"strings"
	"unicode/utf8"
)

const MaxNameLength = 100

// SanitizeName trims a display name and caps it at MaxNameLength runes.
func SanitizeName(name string) string {
	trimmed := strings.TrimSpace(normalize(name))
	return truncate(trimmed, MaxNameLength)
}

// ValidateName validates a display name
func ValidateName(name string) error {
	trimmed := strings.TrimSpace(name)

	if trimmed == "" {
		return NewValidationError(CodeMissingName, "displayName", "name is required")
	}

	if utf8.RuneCountInString(trimmed) > MaxNameLength {
		return NewValidationError(CodeInvalidPayload, "displayName", "name is too long (max 100 characters)")
	}

	return nil
}

func truncate(s string, max int) string {
	if utf8.RuneCountInString(s) <= max {
		return s
	}
	runes := []rune(s)
	return string(runes[:max])
}
