package validation

import (
	"regexp"
	"strings"
)

var profileURLPattern = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?(?:x\.com|twitter\.com)/([a-zA-Z0-9_]+)`)

// ParseHandle reduces "@name", "name" or a profile URL on x.com or
// twitter.com to the bare handle. Blank input yields "".
func ParseHandle(input string) string {
	handle := strings.TrimSpace(input)

	if m := profileURLPattern.FindStringSubmatch(handle); m != nil {
		handle = m[1]
	}

	return strings.TrimPrefix(handle, "@")
}
