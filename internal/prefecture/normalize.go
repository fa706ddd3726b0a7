// Package prefecture canonicalizes free-text Japanese prefecture names so
// that "大阪府" and "大阪" land in the same bucket.
package prefecture

import (
	"strings"
)

var suffixes = []string{"県", "府", "都", "道"}

// Normalize strips exactly one trailing 県/府/都/道. A name that is already
// a canonical short form (e.g. "京都") is returned as is.
func Normalize(name string) string {
	if name == "" {
		return ""
	}
	if _, ok := shortNames[name]; ok {
		return name
	}
	for _, s := range suffixes {
		if strings.HasSuffix(name, s) {
			return strings.TrimSuffix(name, s)
		}
	}
	return name
}
