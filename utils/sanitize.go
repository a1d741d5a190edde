package utils

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var sanitizer = bluemonday.StrictPolicy()

// maxSanitizePasses bounds how many layers of entity encoding are peeled off.
const maxSanitizePasses = 8

// Sanitize strips every HTML tag from user supplied text and trims surrounding whitespace.
// Entities are decoded before the policy runs so encoded markup is stripped too. The result is
// plain text once decoding and stripping reach a fixed point; input that keeps changing after
// maxSanitizePasses is returned in the policy's escaped form instead.
func Sanitize(input string) string {
	cur := input
	for i := 0; i < maxSanitizePasses; i++ {
		next := html.UnescapeString(sanitizer.Sanitize(html.UnescapeString(cur)))
		if next == cur {
			return strings.TrimSpace(cur)
		}
		cur = next
	}
	return strings.TrimSpace(sanitizer.Sanitize(cur))
}
