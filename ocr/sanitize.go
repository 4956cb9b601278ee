package ocr

import "strings"

// minResultLen is the fixed policy floor separating genuine decodes from
// recognizer noise. Applied uniformly across all engines.
const minResultLen = 3

// Sanitize strips everything but ASCII letters and digits, then rejects
// results shorter than the policy floor by returning "".
func Sanitize(raw string) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range raw {
		if r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		}
	}
	if b.Len() < minResultLen {
		return ""
	}
	return b.String()
}
