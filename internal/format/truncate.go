package format

import (
	"fmt"
	"unicode/utf8"
)

// Trailer is appended to any body cut to fit the comment ceiling.
func Trailer(localRef string) string {
	return fmt.Sprintf("\n\n---\n⚠️ **Truncated:** this update exceeded the tracker comment limit. The full content is in `%s`.\n", localRef)
}

// Enforce returns body unchanged when it fits within limit bytes. Otherwise
// it cuts body at min(budget, limit-len(trailer)), backs off to a rune
// boundary, and appends the trailer. The result never exceeds limit.
func Enforce(body string, limit, budget int, localRef string) (string, bool) {
	if len(body) <= limit {
		return body, false
	}
	trailer := Trailer(localRef)
	cut := limit - len(trailer)
	if budget > 0 && budget < cut {
		cut = budget
	}
	if cut < 0 {
		cut = 0
	}
	for cut > 0 && !utf8.RuneStart(body[cut]) {
		cut--
	}
	out := body[:cut] + trailer
	if len(out) > limit {
		// trailer alone exceeds the limit
		return out[:limit], true
	}
	return out, true
}
