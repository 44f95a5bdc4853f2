// internal/transform/clean.go
package transform

import (
	"regexp"
	"strings"
)

// preambleRe matches wrapper commentary like "Here is the revised text:"
// or "Here's a shorter version:" on the first line.
var preambleRe = regexp.MustCompile(`(?i)^here(?:'s| is)[^:\n]{0,80}:\s*`)

// Clean strips the wrapper artifacts models habitually add around the
// transformed text: code fences, "Here is..." preambles, and surrounding
// quotes. It never touches interior content.
func Clean(raw string) string {
	s := strings.TrimSpace(raw)

	// Code fences around the whole payload.
	if strings.HasPrefix(s, "```") {
		if idx := strings.IndexByte(s, '\n'); idx >= 0 {
			s = s[idx+1:]
		} else {
			s = strings.TrimPrefix(s, "```")
		}
		s = strings.TrimSpace(s)
		if strings.HasSuffix(s, "```") {
			s = strings.TrimSpace(strings.TrimSuffix(s, "```"))
		}
	}

	// Leading preamble line.
	s = preambleRe.ReplaceAllString(s, "")
	s = strings.TrimSpace(s)

	// One layer of surrounding quotes, only when they actually pair up.
	s = stripSurroundingQuotes(s)

	return s
}

var quotePairs = map[rune]rune{
	'"':      '"',
	'\'':     '\'',
	'“': '”', // “ ”
	'‘': '’', // ‘ ’
}

func stripSurroundingQuotes(s string) string {
	runes := []rune(s)
	if len(runes) < 2 {
		return s
	}
	closing, ok := quotePairs[runes[0]]
	if !ok || runes[len(runes)-1] != closing {
		return s
	}
	inner := string(runes[1 : len(runes)-1])
	// Don't strip when the quote chars also appear inside; the quotes are
	// probably content, not wrapping.
	if strings.ContainsRune(inner, runes[0]) || strings.ContainsRune(inner, closing) {
		return s
	}
	return strings.TrimSpace(inner)
}
