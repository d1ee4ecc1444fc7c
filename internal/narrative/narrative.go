// Package narrative splits a historical narrative into paragraphs and
// picks out each paragraph's first sentence for emphasis.
package narrative

import (
	"regexp"
	"strings"
)

var (
	paragraphBreak = regexp.MustCompile(`\n\s*\n+`)
	firstSentence  = regexp.MustCompile(`(?s)^([^.!?]+[.!?])(.*)$`)
)

// Paragraph is one formatted paragraph. Lead holds the first sentence and
// is empty when the paragraph has no terminal punctuation, in which case
// Rest carries the whole paragraph.
type Paragraph struct {
	Lead string
	Rest string
}

// Text returns the paragraph as it appeared in the input, trimmed
func (p Paragraph) Text() string {
	return p.Lead + p.Rest
}

// HasLead reports whether a first sentence was found
func (p Paragraph) HasLead() bool {
	return p.Lead != ""
}

// Format splits text on blank lines, drops empty paragraphs and separates
// each paragraph's first sentence from the remainder
func Format(text string) []Paragraph {
	var out []Paragraph
	for _, raw := range paragraphBreak.Split(text, -1) {
		para := strings.TrimSpace(raw)
		if para == "" {
			continue
		}
		if m := firstSentence.FindStringSubmatch(para); m != nil {
			out = append(out, Paragraph{Lead: m[1], Rest: m[2]})
			continue
		}
		out = append(out, Paragraph{Rest: para})
	}
	return out
}
