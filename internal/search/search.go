// Package search provides web search backends and turns their hits into a
// prompt-sized evidence block.
package search

import (
	"fmt"
	"strings"
)

const DefaultMaxResults = 5

type Result struct {
	Title   string
	URL     string
	Snippet string
}

// Format renders results as numbered blocks separated by blank lines. When
// maxChars > 0 the block is cut to at most maxChars bytes on a rune boundary.
func Format(results []Result, maxChars int) string {
	blocks := make([]string, 0, len(results))
	for i, r := range results {
		blocks = append(blocks, fmt.Sprintf("[%d] %s\nURL: %s\n%s", i+1, r.Title, r.URL, r.Snippet))
	}
	out := strings.Join(blocks, "\n\n")

	if maxChars <= 0 || len(out) <= maxChars {
		return out
	}

	cut := maxChars
	for cut > 0 && !isRuneStart(out[cut]) {
		cut--
	}
	return strings.TrimSpace(out[:cut])
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}

func clean(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
