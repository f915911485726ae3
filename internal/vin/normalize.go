package vin

import (
	"regexp"
	"strings"
)

var (
	reWhitespace = regexp.MustCompile(`\s+`)
	reSeparators = regexp.MustCompile(`[\s\-_]+`)
)

// NormalizeVariants returns the canonical views of raw OCR text, in order:
// uppercased, uppercased without whitespace, uppercased without whitespace, hyphens
// and underscores. The first variant is always present.
func NormalizeVariants(raw string) []string {
	upper := strings.ToUpper(raw)
	return []string{
		upper,
		reWhitespace.ReplaceAllString(upper, ""),
		reSeparators.ReplaceAllString(upper, ""),
	}
}

// compact is the form used when matching a candidate back to its blocks.
func compact(s string) string {
	return reSeparators.ReplaceAllString(strings.ToUpper(s), "")
}

func joinBlocks(blocks []TextBlock) string {
	lines := make([]string, 0, len(blocks))
	for _, b := range blocks {
		lines = append(lines, b.Text)
	}
	return strings.Join(lines, "\n")
}
