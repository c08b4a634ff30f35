package format

import (
	"strings"

	"github.com/toricodesthings/ink-to-pixels/internal/types"
)

// DefaultSeparator joins page texts into the display text.
const DefaultSeparator = "\n"

// Combine joins page texts in page order and trims the result once. Empty
// pages keep their slot so a failed page shows up as a blank line.
func Combine(pages []types.PageResult, sep string) string {
	texts := make([]string, len(pages))
	for i, p := range pages {
		texts[i] = p.Text
	}
	return Join(texts, sep)
}

func Join(texts []string, sep string) string {
	if sep == "" {
		sep = DefaultSeparator
	}
	return strings.TrimSpace(strings.Join(texts, sep))
}

// Regions joins the recognized regions of a single page. Pages are not
// trimmed individually.
func Regions(lines []string) string {
	return strings.Join(lines, "\n")
}
