package mistral

import (
	"regexp"
	"strings"
)

// cleanOCRText applies light-touch cleaning to raw OCR markdown:
//   - Strips zero-width / invisible unicode characters
//   - Removes standalone image-filename lines
//   - Normalises line endings and collapses excessive blank lines
var (
	zeroWidthChars     = regexp.MustCompile("[\u200B-\u200D\uFEFF\u00AD\u2060]")
	standaloneImgLink  = regexp.MustCompile(`(?m)^!\[[^\]]*\]\([^)]*\)[ \t]*$`)
	standaloneFileName = regexp.MustCompile(`(?mi)^[\w-]+\.(jpeg|jpg|png|gif|webp|svg|bmp|tiff?)[ \t]*$`)
	excessiveNewlines  = regexp.MustCompile(`\n{3,}`)
	trailingSpaces     = regexp.MustCompile(`(?m)[ \t]+$`)
)

func cleanOCRText(text string) string {
	if text == "" {
		return ""
	}

	text = zeroWidthChars.ReplaceAllString(text, "")
	text = standaloneImgLink.ReplaceAllString(text, "")
	text = standaloneFileName.ReplaceAllString(text, "")

	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")

	text = trailingSpaces.ReplaceAllString(text, "")
	text = excessiveNewlines.ReplaceAllString(text, "\n\n")

	return strings.TrimSpace(text)
}
