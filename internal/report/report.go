// Package report renders a finished scan for the terminal or for other tools.
package report

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/toricodesthings/ink-to-pixels/internal/types"
)

// Formats accepted by New.
const (
	FormatText     = "text"
	FormatJSON     = "json"
	FormatMarkdown = "markdown"
)

var ErrUnknownFormat = errors.New("unknown report format")

// Writer outputs a scan report.
type Writer interface {
	Write(r types.ScanReport) error
}

// New returns the Writer for format, writing to out.
func New(format string, out io.Writer) (Writer, error) {
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", FormatText:
		return &TextWriter{out: out}, nil
	case FormatJSON:
		return &JSONWriter{out: out, indent: "  "}, nil
	case FormatMarkdown, "md":
		return &MarkdownWriter{out: out}, nil
	default:
		return nil, fmt.Errorf("%w: %q (want text, json or markdown)", ErrUnknownFormat, format)
	}
}

// TextWriter prints only the recognized text.
type TextWriter struct {
	out io.Writer
}

func (w *TextWriter) Write(r types.ScanReport) error {
	if r.Text == "" {
		return nil
	}
	_, err := io.WriteString(w.out, r.Text+"\n")
	return err
}
