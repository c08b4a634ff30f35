package tesseract

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/otiai10/gosseract/v2"

	"github.com/toricodesthings/ink-to-pixels/internal/ocr"
)

// Engine recognizes text with a local Tesseract installation. gosseract
// clients are not goroutine-safe, so every call gets its own client.
type Engine struct {
	languages     []string
	pageSegMode   int
	clientFactory func() *gosseract.Client
}

type Option func(*Engine)

// WithLanguages sets the trained data to load, e.g. "eng", "deu".
func WithLanguages(langs ...string) Option {
	return func(e *Engine) { e.languages = append([]string(nil), langs...) }
}

// WithPageSegMode sets the Tesseract page segmentation mode. Zero keeps the
// library default.
func WithPageSegMode(mode int) Option {
	return func(e *Engine) { e.pageSegMode = mode }
}

func New(opts ...Option) *Engine {
	e := &Engine{clientFactory: gosseract.NewClient}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Engine) Name() string { return "tesseract" }

// Recognize returns one observation per detected text line, in reading
// order. Tesseract only exposes its best reading, so each observation has a
// single candidate.
func (e *Engine) Recognize(ctx context.Context, img image.Image) ([]ocr.Observation, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encode page: %w", err)
	}

	c := e.clientFactory()
	defer c.Close()

	if len(e.languages) > 0 {
		if err := c.SetLanguage(e.languages...); err != nil {
			return nil, fmt.Errorf("set languages: %w", err)
		}
	}
	if e.pageSegMode > 0 {
		if err := c.SetPageSegMode(gosseract.PageSegMode(e.pageSegMode)); err != nil {
			return nil, fmt.Errorf("set page seg mode: %w", err)
		}
	}
	if err := c.SetImageFromBytes(buf.Bytes()); err != nil {
		return nil, fmt.Errorf("set image: %w", err)
	}

	boxes, err := c.GetBoundingBoxes(gosseract.RIL_TEXTLINE)
	if err != nil {
		return nil, fmt.Errorf("recognize lines: %w", err)
	}
	if obs := linesFromBoxes(boxes); len(obs) > 0 {
		return obs, nil
	}

	text, err := c.Text()
	if err != nil {
		return nil, fmt.Errorf("recognize text: %w", err)
	}
	return linesFromText(text), nil
}

func linesFromBoxes(boxes []gosseract.BoundingBox) []ocr.Observation {
	out := make([]ocr.Observation, 0, len(boxes))
	for _, b := range boxes {
		line := strings.TrimRight(b.Word, "\r\n")
		if strings.TrimSpace(line) == "" {
			continue
		}
		out = append(out, ocr.Observation{Candidates: []ocr.Candidate{{
			Text:       line,
			Confidence: b.Confidence / 100.0,
		}}})
	}
	return out
}

func linesFromText(text string) []ocr.Observation {
	var lines []string
	for _, l := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(l) != "" {
			lines = append(lines, l)
		}
	}
	return ocr.Lines(lines...)
}
