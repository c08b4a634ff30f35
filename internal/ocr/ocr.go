// Package ocr defines the text-recognition boundary used by the page
// aggregator. An engine takes one page image and returns the text regions it
// detected, each with candidate strings ranked best first.
package ocr

import (
	"context"
	"image"
)

// Candidate is one possible reading of a text region.
type Candidate struct {
	Text       string
	Confidence float64 // 0..1, zero when the engine does not report it
}

// Observation is a detected text region.
type Observation struct {
	Candidates []Candidate
}

// Top returns the highest-ranked candidate.
func (o Observation) Top() (Candidate, bool) {
	if len(o.Candidates) == 0 {
		return Candidate{}, false
	}
	return o.Candidates[0], true
}

// Engine recognizes text in a single image. Implementations must be safe for
// concurrent use; the aggregator calls Recognize from several goroutines.
type Engine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image) ([]Observation, error)
}

// EngineFunc adapts a function to the Engine interface.
type EngineFunc func(ctx context.Context, img image.Image) ([]Observation, error)

func (f EngineFunc) Name() string { return "func" }

func (f EngineFunc) Recognize(ctx context.Context, img image.Image) ([]Observation, error) {
	return f(ctx, img)
}

// Lines builds one single-candidate observation per line.
func Lines(lines ...string) []Observation {
	out := make([]Observation, 0, len(lines))
	for _, l := range lines {
		out = append(out, Observation{Candidates: []Candidate{{Text: l}}})
	}
	return out
}
