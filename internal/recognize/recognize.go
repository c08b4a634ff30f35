package recognize

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/toricodesthings/ink-to-pixels/internal/format"
	"github.com/toricodesthings/ink-to-pixels/internal/ocr"
	"github.com/toricodesthings/ink-to-pixels/internal/quality"
	"github.com/toricodesthings/ink-to-pixels/internal/scan"
	"github.com/toricodesthings/ink-to-pixels/internal/types"
)

// PageError reports a page whose recognition failed. The page still
// contributes an empty string to the joined text.
type PageError struct {
	PageIndex int
	Cause     error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("page %d recognition failed: %v", e.PageIndex, e.Cause)
}

func (e *PageError) Unwrap() error { return e.Cause }

// Aggregator runs OCR over every page of a scan and joins the results in
// page order.
type Aggregator struct {
	engine    ocr.Engine
	workers   int
	separator string
	log       zerolog.Logger
}

type Option func(*Aggregator)

// WithWorkers caps how many pages are recognized at once.
func WithWorkers(n int) Option {
	return func(a *Aggregator) {
		if n > 0 {
			a.workers = n
		}
	}
}

func WithSeparator(sep string) Option {
	return func(a *Aggregator) {
		if sep != "" {
			a.separator = sep
		}
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(a *Aggregator) { a.log = l }
}

func New(engine ocr.Engine, opts ...Option) *Aggregator {
	a := &Aggregator{
		engine:    engine,
		workers:   4,
		separator: format.DefaultSeparator,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Aggregator) Engine() string { return a.engine.Name() }

// Recognize returns exactly one PageResult per input page, in input order,
// regardless of the order in which recognition calls complete.
func (a *Aggregator) Recognize(ctx context.Context, pages []scan.Page) types.RecognitionResult {
	log := a.log.With().Str("scan_id", scan.IDFromContext(ctx)).Str("engine", a.engine.Name()).Logger()
	start := time.Now()

	out := make([]types.PageResult, len(pages))

	var g errgroup.Group
	g.SetLimit(a.workers)
	for i, p := range pages {
		g.Go(func() error {
			out[i] = a.recognizePage(ctx, log, i, p)
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, p := range out {
		if p.Error != "" {
			failed++
		}
	}

	text := format.Combine(out, a.separator)
	log.Info().
		Int("pages", len(out)).
		Int("failed_pages", failed).
		Int("chars", len(text)).
		Dur("elapsed", time.Since(start)).
		Msg("recognition finished")

	return types.RecognitionResult{
		Text:        text,
		Pages:       out,
		TotalPages:  len(out),
		FailedPages: failed,
	}
}

// Texts is Recognize reduced to the per-page strings.
func (a *Aggregator) Texts(ctx context.Context, pages []scan.Page) []string {
	res := a.Recognize(ctx, pages)
	texts := make([]string, len(res.Pages))
	for i, p := range res.Pages {
		texts[i] = p.Text
	}
	return texts
}

func (a *Aggregator) recognizePage(ctx context.Context, log zerolog.Logger, i int, p scan.Page) types.PageResult {
	res := types.PageResult{PageNumber: i + 1, Name: p.Name}

	obs, err := a.engine.Recognize(ctx, p.Image)
	if err != nil {
		perr := &PageError{PageIndex: i, Cause: err}
		log.Error().Err(perr).Int("page", i+1).Msg("page recognition failed")
		res.Error = err.Error()
		return res
	}

	res.Text = pageText(obs)

	q := quality.Assess(res.Text)
	res.WordCount = q.WordCount
	res.Legibility = q.Score
	if !q.Legible {
		log.Warn().
			Int("page", i+1).
			Float64("legibility", q.Score).
			Strs("reasons", q.Reasons).
			Msg("page text looks illegible")
	}
	return res
}

// pageText joins the top candidate of every region in engine order.
func pageText(obs []ocr.Observation) string {
	lines := make([]string, 0, len(obs))
	for _, o := range obs {
		top, ok := o.Top()
		if !ok {
			continue
		}
		lines = append(lines, top.Text)
	}
	return format.Regions(lines)
}
