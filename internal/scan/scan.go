// Package scan adapts a page-capturing front end into a single asynchronous
// "scan documents" operation.
//
// A Capturer plays the role of the scanning sheet: once started it reports
// exactly one of three signals through a Delegate. The Adapter folds those
// signals into one tagged Outcome so callers never track state across
// separate callbacks.
package scan

import (
	"context"
	"image"
	"sync"

	"github.com/rs/zerolog"
)

// Page is one captured page image. Index is its 0-based position in capture
// order.
type Page struct {
	Index int
	Name  string
	Image image.Image
}

// Kind tags the variant held by an Outcome.
type Kind int

const (
	KindPages Kind = iota
	KindCancelled
	KindFailed
)

func (k Kind) String() string {
	switch k {
	case KindPages:
		return "pages"
	case KindCancelled:
		return "cancelled"
	case KindFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Outcome is the result of one scan session.
type Outcome struct {
	Kind  Kind
	Pages []Page
	Cause error // set for KindFailed
}

func Succeeded(pages []Page) Outcome { return Outcome{Kind: KindPages, Pages: pages} }

func Cancelled() Outcome { return Outcome{Kind: KindCancelled} }

func Failed(cause error) Outcome { return Outcome{Kind: KindFailed, Cause: cause} }

// Err returns ErrCancelled or a *FailedError for the non-success variants.
func (o Outcome) Err() error {
	switch o.Kind {
	case KindCancelled:
		return ErrCancelled
	case KindFailed:
		return &FailedError{Cause: o.Cause}
	default:
		return nil
	}
}

// Delegate receives the signals of a capture session.
type Delegate interface {
	Finished(pages []Page)
	Cancelled()
	Failed(err error)
}

// Capturer drives a capture session and reports through the delegate. It
// should stop early when ctx is cancelled.
type Capturer interface {
	Start(ctx context.Context, d Delegate)
}

// CapturerFunc adapts a function to the Capturer interface.
type CapturerFunc func(ctx context.Context, d Delegate)

func (f CapturerFunc) Start(ctx context.Context, d Delegate) { f(ctx, d) }

// bridge keeps the first signal and drops the rest.
type bridge struct {
	once sync.Once
	ch   chan Outcome
}

func newBridge() *bridge {
	return &bridge{ch: make(chan Outcome, 1)}
}

func (b *bridge) Finished(pages []Page) { b.send(Succeeded(pages)) }
func (b *bridge) Cancelled()            { b.send(Cancelled()) }
func (b *bridge) Failed(err error)      { b.send(Failed(err)) }

func (b *bridge) send(o Outcome) {
	b.once.Do(func() { b.ch <- o })
}

type Adapter struct {
	capturer Capturer
	maxPages int
	log      zerolog.Logger
}

type Option func(*Adapter)

func WithLogger(l zerolog.Logger) Option {
	return func(a *Adapter) { a.log = l }
}

// WithMaxPages fails sessions that capture more than n pages.
func WithMaxPages(n int) Option {
	return func(a *Adapter) {
		if n > 0 {
			a.maxPages = n
		}
	}
}

func NewAdapter(c Capturer, opts ...Option) *Adapter {
	a := &Adapter{capturer: c, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Scan runs one capture session. If ctx ends before the capturer signals,
// the outcome is Cancelled. Pages are re-indexed in the order they were
// delivered.
func (a *Adapter) Scan(ctx context.Context) Outcome {
	log := a.log.With().Str("scan_id", IDFromContext(ctx)).Logger()

	b := newBridge()
	go a.capturer.Start(ctx, b)

	var out Outcome
	select {
	case out = <-b.ch:
	case <-ctx.Done():
		b.Cancelled()
		out = <-b.ch
	}

	if out.Kind == KindPages && a.maxPages > 0 && len(out.Pages) > a.maxPages {
		out = Failed(&TooManyPagesError{Limit: a.maxPages, Got: len(out.Pages)})
	}

	switch out.Kind {
	case KindPages:
		pages := make([]Page, len(out.Pages))
		for i, p := range out.Pages {
			p.Index = i
			pages[i] = p
		}
		out.Pages = pages
		log.Info().Int("pages", len(pages)).Msg("scan finished")
	case KindCancelled:
		log.Info().Msg("scan cancelled")
	case KindFailed:
		log.Error().Err(out.Cause).Msg("scan failed")
	}
	return out
}

type ctxKey struct{}

// ContextWithID tags ctx with a scan session id used in logs.
func ContextWithID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func IDFromContext(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}
