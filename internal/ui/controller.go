// Package ui owns the view state of a scan front end.
//
// All state lives on one goroutine, the loop started by Controller.Run.
// Scanning and recognition run on background goroutines and report back by
// posting events to the loop, which is the only place ViewState changes.
package ui

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/toricodesthings/ink-to-pixels/internal/scan"
	"github.com/toricodesthings/ink-to-pixels/internal/types"
)

type Phase int

const (
	PhaseIdle Phase = iota
	PhaseScanning
)

func (p Phase) String() string {
	if p == PhaseScanning {
		return "scanning"
	}
	return "idle"
}

// ViewState is everything the front end renders.
type ViewState struct {
	Phase        Phase
	SheetVisible bool
	DisplayText  string
	Pages        []types.PageResult
	ScanID       string

	// Sessions counts finished scan cycles; LastOutcome is how the most
	// recent one ended. Both are zero before the first cycle completes.
	Sessions    int
	LastOutcome scan.Kind
}

// Scanner is the scan session adapter.
type Scanner interface {
	Scan(ctx context.Context) scan.Outcome
}

// Recognizer is the page OCR aggregator.
type Recognizer interface {
	Recognize(ctx context.Context, pages []scan.Page) types.RecognitionResult
}

// ErrAlreadyRunning is returned by Run when the loop has been started before.
var ErrAlreadyRunning = errors.New("ui: controller loop already started")

type event interface{ isEvent() }

type scanPressed struct{}

type scanDone struct {
	id      string
	outcome scan.Outcome
}

type recognitionDone struct {
	id     string
	result types.RecognitionResult
}

type stateQuery struct {
	reply chan ViewState
}

func (scanPressed) isEvent()     {}
func (scanDone) isEvent()        {}
func (recognitionDone) isEvent() {}
func (stateQuery) isEvent()      {}

type Controller struct {
	scanner    Scanner
	recognizer Recognizer
	log        zerolog.Logger
	newID      func() string

	events    chan event
	done      chan struct{}
	started   atomic.Bool
	observers []func(ViewState)

	state ViewState
}

type Option func(*Controller)

func WithLogger(l zerolog.Logger) Option {
	return func(c *Controller) { c.log = l }
}

// OnChange registers fn to be called on the loop after every state change.
// fn must not block.
func OnChange(fn func(ViewState)) Option {
	return func(c *Controller) { c.observers = append(c.observers, fn) }
}

func NewController(s Scanner, r Recognizer, opts ...Option) *Controller {
	c := &Controller{
		scanner:    s,
		recognizer: r,
		log:        zerolog.Nop(),
		newID:      func() string { return uuid.NewString() },
		events:     make(chan event, 16),
		done:       make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run is the UI execution context. It returns when ctx ends. Recognition
// that is already running is not cancelled, but its result is dropped.
// A controller runs once; later calls return ErrAlreadyRunning.
func (c *Controller) Run(ctx context.Context) error {
	if !c.started.CompareAndSwap(false, true) {
		return ErrAlreadyRunning
	}
	defer close(c.done)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

// RequestScan is the "Scan" button. It is ignored while a scan is running.
func (c *Controller) RequestScan() {
	c.post(scanPressed{})
}

// State returns a snapshot of the view state. After Run has returned it
// returns the zero ViewState.
func (c *Controller) State() ViewState {
	reply := make(chan ViewState, 1)
	if !c.post(stateQuery{reply: reply}) {
		return ViewState{}
	}
	select {
	case s := <-reply:
		return s
	case <-c.done:
		return ViewState{}
	}
}

func (c *Controller) post(ev event) bool {
	select {
	case c.events <- ev:
		return true
	case <-c.done:
		return false
	}
}

func (c *Controller) handle(ctx context.Context, ev event) {
	switch ev := ev.(type) {
	case scanPressed:
		if c.state.Phase != PhaseIdle {
			c.log.Debug().Str("scan_id", c.state.ScanID).Msg("scan already in progress")
			return
		}
		id := c.newID()
		c.state.Phase = PhaseScanning
		c.state.SheetVisible = true
		c.state.ScanID = id
		c.changed()

		scanCtx := scan.ContextWithID(ctx, id)
		go func() {
			c.post(scanDone{id: id, outcome: c.scanner.Scan(scanCtx)})
		}()

	case scanDone:
		if ev.id != c.state.ScanID {
			return
		}
		if ev.outcome.Kind != scan.KindPages {
			// Cancel and failure leave the display text as it was.
			c.state.Phase = PhaseIdle
			c.state.SheetVisible = false
			c.state.Sessions++
			c.state.LastOutcome = ev.outcome.Kind
			c.changed()
			return
		}
		// OCR is not tied to the UI's lifetime; once started it runs to
		// completion.
		ocrCtx := scan.ContextWithID(context.WithoutCancel(ctx), ev.id)
		pages := ev.outcome.Pages
		go func() {
			c.post(recognitionDone{id: ev.id, result: c.recognizer.Recognize(ocrCtx, pages)})
		}()

	case recognitionDone:
		if ev.id != c.state.ScanID {
			return
		}
		c.state.DisplayText = ev.result.Text
		c.state.Pages = ev.result.Pages
		c.state.Phase = PhaseIdle
		c.state.SheetVisible = false
		c.state.Sessions++
		c.state.LastOutcome = scan.KindPages
		c.changed()

	case stateQuery:
		ev.reply <- c.snapshot()
	}
}

func (c *Controller) changed() {
	s := c.snapshot()
	for _, fn := range c.observers {
		fn(s)
	}
}

func (c *Controller) snapshot() ViewState {
	s := c.state
	if c.state.Pages != nil {
		s.Pages = append([]types.PageResult(nil), c.state.Pages...)
	}
	return s
}
