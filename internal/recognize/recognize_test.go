package recognize

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toricodesthings/ink-to-pixels/internal/ocr"
	"github.com/toricodesthings/ink-to-pixels/internal/scan"
)

// fakeEngine identifies pages by image width: page i has width i+1.
type fakeEngine struct {
	byPage map[int][]ocr.Observation
	fail   map[int]error
	before func(page int)
	calls  atomic.Int32
}

func (f *fakeEngine) Name() string { return "fake" }

func (f *fakeEngine) Recognize(_ context.Context, img image.Image) ([]ocr.Observation, error) {
	f.calls.Add(1)
	page := img.Bounds().Dx() - 1
	if f.before != nil {
		f.before(page)
	}
	if err := f.fail[page]; err != nil {
		return nil, err
	}
	return f.byPage[page], nil
}

func pages(n int) []scan.Page {
	out := make([]scan.Page, n)
	for i := range out {
		out[i] = scan.Page{Index: i, Name: fmt.Sprintf("p%d", i), Image: image.NewGray(image.Rect(0, 0, i+1, 1))}
	}
	return out
}

func TestRecognizeSingleLinePages(t *testing.T) {
	e := &fakeEngine{byPage: map[int][]ocr.Observation{
		0: ocr.Lines("first"),
		1: ocr.Lines("second"),
		2: ocr.Lines("third"),
	}}

	res := New(e).Recognize(context.Background(), pages(3))

	assert.Equal(t, "first\nsecond\nthird", res.Text)
	assert.Equal(t, 3, res.TotalPages)
	assert.Zero(t, res.FailedPages)
	require.Len(t, res.Pages, 3)
	for i, p := range res.Pages {
		assert.Equal(t, i+1, p.PageNumber)
		assert.Equal(t, fmt.Sprintf("p%d", i), p.Name)
		assert.Equal(t, 1, p.WordCount)
	}
}

func TestRecognizePreservesOrderWhenCompletionIsReversed(t *testing.T) {
	const n = 6
	done := make([]chan struct{}, n)
	for i := range done {
		done[i] = make(chan struct{})
	}

	var mu sync.Mutex
	var completed []int

	e := &fakeEngine{byPage: map[int][]ocr.Observation{}}
	for i := 0; i < n; i++ {
		e.byPage[i] = ocr.Lines(fmt.Sprintf("page-%d", i))
	}
	// Page i only finishes after page i+1, so completion runs last to first.
	e.before = func(page int) {
		if page+1 < n {
			<-done[page+1]
		}
		mu.Lock()
		completed = append(completed, page)
		mu.Unlock()
		close(done[page])
	}

	texts := New(e, WithWorkers(n)).Texts(context.Background(), pages(n))

	require.Len(t, texts, n)
	for i, txt := range texts {
		assert.Equal(t, fmt.Sprintf("page-%d", i), txt)
	}
	assert.Equal(t, []int{5, 4, 3, 2, 1, 0}, completed)
}

func TestRecognizeFailedPageLeavesBlankLine(t *testing.T) {
	var logs bytes.Buffer
	e := &fakeEngine{
		byPage: map[int][]ocr.Observation{
			0: ocr.Lines("page zero"),
			2: ocr.Lines("page two"),
		},
		fail: map[int]error{1: errors.New("engine crashed")},
	}

	res := New(e, WithLogger(zerolog.New(&logs))).Recognize(context.Background(), pages(3))

	assert.Equal(t, "page zero\n\npage two", res.Text)
	assert.Equal(t, 1, res.FailedPages)
	assert.Equal(t, "engine crashed", res.Pages[1].Error)
	assert.Empty(t, res.Pages[1].Text)
	assert.Equal(t, int32(3), e.calls.Load(), "sibling pages still run")
	assert.Contains(t, logs.String(), "page 1 recognition failed: engine crashed")
}

func TestRecognizeZeroPages(t *testing.T) {
	e := &fakeEngine{}
	res := New(e).Recognize(context.Background(), nil)

	assert.Equal(t, "", res.Text)
	assert.Empty(t, res.Pages)
	assert.Zero(t, e.calls.Load())
}

func TestRecognizeTrimsOnceAtTheEnd(t *testing.T) {
	e := &fakeEngine{byPage: map[int][]ocr.Observation{
		0: ocr.Lines("  Hello ", "there "),
		1: ocr.Lines(" World", "again  "),
	}}

	res := New(e).Recognize(context.Background(), pages(2))

	assert.Equal(t, "Hello \nthere \n World\nagain", res.Text)
	assert.Equal(t, "  Hello \nthere ", res.Pages[0].Text, "pages are not trimmed individually")
}

func TestRecognizeSkipsRegionsWithoutCandidates(t *testing.T) {
	e := &fakeEngine{byPage: map[int][]ocr.Observation{
		0: {
			{Candidates: []ocr.Candidate{{Text: "best", Confidence: 0.9}, {Text: "runner-up", Confidence: 0.5}}},
			{},
			{Candidates: []ocr.Candidate{{Text: "next"}}},
		},
	}}

	res := New(e).Recognize(context.Background(), pages(1))
	assert.Equal(t, "best\nnext", res.Text)
}

func TestRecognizeCustomSeparator(t *testing.T) {
	e := &fakeEngine{byPage: map[int][]ocr.Observation{0: ocr.Lines("a"), 1: ocr.Lines("b")}}
	res := New(e, WithSeparator("\n\f\n")).Recognize(context.Background(), pages(2))
	assert.Equal(t, "a\n\f\nb", res.Text)
}

func TestRecognizeRespectsWorkerLimit(t *testing.T) {
	const workers, n = 2, 8

	var inFlight, peak atomic.Int32
	entered := make(chan struct{}, n)
	release := make(chan struct{})

	e := &fakeEngine{byPage: map[int][]ocr.Observation{}}
	e.before = func(int) {
		cur := inFlight.Add(1)
		for {
			p := peak.Load()
			if cur <= p || peak.CompareAndSwap(p, cur) {
				break
			}
		}
		entered <- struct{}{}
		<-release
		inFlight.Add(-1)
	}

	done := make(chan struct{})
	go func() {
		New(e, WithWorkers(workers)).Recognize(context.Background(), pages(n))
		close(done)
	}()

	for i := 0; i < workers; i++ {
		select {
		case <-entered:
		case <-time.After(2 * time.Second):
			t.Fatalf("only %d pages started", i)
		}
	}
	// Nobody else may start while the first two are held.
	select {
	case <-entered:
		t.Fatalf("more than %d pages in flight", workers)
	case <-time.After(100 * time.Millisecond):
	}
	assert.Equal(t, int32(workers), inFlight.Load())

	close(release)
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recognition did not finish")
	}
	assert.Equal(t, int32(workers), peak.Load())
	assert.Equal(t, int32(n), e.calls.Load())
}

func TestRecognizeLogsIllegiblePage(t *testing.T) {
	var logs bytes.Buffer
	e := &fakeEngine{byPage: map[int][]ocr.Observation{0: ocr.Lines("~ | ; : ' ` ^ # %")}}

	res := New(e, WithLogger(zerolog.New(&logs))).Recognize(scan.ContextWithID(context.Background(), "s-1"), pages(1))

	assert.Less(t, res.Pages[0].Legibility, 0.5)
	assert.Contains(t, logs.String(), "page text looks illegible")
	assert.Contains(t, logs.String(), `"scan_id":"s-1"`)
}

func TestPageErrorUnwraps(t *testing.T) {
	cause := errors.New("boom")
	err := error(&PageError{PageIndex: 2, Cause: cause})
	assert.ErrorIs(t, err, cause)
	assert.True(t, strings.HasPrefix(err.Error(), "page 2"))
}
