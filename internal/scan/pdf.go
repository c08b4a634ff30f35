package scan

import (
	"context"
	"fmt"
	"time"

	"github.com/toricodesthings/ink-to-pixels/internal/extractor"
)

// PDFCapturer treats each page of a scanned PDF as a captured page. Pages
// are rasterized with poppler.
type PDFCapturer struct {
	Path          string
	DPI           int
	InfoTimeout   time.Duration
	RenderTimeout time.Duration
}

func (c PDFCapturer) Start(ctx context.Context, d Delegate) {
	pages, err := c.render(ctx)
	if err != nil {
		signalError(ctx, d, err)
		return
	}
	d.Finished(pages)
}

func (c PDFCapturer) render(ctx context.Context) ([]Page, error) {
	dpi := c.DPI
	if dpi <= 0 {
		dpi = 300
	}

	infoCtx, cancel := withOptionalTimeout(ctx, c.InfoTimeout)
	total, err := extractor.PageCount(infoCtx, c.Path)
	cancel()
	if err != nil {
		return nil, err
	}

	pages := make([]Page, 0, total)
	for n := 1; n <= total; n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		renderCtx, cancel := withOptionalTimeout(ctx, c.RenderTimeout)
		img, err := extractor.RenderPage(renderCtx, c.Path, n, dpi)
		cancel()
		if err != nil {
			return nil, err
		}
		pages = append(pages, Page{Index: n - 1, Name: fmt.Sprintf("page %d", n), Image: img})
	}
	return pages, nil
}

func withOptionalTimeout(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, d)
}
