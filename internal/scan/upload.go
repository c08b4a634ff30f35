package scan

import (
	"context"
	"fmt"
	"io"
	"mime/multipart"
)

// DefaultUploadField is the multipart form field carrying page images.
const DefaultUploadField = "page"

// UploadCapturer reads page images from a multipart body in part order.
// Parts with other field names are skipped.
type UploadCapturer struct {
	Reader   *multipart.Reader
	Field    string
	MaxPages int
}

func (c UploadCapturer) Start(ctx context.Context, d Delegate) {
	pages, err := c.read(ctx)
	if err != nil {
		signalError(ctx, d, err)
		return
	}
	d.Finished(pages)
}

func (c UploadCapturer) read(ctx context.Context) ([]Page, error) {
	field := c.Field
	if field == "" {
		field = DefaultUploadField
	}

	var pages []Page
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		part, err := c.Reader.NextPart()
		// Only a bare io.EOF marks the closing boundary; a truncated body
		// comes back wrapped.
		if err == io.EOF { //nolint:errorlint
			return pages, nil
		}
		if err != nil {
			return nil, fmt.Errorf("read upload: %w", err)
		}

		if part.FormName() != field {
			_, _ = io.Copy(io.Discard, part)
			_ = part.Close()
			continue
		}
		if c.MaxPages > 0 && len(pages) >= c.MaxPages {
			_ = part.Close()
			return nil, &TooManyPagesError{Limit: c.MaxPages, Got: len(pages) + 1}
		}

		name := part.FileName()
		if name == "" {
			name = fmt.Sprintf("part %d", len(pages)+1)
		}
		img, err := DecodeImage(part)
		_ = part.Close()
		if err != nil {
			return nil, &PageError{Name: name, Cause: err}
		}
		pages = append(pages, Page{Index: len(pages), Name: name, Image: img})
	}
}
