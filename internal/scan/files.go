package scan

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// FileCapturer captures the given image files in argument order.
type FileCapturer struct {
	Paths []string
}

func (c FileCapturer) Start(ctx context.Context, d Delegate) {
	pages, err := loadFiles(ctx, c.Paths)
	if err != nil {
		signalError(ctx, d, err)
		return
	}
	d.Finished(pages)
}

// DirCapturer captures every image file in Dir. Files are ordered by name
// with numbers compared by value, so page2.png comes before page10.png.
type DirCapturer struct {
	Dir string
}

func (c DirCapturer) Start(ctx context.Context, d Delegate) {
	paths, err := ListImages(c.Dir)
	if err != nil {
		d.Failed(err)
		return
	}
	FileCapturer{Paths: paths}.Start(ctx, d)
}

// ListImages returns the image files directly inside dir in page order.
func ListImages(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read scan directory: %w", err)
	}
	var names []string
	for _, e := range entries {
		if e.IsDir() || !IsImageFile(e.Name()) {
			continue
		}
		names = append(names, e.Name())
	}
	collate.New(language.Und, collate.Numeric).SortStrings(names)

	paths := make([]string, len(names))
	for i, n := range names {
		paths[i] = filepath.Join(dir, n)
	}
	return paths, nil
}

func loadFiles(ctx context.Context, paths []string) ([]Page, error) {
	pages := make([]Page, 0, len(paths))
	for i, p := range paths {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := loadImageFile(p)
		if err != nil {
			return nil, &PageError{Name: filepath.Base(p), Cause: err}
		}
		pages = append(pages, Page{Index: i, Name: filepath.Base(p), Image: img})
	}
	return pages, nil
}

// signalError maps context errors to a cancellation and anything else to a
// failure.
func signalError(ctx context.Context, d Delegate, err error) {
	if ctx.Err() != nil || errors.Is(err, context.Canceled) {
		d.Cancelled()
		return
	}
	d.Failed(err)
}
