package scan

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
)

// PromptCapturer is an interactive scanning sheet for terminals. The user
// enters one image path per line. An empty line or end of input finishes
// the scan and "cancel" or "q" aborts it. Unreadable pages are reported and
// can be retried.
//
// Reads block until a line arrives; the Adapter still returns Cancelled as
// soon as its context ends.
type PromptCapturer struct {
	In  io.Reader
	Out io.Writer
}

func (c PromptCapturer) Start(ctx context.Context, d Delegate) {
	sc := bufio.NewScanner(c.In)
	fmt.Fprintln(c.Out, `Scanning. Enter one image path per line, an empty line to finish, or "cancel" to abort.`)

	var pages []Page
	for {
		fmt.Fprintf(c.Out, "page %d> ", len(pages)+1)
		if !sc.Scan() {
			if err := sc.Err(); err != nil {
				d.Failed(fmt.Errorf("read input: %w", err))
				return
			}
			fmt.Fprintln(c.Out)
			d.Finished(pages)
			return
		}
		if ctx.Err() != nil {
			d.Cancelled()
			return
		}

		line := strings.TrimSpace(sc.Text())
		switch strings.ToLower(line) {
		case "":
			d.Finished(pages)
			return
		case "cancel", "q":
			d.Cancelled()
			return
		}

		img, err := loadImageFile(line)
		if err != nil {
			fmt.Fprintf(c.Out, "could not read %s: %v\n", line, err)
			continue
		}
		pages = append(pages, Page{Index: len(pages), Name: filepath.Base(line), Image: img})
	}
}
