package report

import (
	"io"
	"strconv"
	"time"

	"github.com/nao1215/markdown"

	"github.com/toricodesthings/ink-to-pixels/internal/types"
)

// MarkdownWriter outputs a document suitable for sharing.
type MarkdownWriter struct {
	out io.Writer
}

func (w *MarkdownWriter) Write(r types.ScanReport) error {
	md := markdown.NewMarkdown(w.out)

	md.H1("Scan Report")
	md.PlainText("")
	md.Table(markdown.TableSet{
		Header: []string{"Property", "Value"},
		Rows: [][]string{
			{"Scan ID", "`" + r.ScanID + "`"},
			{"Engine", r.Engine},
			{"Scanned", r.ScannedAt.UTC().Format(time.RFC3339)},
			{"Pages", strconv.Itoa(r.TotalPages)},
			{"Failed Pages", strconv.Itoa(r.FailedPages)},
			{"Words", strconv.Itoa(totalWords(r.Pages))},
		},
	})
	md.PlainText("")

	if r.FailedPages > 0 {
		md.Warningf("%d of %d page(s) could not be recognized and are blank in the text below.",
			r.FailedPages, r.TotalPages)
		md.PlainText("")
	}

	if len(r.Pages) > 0 {
		md.H2("Pages")
		md.PlainText("")
		rows := make([][]string, 0, len(r.Pages))
		for _, p := range r.Pages {
			rows = append(rows, []string{
				strconv.Itoa(p.PageNumber),
				p.Name,
				strconv.Itoa(p.WordCount),
				strconv.FormatFloat(p.Legibility, 'f', 2, 64),
				pageStatus(p),
			})
		}
		md.Table(markdown.TableSet{
			Header: []string{"Page", "Name", "Words", "Legibility", "Status"},
			Rows:   rows,
		})
		md.PlainText("")
	}

	md.H2("Text")
	md.PlainText("")
	if r.Text == "" {
		md.PlainText("No text recognized.")
	} else {
		md.CodeBlocks(markdown.SyntaxHighlightText, r.Text)
	}

	return md.Build()
}

func pageStatus(p types.PageResult) string {
	if p.Error != "" {
		return "failed: " + p.Error
	}
	return "ok"
}

func totalWords(pages []types.PageResult) int {
	n := 0
	for _, p := range pages {
		n += p.WordCount
	}
	return n
}
