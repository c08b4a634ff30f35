package report

import (
	"encoding/json"
	"io"

	"github.com/toricodesthings/ink-to-pixels/internal/types"
)

// JSONWriter outputs the full report for tool integration.
type JSONWriter struct {
	out    io.Writer
	indent string
}

func (w *JSONWriter) Write(r types.ScanReport) error {
	if r.Pages == nil {
		r.Pages = []types.PageResult{}
	}
	enc := json.NewEncoder(w.out)
	enc.SetIndent("", w.indent)
	return enc.Encode(r)
}
