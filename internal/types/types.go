package types

import "time"

type PageResult struct {
	PageNumber int     `json:"pageNumber"` // 1-based, capture order
	Name       string  `json:"name,omitempty"`
	Text       string  `json:"text"`
	WordCount  int     `json:"wordCount"`
	Legibility float64 `json:"legibility"`
	Error      string  `json:"error,omitempty"`
}

type RecognitionResult struct {
	Text        string       `json:"text"`
	Pages       []PageResult `json:"pages"`
	TotalPages  int          `json:"totalPages"`
	FailedPages int          `json:"failedPages"`
}

// ScanReport is what the CLI renders after a scan cycle finishes.
type ScanReport struct {
	ScanID      string       `json:"scanId"`
	Engine      string       `json:"engine"`
	Text        string       `json:"text"`
	Pages       []PageResult `json:"pages"`
	TotalPages  int          `json:"totalPages"`
	FailedPages int          `json:"failedPages"`
	ScannedAt   time.Time    `json:"scannedAt"`
}

// ── HTTP types ───────────────────────────────────────────────────────────────

type ScanResponse struct {
	Success     bool         `json:"success"`
	Status      string       `json:"status"` // "recognized" | "cancelled"
	ScanID      string       `json:"scanId,omitempty"`
	Text        string       `json:"text"`
	Pages       []PageResult `json:"pages,omitempty"`
	TotalPages  int          `json:"totalPages"`
	FailedPages int          `json:"failedPages"`
	Error       *string      `json:"error,omitempty"`
}
