package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"runtime"

	"github.com/toricodesthings/ink-to-pixels/internal/scan"
	"github.com/toricodesthings/ink-to-pixels/internal/types"
	"github.com/toricodesthings/ink-to-pixels/internal/version"
)

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	active := s.metrics.snapshot().ActiveRequests
	status := "healthy"
	code := http.StatusOK

	ratio := s.cfg.HealthDegradeRatio
	if ratio <= 0 || ratio > 1 {
		ratio = 0.9
	}

	if active >= int64(float64(positive(s.cfg.MaxConcurrentRequests, 15))*ratio) {
		status = "degraded"
		code = http.StatusServiceUnavailable
	}

	writeJSON(w, code, map[string]any{
		"status":  status,
		"active":  active,
		"version": version.Get(),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)

	writeJSON(w, http.StatusOK, map[string]any{
		"requests":   s.metrics.snapshot(),
		"goroutines": runtime.NumGoroutine(),
		"memAllocMB": m.Alloc / (1 << 20),
		"memSysMB":   m.Sys / (1 << 20),
	})
}

// handleScan runs one scan cycle over an uploaded multipart body. The parts
// named "page" are the scanned pages, in order.
func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.MaxUploadBytes
	if limit > 0 {
		if r.ContentLength > limit {
			writeErr(w, http.StatusRequestEntityTooLarge, "payload_too_large",
				fmt.Sprintf("Upload exceeds %dMB limit", limit/(1<<20)))
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, limit)
	}

	mr, err := r.MultipartReader()
	if err != nil {
		writeErr(w, http.StatusBadRequest, "bad_request", sanitizeError(err))
		return
	}

	ctx := r.Context()
	if s.cfg.ScanTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.ScanTimeout)
		defer cancel()
	}
	id := s.newID()
	ctx = scan.ContextWithID(ctx, id)

	adapter := scan.NewAdapter(
		scan.UploadCapturer{Reader: mr, Field: scan.DefaultUploadField, MaxPages: s.cfg.MaxPages},
		scan.WithLogger(s.log),
		scan.WithMaxPages(s.cfg.MaxPages),
	)
	outcome := adapter.Scan(ctx)

	switch outcome.Kind {
	case scan.KindCancelled:
		s.metrics.scanCancelled()
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			writeErr(w, http.StatusGatewayTimeout, "timeout", "Scan timed out")
			return
		}
		writeJSON(w, http.StatusOK, types.ScanResponse{Success: false, Status: "cancelled", ScanID: id})
		return
	case scan.KindFailed:
		s.metrics.scanFailed()
		var tooLarge *http.MaxBytesError
		if errors.As(outcome.Cause, &tooLarge) {
			writeErr(w, http.StatusRequestEntityTooLarge, "payload_too_large",
				fmt.Sprintf("Upload exceeds %dMB limit", tooLarge.Limit/(1<<20)))
			return
		}
		writeErr(w, http.StatusUnprocessableEntity, "scan_failed", sanitizeError(outcome.Err()))
		return
	}

	// OCR capacity gating
	if len(outcome.Pages) > 0 {
		if err := s.ocrSem.Acquire(ctx, 1); err != nil {
			writeErr(w, http.StatusServiceUnavailable, "ocr_capacity", "OCR at capacity")
			return
		}
		defer s.ocrSem.Release(1)
	}

	res := s.rec.Recognize(ctx, outcome.Pages)
	s.metrics.scanRecognized(res.TotalPages, res.FailedPages)

	for i := range res.Pages {
		if res.Pages[i].Error != "" {
			res.Pages[i].Error = sanitizeOCRError(res.Pages[i].Error)
		}
	}

	writeJSON(w, http.StatusOK, types.ScanResponse{
		Success:     true,
		Status:      "recognized",
		ScanID:      id,
		Text:        res.Text,
		Pages:       res.Pages,
		TotalPages:  res.TotalPages,
		FailedPages: res.FailedPages,
	})
}
