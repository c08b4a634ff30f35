package server

import "sync"

type serverMetrics struct {
	mu sync.RWMutex
	s  metricsSnapshot
}

type metricsSnapshot struct {
	TotalRequests   int64 `json:"totalRequests"`
	ActiveRequests  int64 `json:"activeRequests"`
	ScansRecognized int64 `json:"scansRecognized"`
	ScansCancelled  int64 `json:"scansCancelled"`
	ScansFailed     int64 `json:"scansFailed"`
	PagesRecognized int64 `json:"pagesRecognized"`
	PagesFailed     int64 `json:"pagesFailed"`
}

func (m *serverMetrics) incActive() {
	m.mu.Lock()
	m.s.ActiveRequests++
	m.s.TotalRequests++
	m.mu.Unlock()
}

func (m *serverMetrics) decActive() {
	m.mu.Lock()
	m.s.ActiveRequests--
	m.mu.Unlock()
}

func (m *serverMetrics) scanCancelled() {
	m.mu.Lock()
	m.s.ScansCancelled++
	m.mu.Unlock()
}

func (m *serverMetrics) scanFailed() {
	m.mu.Lock()
	m.s.ScansFailed++
	m.mu.Unlock()
}

func (m *serverMetrics) scanRecognized(pages, failedPages int) {
	m.mu.Lock()
	m.s.ScansRecognized++
	m.s.PagesRecognized += int64(pages - failedPages)
	m.s.PagesFailed += int64(failedPages)
	m.mu.Unlock()
}

func (m *serverMetrics) snapshot() metricsSnapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.s
}
