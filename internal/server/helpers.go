package server

import (
	"encoding/json"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"golang.org/x/time/rate"
)

// limiterSet holds one token bucket per client IP.
type limiterSet struct {
	mu    sync.Mutex
	every time.Duration
	burst int
	m     map[string]*clientLimiter
}

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

func newLimiterSet(every time.Duration, burst int) *limiterSet {
	if every <= 0 {
		every = 600 * time.Millisecond // ~100/min
	}
	if burst <= 0 {
		burst = 20
	}
	return &limiterSet{every: every, burst: burst, m: make(map[string]*clientLimiter)}
}

func (l *limiterSet) get(ip string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	c, ok := l.m[ip]
	if !ok {
		c = &clientLimiter{limiter: rate.NewLimiter(rate.Every(l.every), l.burst)}
		l.m[ip] = c
	}
	c.lastSeen = time.Now()
	return c.limiter
}

// sweep drops limiters not used within idle and reports how many went.
func (l *limiterSet) sweep(idle time.Duration) int {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := time.Now().Add(-idle)
	n := 0
	for ip, c := range l.m {
		if c.lastSeen.Before(cutoff) {
			delete(l.m, ip)
			n++
		}
	}
	return n
}

func getClientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Forwarded-For"); ip != "" {
		if idx := strings.Index(ip, ","); idx > 0 {
			return strings.TrimSpace(ip[:idx])
		}
		return strings.TrimSpace(ip)
	}
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return strings.TrimSpace(ip)
	}

	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func sanitizeError(err error) string {
	if err == nil {
		return ""
	}
	return sanitizeMessage(err.Error())
}

func sanitizeMessage(msg string) string {
	msg = strings.ReplaceAll(msg, os.TempDir(), "[tmp]")
	return truncate(msg, 300)
}

// sanitizeOCRError shortens engine errors for clients; the full error is
// already in the server log.
func sanitizeOCRError(msg string) string {
	lower := strings.ToLower(msg)
	switch {
	case strings.Contains(lower, "deadline exceeded") || strings.Contains(lower, "timeout"):
		return "OCR timed out"
	case strings.Contains(lower, "api key") || strings.Contains(lower, "401"):
		return "OCR provider rejected credentials"
	case strings.Contains(lower, "429") || strings.Contains(lower, "rate limit"):
		return "OCR provider rate limited"
	}
	return sanitizeMessage(msg)
}

func sanitizeLogString(s string) string {
	s = strings.ReplaceAll(s, "\n", "")
	s = strings.ReplaceAll(s, "\r", "")
	return truncate(s, 200)
}

// truncate cuts s to at most limit bytes without splitting a rune and marks
// the cut with "...".
func truncate(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeErr(w http.ResponseWriter, status int, code, message string) {
	writeJSON(w, status, map[string]any{
		"success": false,
		"error":   message,
		"code":    code,
	})
}
