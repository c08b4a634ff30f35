// Package server exposes the scan pipeline over HTTP: a multipart upload of
// page images goes in, the recognized text comes out.
package server

import (
	"context"
	"errors"
	"net/http"
	"runtime"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/semaphore"

	"github.com/toricodesthings/ink-to-pixels/internal/config"
	"github.com/toricodesthings/ink-to-pixels/internal/scan"
	"github.com/toricodesthings/ink-to-pixels/internal/types"
)

// Recognizer turns captured pages into text. *recognize.Aggregator
// satisfies it.
type Recognizer interface {
	Recognize(ctx context.Context, pages []scan.Page) types.RecognitionResult
}

type Server struct {
	cfg config.Config
	rec Recognizer
	log zerolog.Logger

	requestSem *semaphore.Weighted
	ocrSem     *semaphore.Weighted
	limiters   *limiterSet
	metrics    *serverMetrics
	newID      func() string
}

type Option func(*Server)

func WithLogger(l zerolog.Logger) Option {
	return func(s *Server) { s.log = l }
}

func New(cfg config.Config, rec Recognizer, opts ...Option) *Server {
	s := &Server{
		cfg:        cfg,
		rec:        rec,
		log:        zerolog.Nop(),
		requestSem: semaphore.NewWeighted(positive(cfg.MaxConcurrentRequests, 15)),
		ocrSem:     semaphore.NewWeighted(positive(cfg.MaxOCRConcurrent, 3)),
		limiters:   newLimiterSet(cfg.RateLimitEvery, cfg.RateLimitBurst),
		metrics:    &serverMetrics{},
		newID:      uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(s.withLogging, s.withRecovery)

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusNotFound, "not_found", "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErr(w, http.StatusMethodNotAllowed, "method_not_allowed", "Method not allowed")
	})

	r.Get("/health", s.handleHealth)
	r.With(s.withInternalAuth).Get("/metrics", s.handleMetrics)
	r.With(s.withInternalAuth, s.withRateLimit, s.withConcurrencyLimit).Post("/scan", s.handleScan)

	return r
}

// Run serves until ctx ends, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	maxHeaderBytes := 1 << 20
	if s.cfg.MaxHeaderBytes > 0 {
		maxHeaderBytes = s.cfg.MaxHeaderBytes
	}

	srv := &http.Server{
		Addr:              ":" + s.cfg.Port,
		Handler:           s.Handler(),
		ReadHeaderTimeout: s.cfg.ReadHeaderTimeout,
		ReadTimeout:       s.cfg.ReadTimeout,
		WriteTimeout:      s.cfg.WriteTimeout,
		IdleTimeout:       s.cfg.IdleTimeout,
		MaxHeaderBytes:    maxHeaderBytes,
	}

	go s.housekeeping(ctx)

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().
			Str("addr", srv.Addr).
			Int64("max_concurrent", s.cfg.MaxConcurrentRequests).
			Int64("max_ocr", s.cfg.MaxOCRConcurrent).
			Msg("inkscan server listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	s.log.Info().Msg("shutting down")
	return srv.Shutdown(shutdownCtx)
}

// housekeeping logs runtime stats and forgets idle client rate limiters.
func (s *Server) housekeeping(ctx context.Context) {
	interval := s.cfg.CleanupInterval
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		var m runtime.MemStats
		runtime.ReadMemStats(&m)
		snap := s.metrics.snapshot()
		dropped := s.limiters.sweep(interval)
		s.log.Info().
			Int64("active", snap.ActiveRequests).
			Int64("total", snap.TotalRequests).
			Int("goroutines", runtime.NumGoroutine()).
			Uint64("mem_mb", m.Alloc/(1<<20)).
			Int("limiters_dropped", dropped).
			Msg("stats")
	}
}

func positive(n, fallback int64) int64 {
	if n <= 0 {
		return fallback
	}
	return n
}
