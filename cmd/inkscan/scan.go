package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/briandowns/spinner"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/toricodesthings/ink-to-pixels/internal/config"
	"github.com/toricodesthings/ink-to-pixels/internal/logging"
	"github.com/toricodesthings/ink-to-pixels/internal/ocr"
	"github.com/toricodesthings/ink-to-pixels/internal/ocr/provider"
	"github.com/toricodesthings/ink-to-pixels/internal/recognize"
	"github.com/toricodesthings/ink-to-pixels/internal/report"
	"github.com/toricodesthings/ink-to-pixels/internal/scan"
	"github.com/toricodesthings/ink-to-pixels/internal/types"
	"github.com/toricodesthings/ink-to-pixels/internal/ui"
)

var (
	ErrNoSource           = errors.New("no page source: pass image files, --dir, --pdf or --interactive")
	ErrConflictingSources = errors.New("choose only one page source: image files, --dir, --pdf or --interactive")
)

// newEngine is swapped out in tests.
var newEngine = provider.New

type scanOptions struct {
	dir         string
	pdf         string
	interactive bool
	format      string
	configPath  string
	languages   []string
	psm         int
	engine      string
	workers     int
}

func NewScanCmd() *cobra.Command {
	opts := &scanOptions{}
	cmd := &cobra.Command{
		Use:   "scan [image...]",
		Short: "Scan pages and print the recognized text",
		Long: `Scan runs one scan cycle: pages are captured from exactly one source,
every page is recognized concurrently, and the pages' text is printed
joined by newlines in capture order.

Cancelling the scan (Ctrl-C, or "cancel" in interactive mode) prints
nothing. A scan that fails before any page is captured prints nothing
either; the cause is logged to stderr.

Examples:
  inkscan scan page1.png page2.png
  inkscan scan --dir ./scans
  inkscan scan --pdf letter.pdf --format markdown
  inkscan scan --interactive --lang eng,deu`,
		Args: cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runScanCmd(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.dir, "dir", "d", "", "Scan every image in a directory, ordered by name")
	cmd.Flags().StringVar(&opts.pdf, "pdf", "", "Scan every page of a PDF (requires poppler-utils)")
	cmd.Flags().BoolVarP(&opts.interactive, "interactive", "i", false, "Enter page paths one at a time")
	cmd.Flags().StringVarP(&opts.format, "format", "f", report.FormatText, "Output format: text, json or markdown")
	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Config file (default: $XDG_CONFIG_HOME/inkscan/config.yaml)")
	cmd.Flags().StringSliceVarP(&opts.languages, "lang", "l", nil, "Tesseract languages, e.g. eng,deu")
	cmd.Flags().IntVar(&opts.psm, "psm", 0, "Tesseract page segmentation mode")
	cmd.Flags().StringVarP(&opts.engine, "engine", "e", "", "OCR engine: tesseract or mistral")
	cmd.Flags().IntVarP(&opts.workers, "workers", "w", 0, "Pages recognized at once")

	return cmd
}

func runScanCmd(cmd *cobra.Command, args []string, opts *scanOptions) error {
	cfg, err := config.Load(opts.configPath)
	if err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}
	applyFlags(cmd, opts, &cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("configuration error: %w", err)
	}

	capturer, err := selectCapturer(cmd, args, opts, cfg)
	if err != nil {
		return err
	}

	out, err := report.New(opts.format, cmd.OutOrStdout())
	if err != nil {
		return err
	}

	verbose, _ := cmd.Flags().GetBool("verbose")
	log := newLogger(cmd.ErrOrStderr(), cfg, verbose)

	engine, err := newEngine(cfg)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	adapter := scan.NewAdapter(capturer, scan.WithLogger(log), scan.WithMaxPages(cfg.MaxPages))
	agg := recognize.New(engine,
		recognize.WithWorkers(cfg.MaxPageWorkers),
		recognize.WithSeparator(cfg.PageSeparator),
		recognize.WithLogger(log),
	)

	state := runSession(ctx, interruptible{adapter: adapter, interrupt: ctx}, agg, log,
		newScanSpinner(cmd.ErrOrStderr(), opts.interactive))

	if state.LastOutcome != scan.KindPages {
		// Cancelled and failed scans leave the display text as it was: empty.
		return nil
	}
	return out.Write(scanReport(state, engine))
}

func applyFlags(cmd *cobra.Command, opts *scanOptions, cfg *config.Config) {
	flags := cmd.Flags()
	if flags.Changed("lang") {
		cfg.OCRLanguages = opts.languages
	}
	if flags.Changed("psm") {
		cfg.OCRPageSegMode = opts.psm
	}
	if flags.Changed("engine") {
		cfg.OCREngine = opts.engine
	}
	if flags.Changed("workers") {
		cfg.MaxPageWorkers = opts.workers
	}
}

func selectCapturer(cmd *cobra.Command, args []string, opts *scanOptions, cfg config.Config) (scan.Capturer, error) {
	var sources []scan.Capturer
	if len(args) > 0 {
		sources = append(sources, scan.FileCapturer{Paths: args})
	}
	if opts.dir != "" {
		sources = append(sources, scan.DirCapturer{Dir: opts.dir})
	}
	if opts.pdf != "" {
		sources = append(sources, scan.PDFCapturer{
			Path:          opts.pdf,
			DPI:           cfg.PDFRenderDPI,
			InfoTimeout:   cfg.PDFInfoTimeout,
			RenderTimeout: cfg.PDFToPPMTimeout,
		})
	}
	if opts.interactive {
		sources = append(sources, scan.PromptCapturer{In: cmd.InOrStdin(), Out: cmd.ErrOrStderr()})
	}

	switch len(sources) {
	case 0:
		return nil, ErrNoSource
	case 1:
		return sources[0], nil
	default:
		return nil, ErrConflictingSources
	}
}

// newLogger logs to stderr at warn unless LOG_LEVEL or the config file says
// otherwise. -v always means debug.
func newLogger(w io.Writer, cfg config.Config, verbose bool) zerolog.Logger {
	level := cfg.LogLevel
	if level == "" {
		level = "warn"
	}
	if verbose {
		level = "debug"
	}
	format := cfg.LogFormat
	if format == "" {
		format = "console"
	}
	return logging.New(logging.Config{Level: level, Format: format, Output: w})
}

// interruptible ends the capture session when interrupt ends, without
// tearing down the controller loop that has to observe the cancellation.
type interruptible struct {
	adapter   *scan.Adapter
	interrupt context.Context
}

func (s interruptible) Scan(ctx context.Context) scan.Outcome {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(s.interrupt, cancel)
	defer stop()
	return s.adapter.Scan(ctx)
}

type progress interface {
	Start()
	Stop()
}

// runSession presses Scan once and waits for the controller to settle.
func runSession(ctx context.Context, s ui.Scanner, r ui.Recognizer, log zerolog.Logger, p progress) ui.ViewState {
	changes := make(chan ui.ViewState, 8)
	ctrl := ui.NewController(s, r,
		ui.WithLogger(log),
		ui.OnChange(func(v ui.ViewState) {
			select {
			case changes <- v:
			default:
			}
		}),
	)

	// The loop outlives ctx so a cancelled scan is still observed.
	loopCtx, stopLoop := context.WithCancel(context.WithoutCancel(ctx))
	defer stopLoop()
	go func() { _ = ctrl.Run(loopCtx) }()

	ctrl.RequestScan()
	for v := range changes {
		switch v.Phase {
		case ui.PhaseScanning:
			p.Start()
		case ui.PhaseIdle:
			p.Stop()
			if v.Sessions > 0 {
				return v
			}
		}
	}
	return ui.ViewState{}
}

type noProgress struct{}

func (noProgress) Start() {}
func (noProgress) Stop()  {}

// newScanSpinner shows a spinner on a terminal stderr. Interactive sessions
// own the terminal, so they get none.
func newScanSpinner(w io.Writer, interactive bool) progress {
	if interactive || w != io.Writer(os.Stderr) {
		return noProgress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond)
	s.Suffix = " scanning"
	s.Writer = os.Stderr
	return s
}

func scanReport(state ui.ViewState, engine ocr.Engine) types.ScanReport {
	failed := 0
	for _, p := range state.Pages {
		if p.Error != "" {
			failed++
		}
	}
	return types.ScanReport{
		ScanID:      state.ScanID,
		Engine:      engine.Name(),
		Text:        state.DisplayText,
		Pages:       state.Pages,
		TotalPages:  len(state.Pages),
		FailedPages: failed,
		ScannedAt:   time.Now().UTC(),
	}
}
