package main

import (
	"bytes"
	"context"
	"io"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toricodesthings/ink-to-pixels/internal/config"
	"github.com/toricodesthings/ink-to-pixels/internal/recognize"
	"github.com/toricodesthings/ink-to-pixels/internal/scan"
	"github.com/toricodesthings/ink-to-pixels/internal/ui"
)

type countingProgress struct {
	starts, stops int
}

func (p *countingProgress) Start() { p.starts++ }
func (p *countingProgress) Stop()  { p.stops++ }

func TestRunSessionInterruptDuringCapture(t *testing.T) {
	capturing := make(chan struct{})
	// Like a scanning sheet left open: it only ends when its context does.
	capturer := scan.CapturerFunc(func(ctx context.Context, d scan.Delegate) {
		close(capturing)
		<-ctx.Done()
		d.Cancelled()
	})

	interrupt, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		<-capturing
		cancel()
	}()

	engine := &countingEngine{}
	p := &countingProgress{}
	state := runSession(interrupt,
		interruptible{adapter: scan.NewAdapter(capturer), interrupt: interrupt},
		recognize.New(engine), zerolog.Nop(), p)

	assert.Equal(t, ui.PhaseIdle, state.Phase)
	assert.Equal(t, scan.KindCancelled, state.LastOutcome)
	assert.Equal(t, 1, state.Sessions)
	assert.Empty(t, state.DisplayText)
	assert.Zero(t, engine.calls.Load(), "no OCR after a cancelled capture")
	assert.Equal(t, 1, p.starts)
	assert.Equal(t, 1, p.stops)
}

func TestScanInterruptedPrintsNothing(t *testing.T) {
	useFakeEngine(t)

	// stdin that never delivers a line keeps the interactive sheet open.
	stdin, stdinW := io.Pipe()
	t.Cleanup(func() { _ = stdinW.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	time.AfterFunc(50*time.Millisecond, cancel)

	var stdout, stderr bytes.Buffer
	cmd := NewRootCmd()
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetIn(stdin)
	cmd.SetArgs([]string{"scan", "--config", emptyConfig(t), "--interactive", "--format", "json"})

	done := make(chan error, 1)
	go func() { done <- cmd.ExecuteContext(ctx) }()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("scan did not return after interrupt")
	}
	assert.Empty(t, stdout.String())
}

func TestNewLoggerLevel(t *testing.T) {
	cfg := config.Defaults()

	assert.Equal(t, zerolog.WarnLevel, newLogger(io.Discard, cfg, false).GetLevel())
	assert.Equal(t, zerolog.DebugLevel, newLogger(io.Discard, cfg, true).GetLevel())

	cfg.LogLevel = "error"
	assert.Equal(t, zerolog.ErrorLevel, newLogger(io.Discard, cfg, false).GetLevel())
	assert.Equal(t, zerolog.DebugLevel, newLogger(io.Discard, cfg, true).GetLevel(), "-v wins")
}

func TestScanHonoursLogLevelEnv(t *testing.T) {
	useFakeEngine(t)
	t.Setenv("LOG_LEVEL", "info")
	page := writePage(t, t.TempDir(), "a.png", 2)

	_, stderr, err := execute(t, "", "scan", "--config", emptyConfig(t), page)
	require.NoError(t, err)
	assert.Contains(t, stderr, "recognition finished")
}
