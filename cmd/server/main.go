package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/toricodesthings/ink-to-pixels/internal/config"
	"github.com/toricodesthings/ink-to-pixels/internal/logging"
	"github.com/toricodesthings/ink-to-pixels/internal/ocr/provider"
	"github.com/toricodesthings/ink-to-pixels/internal/recognize"
	"github.com/toricodesthings/ink-to-pixels/internal/server"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "inkscan-server:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load(os.Getenv(config.ConfigFileEnv))
	if err != nil {
		return err
	}
	if err := cfg.ValidateServer(); err != nil {
		return err
	}

	log := logging.New(logging.Config{Level: cfg.LogLevel, Format: cfg.LogFormat, Service: "inkscan-server"})

	engine, err := provider.New(cfg)
	if err != nil {
		return err
	}

	agg := recognize.New(engine,
		recognize.WithWorkers(cfg.MaxPageWorkers),
		recognize.WithSeparator(cfg.PageSeparator),
		recognize.WithLogger(log),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return server.New(cfg, agg, server.WithLogger(log)).Run(ctx)
}
