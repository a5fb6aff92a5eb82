package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quasar-qkd/quasar/internal/artifact"
	"github.com/quasar-qkd/quasar/internal/config"
	"github.com/quasar-qkd/quasar/internal/logging"
	"github.com/quasar-qkd/quasar/internal/orchestrator"
	"github.com/quasar-qkd/quasar/internal/sim"
)

func cmdRun(args []string) error {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "config file path")
	outDir := fs.String("out", "", "output directory (overrides config)")
	format := fs.String("format", "", "artifact format: parquet or csv (overrides config)")
	overwrite := fs.Bool("overwrite", false, "replace existing artifacts")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	logJSON := fs.Bool("log-json", false, "emit JSON logs")
	if err := fs.Parse(args); err != nil {
		return err
	}

	log := logging.Init(logging.ParseLevel(*logLevel), *logJSON)

	cfg, err := loadConfigOrDefault(*cfgPath)
	if err != nil {
		return err
	}
	if *outDir != "" {
		cfg.Scenario.OutputDir = *outDir
	}
	if *format != "" {
		cfg.Streaming.Format = *format
	}
	if *overwrite {
		cfg.Streaming.Overwrite = true
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	fmtArtifact, err := artifact.ParseFormat(cfg.Streaming.Format)
	if err != nil {
		return err
	}

	// Ctrl-C stops the run at the next chunk boundary.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runID := time.Now().UTC().Format("20060102T150405")
	runLog := logging.WithRun(logging.Component(log, "orchestrator"), runID)

	o := orchestrator.New(sim.MockGenerator{}, runLog)
	store, err := o.Run(ctx, orchestrator.Params{
		Rate:         cfg.Scenario.PulseRateHz,
		Duration:     cfg.Scenario.DurationS,
		BinWidth:     cfg.Streaming.BinSec,
		ChunkWidth:   cfg.Streaming.ChunkSec,
		StrictSchema: cfg.Streaming.StrictSchema,
	})
	if err != nil {
		return err
	}

	dir, err := o.Write(store, cfg.Scenario.OutputDir, fmtArtifact, cfg.Streaming.Overwrite)
	if err != nil {
		return err
	}

	fmt.Println(dir)
	return nil
}

func loadConfigOrDefault(path string) (*config.Config, error) {
	cfg, err := config.Load(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return config.DefaultConfig(), nil
		}
		return nil, err
	}
	return cfg, nil
}
