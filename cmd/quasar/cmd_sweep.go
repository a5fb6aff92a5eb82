package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"

	"github.com/quasar-qkd/quasar/internal/artifact"
	"github.com/quasar-qkd/quasar/internal/logging"
	"github.com/quasar-qkd/quasar/internal/sim"
	"github.com/quasar-qkd/quasar/internal/sweep"
)

func cmdSweep(args []string) error {
	fs := flag.NewFlagSet("sweep", flag.ExitOnError)
	cfgPath := fs.String("config", "config.yaml", "config file path")
	out := fs.String("out", "", "sweep output directory (required)")
	rates := fs.String("rates", "", "comma-separated pulse rates in Hz (defaults to the config rate)")
	durations := fs.String("durations", "", "comma-separated durations in seconds (defaults to the config duration)")
	workers := fs.Int("workers", 1, "number of parallel tasks")
	logLevel := fs.String("log-level", "info", "log level: debug, info, warn, error")
	logJSON := fs.Bool("log-json", false, "emit JSON logs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *out == "" {
		return fmt.Errorf("sweep: -out is required")
	}

	log := logging.Init(logging.ParseLevel(*logLevel), *logJSON)

	cfg, err := loadConfigOrDefault(*cfgPath)
	if err != nil {
		return err
	}
	format, err := artifact.ParseFormat(cfg.Streaming.Format)
	if err != nil {
		return err
	}

	rateList := []int{cfg.Scenario.PulseRateHz}
	if *rates != "" {
		rateList, err = parseIntList(*rates)
		if err != nil {
			return fmt.Errorf("sweep: -rates: %w", err)
		}
	}
	durationList := []float64{cfg.Scenario.DurationS}
	if *durations != "" {
		durationList, err = parseFloatList(*durations)
		if err != nil {
			return fmt.Errorf("sweep: -durations: %w", err)
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	tasks := sweep.Grid(rateList, durationList, cfg.Streaming.BinSec, cfg.Streaming.ChunkSec)
	driver := sweep.New(*out, format, *workers, sim.MockGenerator{}, logging.Component(log, "sweep"))

	results, err := driver.Run(ctx, tasks)
	if err != nil {
		return err
	}
	summaryPath, err := driver.WriteSummary(results)
	if err != nil {
		return err
	}

	fmt.Println(summaryPath)
	if n := countFailed(results); n > 0 {
		return fmt.Errorf("sweep: %d of %d tasks failed (see %s)", n, len(results), summaryPath)
	}
	return nil
}

func countFailed(results []sweep.Result) int {
	n := 0
	for _, r := range results {
		if r.Err != nil {
			n++
		}
	}
	return n
}

func parseIntList(s string) ([]int, error) {
	var out []int
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func parseFloatList(s string) ([]float64, error) {
	var out []float64
	for _, part := range strings.Split(s, ",") {
		v, err := strconv.ParseFloat(strings.TrimSpace(part), 64)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}
