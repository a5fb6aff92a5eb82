package main

import (
	"context"
	"flag"
	"fmt"
	"math"

	"github.com/quasar-qkd/quasar/internal/artifact"
	"github.com/quasar-qkd/quasar/internal/logging"
	"github.com/quasar-qkd/quasar/internal/report"
)

func cmdReport(args []string) error {
	fs := flag.NewFlagSet("report", flag.ExitOnError)
	dir := fs.String("dir", "", "run directory to summarize (required)")
	format := fs.String("format", "parquet", "artifact format: parquet or csv")
	logLevel := fs.String("log-level", "warn", "log level: debug, info, warn, error")
	logJSON := fs.Bool("log-json", false, "emit JSON logs")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *dir == "" {
		return fmt.Errorf("report: -dir is required")
	}

	log := logging.Init(logging.ParseLevel(*logLevel), *logJSON)

	f, err := artifact.ParseFormat(*format)
	if err != nil {
		return err
	}

	svc, err := report.New(logging.Component(log, "report"))
	if err != nil {
		return err
	}
	defer svc.Close()

	sum, err := svc.Summarize(context.Background(), *dir, f)
	if err != nil {
		return err
	}

	fmt.Printf("run %s (%s)\n", sum.Dir, sum.Format)
	for _, cs := range sum.Categories {
		fmt.Printf("  %-9s rows=%-8d span=[%g, %g]\n", cs.Category, cs.Rows, cs.TimeStart, cs.TimeEnd)
		for _, col := range cs.Category.Schema() {
			if mean, ok := cs.Means[col.Name]; ok {
				fmt.Printf("    mean(%s) = %g\n", col.Name, mean)
			}
		}
	}
	if !math.IsNaN(sum.SecretRateMean) {
		fmt.Printf("secret key rate: mean=%g", sum.SecretRateMean)
		if q := sum.SecretRate; q != nil {
			fmt.Printf(" p50=%g p90=%g p95=%g p99=%g", q.P50, q.P90, q.P95, q.P99)
		}
		fmt.Println()
	}
	return nil
}
