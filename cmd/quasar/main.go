// quasar runs QKD simulation experiments and reports their key-performance
// metrics.
package main

import (
	"fmt"
	"os"
)

// Version is set at build time via ldflags.
var Version = "dev"

func usage() {
	fmt.Fprintf(os.Stderr, `quasar %s - QKD experiment metric pipeline

Usage:
  quasar run    [flags]   run one simulation and write its artifacts
  quasar sweep  [flags]   run a parameter sweep and write a summary
  quasar report [flags]   summarize a written run directory
  quasar version          print the version

Run "quasar <command> -h" for command flags.
`, Version)
}

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "run":
		err = cmdRun(os.Args[2:])
	case "sweep":
		err = cmdSweep(os.Args[2:])
	case "report":
		err = cmdReport(os.Args[2:])
	case "version":
		fmt.Println(Version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}
	if err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
