// Command qcpipeline is the CLI driver around the Age-Normalized QC
// Pipeline core: ingest validation, batch runs, CSV/PDF export,
// longitudinal trend queries, and study configuration management. The
// core packages never import this package.
package main

import (
	"os"

	"github.com/fatih/color"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func fatalf(format string, args ...any) {
	color.New(color.FgRed).Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}

func infof(format string, args ...any) {
	color.New(color.FgCyan).Fprintf(os.Stdout, format+"\n", args...)
}

func successf(format string, args ...any) {
	color.New(color.FgGreen).Fprintf(os.Stdout, format+"\n", args...)
}

func warnf(format string, args ...any) {
	color.New(color.FgYellow).Fprintf(os.Stdout, format+"\n", args...)
}
