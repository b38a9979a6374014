package main

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/ageqc/qcpipeline/internal/batch"
	"github.com/ageqc/qcpipeline/internal/events"
	"github.com/ageqc/qcpipeline/internal/export"
	"github.com/ageqc/qcpipeline/internal/ingest"
	"github.com/ageqc/qcpipeline/internal/qctypes"
)

var (
	exportOut               string
	exportIncludeRaw        bool
	exportIncludeNormalized bool
	exportIncludeAssessment bool
	exportTitle             string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export a processed batch to CSV or PDF",
}

var exportCSVCmd = &cobra.Command{
	Use:   "csv [file]",
	Short: "Run a batch and write the subject table as CSV",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportCSV,
}

var exportPDFCmd = &cobra.Command{
	Use:   "pdf [file]",
	Short: "Run a batch and write a summary report as PDF",
	Args:  cobra.ExactArgs(1),
	RunE:  runExportPDF,
}

func init() {
	exportCmd.PersistentFlags().StringVar(&exportOut, "out", "", "output file (default: stdout for csv, report.pdf for pdf)")
	exportCmd.PersistentFlags().BoolVar(&exportIncludeRaw, "raw", true, "include raw metric columns")
	exportCmd.PersistentFlags().BoolVar(&exportIncludeNormalized, "normalized", true, "include normalized percentile/z-score columns")
	exportCmd.PersistentFlags().BoolVar(&exportIncludeAssessment, "assessment", true, "include assessment columns")
	exportPDFCmd.Flags().StringVar(&exportTitle, "title", "QC Report", "report title")
	exportCmd.AddCommand(exportCSVCmd, exportPDFCmd)
}

func runBatchForExport(file string) ([]qctypes.ProcessedSubject, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	header, rows, err := ingest.Parse(f, ingest.Options{})
	if err != nil {
		return nil, err
	}

	norm, err := loadNormativeStore()
	if err != nil {
		return nil, err
	}

	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	orch := batch.New(norm, events.New(), nil, cfg)
	_, subjects, err := orch.Run(context.Background(), uuid.NewString(), header, rows, batch.Config{
		ApplyNormalization: true,
		ApplyAssessment:    true,
	})
	return subjects, err
}

func runExportCSV(cmd *cobra.Command, args []string) error {
	subjects, err := runBatchForExport(args[0])
	if err != nil {
		return err
	}

	out := os.Stdout
	if exportOut != "" {
		f, err := os.Create(exportOut)
		if err != nil {
			return err
		}
		defer f.Close()
		out = f
	}

	filter := export.ColumnFilter{
		IncludeRaw:        exportIncludeRaw,
		IncludeNormalized: exportIncludeNormalized,
		IncludeAssessment: exportIncludeAssessment,
	}
	if err := export.WriteCSV(out, subjects, filter); err != nil {
		return err
	}
	if exportOut != "" {
		successf("wrote %d subjects to %s", len(subjects), exportOut)
	}
	return nil
}

func runExportPDF(cmd *cobra.Command, args []string) error {
	subjects, err := runBatchForExport(args[0])
	if err != nil {
		return err
	}

	norm, err := loadNormativeStore()
	if err != nil {
		return err
	}

	doc := export.BuildDocument(exportTitle, subjects, norm)

	outPath := exportOut
	if outPath == "" {
		outPath = "report.pdf"
	}
	f, err := os.Create(outPath)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := (export.FPDFRenderer{}).Render(doc, f); err != nil {
		return err
	}
	successf("wrote report for %d subjects to %s", len(subjects), outPath)
	return nil
}
