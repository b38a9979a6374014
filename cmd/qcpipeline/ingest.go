package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ageqc/qcpipeline/internal/ingest"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Parse and validate a CSV QC report without running a batch",
	Args:  cobra.ExactArgs(1),
	RunE:  runIngest,
}

func runIngest(cmd *cobra.Command, args []string) error {
	f, err := os.Open(args[0])
	if err != nil {
		return err
	}
	defer f.Close()

	header, rows, err := ingest.Parse(f, ingest.Options{})
	if err != nil {
		return err
	}

	if schemaErrs := ingest.ValidateSchema(header); len(schemaErrs) > 0 {
		for _, e := range schemaErrs {
			warnf("schema: %s", e.Error())
		}
		return nil
	}

	failed := 0
	for i, row := range rows {
		if _, _, err := ingest.ToSubject(row, header); err != nil {
			warnf("row %d: %v", i, err)
			failed++
		}
	}

	successf("parsed %d rows, %d valid, %d failed", len(rows), len(rows)-failed, failed)
	return nil
}
