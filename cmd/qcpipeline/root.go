package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/ageqc/qcpipeline/internal/config"
	"github.com/ageqc/qcpipeline/internal/normative"
	"github.com/ageqc/qcpipeline/internal/storage"
)

var (
	dbPath         string
	normativePath  string
	workerPoolSize int
	verbose        bool

	// logger is the process-wide structured logger, built once in
	// rootCmd's PersistentPreRunE once flags are parsed.
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "qcpipeline",
	Short: "Age-normalized MRI QC pipeline: ingest, batch, export, longitudinal, study",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfg := zap.NewProductionConfig()
		if verbose {
			cfg.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = cfg.Build()
		if err != nil {
			return fmt.Errorf("initializing logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&dbPath, "db", "qcpipeline.db", "path to the SQLite state database")
	rootCmd.PersistentFlags().StringVar(&normativePath, "normative-dataset", "", "path to the normative dataset YAML (required by batch/export/longitudinal commands)")
	rootCmd.PersistentFlags().IntVar(&workerPoolSize, "workers", 0, "override worker_pool_size (0 = use config default)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug-level structured logging")

	rootCmd.AddCommand(ingestCmd, batchCmd, exportCmd, longitudinalCmd, studyCmd, versionCmd)
}

// openStore opens the shared SQLite-backed state store.
func openStore() (*storage.SQLiteStore, error) {
	return storage.Open(dbPath)
}

// loadNormativeStore loads the normative dataset named by --normative-dataset.
func loadNormativeStore() (*normative.Store, error) {
	if normativePath == "" {
		return nil, fmt.Errorf("--normative-dataset is required for this command")
	}
	return normative.LoadFile(normativePath)
}

// loadConfig loads the process Config from the environment, applying
// the --workers override if set.
func loadConfig() (config.Config, error) {
	cfg, err := config.LoadFromEnv()
	if err != nil {
		return config.Config{}, err
	}
	if workerPoolSize > 0 {
		cfg.WorkerPoolSize = workerPoolSize
	}
	return cfg, nil
}
