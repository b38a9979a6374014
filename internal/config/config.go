// Package config centralizes the tunables named in spec §6: worker pool
// size, progress event granularity, batch timeout, input size ceiling,
// composite-score weights, and per-metric trend-stability epsilons.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ageqc/qcpipeline/internal/qctypes"
)

// Config is the process-wide tunable set. It is loaded once at startup
// and never mutated while a batch is in flight (spec §6).
type Config struct {
	WorkerPoolSize            int
	ProgressEventIntervalRows int
	BatchTimeout              time.Duration // zero means no timeout
	MaxInputBytes             int64
	CompositeWeights          map[qctypes.Metric]float64
	StableSlopeEpsilon        map[qctypes.Metric]float64
	StableSigmaEpsilon        map[qctypes.Metric]float64
}

// Default stable-trend epsilons: a metric whose OLS slope magnitude and
// sample standard deviation both fall under these is classified "stable"
// regardless of p-value (spec §4.9). Chosen as a small fraction of each
// metric's sane range (spec §5 of SPEC_FULL.md).
func defaultStableSlopeEpsilon() map[qctypes.Metric]float64 {
	out := make(map[qctypes.Metric]float64, len(qctypes.AllMetrics()))
	for _, m := range qctypes.AllMetrics() {
		d := m.Descriptor()
		out[m] = (d.Max - d.Min) * 0.001
	}
	return out
}

func defaultStableSigmaEpsilon() map[qctypes.Metric]float64 {
	out := make(map[qctypes.Metric]float64, len(qctypes.AllMetrics()))
	for _, m := range qctypes.AllMetrics() {
		d := m.Descriptor()
		out[m] = (d.Max - d.Min) * 0.01
	}
	return out
}

// DefaultConfig returns the spec's documented defaults (§6): pool size 4,
// progress events every 10 rows, no timeout, 256MiB input ceiling, unit
// composite weights.
func DefaultConfig() Config {
	weights := make(map[qctypes.Metric]float64, len(qctypes.AllMetrics()))
	for _, m := range qctypes.AllMetrics() {
		weights[m] = 1.0
	}
	return Config{
		WorkerPoolSize:            4,
		ProgressEventIntervalRows: 10,
		BatchTimeout:              0,
		MaxInputBytes:             256 * 1024 * 1024,
		CompositeWeights:          weights,
		StableSlopeEpsilon:        defaultStableSlopeEpsilon(),
		StableSigmaEpsilon:        defaultStableSigmaEpsilon(),
	}
}

// Environment variable names, prefixed QCPIPELINE_ to avoid collisions.
const (
	envWorkerPoolSize = "QCPIPELINE_WORKER_POOL_SIZE"
	envProgressRows   = "QCPIPELINE_PROGRESS_EVENT_INTERVAL_ROWS"
	envBatchTimeout   = "QCPIPELINE_BATCH_TIMEOUT"
	envMaxInputBytes  = "QCPIPELINE_MAX_INPUT_BYTES"
)

// LoadFromEnv starts from DefaultConfig and overrides any scalar value
// present in the environment. Per-metric maps (composite weights,
// stability epsilons) are not environment-configurable; they keep
// DefaultConfig's values.
func LoadFromEnv() (Config, error) {
	cfg := DefaultConfig()

	if v, ok := os.LookupEnv(envWorkerPoolSize); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", envWorkerPoolSize, err)
		}
		cfg.WorkerPoolSize = n
	}
	if v, ok := os.LookupEnv(envProgressRows); ok {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", envProgressRows, err)
		}
		cfg.ProgressEventIntervalRows = n
	}
	if v, ok := os.LookupEnv(envBatchTimeout); ok {
		d, err := time.ParseDuration(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", envBatchTimeout, err)
		}
		cfg.BatchTimeout = d
	}
	if v, ok := os.LookupEnv(envMaxInputBytes); ok {
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return Config{}, fmt.Errorf("parsing %s: %w", envMaxInputBytes, err)
		}
		cfg.MaxInputBytes = n
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate enforces the range checks implied by spec §6: positive pool
// size, positive progress granularity, non-negative timeout, positive
// byte ceiling.
func (c Config) Validate() error {
	if c.WorkerPoolSize <= 0 {
		return fmt.Errorf("worker_pool_size must be positive, got %d", c.WorkerPoolSize)
	}
	if c.ProgressEventIntervalRows <= 0 {
		return fmt.Errorf("progress_event_interval_rows must be positive, got %d", c.ProgressEventIntervalRows)
	}
	if c.BatchTimeout < 0 {
		return fmt.Errorf("batch_timeout must not be negative, got %s", c.BatchTimeout)
	}
	if c.MaxInputBytes <= 0 {
		return fmt.Errorf("max_input_bytes must be positive, got %d", c.MaxInputBytes)
	}
	return nil
}
