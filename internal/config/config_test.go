package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ageqc/qcpipeline/internal/qctypes"
)

func TestDefaultConfigMatchesSpecDefaults(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 4, cfg.WorkerPoolSize)
	assert.Equal(t, 10, cfg.ProgressEventIntervalRows)
	assert.Equal(t, int64(256*1024*1024), cfg.MaxInputBytes)
	assert.Equal(t, 1.0, cfg.CompositeWeights[qctypes.SNR])
	require.NoError(t, cfg.Validate())
}

func TestLoadFromEnvOverridesScalars(t *testing.T) {
	t.Setenv(envWorkerPoolSize, "8")
	t.Setenv(envProgressRows, "25")
	t.Setenv(envBatchTimeout, "90s")
	t.Setenv(envMaxInputBytes, "1024")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, 8, cfg.WorkerPoolSize)
	assert.Equal(t, 25, cfg.ProgressEventIntervalRows)
	assert.Equal(t, int64(1024), cfg.MaxInputBytes)
}

func TestLoadFromEnvRejectsInvalidValue(t *testing.T) {
	t.Setenv(envWorkerPoolSize, "not-a-number")
	_, err := LoadFromEnv()
	assert.Error(t, err)
}

func TestValidateRejectsNonPositivePoolSize(t *testing.T) {
	cfg := DefaultConfig()
	cfg.WorkerPoolSize = 0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNegativeTimeout(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BatchTimeout = -1
	assert.Error(t, cfg.Validate())
}
