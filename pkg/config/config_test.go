package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "file", cfg.Checkpoint.Backend)
	assert.Equal(t, 500, cfg.Batch.Size)
	assert.Equal(t, "default", cfg.Batch.RunName)
	assert.Equal(t, 3, cfg.Batch.MaxRetries)
	assert.Equal(t, 5*time.Second, cfg.Batch.RetryDelay)
	assert.Equal(t, "info", cfg.Logging.Level)

	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	t.Run("RejectsNonPositiveBatchSize", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Batch.Size = 0
		assert.Error(t, cfg.Validate())
	})

	t.Run("RejectsUnknownCheckpointBackend", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Checkpoint.Backend = "etcd"
		assert.Error(t, cfg.Validate())
	})

	t.Run("RejectsEmptyRunName", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Batch.RunName = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("RejectsMissingDSN", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Database.DSN = ""
		assert.Error(t, cfg.Validate())
	})

	t.Run("AcceptsRedisBackend", func(t *testing.T) {
		cfg := DefaultConfig()
		cfg.Checkpoint.Backend = "redis"
		assert.NoError(t, cfg.Validate())
	})
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	content := `
database:
  driver: sqlite
  dsn: /tmp/tickets.db
batch:
  size: 250
  run_name: nightly
checkpoint:
  backend: redis
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromFile(path))

	assert.Equal(t, "/tmp/tickets.db", cfg.Database.DSN)
	assert.Equal(t, 250, cfg.Batch.Size)
	assert.Equal(t, "nightly", cfg.Batch.RunName)
	assert.Equal(t, "redis", cfg.Checkpoint.Backend)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("TOKENROTOR_BATCH_SIZE", "123")
	t.Setenv("TOKENROTOR_RUN_NAME", "from-env")
	t.Setenv("TOKENROTOR_CHECKPOINT_BACKEND", "redis")

	cfg := DefaultConfig()
	require.NoError(t, cfg.LoadFromEnv())

	assert.Equal(t, 123, cfg.Batch.Size)
	assert.Equal(t, "from-env", cfg.Batch.RunName)
	assert.Equal(t, "redis", cfg.Checkpoint.Backend)
}

func TestFlagOverridesWin(t *testing.T) {
	t.Setenv("TOKENROTOR_BATCH_SIZE", "123")

	cfg, err := Load("", map[string]interface{}{
		"batch-size": 999,
		"run-name":   "from-flag",
	})
	require.NoError(t, err)

	assert.Equal(t, 999, cfg.Batch.Size)
	assert.Equal(t, "from-flag", cfg.Batch.RunName)
}

func TestSaveRoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	original := DefaultConfig()
	original.Batch.Size = 777
	require.NoError(t, original.Save(path))

	loaded := DefaultConfig()
	require.NoError(t, loaded.LoadFromFile(path))
	assert.Equal(t, 777, loaded.Batch.Size)
}
