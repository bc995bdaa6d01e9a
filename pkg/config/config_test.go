package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Market.QueueSizePerProducer)
	assert.EqualValues(t, 10000, cfg.Market.CartIDSpace)
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTP.Addr())
	assert.Equal(t, 5*time.Minute, cfg.MySQL.ConnMaxLifetime)
	assert.Empty(t, cfg.Redis.Addr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("MARKET_QUEUE_SIZE_PER_PRODUCER", "8")
	t.Setenv("GRPC_PORT", "6000")
	t.Setenv("REDIS_ADDR", "localhost:6379")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.Market.QueueSizePerProducer)
	assert.Equal(t, "0.0.0.0:6000", cfg.GRPC.Addr())
	assert.Equal(t, "localhost:6379", cfg.Redis.Addr)
}

func TestLoad_RejectsNonPositiveQueueSize(t *testing.T) {
	t.Setenv("MARKET_QUEUE_SIZE_PER_PRODUCER", "0")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoad_MergesDotEnvAndConfigFile(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("MARKET_QUEUE_SIZE_PER_PRODUCER=7\nAPP_NAME=from-dotenv\n"), 0o600))
	require.NoError(t, os.Mkdir(filepath.Join(dir, "config"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config", "config.env"), []byte("GRPC_PORT=7000\nAPP_NAME=from-config\n"), 0o600))
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 7, cfg.Market.QueueSizePerProducer)
	assert.Equal(t, "0.0.0.0:7000", cfg.GRPC.Addr())
	assert.Equal(t, "from-config", cfg.App.Name)
}
