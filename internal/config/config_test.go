package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setRequired sets the two variables without defaults.
func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("PRODUCT_ID", "E00")
	t.Setenv("SAVE_DIRECTORY", "/data/l2p")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"localhost:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "asar-l1-jobs", cfg.KafkaJobsTopic)
	assert.Equal(t, "asar-l2-products", cfg.KafkaProductsTopic)
	assert.Equal(t, "asar-seastate-processor", cfg.KafkaGroupID)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.Equal(t, 10*time.Second, cfg.ShutdownTimeout)
	assert.Equal(t, 50, cfg.BatchSize)
	assert.Equal(t, 500*time.Millisecond, cfg.BatchFlushInterval)
	assert.Equal(t, "E00", cfg.ProductID)
	assert.Equal(t, "config", cfg.ConfigDir)
	assert.Equal(t, "models", cfg.ModelDir)
	assert.Equal(t, "/data/l2p", cfg.SaveDirectory)
	assert.True(t, cfg.DateDirectories)
	assert.False(t, cfg.Overwrite)
	assert.False(t, cfg.HindcastEnabled)
	assert.Equal(t, 0.2, cfg.HindcastWeight)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("BATCH_SIZE", "8")
	t.Setenv("DATE_DIRECTORIES", "false")
	t.Setenv("OVERWRITE", "true")
	t.Setenv("HINDCAST_URL", "http://ww3:8090")
	t.Setenv("HINDCAST_WEIGHT", "0.5")
	t.Setenv("HINDCAST_CACHE_SIZE", "10")
	t.Setenv("WATCH_DIRECTORY", "/data/incoming")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, "/data/incoming", cfg.WatchDirectory)
	assert.Equal(t, 8, cfg.BatchSize)
	assert.False(t, cfg.DateDirectories)
	assert.True(t, cfg.Overwrite)
	assert.True(t, cfg.HindcastEnabled)
	assert.Equal(t, "http://ww3:8090", cfg.HindcastURL)
	assert.Equal(t, 0.5, cfg.HindcastWeight)
	assert.Equal(t, 10, cfg.HindcastCacheSize)
}

func TestLoad_HindcastFlagOverridesURL(t *testing.T) {
	setRequired(t)
	t.Setenv("HINDCAST_URL", "http://ww3:8090")
	t.Setenv("HINDCAST_ENABLED", "false")

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.HindcastEnabled)
}

func TestLoad_Validation(t *testing.T) {
	t.Run("missing product ID", func(t *testing.T) {
		t.Setenv("SAVE_DIRECTORY", "/data/l2p")
		_, err := Load()
		assert.ErrorContains(t, err, "PRODUCT_ID")
	})

	t.Run("product ID must be three characters", func(t *testing.T) {
		setRequired(t)
		t.Setenv("PRODUCT_ID", "E000")
		_, err := Load()
		assert.ErrorContains(t, err, "3-character")
	})

	t.Run("missing save directory", func(t *testing.T) {
		t.Setenv("PRODUCT_ID", "E00")
		_, err := Load()
		assert.ErrorContains(t, err, "SAVE_DIRECTORY")
	})

	t.Run("hindcast enabled without URL", func(t *testing.T) {
		setRequired(t)
		t.Setenv("HINDCAST_ENABLED", "true")
		_, err := Load()
		assert.ErrorContains(t, err, "HINDCAST_URL")
	})

	t.Run("hindcast weight out of range", func(t *testing.T) {
		setRequired(t)
		t.Setenv("HINDCAST_WEIGHT", "1.5")
		_, err := Load()
		assert.ErrorContains(t, err, "HINDCAST_WEIGHT")
	})

	t.Run("invalid batch size", func(t *testing.T) {
		setRequired(t)
		t.Setenv("BATCH_SIZE", "zero")
		_, err := Load()
		assert.ErrorContains(t, err, "BATCH_SIZE")
	})

	t.Run("invalid duration", func(t *testing.T) {
		setRequired(t)
		t.Setenv("SHUTDOWN_TIMEOUT", "-3s")
		_, err := Load()
		assert.ErrorContains(t, err, "SHUTDOWN_TIMEOUT")
	})
}
