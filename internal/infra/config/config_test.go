package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg, err := FromViper(viper.New())
	require.NoError(t, err)
	assert.Equal(t, "dev", cfg.Env)
	assert.Equal(t, StorageMemory, cfg.StorageMode)
	assert.Equal(t, 5*time.Second, cfg.ICalFetchTimeout)
	assert.Equal(t, 15*time.Minute, cfg.ICalSyncInterval)
	assert.Equal(t, []time.Duration{time.Second, 5 * time.Second, 30 * time.Second}, cfg.RetryBackoff)
	assert.Empty(t, cfg.KafkaBrokers)
	assert.Equal(t, 4, cfg.ICalSyncWorkers)
}

func TestEnvironmentOverrides(t *testing.T) {
	t.Setenv("STORAGE_MODE", "Mongo")
	t.Setenv("MONGO_URI", "mongodb://localhost:27017")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092,")
	t.Setenv("RETRY_BACKOFF", "2s,10s")
	t.Setenv("S3_USE_SSL", "yes")
	t.Setenv("PUBLIC_BASE_URL", "https://book.example.com/")

	cfg, err := FromViper(viper.New())
	require.NoError(t, err)
	assert.Equal(t, StorageMongo, cfg.StorageMode)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, []time.Duration{2 * time.Second, 10 * time.Second}, cfg.RetryBackoff)
	assert.True(t, cfg.S3UseSSL)
	assert.Equal(t, "https://book.example.com", cfg.PublicBaseURL)
}

func TestInvalidValues(t *testing.T) {
	cases := []struct {
		name string
		key  string
		val  string
	}{
		{"mongo without uri", "STORAGE_MODE", "mongo"},
		{"unknown storage", "STORAGE_MODE", "sqlite"},
		{"bad duration", "ICAL_FETCH_TIMEOUT", "soon"},
		{"bad backoff", "RETRY_BACKOFF", "1s,later"},
		{"bad bool", "S3_USE_SSL", "maybe"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv(tc.key, tc.val)
			_, err := FromViper(viper.New())
			assert.Error(t, err)
		})
	}
}
