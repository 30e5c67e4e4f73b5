package config

import (
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Port)
	assert.Equal(t, RoleAll, cfg.Role)
	assert.Equal(t, QueueRedis, cfg.QueueDriver)
	assert.Equal(t, 3, cfg.QueueMaxAttempts)
	assert.Equal(t, 5, cfg.FanoutConcurrency)
	assert.Equal(t, 5*time.Second, cfg.StatsSyncInterval)
	assert.Equal(t, 100, cfg.StatsSyncBatch)
	assert.Equal(t, 24*time.Hour, cfg.CacheTTL)
	assert.Equal(t, 20, cfg.FeedDefaultLimit)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.True(t, cfg.RunsAPI())
	assert.True(t, cfg.RunsWorker())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ROLE", "worker")
	t.Setenv("QUEUE_DRIVER", "kafka")
	t.Setenv("KAFKA_BROKERS", "k1:9092, k2:9092")
	t.Setenv("STATS_SYNC_INTERVAL", "250ms")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Port)
	assert.False(t, cfg.RunsAPI())
	assert.True(t, cfg.RunsWorker())
	assert.Equal(t, QueueKafka, cfg.QueueDriver)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.KafkaBrokers)
	assert.Equal(t, 250*time.Millisecond, cfg.StatsSyncInterval)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
}

func TestLoadInvalid(t *testing.T) {
	cases := map[string]string{
		"PORT":                "abc",
		"STATS_SYNC_INTERVAL": "soon",
		"ROLE":                "scheduler",
		"QUEUE_DRIVER":        "sqs",
		"FANOUT_CONCURRENCY":  "0",
	}
	for key, val := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, val)
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
