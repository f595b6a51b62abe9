package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	req := require.New(t)

	c, err := Load()

	req.NoError(err)
	req.Equal(":8081", c.HTTPAddr)
	req.Equal("store.events", c.EventsTopic)
	req.Equal(168*time.Hour, c.SessionTTL)
	req.False(c.InMemory())
}

func TestLoadFromEnv(t *testing.T) {
	req := require.New(t)
	t.Setenv("HTTP_ADDR", ":9999")
	t.Setenv("KAFKA_BROKERS", "k1:9092, ,k2:9092")
	t.Setenv("STORAGE", "Memory")
	t.Setenv("SESSION_TTL", "30m")

	c, err := Load()

	req.NoError(err)
	req.Equal(":9999", c.HTTPAddr)
	req.Equal([]string{"k1:9092", "k2:9092"}, c.Brokers())
	req.True(c.InMemory())
	req.Equal(30*time.Minute, c.SessionTTL)
}

func TestLoadRejectsBadDuration(t *testing.T) {
	t.Setenv("SESSION_TTL", "forever")

	_, err := Load()

	require.Error(t, err)
}
