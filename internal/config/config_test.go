package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig("")
	require.NoError(t, err)

	require.Equal(t, "Go-Bear", cfg.AppName)
	require.Equal(t, "8080", cfg.Server.Port)
	require.Equal(t, []string{"localhost:9092"}, cfg.Kafka.Brokers)
	require.Equal(t, "gobear-notifications", cfg.Kafka.NotificationsTopic)
	require.Equal(t, "postgres", cfg.Database.Type)
	require.Equal(t, 15*time.Minute, cfg.Auth.JWTExpiry)
	require.Equal(t, "localhost:6379", cfg.Redis.Addr)
	require.Positive(t, cfg.WebSocket.PingPeriodSeconds)
	require.Less(t, cfg.WebSocket.PingPeriodSeconds, cfg.WebSocket.PongWaitSeconds)
}

func TestLoadConfigEnvOverride(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("DATABASE_DB_NAME", "gobear_test")

	cfg, err := LoadConfig("")
	require.NoError(t, err)
	require.Equal(t, "9090", cfg.Server.Port)
	require.Equal(t, "gobear_test", cfg.Database.DBName)
}
