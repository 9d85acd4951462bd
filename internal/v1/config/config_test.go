package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateEnv_Defaults(t *testing.T) {
	cfg, err := ValidateEnv()
	require.NoError(t, err)

	assert.Equal(t, "3001", cfg.Port)
	assert.Equal(t, "http://localhost:3000", cfg.FrontendOrigin)
	assert.Equal(t, time.Second, cfg.PingInterval)
	assert.Equal(t, 3*time.Second, cfg.PongTimeout)
	assert.Equal(t, 250*time.Millisecond, cfg.TieWindow)
	assert.Equal(t, 50*time.Millisecond, cfg.TieBuffer)
	assert.Equal(t, 30*time.Second, cfg.FinalAnswerTimeout)
	assert.Equal(t, time.Minute, cfg.RoomGrace)
	assert.Equal(t, BackendFilesystem, cfg.PersistenceBackend)
	assert.Equal(t, "./saved-games", cfg.GamesDir)
	assert.Equal(t, "300-M", cfg.RateLimitAPI)
}

func TestValidateEnv_InvalidPort(t *testing.T) {
	t.Setenv("PORT", "99999")

	_, err := ValidateEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
}

func TestValidateEnv_InvalidDuration(t *testing.T) {
	t.Setenv("TIE_WINDOW_MS", "-5")

	_, err := ValidateEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TIE_WINDOW_MS")
}

func TestValidateEnv_OverriddenDurations(t *testing.T) {
	t.Setenv("TIE_WINDOW_MS", "500")
	t.Setenv("ROOM_GRACE_MS", "120000")

	cfg, err := ValidateEnv()
	require.NoError(t, err)
	assert.Equal(t, 500*time.Millisecond, cfg.TieWindow)
	assert.Equal(t, 2*time.Minute, cfg.RoomGrace)
}

func TestValidateEnv_PongMustExceedPing(t *testing.T) {
	t.Setenv("PING_INTERVAL_MS", "3000")
	t.Setenv("PONG_TIMEOUT_MS", "1000")

	_, err := ValidateEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PONG_TIMEOUT_MS")
}

func TestValidateEnv_DocumentStoreBackend(t *testing.T) {
	t.Setenv("PERSISTENCE_BACKEND", BackendDocumentStore)
	t.Setenv("REDIS_ADDR", "redis.internal:6380")

	cfg, err := ValidateEnv()
	require.NoError(t, err)
	assert.Equal(t, BackendDocumentStore, cfg.PersistenceBackend)
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
}

func TestValidateEnv_BadRedisAddr(t *testing.T) {
	t.Setenv("PERSISTENCE_BACKEND", BackendDocumentStore)
	t.Setenv("REDIS_ADDR", "not-an-addr")

	_, err := ValidateEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "REDIS_ADDR")
}

func TestValidateEnv_UnknownBackend(t *testing.T) {
	t.Setenv("PERSISTENCE_BACKEND", "carrier-pigeon")

	_, err := ValidateEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PERSISTENCE_BACKEND")
}

func TestValidateEnv_ErrorsAccumulate(t *testing.T) {
	t.Setenv("PORT", "0")
	t.Setenv("TIE_BUFFER_MS", "abc")

	_, err := ValidateEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PORT")
	assert.Contains(t, err.Error(), "TIE_BUFFER_MS")
}
