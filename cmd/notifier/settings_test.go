package main

import (
	"testing"
	"time"

	"github.com/Netflix/go-env"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSettings(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		var settings Settings
		err := env.Unmarshal(env.EnvSet{"JWT_SECRET": "secret"}, &settings)
		require.NoError(t, err)

		assert.Equal(t, 8000, settings.Port)
		assert.Equal(t, "memory", settings.StoreDriver)
		assert.Equal(t, "debug", settings.LogLevel)
		assert.Empty(t, settings.APIKeyList())

		intervals, err := settings.Intervals()
		require.NoError(t, err)
		assert.Equal(t, Intervals{
			StaleAfter:      5 * time.Minute,
			CleanupInterval: 60 * time.Second,
			PingInterval:    30 * time.Second,
		}, intervals)
	})

	t.Run("lists", func(t *testing.T) {
		var settings Settings
		err := env.Unmarshal(env.EnvSet{
			"JWT_SECRET":      "secret",
			"API_KEYS":        "key-1, key-2,",
			"ALLOWED_ORIGINS": "https://app.example.com",
		}, &settings)
		require.NoError(t, err)

		assert.Equal(t, []string{"key-1", "key-2"}, settings.APIKeyList())
		assert.Equal(t, []string{"https://app.example.com"}, settings.AllowedOriginList())
	})

	t.Run("missing secret", func(t *testing.T) {
		var settings Settings
		err := env.Unmarshal(env.EnvSet{}, &settings)

		assert.Error(t, err)
	})

	t.Run("invalid interval", func(t *testing.T) {
		settings := Settings{StaleAfter: "soon", CleanupInterval: "1m", PingInterval: "30s"}

		_, err := settings.Intervals()

		assert.ErrorContains(t, err, "STALE_AFTER")
	})
}
