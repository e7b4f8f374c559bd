// narravid/config/config_test.go
package config_test // Use an external test package

import (
	"testing"
	"time"

	"narravid/config"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	t.Run("loads default values correctly", func(t *testing.T) {
		// Ensure no env vars are lingering from other tests
		t.Setenv("NARRAVID_PORT", "")
		t.Setenv("NARRAVID_MAX_CONCURRENCY", "")
		t.Setenv("NARRAVID_FF_TIMEOUT", "")
		t.Setenv("NARRAVID_MAX_INPUT_SIZE", "")
		t.Setenv("NARRAVID_CACHE_TTL", "")

		cfg, err := config.Load()
		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "8080", cfg.Port)
		assert.Equal(t, 2, cfg.MaxConcurrency)
		assert.Equal(t, "ffmpeg", cfg.FFBin)
		assert.Equal(t, "ffprobe", cfg.FFProbeBin)
		assert.Equal(t, 5*time.Minute, cfg.FFTimeout)
		assert.Equal(t, int64(200*1024*1024), cfg.MaxInputSize)
		assert.Equal(t, "en", cfg.SourceLanguage)
		assert.Equal(t, 0.1, cfg.DurationTolerance)
		assert.Equal(t, time.Hour, cfg.CacheTTL)
		assert.Equal(t, 100, cfg.CacheSize)
		assert.Equal(t, 50, cfg.CacheKeyLength)
		assert.Equal(t, []string{"openai", "google"}, cfg.ProviderOrder)
		assert.Equal(t, []string{"mp4", "avi", "mov", "mkv", "webm"}, cfg.AllowedVideoExts)
		assert.Equal(t, "replace", cfg.MixPolicy)
		assert.Equal(t, false, cfg.AuthEnable)
	})

	t.Run("overrides defaults with environment variables", func(t *testing.T) {
		t.Setenv("NARRAVID_PORT", "9999")
		t.Setenv("NARRAVID_MAX_CONCURRENCY", "8")
		t.Setenv("NARRAVID_MAX_INPUT_SIZE", "50MB")
		t.Setenv("NARRAVID_CACHE_TTL", "30m")
		t.Setenv("NARRAVID_SOURCE_LANGUAGE", "es")
		t.Setenv("NARRAVID_TTS_PROVIDER_ORDER", "google,openai")
		t.Setenv("NARRAVID_AUTH_ENABLE", "true")
		t.Setenv("NARRAVID_AUTH_KEY", "newsecret")

		cfg, err := config.Load()
		assert.NoError(t, err)
		assert.NotNil(t, cfg)

		assert.Equal(t, "9999", cfg.Port)
		assert.Equal(t, 8, cfg.MaxConcurrency)
		assert.Equal(t, int64(50*1024*1024), cfg.MaxInputSize)
		assert.Equal(t, 30*time.Minute, cfg.CacheTTL)
		assert.Equal(t, "es", cfg.SourceLanguage)
		assert.Equal(t, []string{"google", "openai"}, cfg.ProviderOrder)
		assert.Equal(t, true, cfg.AuthEnable)
		assert.Equal(t, "newsecret", cfg.AuthKey)
	})
}
