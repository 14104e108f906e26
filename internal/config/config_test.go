package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfig_Defaults(t *testing.T) {
	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.HTTPPort)
	assert.Equal(t, 20, cfg.FeedSize)
	assert.Equal(t, 0.85, cfg.PromotionThreshold)
	assert.Equal(t, 70, cfg.DispatchConfidence)
	assert.Equal(t, 2500*time.Millisecond, cfg.AudioCooldown)
	assert.Equal(t, 3*time.Second, cfg.IncidentPollInterval)
	assert.Empty(t, cfg.APIKeys)
}

func TestLoadConfig_FromEnv(t *testing.T) {
	t.Setenv("FEED_SIZE", "15")
	t.Setenv("PROMOTION_THRESHOLD", "0.9")
	t.Setenv("WEBHOOK_TIMEOUT", "2s")
	t.Setenv("API_KEYS", "first, second ")
	// нечитаемое значение заменяется значением по умолчанию
	t.Setenv("REDIS_DB", "not-a-number")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, 15, cfg.FeedSize)
	assert.Equal(t, 0.9, cfg.PromotionThreshold)
	assert.Equal(t, 2*time.Second, cfg.WebhookTimeout)
	assert.Equal(t, []string{"first", "second"}, cfg.APIKeys)
	assert.Equal(t, 0, cfg.RedisDB)
}

func TestLoadConfig_ReportsAllErrors(t *testing.T) {
	t.Setenv("FEED_SIZE", "50")
	t.Setenv("PROMOTION_THRESHOLD", "1.5")
	t.Setenv("AUDIO_HELP_MAGNITUDE", "80")

	_, err := LoadConfig()
	require.Error(t, err)

	assert.ErrorContains(t, err, "FEED_SIZE")
	assert.ErrorContains(t, err, "PROMOTION_THRESHOLD")
	assert.ErrorContains(t, err, "audio magnitudes")
}

func TestValidate_Intervals(t *testing.T) {
	cfg := &Config{
		FeedSize:             20,
		PromotionThreshold:   0.85,
		DispatchConfidence:   70,
		AudioMinMagnitude:    90,
		AudioHelpMagnitude:   120,
		AudioScreamMagnitude: 150,
		IncidentPollInterval: time.Second,
		SummaryPollInterval:  time.Second,
		AudioDetectInterval:  time.Second,
		AudioMeterInterval:   time.Millisecond,
	}

	err := cfg.Validate()
	require.Error(t, err)
	assert.ErrorContains(t, err, "LOSTFOUND_POLL_INTERVAL must be positive")

	cfg.LostFoundPollInterval = time.Second
	assert.NoError(t, cfg.Validate())
}
