package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Setenv("DB_USER", "fest")
	t.Setenv("DB_HOST", "127.0.0.1")
	t.Setenv("DB_NAME", "fest")
	t.Setenv("JWT_SECRET", "s3cret")
}

func TestLoadFromEnv(t *testing.T) {
	setRequired(t)
	t.Setenv("APP_PORT", "9090")
	t.Setenv("RATE_LIMIT_REFILL_INTERVAL", "2s")
	t.Setenv("OTP_TTL", "5m")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "fest", cfg.DB.User)
	assert.Equal(t, "3306", cfg.DB.Port)
	assert.Equal(t, "s3cret", cfg.JWT.Secret)
	assert.Equal(t, 15, cfg.JWT.AccessTTLMin)
	assert.Equal(t, 2*time.Second, cfg.RateLimit.RefillInterval)
	assert.Equal(t, 10*time.Minute, cfg.RateLimit.TTL)
	assert.Equal(t, 5*time.Minute, cfg.OTP.TTL)
	assert.Equal(t, int64(-100123), cfg.Telegram.ChatID)
	assert.Equal(t, "media", cfg.App.MediaDir)
}

func TestLoadLegacyNames(t *testing.T) {
	setRequired(t)
	t.Setenv("ACCESS_TOKEN_TTL_MIN", "60")
	t.Setenv("RABBITMQ_URL", "amqp://u:p@mq:5672/")

	cfg, err := Load(viper.New(), "")
	require.NoError(t, err)
	assert.Equal(t, 60, cfg.JWT.AccessTTLMin)
	assert.Equal(t, "amqp://u:p@mq:5672/", cfg.AMQP.URL)
}

func TestLoadReportsAllMissing(t *testing.T) {
	for _, k := range []string{"DB_USER", "DB_HOST", "DB_NAME", "JWT_SECRET"} {
		t.Setenv(k, "")
	}
	_, err := Load(viper.New(), "")
	require.Error(t, err)
	for _, env := range []string{"DB_USER", "DB_HOST", "DB_NAME", "JWT_SECRET"} {
		assert.Contains(t, err.Error(), env)
	}
}

func TestLoadYAMLFile(t *testing.T) {
	setRequired(t)
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("app:\n  media_dir: /srv/media\nsmtp:\n  host: mail.example.edu\n"), 0o644))

	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)
	assert.Equal(t, "/srv/media", cfg.App.MediaDir)
	assert.Equal(t, "mail.example.edu", cfg.SMTP.Host)
	assert.Equal(t, 587, cfg.SMTP.Port)
}

func TestRateLimitNormalize(t *testing.T) {
	c := RateLimitConfig{RefillInterval: 2 * time.Second}.normalize()
	assert.Equal(t, 1, c.Capacity)
	assert.Equal(t, 1, c.RefillTokens)
	assert.Equal(t, 10*time.Second, c.TTL)
}

func TestRedisAddress(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: "6380", Addr: "x:1"}.Address())
	assert.Equal(t, "x:1", RedisConfig{Addr: "x:1"}.Address())
	assert.Equal(t, "localhost:6379", RedisConfig{}.Address())
}
