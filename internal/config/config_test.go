package config

import (
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, BrowserChrome, cfg.Browser)
	assert.Equal(t, "理地工電生", cfg.Resource)
	assert.Equal(t, 0, cfg.PageStart)
	assert.Equal(t, 6, cfg.PageCount)
	assert.Equal(t, 5, cfg.Workers)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, time.Second, cfg.RetryBase)
	assert.Equal(t, 30*time.Second, cfg.HTTPTimeout)
	assert.Equal(t, slog.LevelInfo, cfg.LogLevel)
	assert.Equal(t, "download.log", cfg.LogFile)
	assert.False(t, cfg.ExportExercises)
	assert.True(t, filepath.IsAbs(cfg.OutputDir))
	assert.Empty(t, cfg.UserAgent)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("BASE_URL", "http://portal.test/")
	t.Setenv("RESOURCE", "math")
	t.Setenv("WORKERS", "2")
	t.Setenv("MAX_RETRIES", "5")
	t.Setenv("RETRY_BASE", "10ms")
	t.Setenv("EXPORT_EXERCISES", "true")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("LOG_FILE", "")
	t.Setenv("TELEGRAM_TOKEN", "1:abc")
	t.Setenv("TELEGRAM_CHAT_ID", "42")
	t.Setenv("USER_AGENT", "examfetch/1.0")

	cfg, err := FromEnv()
	require.NoError(t, err)

	assert.Equal(t, "http://portal.test", cfg.BaseURL)
	assert.Equal(t, 2, cfg.Workers)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, 10*time.Millisecond, cfg.RetryBase)
	assert.True(t, cfg.ExportExercises)
	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Empty(t, cfg.LogFile)
	assert.Equal(t, int64(42), cfg.TelegramChatID)
	assert.Equal(t, "examfetch/1.0", cfg.UserAgent)

	assert.Equal(t, "http://portal.test/login", cfg.LoginURL())
	assert.Equal(t, "http://portal.test/files/science/history/math/3", cfg.PageURL(3))
	assert.Equal(t, "http://portal.test/files/science/exercise/math", cfg.ExercisesURL())
}

func TestFromEnvInvalid(t *testing.T) {
	cases := map[string][2]string{
		"bad int":          {"WORKERS", "many"},
		"zero workers":     {"WORKERS", "0"},
		"zero retries":     {"MAX_RETRIES", "0"},
		"bad duration":     {"HTTP_TIMEOUT", "soon"},
		"bad browser":      {"BROWSER", "lynx"},
		"headless no pass": {"BROWSER", "headless"},
		"bad level":        {"LOG_LEVEL", "loud"},
		"relative base":    {"BASE_URL", "portal"},
		"chat without bot": {"TELEGRAM_CHAT_ID", "1"},
	}

	for name, kv := range cases {
		t.Run(name, func(t *testing.T) {
			t.Setenv(kv[0], kv[1])
			_, err := FromEnv()
			assert.Error(t, err)
		})
	}
}

func TestHeadlessWithCredentials(t *testing.T) {
	t.Setenv("BROWSER", "HEADLESS")
	t.Setenv("PORTAL_ACCOUNT", "user")
	t.Setenv("PORTAL_PASSWORD", "secret")

	cfg, err := FromEnv()
	require.NoError(t, err)
	assert.True(t, cfg.Headless())
}
