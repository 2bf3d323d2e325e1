package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("MAPS_API_KEY", "")
	t.Setenv("DATABASE_DSN", "")

	cfg, err := Load(writeConfig(t, "slack:\n  bot_token: xoxb-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "xoxb-file", cfg.Slack.BotToken)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "https://slack.com/api", cfg.Slack.APIBaseURL)
	assert.Equal(t, time.Hour, cfg.Slack.DirectoryTTL)
	assert.Equal(t, time.Minute, cfg.Scheduler.Interval)
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.ReminderWindow)
	assert.Equal(t, 10*time.Second, cfg.Scheduler.SendTimeout)
	assert.NotNil(t, cfg.Scheduler.Location)
	assert.Equal(t, "parkbot.db", cfg.Database.DSN)
	assert.Equal(t, 1, cfg.WorkerPool.Size)
	assert.False(t, cfg.Push.Enabled())
}

func TestLoad_Values(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "")
	t.Setenv("MAPS_API_KEY", "")
	t.Setenv("DATABASE_DSN", "")

	cfg, err := Load(writeConfig(t, `
scheduler:
  interval_seconds: 30
  reminder_window_minutes: 5
  timezone: "America/Chicago"
push:
  vapid_public_key: pub
  vapid_private_key: priv
worker_pool:
  size: 3
`))
	require.NoError(t, err)

	assert.Equal(t, 30*time.Second, cfg.Scheduler.Interval)
	assert.Equal(t, 5*time.Minute, cfg.Scheduler.ReminderWindow)
	assert.Equal(t, "America/Chicago", cfg.Scheduler.Location.String())
	assert.True(t, cfg.Push.Enabled())
	assert.Equal(t, 3, cfg.WorkerPool.Size)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-env")
	t.Setenv("SLACK_SIGNING_SECRET", "signing-env")
	t.Setenv("MAPS_API_KEY", "maps-env")
	t.Setenv("DATABASE_DSN", "postgres://localhost/parkbot")

	cfg, err := Load(writeConfig(t, "slack:\n  bot_token: xoxb-file\n"))
	require.NoError(t, err)

	assert.Equal(t, "xoxb-env", cfg.Slack.BotToken)
	assert.Equal(t, "signing-env", cfg.Slack.SigningSecret)
	assert.Equal(t, "maps-env", cfg.Maps.APIKey)
	assert.Equal(t, "postgres://localhost/parkbot", cfg.Database.DSN)
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "scheduler:\n  timezone: Not/AZone\n"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "server: [\n"))
	assert.Error(t, err)
}

func TestDefault(t *testing.T) {
	cfg := Default()
	assert.Equal(t, 15*time.Minute, cfg.Scheduler.ReminderWindow)
	assert.Equal(t, "600x400", cfg.Maps.ImageSize)
	assert.Equal(t, "https://maps.googleapis.com", cfg.Maps.BaseURL)
}
