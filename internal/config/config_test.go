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
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "data/timesheets.db", cfg.Database.Path)
	assert.Equal(t, 8.0, cfg.Timesheet.MaxDailyHours)
	assert.Equal(t, "Asia/Kolkata", cfg.Timesheet.TimeZone)
	assert.Equal(t, 5*time.Second, cfg.Timesheet.StoreTimeout)
	assert.Equal(t, 22, cfg.Finance.DaysPerMonth)
	assert.False(t, cfg.Lark.Enabled)
	assert.True(t, cfg.Worker.AutoClockOutEnabled)
	assert.Equal(t, 9*time.Hour, cfg.Worker.MaxShift)

	rate, err := cfg.Finance.FXRate()
	require.NoError(t, err)
	assert.Equal(t, "84", rate.String())
}

func TestLoad_FileAndEnvironment(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  cors_origins: ["http://localhost:3000"]
  rate_limit: "100-M"
timesheet:
  max_daily_hours: 10
  require_title: true
  store_timeout: 2s
finance:
  fx_rate_usd_to_inr: "83.25"
lark:
  enabled: true
  app_id: cli_from_file
worker:
  poll_interval: 30s
  max_shift: 10h
`)
	t.Setenv("LARK_APP_SECRET", "secret-from-env")
	t.Setenv("LARK_REVIEW_CHAT_ID", "oc_review")
	t.Setenv("TIMESHEET_DATABASE_PATH", "/tmp/override.db")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, []string{"http://localhost:3000"}, cfg.Server.CORSOrigins)
	assert.Equal(t, "100-M", cfg.Server.RateLimit)
	assert.Equal(t, 10.0, cfg.Timesheet.MaxDailyHours)
	assert.True(t, cfg.Timesheet.RequireTitle)
	assert.Equal(t, 2*time.Second, cfg.Timesheet.StoreTimeout)
	assert.Equal(t, "cli_from_file", cfg.Lark.AppID)
	assert.Equal(t, "secret-from-env", cfg.Lark.AppSecret)
	assert.Equal(t, "oc_review", cfg.Lark.ReviewChatID)
	assert.Equal(t, "/tmp/override.db", cfg.Database.Path)

	containerCfg, err := cfg.ToContainerConfig()
	require.NoError(t, err)
	assert.Equal(t, "83.25", containerCfg.Finance.FXRateUSDToINR.String())
	assert.Equal(t, "oc_review", containerCfg.Lark.ReviewChatID)
	assert.Equal(t, 30*time.Second, containerCfg.Worker.PollInterval)
	assert.Equal(t, 10*time.Hour, containerCfg.Worker.MaxShift)
	assert.NoError(t, containerCfg.Validate())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"lark missing secret", "lark:\n  enabled: true\n  app_id: x\n  review_chat_id: oc\n"},
		{"bad fx", "finance:\n  fx_rate_usd_to_inr: abc\n"},
		{"negative fx", "finance:\n  fx_rate_usd_to_inr: \"-1\"\n"},
		{"zero cap", "timesheet:\n  max_daily_hours: 0\n"},
		{"bad zone", "timesheet:\n  time_zone: Atlantis/Capital\n"},
		{"bad port", "server:\n  port: 70000\n"},
		{"zero max shift", "worker:\n  max_shift: 0s\n"},
		{"malformed yaml", "server: [\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}
