package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Default()

	assert.True(t, cfg.Browser.Headless)
	assert.Equal(t, 50*time.Millisecond, cfg.Browser.SlowMo)
	assert.Equal(t, 25*time.Second, cfg.Engine.PageLoadTimeout)
	assert.Equal(t, 10*time.Second, cfg.Engine.CaptchaWait)
	assert.Equal(t, 2, cfg.Engine.MaxRetries)
	assert.Equal(t, 2*time.Second, cfg.Engine.RetryDelay)
	assert.Equal(t, ":8080", cfg.Server.Addr)
	assert.Equal(t, "form_submission_report.json", cfg.ReportPath)
	require.NoError(t, cfg.Validate())
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
browser:
  headless: false
engine:
  max_retries: 5
  captcha_wait: 30s
logger:
  level: debug
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, 5, cfg.Engine.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.Engine.CaptchaWait)
	assert.Equal(t, "debug", cfg.Logger.Level)
	assert.Equal(t, 2*time.Second, cfg.Engine.RetryDelay)
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("FORMRUNNER_ENGINE_MAX_RETRIES", "7")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Engine.MaxRetries)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name string
		mut  func(*Config)
	}{
		{"negative retries", func(c *Config) { c.Engine.MaxRetries = -1 }},
		{"zero page load timeout", func(c *Config) { c.Engine.PageLoadTimeout = 0 }},
		{"zero captcha wait", func(c *Config) { c.Engine.CaptchaWait = 0 }},
		{"negative retry delay", func(c *Config) { c.Engine.RetryDelay = -time.Second }},
		{"bad level", func(c *Config) { c.Logger.Level = "loud" }},
		{"bad format", func(c *Config) { c.Logger.Format = "xml" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mut(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
