// Package config loads runtime settings from defaults, an optional
// YAML file and FORMRUNNER_* environment variables, in that order of
// precedence (lowest to highest).
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// LoggerConfig controls the zerolog sink.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	File       string `mapstructure:"file"`
	MaxSizeMB  int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age"`
}

// BrowserConfig mirrors the launch options handed to the browser layer.
type BrowserConfig struct {
	Headless bool          `mapstructure:"headless"`
	SlowMo   time.Duration `mapstructure:"slow_mo"`
}

// EngineConfig bounds one attempt and the retry loop around it.
type EngineConfig struct {
	PageLoadTimeout time.Duration `mapstructure:"page_load_timeout"`
	FieldFillDelay  time.Duration `mapstructure:"field_fill_delay"`
	KeyDelay        time.Duration `mapstructure:"key_delay"`
	CaptchaWait     time.Duration `mapstructure:"captcha_wait"`
	MaxRetries      int           `mapstructure:"max_retries"`
	RetryDelay      time.Duration `mapstructure:"retry_delay"`
}

// ServerConfig configures the control API listener.
type ServerConfig struct {
	Addr string `mapstructure:"addr"`
}

// Config is the root of all runtime settings.
type Config struct {
	Logger  LoggerConfig  `mapstructure:"logger"`
	Browser BrowserConfig `mapstructure:"browser"`
	Engine  EngineConfig  `mapstructure:"engine"`
	Server  ServerConfig  `mapstructure:"server"`

	CatalogPath string `mapstructure:"catalog_path"`
	ReportPath  string `mapstructure:"report_path"`
}

// SetDefaults seeds v with the stock configuration.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.file", "")
	v.SetDefault("logger.max_size", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age", 14)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.slow_mo", "50ms")

	v.SetDefault("engine.page_load_timeout", "25s")
	v.SetDefault("engine.field_fill_delay", "300ms")
	v.SetDefault("engine.key_delay", "30ms")
	v.SetDefault("engine.captcha_wait", "10s")
	v.SetDefault("engine.max_retries", 2)
	v.SetDefault("engine.retry_delay", "2s")

	v.SetDefault("server.addr", ":8080")

	v.SetDefault("catalog_path", "")
	v.SetDefault("report_path", "form_submission_report.json")
}

// Load builds the configuration, reading path when non-empty.
func Load(path string) (*Config, error) {
	v := viper.New()
	SetDefaults(v)

	v.SetEnvPrefix("FORMRUNNER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Default returns the stock configuration without touching disk.
func Default() *Config {
	cfg, err := Load("")
	if err != nil {
		panic(fmt.Sprintf("default config invalid: %v", err))
	}
	return cfg
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	if c.Engine.MaxRetries < 0 {
		return fmt.Errorf("engine.max_retries must be >= 0, got %d", c.Engine.MaxRetries)
	}
	if c.Engine.PageLoadTimeout <= 0 {
		return fmt.Errorf("engine.page_load_timeout must be positive")
	}
	if c.Engine.CaptchaWait <= 0 {
		return fmt.Errorf("engine.captcha_wait must be positive")
	}
	if c.Engine.RetryDelay < 0 {
		return fmt.Errorf("engine.retry_delay must be >= 0")
	}
	switch c.Logger.Level {
	case "trace", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logger.level %q is not a zerolog level", c.Logger.Level)
	}
	switch c.Logger.Format {
	case "console", "json":
	default:
		return fmt.Errorf("logger.format must be console or json, got %q", c.Logger.Format)
	}
	return nil
}
