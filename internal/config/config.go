// File: internal/config/config.go
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config is the root configuration for the automation layer.
type Config struct {
	Logger    LoggerConfig    `mapstructure:"logger" yaml:"logger"`
	Browser   BrowserConfig   `mapstructure:"browser" yaml:"browser"`
	Artifacts ArtifactsConfig `mapstructure:"artifacts" yaml:"artifacts"`

	warnings []string
}

// LoggerConfig controls the global zap logger.
type LoggerConfig struct {
	Level       string      `mapstructure:"level" yaml:"level"`
	Format      string      `mapstructure:"format" yaml:"format"`
	AddSource   bool        `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string      `mapstructure:"service_name" yaml:"service_name"`
	LogFile     string      `mapstructure:"log_file" yaml:"log_file"`
	MaxSize     int         `mapstructure:"max_size" yaml:"max_size"`
	MaxBackups  int         `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAge      int         `mapstructure:"max_age" yaml:"max_age"`
	Compress    bool        `mapstructure:"compress" yaml:"compress"`
	Colors      ColorConfig `mapstructure:"colors" yaml:"colors"`
}

// ColorConfig defines the color codes for different log levels.
type ColorConfig struct {
	Debug  string `mapstructure:"debug" yaml:"debug"`
	Info   string `mapstructure:"info" yaml:"info"`
	Warn   string `mapstructure:"warn" yaml:"warn"`
	Error  string `mapstructure:"error" yaml:"error"`
	DPanic string `mapstructure:"dpanic" yaml:"dpanic"`
	Panic  string `mapstructure:"panic" yaml:"panic"`
	Fatal  string `mapstructure:"fatal" yaml:"fatal"`
}

// BrowserConfig holds settings for the browser session factory and the
// wait/locate layer built on top of it.
type BrowserConfig struct {
	// BinaryPath points at the Chrome/Chromium executable. Empty means the
	// allocator falls back to its own lookup.
	BinaryPath      string        `mapstructure:"binary_path" yaml:"binary_path"`
	UserDataDir     string        `mapstructure:"user_data_dir" yaml:"user_data_dir"`
	ProfileName     string        `mapstructure:"profile_name" yaml:"profile_name"`
	Headless        bool          `mapstructure:"headless" yaml:"headless"`
	WindowWidth     int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight    int           `mapstructure:"window_height" yaml:"window_height"`
	ImplicitWait    time.Duration `mapstructure:"implicit_wait" yaml:"implicit_wait"`
	PollInterval    time.Duration `mapstructure:"poll_interval" yaml:"poll_interval"`
	PageLoadTimeout time.Duration `mapstructure:"page_load_timeout" yaml:"page_load_timeout"`
	AvoidDetection  bool          `mapstructure:"avoid_detection" yaml:"avoid_detection"`
	UserAgent       string        `mapstructure:"user_agent" yaml:"user_agent"`
	Args            []string      `mapstructure:"args" yaml:"args"`
}

// ArtifactsConfig controls where failure artifacts are written and how long
// they are retained.
type ArtifactsConfig struct {
	Dir            string `mapstructure:"dir" yaml:"dir"`
	ScreenshotsDir string `mapstructure:"screenshots_dir" yaml:"screenshots_dir"`
	RetentionDays  int    `mapstructure:"retention_days" yaml:"retention_days"`
}

// NewDefaultConfig returns a Config populated entirely from defaults.
func NewDefaultConfig() *Config {
	v := viper.New()
	SetDefaults(v)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		// This should not happen with defaults, but good to be safe.
		panic(fmt.Sprintf("failed to unmarshal default config: %v", err))
	}
	return &cfg
}

// SetDefaults initializes default values for various configuration parameters.
func SetDefaults(v *viper.Viper) {
	// -- Logger --
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.add_source", false)
	v.SetDefault("logger.service_name", "webpilot")
	v.SetDefault("logger.log_file", "logs/webpilot.log")
	v.SetDefault("logger.max_size", 100)
	v.SetDefault("logger.max_backups", 5)
	v.SetDefault("logger.max_age", 30)
	v.SetDefault("logger.compress", true)

	// -- Browser --
	v.SetDefault("browser.binary_path", "")
	v.SetDefault("browser.user_data_dir", "")
	v.SetDefault("browser.profile_name", "Default")
	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.implicit_wait", "10s")
	v.SetDefault("browser.poll_interval", "250ms")
	v.SetDefault("browser.page_load_timeout", "30s")
	v.SetDefault("browser.avoid_detection", true)
	v.SetDefault("browser.user_agent",
		"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0.0.0 Safari/537.36")

	// -- Artifacts --
	v.SetDefault("artifacts.dir", "logs/debug_artifacts")
	v.SetDefault("artifacts.screenshots_dir", "logs/screenshots")
	v.SetDefault("artifacts.retention_days", 7)
}

// NewConfigFromViper creates a new configuration instance from a viper object.
func NewConfigFromViper(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

// Validate checks the configuration for required fields and sane values.
// Non-fatal findings accumulate and are retrievable through Warnings.
func (c *Config) Validate() error {
	c.warnings = nil

	if c.Browser.BinaryPath != "" {
		if _, err := os.Stat(c.Browser.BinaryPath); err != nil {
			return fmt.Errorf("browser.binary_path %q is not accessible: %w", c.Browser.BinaryPath, err)
		}
	}
	if c.Browser.WindowWidth <= 0 || c.Browser.WindowHeight <= 0 {
		return fmt.Errorf("browser window dimensions must be positive, got %dx%d",
			c.Browser.WindowWidth, c.Browser.WindowHeight)
	}
	if c.Browser.ImplicitWait <= 0 {
		return fmt.Errorf("browser.implicit_wait must be a positive duration")
	}
	if c.Browser.PollInterval <= 0 {
		return fmt.Errorf("browser.poll_interval must be a positive duration")
	}
	if c.Browser.PageLoadTimeout <= 0 {
		return fmt.Errorf("browser.page_load_timeout must be a positive duration")
	}
	if c.Artifacts.RetentionDays < 0 {
		return fmt.Errorf("artifacts.retention_days must not be negative")
	}

	if c.Browser.UserDataDir != "" {
		if _, err := os.Stat(c.Browser.UserDataDir); os.IsNotExist(err) {
			if mkErr := os.MkdirAll(c.Browser.UserDataDir, 0o755); mkErr != nil {
				return fmt.Errorf("browser.user_data_dir %q could not be created: %w", c.Browser.UserDataDir, mkErr)
			}
			c.warnings = append(c.warnings,
				fmt.Sprintf("browser.user_data_dir %q did not exist and was created", c.Browser.UserDataDir))
		}
	}

	if c.Browser.AvoidDetection {
		// Inherited quirk, surfaced on purpose: the hardening bundle passes
		// --disable-javascript while the identity overrides are injected
		// scripts that need JavaScript to run.
		c.warnings = append(c.warnings,
			"browser.avoid_detection disables JavaScript via --disable-javascript while identity overrides rely on injected scripts; pages requiring JS may not load")
	}

	return nil
}

// Warnings returns non-fatal findings from the last Validate call. Callers
// are expected to log each one.
func (c *Config) Warnings() []string {
	return c.warnings
}
