// File: internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds the entire application configuration.
type Config struct {
	Logger     LoggerConfig     `mapstructure:"logger" yaml:"logger"`
	Server     ServerConfig     `mapstructure:"server" yaml:"server"`
	Browser    BrowserConfig    `mapstructure:"browser" yaml:"browser"`
	Wizard     WizardConfig     `mapstructure:"wizard" yaml:"wizard"`
	Salesforce SalesforceConfig `mapstructure:"salesforce" yaml:"salesforce"`
	Callback   CallbackConfig   `mapstructure:"callback" yaml:"callback"`
	Export     ExportConfig     `mapstructure:"export" yaml:"export"`
	Store      StoreConfig      `mapstructure:"store" yaml:"store"`
}

// LoggerConfig controls the zap logger and optional rotating file sink.
type LoggerConfig struct {
	Level       string `mapstructure:"level" yaml:"level"`
	Format      string `mapstructure:"format" yaml:"format"` // "console" or "json"
	File        string `mapstructure:"file" yaml:"file"`
	MaxSizeMB   int    `mapstructure:"max_size_mb" yaml:"max_size_mb"`
	MaxBackups  int    `mapstructure:"max_backups" yaml:"max_backups"`
	MaxAgeDays  int    `mapstructure:"max_age_days" yaml:"max_age_days"`
	Compress    bool   `mapstructure:"compress" yaml:"compress"`
	AddSource   bool   `mapstructure:"add_source" yaml:"add_source"`
	ServiceName string `mapstructure:"service_name" yaml:"service_name"`
}

// ServerConfig configures the inbound HTTP API.
type ServerConfig struct {
	Port          int           `mapstructure:"port" yaml:"port"`
	APIToken      string        `mapstructure:"api_token" yaml:"api_token"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout" yaml:"read_timeout"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace" yaml:"shutdown_grace"`
}

// BrowserConfig configures the Chrome session driven by chromedp.
type BrowserConfig struct {
	Headless          bool          `mapstructure:"headless" yaml:"headless"`
	ChromePath        string        `mapstructure:"chrome_path" yaml:"chrome_path"`
	WindowWidth       int           `mapstructure:"window_width" yaml:"window_width"`
	WindowHeight      int           `mapstructure:"window_height" yaml:"window_height"`
	Args              []string      `mapstructure:"args" yaml:"args"`
	NavigationTimeout time.Duration `mapstructure:"navigation_timeout" yaml:"navigation_timeout"`
	StepTimeout       time.Duration `mapstructure:"step_timeout" yaml:"step_timeout"`
	StepPause         time.Duration `mapstructure:"step_pause" yaml:"step_pause"`
	ClickRetries      int           `mapstructure:"click_retries" yaml:"click_retries"`
	ClickRetryPause   time.Duration `mapstructure:"click_retry_pause" yaml:"click_retry_pause"`
}

// WizardConfig configures the EIN application flow itself.
type WizardConfig struct {
	StartURL string `mapstructure:"start_url" yaml:"start_url"`
	// LLCMembers is typed into the member-count field on the LLC path.
	LLCMembers string `mapstructure:"llc_members" yaml:"llc_members"`
	// FinalSubmit controls whether the driver presses the last submit
	// control after the review page. Off by default.
	FinalSubmit bool `mapstructure:"final_submit" yaml:"final_submit"`
	// ConfirmationEnabled makes the driver capture a screenshot of the
	// review page and wait for an upstream proceed/abort callback before
	// finishing.
	ConfirmationEnabled bool          `mapstructure:"confirmation_enabled" yaml:"confirmation_enabled"`
	ConfirmationTimeout time.Duration `mapstructure:"confirmation_timeout" yaml:"confirmation_timeout"`
}

// SalesforceConfig holds Salesforce JWT auth settings for the fetch path.
type SalesforceConfig struct {
	LoginURL  string  `mapstructure:"login_url" yaml:"login_url"`
	ClientID  string  `mapstructure:"client_id" yaml:"client_id"`
	Username  string  `mapstructure:"username" yaml:"username"`
	KeyPath   string  `mapstructure:"key_path" yaml:"key_path"`
	Object    string  `mapstructure:"object" yaml:"object"`
	RateLimit float64 `mapstructure:"rate_limit" yaml:"rate_limit"`
}

// CallbackConfig configures the completion status callback to the CRM.
type CallbackConfig struct {
	URL        string        `mapstructure:"url" yaml:"url"`
	Token      string        `mapstructure:"token" yaml:"token"`
	MaxRetries int           `mapstructure:"max_retries" yaml:"max_retries"`
	Timeout    time.Duration `mapstructure:"timeout" yaml:"timeout"`
}

// ExportConfig configures the optional CSV debug artifact.
type ExportConfig struct {
	Enabled  bool   `mapstructure:"enabled" yaml:"enabled"`
	Filename string `mapstructure:"filename" yaml:"filename"`
}

// StoreConfig configures the optional Postgres run-history store.
type StoreConfig struct {
	Enabled     bool   `mapstructure:"enabled" yaml:"enabled"`
	DatabaseURL string `mapstructure:"database_url" yaml:"database_url"`
}

// SetDefaults registers every default value on the given viper instance.
// Called before unmarshalling so a missing config file still yields a
// runnable configuration.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.format", "console")
	v.SetDefault("logger.max_size_mb", 50)
	v.SetDefault("logger.max_backups", 3)
	v.SetDefault("logger.max_age_days", 14)
	v.SetDefault("logger.service_name", "einfiler")

	v.SetDefault("server.port", 8000)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_grace", 15*time.Second)

	v.SetDefault("browser.headless", true)
	v.SetDefault("browser.window_width", 1920)
	v.SetDefault("browser.window_height", 1080)
	v.SetDefault("browser.navigation_timeout", 60*time.Second)
	v.SetDefault("browser.step_timeout", 10*time.Second)
	v.SetDefault("browser.step_pause", 500*time.Millisecond)
	v.SetDefault("browser.click_retries", 2)
	v.SetDefault("browser.click_retry_pause", 500*time.Millisecond)

	v.SetDefault("wizard.start_url", "https://sa.www4.irs.gov/modiein/individual/index.jsp")
	v.SetDefault("wizard.llc_members", "2")
	v.SetDefault("wizard.final_submit", false)
	v.SetDefault("wizard.confirmation_enabled", false)
	v.SetDefault("wizard.confirmation_timeout", 5*time.Minute)

	v.SetDefault("salesforce.object", "Case")
	v.SetDefault("salesforce.rate_limit", 5.0)

	v.SetDefault("callback.max_retries", 3)
	v.SetDefault("callback.timeout", 30*time.Second)

	v.SetDefault("export.enabled", true)
	v.SetDefault("export.filename", "salesforce_data.csv")
}

// Default returns the built-in configuration without consulting any file
// or environment variable.
func Default() *Config {
	v := viper.New()
	SetDefaults(v)
	var cfg Config
	_ = v.Unmarshal(&cfg)
	return &cfg
}

// Load reads configuration from the optional file path, the working
// directory, and EINFILER_* environment variables, in ascending precedence
// below command-line flags.
func Load(cfgFile string) (*Config, error) {
	v := viper.GetViper()
	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
	} else {
		v.AddConfigPath(".")
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}

	v.SetEnvPrefix("EINFILER")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	SetDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; proceed with defaults and env vars.
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks invariants that would otherwise surface as confusing
// runtime failures deep inside a run.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port %d out of range", c.Server.Port)
	}
	if c.Wizard.StartURL == "" {
		return fmt.Errorf("wizard.start_url must not be empty")
	}
	if c.Wizard.ConfirmationTimeout <= 0 {
		return fmt.Errorf("wizard.confirmation_timeout must be positive")
	}
	if c.Browser.ClickRetries < 0 {
		return fmt.Errorf("browser.click_retries must not be negative")
	}
	if c.Store.Enabled && c.Store.DatabaseURL == "" {
		return fmt.Errorf("store.enabled requires store.database_url")
	}
	return nil
}
