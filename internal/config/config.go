package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
	"github.com/subosito/gotenv"
)

// Config holds all application configuration
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Timesheet TimesheetConfig `mapstructure:"timesheet"`
	Finance   FinanceConfig   `mapstructure:"finance"`
	Lark      LarkConfig      `mapstructure:"lark"`
	Worker    WorkerConfig    `mapstructure:"worker"`
	Logger    LoggerConfig    `mapstructure:"logger"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	CORSOrigins  []string      `mapstructure:"cors_origins"`
	RateLimit    string        `mapstructure:"rate_limit"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path            string        `mapstructure:"path"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	BusyTimeout     time.Duration `mapstructure:"busy_timeout"`
	MigrationsDir   string        `mapstructure:"migrations_dir"`
}

// TimesheetConfig holds validation and submission settings
type TimesheetConfig struct {
	MaxDailyHours float64       `mapstructure:"max_daily_hours"`
	RequireTitle  bool          `mapstructure:"require_title"`
	TimeZone      string        `mapstructure:"time_zone"`
	StoreTimeout  time.Duration `mapstructure:"store_timeout"`
}

// FinanceConfig holds billing normalization settings
type FinanceConfig struct {
	FXRateUSDToINR string `mapstructure:"fx_rate_usd_to_inr"`
	HoursPerDay    int    `mapstructure:"hours_per_day"`
	DaysPerMonth   int    `mapstructure:"days_per_month"`
}

// LarkConfig holds Lark API configuration
type LarkConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	AppID        string        `mapstructure:"app_id"`
	AppSecret    string        `mapstructure:"app_secret"`
	ReviewChatID string        `mapstructure:"review_chat_id"`
	BaseURL      string        `mapstructure:"base_url"`
	APITimeout   time.Duration `mapstructure:"api_timeout"`
}

// WorkerConfig holds background worker configuration
type WorkerConfig struct {
	AutoClockOutEnabled bool          `mapstructure:"auto_clock_out_enabled"`
	PollInterval        time.Duration `mapstructure:"poll_interval"`
	BatchSize           int           `mapstructure:"batch_size"`
	MaxShift            time.Duration `mapstructure:"max_shift"`
}

// LoggerConfig holds logger configuration
type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	OutputPath string `mapstructure:"output_path"`
	Format     string `mapstructure:"format"`
}

// Load reads configPath, then .env and the environment on top of it.
// A missing config file is not an error; defaults and environment apply.
func Load(configPath string) (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	v := viper.New()
	v.SetConfigFile(configPath)
	v.SetConfigType("yaml")
	v.SetEnvPrefix("TIMESHEET")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// loadDotEnv exports variables from a .env file without overriding the environment
func loadDotEnv(path string) error {
	err := gotenv.Load(path)
	if err == nil || errors.Is(err, os.ErrNotExist) {
		return nil
	}
	return fmt.Errorf("failed to load %s: %w", path, err)
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	// Server defaults
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.cors_origins", []string{})
	v.SetDefault("server.rate_limit", "")

	// Database defaults
	v.SetDefault("database.path", "data/timesheets.db")
	v.SetDefault("database.max_open_conns", 10)
	v.SetDefault("database.max_idle_conns", 5)
	v.SetDefault("database.conn_max_lifetime", time.Hour)
	v.SetDefault("database.busy_timeout", 5*time.Second)
	v.SetDefault("database.migrations_dir", "")

	// Timesheet defaults
	v.SetDefault("timesheet.max_daily_hours", 8)
	v.SetDefault("timesheet.require_title", false)
	v.SetDefault("timesheet.time_zone", "Asia/Kolkata")
	v.SetDefault("timesheet.store_timeout", 5*time.Second)

	// Finance defaults
	v.SetDefault("finance.fx_rate_usd_to_inr", "84")
	v.SetDefault("finance.hours_per_day", 8)
	v.SetDefault("finance.days_per_month", 22)

	// Lark defaults
	v.SetDefault("lark.enabled", false)
	v.SetDefault("lark.app_id", "")
	v.SetDefault("lark.app_secret", "")
	v.SetDefault("lark.review_chat_id", "")
	v.SetDefault("lark.base_url", "")
	v.SetDefault("lark.api_timeout", 30*time.Second)

	// Worker defaults
	v.SetDefault("worker.auto_clock_out_enabled", true)
	v.SetDefault("worker.poll_interval", time.Minute)
	v.SetDefault("worker.batch_size", 50)
	v.SetDefault("worker.max_shift", 9*time.Hour)

	// Logger defaults
	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "json")
}

// bindEnvVars binds unprefixed environment variables for credentials
func bindEnvVars(v *viper.Viper) error {
	bindings := map[string]string{
		"lark.app_id":         "LARK_APP_ID",
		"lark.app_secret":     "LARK_APP_SECRET",
		"lark.review_chat_id": "LARK_REVIEW_CHAT_ID",
	}
	for key, env := range bindings {
		if err := v.BindEnv(key, "TIMESHEET_"+strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env); err != nil {
			return fmt.Errorf("bind %s: %w", env, err)
		}
	}
	return nil
}

// FXRate parses the configured USD to INR rate
func (c FinanceConfig) FXRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(c.FXRateUSDToINR))
	if err != nil {
		return decimal.Zero, fmt.Errorf("finance.fx_rate_usd_to_inr: %w", err)
	}
	return rate, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535")
	}

	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Timesheet.MaxDailyHours <= 0 {
		return fmt.Errorf("timesheet.max_daily_hours must be positive")
	}
	if _, err := time.LoadLocation(c.Timesheet.TimeZone); err != nil {
		return fmt.Errorf("timesheet.time_zone: %w", err)
	}

	rate, err := c.Finance.FXRate()
	if err != nil {
		return err
	}
	if !rate.IsPositive() {
		return fmt.Errorf("finance.fx_rate_usd_to_inr must be positive")
	}

	if c.Worker.AutoClockOutEnabled && (c.Worker.PollInterval <= 0 || c.Worker.MaxShift <= 0) {
		return fmt.Errorf("worker.poll_interval and worker.max_shift must be positive")
	}

	if c.Lark.Enabled {
		if c.Lark.AppID == "" {
			return fmt.Errorf("lark.app_id is required")
		}
		if c.Lark.AppSecret == "" {
			return fmt.Errorf("lark.app_secret is required")
		}
		if c.Lark.ReviewChatID == "" {
			return fmt.Errorf("lark.review_chat_id is required")
		}
	}

	return nil
}
