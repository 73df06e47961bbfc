// Package container provides dependency injection and lifecycle management
// for the timesheet workflow service.
package container

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Config holds all configuration for the Container.
type Config struct {
	Database  DatabaseConfig
	Timesheet TimesheetConfig
	Finance   FinanceConfig
	Lark      LarkConfig
	Server    ServerConfig
	Worker    WorkerConfig
}

// DatabaseConfig holds database connection settings.
type DatabaseConfig struct {
	// Path to SQLite database file
	Path string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// BusyTimeout is how long SQLite waits on a locked database
	BusyTimeout time.Duration

	// MigrationsDir overrides the embedded schema when set
	MigrationsDir string
}

// TimesheetConfig holds validation and submission settings.
type TimesheetConfig struct {
	MaxDailyHours float64
	RequireTitle  bool

	// TimeZone names the location that decides which calendar day a time log belongs to
	TimeZone string

	// StoreTimeout bounds each store call made on behalf of a request
	StoreTimeout time.Duration
}

// FinanceConfig holds billing normalization settings.
type FinanceConfig struct {
	FXRateUSDToINR decimal.Decimal
	HoursPerDay    int
	DaysPerMonth   int
}

// LarkConfig holds Lark API settings.
type LarkConfig struct {
	Enabled      bool
	AppID        string
	AppSecret    string
	ReviewChatID string
	BaseURL      string
	APITimeout   time.Duration
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host         string
	Port         int
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	CORSOrigins  []string
	RateLimit    string
}

// WorkerConfig holds background worker settings.
type WorkerConfig struct {
	AutoClockOutEnabled bool
	PollInterval        time.Duration
	BatchSize           int

	// MaxShift caps the clock-out written for a forgotten clock-in
	MaxShift time.Duration
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			Path:            "data/timesheets.db",
			MaxOpenConns:    10,
			MaxIdleConns:    5,
			ConnMaxLifetime: time.Hour,
			BusyTimeout:     5 * time.Second,
		},
		Timesheet: TimesheetConfig{
			MaxDailyHours: 8,
			TimeZone:      "Asia/Kolkata",
			StoreTimeout:  5 * time.Second,
		},
		Finance: FinanceConfig{
			FXRateUSDToINR: decimal.NewFromInt(84),
			HoursPerDay:    8,
			DaysPerMonth:   22,
		},
		Lark: LarkConfig{
			APITimeout: 30 * time.Second,
		},
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			ReadTimeout:  30 * time.Second,
			WriteTimeout: 30 * time.Second,
		},
		Worker: WorkerConfig{
			AutoClockOutEnabled: true,
			PollInterval:        time.Minute,
			BatchSize:           50,
			MaxShift:            9 * time.Hour,
		},
	}
}

// Validate checks that required configuration values are present.
func (c *Config) Validate() error {
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	if c.Timesheet.MaxDailyHours <= 0 {
		return fmt.Errorf("timesheet.max_daily_hours must be positive")
	}
	if _, err := time.LoadLocation(c.Timesheet.TimeZone); err != nil {
		return fmt.Errorf("timesheet.time_zone: %w", err)
	}

	if !c.Finance.FXRateUSDToINR.IsPositive() {
		return fmt.Errorf("finance.fx_rate_usd_to_inr must be positive")
	}
	if c.Finance.HoursPerDay <= 0 || c.Finance.DaysPerMonth <= 0 {
		return fmt.Errorf("finance.hours_per_day and finance.days_per_month must be positive")
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
