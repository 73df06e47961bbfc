package config

import (
	"github.com/garyjia/timesheet-workflow/internal/container"
)

// ToContainerConfig converts the application Config to a container.Config.
// This provides a bridge between the file-based config loaded by viper
// and the container's configuration structure.
func (c *Config) ToContainerConfig() (*container.Config, error) {
	rate, err := c.Finance.FXRate()
	if err != nil {
		return nil, err
	}

	return &container.Config{
		Database: container.DatabaseConfig{
			Path:            c.Database.Path,
			MaxOpenConns:    c.Database.MaxOpenConns,
			MaxIdleConns:    c.Database.MaxIdleConns,
			ConnMaxLifetime: c.Database.ConnMaxLifetime,
			BusyTimeout:     c.Database.BusyTimeout,
			MigrationsDir:   c.Database.MigrationsDir,
		},
		Timesheet: container.TimesheetConfig{
			MaxDailyHours: c.Timesheet.MaxDailyHours,
			RequireTitle:  c.Timesheet.RequireTitle,
			TimeZone:      c.Timesheet.TimeZone,
			StoreTimeout:  c.Timesheet.StoreTimeout,
		},
		Finance: container.FinanceConfig{
			FXRateUSDToINR: rate,
			HoursPerDay:    c.Finance.HoursPerDay,
			DaysPerMonth:   c.Finance.DaysPerMonth,
		},
		Lark: container.LarkConfig{
			Enabled:      c.Lark.Enabled,
			AppID:        c.Lark.AppID,
			AppSecret:    c.Lark.AppSecret,
			ReviewChatID: c.Lark.ReviewChatID,
			BaseURL:      c.Lark.BaseURL,
			APITimeout:   c.Lark.APITimeout,
		},
		Server: container.ServerConfig{
			Host:         c.Server.Host,
			Port:         c.Server.Port,
			ReadTimeout:  c.Server.ReadTimeout,
			WriteTimeout: c.Server.WriteTimeout,
			CORSOrigins:  c.Server.CORSOrigins,
			RateLimit:    c.Server.RateLimit,
		},
		Worker: container.WorkerConfig{
			AutoClockOutEnabled: c.Worker.AutoClockOutEnabled,
			PollInterval:        c.Worker.PollInterval,
			BatchSize:           c.Worker.BatchSize,
			MaxShift:            c.Worker.MaxShift,
		},
	}, nil
}
