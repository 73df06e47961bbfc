package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/garyjia/timesheet-workflow/internal/config"
	"github.com/garyjia/timesheet-workflow/internal/container"
	httpserver "github.com/garyjia/timesheet-workflow/internal/interfaces/http"
	"github.com/garyjia/timesheet-workflow/pkg/utils"
)

const version = "1.0.0"

func main() {
	configPath := flag.String("config", "configs/config.yaml", "path to the YAML config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
		Service:    "timesheet-workflow",
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting timesheet workflow service",
		zap.String("version", version),
		zap.Int("port", cfg.Server.Port),
		zap.String("time_zone", cfg.Timesheet.TimeZone))

	if err := run(cfg, logger); err != nil {
		logger.Error("Service stopped with error", zap.Error(err))
		logger.Sync()
		os.Exit(1)
	}

	logger.Info("Server exited successfully")
}

func run(cfg *config.Config, logger *zap.Logger) error {
	containerCfg, err := cfg.ToContainerConfig()
	if err != nil {
		return err
	}

	app, err := container.NewContainer(containerCfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := app.Start(ctx); err != nil {
		app.Close()
		return err
	}
	defer app.Close()

	if cfg.Logger.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	services := app.Services()
	server, err := httpserver.NewServer(httpserver.ServerConfig{
		Host:         containerCfg.Server.Host,
		Port:         containerCfg.Server.Port,
		ReadTimeout:  containerCfg.Server.ReadTimeout,
		WriteTimeout: containerCfg.Server.WriteTimeout,
		CORSOrigins:  containerCfg.Server.CORSOrigins,
		RateLimit:    containerCfg.Server.RateLimit,
	}, httpserver.Services{
		Submission: services.Submission,
		TimeLogs:   services.TimeLog,
		Finance:    services.Finance,
		Approvals:  app.ApprovalEngine(),
		Health: func() (bool, interface{}) {
			status := app.Health()
			return status.Overall, status.Components
		},
	}, container.NewLogAdapter(logger))
	if err != nil {
		return err
	}

	// Blocks until SIGINT or SIGTERM, then drains in-flight requests
	if err := server.Start(ctx); err != nil {
		return err
	}

	logger.Info("Shutting down server...")
	return nil
}
