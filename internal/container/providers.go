package container

import (
	"database/sql"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"
	_ "time/tzdata"

	"go.uber.org/zap"

	"github.com/garyjia/timesheet-workflow/internal/application/dispatcher"
	"github.com/garyjia/timesheet-workflow/internal/application/port"
	"github.com/garyjia/timesheet-workflow/internal/application/service"
	"github.com/garyjia/timesheet-workflow/internal/application/workflow"
	"github.com/garyjia/timesheet-workflow/internal/domain/finance"
	"github.com/garyjia/timesheet-workflow/internal/domain/timesheet"
	infraLark "github.com/garyjia/timesheet-workflow/internal/infrastructure/external/lark"
	"github.com/garyjia/timesheet-workflow/internal/infrastructure/persistence/repository"
	"github.com/garyjia/timesheet-workflow/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/timesheet-workflow/internal/infrastructure/worker"
	"github.com/garyjia/timesheet-workflow/migrations"
	"github.com/garyjia/timesheet-workflow/pkg/database"
)

// DatabaseBundle holds database-related components.
type DatabaseBundle struct {
	SqlDB          *sql.DB
	TransactionMgr *sqlite.DB
}

// ProvideDatabase opens the SQLite database, applies pending migrations and
// wraps the connection in a transaction manager.
func ProvideDatabase(cfg *DatabaseConfig, logger *zap.Logger) (*DatabaseBundle, error) {
	if cfg == nil {
		return nil, fmt.Errorf("database config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	if dir := filepath.Dir(cfg.Path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := database.New(database.Config{
		Path:            cfg.Path,
		MaxOpenConns:    cfg.MaxOpenConns,
		MaxIdleConns:    cfg.MaxIdleConns,
		ConnMaxLifetime: cfg.ConnMaxLifetime,
		BusyTimeout:     cfg.BusyTimeout,
	}, logger)
	if err != nil {
		return nil, err
	}

	var schema fs.FS = migrations.FS
	if cfg.MigrationsDir != "" {
		schema = os.DirFS(cfg.MigrationsDir)
	}

	if err := database.NewMigrator(db, logger).RunMigrations(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &DatabaseBundle{
		SqlDB:          db.DB,
		TransactionMgr: sqlite.NewDB(db.DB, logger),
	}, nil
}

// ProvideRepositories creates all repositories from a database connection.
func ProvideRepositories(sqlDB *sql.DB, logger *zap.Logger) (*RepositoryBundle, error) {
	if sqlDB == nil {
		return nil, fmt.Errorf("database connection is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return &RepositoryBundle{
		TimeLog:  repository.NewTimeLogRepository(sqlDB, logger),
		Approval: repository.NewApprovalRepository(sqlDB, logger),
		History:  repository.NewHistoryRepository(sqlDB, logger),
	}, nil
}

// ProvideNotifier returns the Lark review chat messenger, or a no-op notifier
// when Lark is disabled.
func ProvideNotifier(cfg *LarkConfig, logger *zap.Logger) (port.Notifier, error) {
	if cfg == nil {
		return nil, fmt.Errorf("lark config is required")
	}
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	larkCfg := infraLark.Config{
		AppID:        cfg.AppID,
		AppSecret:    cfg.AppSecret,
		ReviewChatID: cfg.ReviewChatID,
		BaseURL:      cfg.BaseURL,
		Timeout:      cfg.APITimeout,
	}
	if !cfg.Enabled || !larkCfg.Enabled() {
		logger.Info("Lark notifications disabled")
		return infraLark.NewNoopNotifier(logger), nil
	}

	sdkClient := infraLark.NewSDKClient(larkCfg, logger)
	logger.Info("Lark notifications enabled", zap.String("review_chat_id", cfg.ReviewChatID))
	return infraLark.NewMessenger(sdkClient, logger), nil
}

// ServiceDeps holds dependencies required for creating services.
type ServiceDeps struct {
	Repos      *RepositoryBundle
	TxManager  port.TransactionManager
	Dispatcher dispatcher.Dispatcher
	Notifier   port.Notifier
	Timesheet  *TimesheetConfig
	Finance    *FinanceConfig
	Logger     *zap.Logger
}

// ProvideServices creates all application services.
func ProvideServices(deps *ServiceDeps) (*ServiceBundle, error) {
	if deps == nil {
		return nil, fmt.Errorf("service dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Timesheet == nil || deps.Finance == nil {
		return nil, fmt.Errorf("timesheet and finance config are required")
	}
	if deps.Notifier == nil {
		return nil, fmt.Errorf("notifier is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	location, err := time.LoadLocation(deps.Timesheet.TimeZone)
	if err != nil {
		return nil, fmt.Errorf("load time zone %q: %w", deps.Timesheet.TimeZone, err)
	}

	serviceLogger := &zapLoggerAdapter{logger: deps.Logger}
	opts := service.TimesheetOptions{
		StoreTimeout: deps.Timesheet.StoreTimeout,
		Location:     location,
	}

	validator := timesheet.NewValidator(deps.Timesheet.MaxDailyHours, deps.Timesheet.RequireTitle)
	normalizer := finance.NewNormalizer(deps.Finance.FXRateUSDToINR, finance.HourlyConvention{
		HoursPerDay:  deps.Finance.HoursPerDay,
		DaysPerMonth: deps.Finance.DaysPerMonth,
	})

	return &ServiceBundle{
		Submission: service.NewSubmissionService(
			validator,
			deps.Repos.TimeLog,
			deps.Repos.Approval,
			deps.Repos.History,
			deps.TxManager,
			deps.Dispatcher,
			opts,
			serviceLogger,
		),
		TimeLog:      service.NewTimeLogService(deps.Repos.TimeLog, opts, serviceLogger),
		Finance:      service.NewFinanceService(normalizer, serviceLogger),
		Notification: service.NewNotificationService(deps.Notifier, serviceLogger),
		Transitions:  service.NewTransitionStats(),
	}, nil
}

// maxAsyncHandlers caps concurrent notification deliveries
const maxAsyncHandlers = 8

// ProvideDispatcher creates the event dispatcher. handlerTimeout bounds each
// handler call; zero means unbounded.
func ProvideDispatcher(handlerTimeout time.Duration, logger *zap.Logger) (dispatcher.Dispatcher, error) {
	if logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	return dispatcher.NewDispatcher(
		dispatcher.WithLogger(&dispatcherLoggerAdapter{logger: logger}),
		dispatcher.WithHandlerTimeout(handlerTimeout),
		dispatcher.WithMaxInFlight(maxAsyncHandlers),
	), nil
}

// WorkflowDeps holds dependencies required for creating the approval engine.
type WorkflowDeps struct {
	Repos        *RepositoryBundle
	TxManager    port.TransactionManager
	Dispatcher   dispatcher.Dispatcher
	Notification service.NotificationService
	Transitions  *service.TransitionStats
	StoreTimeout time.Duration
	Logger       *zap.Logger
}

// ProvideWorkflowEngine creates the approval engine and subscribes the review
// chat notifier and the transition counter to lifecycle events.
func ProvideWorkflowEngine(deps *WorkflowDeps) (workflow.ApprovalEngine, error) {
	if deps == nil {
		return nil, fmt.Errorf("workflow dependencies are required")
	}
	if deps.Repos == nil {
		return nil, fmt.Errorf("repositories are required")
	}
	if deps.TxManager == nil {
		return nil, fmt.Errorf("transaction manager is required")
	}
	if deps.Dispatcher == nil {
		return nil, fmt.Errorf("dispatcher is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}

	engine := workflow.NewEngine(
		deps.Repos.Approval,
		deps.Repos.TimeLog,
		deps.Repos.History,
		deps.TxManager,
		&zapLoggerAdapter{logger: deps.Logger},
		workflow.WithDispatcher(deps.Dispatcher),
		workflow.WithStoreTimeout(deps.StoreTimeout),
	)

	if deps.Notification != nil {
		deps.Notification.Register(deps.Dispatcher)
	}
	if deps.Transitions != nil {
		deps.Transitions.Register(deps.Dispatcher)
	}

	return engine, nil
}

// ProvideWorkers registers the background workers enabled in cfg.
func ProvideWorkers(cfg *WorkerConfig, timeLogs service.TimeLogService, logger *zap.Logger) *worker.WorkerManager {
	manager := worker.NewWorkerManager(logger)
	if cfg.AutoClockOutEnabled {
		manager.Register(worker.NewAutoClockOutWorker(worker.AutoClockOutConfig{
			PollInterval: cfg.PollInterval,
			BatchSize:    cfg.BatchSize,
			MaxShift:     cfg.MaxShift,
		}, timeLogs, logger))
	}
	return manager
}
