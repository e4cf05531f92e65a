package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/subosito/gotenv"
	"go.uber.org/zap"

	"github.com/spmflow/spm-workflow/internal/application/service"
	"github.com/spmflow/spm-workflow/internal/config"
	"github.com/spmflow/spm-workflow/internal/infrastructure/notify"
	"github.com/spmflow/spm-workflow/internal/infrastructure/persistence/repository"
	"github.com/spmflow/spm-workflow/internal/infrastructure/persistence/sqlite"
	httpserver "github.com/spmflow/spm-workflow/internal/interfaces/http"
	"github.com/spmflow/spm-workflow/pkg/utils"
)

func main() {
	_ = gotenv.Load()

	configPath := os.Getenv("SPM_CONFIG")
	if configPath == "" {
		configPath = "configs/config.yaml"
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting SPM workflow service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create data directory", zap.Error(err))
		}
	}

	db, err := sqlite.Open(cfg.Database.Path, cfg.Database.BusyTimeoutMs, logger)
	if err != nil {
		logger.Fatal("Failed to open database", zap.Error(err))
	}
	defer db.Close()

	if err := db.Migrate(context.Background()); err != nil {
		logger.Fatal("Failed to apply database schema", zap.Error(err))
	}

	// Repositories
	requestRepo := repository.NewRequestRepository(db.DB, logger)
	treatmentRepo := repository.NewTreatmentRepository(db.DB, logger)
	userRepo := repository.NewUserRepository(db.DB, logger)
	ruleRepo := repository.NewPlannerRuleRepository(db.DB, logger)
	budgetRepo := repository.NewBudgetRepository(db.DB, logger)
	notificationRepo := repository.NewNotificationRepository(db.DB, logger)

	// Application services
	kvLogger := utils.NewKVLogger(logger)
	emitter := notify.NewStoreEmitter(notificationRepo, logger)
	approverResolver := service.NewApproverResolver(userRepo)
	plannerResolver := service.NewPlannerAssignmentResolver(ruleRepo)

	requestService := service.NewRequestService(requestRepo, treatmentRepo, approverResolver, plannerResolver, emitter, db, kvLogger)
	treatmentService := service.NewTreatmentService(requestRepo, treatmentRepo, emitter, db, kvLogger)
	budgetService := service.NewBudgetService(budgetRepo, emitter, db, kvLogger)
	notificationService := service.NewNotificationService(notificationRepo, kvLogger)

	// HTTP server
	server := httpserver.NewServer(
		httpserver.ServerConfig{
			Host:         cfg.Server.Host,
			Port:         cfg.Server.Port,
			ReadTimeout:  cfg.Server.ReadTimeout,
			WriteTimeout: cfg.Server.WriteTimeout,
		},
		requestService,
		treatmentService,
		budgetService,
		notificationService,
		userRepo,
		kvLogger,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := server.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
