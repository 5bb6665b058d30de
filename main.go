package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vcscsvcscs/goutguard/apps/backend/internal/audit"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/azure"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/config"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/formulary"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/handler"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/interaction"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/middleware"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/notify"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/reminder"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/repository"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/security"
	"github.com/vcscsvcscs/goutguard/apps/backend/internal/service"
	"github.com/vcscsvcscs/goutguard/apps/backend/pkg/api"
)

const version = "1.0.0"

type stores struct {
	meds  repository.RegimenStore
	doses repository.DoseLogAdmin
	audit audit.Store
	pool  *pgxpool.Pool
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	logger, err := newLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	logger.Info("Configuration loaded successfully",
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("storage", cfg.Storage.Driver),
	)

	loc, err := cfg.Location()
	if err != nil {
		logger.Fatal("Failed to load timezone", zap.Error(err))
	}

	st, err := openStores(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("Failed to initialize storage", zap.Error(err))
	}
	if st.pool != nil {
		defer st.pool.Close()
	}

	// Notifications
	policy, err := notify.ParsePermissionPolicy(cfg.Reminders.PermissionPolicy)
	if err != nil {
		logger.Fatal("Invalid notification permission policy", zap.Error(err))
	}
	sink := notify.MultiSink{notify.NewLogSink(logger)}
	if cfg.Telegram.Token != "" {
		telegramSink, err := notify.NewTelegramSink(cfg.Telegram.Token, cfg.Telegram.ChatID, logger)
		if err != nil {
			logger.Fatal("Failed to initialize Telegram sink", zap.Error(err))
		}
		sink = append(sink, telegramSink)
	}
	notifier := notify.NewLocalNotifier(sink, policy, loc, logger).WithCategories(reminder.CategoryOf)

	settings, err := cfg.ReminderSettings()
	if err != nil {
		logger.Fatal("Invalid reminder settings", zap.Error(err))
	}
	scheduler := reminder.NewScheduler(notifier, settings, logger)

	rules, err := interaction.LoadRules(cfg.Interactions.RulesFile)
	if err != nil {
		logger.Fatal("Failed to load interaction rules", zap.Error(err))
	}
	catalog, err := formulary.Load()
	if err != nil {
		logger.Fatal("Failed to load formulary", zap.Error(err))
	}

	var exports azure.ExportStorage
	if cfg.Azure.Storage.AccountName != "" {
		blobClient, err := azure.NewBlobStorageClient(
			cfg.Azure.Storage.AccountName,
			cfg.Azure.Storage.AccountKey,
			cfg.Azure.Storage.ExportContainer,
			logger,
		)
		if err != nil {
			logger.Fatal("Failed to initialize Azure Blob Storage client", zap.Error(err))
		}
		exports = blobClient
	}

	// Services
	auditLogger := audit.NewLogger(st.audit, logger)
	medicationService := service.NewMedicationService(st.meds, auditLogger, scheduler, logger)
	doseService := service.NewDoseService(st.meds, st.doses, cfg.SchedulePolicy(), loc, logger)
	adherenceService := service.NewAdherenceService(st.meds, st.doses, loc, logger)
	warningService := service.NewWarningService(st.meds, rules)
	reminderService := service.NewReminderService(scheduler, st.meds, auditLogger, loc, logger)
	dataService := service.NewDataService(st.meds, st.doses, exports, auditLogger, logger)
	if cfg.Azure.Storage.ExportKey != "" {
		key, err := security.ParseKey(cfg.Azure.Storage.ExportKey)
		if err != nil {
			logger.Fatal("Invalid export encryption key", zap.Error(err))
		}
		encryptor, err := security.NewEncryptor(key)
		if err != nil {
			logger.Fatal("Failed to initialize export encryption", zap.Error(err))
		}
		dataService.WithSealer(encryptor)
	}

	var pinger handler.Pinger
	if st.pool != nil {
		pinger = st.pool
	}
	handlers := handler.Handlers{
		Medication: handler.NewMedicationHandler(medicationService, doseService, catalog, logger),
		Dashboard:  handler.NewDashboardHandler(doseService, adherenceService, warningService, logger),
		Reminder:   handler.NewReminderHandler(reminderService, logger),
		Data:       handler.NewDataHandler(dataService, logger),
		Health:     handler.NewHealthHandler(pinger, cfg.Storage.Driver, version, logger),
	}

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Recovery must be first
	r.Use(middleware.RecoveryMiddleware(logger))

	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", middleware.RequestIDHeader},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", middleware.RequestIDHeader},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	r.Use(middleware.RequestIDMiddleware())
	r.Use(middleware.MetricsMiddleware())
	r.Use(middleware.RequestLoggingMiddleware(logger))
	r.Use(middleware.ErrorLoggingMiddleware(logger))

	if cfg.Server.OpenAPIValidate {
		doc, err := api.LoadSpec(context.Background())
		if err != nil {
			logger.Fatal("Failed to load OpenAPI document", zap.Error(err))
		}
		validator, err := middleware.OpenAPIValidator(doc, logger)
		if err != nil {
			logger.Fatal("Failed to initialize request validation", zap.Error(err))
		}
		r.Use(validator)
	}

	r.GET("/metrics", gin.WrapH(promhttp.Handler()))
	handler.RegisterRoutes(r, handlers)

	if err := notifier.Start(); err != nil {
		logger.Fatal("Failed to start notifier", zap.Error(err))
	}

	// Reissue reminders for the stored regimen; a denied permission leaves
	// every category unscheduled until it is granted through the API.
	if err := reminderService.RescheduleAll(context.Background()); err != nil {
		logger.Error("Failed to schedule reminders on startup", zap.Error(err))
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("Starting server", zap.String("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("Server forced to shutdown", zap.Error(err))
	}
	notifier.Stop(ctx)

	logger.Info("Server exited")
}

func newLogger(cfg *config.Config) (*zap.Logger, error) {
	var zapCfg zap.Config
	if cfg.IsProduction() {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
	}

	if cfg.Logging.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Logging.Level)
		if err != nil {
			return nil, err
		}
		zapCfg.Level = zap.NewAtomicLevelAt(level)
	}
	if cfg.Logging.Format != "" {
		zapCfg.Encoding = cfg.Logging.Format
	}

	return zapCfg.Build()
}

func openStores(ctx context.Context, cfg *config.Config, logger *zap.Logger) (stores, error) {
	if cfg.Storage.Driver == "memory" {
		logger.Warn("Using in-memory storage; data is lost on restart")
		return stores{
			meds:  repository.NewMemoryMedicationRepository(),
			doses: repository.NewMemoryDoseLogRepository(),
			audit: audit.NewMemoryStore(),
		}, nil
	}

	if cfg.Database.MigrateOnStart {
		if err := repository.Migrate(cfg.Database.URL, logger); err != nil {
			return stores{}, err
		}
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.URL)
	if err != nil {
		return stores{}, err
	}
	if cfg.Database.MaxOpenConns > 0 {
		poolCfg.MaxConns = int32(cfg.Database.MaxOpenConns)
	}
	if cfg.Database.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.Database.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return stores{}, err
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return stores{}, err
	}
	logger.Info("Successfully connected to database")

	return stores{
		meds:  repository.NewPostgresMedicationRepository(pool, logger),
		doses: repository.NewPostgresDoseLogRepository(pool, logger),
		audit: audit.NewPostgresStore(pool),
		pool:  pool,
	}, nil
}
