package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	catalogapp "github.com/dentalclinic/backend/internal/application/catalog"
	financeapp "github.com/dentalclinic/backend/internal/application/finance"
	historyapp "github.com/dentalclinic/backend/internal/application/history"
	partnerapp "github.com/dentalclinic/backend/internal/application/partner"
	quoteapp "github.com/dentalclinic/backend/internal/application/quote"
	schedulingapp "github.com/dentalclinic/backend/internal/application/scheduling"
	"github.com/dentalclinic/backend/internal/domain/printing"
	"github.com/dentalclinic/backend/internal/domain/scheduling"
	"github.com/dentalclinic/backend/internal/infrastructure/cache"
	"github.com/dentalclinic/backend/internal/infrastructure/config"
	"github.com/dentalclinic/backend/internal/infrastructure/event"
	"github.com/dentalclinic/backend/internal/infrastructure/logger"
	"github.com/dentalclinic/backend/internal/infrastructure/persistence"
	infraprinting "github.com/dentalclinic/backend/internal/infrastructure/printing"
	"github.com/dentalclinic/backend/internal/infrastructure/scheduler"
	"github.com/dentalclinic/backend/internal/infrastructure/storage"
	"github.com/dentalclinic/backend/internal/infrastructure/telemetry"
	"github.com/dentalclinic/backend/internal/interfaces/http/handler"
	"github.com/dentalclinic/backend/internal/interfaces/http/middleware"
	"github.com/dentalclinic/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
		Compress:   true,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting clinic backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
	)

	ctx := context.Background()

	// Tracing and metrics share the collector
	telemetryCfg := telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
		MetricsInterval:   cfg.Telemetry.MetricsInterval,
	}
	tp, err := telemetry.NewTracerProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize telemetry", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down tracer provider", zap.Error(err))
		}
	}()
	mp, err := telemetry.NewMeterProvider(ctx, telemetryCfg, log)
	if err != nil {
		log.Fatal("Failed to initialize metrics", zap.Error(err))
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := mp.Shutdown(shutdownCtx); err != nil {
			log.Error("Error shutting down meter provider", zap.Error(err))
		}
	}()
	meter := mp.Meter("github.com/dentalclinic/backend")

	// Database with the zap-backed GORM logger
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Log.Level))
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbTracing := telemetry.DefaultDBTracingConfig()
	dbTracing.Enabled = cfg.Telemetry.Enabled
	dbTracing.LogFullSQL = cfg.App.Env != "production"
	if err := telemetry.NewDBTracingPlugin(dbTracing, log).Register(db.DB); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if err := db.InstrumentPool(meter); err != nil {
		log.Fatal("Failed to register pool metrics", zap.Error(err))
	}
	log.Info("Database connected successfully", zap.Bool("remote", cfg.Database.IsRemote()))

	scope := persistence.NewGormTransactionScopeFromDatabase(db)

	// Event bus
	eventBus := event.NewSyncEventBus(log)
	eventBus.Subscribe(event.NewAppointmentStatusLogger(log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}
	defer func() {
		if err := eventBus.Stop(context.Background()); err != nil {
			log.Error("Error stopping event bus", zap.Error(err))
		}
	}()

	// Clinic schedule
	location, err := cfg.Clinic.Location()
	if err != nil {
		log.Fatal("Invalid clinic time zone", zap.Error(err))
	}
	hours, err := scheduling.NewWorkingHours(cfg.Clinic.OpenTime, cfg.Clinic.CloseTime, cfg.Clinic.SlotMinutes)
	if err != nil {
		log.Fatal("Invalid clinic working hours", zap.Error(err))
	}

	// Application services
	financeMetrics, err := telemetry.NewFinanceMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create finance metrics", zap.Error(err))
	}
	paymentService := financeapp.NewPaymentService(scope, log,
		financeapp.WithPessimisticLocking(cfg.Finance.PessimisticLocking),
		financeapp.WithDebtDueMonths(cfg.Clinic.DebtDueMonths),
		financeapp.WithLocation(location),
		financeapp.WithMetrics(financeMetrics),
	)
	historyService := historyapp.NewHistoryService(scope, log, historyapp.WithLocation(location))
	clientService := partnerapp.NewClientService(scope, log)
	dentistService := catalogapp.NewDentistService(scope, log)
	treatmentService := catalogapp.NewTreatmentService(scope, log)
	appointmentService := schedulingapp.NewAppointmentService(scope, paymentService, eventBus, log,
		schedulingapp.WithWorkingHours(hours),
		schedulingapp.WithLocation(location),
	)

	quoteOpts := []quoteapp.Option{
		quoteapp.WithLocation(location),
		quoteapp.WithClinicHeader(printing.ClinicHeader{
			Name:              cfg.Clinic.Name,
			Address:           cfg.Clinic.Address,
			Phone:             cfg.Clinic.Phone,
			BankName:          cfg.Clinic.BankName,
			BankAccount:       cfg.Clinic.BankAccount,
			BankAccountHolder: cfg.Clinic.BankAccountHolder,
		}),
	}

	// Budget printing (if enabled)
	if cfg.Printing.Enabled {
		engine, err := infraprinting.NewTemplateEngine()
		if err != nil {
			log.Fatal("Failed to parse budget template", zap.Error(err))
		}
		pdf, err := infraprinting.NewChromedpRenderer(&infraprinting.ChromedpConfig{
			DefaultTimeout: cfg.Printing.Timeout,
			RemoteURL:      cfg.Printing.RemoteURL,
			NoSandbox:      os.Geteuid() == 0,
			Logger:         log.Named("printing"),
		})
		if err != nil {
			log.Fatal("Failed to initialize PDF renderer", zap.Error(err))
		}
		paper, err := printing.ParsePaperSize(cfg.Printing.PaperSize)
		if err != nil {
			log.Fatal("Invalid printing.paper_size", zap.Error(err))
		}
		m := cfg.Printing.MarginMM
		margins, err := printing.NewMargins(m, m, m, m)
		if err != nil {
			log.Fatal("Invalid printing.margin_mm", zap.Error(err))
		}
		budgets := infraprinting.NewBudgetRenderer(engine, pdf,
			infraprinting.WithPaperSize(paper),
			infraprinting.WithMargins(margins),
		)
		defer func() {
			if err := budgets.Close(); err != nil {
				log.Error("Error closing PDF renderer", zap.Error(err))
			}
		}()
		quoteOpts = append(quoteOpts, quoteapp.WithRenderer(budgets))
		log.Info("Budget printing enabled", zap.Bool("remote_chrome", cfg.Printing.RemoteURL != ""))
	}

	// Document archive (if enabled)
	if cfg.Storage.Enabled {
		archive, err := storage.NewS3Archive(&cfg.Storage, storage.WithLogger(log.Named("storage")))
		if err != nil {
			log.Fatal("Failed to initialize document archive", zap.Error(err))
		}
		bucketCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		if err := archive.EnsureBucket(bucketCtx); err != nil {
			log.Warn("Document archive bucket unavailable", zap.String("bucket", archive.Bucket()), zap.Error(err))
		}
		cancel()
		quoteOpts = append(quoteOpts, quoteapp.WithArchiver(archive))
		log.Info("Document archive enabled", zap.String("bucket", archive.Bucket()))
	}
	quoteService := quoteapp.NewQuoteService(scope, paymentService, log, quoteOpts...)

	// Background jobs
	if cfg.Scheduler.Enabled {
		expiryAt, err := scheduler.ParseDailySchedule(cfg.Scheduler.QuoteExpiry)
		if err != nil {
			log.Fatal("Invalid quote expiry schedule", zap.Error(err))
		}
		jobs := scheduler.NewScheduler(scheduler.Config{
			Workers:       cfg.Scheduler.Workers,
			JobTimeout:    cfg.Scheduler.JobTimeout,
			RetryAttempts: cfg.Scheduler.RetryAttempts,
			RetryDelay:    cfg.Scheduler.RetryDelay,
		}, log.Named("scheduler"))
		trigger := scheduler.NewCronTrigger(scheduler.CronTriggerConfig{
			CheckInterval: time.Minute,
			Location:      location,
		}, jobs, log.Named("scheduler"))
		trigger.Daily(scheduler.QuoteExpiryTask, expiryAt, scheduler.NewQuoteExpiryTask(quoteService, log))

		if err := jobs.Start(ctx); err != nil {
			log.Fatal("Failed to start job scheduler", zap.Error(err))
		}
		if err := trigger.Start(ctx); err != nil {
			log.Fatal("Failed to start cron trigger", zap.Error(err))
		}
		defer func() {
			stopCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := trigger.Stop(stopCtx); err != nil {
				log.Error("Error stopping cron trigger", zap.Error(err))
			}
			if err := jobs.Stop(stopCtx); err != nil {
				log.Error("Error stopping job scheduler", zap.Error(err))
			}
		}()
	}

	// Idempotency keys; production refuses to run without the shared store
	idempotency, err := cache.NewIdempotencyStore(ctx, cfg.Redis, cfg.App.Env != "production", log)
	if err != nil {
		log.Fatal("Failed to initialize idempotency store", zap.Error(err))
	}
	defer func() {
		if err := idempotency.Close(); err != nil {
			log.Error("Error closing idempotency store", zap.Error(err))
		}
	}()

	// Set Gin mode based on environment
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := router.NewEngine(router.EngineConfig{
		ServiceName:    cfg.Telemetry.ServiceName,
		Tracing:        cfg.Telemetry.Enabled,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		CORSOrigins:    cfg.HTTP.CORSOrigins,
		MaxBodySize:    cfg.HTTP.MaxBodySize,
	}, log)

	systemHandler := handler.NewSystemHandler(db, cfg.App.Name, cfg.App.Env)
	engine.GET("/health", systemHandler.Health)

	router.NewRouter(engine, router.WithAPIVersion("v1")).
		Use(middleware.Idempotency(idempotency, cfg.HTTP.IdempotencyTTL, log)).
		Register(
			systemHandler,
			handler.NewClientHandler(clientService, paymentService, historyService),
			handler.NewDentistHandler(dentistService),
			handler.NewTreatmentHandler(treatmentService),
			handler.NewAppointmentHandler(appointmentService),
			handler.NewQuoteHandler(quoteService),
			handler.NewFinanceHandler(paymentService),
			handler.NewHistoryHandler(historyService),
		).
		Setup()

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}
	log.Info("Server exited gracefully")
}
