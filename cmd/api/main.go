package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/brightpath-english/academy-api/internal/handler"
	"github.com/brightpath-english/academy-api/internal/repository"
	"github.com/brightpath-english/academy-api/internal/service"
	"github.com/brightpath-english/academy-api/pkg/cache"
	"github.com/brightpath-english/academy-api/pkg/config"
	"github.com/brightpath-english/academy-api/pkg/database"
	"github.com/brightpath-english/academy-api/pkg/logger"
	"github.com/brightpath-english/academy-api/pkg/notify"
	"github.com/brightpath-english/academy-api/pkg/storage"
)

// @title BrightPath Academy API
// @version 1.0
// @description Management API for the BrightPath English academy.
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	cfg, err := config.Load()
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}

	log, err := logger.New(cfg)
	if err != nil {
		panic(fmt.Sprintf("failed to build logger: %v", err))
	}
	defer log.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		log.Fatal("failed to connect to postgres", zap.Error(err))
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		// Degraded mode: dashboards fall back to the database on every hit.
		log.Warn("redis unavailable, continuing without cache", zap.Error(err))
		redisClient = nil
	}
	if redisClient != nil {
		defer redisClient.Close()
	}

	userRepo := repository.NewUserRepository(db)
	studentRepo := repository.NewStudentRepository(db)
	teacherRepo := repository.NewTeacherRepository(db)
	slotRepo := repository.NewSlotRepository(db)
	classRepo := repository.NewClassRepository(db)
	alertRepo := repository.NewAlertRepository(db)
	materialRepo := repository.NewMaterialRepository(db)
	dashboardRepo := repository.NewDashboardRepository(db)
	cacheRepo := repository.NewCacheRepository(redisClient, log)

	var emailSender notify.EmailSender
	if cfg.Notifications.EmailEnabled && cfg.Notifications.SendgridAPIKey != "" {
		emailSender = notify.NewSendgridEmailSender(cfg.Notifications.SendgridAPIKey,
			cfg.Notifications.FromName, cfg.Notifications.FromEmail)
	} else {
		emailSender = notify.NewConsoleEmailSender(log)
	}
	var smsSender notify.SMSSender
	if cfg.Notifications.SMSEnabled && cfg.Notifications.SMSGatewayURL != "" {
		smsSender = notify.NewGatewaySMSSender(cfg.Notifications.SMSGatewayURL, cfg.Notifications.SMSGatewayToken)
	} else {
		smsSender = notify.NewConsoleSMSSender(log)
	}

	metrics := service.NewMetricsService()

	notifications := service.NewNotificationService(emailSender, smsSender, service.NotificationConfig{
		Workers:    cfg.Notifications.WorkerConcurrency,
		MaxRetries: cfg.Notifications.WorkerRetries,
		RetryDelay: cfg.Notifications.RetryDelay,
	}, log)
	notifications.UseMetrics(metrics)
	notifications.Start(ctx)
	defer notifications.Stop()

	authService := service.NewAuthService(userRepo, notifications, nil, log, service.AuthConfig{
		AccessTokenSecret:  cfg.JWT.Secret,
		AccessTokenExpiry:  cfg.JWT.Expiration,
		RefreshTokenExpiry: cfg.JWT.RefreshExpiration,
		ResetTokenExpiry:   cfg.JWT.ResetExpiration,
		Issuer:             "academy-api",
		Audience:           []string{"academy-api"},
	})

	ledgerService := service.NewLedgerService(studentRepo, alertRepo, cfg.Policy.LowHoursThreshold, log)
	ledgerService.UseMetrics(metrics)

	classService := service.NewClassService(classRepo, studentRepo, teacherRepo, userRepo,
		ledgerService, notifications, service.ClassPolicy{
			JoinEarlyWindow:   cfg.Policy.JoinEarlyWindow,
			JoinLateGrace:     cfg.Policy.JoinLateGrace,
			CancelNoticeHours: cfg.Policy.CancelNoticeHours,
		}, nil, log)

	generatorService := service.NewGeneratorService(studentRepo, slotRepo, classRepo, teacherRepo,
		service.GeneratorConfig{
			DefaultHorizonDays: cfg.Scheduling.HorizonDays,
			MinHorizonDays:     cfg.Scheduling.MinHorizonDays,
			MaxHorizonDays:     cfg.Scheduling.MaxHorizonDays,
		}, log)

	reminderService := service.NewReminderService(classRepo, notifications, cfg.Scheduling.ReminderLead, log)

	alertService := service.NewAlertService(alertRepo, studentRepo, classRepo, log)
	alertService.UseMetrics(metrics)

	scheduleService := service.NewScheduleService(slotRepo, studentRepo, nil, log)
	studentService := service.NewStudentService(studentRepo, userRepo, teacherRepo, nil, log)
	teacherService := service.NewTeacherService(teacherRepo, userRepo, nil, log)
	userService := service.NewUserService(userRepo, nil, log)

	fileStore, err := storage.NewLocalStorage(cfg.Materials.StorageDir)
	if err != nil {
		log.Fatal("failed to prepare materials storage", zap.Error(err))
	}
	signer := storage.NewSignedURLSigner(cfg.Materials.SignedURLSecret, cfg.Materials.SignedURLTTL)
	materialService := service.NewMaterialService(materialRepo, studentRepo, fileStore, signer,
		service.MaterialConfig{
			MaxSizeBytes: cfg.Materials.MaxFileSizeBytes,
			AllowedMIME:  cfg.Materials.AllowedMIMEs,
		}, log)

	calendarService := service.NewCalendarService(classRepo, studentRepo, log)
	dashboardService := service.NewDashboardService(dashboardRepo, studentRepo, classRepo,
		cacheRepo, cfg.Dashboard.CacheTTL, log)

	handlers := handler.Handlers{
		Auth:      handler.NewAuthHandler(authService),
		Users:     handler.NewUserHandler(userService),
		Students:  handler.NewStudentHandler(studentService, ledgerService),
		Teachers:  handler.NewTeacherHandler(teacherService),
		Schedules: handler.NewScheduleHandler(scheduleService),
		Classes:   handler.NewClassHandler(classService),
		Alerts:    handler.NewAlertHandler(alertService),
		Materials: handler.NewMaterialHandler(materialService),
		Calendar:  handler.NewCalendarHandler(calendarService),
		Dashboard: handler.NewDashboardHandler(dashboardService),
		Cron:      handler.NewCronHandler(generatorService, reminderService, alertService, metrics),
		Health:    handler.NewHealthHandler(db, redisClient),
	}

	router := handler.NewRouter(handlers, handler.RouterDeps{
		Config:      cfg,
		Logger:      log,
		AuthService: authService,
		Metrics:     metrics,
		UserRepo:    userRepo,
	})

	server := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("starting server", zap.Int("port", cfg.Port), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
}
