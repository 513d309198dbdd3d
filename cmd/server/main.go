package main

import (
	"context"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/recorever/recorever-backend/internal/config"
	"github.com/recorever/recorever-backend/internal/db"
	"github.com/recorever/recorever-backend/internal/goroutine"
	httpHandlers "github.com/recorever/recorever-backend/internal/http/handlers"
	httpRouter "github.com/recorever/recorever-backend/internal/http/router"
	"github.com/recorever/recorever-backend/internal/logger"
	"github.com/recorever/recorever-backend/internal/repository"
	"github.com/recorever/recorever-backend/internal/scheduler"
	"github.com/recorever/recorever-backend/internal/service"
	"github.com/recorever/recorever-backend/internal/storage"
	"github.com/recorever/recorever-backend/internal/ws"
)

func main() {
	// Готовим контекст для graceful shutdown.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("main: ошибка загрузки конфигурации: %v", err)
	}

	// Инициализация логгера
	logLevel := "info"
	if cfg.Env == "development" {
		logLevel = "debug"
		logger.Init(logLevel)
		logger.SetTextFormatter()
	} else {
		logger.Init(logLevel)
	}

	// Подключение к базе и миграции.
	dbConn, err := db.NewPostgres(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("main: ошибка подключения к базе: %v", err)
	}
	defer safeClose(dbConn)

	if err := db.RunMigrations(ctx, dbConn, cfg.MigrationsPath); err != nil {
		log.Fatalf("main: ошибка миграций: %v", err)
	}

	// Вспомогательные сервисы.
	tokenManager := service.NewTokenManager(cfg.JWTSecret, cfg.RefreshSecret, cfg.AccessTokenTTL, cfg.RefreshTokenTTL)

	photoStorage, err := storage.NewPhotoStorage(cfg.MediaStoragePath, cfg.MaxUploadSizeMB)
	if err != nil {
		log.Fatalf("main: не удалось подготовить файловое хранилище: %v", err)
	}

	// Репозитории.
	userRepo := repository.NewUserRepository(dbConn)
	reportRepo := repository.NewReportRepository(dbConn)
	claimRepo := repository.NewClaimRepository(dbConn)
	matchRepo := repository.NewMatchRepository(dbConn)
	scheduleRepo := repository.NewScheduleRepository(dbConn)
	notificationRepo := repository.NewNotificationRepository(dbConn)
	imageRepo := repository.NewImageRepository(dbConn)

	// Вебсокеты.
	hub := ws.NewHub()
	go hub.Run()

	// Сервисы.
	authService := service.NewAuthService(userRepo, tokenManager)
	notificationService := service.NewNotificationService(notificationRepo, userRepo)
	notificationService.SetPusher(hub)
	matchService := service.NewMatchService(reportRepo, matchRepo, notificationService)
	reportService := service.NewReportService(reportRepo, scheduleRepo, imageRepo, matchService, notificationService)
	claimService := service.NewClaimService(claimRepo, reportRepo, notificationService)

	// Планировщик удаления просроченных заявок.
	sweeper := scheduler.NewSweeper(scheduleRepo, notificationService, cfg.SweepInterval)
	go sweeper.Run(ctx)

	// Периодическая чистка истёкших refresh-сессий.
	goroutine.SafeGoWithContext(ctx, func(ctx context.Context) {
		ticker := time.NewTicker(time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := userRepo.DeleteExpiredSessions(ctx); err != nil {
					logger.Log.WithError(err).Warn("main: чистка сессий не удалась")
				}
			}
		}
	})

	// HTTP хэндлеры.
	authHandler := httpHandlers.NewAuthHandler(authService)
	reportHandler := httpHandlers.NewReportHandler(reportService)
	claimHandler := httpHandlers.NewClaimHandler(claimService)
	matchHandler := httpHandlers.NewMatchHandler(matchService)
	notificationHandler := httpHandlers.NewNotificationHandler(notificationService)
	mediaHandler := httpHandlers.NewMediaHandler(imageRepo, reportService, photoStorage)
	dashboardHandler := httpHandlers.NewDashboardHandler(reportService)
	wsHandler := httpHandlers.NewWSHandler(hub, tokenManager)
	healthHandler := httpHandlers.NewHealthHandler(dbConn)
	seedHandler := httpHandlers.NewSeedHandler(service.NewSeedService(userRepo, reportRepo))

	// Роутер.
	engine := httpRouter.SetupRouter(
		cfg,
		authHandler,
		reportHandler,
		claimHandler,
		matchHandler,
		notificationHandler,
		mediaHandler,
		dashboardHandler,
		wsHandler,
		healthHandler,
		seedHandler,
		tokenManager,
	)

	server := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
		Handler: engine,
	}

	// Завершаем сервер при получении сигнала.
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("main: ошибка остановки http сервера: %v", err)
		}
	}()

	log.Printf("main: HTTP сервер запущен на порту %s", cfg.HTTPPort)

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("main: сервер завершился с ошибкой: %v", err)
	}
}

// safeClose закрывает соединение с базой.
func safeClose(db *sqlx.DB) {
	if err := db.Close(); err != nil {
		log.Printf("main: ошибка закрытия базы: %v", err)
	}
}
