package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/shenikar/emergency_response_system/internal/config"
	"github.com/shenikar/emergency_response_system/internal/dispatch"
	v1 "github.com/shenikar/emergency_response_system/internal/handler/http/v1"
	"github.com/shenikar/emergency_response_system/internal/realtime"
	"github.com/shenikar/emergency_response_system/internal/repository"
	"github.com/shenikar/emergency_response_system/internal/service"
	"github.com/shenikar/emergency_response_system/internal/storage"
	"github.com/shenikar/emergency_response_system/pkg/logger"
	"github.com/shenikar/emergency_response_system/pkg/postgres"
	redisclient "github.com/shenikar/emergency_response_system/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/shenikar/emergency_response_system/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// @title Emergency Response System API
// @version 1.0
// @description Municipal emergency incident reporting and coordination API.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New(cfg.MigrationsPath, migrationURL)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
}

// newMediaStore возвращает nil, если объектное хранилище не настроено: вложения тогда не сохраняются
func newMediaStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) service.MediaStore {
	if cfg.StorageEndpoint == "" {
		log.Warn("STORAGE_ENDPOINT is not set, incident media uploads are disabled")
		return nil
	}
	store, err := storage.NewMediaStore(storage.Config{
		Endpoint:  cfg.StorageEndpoint,
		AccessKey: cfg.StorageAccessKey,
		SecretKey: cfg.StorageSecretKey,
		Bucket:    cfg.StorageBucket,
		UseSSL:    cfg.StorageUseSSL,
		URLTTL:    cfg.MediaURLTTL,
	})
	if err != nil {
		log.Fatalf("Failed to create media store: %v", err)
	}
	if err := store.EnsureBucket(ctx); err != nil {
		log.Fatalf("Failed to prepare media bucket: %v", err)
	}
	log.Infof("Media store ready, bucket %s", cfg.StorageBucket)
	return store
}

// dispatchSinks собирает получателей исходящих событий из конфигурации
func dispatchSinks(cfg *config.Config, log *logrus.Logger) []dispatch.Sink {
	var sinks []dispatch.Sink
	if cfg.WebhookURL != "" {
		sinks = append(sinks, dispatch.NewWebhookSink(dispatch.WebhookConfig{
			URL:        cfg.WebhookURL,
			Secret:     cfg.WebhookSecret,
			Timeout:    cfg.WebhookTimeout,
			MaxRetries: cfg.WebhookMaxRetries,
			BaseDelay:  cfg.WebhookBaseDelay,
		}, log))
	}
	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := dispatch.NewTelegramSink(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			// бот недоступен - продолжаем без него
			log.WithError(err).Error("Telegram alerts are disabled")
		} else {
			sinks = append(sinks, tg)
		}
	}
	return sinks
}

func main() {
	// Загрузка конфигурации
	cfg, err := config.LoadConfig()
	if err != nil {
		logrus.Fatalf("Failed to load config: %v", err)
	}

	// Инициализация логгера
	log := logger.New(cfg.LogLevel)

	// Контекст для graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Запуск миграций
	if err := runMigrations(cfg, log); err != nil {
		log.Fatalf("Failed to run database migrations: %v", err)
	}

	// Подключение к PostgreSQL
	dbpool, err := postgres.NewPostgresDB(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer dbpool.Close()
	log.Info("Successfully connected to PostgreSQL")

	// Инициализация Redis клиента
	redisClient, err := redisclient.NewRedisClient(ctx, cfg)
	if err != nil {
		log.Fatalf("Failed to connect to Redis: %v", err)
	}
	defer redisClient.Close()
	log.Info("Successfully connected to Redis")

	// Очередь исходящих событий и её воркер
	eventPublisher := dispatch.NewRedisPublisher(redisClient)
	dispatchWorker := dispatch.NewWorker(redisClient, log, time.Second, dispatchSinks(cfg, log)...)
	dispatchWorker.Start(ctx)

	// Инициализация репозиториев
	txManager := repository.NewTxManager(dbpool)
	userRepo := repository.NewUserRepository(dbpool)
	geographyRepo := repository.NewGeographyRepository(dbpool)
	incidentRepo := repository.NewIncidentRepository(dbpool, redisClient, cfg.CacheTTL)
	notificationRepo := repository.NewNotificationRepository(dbpool)
	sessionStore := repository.NewSessionStore(redisClient)

	// Инициализация сервисов
	authService := service.NewAuthService(userRepo, geographyRepo, sessionStore, service.AuthConfig{
		Secret:         []byte(cfg.JWTSecret),
		TTL:            cfg.JWTTTL,
		ProfileTimeout: cfg.ProfileTimeout,
	}, log)
	incidentService := service.NewIncidentService(service.IncidentDeps{
		Tx:            txManager,
		Incidents:     incidentRepo,
		Users:         userRepo,
		Notifications: notificationRepo,
		Geography:     geographyRepo,
		Media:         newMediaStore(ctx, cfg, log),
		Events:        eventPublisher,
		Realtime:      realtime.NewPublisher(redisClient),
		Logger:        log,
	})

	// Инициализация хэндлеров
	handler := v1.NewHandler(v1.Services{
		Auth:          authService,
		Users:         service.NewUserService(userRepo, geographyRepo, log),
		Incidents:     incidentService,
		Notifications: service.NewNotificationService(notificationRepo, log),
		Geography:     service.NewGeographyService(txManager, geographyRepo, log),
	}, realtime.NewSubscriber(redisClient, log), log, v1.Options{
		MediaMaxBytes:    cfg.MediaMaxBytes,
		WSAllowedOrigins: cfg.WSAllowedOrigins,
	})

	// Настройка Gin роутера
	router := gin.New()
	router.Use(gin.Recovery(), v1.RequestLogger(log))
	// запас сверх лимита на файл под поля формы
	router.MaxMultipartMemory = cfg.MediaMaxBytes + 1<<20
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Запуск HTTP-сервера
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:              serverAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Error starting HTTP server: %v", err)
		}
	}()
	log.Infof("HTTP server started on port %s", cfg.HTTPPort)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Received shutdown signal, shutting down server...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server forced to shutdown: %v", err)
	}

	// останавливаем воркер и realtime-подписки
	cancel()
	dispatchWorker.Wait()

	log.Info("Server gracefully stopped")
}
