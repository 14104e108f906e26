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
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/shenikar/event_rescue/internal/config"
	"github.com/shenikar/event_rescue/internal/dispatch"
	"github.com/shenikar/event_rescue/internal/feed"
	v1 "github.com/shenikar/event_rescue/internal/handler/http/v1"
	"github.com/shenikar/event_rescue/internal/lostfound"
	"github.com/shenikar/event_rescue/internal/matcher"
	"github.com/shenikar/event_rescue/internal/metrics"
	"github.com/shenikar/event_rescue/internal/push"
	"github.com/shenikar/event_rescue/internal/repository"
	"github.com/shenikar/event_rescue/internal/service"
	"github.com/shenikar/event_rescue/internal/vision"
	"github.com/shenikar/event_rescue/pkg/logger"
	natsclient "github.com/shenikar/event_rescue/pkg/nats"
	"github.com/shenikar/event_rescue/pkg/postgres"
	redisclient "github.com/shenikar/event_rescue/pkg/redis"
	"github.com/sirupsen/logrus"

	_ "github.com/shenikar/event_rescue/docs"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

const upstreamTimeout = 10 * time.Second

// @title Event Rescue API
// @version 1.0
// @description Live incident feed, voice alerts, dispatch and lost-and-found for event safety teams.
// @host localhost:8080
// @BasePath /api/v1
// @securityDefinitions.apikey ApiKeyAuth
// @in header
// @name X-API-Key
func runMigrations(cfg *config.Config, log *logrus.Logger) error {
	log.Info("Running database migrations...")

	migrationURL := cfg.DatabaseURL
	if !strings.HasPrefix(migrationURL, "pgx5://") {
		migrationURL = strings.Replace(migrationURL, "postgres://", "pgx5://", 1)
	}

	m, err := migrate.New(
		"file://migrations",
		migrationURL,
	)
	if err != nil {
		return fmt.Errorf("could not create migrate instance: %w", err)
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	log.Info("Database migrations applied successfully")
	return nil
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

	// Метрики
	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(registry)

	// Архив в PostgreSQL необязателен: без него лента живет только в памяти
	var dbpool *pgxpool.Pool
	if cfg.DatabaseURL != "" {
		if err := runMigrations(cfg, log); err != nil {
			log.Fatalf("Failed to run database migrations: %v", err)
		}
		dbpool, err = postgres.NewPostgresDB(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("Failed to connect to PostgreSQL: %v", err)
		}
		defer dbpool.Close()
		log.Info("Successfully connected to PostgreSQL")
	} else {
		log.Warn("DATABASE_URL is empty, incident archive is disabled")
	}

	// Redis: кэш архива, relay push между экземплярами и очередь диспетчеризации
	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient, err = redisclient.NewRedisClient(ctx, cfg.RedisAddr, cfg.RedisPass, cfg.RedisDB)
		if err != nil {
			log.Fatalf("Failed to connect to Redis: %v", err)
		}
		defer redisClient.Close()
		log.Info("Successfully connected to Redis")
	} else {
		log.Warn("REDIS_ADDR is empty, dispatch queue and push relay are disabled")
	}

	// Лента
	distributor := feed.New(cfg.FeedSize, feed.WithHooks(m.FeedHooks()))

	// Очередь и воркер диспетчеризации
	var publisher dispatch.Publisher
	var worker *dispatch.Worker
	if redisClient != nil {
		queue := dispatch.NewRedisQueue(redisClient, cfg.DispatchList)
		publisher = dispatch.NewQueuePublisher(queue)
		worker = dispatch.NewWorker(queue, dispatch.WorkerConfig{
			URL:        cfg.WebhookURL,
			Secret:     cfg.WebhookSecret,
			Timeout:    cfg.WebhookTimeout,
			MaxRetries: cfg.WebhookMaxRetries,
			BaseDelay:  cfg.WebhookBaseDelay,
		}, log, dispatch.WithResultHook(func(result string) {
			m.DispatchEventsTotal.WithLabelValues(result).Inc()
		}))
		worker.Start(ctx)
	}

	// Инициализация репозиториев
	var incidentRepo service.IncidentRepository
	if dbpool != nil {
		incidentRepo = repository.NewIncidentRepository(dbpool, redisClient)
	}

	// Инициализация сервисов
	opts := []service.Option{service.WithMetrics(m)}
	if cfg.VisionServiceURL != "" {
		opts = append(opts, service.WithVision(vision.NewClient(cfg.VisionServiceURL, upstreamTimeout)))
	}
	incidentService := service.NewIncidentService(distributor, incidentRepo, log, cfg, publisher, opts...)
	if err := incidentService.Warm(ctx); err != nil {
		log.WithError(err).Warn("Failed to warm the feed from the archive")
	}

	var m8r matcher.Matcher
	if cfg.MatcherURL != "" {
		m8r = matcher.NewHTTPMatcher(cfg.MatcherURL, "", upstreamTimeout)
	}
	lostFoundService := service.NewLostFoundService(lostfound.NewRegistry(lostfound.DefaultLimit), m8r, log)

	// Шина событий зрения
	if cfg.NatsURL != "" {
		conn, err := natsclient.NewConn(cfg.NatsURL, "rescue-server", log)
		if err != nil {
			log.Fatalf("Failed to connect to NATS: %v", err)
		}
		defer natsclient.Close(conn, log)
		subscriber := vision.NewSubscriber(conn, cfg.VisionSubject, incidentService, log,
			vision.WithDroppedHook(m.VisionDropped.Inc))
		if err := subscriber.Start(ctx); err != nil {
			log.Fatalf("Failed to subscribe to vision events: %v", err)
		}
	}

	// Push
	hub := push.NewHub(log, push.WithHubHooks(push.HubHooks{
		OnClients: func(n int) { m.PushClients.Set(float64(n)) },
		OnDropped: m.PushDropped.Inc,
	}))
	var relay push.Relay
	if redisClient != nil {
		relay = push.NewRedisRelay(redisClient, cfg.PushChannel, log)
	}
	go push.NewBridge(distributor, hub, relay, log).Run(ctx)

	// Инициализация хэндлеров
	handler := v1.NewHandler(incidentService, lostFoundService, log, cfg,
		v1.WithPushServer(hub),
		v1.WithMetricsHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})),
	)
	if len(cfg.APIKeys) == 0 {
		log.Warn("API_KEYS is empty, API key authentication is disabled")
	}

	// Настройка Gin роутера
	router := gin.Default()
	api := router.Group("/api/v1")
	handler.RegisterRoutes(api)

	// Добавление маршрута для Swagger UI
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// Запуск HTTP-сервера
	serverAddr := fmt.Sprintf(":%s", cfg.HTTPPort)

	srv := &http.Server{
		Addr:    serverAddr,
		Handler: router,
	}

	// Запуск сервера в горутине
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
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
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	cancel()
	hub.Close()
	if worker != nil {
		worker.Wait()
	}

	log.Info("Server gracefully stopped")
}
