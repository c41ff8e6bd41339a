package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	_ "github.com/haneul-lab/storybook-api/api/swagger"
	"github.com/haneul-lab/storybook-api/internal/handler"
	"github.com/haneul-lab/storybook-api/internal/llm"
	"github.com/haneul-lab/storybook-api/internal/lock"
	"github.com/haneul-lab/storybook-api/internal/middleware"
	"github.com/haneul-lab/storybook-api/internal/ratelimit"
	"github.com/haneul-lab/storybook-api/internal/repository"
	"github.com/haneul-lab/storybook-api/internal/rowstore"
	"github.com/haneul-lab/storybook-api/internal/secretstore"
	"github.com/haneul-lab/storybook-api/internal/service"
	"github.com/haneul-lab/storybook-api/pkg/cache"
	"github.com/haneul-lab/storybook-api/pkg/config"
	"github.com/haneul-lab/storybook-api/pkg/database"
	"github.com/haneul-lab/storybook-api/pkg/logger"
	corsmiddleware "github.com/haneul-lab/storybook-api/pkg/middleware/cors"
	reqidmiddleware "github.com/haneul-lab/storybook-api/pkg/middleware/requestid"
)

// @title Storybook Classroom API
// @version 1.0.0
// @description Classroom storybook authoring backend
// @BasePath /api/v1
// @schemes http

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logr, err := logger.New(cfg)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logr.Sync() //nolint:errcheck

	if cfg.Env == config.EnvProduction {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := database.NewPostgres(cfg.Database)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect postgres", "error", err)
	}
	defer db.Close()

	redisClient, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logr.Sugar().Fatalw("failed to connect redis", "error", err)
	}
	defer redisClient.Close()

	pgStore := rowstore.NewPostgresStore(db)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := pgStore.Migrate(ctx); err != nil {
		logr.Sugar().Fatalw("failed to migrate row store", "error", err)
	}

	metricsSvc := service.NewMetricsService()
	store := rowstore.Instrument(pgStore, metricsSvc.ObserveRowLoad)

	students := repository.NewStudentRepository(store)
	works := repository.NewWorkRepository(store)
	settings := repository.NewSettingsRepository(store)
	teachers := repository.NewTeacherRepository(store)
	assistantRepo := repository.NewAssistantRepository(store)

	limiter := ratelimit.New(ratelimit.NewRedisStore(redisClient), ratelimit.Config{
		MaxAttempts: cfg.RateLimit.MaxAttempts,
		Window:      cfg.RateLimit.Window,
		Lockout:     cfg.RateLimit.Lockout,
	}, logr)
	limiter.OnLockout = func(string) { metricsSvc.LoginLockout() }
	locker := lock.WithObserver(lock.NewRedisLocker(redisClient, cfg.Lock.Lease, logr), metricsSvc.LockTimeout)

	validate := validator.New()

	studentAuthSvc := service.NewStudentAuthService(students, settings, limiter, locker, cfg.Lock.Wait, validate, logr)
	teacherAuthSvc := service.NewTeacherAuthService(teachers, settings, limiter, validate, logr, service.TeacherAuthConfig{
		PINSessionTTL:      cfg.Auth.PINSessionTTL,
		EmailSessionTTL:    cfg.Auth.EmailSessionTTL,
		FederatedJWTSecret: cfg.Auth.FederatedJWTSecret,
		FederatedJWTIssuer: cfg.Auth.FederatedJWTIssuer,
	})
	studentSvc := service.NewStudentService(students, settings, locker, cfg.Lock.Wait, validate, logr)
	workSvc := service.NewWorkService(works, locker, cfg.Lock.Wait, validate, logr)
	teacherSvc := service.NewTeacherService(teachers, settings, locker, cfg.Lock.Wait, validate, logr)
	settingsSvc := service.NewSettingsService(settings, locker, cfg.Lock.Wait, validate, logr)
	exportSvc := service.NewExportService(logr)

	var assistantClient llm.Client
	if cfg.Assistant.Enabled {
		secrets := secretstore.NewFileStore(cfg.Assistant.SecretFile)
		client, err := llm.NewOpenAIClient(secrets, cfg.Assistant.Model)
		if err != nil {
			logr.Sugar().Warnw("assistant disabled: no API key", "error", err)
			cfg.Assistant.Enabled = false
		} else {
			assistantClient = client
		}
	}
	assistantSvc := service.NewAssistantService(assistantRepo, assistantClient, service.AssistantConfig{
		Enabled:     cfg.Assistant.Enabled,
		MaxSessions: cfg.Assistant.MaxSessions,
		MaxMessages: cfg.Assistant.MaxMessages,
		DailyQuota:  cfg.Assistant.DailyQuota,
	}, locker, cfg.Lock.Wait, metricsSvc, validate, logr)

	bootstrap := service.NewBootstrapService(store, settingsSvc, teachers, logr)
	if err := bootstrap.Run(ctx, cfg.Auth.OwnerEmail, cfg.Auth.OwnerName); err != nil {
		logr.Sugar().Fatalw("bootstrap failed", "error", err)
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(logr))
	r.Use(corsmiddleware.New(cfg.CORS.AllowedOrigins))
	r.Use(middleware.Metrics(metricsSvc))
	r.Use(middleware.RequestCache(students, works,
		func(entity string) { metricsSvc.CacheMiss() },
		func(entity string) { metricsSvc.CacheHit() },
	))

	metricsHandler := handler.NewMetricsHandler(metricsSvc, func(c *gin.Context) error {
		if err := db.PingContext(c.Request.Context()); err != nil {
			return err
		}
		return redisClient.Ping(c.Request.Context()).Err()
	})
	r.GET("/health", metricsHandler.Health)
	r.GET("/ready", metricsHandler.Ready)
	r.GET("/metrics", metricsHandler.Prometheus)

	if cfg.Env != config.EnvProduction {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	handler.RegisterRoutes(r, cfg.APIPrefix, handler.Handlers{
		Auth:      handler.NewAuthHandler(studentAuthSvc, teacherAuthSvc),
		Students:  handler.NewStudentHandler(studentSvc),
		Works:     handler.NewWorkHandler(workSvc),
		Assistant: handler.NewAssistantHandler(assistantSvc),
		Teachers:  handler.NewTeacherHandler(teacherSvc),
		Settings:  handler.NewSettingsHandler(settingsSvc),
		Exports:   handler.NewExportHandler(exportSvc),
	}, teacherAuthSvc)

	addr := fmt.Sprintf(":%d", cfg.Port)
	logr.Sugar().Infow("server starting", "addr", addr, "env", cfg.Env)
	if err := r.Run(addr); err != nil {
		logr.Sugar().Fatalw("server failed", "error", err)
	}
}
