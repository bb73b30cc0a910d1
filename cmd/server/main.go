package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/rith-wik/attribute-forecasting-system/internal/api"
	"github.com/rith-wik/attribute-forecasting-system/internal/config"
	"github.com/rith-wik/attribute-forecasting-system/internal/dataset"
	"github.com/rith-wik/attribute-forecasting-system/internal/features"
	"github.com/rith-wik/attribute-forecasting-system/internal/forecast"
	"github.com/rith-wik/attribute-forecasting-system/internal/logging"
	"github.com/rith-wik/attribute-forecasting-system/internal/middleware"
	"github.com/rith-wik/attribute-forecasting-system/internal/services"
	"github.com/rith-wik/attribute-forecasting-system/internal/storage"
	"github.com/sirupsen/logrus"
)

const serviceName = "attribute-forecasting-system"

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	stdLogger := logging.NewStandardLogger(cfg.LogLevel)
	logger := stdLogger.WithComponent("server")

	ctx := context.Background()

	// Blob store for datasets and model artifacts.
	var store storage.Store
	switch cfg.Storage.Mode {
	case "postgres":
		pgStore, err := storage.NewPostgresStore(ctx, cfg.Database.ConnString())
		if err != nil {
			log.Fatalf("Failed to connect to Postgres storage: %v", err)
		}
		defer pgStore.Close()
		store = pgStore
	default:
		fsStore, err := storage.NewFSStore(cfg.Storage.DataDir)
		if err != nil {
			log.Fatalf("Failed to open local storage: %v", err)
		}
		store = fsStore
	}

	// Optional Redis cache for the trend signal.
	var redisClient *redis.Client
	if cfg.Redis.Enabled {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr(),
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := redisClient.Ping(ctx).Err(); err != nil {
			logger.Warn("Redis unreachable, trend cache disabled", "error", err)
			redisClient = nil
		} else {
			defer redisClient.Close()
		}
	}

	loader := dataset.NewLoader(store, stdLogger.WithComponent("dataset"))
	pipeline := features.NewPipeline(cfg.Forecast.MovingAvgWindows, cfg.Forecast.PromoRateWindow, stdLogger.WithComponent("features"))
	registry := forecast.NewRegistry(store, stdLogger.WithComponent("registry"))
	trainer := forecast.NewTrainer(cfg.Forecast.Alpha, cfg.Forecast.BacktestHorizonDays, cfg.Forecast.PermutationRepeats, stdLogger.WithComponent("trainer"))

	// Restore the most recent artifact so predictions survive restarts.
	if err := registry.LoadLatest(ctx); err != nil {
		logger.Warn("Failed to restore model artifact", "error", err)
	}

	if cfg.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	// Route gin's own log output through logrus so every line is JSON.
	ginLog := logging.NewLogrusLogger(cfg.LogLevel)
	gin.DefaultWriter = ginLog.Writer()
	gin.DefaultErrorWriter = ginLog.WriterLevel(logrus.ErrorLevel)

	router := gin.New()
	router.Use(gin.Recovery(), middleware.RequestID(), middleware.RequestLogger(stdLogger.WithComponent("http")))

	api.SetupRoutes(router, api.Dependencies{
		Forecast: services.NewForecastService(loader, pipeline, registry, stdLogger.WithComponent("forecast")),
		Training: services.NewTrainingService(loader, pipeline, trainer, registry, stdLogger.WithComponent("training")),
		Trends:   services.NewTrendService(store, redisClient, time.Duration(cfg.Redis.TTLHours)*time.Hour, stdLogger.WithComponent("trends")),
		Datasets: services.NewDatasetService(loader, stdLogger.WithComponent("datasets")),
		Registry: registry,
		Logger:   stdLogger.WithComponent("api"),
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	go func() {
		stdLogger.LogStartup(serviceName, "1.0.0", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	stdLogger.LogShutdown(serviceName, "signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}
	logger.Info("Server exited")
}
