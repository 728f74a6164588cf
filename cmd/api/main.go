package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echoMiddleware "github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/bounceheads/directory/internal/auth"
	"github.com/bounceheads/directory/internal/cache"
	"github.com/bounceheads/directory/internal/classify"
	"github.com/bounceheads/directory/internal/config"
	"github.com/bounceheads/directory/internal/database"
	"github.com/bounceheads/directory/internal/handler"
	"github.com/bounceheads/directory/internal/logger"
	"github.com/bounceheads/directory/internal/metro"
	middlewarepkg "github.com/bounceheads/directory/internal/middleware"
	"github.com/bounceheads/directory/internal/places"
	"github.com/bounceheads/directory/internal/repository"
	"github.com/bounceheads/directory/internal/router"
	"github.com/bounceheads/directory/internal/service"
	"github.com/bounceheads/directory/internal/storage"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	zl, err := logger.New(cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to build logger: %v", err)
	}
	defer func() { _ = zl.Sync() }()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		zl.Fatal("failed to connect database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.EnsureSchema(ctx, pool); err != nil {
		zl.Fatal("failed to apply schema", zap.Error(err))
	}

	rules, err := classify.LoadRules(cfg.Pipeline.RulesFile)
	if err != nil {
		zl.Fatal("failed to load rental rules", zap.Error(err))
	}
	tables, err := metro.LoadTables(cfg.Pipeline.MetroFile)
	if err != nil {
		zl.Fatal("failed to load metro tables", zap.Error(err))
	}

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)

	parksRepo := repository.NewPGXParksRepository(pool)
	parksService := service.NewParksService(parksRepo, cfg.Pipeline, rules, tables, zl)

	placesClient := places.NewClient(nil, cfg.Pipeline.PlacesBaseURL, cfg.Pipeline.APIKey, zl.Named("places"))

	var photoCache cache.PhotoCache
	if cfg.RedisURL != "" {
		redisCache, err := cache.NewRedisPhotoCache(ctx, cfg.RedisURL, cfg.PhotoCacheTTL, zl.Named("cache"))
		if err != nil {
			zl.Warn("photo cache disabled", zap.Error(err))
		} else {
			defer redisCache.Close()
			photoCache = redisCache
		}
	}

	var objects handler.ObjectReader
	if cfg.StorageBucket != "" {
		// Bucket objects are public; reads need no credentials.
		bucket, err := storage.NewUploader(ctx, cfg.StorageBucket, "", option.WithoutAuthentication())
		if err != nil {
			zl.Warn("image proxy disabled", zap.Error(err))
		} else {
			objects = bucket
		}
	}

	handlers := router.Handlers{
		Parks:  handler.NewParksHandler(parksService),
		Photos: handler.NewPhotoHandler(placesClient, objects, photoCache, zl.Named("proxy")),
		Admin:  handler.NewAdminHandler(parksService),
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewRequestValidator()

	e.Use(middlewarepkg.RequestID())
	e.Use(middlewarepkg.Logging(zl.Named("http")))
	e.Use(echoMiddleware.Recover())

	router.Register(e, cfg, jwtManager, handlers)

	serverErr := make(chan error, 1)
	go func() {
		zl.Info("api listening", zap.String("port", cfg.Port))
		serverErr <- e.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		zl.Info("shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			zl.Fatal("server error", zap.Error(err))
		}
		return
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		zl.Error("graceful shutdown failed", zap.Error(err))
	}
}
