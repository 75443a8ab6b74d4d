package main

import (
	"context"
	"fmt"
	"log"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/marshub/authgate/config"
	"github.com/marshub/authgate/devbackend"
	"github.com/marshub/authgate/logger"
	"github.com/marshub/authgate/telemetry"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}

	logger.InitLogger(cfg.LogLevel)
	defer logger.Log.Sync()

	logger.Log.Info("Starting authgate dev backend",
		zap.Int("port", cfg.Port),
		zap.String("db_type", cfg.DBType),
	)

	ctx := context.Background()
	provider, err := telemetry.NewProvider(ctx, telemetry.Config{
		ServiceName:  "authgate",
		Environment:  "development",
		OTLPEndpoint: cfg.OTLPEndpoint,
	})
	if err != nil {
		logger.Log.Fatal("failed to initialize telemetry", zap.Error(err))
	}
	defer provider.Shutdown(ctx)

	store, err := devbackend.OpenStore(cfg.DBType, cfg.DSN, !cfg.SkipAutoMigrate)
	if err != nil {
		logger.Log.Fatal("failed to open store", zap.Error(err))
	}

	var lockout devbackend.LockoutStore
	if cfg.RedisAddr != "" {
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		lockout = devbackend.NewRedisLockoutStore(client)
		logger.Log.Info("using redis lockout store", zap.String("addr", cfg.RedisAddr))
	} else {
		lockout = devbackend.NewMemoryLockoutStore()
	}

	tokens := devbackend.NewTokenIssuer(cfg.JWTSecret)

	// Mock credentials are accepted here because this backend serves the
	// development environment, where the simulated strategy runs.
	h := devbackend.NewHandler(store, tokens, lockout, cfg.TelegramBotToken, true)

	e := echo.New()
	e.HideBanner = true

	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	h.RegisterRoutes(e)

	logger.Log.Info("Server is starting", zap.Int("port", cfg.Port))
	if err := e.Start(fmt.Sprintf(":%d", cfg.Port)); err != nil {
		logger.Log.Fatal("server failed to start", zap.Error(err))
	}
}
