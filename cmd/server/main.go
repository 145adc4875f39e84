package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"

	"github.com/norrapat/table-reserve/internal/config"
	"github.com/norrapat/table-reserve/internal/database"
	"github.com/norrapat/table-reserve/internal/handler"
	"github.com/norrapat/table-reserve/internal/queue"
	"github.com/norrapat/table-reserve/internal/repository"
	"github.com/norrapat/table-reserve/internal/router"
	"github.com/norrapat/table-reserve/internal/service"
	"github.com/norrapat/table-reserve/internal/slipverify"
	"github.com/norrapat/table-reserve/internal/storage"
	"github.com/norrapat/table-reserve/migrations"
)

var logger = zerolog.New(os.Stdout).With().Timestamp().Str("component", "server").Logger()

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.Fatal().Err(err).Msg("database connection failed")
	}
	defer db.Close()

	if err := migrations.Run(context.Background(), db); err != nil {
		logger.Fatal().Err(err).Msg("migrations failed")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		logger.Warn().Msg("redis unavailable; cache and rate limiting disabled")
	}

	settings := repository.NewSettingsRepo(db)
	zones := repository.NewZoneRepo(db)
	tables := repository.NewTableRepo(db)
	bookings := repository.NewBookingRepo(db)
	orders := repository.NewOrderRepo(db)
	refs := repository.NewPaymentRefRepo(db)
	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)

	verifier := slipverify.NewClient(cfg.SlipVerifyURL, cfg.SlipVerifyToken)
	store := storage.NewUploader(cfg.UploadDir)
	notifier := service.AMQPNotifier{}

	svc := service.NewBookingService(db, settings, tables, bookings, orders, refs, users,
		verifier, store, notifier, time.Duration(cfg.HoldTTLMin)*time.Minute)

	// Best-effort delivery of confirmation events to downstream hooks.
	go func() {
		if err := queue.StartBookingConsumer(); err != nil {
			logger.Warn().Err(err).Msg("booking consumer stopped")
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.RequestID())

	rlCfg := config.LoadRateLimitConfig()
	router.RegisterRoutes(e, cfg.UploadDir)
	router.RegisterPublic(e, handler.NewCatalogHandler(tables), config.LoadCacheConfig(), rlCfg, rdb)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, tokens), cfg.JWTSecret)
	router.RegisterCustomer(e, handler.NewBookingHandler(svc, bookings), cfg.JWTSecret, rlCfg, rdb)
	router.RegisterAdmin(e, router.AdminHandlers{
		Zones:    handler.NewAdminZoneHandler(zones),
		Tables:   handler.NewAdminTableHandler(tables),
		Bookings: handler.NewAdminBookingHandler(svc, tables, orders),
		Settings: handler.NewAdminSettingsHandler(settings),
	}, cfg.JWTSecret)

	addr := ":" + cfg.Port
	logger.Info().Str("addr", addr).Str("env", cfg.Env).Msg("listening")
	if err := e.Start(addr); err != nil {
		logger.Fatal().Err(err).Msg("server stopped")
	}
}
