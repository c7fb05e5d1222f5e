package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/event-seat-booking/internal/config"
	"github.com/iliyamo/event-seat-booking/internal/database"
	"github.com/iliyamo/event-seat-booking/internal/handler"
	"github.com/iliyamo/event-seat-booking/internal/middleware"
	"github.com/iliyamo/event-seat-booking/internal/queue"
	"github.com/iliyamo/event-seat-booking/internal/repository"
	"github.com/iliyamo/event-seat-booking/internal/router"
	"github.com/iliyamo/event-seat-booking/internal/service"
	"github.com/iliyamo/event-seat-booking/internal/store"
	"github.com/iliyamo/event-seat-booking/internal/store/memory"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg := config.Load()
	logger := config.NewLogger(cfg.LogLevel, cfg.LogFormat)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	st, closeStore := openStore(ctx, cfg, logger)
	defer closeStore()

	users := service.NewUserService(st.Users(), logger)
	if cfg.AdminEmail != "" {
		if _, err := users.SeedAdmin(ctx, cfg.AdminName, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost); err != nil {
			logger.WithError(err).Fatal("seed admin")
		}
	}

	var pub service.Publisher
	if cfg.RabbitURL != "" {
		pub = queue.NewPublisher(cfg.RabbitURL, logger)
		consumer := queue.NewConsumer(cfg.RabbitURL, cfg.BookingLogPath, logger)
		go func() {
			if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
				logger.WithError(err).Error("booking consumer stopped")
			}
		}()
	} else {
		logger.Warn("RABBITMQ_URL not set, booking notifications disabled")
	}

	bookings := service.NewBookingService(st, pub, logger)
	events := service.NewEventService(st, logger)

	rdb := config.NewRedisClient(logger)
	if rdb != nil {
		defer rdb.Close()
	}
	cache := middleware.NewResponseCache(config.LoadCacheConfig(), rdb, logger)

	e := echo.New()
	e.HideBanner = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(logger))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, logger))

	router.Register(e, router.Handlers{
		Auth:     handler.NewAuthHandler(cfg, st.Users(), st.Tokens(), logger),
		Events:   handler.NewEventHandler(events, bookings, logger),
		Bookings: handler.NewBookingHandler(bookings, logger),
		Users:    handler.NewUserHandler(users, logger),
	}, cfg.JWTSecret, cache)

	addr := ":" + cfg.Port
	go func() {
		logger.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "storage": cfg.StorageDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Error("shutdown")
	}
}

// openStore returns the configured storage backend and its closer.
func openStore(ctx context.Context, cfg config.Config, logger *logrus.Logger) (store.Store, func()) {
	if cfg.StorageDriver == config.DriverMemory {
		logger.Warn("using in-memory storage, data is lost on restart")
		return memory.New(), func() {}
	}
	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		logger.WithError(err).Fatal("db connect")
	}
	if cfg.DBAutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			logger.WithError(err).Fatal("db migrate")
		}
	}
	return repository.NewSQLStore(db), func() { closeDB(db, logger) }
}

func closeDB(db *sql.DB, logger *logrus.Logger) {
	if err := db.Close(); err != nil {
		logger.WithError(err).Warn("close db")
	}
}
