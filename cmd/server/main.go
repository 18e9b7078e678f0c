package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/session"
	"github.com/rs/zerolog/log"

	"github.com/example/storefront/internal/cache"
	"github.com/example/storefront/internal/config"
	"github.com/example/storefront/internal/database"
	"github.com/example/storefront/internal/events"
	"github.com/example/storefront/internal/handlers"
	"github.com/example/storefront/internal/mail"
	"github.com/example/storefront/internal/notify"
	"github.com/example/storefront/internal/orders"
	"github.com/example/storefront/internal/registration"
	"github.com/example/storefront/internal/routes"
	"github.com/example/storefront/internal/telemetry"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("load config")
	}

	root := telemetry.NewLogger(cfg.LogLevel, cfg.LogFormat, cfg.ServiceName)

	ctx := context.Background()
	tp, err := telemetry.InitTracerProvider(ctx, cfg.ServiceName, cfg.OTLPEndpoint)
	if err != nil {
		root.Warn().Err(err).Msg("tracing disabled")
	}

	db, err := database.Connect(cfg.DatabaseURL, cfg.DBLogLevel)
	if err != nil {
		root.Fatal().Err(err).Msg("database")
	}

	sessionCfg := session.Config{Expiration: cfg.SessionTTL}
	var redisStore *cache.RedisStorage
	if cfg.RedisURL != "" {
		redisStore, err = cache.NewRedisStorage(cfg.RedisURL)
		if err != nil {
			root.Fatal().Err(err).Msg("redis")
		}
		sessionCfg.Storage = redisStore
	}
	sessions := session.New(sessionCfg)

	publisher := events.NewPublisher(cfg.KafkaBrokers, cfg.KafkaOrderTopic)
	telegram := notify.NewTelegram(cfg.TelegramBotToken, cfg.TelegramAdminChat, root)
	mailer := mail.New(mail.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.MailFrom,
	}, root)

	orderSvc := orders.NewService(orders.NewGormStore(db), publisher, telegram, root)
	regSvc := registration.NewService(registration.NewGormStore(db), mailer, registration.Config{
		CodeTTL:        cfg.OTPTTL,
		LogCodes:       cfg.OTPLogCodes,
		ResendInterval: cfg.OTPResendInterval,
	}, root)

	app := fiber.New(fiber.Config{
		AppName:      "Storefront Backend",
		ErrorHandler: handlers.ErrorHandler,
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, routes.Deps{
		DB:           db,
		Config:       cfg,
		Sessions:     sessions,
		Registration: regSvc,
		Orders:       orderSvc,
	})

	go func() {
		root.Info().Str("port", cfg.AppPort).Msg("starting server")
		if err := app.Listen(":" + cfg.AppPort); err != nil {
			root.Fatal().Err(err).Msg("fiber.Listen")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	root.Info().Msg("shutting down")
	if err := app.ShutdownWithTimeout(10 * time.Second); err != nil {
		root.Error().Err(err).Msg("server shutdown")
	}
	if err := publisher.Close(); err != nil {
		root.Warn().Err(err).Msg("close publisher")
	}
	if redisStore != nil {
		_ = redisStore.Close()
	}
	if tp != nil {
		shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()
		if err := tp.Shutdown(shutdownCtx); err != nil {
			root.Warn().Err(err).Msg("tracer shutdown")
		}
	}
}
