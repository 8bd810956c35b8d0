package main

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"go.uber.org/zap"

	"github.com/example/skinwise/internal/backend"
	"github.com/example/skinwise/internal/config"
	"github.com/example/skinwise/internal/database"
	"github.com/example/skinwise/internal/handlers"
	"github.com/example/skinwise/internal/logging"
	"github.com/example/skinwise/internal/otp"
	"github.com/example/skinwise/internal/routes"
	"github.com/example/skinwise/internal/services"
	"github.com/example/skinwise/internal/session"
	"github.com/example/skinwise/internal/utils"
)

func main() {
	cfg := config.Load()

	log := logging.MustNew(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	db := database.Connect(cfg.DatabaseURL, log)

	sealer, err := utils.NewSealer(cfg.JWTSecret)
	if err != nil {
		log.Fatal("failed to derive session key", zap.Error(err))
	}

	sessions := session.NewManager(
		session.NewDBBackend(db, sealer, log.Named("session")),
		session.NewMemoryBackend(cfg.TabSessionTTL),
		log.Named("session"),
	)

	app := fiber.New(fiber.Config{
		AppName:      "Skinwise Dashboard",
		ErrorHandler: handlers.ErrorHandler(log),
	})

	app.Use(recover.New())
	app.Use(logger.New())

	routes.Register(app, routes.Deps{
		Config:   cfg,
		Backend:  backend.NewClient(cfg.BackendBaseURL, cfg.BackendTimeout, log.Named("backend")),
		Sessions: sessions,
		Flows:    otp.NewRegistry(cfg.TabSessionTTL),
		Telegram: services.NewTelegramService(cfg.TelegramBotToken, cfg.TelegramAdminChat, log.Named("telegram")),
		Logger:   log,
	})

	log.Info("starting server", zap.String("port", cfg.AppPort), zap.String("backend", cfg.BackendBaseURL))
	if err := app.Listen(":" + cfg.AppPort); err != nil {
		log.Fatal("fiber.Listen error", zap.Error(err))
	}
}
