package routes

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/skinwise/internal/backend"
	"github.com/example/skinwise/internal/config"
	"github.com/example/skinwise/internal/guard"
	"github.com/example/skinwise/internal/handlers"
	"github.com/example/skinwise/internal/middleware"
	"github.com/example/skinwise/internal/otp"
	"github.com/example/skinwise/internal/services"
	"github.com/example/skinwise/internal/session"
)

// Deps carries the long-lived collaborators the routes are built from.
type Deps struct {
	Config   *config.Config
	Backend  *backend.Client
	Sessions *session.Manager
	Flows    *otp.Registry
	Telegram *services.TelegramService
	Logger   *zap.Logger
}

// Register wires up all HTTP routes.
func Register(app *fiber.App, deps Deps) {
	cfg := deps.Config

	var leads handlers.LeadNotifier
	if deps.Telegram != nil {
		leads = deps.Telegram
	}

	authHandler := handlers.NewAuthHandler(deps.Backend, deps.Flows, cfg.OTPResendCooldown, leads, deps.Logger)
	routeHandler := handlers.NewRouteHandler(guard.New(deps.Backend, cfg.LoginRoute, deps.Logger), deps.Logger)
	profileHandler := handlers.NewProfileHandler(deps.Backend)

	api := app.Group("/api", middleware.Device(cfg), middleware.Session(deps.Sessions))

	api.Get("/contact/normalize", handlers.NormalizeContact)

	// Auth routes
	auth := api.Group("/auth")
	auth.Post("/otp/send", authHandler.SendOTP)
	auth.Post("/otp/verify", authHandler.VerifyOTP)
	auth.Get("/otp", authHandler.Status)
	auth.Post("/logout", authHandler.Logout)

	// Page guards
	api.Get("/route/:mobile", routeHandler.Onboarding)
	api.Get("/dashboard/:mobile", routeHandler.Dashboard)

	// Onboarding profile
	profile := api.Group("/profile", middleware.RequireVerified())
	profile.Patch("/", profileHandler.UpdateProfile)
	profile.Get("/progress", profileHandler.Progress)
}
