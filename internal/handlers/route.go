package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/skinwise/internal/guard"
	"github.com/example/skinwise/internal/middleware"
	"github.com/example/skinwise/internal/models"
	"github.com/example/skinwise/internal/utils"
)

// RouteHandler answers page-load checks for the onboarding and dashboard pages.
type RouteHandler struct {
	guard  *guard.Guard
	logger *zap.Logger
}

// NewRouteHandler constructs RouteHandler.
func NewRouteHandler(g *guard.Guard, logger *zap.Logger) *RouteHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RouteHandler{guard: g, logger: logger}
}

// Onboarding resolves the /{mobile} page.
func (h *RouteHandler) Onboarding(c *fiber.Ctx) error {
	d := h.resolve(c, guard.RouteOnboarding)
	return c.JSON(fiber.Map{
		"success": true,
		"data":    d,
	})
}

// Dashboard resolves the /dashboard/{mobile} page and, when it may render,
// returns the user with a page of prescriptions and the conversations.
func (h *RouteHandler) Dashboard(c *fiber.Ctx) error {
	d := h.resolve(c, guard.RouteDashboard)
	if d.Kind != guard.ShowDashboard || d.Data == nil {
		return c.JSON(fiber.Map{
			"success": true,
			"data":    d,
		})
	}

	pagination := utils.ParsePagination(c)
	prescriptions := d.Data.Prescriptions
	if prescriptions == nil {
		prescriptions = []models.Prescription{}
	}
	start, end := pagination.Bounds(len(prescriptions))

	conversations := d.Data.Conversations
	if conversations == nil {
		conversations = []models.Conversation{}
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"decision":      d,
			"user":          d.User,
			"prescriptions": prescriptions[start:end],
			"conversations": conversations,
			"pagination":    pagination.Meta(len(prescriptions)),
		},
	})
}

func (h *RouteHandler) resolve(c *fiber.Ctx, route guard.Route) guard.Decision {
	store := middleware.CurrentSession(c)
	d := h.guard.Resolve(c.UserContext(), store, guard.Request{
		Mobile: c.Params("mobile"),
		Route:  route,
	})

	if guard.AdoptsContact(d, store.Token() != "") {
		if err := store.SetContact(d.Contact); err != nil {
			h.logger.Warn("remember tab contact", zap.Error(err))
		}
	}
	return d
}
