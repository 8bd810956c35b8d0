package handlers

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/example/skinwise/internal/backend"
	"github.com/example/skinwise/internal/middleware"
	"github.com/example/skinwise/internal/models"
	"github.com/example/skinwise/internal/onboarding"
)

// ProfileBackend is the part of the remote API the profile endpoints use.
type ProfileBackend interface {
	VerifyAuth(ctx context.Context, token, canonical string) (*models.User, error)
	UpdateUser(ctx context.Context, token, canonical string, update models.UserUpdate) (*models.User, error)
	GetUserWithAllData(ctx context.Context, token, canonical string) (*models.UserData, error)
}

// ProfileHandler manages the onboarding profile endpoints.
type ProfileHandler struct {
	backend ProfileBackend
}

// NewProfileHandler constructs ProfileHandler.
func NewProfileHandler(b ProfileBackend) *ProfileHandler {
	return &ProfileHandler{backend: b}
}

// UpdateProfile forwards a partial update for the tab's contact.
func (h *ProfileHandler) UpdateProfile(c *fiber.Ctx) error {
	token, canonical, err := h.authorize(c)
	if err != nil {
		return err
	}

	var req models.UserUpdate
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Empty() {
		return fiber.NewError(fiber.StatusBadRequest, "nothing to update")
	}

	addresses, err := onboarding.NormalizeAddresses(req.Addresses)
	if err != nil {
		return toHTTPError(err)
	}
	req.Addresses = addresses

	user, err := h.backend.UpdateUser(c.UserContext(), token, canonical, req)
	if err != nil {
		return toHTTPError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    user,
	})
}

// Progress reports where the tab's user should resume onboarding.
func (h *ProfileHandler) Progress(c *fiber.Ctx) error {
	token, canonical, err := h.authorize(c)
	if err != nil {
		return err
	}

	data, err := h.backend.GetUserWithAllData(c.UserContext(), token, canonical)
	if err != nil {
		return toHTTPError(err)
	}

	var user *models.User
	if data != nil {
		user = data.User
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"step":         onboarding.NextStep(user, data, true),
			"onboarded":    onboarding.IsOnboarded(user, data),
			"dashboard":    onboarding.HasDashboardAccess(user),
			"display_name": user.DisplayName(),
			"contact":      canonical,
		},
	})
}

// authorize returns the credential and contact a profile call may act on.
// A stored credential must belong to the tab's contact; without one, the tab
// must have verified that contact by OTP.
func (h *ProfileHandler) authorize(c *fiber.Ctx) (string, string, error) {
	store := middleware.CurrentSession(c)
	canonical := store.Contact()
	if canonical == "" {
		return "", "", fiber.NewError(fiber.StatusBadRequest, "no contact selected for this tab")
	}

	token := store.Token()
	if token == "" {
		if store.Verified() != canonical {
			return "", "", toHTTPError(backend.ErrContactMismatch)
		}
		return "", canonical, nil
	}

	if _, err := h.backend.VerifyAuth(c.UserContext(), token, canonical); err != nil {
		return "", "", toHTTPError(err)
	}
	return token, canonical, nil
}
