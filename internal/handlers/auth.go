package handlers

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/skinwise/internal/contact"
	"github.com/example/skinwise/internal/middleware"
	"github.com/example/skinwise/internal/otp"
	"github.com/example/skinwise/internal/services"
)

// LeadNotifier announces first-time users.
type LeadNotifier interface {
	NotifyNewLead(lead services.LeadNotification) error
}

// AuthHandler bundles dependencies for the WhatsApp OTP endpoints.
type AuthHandler struct {
	client   otp.Client
	flows    *otp.Registry
	cooldown time.Duration
	leads    LeadNotifier
	logger   *zap.Logger
}

// NewAuthHandler constructs an AuthHandler. leads may be nil.
func NewAuthHandler(client otp.Client, flows *otp.Registry, cooldown time.Duration, leads LeadNotifier, logger *zap.Logger) *AuthHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthHandler{client: client, flows: flows, cooldown: cooldown, leads: leads, logger: logger}
}

type sendOTPRequest struct {
	Phone string `json:"phone"`
	Name  string `json:"name"`
}

type verifyOTPRequest struct {
	Code string `json:"code"`
}

// SendOTP starts or resends the WhatsApp challenge for this tab.
func (h *AuthHandler) SendOTP(c *fiber.Ctx) error {
	key, err := flowKey(c)
	if err != nil {
		return err
	}

	var req sendOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if strings.TrimSpace(req.Phone) == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone is required")
	}

	store := middleware.CurrentSession(c)
	flow := h.flows.Get(key, func() *otp.Flow {
		return otp.NewFlow(h.client, store, h.cooldown, otp.WithLogger(h.logger))
	})

	if err := flow.Send(c.UserContext(), req.Phone, strings.TrimSpace(req.Name)); err != nil {
		return toHTTPError(err)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    flowStatus(flow),
	})
}

// VerifyOTP checks the code against the tab's pending challenge.
func (h *AuthHandler) VerifyOTP(c *fiber.Ctx) error {
	key, err := flowKey(c)
	if err != nil {
		return err
	}

	var req verifyOTPRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	flow, ok := h.flows.Peek(key)
	if !ok {
		return toHTTPError(otp.ErrNoChallenge)
	}

	canonical, name, _ := otp.ChallengeOf(flow.State())
	outcome, err := flow.Verify(c.UserContext(), strings.TrimSpace(req.Code))
	if err != nil {
		return toHTTPError(err)
	}
	h.flows.Delete(key)

	if err := middleware.CurrentSession(c).MarkVerified(canonical); err != nil {
		h.logger.Warn("remember verified contact", zap.Error(err))
	}

	if outcome == otp.OutcomeNew {
		h.notifyLead(name, canonical)
	}

	redirect := "/" + contact.Local(canonical)
	if outcome == otp.OutcomeExisting {
		redirect = "/dashboard/" + contact.Local(canonical)
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"outcome":  outcome.String(),
			"contact":  canonical,
			"redirect": redirect,
		},
	})
}

// Status reports the tab's flow state and cooldown.
func (h *AuthHandler) Status(c *fiber.Ctx) error {
	key, err := flowKey(c)
	if err != nil {
		return err
	}

	flow, ok := h.flows.Peek(key)
	if !ok {
		return c.JSON(fiber.Map{
			"success": true,
			"data": fiber.Map{
				"state":              otp.Idle{}.Label(),
				"cooldown_remaining": 0,
				"can_resend":         true,
			},
		})
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data":    flowStatus(flow),
	})
}

// Logout clears the device credential, the tab contact and any pending flow.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if key, err := flowKey(c); err == nil {
		h.flows.Delete(key)
	}

	if err := middleware.CurrentSession(c).Clear(); err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"success": true,
		"message": "logged out",
	})
}

func (h *AuthHandler) notifyLead(name, canonical string) {
	if h.leads == nil {
		return
	}

	lead := services.LeadNotification{Name: name, Contact: canonical, VerifiedAt: time.Now()}
	if err := h.leads.NotifyNewLead(lead); err != nil {
		h.logger.Warn("telegram lead notification failed", zap.Error(err))
	} else {
		h.logger.Info("telegram lead notification sent")
	}
}

func flowKey(c *fiber.Ctx) (string, error) {
	deviceID, ok := middleware.GetDeviceID(c)
	if !ok {
		return "", fiber.NewError(fiber.StatusUnauthorized, "missing device identity")
	}
	tab := middleware.GetTabID(c)
	if tab == "" {
		return "", fiber.NewError(fiber.StatusBadRequest, "missing "+middleware.TabHeader+" header")
	}
	return deviceID.String() + "/" + tab, nil
}

func flowStatus(flow *otp.Flow) fiber.Map {
	state := flow.State()
	entry := flow.Entry()
	status := fiber.Map{
		"state":              state.Label(),
		"cooldown_remaining": flow.CooldownRemaining(),
		"can_resend":         flow.CanResend(),
		"code": fiber.Map{
			"slots": entry.Slots(),
			"focus": entry.Focus(),
		},
	}

	if canonical, _, ok := otp.ChallengeOf(state); ok {
		status["contact"] = canonical
	}
	if failed, ok := state.(otp.Failed); ok {
		status["error"] = failed.Reason
	}
	return status
}
