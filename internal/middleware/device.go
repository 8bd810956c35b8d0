package middleware

import (
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/example/skinwise/internal/config"
	"github.com/example/skinwise/internal/session"
	"github.com/example/skinwise/internal/utils"
)

const (
	// DeviceCookie carries the signed device identity.
	DeviceCookie = "device_token"
	// TabHeader names the per-tab identity sent by the web client.
	TabHeader = "X-Tab-ID"

	deviceContextKey  = "currentDeviceID"
	tabContextKey     = "currentTabID"
	sessionContextKey = "currentSession"

	maxTabIDLength = 64
)

// Device validates the device cookie, issuing a fresh one when it is missing,
// expired or forged, and loads the device and tab IDs into context.
func Device(cfg *config.Config) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deviceID, err := utils.ParseDeviceToken(cfg.JWTSecret, c.Cookies(DeviceCookie))
		if err != nil {
			deviceID = uuid.New()
			token, err := utils.GenerateDeviceToken(cfg.JWTSecret, deviceID, cfg.DeviceTTL)
			if err != nil {
				return fiber.NewError(fiber.StatusInternalServerError, "failed to issue device token")
			}
			c.Cookie(&fiber.Cookie{
				Name:     DeviceCookie,
				Value:    token,
				Path:     "/",
				Expires:  time.Now().Add(cfg.DeviceTTL),
				HTTPOnly: true,
				Secure:   cfg.CookieSecure,
				SameSite: fiber.CookieSameSiteLaxMode,
			})
		}

		c.Locals(deviceContextKey, deviceID)
		c.Locals(tabContextKey, tabID(c.Get(TabHeader)))
		return c.Next()
	}
}

// Session opens the slot store for the current device and tab.
func Session(manager *session.Manager) fiber.Handler {
	return func(c *fiber.Ctx) error {
		deviceID, _ := GetDeviceID(c)
		c.Locals(sessionContextKey, manager.Open(deviceID.String(), GetTabID(c)))
		return c.Next()
	}
}

// RequireVerified rejects requests from a device with no backend credential
// whose tab has not verified a contact by OTP either.
func RequireVerified() fiber.Handler {
	return func(c *fiber.Ctx) error {
		store := CurrentSession(c)
		if store.Token() == "" && store.Verified() == "" {
			return fiber.NewError(fiber.StatusUnauthorized, "please verify your WhatsApp number first")
		}
		return c.Next()
	}
}

// GetDeviceID extracts the device ID from context.
func GetDeviceID(c *fiber.Ctx) (uuid.UUID, bool) {
	value := c.Locals(deviceContextKey)
	if value == nil {
		return uuid.Nil, false
	}

	if id, ok := value.(uuid.UUID); ok {
		return id, true
	}

	return uuid.Nil, false
}

// GetTabID returns the tab ID or "" when the client sent none.
func GetTabID(c *fiber.Ctx) string {
	if id, ok := c.Locals(tabContextKey).(string); ok {
		return id
	}
	return ""
}

// CurrentSession returns the slot store opened by Session. Without the
// middleware it returns an empty store whose operations are no-ops.
func CurrentSession(c *fiber.Ctx) *session.Store {
	if store, ok := c.Locals(sessionContextKey).(*session.Store); ok && store != nil {
		return store
	}
	return session.NewStore(nil, nil, nil)
}

func tabID(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" || len(raw) > maxTabIDLength {
		return ""
	}
	for _, r := range raw {
		if !(r == '-' || r == '_' || r >= '0' && r <= '9' || r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z') {
			return ""
		}
	}
	return raw
}
