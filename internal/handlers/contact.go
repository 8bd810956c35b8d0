package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/example/skinwise/internal/contact"
)

// NormalizeContact returns the canonical, local and digit-only forms of ?phone=.
func NormalizeContact(c *fiber.Ctx) error {
	raw := c.Query("phone")
	canonical := contact.Normalize(raw)
	if canonical == "" {
		return fiber.NewError(fiber.StatusBadRequest, "phone must contain digits")
	}

	return c.JSON(fiber.Map{
		"success": true,
		"data": fiber.Map{
			"canonical": canonical,
			"local":     contact.Local(canonical),
			"digits":    contact.Digits(canonical),
			"valid":     contact.Valid(canonical),
		},
	})
}
