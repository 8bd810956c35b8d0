package handlers

import (
	"context"
	"errors"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/example/skinwise/internal/backend"
	"github.com/example/skinwise/internal/onboarding"
	"github.com/example/skinwise/internal/otp"
)

// ErrorHandler renders every error as {"success": false, "error": msg}.
func ErrorHandler(logger *zap.Logger) fiber.ErrorHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		message := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			message = fe.Message
		} else {
			logger.Error("unhandled request error",
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.Error(err))
		}

		return c.Status(code).JSON(fiber.Map{
			"success": false,
			"error":   message,
		})
	}
}

// toHTTPError maps domain and backend errors to fiber errors.
func toHTTPError(err error) error {
	if err == nil {
		return nil
	}

	var (
		apiErr    *backend.APIError
		verifyErr *backend.VerificationError
	)
	switch {
	case errors.Is(err, backend.ErrInvalidPhone),
		errors.Is(err, backend.ErrInvalidCode),
		errors.Is(err, onboarding.ErrAddressIncomplete),
		errors.Is(err, onboarding.ErrInvalidPincode):
		return fiber.NewError(fiber.StatusBadRequest, err.Error())
	case errors.As(err, &verifyErr):
		return fiber.NewError(fiber.StatusBadRequest, verifyErr.Error())
	case errors.Is(err, otp.ErrCooldown):
		return fiber.NewError(fiber.StatusTooManyRequests, err.Error())
	case errors.Is(err, otp.ErrBusy),
		errors.Is(err, otp.ErrNoChallenge),
		errors.Is(err, otp.ErrAlreadyVerified):
		return fiber.NewError(fiber.StatusConflict, err.Error())
	case errors.Is(err, backend.ErrNoCredential):
		return fiber.NewError(fiber.StatusUnauthorized, err.Error())
	case errors.Is(err, backend.ErrContactMismatch):
		return fiber.NewError(fiber.StatusForbidden, err.Error())
	case errors.Is(err, otp.ErrMissingToken),
		errors.Is(err, backend.ErrMalformedVerification):
		return fiber.NewError(fiber.StatusBadGateway, err.Error())
	case errors.As(err, &apiErr):
		if apiErr.Status >= 400 && apiErr.Status < 500 {
			return fiber.NewError(apiErr.Status, apiErr.Message)
		}
		return fiber.NewError(fiber.StatusBadGateway, apiErr.Message)
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.NewError(fiber.StatusGatewayTimeout, "backend did not respond in time")
	case errors.Is(err, context.Canceled):
		return fiber.NewError(fiber.StatusServiceUnavailable, "request cancelled")
	}
	return err
}
