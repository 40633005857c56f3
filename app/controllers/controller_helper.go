package controllers

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/voicelift/voicelift/internal/pkg/billing"
	"github.com/voicelift/voicelift/internal/pkg/usercontext"
)

// requireActor verifies that the authenticated actor is the user named in the
// request. A missing userId is rejected up front; a mismatch is refused,
// never silently corrected to the actor.
func requireActor(c *fiber.Ctx, userID string) (usercontext.UserContext, bool) {
	userCtx := usercontext.GetUserContext(c)
	if !userCtx.IsLoggedIn {
		_ = c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "unauthorized", "message": "Missing or invalid authentication"})
		return userCtx, false
	}
	if userID == "" {
		_ = c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "userId is required"})
		return userCtx, false
	}
	if userID != userCtx.UserID {
		_ = c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden", "message": "Actor does not match userId"})
		return userCtx, false
	}
	return userCtx, true
}

// writeRefusal renders a typed domain refusal. Refusals are expected
// outcomes, so they never log as errors.
func writeRefusal(c *fiber.Ctx, refusal *billing.Refusal) error {
	body := fiber.Map{
		"error":   string(refusal.Code),
		"message": refusal.Message,
	}
	if refusal.PeriodEnd != nil {
		body["current_period_end"] = refusal.PeriodEnd.UTC().Format(time.RFC3339)
	}
	return c.Status(statusForCode(refusal.Code)).JSON(body)
}

func statusForCode(code billing.Code) int {
	switch code {
	case billing.CodeRateLimited:
		return fiber.StatusTooManyRequests
	case billing.CodeCancelFailed:
		return fiber.StatusBadGateway
	default:
		return fiber.StatusConflict
	}
}

// writeDomainError maps a service error onto the response: refusals keep
// their code, processor faults become a gateway error, everything else is a
// plain 500.
func writeDomainError(c *fiber.Ctx, err error) error {
	if refusal, ok := billing.AsRefusal(err); ok {
		return writeRefusal(c, refusal)
	}
	if pe, ok := billing.AsProcessorError(err); ok {
		status := fiber.StatusBadGateway
		if pe.Retryable {
			status = fiber.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{"error": "processor_unavailable", "message": "Billing processor request failed, try again"})
	}
	return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Unexpected error"})
}
