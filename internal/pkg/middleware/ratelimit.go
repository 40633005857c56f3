package middleware

import (
	"log"

	"github.com/gofiber/fiber/v2"

	"github.com/voicelift/voicelift/internal/pkg/ratelimit"
	"github.com/voicelift/voicelift/internal/pkg/usercontext"
)

// RateLimitMiddleware refuses requests once the authenticated actor exhausts
// the fixed window. Runs after AuthMiddleware; anonymous requests never reach
// it. On a limiter backend fault the request passes, a throttle outage must
// not take the API down with it.
func RateLimitMiddleware(limiter ratelimit.Limiter) fiber.Handler {
	return func(c *fiber.Ctx) error {
		actor := usercontext.GetUserID(c)
		if actor == "" {
			return c.Next()
		}

		result, err := limiter.Allow(c.UserContext(), actor)
		if err != nil {
			log.Printf("rate limit middleware: %v", err)
			return c.Next()
		}
		if !result.Allowed {
			c.Set(fiber.HeaderRetryAfter, ratelimit.WindowSeconds(result.RetryAfter))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error":   "RATE_LIMITED",
				"message": "Too many requests, slow down",
			})
		}
		return c.Next()
	}
}
