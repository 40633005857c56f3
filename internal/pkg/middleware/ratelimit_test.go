package middleware

import (
	"net/http"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"

	"github.com/voicelift/voicelift/internal/pkg/ratelimit"
	"github.com/voicelift/voicelift/internal/pkg/usercontext"
)

func newLimitedApp(actorID string, limit int) *fiber.App {
	app := fiber.New()
	app.Use(func(c *fiber.Ctx) error {
		if actorID != "" {
			usercontext.SetUserContext(c, usercontext.UserContext{UserID: actorID, IsLoggedIn: true})
		}
		return c.Next()
	})
	app.Post("/action", RateLimitMiddleware(ratelimit.NewMemoryLimiter(limit, time.Minute)), func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})
	return app
}

func TestRateLimitMiddlewareRefusesAfterCeiling(t *testing.T) {
	app := newLimitedApp("uid-1", 2)

	for i := 0; i < 2; i++ {
		req, _ := http.NewRequest(http.MethodPost, "/action", nil)
		resp, err := app.Test(req, -1)
		if err != nil {
			t.Fatalf("request %d failed: %v", i, err)
		}
		assert.Equal(t, fiber.StatusOK, resp.StatusCode)
	}

	req, _ := http.NewRequest(http.MethodPost, "/action", nil)
	resp, err := app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)
	assert.NotEmpty(t, resp.Header.Get(fiber.HeaderRetryAfter))
}

func TestRateLimitMiddlewareIsolatesActors(t *testing.T) {
	limiter := ratelimit.NewMemoryLimiter(1, time.Minute)

	newApp := func(actor string) *fiber.App {
		app := fiber.New()
		app.Use(func(c *fiber.Ctx) error {
			usercontext.SetUserContext(c, usercontext.UserContext{UserID: actor, IsLoggedIn: true})
			return c.Next()
		})
		app.Post("/action", RateLimitMiddleware(limiter), func(c *fiber.Ctx) error {
			return c.SendStatus(fiber.StatusOK)
		})
		return app
	}

	first := newApp("uid-1")
	req, _ := http.NewRequest(http.MethodPost, "/action", nil)
	resp, _ := first.Test(req, -1)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)

	req, _ = http.NewRequest(http.MethodPost, "/action", nil)
	resp, _ = first.Test(req, -1)
	assert.Equal(t, fiber.StatusTooManyRequests, resp.StatusCode)

	second := newApp("uid-2")
	req, _ = http.NewRequest(http.MethodPost, "/action", nil)
	resp, _ = second.Test(req, -1)
	assert.Equal(t, fiber.StatusOK, resp.StatusCode)
}
