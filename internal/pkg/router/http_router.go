package router

import (
	"github.com/gofiber/fiber/v2"

	"github.com/voicelift/voicelift/app/controllers"
	"github.com/voicelift/voicelift/internal/pkg/constants"
	"github.com/voicelift/voicelift/internal/pkg/realtime"
)

type HttpRouter struct {
}

func (h HttpRouter) InstallRouter(app *fiber.App) {
	// init realtime broker
	realtime.Setup()

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	// Processor webhooks authenticate via signature, not bearer token, so
	// they live outside the API group.
	app.Post(constants.StripeWebhookRoute, controllers.HandleStripeWebhook)
}

func NewHttpRouter() *HttpRouter {
	return &HttpRouter{}
}
