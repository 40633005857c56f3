package router

import (
	"context"
	"log"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/limiter"
	redisstorage "github.com/gofiber/storage/redis"

	"github.com/voicelift/voicelift/app/controllers"
	"github.com/voicelift/voicelift/app/repository"
	"github.com/voicelift/voicelift/internal/pkg/billing"
	"github.com/voicelift/voicelift/internal/pkg/constants"
	"github.com/voicelift/voicelift/internal/pkg/deletion"
	"github.com/voicelift/voicelift/internal/pkg/env"
	"github.com/voicelift/voicelift/internal/pkg/identity"
	"github.com/voicelift/voicelift/internal/pkg/mail"
	"github.com/voicelift/voicelift/internal/pkg/middleware"
	"github.com/voicelift/voicelift/internal/pkg/ratelimit"
)

type ApiRouter struct {
	auth      fiber.Handler
	rateLimit fiber.Handler
}

func (h ApiRouter) InstallRouter(app *fiber.App) {
	api := app.Group(constants.APIRoute, limiter.New(limiter.Config{
		Max:        ipRequestCeiling(),
		Expiration: time.Minute,
		Storage:    limiterStorage(),
	}))
	api.Get("/", func(ctx *fiber.Ctx) error {
		return ctx.Status(fiber.StatusOK).JSON(fiber.Map{
			"message": "Hello from api",
		})
	})

	v1 := api.Group(constants.APIV1Route, h.auth)
	v1.Post(constants.SubscriptionCancelRoute, h.rateLimit, controllers.HandleSubscriptionCancel)
	v1.Post(constants.SubscriptionResumeRoute, h.rateLimit, controllers.HandleSubscriptionResume)
	v1.Get(constants.SubscriptionStatusRoute, controllers.HandleSubscriptionStatus)
	v1.Post(constants.SubscriptionCheckoutRoute, h.rateLimit, controllers.HandleSubscriptionCheckout)
	v1.Post(constants.SubscriptionReconcileRoute, h.rateLimit, controllers.HandleSubscriptionReconcile)
	v1.Get(constants.SubscriptionEventsRoute, controllers.HandleSubscriptionEvents)
	v1.Delete(constants.AccountRoute, h.rateLimit, controllers.HandleAccountDelete)
}

func NewApiRouter() *ApiRouter {
	provider, err := identity.NewFirebaseProvider(context.Background())
	if err != nil {
		log.Fatalf("identity provider setup failed: %v", err)
	}

	factory := repository.GetGlobalFactory()
	accounts := factory.GetAccountRepository()
	events := factory.GetWebhookEventRepository()
	dispatcher := mail.NewFromEnv()
	processor := billing.NewStripeProcessorFromEnv()

	service := billing.NewService(accounts, processor, processor, dispatcher)
	guard := deletion.NewGuard(accounts, processor, provider, dispatcher)

	controllers.SetupBilling(service)
	controllers.SetupDeletion(guard)
	controllers.SetupWebhooks(events, accounts, dispatcher)

	actorLimiter := ratelimit.New(
		"subscription",
		envInt("RATE_LIMIT_REQUESTS", 10),
		time.Duration(envInt("RATE_LIMIT_WINDOW_SECONDS", 60))*time.Second,
	)

	return &ApiRouter{
		auth:      middleware.AuthMiddleware(provider),
		rateLimit: middleware.RateLimitMiddleware(actorLimiter),
	}
}

// limiterStorage backs the IP limiter with the shared cache when configured,
// otherwise fiber keeps its counters in memory.
func limiterStorage() fiber.Storage {
	if env.GetEnv("RATE_LIMIT_BACKEND", "memory") != "redis" {
		return nil
	}
	port, _ := strconv.Atoi(env.GetEnv("CACHE_PORT", "6379"))
	return redisstorage.New(redisstorage.Config{
		Host: env.GetEnv("CACHE_HOST", "localhost"),
		Port: port,
	})
}

func ipRequestCeiling() int {
	return envInt("RATE_LIMIT_IP_REQUESTS", 60)
}

func envInt(key string, fallback int) int {
	if v, err := strconv.Atoi(env.GetEnv(key, strconv.Itoa(fallback))); err == nil && v > 0 {
		return v
	}
	return fallback
}
