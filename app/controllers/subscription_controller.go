package controllers

import (
	"errors"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/voicelift/voicelift/internal/pkg/billing"
	"github.com/voicelift/voicelift/internal/pkg/entitlements"
)

var billingService *billing.Service

// SetupBilling injects the lifecycle service used by the subscription
// handlers. Called once from the router, replaced with fakes in tests.
func SetupBilling(service *billing.Service) {
	billingService = service
}

type subscriptionRequest struct {
	UserID string `json:"userId"`
}

// HandleSubscriptionCancel schedules the authenticated user's subscription to
// end at the close of the current billing period.
func HandleSubscriptionCancel(c *fiber.Ctx) error {
	var req subscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	userCtx, ok := requireActor(c, req.UserID)
	if !ok {
		return nil
	}

	result, err := billingService.Cancel(c.UserContext(), userCtx.UserID)
	if err != nil {
		if _, isRefusal := billing.AsRefusal(err); !isRefusal {
			log.Printf("subscription cancel for %s failed: %v", userCtx.UserID, err)
		}
		return writeDomainError(c, err)
	}

	body := fiber.Map{
		"status":               "cancel_scheduled",
		"cancel_at_period_end": true,
	}
	if result.PeriodEnd != nil {
		body["current_period_end"] = result.PeriodEnd.UTC().Format(time.RFC3339)
		body["access_until"] = result.PeriodEndDisplay
	}
	return c.JSON(body)
}

// HandleSubscriptionResume clears a scheduled cancellation.
func HandleSubscriptionResume(c *fiber.Ctx) error {
	var req subscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	userCtx, ok := requireActor(c, req.UserID)
	if !ok {
		return nil
	}

	result, err := billingService.Resume(c.UserContext(), userCtx.UserID)
	if err != nil {
		if _, isRefusal := billing.AsRefusal(err); !isRefusal {
			log.Printf("subscription resume for %s failed: %v", userCtx.UserID, err)
		}
		return writeDomainError(c, err)
	}

	return c.JSON(fiber.Map{
		"status": "active",
		"plan":   result.Account.Plan,
	})
}

// HandleSubscriptionStatus returns the lifecycle snapshot for the
// authenticated user. Reads only the record store, never the processor.
func HandleSubscriptionStatus(c *fiber.Ctx) error {
	userCtx, ok := requireActor(c, c.Query("userId"))
	if !ok {
		return nil
	}

	snapshot, err := billingService.Status(c.UserContext(), userCtx.UserID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "not_found", "message": "Account not found"})
		}
		log.Printf("subscription status for %s failed: %v", userCtx.UserID, err)
		return writeDomainError(c, err)
	}

	return c.JSON(snapshot)
}

type checkoutRequest struct {
	UserID string `json:"userId"`
	Plan   string `json:"plan" validate:"required"`
}

// HandleSubscriptionCheckout creates a processor checkout session for a paid
// plan and returns its URL.
func HandleSubscriptionCheckout(c *fiber.Ctx) error {
	var req checkoutRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	userCtx, ok := requireActor(c, req.UserID)
	if !ok {
		return nil
	}

	plan := entitlements.ParsePlan(req.Plan)
	if !entitlements.IsPaid(plan) {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Unknown or free plan"})
	}

	url, err := billingService.StartCheckout(c.UserContext(), userCtx.UserID, plan)
	if err != nil {
		log.Printf("checkout for %s failed: %v", userCtx.UserID, err)
		return writeDomainError(c, err)
	}

	return c.JSON(fiber.Map{"checkout_url": url})
}

// HandleSubscriptionReconcile resolves a pending purchase against the
// processor. Used by clients when a checkout finished but no confirmation
// arrived.
func HandleSubscriptionReconcile(c *fiber.Ctx) error {
	var req subscriptionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid request body"})
	}
	userCtx, ok := requireActor(c, req.UserID)
	if !ok {
		return nil
	}

	snapshot, err := billingService.Reconcile(c.UserContext(), userCtx.UserID)
	if err != nil {
		log.Printf("reconcile for %s failed: %v", userCtx.UserID, err)
		return writeDomainError(c, err)
	}

	return c.JSON(snapshot)
}
