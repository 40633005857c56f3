package controllers

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/webhook"

	"github.com/voicelift/voicelift/app/models"
	"github.com/voicelift/voicelift/app/repository"
	"github.com/voicelift/voicelift/internal/pkg/billing"
	"github.com/voicelift/voicelift/internal/pkg/env"
	"github.com/voicelift/voicelift/internal/pkg/mail"
)

var (
	webhookEvents     repository.WebhookEventRepository
	webhookAccounts   repository.AccountRepository
	webhookDispatcher mail.Dispatcher
)

// SetupWebhooks injects the dependencies used by the processor webhook
// handler.
func SetupWebhooks(events repository.WebhookEventRepository, accounts repository.AccountRepository, dispatcher mail.Dispatcher) {
	webhookEvents = events
	webhookAccounts = accounts
	webhookDispatcher = dispatcher
}

// HandleStripeWebhook ingests processor events. The signature is verified
// against the endpoint secret and every event id is recorded before
// processing, so redelivered events are acknowledged without running twice.
func HandleStripeWebhook(c *fiber.Ctx) error {
	secret := env.GetEnv("STRIPE_WEBHOOK_SECRET", "")
	event, err := webhook.ConstructEvent(c.Body(), c.Get("Stripe-Signature"), secret)
	if err != nil {
		log.Printf("stripe webhook: signature verification failed: %v", err)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "bad_request", "message": "Invalid signature"})
	}

	record := &models.BillingWebhookEvent{
		Provider:        models.BillingProviderStripe,
		ProviderEventID: event.ID,
		EventType:       string(event.Type),
		PayloadJSON:     string(event.Data.Raw),
		SignatureValid:  true,
	}
	created, stored, err := webhookEvents.CreateIfNotExists(c.UserContext(), record)
	if err != nil {
		log.Printf("stripe webhook: event record failed: %v", err)
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Event record failed"})
	}
	if !created {
		return c.JSON(fiber.Map{"status": "duplicate"})
	}

	processingErr := dispatchStripeEvent(c, event)
	errMsg := ""
	if processingErr != nil {
		errMsg = processingErr.Error()
		log.Printf("stripe webhook: %s (%s) failed: %v", event.ID, event.Type, processingErr)
	}
	if err := webhookEvents.MarkProcessed(c.UserContext(), stored.ID, errMsg); err != nil {
		log.Printf("stripe webhook: mark processed failed: %v", err)
	}
	if processingErr != nil {
		// Non-2xx makes the processor redeliver later.
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": "internal_server_error", "message": "Event processing failed"})
	}

	return c.JSON(fiber.Map{"status": "processed"})
}

func dispatchStripeEvent(c *fiber.Ctx, event stripe.Event) error {
	ctx := c.UserContext()

	switch event.Type {
	case "invoice.payment_failed":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return err
		}
		if inv.Customer == nil {
			return nil
		}
		return billingService.ApplyPaymentFailure(ctx, inv.Customer.ID)

	case "invoice.paid":
		var inv stripe.Invoice
		if err := json.Unmarshal(event.Data.Raw, &inv); err != nil {
			return err
		}
		if inv.Customer == nil {
			return nil
		}
		return billingService.ApplyPaymentRecovered(ctx, inv.Customer.ID)

	case "customer.subscription.updated", "customer.subscription.deleted":
		var sub stripe.Subscription
		if err := json.Unmarshal(event.Data.Raw, &sub); err != nil {
			return err
		}
		if sub.Customer == nil {
			return nil
		}
		return billingService.SyncSubscription(ctx, sub.Customer.ID, normalizeEventSubscription(&sub, event.Type))

	case "checkout.session.completed":
		var sess stripe.CheckoutSession
		if err := json.Unmarshal(event.Data.Raw, &sess); err != nil {
			return err
		}
		if sess.Customer == nil || sess.ClientReferenceID == "" {
			return nil
		}
		notifyTrialReuse(ctx, sess.ClientReferenceID)
		return billingService.ApplyCheckoutCompleted(ctx, sess.ClientReferenceID, sess.Customer.ID)
	}

	// Unhandled event types are acknowledged so the processor stops retrying.
	return nil
}

func normalizeEventSubscription(sub *stripe.Subscription, eventType stripe.EventType) *billing.Subscription {
	out := &billing.Subscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if eventType == "customer.subscription.deleted" {
		out.Status = models.SubscriptionStatusCanceled
	}
	if sub.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PlanRef = sub.Items.Data[0].Price.ID
	}
	return out
}

// notifyTrialReuse tells a returning subscriber that trial periods are
// one-time. A customer whose previous subscription ended does not get a fresh
// trial on the new one.
func notifyTrialReuse(ctx context.Context, accountID string) {
	account, err := webhookAccounts.GetByID(ctx, accountID)
	if err != nil {
		return
	}
	if account.SubscriptionStatus == models.SubscriptionStatusCanceled {
		mail.DispatchAsync(webhookDispatcher, mail.TemplateTrialReuse, account.Email, map[string]string{
			"name": account.Name,
		})
	}
}
