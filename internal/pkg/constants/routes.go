package constants

// Static route constants
const (
	APIRoute   = "/api"
	APIV1Route = "/v1"

	SubscriptionCancelRoute    = "/subscription/cancel"
	SubscriptionResumeRoute    = "/subscription/resume"
	SubscriptionStatusRoute    = "/subscription/status"
	SubscriptionCheckoutRoute  = "/subscription/checkout"
	SubscriptionReconcileRoute = "/subscription/reconcile"
	SubscriptionEventsRoute    = "/subscription/events"
	AccountRoute               = "/account"

	StripeWebhookRoute = "/webhooks/stripe"
)
