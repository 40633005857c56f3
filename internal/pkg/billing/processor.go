package billing

import "context"

// Processor is the external payment service of record. Every call must be
// safe to retry: the processor keys mutations by subscription id.
type Processor interface {
	// SetCancelAtPeriodEnd schedules or unschedules the end-of-period
	// cancellation and returns the authoritative subscription state,
	// including the period boundary.
	SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*Subscription, error)
	// CancelImmediately terminates the subscription right now. Used by the
	// deletion flow; an already-canceled subscription is a success.
	CancelImmediately(ctx context.Context, subscriptionID string) error
	// ListByCustomer returns all subscriptions for a billing identity.
	ListByCustomer(ctx context.Context, customerID string) ([]Subscription, error)
}

// CheckoutProcessor starts the redirect-based payment flow for a plan change.
type CheckoutProcessor interface {
	// CreateCustomer provisions a billing identity and returns its id.
	CreateCustomer(ctx context.Context, email, accountID string) (string, error)
	// CreateCheckoutSession returns the URL the client is redirected to.
	CreateCheckoutSession(ctx context.Context, customerID, priceRef, accountID string) (string, error)
}
