package billing

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/stripe/stripe-go/v79"
	"github.com/stripe/stripe-go/v79/client"

	"github.com/voicelift/voicelift/internal/pkg/env"
)

// StripeProcessor implements Processor and CheckoutProcessor against the
// Stripe API. All calls run under a bounded timeout; a deadline hit is a
// retryable ProcessorError for cancel/resume and fatal for deletion.
type StripeProcessor struct {
	api     *client.API
	timeout time.Duration
}

// NewStripeProcessorFromEnv wires the Stripe client from the environment.
func NewStripeProcessorFromEnv() *StripeProcessor {
	var api client.API
	api.Init(env.GetEnv("STRIPE_SECRET_KEY", ""), nil)

	timeout := 10 * time.Second
	if v, err := strconv.Atoi(env.GetEnv("STRIPE_TIMEOUT_SECONDS", "10")); err == nil && v > 0 {
		timeout = time.Duration(v) * time.Second
	}

	return &StripeProcessor{api: &api, timeout: timeout}
}

func (p *StripeProcessor) SetCancelAtPeriodEnd(ctx context.Context, subscriptionID string, cancel bool) (*Subscription, error) {
	ctx, done := context.WithTimeout(ctx, p.timeout)
	defer done()

	params := &stripe.SubscriptionParams{
		CancelAtPeriodEnd: stripe.Bool(cancel),
	}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	sub, err := p.api.Subscriptions.Update(subscriptionID, params)
	if err != nil {
		return nil, wrapStripeErr("update subscription", err)
	}
	return normalizeSubscription(sub), nil
}

func (p *StripeProcessor) CancelImmediately(ctx context.Context, subscriptionID string) error {
	ctx, done := context.WithTimeout(ctx, p.timeout)
	defer done()

	params := &stripe.SubscriptionCancelParams{}
	params.Context = ctx
	params.SetIdempotencyKey(uuid.NewString())

	if _, err := p.api.Subscriptions.Cancel(subscriptionID, params); err != nil {
		// A subscription that no longer exists is already not billing.
		var stripeErr *stripe.Error
		if errors.As(err, &stripeErr) && stripeErr.Code == stripe.ErrorCodeResourceMissing {
			return nil
		}
		return wrapStripeErr("cancel subscription", err)
	}
	return nil
}

func (p *StripeProcessor) ListByCustomer(ctx context.Context, customerID string) ([]Subscription, error) {
	ctx, done := context.WithTimeout(ctx, p.timeout)
	defer done()

	params := &stripe.SubscriptionListParams{
		Customer: stripe.String(customerID),
		Status:   stripe.String("all"),
	}
	params.Context = ctx

	var subs []Subscription
	iter := p.api.Subscriptions.List(params)
	for iter.Next() {
		subs = append(subs, *normalizeSubscription(iter.Subscription()))
	}
	if err := iter.Err(); err != nil {
		return nil, wrapStripeErr("list subscriptions", err)
	}
	return subs, nil
}

func (p *StripeProcessor) CreateCustomer(ctx context.Context, email, accountID string) (string, error) {
	ctx, done := context.WithTimeout(ctx, p.timeout)
	defer done()

	params := &stripe.CustomerParams{
		Email: stripe.String(email),
		Metadata: map[string]string{
			"account_id": accountID,
		},
	}
	params.Context = ctx
	params.SetIdempotencyKey("customer-" + accountID)

	cust, err := p.api.Customers.New(params)
	if err != nil {
		return "", wrapStripeErr("create customer", err)
	}
	return cust.ID, nil
}

func (p *StripeProcessor) CreateCheckoutSession(ctx context.Context, customerID, priceRef, accountID string) (string, error) {
	ctx, done := context.WithTimeout(ctx, p.timeout)
	defer done()

	frontendURL := strings.TrimRight(env.GetEnv("FRONTEND_URL", "http://localhost:3000"), "/")

	params := &stripe.CheckoutSessionParams{
		Mode:              stripe.String(string(stripe.CheckoutSessionModeSubscription)),
		Customer:          stripe.String(customerID),
		ClientReferenceID: stripe.String(accountID),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				Price:    stripe.String(priceRef),
				Quantity: stripe.Int64(1),
			},
		},
		SuccessURL: stripe.String(frontendURL + "/billing/success"),
		CancelURL:  stripe.String(frontendURL + "/billing/cancel"),
	}
	params.Context = ctx

	sess, err := p.api.CheckoutSessions.New(params)
	if err != nil {
		return "", wrapStripeErr("create checkout session", err)
	}
	return sess.URL, nil
}

func normalizeSubscription(sub *stripe.Subscription) *Subscription {
	out := &Subscription{
		ID:                sub.ID,
		Status:            string(sub.Status),
		CancelAtPeriodEnd: sub.CancelAtPeriodEnd,
	}
	if sub.CurrentPeriodEnd > 0 {
		out.CurrentPeriodEnd = time.Unix(sub.CurrentPeriodEnd, 0).UTC()
	}
	if sub.Items != nil && len(sub.Items.Data) > 0 && sub.Items.Data[0].Price != nil {
		out.PlanRef = sub.Items.Data[0].Price.ID
	}
	return out
}

func wrapStripeErr(op string, err error) error {
	retryable := false
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		retryable = true
	}
	var stripeErr *stripe.Error
	if errors.As(err, &stripeErr) {
		if stripeErr.Type == stripe.ErrorTypeAPI || stripeErr.HTTPStatusCode >= 500 {
			retryable = true
		}
	}
	return &ProcessorError{Op: op, Err: err, Retryable: retryable}
}
