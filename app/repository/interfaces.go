package repository

import (
	"context"

	"github.com/voicelift/voicelift/app/models"
)

// AccountRepository defines the interface for account record operations.
// Implementations must re-publish the full record through the realtime broker
// after every successful mutation so listeners converge without polling.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) error
	GetByID(ctx context.Context, id string) (*models.Account, error)
	GetByCustomerID(ctx context.Context, customerID string) (*models.Account, error)
	GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Account, error)
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, id string) error
}

// WebhookEventRepository persists processor webhook deliveries idempotently.
type WebhookEventRepository interface {
	// CreateIfNotExists returns created=false when the provider event id was
	// seen before; the stored row is returned either way.
	CreateIfNotExists(ctx context.Context, event *models.BillingWebhookEvent) (bool, *models.BillingWebhookEvent, error)
	MarkProcessed(ctx context.Context, id uint, processingError string) error
}
