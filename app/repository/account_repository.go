package repository

import (
	"context"
	"log"

	"gorm.io/gorm"

	"github.com/voicelift/voicelift/app/models"
	"github.com/voicelift/voicelift/internal/pkg/realtime"
)

// accountRepository implements AccountRepository backed by GORM.
type accountRepository struct {
	db *gorm.DB
}

// NewAccountRepository creates a new account repository
func NewAccountRepository(db *gorm.DB) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) error {
	if err := r.db.WithContext(ctx).Create(account).Error; err != nil {
		return err
	}
	r.publish(ctx, account)
	return nil
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetByCustomerID(ctx context.Context, customerID string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("customer_id = ?", customerID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) GetBySubscriptionID(ctx context.Context, subscriptionID string) (*models.Account, error) {
	var account models.Account
	if err := r.db.WithContext(ctx).Where("subscription_id = ?", subscriptionID).First(&account).Error; err != nil {
		return nil, err
	}
	return &account, nil
}

func (r *accountRepository) Update(ctx context.Context, account *models.Account) error {
	// Save writes all fields; concurrent writers converge because every
	// subscription field is sourced from the processor, never derived here.
	if err := r.db.WithContext(ctx).Save(account).Error; err != nil {
		return err
	}
	r.publish(ctx, account)
	return nil
}

func (r *accountRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Account{}).Error
}

// publish pushes the fresh snapshot to realtime listeners. Failures are
// logged only; propagation is not part of the transactional contract.
func (r *accountRepository) publish(ctx context.Context, account *models.Account) {
	if err := realtime.Publish(ctx, account); err != nil {
		log.Printf("account repository: snapshot publish failed for %s: %v", account.ID, err)
	}
}
