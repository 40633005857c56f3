package models

import (
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"gorm.io/gorm"
)

// Subscription status values mirrored from the payment processor. The local
// column is never computed here; it is only ever copied from processor
// responses and webhook payloads.
const (
	SubscriptionStatusActive   = "active"
	SubscriptionStatusTrialing = "trialing"
	SubscriptionStatusPastDue  = "past_due"
	SubscriptionStatusCanceled = "canceled"
	SubscriptionStatusUnpaid   = "unpaid"
)

// Account is the authoritative per-user record. The primary key is the
// identity provider uid, so auth context and record lookups share one id.
type Account struct {
	ID                 string     `gorm:"primaryKey;type:varchar(128)" json:"id" validate:"required"`
	Email              string     `gorm:"type:varchar(200);index" json:"email" validate:"omitempty,email,max=200"`
	Name               string     `gorm:"type:varchar(150)" json:"name" validate:"max=150"`
	Plan               string     `gorm:"type:varchar(50);default:'free'" json:"plan" validate:"oneof=free creator studio"`
	CustomerID         *string    `gorm:"type:varchar(191);uniqueIndex" json:"customer_id,omitempty"`
	SubscriptionID     *string    `gorm:"type:varchar(191);index" json:"subscription_id,omitempty"`
	SubscriptionStatus string     `gorm:"type:varchar(32);default:''" json:"subscription_status,omitempty"`
	CancelAtPeriodEnd  bool       `gorm:"default:false" json:"cancel_at_period_end"`
	CurrentPeriodEnd   *time.Time `gorm:"type:timestamp;default:null" json:"current_period_end,omitempty"`
	PaymentWarning     bool       `gorm:"default:false" json:"payment_warning"`
	CreatedAt          time.Time  `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt          time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

var ErrDanglingCancelFlag = errors.New("cancel_at_period_end requires a subscription id")

func (a *Account) Validate() error {
	v := validator.New()

	return v.Struct(a)
}

// BeforeSave enforces the record-level invariant: a scheduled cancellation can
// only exist on an account that actually holds a subscription.
func (a *Account) BeforeSave(tx *gorm.DB) error {
	if a.CancelAtPeriodEnd && !a.HasSubscription() {
		return ErrDanglingCancelFlag
	}
	return nil
}

// NewAccount creates a fresh free-plan record for a verified identity.
func NewAccount(uid, email, name string) *Account {
	return &Account{
		ID:    uid,
		Email: email,
		Name:  name,
		Plan:  "free",
	}
}

// HasSubscription reports whether a paid subscription was ever created.
func (a *Account) HasSubscription() bool {
	return a.SubscriptionID != nil && *a.SubscriptionID != ""
}

// HasCustomer reports whether a billing identity exists at the processor.
func (a *Account) HasCustomer() bool {
	return a.CustomerID != nil && *a.CustomerID != ""
}

// IsCanceling reports whether cancellation is scheduled for the period end.
func (a *Account) IsCanceling() bool {
	return a.CancelAtPeriodEnd
}
