package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewAccountDefaults(t *testing.T) {
	a := NewAccount("uid-123", "casey@example.com", "Casey")
	assert.NoError(t, a.Validate())
	assert.Equal(t, "free", a.Plan)
	assert.False(t, a.CancelAtPeriodEnd)
	assert.False(t, a.PaymentWarning)
	assert.Nil(t, a.SubscriptionID)
	assert.Nil(t, a.CustomerID)
}

func TestValidateRejectsBadEmail(t *testing.T) {
	a := NewAccount("uid-123", "not-an-email", "Casey")
	assert.Error(t, a.Validate())
}

func TestValidateRequiresUID(t *testing.T) {
	a := NewAccount("", "casey@example.com", "Casey")
	assert.Error(t, a.Validate())
}

func TestBeforeSaveRejectsDanglingCancelFlag(t *testing.T) {
	a := &Account{ID: "uid-123", Plan: "creator", CancelAtPeriodEnd: true}
	err := a.BeforeSave(nil)
	assert.ErrorIs(t, err, ErrDanglingCancelFlag)

	subID := "sub_1"
	a.SubscriptionID = &subID
	assert.NoError(t, a.BeforeSave(nil))
}

func TestHasSubscription(t *testing.T) {
	a := &Account{ID: "uid-123"}
	assert.False(t, a.HasSubscription())

	empty := ""
	a.SubscriptionID = &empty
	assert.False(t, a.HasSubscription())

	subID := "sub_1"
	a.SubscriptionID = &subID
	assert.True(t, a.HasSubscription())
}

func TestIsCanceling(t *testing.T) {
	subID := "sub_1"
	end := time.Now().Add(30 * 24 * time.Hour)
	a := &Account{ID: "uid-123", SubscriptionID: &subID, CancelAtPeriodEnd: true, CurrentPeriodEnd: &end}
	assert.True(t, a.IsCanceling())
}
