package billing

import (
	"time"

	"github.com/voicelift/voicelift/app/models"
)

// State is the lifecycle position of an account's subscription. It is always
// derived from the persisted record, never stored on its own.
type State string

const (
	StateNone            State = "NONE"
	StateActive          State = "ACTIVE"
	StateCancelScheduled State = "CANCEL_SCHEDULED"
	StateCanceled        State = "CANCELED"
	StatePastDue         State = "PAST_DUE"
)

// Trigger names a requested transition.
type Trigger string

const (
	TriggerCancel           Trigger = "cancel"
	TriggerResume           Trigger = "resume"
	TriggerPeriodElapsed    Trigger = "period_elapsed"
	TriggerPaymentFailed    Trigger = "payment_failed"
	TriggerPaymentRecovered Trigger = "payment_recovered"
)

// StateFor derives the lifecycle state from the account record. A scheduled
// cancellation wins over past-due so a resume stays possible while the
// processor retries the charge.
func StateFor(account *models.Account) State {
	if !account.HasSubscription() {
		return StateNone
	}
	if account.SubscriptionStatus == models.SubscriptionStatusCanceled {
		return StateCanceled
	}
	if account.CancelAtPeriodEnd {
		return StateCancelScheduled
	}
	if account.SubscriptionStatus == models.SubscriptionStatusPastDue ||
		account.SubscriptionStatus == models.SubscriptionStatusUnpaid {
		return StatePastDue
	}
	return StateActive
}

// Subscription is the provider-agnostic view of a processor subscription.
// CurrentPeriodEnd is the processor's authoritative boundary; it is copied
// into the record as-is, never computed locally.
type Subscription struct {
	ID                string
	Status            string
	PlanRef           string
	CancelAtPeriodEnd bool
	CurrentPeriodEnd  time.Time
}

// entitling reports whether the processor status still grants plan access.
func (s Subscription) entitling() bool {
	switch s.Status {
	case models.SubscriptionStatusActive, models.SubscriptionStatusTrialing, models.SubscriptionStatusPastDue:
		return true
	default:
		return false
	}
}

// LifecycleResult is returned by cancel/resume after the store write.
type LifecycleResult struct {
	Account          *models.Account
	PeriodEnd        *time.Time
	PeriodEndDisplay string
}

// StatusSnapshot is the read-only view served by the status endpoint.
type StatusSnapshot struct {
	State             State            `json:"state"`
	Plan              string           `json:"plan"`
	CancelAtPeriodEnd bool             `json:"cancel_at_period_end"`
	PeriodEnd         *time.Time       `json:"current_period_end,omitempty"`
	PeriodEndDisplay  string           `json:"current_period_end_display,omitempty"`
	PaymentWarning    bool             `json:"payment_warning"`
	Entitlements      PlanEntitlements `json:"entitlements"`
}

// PlanEntitlements is the feature surface the client unlocks for the plan,
// included in every snapshot so the extension never hardcodes plan limits.
type PlanEntitlements struct {
	MonthlyRewriteQuota int   `json:"monthly_rewrite_quota"`
	CustomVoices        bool  `json:"custom_voices"`
	MaxDraftBytes       int64 `json:"max_draft_bytes"`
}
