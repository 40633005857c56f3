package billing

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/voicelift/voicelift/app/models"
	"github.com/voicelift/voicelift/app/repository"
	"github.com/voicelift/voicelift/internal/pkg/entitlements"
	"github.com/voicelift/voicelift/internal/pkg/env"
	"github.com/voicelift/voicelift/internal/pkg/mail"
)

const periodEndDisplayFormat = "02 Jan 2006"

// Service drives subscription lifecycle transitions. Every state change
// goes through the processor first; the account record only reflects what
// the processor confirmed.
type Service struct {
	accounts   repository.AccountRepository
	processor  Processor
	checkout   CheckoutProcessor
	dispatcher mail.Dispatcher
}

func NewService(accounts repository.AccountRepository, processor Processor, checkout CheckoutProcessor, dispatcher mail.Dispatcher) *Service {
	return &Service{
		accounts:   accounts,
		processor:  processor,
		checkout:   checkout,
		dispatcher: dispatcher,
	}
}

// Cancel schedules the account's subscription to end at the close of the
// current billing period. Access stays live until then.
func (s *Service) Cancel(ctx context.Context, accountID string) (*LifecycleResult, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	state := StateFor(account)
	if !canFire(state, TriggerCancel) {
		return nil, refusalFor(state, TriggerCancel, account.CurrentPeriodEnd)
	}

	sub, err := s.processor.SetCancelAtPeriodEnd(ctx, *account.SubscriptionID, true)
	if err != nil {
		return nil, err
	}

	s.applySubscriptionFields(account, sub)
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("store account: %w", err)
	}

	result := resultFor(account)
	mail.DispatchAsync(s.dispatcher, mail.TemplateCancelConfirmation, account.Email, map[string]string{
		"name":       account.Name,
		"period_end": result.PeriodEndDisplay,
	})
	return result, nil
}

// Resume clears a scheduled cancellation so the subscription renews again.
func (s *Service) Resume(ctx context.Context, accountID string) (*LifecycleResult, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}

	state := StateFor(account)
	if !canFire(state, TriggerResume) {
		return nil, refusalFor(state, TriggerResume, account.CurrentPeriodEnd)
	}

	sub, err := s.processor.SetCancelAtPeriodEnd(ctx, *account.SubscriptionID, false)
	if err != nil {
		return nil, err
	}

	s.applySubscriptionFields(account, sub)
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("store account: %w", err)
	}

	mail.DispatchAsync(s.dispatcher, mail.TemplateResumeConfirmation, account.Email, map[string]string{
		"name": account.Name,
		"plan": account.Plan,
	})
	return resultFor(account), nil
}

// Status reports the current lifecycle snapshot without touching the
// processor. The record store is the single read path for status.
func (s *Service) Status(ctx context.Context, accountID string) (*StatusSnapshot, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	return SnapshotFor(account), nil
}

// Reconcile resolves an account whose checkout may have completed while
// the confirmation never reached us. It asks the processor for the
// customer's subscriptions and adopts the entitling one if present.
func (s *Service) Reconcile(ctx context.Context, accountID string) (*StatusSnapshot, error) {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("load account: %w", err)
	}
	if !account.HasCustomer() {
		return SnapshotFor(account), nil
	}

	subs, err := s.processor.ListByCustomer(ctx, *account.CustomerID)
	if err != nil {
		return nil, err
	}

	// Several entitling subscriptions can coexist briefly (plan change mid
	// checkout); the highest-ranked plan wins.
	var entitling *Subscription
	for i := range subs {
		if !subs[i].entitling() {
			continue
		}
		if entitling == nil ||
			entitlements.Rank(PlanForPriceRef(subs[i].PlanRef)) > entitlements.Rank(PlanForPriceRef(entitling.PlanRef)) {
			entitling = &subs[i]
		}
	}
	if entitling == nil {
		return SnapshotFor(account), nil
	}

	s.applySubscriptionFields(account, entitling)
	if plan := PlanForPriceRef(entitling.PlanRef); plan != "" {
		account.Plan = string(plan)
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return nil, fmt.Errorf("store account: %w", err)
	}
	return SnapshotFor(account), nil
}

// StartCheckout creates a processor checkout session for the requested
// plan, creating the processor customer on first use.
func (s *Service) StartCheckout(ctx context.Context, accountID string, plan entitlements.Plan) (string, error) {
	if !entitlements.IsPaid(plan) {
		return "", fmt.Errorf("plan %q is not purchasable", plan)
	}
	priceRef := priceRefForPlan(plan)
	if priceRef == "" {
		return "", fmt.Errorf("no price configured for plan %q", plan)
	}

	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return "", fmt.Errorf("load account: %w", err)
	}

	if !account.HasCustomer() {
		customerID, err := s.checkout.CreateCustomer(ctx, account.Email, account.ID)
		if err != nil {
			return "", err
		}
		account.CustomerID = &customerID
		if err := s.accounts.Update(ctx, account); err != nil {
			return "", fmt.Errorf("store account: %w", err)
		}
	}

	return s.checkout.CreateCheckoutSession(ctx, *account.CustomerID, priceRef, account.ID)
}

// ApplyPaymentFailure marks the account identified by its processor
// customer id as past due and notifies the owner.
func (s *Service) ApplyPaymentFailure(ctx context.Context, customerID string) error {
	account, err := s.accounts.GetByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Billing] payment failure for unknown customer %s", customerID)
			return nil
		}
		return fmt.Errorf("load account by customer: %w", err)
	}

	account.PaymentWarning = true
	if account.HasSubscription() {
		account.SubscriptionStatus = models.SubscriptionStatusPastDue
	}
	if err := s.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("store account: %w", err)
	}

	mail.DispatchAsync(s.dispatcher, mail.TemplatePaymentFailed, account.Email, map[string]string{
		"name": account.Name,
		"plan": account.Plan,
	})
	return nil
}

// ApplyPaymentRecovered clears the payment warning after a successful
// invoice. The subscription status itself follows from the next
// subscription sync.
func (s *Service) ApplyPaymentRecovered(ctx context.Context, customerID string) error {
	account, err := s.accounts.GetByCustomerID(ctx, customerID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load account by customer: %w", err)
	}
	if !account.PaymentWarning {
		return nil
	}

	account.PaymentWarning = false
	if err := s.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("store account: %w", err)
	}
	return nil
}

// SyncSubscription copies the processor's view of a subscription onto the
// owning account. A canceled subscription drops the account to free.
func (s *Service) SyncSubscription(ctx context.Context, customerID string, sub *Subscription) error {
	account, err := s.accounts.GetBySubscriptionID(ctx, sub.ID)
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("load account by subscription: %w", err)
		}
		account, err = s.accounts.GetByCustomerID(ctx, customerID)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				log.Printf("[Billing] subscription sync for unknown customer %s", customerID)
				return nil
			}
			return fmt.Errorf("load account by customer: %w", err)
		}
		// The event is about a subscription the account does not hold. A
		// terminal cancel for a superseded subscription must not touch the
		// current one; only a live subscription may be adopted here.
		if sub.Status == models.SubscriptionStatusCanceled && account.HasSubscription() {
			log.Printf("[Billing] ignoring stale cancel of %s for customer %s", sub.ID, customerID)
			return nil
		}
	}

	if sub.Status == models.SubscriptionStatusCanceled {
		account.Plan = string(entitlements.PlanFree)
		account.SubscriptionID = nil
		account.SubscriptionStatus = models.SubscriptionStatusCanceled
		account.CancelAtPeriodEnd = false
		account.CurrentPeriodEnd = nil
		account.PaymentWarning = false
	} else {
		s.applySubscriptionFields(account, sub)
		if plan := PlanForPriceRef(sub.PlanRef); plan != "" {
			account.Plan = string(plan)
		}
	}

	if err := s.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("store account: %w", err)
	}
	return nil
}

// ApplyCheckoutCompleted binds the processor customer to the account right
// after checkout. Subscription details arrive through SyncSubscription.
func (s *Service) ApplyCheckoutCompleted(ctx context.Context, accountID, customerID string) error {
	account, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Printf("[Billing] checkout completed for unknown account %s", accountID)
			return nil
		}
		return fmt.Errorf("load account: %w", err)
	}
	if account.HasCustomer() && *account.CustomerID == customerID {
		return nil
	}

	account.CustomerID = &customerID
	if err := s.accounts.Update(ctx, account); err != nil {
		return fmt.Errorf("store account: %w", err)
	}
	return nil
}

func (s *Service) applySubscriptionFields(account *models.Account, sub *Subscription) {
	id := sub.ID
	account.SubscriptionID = &id
	account.SubscriptionStatus = sub.Status
	account.CancelAtPeriodEnd = sub.CancelAtPeriodEnd
	if sub.CurrentPeriodEnd.IsZero() {
		account.CurrentPeriodEnd = nil
	} else {
		end := sub.CurrentPeriodEnd
		account.CurrentPeriodEnd = &end
	}
}

func resultFor(account *models.Account) *LifecycleResult {
	result := &LifecycleResult{Account: account}
	if account.CurrentPeriodEnd != nil {
		result.PeriodEnd = account.CurrentPeriodEnd
		result.PeriodEndDisplay = account.CurrentPeriodEnd.Format(periodEndDisplayFormat)
	}
	return result
}

// SnapshotFor builds the status payload handed to clients.
func SnapshotFor(account *models.Account) *StatusSnapshot {
	plan := entitlements.ParsePlan(account.Plan)
	snapshot := &StatusSnapshot{
		State:             StateFor(account),
		Plan:              account.Plan,
		CancelAtPeriodEnd: account.CancelAtPeriodEnd,
		PaymentWarning:    account.PaymentWarning,
		Entitlements: PlanEntitlements{
			MonthlyRewriteQuota: entitlements.MonthlyRewriteQuota(plan),
			CustomVoices:        entitlements.CanCustomVoices(plan),
			MaxDraftBytes:       entitlements.MaxDraftBytes(plan),
		},
	}
	if account.CurrentPeriodEnd != nil {
		end := account.CurrentPeriodEnd.UTC()
		snapshot.PeriodEnd = &end
		snapshot.PeriodEndDisplay = end.Format(periodEndDisplayFormat)
	}
	return snapshot
}

// PlanForPriceRef maps a processor price id back onto a plan.
func PlanForPriceRef(priceRef string) entitlements.Plan {
	if priceRef == "" {
		return ""
	}
	switch priceRef {
	case env.GetEnv("STRIPE_PRICE_CREATOR", ""):
		return entitlements.PlanCreator
	case env.GetEnv("STRIPE_PRICE_STUDIO", ""):
		return entitlements.PlanStudio
	}
	return ""
}

func priceRefForPlan(plan entitlements.Plan) string {
	switch plan {
	case entitlements.PlanCreator:
		return env.GetEnv("STRIPE_PRICE_CREATOR", "")
	case entitlements.PlanStudio:
		return env.GetEnv("STRIPE_PRICE_STUDIO", "")
	}
	return ""
}
