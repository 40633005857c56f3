package deletion

import (
	"context"
	"errors"
	"fmt"
	"log"

	"gorm.io/gorm"

	"github.com/voicelift/voicelift/app/models"
	"github.com/voicelift/voicelift/app/repository"
	"github.com/voicelift/voicelift/internal/pkg/billing"
	"github.com/voicelift/voicelift/internal/pkg/identity"
	"github.com/voicelift/voicelift/internal/pkg/mail"
)

// Guard runs account deletion in a fixed order: cancel the processor
// subscription first, remove the record second, clean up the credential
// last. A deleted record with a live subscription would keep charging a
// customer who can no longer log in, so the processor cancel must succeed
// before anything is removed.
type Guard struct {
	accounts   repository.AccountRepository
	processor  billing.Processor
	provider   identity.Provider
	dispatcher mail.Dispatcher
}

func NewGuard(accounts repository.AccountRepository, processor billing.Processor, provider identity.Provider, dispatcher mail.Dispatcher) *Guard {
	return &Guard{
		accounts:   accounts,
		processor:  processor,
		provider:   provider,
		dispatcher: dispatcher,
	}
}

// Delete removes the account identified by id. Deleting an account that is
// already gone succeeds, so a retried request converges instead of erroring.
func (g *Guard) Delete(ctx context.Context, id string) error {
	account, err := g.accounts.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return fmt.Errorf("load account: %w", err)
	}

	if needsProcessorCancel(account) {
		if err := g.processor.CancelImmediately(ctx, *account.SubscriptionID); err != nil {
			log.Printf("[Deletion] processor cancel of %s for %s failed: %v", *account.SubscriptionID, id, err)
			return &billing.Refusal{
				Code:    billing.CodeCancelFailed,
				Message: "could not cancel the subscription, account was not deleted",
			}
		}
	}

	if err := g.accounts.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete account: %w", err)
	}

	if err := g.provider.DeleteCredential(ctx, id); err != nil {
		log.Printf("[Deletion] credential cleanup for %s failed: %v", id, err)
	}

	mail.DispatchAsync(g.dispatcher, mail.TemplateAccountDeleted, account.Email, map[string]string{
		"name": account.Name,
	})
	return nil
}

// needsProcessorCancel reports whether the processor still has anything to
// stop billing for.
func needsProcessorCancel(account *models.Account) bool {
	return account.HasSubscription() && account.SubscriptionStatus != models.SubscriptionStatusCanceled
}
