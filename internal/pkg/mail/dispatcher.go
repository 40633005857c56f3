package mail

import (
	"log"

	"github.com/voicelift/voicelift/internal/pkg/env"
)

// Notification templates. Names double as SendGrid template lookup keys and
// as subject selectors for the SMTP fallback.
const (
	TemplateCancelConfirmation = "subscription_cancel_confirmation"
	TemplateResumeConfirmation = "subscription_resume_confirmation"
	TemplatePaymentFailed      = "payment_failed_warning"
	TemplateAccountDeleted     = "account_deleted"
	TemplateTrialReuse         = "trial_already_used"
)

// Dispatcher sends a templated notification. Implementations must be safe for
// concurrent use; callers treat every send as fire-and-forget.
type Dispatcher interface {
	Send(template string, recipient string, vars map[string]string) error
}

// NewFromEnv picks SendGrid when an API key is configured, otherwise the
// plain SMTP mailer used in development.
func NewFromEnv() Dispatcher {
	if env.GetEnv("SENDGRID_API_KEY", "") != "" {
		return NewSendGridDispatcher()
	}
	return NewSMTPDispatcher()
}

// DispatchAsync fires the notification on its own goroutine. Failures are
// logged and swallowed: confirmation mail is never part of the transactional
// path.
func DispatchAsync(d Dispatcher, template, recipient string, vars map[string]string) {
	if d == nil || recipient == "" {
		return
	}
	go func() {
		if err := d.Send(template, recipient, vars); err != nil {
			log.Printf("mail: send %s to %s failed: %v", template, recipient, err)
		}
	}()
}
