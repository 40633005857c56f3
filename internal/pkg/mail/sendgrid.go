package mail

import (
	"fmt"

	sendgrid "github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"

	"github.com/voicelift/voicelift/internal/pkg/env"
)

// SendGridDispatcher sends dynamic-template mail through the SendGrid v3 API.
type SendGridDispatcher struct {
	apiKey      string
	senderName  string
	senderEmail string
	templates   map[string]string
}

func NewSendGridDispatcher() *SendGridDispatcher {
	return &SendGridDispatcher{
		apiKey:      env.GetEnv("SENDGRID_API_KEY", ""),
		senderName:  env.GetEnv("MAIL_SENDER_NAME", "VoiceLift"),
		senderEmail: env.GetEnv("MAIL_SENDER_EMAIL", "no-reply@voicelift.app"),
		templates: map[string]string{
			TemplateCancelConfirmation: env.GetEnv("SENDGRID_TEMPLATE_CANCEL", ""),
			TemplateResumeConfirmation: env.GetEnv("SENDGRID_TEMPLATE_RESUME", ""),
			TemplatePaymentFailed:      env.GetEnv("SENDGRID_TEMPLATE_PAYMENT_FAILED", ""),
			TemplateAccountDeleted:     env.GetEnv("SENDGRID_TEMPLATE_ACCOUNT_DELETED", ""),
			TemplateTrialReuse:         env.GetEnv("SENDGRID_TEMPLATE_TRIAL_REUSE", ""),
		},
	}
}

func (d *SendGridDispatcher) Send(template, recipient string, vars map[string]string) error {
	templateID, ok := d.templates[template]
	if !ok || templateID == "" {
		return fmt.Errorf("no sendgrid template configured for %q", template)
	}

	m := sgmail.NewV3Mail()
	m.SetTemplateID(templateID)
	m.SetFrom(sgmail.NewEmail(d.senderName, d.senderEmail))

	enableTracking := false
	m.SetTrackingSettings(&sgmail.TrackingSettings{
		SubscriptionTracking: &sgmail.SubscriptionTrackingSetting{Enable: &enableTracking},
	})

	p := sgmail.NewPersonalization()
	p.AddTos(sgmail.NewEmail("", recipient))
	for k, v := range vars {
		p.SetDynamicTemplateData(k, v)
	}
	m.AddPersonalizations(p)

	request := sendgrid.GetRequest(d.apiKey, "/v3/mail/send", "https://api.sendgrid.com")
	request.Method = "POST"
	request.Body = sgmail.GetRequestBody(m)

	if _, err := sendgrid.MakeRequestRetry(request); err != nil {
		return err
	}
	return nil
}
