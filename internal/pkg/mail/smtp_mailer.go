package mail

import (
	"fmt"
	"log"
	"net/smtp"

	"github.com/voicelift/voicelift/internal/pkg/env"
)

// SMTPDispatcher renders the templates locally and delivers via plain SMTP.
// Used in development and as the fallback when SendGrid is not configured.
type SMTPDispatcher struct{}

func NewSMTPDispatcher() *SMTPDispatcher {
	return &SMTPDispatcher{}
}

func (d *SMTPDispatcher) Send(template, recipient string, vars map[string]string) error {
	subject, body := renderTemplate(template, vars)
	return SendMail(recipient, subject, body)
}

func renderTemplate(template string, vars map[string]string) (string, string) {
	switch template {
	case TemplateCancelConfirmation:
		return "Your subscription has been scheduled for cancellation",
			fmt.Sprintf("<p>Your %s plan stays active until <strong>%s</strong>. You can resume any time before then.</p>",
				vars["plan"], vars["period_end"])
	case TemplateResumeConfirmation:
		return "Your subscription is active again",
			fmt.Sprintf("<p>Welcome back! Your %s plan renews on <strong>%s</strong>.</p>",
				vars["plan"], vars["period_end"])
	case TemplatePaymentFailed:
		return "We could not process your payment",
			"<p>Please update your payment method to keep your plan active.</p>"
	case TemplateAccountDeleted:
		return "Your account has been deleted",
			"<p>Your account and all associated data have been removed. Sorry to see you go.</p>"
	case TemplateTrialReuse:
		return "Your free trial has already been used",
			"<p>This payment method already went through a trial, so billing starts immediately.</p>"
	default:
		return "Notification from VoiceLift", "<p>" + template + "</p>"
	}
}

// SendMail sends emails via SMTP
func SendMail(to string, subject string, body string) error {
	host := env.GetEnv("SMTP_HOST", "")
	port := env.GetEnv("SMTP_PORT", "")
	username := env.GetEnv("SMTP_USERNAME", "")
	password := env.GetEnv("SMTP_PASSWORD", "")
	sender := env.GetEnv("SMTP_SENDER", "")

	if sender == "" {
		sender = fmt.Sprintf("no-reply@%s", "localhost")
		log.Printf("SMTP_SENDER not set, using default sender: %s", sender)
	}

	var auth smtp.Auth
	if username != "" && password != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}

	addr := fmt.Sprintf("%s:%s", host, port)

	msg := []byte(
		fmt.Sprintf("From: %s\r\nTo: %s\r\nSubject: %s\r\n", sender, to, subject) +
			"MIME-Version: 1.0\r\n" +
			"Content-Type: text/html; charset=UTF-8\r\n\r\n" +
			body,
	)

	err := smtp.SendMail(addr, auth, sender, []string{to}, msg)
	if err != nil {
		log.Printf("SMTP send error: %v", err)
	} else {
		log.Printf("Email sent to %s via %s", to, addr)
	}
	return err
}
