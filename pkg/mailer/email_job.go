package mailer

import (
	"context"
	"errors"

	"github.com/oksasatya/go-ddd-user-service/pkg/mailer/templates"
)

// EmailJob describes one outgoing email. Html is optional; Text is
// recommended as fallback. Template and Data render subject, text and html
// from the embedded templates instead.
type EmailJob struct {
	To       string         `json:"to"`
	Subject  string         `json:"subject,omitempty"`
	Text     string         `json:"text,omitempty"`
	HTML     string         `json:"html,omitempty"`
	Template string         `json:"template,omitempty"` // e.g. "welcome", "account_status", "profile_updated"
	Data     map[string]any `json:"data,omitempty"`
}

// Sender delivers a rendered email. *Mailgun implements it.
type Sender interface {
	Send(ctx context.Context, to, subject, text, html string) error
}

// Deliver renders job if it names a template and hands it to s.
func Deliver(ctx context.Context, s Sender, job EmailJob) error {
	if job.To == "" {
		return errors.New("email job has no recipient")
	}
	subject, text, html := job.Subject, job.Text, job.HTML
	if job.Template != "" {
		var err error
		subject, text, html, err = templates.Render(job.Template, job.Data)
		if err != nil {
			return err
		}
	}
	return s.Send(ctx, job.To, subject, text, html)
}
