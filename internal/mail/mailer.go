// Package mail sends transactional email over SMTP.
package mail

import (
	"crypto/tls"
	"fmt"
	"html"

	"gopkg.in/gomail.v2"
)

// SMTPConfig holds SMTP connection settings.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Mailer sends transactional mail. A nil Mailer is valid and sends nothing.
type Mailer struct {
	cfg SMTPConfig
}

// NewMailer returns a Mailer, or nil when no SMTP host is configured.
func NewMailer(cfg SMTPConfig) *Mailer {
	if cfg.Host == "" {
		return nil
	}
	return &Mailer{cfg: cfg}
}

// Send delivers a single HTML email.
func (m *Mailer) Send(to, subject, htmlBody string) error {
	if m == nil {
		return nil
	}
	msg := gomail.NewMessage()
	msg.SetHeader("From", m.cfg.From)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	d := gomail.NewDialer(m.cfg.Host, m.cfg.Port, m.cfg.Username, m.cfg.Password)
	d.TLSConfig = &tls.Config{InsecureSkipVerify: false}
	return d.DialAndSend(msg)
}

// SendApplicationDecision notifies an applicant that their join application
// was approved or rejected.
func (m *Mailer) SendApplicationDecision(to, communityName string, approved bool, note string) error {
	if m == nil {
		return nil
	}
	subject, body := applicationDecisionMessage(communityName, approved, note)
	return m.Send(to, subject, body)
}

func applicationDecisionMessage(communityName string, approved bool, note string) (subject, body string) {
	// Community names and review notes are user-supplied text.
	name := html.EscapeString(communityName)

	if approved {
		subject = fmt.Sprintf("Welcome to %s", communityName)
		body = fmt.Sprintf(`<p>Your application to join <b>%s</b> was approved.</p><p>Sign in and say hello in the community chat.</p>`, name)
		return subject, body
	}
	subject = fmt.Sprintf("Your application to %s", communityName)
	body = fmt.Sprintf(`<p>Your application to join <b>%s</b> was not accepted this time.</p>`, name)
	if note != "" {
		body += fmt.Sprintf(`<p>Note from the moderators: %s</p>`, html.EscapeString(note))
	}
	return subject, body
}
