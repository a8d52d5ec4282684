// Package notify delivers contact form messages to the site operator.
package notify

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/mail"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

//go:embed templates/contact_email.html
var templateFS embed.FS

var contactTemplate = template.Must(template.ParseFS(templateFS, "templates/contact_email.html"))

var messagesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "portfolio_contact_messages_total",
	Help: "Contact form messages by delivery result.",
}, []string{"result"})

var (
	// ErrMissingField is returned when a contact form field is blank.
	ErrMissingField = errors.New("all contact fields are required")
	// ErrInvalidEmail is returned when the submitter address does not parse.
	ErrInvalidEmail = errors.New("invalid email address")
)

// ContactMessage is one submission of the public contact form.
type ContactMessage struct {
	Name    string
	Email   string
	Subject string
	Body    string
}

// Validate trims every field and checks that none is empty and that Email
// parses as an address.
func (m *ContactMessage) Validate() error {
	m.Name = strings.TrimSpace(m.Name)
	m.Email = strings.TrimSpace(m.Email)
	m.Subject = strings.TrimSpace(m.Subject)
	m.Body = strings.TrimSpace(m.Body)
	if m.Name == "" || m.Email == "" || m.Subject == "" || m.Body == "" {
		return ErrMissingField
	}
	if _, err := mail.ParseAddress(m.Email); err != nil {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, m.Email)
	}
	return nil
}

// Email is a fully composed outbound message.
type Email struct {
	From    string
	To      string
	ReplyTo string
	Subject string
	HTML    string
}

// Sender hands a composed email to a transport.
type Sender interface {
	Send(ctx context.Context, email Email) error
}

// SendError reports that a message could not be delivered. The submission is
// not kept anywhere once this is returned.
type SendError struct {
	Err error
}

func (e *SendError) Error() string {
	return "send contact message: " + e.Err.Error()
}

func (e *SendError) Unwrap() error { return e.Err }

// Mailer composes contact notifications and sends them to one fixed address.
type Mailer struct {
	sender    Sender
	from      string
	recipient string
	siteName  string
	logger    *slog.Logger
}

// NewMailer builds a Mailer. recipient is the operator address every
// message goes to.
func NewMailer(sender Sender, from, recipient, siteName string, logger *slog.Logger) *Mailer {
	return &Mailer{
		sender:    sender,
		from:      from,
		recipient: recipient,
		siteName:  siteName,
		logger:    logger,
	}
}

// SendContactMessage validates, renders and sends msg. Delivery failures are
// returned as *SendError.
func (m *Mailer) SendContactMessage(ctx context.Context, msg ContactMessage) error {
	if err := msg.Validate(); err != nil {
		return err
	}
	email, err := m.Compose(msg)
	if err != nil {
		messagesTotal.WithLabelValues("error").Inc()
		return &SendError{Err: err}
	}
	if err := m.sender.Send(ctx, email); err != nil {
		messagesTotal.WithLabelValues("error").Inc()
		m.logger.Error("contact message not delivered", "error", err, "reply_to", msg.Email)
		var serr *SendError
		if errors.As(err, &serr) {
			return serr
		}
		return &SendError{Err: err}
	}
	messagesTotal.WithLabelValues("ok").Inc()
	m.logger.Info("contact message sent", "reply_to", msg.Email)
	return nil
}

// Compose renders the notification for msg without sending it.
func (m *Mailer) Compose(msg ContactMessage) (Email, error) {
	if m.recipient == "" {
		return Email{}, errors.New("no contact recipient configured")
	}
	var body bytes.Buffer
	data := struct {
		Name, Email, Subject string
		BodyHTML             template.HTML
	}{
		Name:     msg.Name,
		Email:    msg.Email,
		Subject:  msg.Subject,
		BodyHTML: template.HTML(newlinesToBreaks(template.HTMLEscapeString(msg.Body))),
	}
	if err := contactTemplate.Execute(&body, data); err != nil {
		return Email{}, fmt.Errorf("render contact email: %w", err)
	}

	subject := msg.Subject
	if m.siteName != "" {
		subject = m.siteName + ": " + msg.Subject
	}
	return Email{
		From:    m.from,
		To:      m.recipient,
		ReplyTo: msg.Email,
		Subject: stripLineBreaks(subject),
		HTML:    body.String(),
	}, nil
}

func newlinesToBreaks(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	return strings.ReplaceAll(s, "\n", "<br>\n")
}

func stripLineBreaks(s string) string {
	return strings.Join(strings.Fields(strings.NewReplacer("\r", " ", "\n", " ").Replace(s)), " ")
}
