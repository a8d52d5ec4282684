package notify

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"mime"
	"net"
	"net/smtp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
)

// SMTPSender delivers mail through an SMTP relay. Port 465 uses implicit
// TLS; any other port upgrades with STARTTLS when UseTLS is set.
type SMTPSender struct {
	Host     string
	Port     int
	Username string
	Password string
	UseTLS   bool
	Timeout  time.Duration
}

func (s *SMTPSender) Send(ctx context.Context, email Email) error {
	if s.Host == "" {
		return &SendError{Err: errors.New("mail server is not configured")}
	}
	from := envelopeAddress(email.From)
	if from == "" {
		from = s.Username
	}
	msg := buildMIME(email)
	addr := net.JoinHostPort(s.Host, strconv.Itoa(s.Port))

	timeout := s.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	dialer := &net.Dialer{Timeout: timeout}

	var conn net.Conn
	var err error
	if s.Port == 465 {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: s.Host}}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial %s: %w", addr, err)
	}
	defer conn.Close()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	} else {
		_ = conn.SetDeadline(time.Now().Add(timeout))
	}

	client, err := smtp.NewClient(conn, s.Host)
	if err != nil {
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if s.Port != 465 && s.UseTLS {
		if err := client.StartTLS(&tls.Config{ServerName: s.Host}); err != nil {
			return fmt.Errorf("starttls: %w", err)
		}
	}
	if s.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", s.Username, s.Password, s.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(from); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	if err := client.Rcpt(envelopeAddress(email.To)); err != nil {
		return fmt.Errorf("smtp rcpt: %w", err)
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp close data: %w", err)
	}
	return client.Quit()
}

// ResendSender delivers mail through the Resend HTTP API.
type ResendSender struct {
	client *resend.Client
}

// NewResendSender returns a sender for apiKey. An empty key yields a sender
// that always fails with a SendError.
func NewResendSender(apiKey string) *ResendSender {
	if apiKey == "" {
		return &ResendSender{}
	}
	return &ResendSender{client: resend.NewClient(apiKey)}
}

func (s *ResendSender) Send(ctx context.Context, email Email) error {
	if s.client == nil {
		return &SendError{Err: errors.New("resend is not configured")}
	}
	params := &resend.SendEmailRequest{
		From:    email.From,
		To:      []string{email.To},
		Subject: email.Subject,
		Html:    email.HTML,
	}
	if email.ReplyTo != "" {
		params.ReplyTo = email.ReplyTo
	}
	if _, err := s.client.Emails.SendWithContext(ctx, params); err != nil {
		return fmt.Errorf("resend: %w", err)
	}
	return nil
}

func buildMIME(email Email) []byte {
	headers := map[string]string{
		"From":         email.From,
		"To":           email.To,
		"Subject":      mime.QEncoding.Encode("utf-8", email.Subject),
		"MIME-Version": "1.0",
		"Content-Type": "text/html; charset=UTF-8",
		"Date":         time.Now().Format(time.RFC1123Z),
	}
	if email.ReplyTo != "" {
		headers["Reply-To"] = email.ReplyTo
	}
	keys := make([]string, 0, len(headers))
	for k := range headers {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	for _, k := range keys {
		fmt.Fprintf(&b, "%s: %s\r\n", k, headers[k])
	}
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(strings.ReplaceAll(email.HTML, "\r\n", "\n"), "\n", "\r\n"))
	return []byte(b.String())
}

// envelopeAddress strips a display name: "Site <a@b.c>" becomes "a@b.c".
func envelopeAddress(addr string) string {
	if i := strings.LastIndex(addr, "<"); i >= 0 {
		if j := strings.LastIndex(addr, ">"); j > i {
			return strings.TrimSpace(addr[i+1 : j])
		}
	}
	return strings.TrimSpace(addr)
}
