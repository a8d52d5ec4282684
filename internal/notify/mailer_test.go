package notify

import (
	"bufio"
	"context"
	"errors"
	"log/slog"
	"mime"
	"net"
	"net/mail"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSender struct {
	sent []Email
	err  error
}

func (f *fakeSender) Send(_ context.Context, email Email) error {
	if f.err != nil {
		return f.err
	}
	f.sent = append(f.sent, email)
	return nil
}

func newTestMailer(sender Sender) *Mailer {
	return NewMailer(sender, "Site <noreply@example.com>", "owner@example.com", "Portfolio", slog.New(slog.DiscardHandler))
}

func validMessage() ContactMessage {
	return ContactMessage{
		Name:    "Ada <script>",
		Email:   "ada@example.com",
		Subject: "Hello\r\nBcc: victim@example.com",
		Body:    "First line\nSecond <b>line</b>",
	}
}

func TestSendContactMessage(t *testing.T) {
	sender := &fakeSender{}
	m := newTestMailer(sender)

	require.NoError(t, m.SendContactMessage(context.Background(), validMessage()))
	require.Len(t, sender.sent, 1)

	email := sender.sent[0]
	assert.Equal(t, "owner@example.com", email.To)
	assert.Equal(t, "ada@example.com", email.ReplyTo)
	assert.Equal(t, "Site <noreply@example.com>", email.From)
	assert.Equal(t, "Portfolio: Hello Bcc: victim@example.com", email.Subject)
	assert.Contains(t, email.HTML, "Ada &lt;script&gt;")
	assert.Contains(t, email.HTML, "First line<br>\nSecond &lt;b&gt;line&lt;/b&gt;")
	assert.NotContains(t, email.HTML, "<script>")
}

func TestSendContactMessageValidation(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*ContactMessage)
		wantErr error
	}{
		{"blank name", func(m *ContactMessage) { m.Name = "  " }, ErrMissingField},
		{"blank email", func(m *ContactMessage) { m.Email = "" }, ErrMissingField},
		{"blank subject", func(m *ContactMessage) { m.Subject = "" }, ErrMissingField},
		{"blank body", func(m *ContactMessage) { m.Body = "\n" }, ErrMissingField},
		{"bad email", func(m *ContactMessage) { m.Email = "not-an-address" }, ErrInvalidEmail},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{}
			msg := validMessage()
			tt.mutate(&msg)

			err := newTestMailer(sender).SendContactMessage(context.Background(), msg)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, sender.sent)
		})
	}
}

func TestSendContactMessageFailure(t *testing.T) {
	boom := errors.New("relay down")
	m := newTestMailer(&fakeSender{err: boom})

	err := m.SendContactMessage(context.Background(), validMessage())
	var serr *SendError
	require.ErrorAs(t, err, &serr)
	assert.ErrorIs(t, err, boom)
}

func TestSendContactMessageNoRecipient(t *testing.T) {
	m := NewMailer(&fakeSender{}, "a@example.com", "", "", slog.New(slog.DiscardHandler))
	var serr *SendError
	assert.ErrorAs(t, m.SendContactMessage(context.Background(), validMessage()), &serr)
}

func TestResendSenderUnconfigured(t *testing.T) {
	err := NewResendSender("").Send(context.Background(), Email{To: "a@example.com"})
	var serr *SendError
	assert.ErrorAs(t, err, &serr)
}

func TestEnvelopeAddress(t *testing.T) {
	assert.Equal(t, "a@b.c", envelopeAddress("Site <a@b.c>"))
	assert.Equal(t, "a@b.c", envelopeAddress(" a@b.c "))
}

func TestBuildMIME(t *testing.T) {
	raw := string(buildMIME(Email{
		From:    "a@example.com",
		To:      "b@example.com",
		ReplyTo: "c@example.com",
		Subject: "Hi",
		HTML:    "<p>x</p>\n<p>y</p>",
	}))
	head, body, ok := strings.Cut(raw, "\r\n\r\n")
	require.True(t, ok)
	assert.Contains(t, head, "Reply-To: c@example.com")
	assert.Contains(t, head, "Content-Type: text/html; charset=UTF-8")
	assert.Equal(t, "<p>x</p>\r\n<p>y</p>", body)
	assert.Contains(t, head, "Subject: Hi\r\n")
}

func TestBuildMIMEEncodesSubject(t *testing.T) {
	subject := "Portfolio: Halo, apa kabar? Café ☕"
	raw := string(buildMIME(Email{From: "a@example.com", To: "b@example.com", Subject: subject}))

	msg, err := mail.ReadMessage(strings.NewReader(raw))
	require.NoError(t, err)
	encoded := msg.Header.Get("Subject")
	assert.True(t, strings.HasPrefix(encoded, "=?utf-8?q?"), encoded)
	for _, r := range encoded {
		assert.Less(t, r, rune(128))
	}

	decoded, err := new(mime.WordDecoder).DecodeHeader(encoded)
	require.NoError(t, err)
	assert.Equal(t, subject, decoded)
}

// fakeSMTP accepts a single plain-text session and records the DATA payload.
func fakeSMTP(t *testing.T) (host string, port int, data <-chan string) {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	out := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		tp := textproto.NewConn(conn)
		_ = tp.PrintfLine("220 fake ESMTP")
		for {
			line, err := tp.ReadLine()
			if err != nil {
				return
			}
			cmd := strings.ToUpper(line)
			switch {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				_ = tp.PrintfLine("250 fake")
			case strings.HasPrefix(cmd, "MAIL"), strings.HasPrefix(cmd, "RCPT"):
				_ = tp.PrintfLine("250 ok")
			case cmd == "DATA":
				_ = tp.PrintfLine("354 go ahead")
				payload, err := tp.ReadDotBytes()
				if err != nil {
					return
				}
				out <- string(payload)
				_ = tp.PrintfLine("250 queued")
			case cmd == "QUIT":
				_ = tp.PrintfLine("221 bye")
				return
			default:
				_ = tp.PrintfLine("502 unsupported")
			}
		}
	}()

	h, p, err := net.SplitHostPort(ln.Addr().String())
	require.NoError(t, err)
	portNum, err := strconv.Atoi(p)
	require.NoError(t, err)
	return h, portNum, out
}

func TestSMTPSender(t *testing.T) {
	host, port, data := fakeSMTP(t)
	sender := &SMTPSender{Host: host, Port: port, Timeout: 5 * time.Second}

	err := sender.Send(context.Background(), Email{
		From:    "Site <noreply@example.com>",
		To:      "owner@example.com",
		Subject: "Portfolio: Hi",
		HTML:    "<p>hello</p>",
	})
	require.NoError(t, err)

	select {
	case payload := <-data:
		r := textproto.NewReader(bufio.NewReader(strings.NewReader(payload)))
		header, err := r.ReadMIMEHeader()
		require.NoError(t, err)
		assert.Equal(t, "Portfolio: Hi", header.Get("Subject"))
		assert.Contains(t, payload, "<p>hello</p>")
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSMTPSenderUnconfigured(t *testing.T) {
	var serr *SendError
	assert.ErrorAs(t, (&SMTPSender{}).Send(context.Background(), Email{}), &serr)
}
