// Package email renders stored templates and delivers transactional mail.
package email

import (
	"context"
	"fmt"
	"log"
	"mime"
	"net/smtp"
	"strings"
)

// Email is a single outbound message.
type Email struct {
	From    string
	To      []string
	Subject string
	Body    string
}

type Sender interface {
	Send(ctx context.Context, e Email) error
}

// SMTPSender delivers mail through an SMTP relay with PLAIN auth.
type SMTPSender struct {
	addr string
	host string
	auth smtp.Auth
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTPSender(host string, port int, username, password string) *SMTPSender {
	var auth smtp.Auth
	if username != "" {
		auth = smtp.PlainAuth("", username, password, host)
	}
	return &SMTPSender{
		addr: fmt.Sprintf("%s:%d", host, port),
		host: host,
		auth: auth,
		send: smtp.SendMail,
	}
}

func (s *SMTPSender) Send(ctx context.Context, e Email) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if len(e.To) == 0 {
		return fmt.Errorf("send email: no recipients")
	}
	if err := s.send(s.addr, s.auth, envelopeAddress(e.From), e.To, buildMessage(e)); err != nil {
		return fmt.Errorf("send email via %s: %w", s.host, err)
	}
	return nil
}

func buildMessage(e Email) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", e.From)
	fmt.Fprintf(&b, "To: %s\r\n", strings.Join(e.To, ", "))
	fmt.Fprintf(&b, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", e.Subject))
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString(e.Body)
	return []byte(b.String())
}

// envelopeAddress extracts the bare address from "Name <addr>".
func envelopeAddress(from string) string {
	if i := strings.LastIndex(from, "<"); i >= 0 {
		if j := strings.LastIndex(from, ">"); j > i {
			return from[i+1 : j]
		}
	}
	return strings.TrimSpace(from)
}

// LogSender only logs messages. Used when no SMTP host is configured.
type LogSender struct{}

func (LogSender) Send(_ context.Context, e Email) error {
	log.Printf("email: to=%s subject=%q (not sent, no smtp configured)", strings.Join(e.To, ","), e.Subject)
	return nil
}
