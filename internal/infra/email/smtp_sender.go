// Package email provides the email delivery channel: SMTP when a server is
// configured, a logging sender otherwise.
package email

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"landten/internal/domain/messaging"
)

const defaultSubject = "Rent reminder"

// SMTPSender implements messaging.Sender over an SMTP relay.
type SMTPSender struct {
	addr    string
	auth    smtp.Auth
	from    *mail.Address
	subject string
	now     func() time.Time
	send    func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

// NewSMTPSender builds a sender for host:port. PLAIN auth is used when username is set.
func NewSMTPSender(host string, port int, username, password, from string) (*SMTPSender, error) {
	sender, err := mail.ParseAddress(from)
	if err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", from, err)
	}
	s := &SMTPSender{
		addr:    net.JoinHostPort(host, strconv.Itoa(port)),
		from:    sender,
		subject: defaultSubject,
		now:     time.Now,
		send:    smtp.SendMail,
	}
	if username != "" {
		s.auth = smtp.PlainAuth("", username, password, host)
	}
	return s, nil
}

func (s *SMTPSender) Send(ctx context.Context, to messaging.Recipient, text string) error {
	if to.Email == "" {
		return messaging.ErrNoAddress
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	rcpt := &mail.Address{Name: to.Name, Address: to.Email}
	if err := s.send(s.addr, s.auth, s.from.Address, []string{rcpt.Address}, s.compose(rcpt, text)); err != nil {
		return fmt.Errorf("failed to send email to %s: %w", rcpt.Address, err)
	}
	return nil
}

func (s *SMTPSender) compose(to *mail.Address, text string) []byte {
	var b bytes.Buffer
	header := func(k, v string) { fmt.Fprintf(&b, "%s: %s\r\n", k, v) }
	header("From", s.from.String())
	header("To", to.String())
	header("Subject", s.subject)
	header("Date", s.now().Format(time.RFC1123Z))
	header("MIME-Version", "1.0")
	header("Content-Type", "text/plain; charset=UTF-8")
	header("Content-Transfer-Encoding", "8bit")
	b.WriteString("\r\n")
	body := strings.ReplaceAll(text, "\r\n", "\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	b.WriteString("\r\n")
	return b.Bytes()
}
