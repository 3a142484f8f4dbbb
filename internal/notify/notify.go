// Package notify delivers account emails.
package notify

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"

	"github.com/robonav/server/internal/logging"
)

// Notifier sends a plain-text message to one recipient
type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

var errHeaderInjection = errors.New("header value contains a line break")

// SMTPConfig holds the SMTP relay settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMTPNotifier sends mail through an SMTP relay with PLAIN auth
type SMTPNotifier struct {
	addr string
	host string
	from string
	auth smtp.Auth

	// sendMail is swapped in tests
	sendMail func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
	now      func() time.Time
}

// NewSMTPNotifier creates a notifier for the given relay
func NewSMTPNotifier(cfg SMTPConfig) (*SMTPNotifier, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("smtp host is required")
	}
	from := cfg.From
	if from == "" {
		from = cfg.Username
	}
	if _, err := mail.ParseAddress(from); err != nil {
		return nil, fmt.Errorf("invalid sender address %q: %w", from, err)
	}

	var auth smtp.Auth
	if cfg.Username != "" {
		auth = smtp.PlainAuth("", cfg.Username, cfg.Password, cfg.Host)
	}

	return &SMTPNotifier{
		addr:     net.JoinHostPort(cfg.Host, strconv.Itoa(cfg.Port)),
		host:     cfg.Host,
		from:     from,
		auth:     auth,
		sendMail: smtp.SendMail,
		now:      time.Now,
	}, nil
}

// Send delivers the message. The SMTP exchange itself does not take a context,
// so cancellation only stops the wait.
func (n *SMTPNotifier) Send(ctx context.Context, to, subject, body string) error {
	if strings.ContainsAny(to, "\r\n") || strings.ContainsAny(subject, "\r\n") {
		return errHeaderInjection
	}
	if _, err := mail.ParseAddress(to); err != nil {
		return fmt.Errorf("invalid recipient: %w", err)
	}

	msg := n.compose(to, subject, body)

	done := make(chan error, 1)
	go func() {
		done <- n.sendMail(n.addr, n.auth, n.from, []string{to}, msg)
	}()

	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("smtp send via %s: %w", n.host, err)
		}
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (n *SMTPNotifier) compose(to, subject, body string) []byte {
	var b strings.Builder
	b.WriteString("From: " + n.from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: " + subject + "\r\n")
	b.WriteString("Date: " + n.now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=\"utf-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(strings.ReplaceAll(body, "\n", "\r\n"))
	return []byte(b.String())
}

// LogNotifier writes messages to the log instead of sending them. Dev mode only.
type LogNotifier struct {
	logger *slog.Logger
}

// NewLogNotifier creates a log-backed notifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

// Send logs the message. The body is logged in full so confirmation links can be followed locally.
func (n *LogNotifier) Send(ctx context.Context, to, subject, body string) error {
	n.logger.InfoContext(ctx, "email (not sent)",
		"to", logging.MaskEmail(to),
		"subject", subject,
		"body", body,
	)
	return nil
}
