// Package mail delivers the password reset message. SMTP sends it through
// a relay; Log writes it to a structured logger for development.
package mail

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net"
	"net/mail"
	"net/smtp"
	"strconv"
	"strings"
	"time"
)

const resetSubject = "Reset your password"

var resetBody = template.Must(template.New("reset").Parse(`<p>Hi {{.Name}},</p>
<p>Someone asked to reset the password of your account. The link below is valid for a limited time and can be used once.</p>
<p><a href="{{.Link}}">Reset password</a></p>
<p>If you did not ask for this, you can ignore this email.</p>
`))

var ErrNotConfigured = errors.New("mail: smtp not configured")

type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	Timeout  time.Duration
}

// SMTP sends mail with PLAIN auth over STARTTLS, as offered by the relay.
type SMTP struct {
	cfg  SMTPConfig
	from mail.Address
	send func(addr string, a smtp.Auth, from string, to []string, msg []byte) error
}

func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if cfg.Host == "" || cfg.Port <= 0 || cfg.Username == "" {
		return nil, ErrNotConfigured
	}
	fromAddr := cfg.From
	if fromAddr == "" {
		fromAddr = cfg.Username
	}
	from, err := mail.ParseAddress(fromAddr)
	if err != nil {
		return nil, fmt.Errorf("mail: invalid from address: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTP{cfg: cfg, from: *from, send: smtp.SendMail}, nil
}

func (s *SMTP) SendPasswordReset(ctx context.Context, to, name, link string) error {
	rcpt, err := mail.ParseAddress(to)
	if err != nil {
		return fmt.Errorf("mail: invalid recipient: %w", err)
	}
	msg, err := buildResetMessage(s.from, *rcpt, name, link)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
	defer cancel()

	addr := net.JoinHostPort(s.cfg.Host, strconv.Itoa(s.cfg.Port))
	auth := smtp.PlainAuth("", s.cfg.Username, s.cfg.Password, s.cfg.Host)

	done := make(chan error, 1)
	go func() {
		done <- s.send(addr, auth, s.from.Address, []string{rcpt.Address}, msg)
	}()
	select {
	case err := <-done:
		if err != nil {
			return fmt.Errorf("mail: send: %w", err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("mail: send: %w", ctx.Err())
	}
}

func buildResetMessage(from, to mail.Address, name, link string) ([]byte, error) {
	if name == "" {
		name = strings.SplitN(to.Address, "@", 2)[0]
	}
	var body bytes.Buffer
	if err := resetBody.Execute(&body, struct{ Name, Link string }{name, link}); err != nil {
		return nil, fmt.Errorf("mail: render: %w", err)
	}

	var msg bytes.Buffer
	fmt.Fprintf(&msg, "From: %s\r\n", from.String())
	fmt.Fprintf(&msg, "To: %s\r\n", to.String())
	fmt.Fprintf(&msg, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", resetSubject))
	fmt.Fprintf(&msg, "Date: %s\r\n", time.Now().UTC().Format(time.RFC1123Z))
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: text/html; charset=\"utf-8\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())
	return msg.Bytes(), nil
}

// Log writes reset links to a logger instead of sending them.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	if logger == nil {
		logger = slog.Default()
	}
	return &Log{logger: logger.With(slog.String("component", "mail"))}
}

func (l *Log) SendPasswordReset(ctx context.Context, to, name, link string) error {
	l.logger.InfoContext(ctx, "password reset mail",
		slog.String("to", to),
		slog.String("name", name),
		slog.String("link", link),
	)
	return nil
}
