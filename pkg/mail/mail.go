// Package mail sends account emails.
package mail

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"mime"
	"net"
	"net/smtp"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// DefaultSenderName is shown in the From header of every message.
const DefaultSenderName = "LegalGenAi"

// Message is one outbound HTML email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Mailer delivers messages.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// SMTPConfig configures SMTPMailer.
type SMTPConfig struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	SenderName string
	// ImplicitTLS dials TLS directly (port 465). Otherwise STARTTLS is used when offered.
	ImplicitTLS bool
	Timeout     time.Duration
}

// SMTPMailer sends mail through an authenticated SMTP relay.
type SMTPMailer struct {
	cfg SMTPConfig
}

// NewSMTPMailer validates cfg and builds a mailer.
func NewSMTPMailer(cfg SMTPConfig) (*SMTPMailer, error) {
	cfg.Host = strings.TrimSpace(cfg.Host)
	cfg.From = strings.TrimSpace(cfg.From)
	if cfg.Host == "" {
		return nil, errors.New("smtp host is required")
	}
	if cfg.Port <= 0 {
		return nil, errors.New("smtp port is required")
	}
	if cfg.From == "" {
		return nil, errors.New("smtp from address is required")
	}
	if cfg.SenderName == "" {
		cfg.SenderName = DefaultSenderName
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	return &SMTPMailer{cfg: cfg}, nil
}

// Send delivers msg.
func (m *SMTPMailer) Send(ctx context.Context, msg Message) error {
	if len(msg.To) == 0 {
		return errors.New("mail: no recipients")
	}
	addr := net.JoinHostPort(m.cfg.Host, strconv.Itoa(m.cfg.Port))
	dialer := &net.Dialer{Timeout: m.cfg.Timeout}
	ctx, cancel := context.WithTimeout(ctx, m.cfg.Timeout)
	defer cancel()

	var conn net.Conn
	var err error
	if m.cfg.ImplicitTLS {
		conn, err = (&tls.Dialer{NetDialer: dialer, Config: &tls.Config{ServerName: m.cfg.Host}}).DialContext(ctx, "tcp", addr)
	} else {
		conn, err = dialer.DialContext(ctx, "tcp", addr)
	}
	if err != nil {
		return fmt.Errorf("dial smtp: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}
	client, err := smtp.NewClient(conn, m.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer client.Close()

	if !m.cfg.ImplicitTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(&tls.Config{ServerName: m.cfg.Host}); err != nil {
				return fmt.Errorf("smtp starttls: %w", err)
			}
		}
	}
	if m.cfg.Username != "" {
		if err := client.Auth(smtp.PlainAuth("", m.cfg.Username, m.cfg.Password, m.cfg.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}
	if err := client.Mail(m.cfg.From); err != nil {
		return fmt.Errorf("smtp mail from: %w", err)
	}
	for _, rcpt := range msg.To {
		if err := client.Rcpt(rcpt); err != nil {
			return fmt.Errorf("smtp rcpt: %w", err)
		}
	}
	w, err := client.Data()
	if err != nil {
		return fmt.Errorf("smtp data: %w", err)
	}
	if _, err := w.Write(m.compose(msg, time.Now())); err != nil {
		_ = w.Close()
		return fmt.Errorf("smtp write: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp data close: %w", err)
	}
	return client.Quit()
}

func (m *SMTPMailer) compose(msg Message, now time.Time) []byte {
	var buf bytes.Buffer
	from := fmt.Sprintf("%s <%s>", mime.QEncoding.Encode("utf-8", m.cfg.SenderName), m.cfg.From)
	fmt.Fprintf(&buf, "From: %s\r\n", from)
	fmt.Fprintf(&buf, "To: %s\r\n", strings.Join(msg.To, ", "))
	fmt.Fprintf(&buf, "Subject: %s\r\n", mime.QEncoding.Encode("utf-8", msg.Subject))
	fmt.Fprintf(&buf, "Date: %s\r\n", now.Format(time.RFC1123Z))
	buf.WriteString("MIME-Version: 1.0\r\n")
	buf.WriteString("Content-Type: text/html; charset=UTF-8\r\n")
	buf.WriteString("\r\n")
	buf.WriteString(strings.ReplaceAll(msg.HTML, "\n", "\r\n"))
	return buf.Bytes()
}

// LogMailer writes messages to the log instead of sending them. It is used
// when SMTP is not configured.
type LogMailer struct {
	Logger *slog.Logger
}

// Send logs recipients and subject. The body is not logged since it may hold a reset token.
func (m LogMailer) Send(ctx context.Context, msg Message) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "mail not sent: smtp disabled", "to", msg.To, "subject", msg.Subject)
	return nil
}

var (
	resetPasswordTemplate = template.Must(template.New("reset").Parse(`<p>Hello {{.Name}},</p>
<p>We received a request to reset the password of your LegalGen account.</p>
<p>Your reset token is: <strong>{{.Token}}</strong></p>
{{if .Link}}<p><a href="{{.Link}}">Reset your password</a></p>
{{end}}<p>The token expires in {{.Minutes}} minutes. If you did not ask for a reset, ignore this email.</p>`))

	passwordChangedTemplate = template.Must(template.New("changed").Parse(`<p>Hello {{.Name}},</p>
<p>The password of your LegalGen account was changed on {{.When}}.</p>
<p>If this was not you, reset your password immediately.</p>`))
)

// ResetPasswordMessage builds the email carrying a password reset token.
// linkBase, when set, gets email and token appended as query parameters.
func ResetPasswordMessage(to, name, token, linkBase string, ttl time.Duration) (Message, error) {
	link := ""
	if linkBase != "" {
		sep := "?"
		if strings.Contains(linkBase, "?") {
			sep = "&"
		}
		link = linkBase + sep + "email=" + url.QueryEscape(to) + "&token=" + url.QueryEscape(token)
	}
	var buf bytes.Buffer
	err := resetPasswordTemplate.Execute(&buf, map[string]any{
		"Name":    displayName(name, to),
		"Token":   token,
		"Link":    template.URL(link),
		"Minutes": int(ttl.Minutes()),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render reset email: %w", err)
	}
	return Message{To: []string{to}, Subject: "Reset your LegalGen password", HTML: buf.String()}, nil
}

// PasswordChangedMessage builds the notification sent after a password change.
func PasswordChangedMessage(to, name string, when time.Time) (Message, error) {
	var buf bytes.Buffer
	err := passwordChangedTemplate.Execute(&buf, map[string]any{
		"Name": displayName(name, to),
		"When": when.UTC().Format("2006-01-02 15:04 UTC"),
	})
	if err != nil {
		return Message{}, fmt.Errorf("render password changed email: %w", err)
	}
	return Message{To: []string{to}, Subject: "Your LegalGen password was changed", HTML: buf.String()}, nil
}

func displayName(name, email string) string {
	if strings.TrimSpace(name) != "" {
		return strings.TrimSpace(name)
	}
	return email
}
