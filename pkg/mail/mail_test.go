package mail

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"
)

func TestNewSMTPMailerValidates(t *testing.T) {
	if _, err := NewSMTPMailer(SMTPConfig{Port: 465, From: "a@example.com"}); err == nil {
		t.Fatalf("expected missing host to fail")
	}
	if _, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", From: "a@example.com"}); err == nil {
		t.Fatalf("expected missing port to fail")
	}
	if _, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 465}); err == nil {
		t.Fatalf("expected missing from to fail")
	}
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 465, From: "a@example.com"})
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}
	if m.cfg.SenderName != DefaultSenderName || m.cfg.Timeout <= 0 {
		t.Fatalf("expected defaults to be applied, got %+v", m.cfg)
	}
}

func TestSMTPMailerSendRequiresRecipients(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 465, From: "a@example.com"})
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}
	if err := m.Send(context.Background(), Message{Subject: "x"}); err == nil {
		t.Fatalf("expected error without recipients")
	}
}

func TestCompose(t *testing.T) {
	m, err := NewSMTPMailer(SMTPConfig{Host: "smtp.example.com", Port: 587, From: "noreply@example.com"})
	if err != nil {
		t.Fatalf("new mailer: %v", err)
	}
	raw := string(m.compose(Message{
		To:      []string{"a@example.com", "b@example.com"},
		Subject: "Hello",
		HTML:    "<p>one</p>\n<p>two</p>",
	}, time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)))

	for _, want := range []string{
		"From: LegalGenAi <noreply@example.com>\r\n",
		"To: a@example.com, b@example.com\r\n",
		"Subject: Hello\r\n",
		"Content-Type: text/html; charset=UTF-8\r\n",
		"\r\n\r\n<p>one</p>\r\n<p>two</p>",
	} {
		if !strings.Contains(raw, want) {
			t.Fatalf("composed message missing %q:\n%s", want, raw)
		}
	}
}

func TestResetPasswordMessage(t *testing.T) {
	msg, err := ResetPasswordMessage("a+b@example.com", "Ada", "tok-123", "https://app.example.com/reset", 10*time.Minute)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if len(msg.To) != 1 || msg.To[0] != "a+b@example.com" {
		t.Fatalf("unexpected recipients %v", msg.To)
	}
	if !strings.Contains(msg.HTML, "tok-123") || !strings.Contains(msg.HTML, "10 minutes") {
		t.Fatalf("expected token and ttl in body: %s", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "https://app.example.com/reset?email=a%2Bb%40example.com&amp;token=tok-123") {
		t.Fatalf("expected escaped reset link in body: %s", msg.HTML)
	}

	msg, err = ResetPasswordMessage("a@example.com", "", "tok", "", time.Minute)
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(msg.HTML, "<a href") {
		t.Fatalf("expected no link without base: %s", msg.HTML)
	}
	if !strings.Contains(msg.HTML, "Hello a@example.com") {
		t.Fatalf("expected email as fallback name: %s", msg.HTML)
	}
}

func TestPasswordChangedMessageEscapesName(t *testing.T) {
	msg, err := PasswordChangedMessage("a@example.com", "<b>Eve</b>", time.Now())
	if err != nil {
		t.Fatalf("render: %v", err)
	}
	if strings.Contains(msg.HTML, "<b>Eve</b>") {
		t.Fatalf("expected name to be escaped: %s", msg.HTML)
	}
}

func TestLogMailerDoesNotLogBody(t *testing.T) {
	var buf bytes.Buffer
	m := LogMailer{Logger: slog.New(slog.NewJSONHandler(&buf, nil))}
	if err := m.Send(context.Background(), Message{To: []string{"a@example.com"}, Subject: "s", HTML: "secret-token"}); err != nil {
		t.Fatalf("send: %v", err)
	}
	if strings.Contains(buf.String(), "secret-token") {
		t.Fatalf("body leaked into log: %s", buf.String())
	}
	if !strings.Contains(buf.String(), "a@example.com") {
		t.Fatalf("expected recipient in log: %s", buf.String())
	}
}
