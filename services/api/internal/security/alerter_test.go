package security

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func TestAuditAlerterTriggersOnceAtThreshold(t *testing.T) {
	redis := miniredis.RunT(t)
	alerter := NewAuditAlerter(redis.Addr(), "", "test:alerts")
	if alerter == nil {
		t.Fatalf("expected alerter")
	}
	defer alerter.Close()
	ctx := context.Background()

	triggers := 0
	for i := 0; i < 12; i++ {
		result, err := alerter.Observe(ctx, "user.login", "fail", "127.0.0.1")
		if err != nil {
			t.Fatalf("observe: %v", err)
		}
		if result.Triggered {
			triggers++
			if result.Count != 10 {
				t.Fatalf("expected trigger at count 10, got %d", result.Count)
			}
		}
	}
	if triggers != 1 {
		t.Fatalf("expected exactly one trigger, got %d", triggers)
	}

	other, err := alerter.Observe(ctx, "user.login", "fail", "10.0.0.1")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if other.Count != 1 {
		t.Fatalf("expected per-ip counters, got %d", other.Count)
	}
}

func TestAuditAlerterRateLimitedRule(t *testing.T) {
	redis := miniredis.RunT(t)
	alerter := NewAuditAlerter(redis.Addr(), "", "")
	result, err := alerter.Observe(context.Background(), "anything", "rate_limited", "")
	if err != nil {
		t.Fatalf("observe: %v", err)
	}
	if result.Rule.Window != time.Minute || result.Count != 1 {
		t.Fatalf("unexpected result %+v", result)
	}
	keys := redis.Keys()
	if len(keys) != 1 || !strings.HasPrefix(keys[0], "legalgen:alerts:anything:rate_limited:unknown:") {
		t.Fatalf("unexpected keys %v", keys)
	}
}

func TestAuditAlerterIgnoresUnknownRules(t *testing.T) {
	redis := miniredis.RunT(t)
	alerter := NewAuditAlerter(redis.Addr(), "", "test:alerts")
	for _, tc := range [][2]string{{"user.login", "success"}, {"book.share", "fail"}} {
		result, err := alerter.Observe(context.Background(), tc[0], tc[1], "127.0.0.1")
		if err != nil {
			t.Fatalf("observe: %v", err)
		}
		if result.Triggered || result.Count != 0 {
			t.Fatalf("unexpected result for %v: %+v", tc, result)
		}
	}
}

func TestNilAuditAlerter(t *testing.T) {
	var alerter *AuditAlerter
	if NewAuditAlerter("", "", "") != nil {
		t.Fatalf("expected nil alerter without redis")
	}
	if result, err := alerter.Observe(context.Background(), "user.login", "fail", "ip"); err != nil || result.Triggered {
		t.Fatalf("nil alerter must be a no-op, got %+v %v", result, err)
	}
	if err := alerter.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
}
