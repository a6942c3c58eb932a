// Package security raises alerts when failed security events from one client
// pile up inside a time window.
package security

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

var alertCounterScript = redis.NewScript(`
local count = redis.call("INCR", KEYS[1])
if count == 1 then
  redis.call("PEXPIRE", KEYS[1], ARGV[1])
end
return count
`)

// Rule is the number of events within Window that raises an alert.
type Rule struct {
	Threshold int64
	Window    time.Duration
}

// DefaultRules cover the failure outcomes logged by the API.
var DefaultRules = map[string]Rule{
	"user.login":           {Threshold: 10, Window: 5 * time.Minute},
	"user.register":        {Threshold: 10, Window: 5 * time.Minute},
	"user.password.forgot": {Threshold: 10, Window: 5 * time.Minute},
	"user.password.reset":  {Threshold: 10, Window: 5 * time.Minute},
	"user.password.change": {Threshold: 15, Window: 5 * time.Minute},
	"token.verify":         {Threshold: 25, Window: 5 * time.Minute},
}

// rateLimitedRule applies to every event whose outcome is rate_limited.
var rateLimitedRule = Rule{Threshold: 20, Window: time.Minute}

// AlertResult contains alert evaluation output.
type AlertResult struct {
	Triggered bool
	Count     int64
	Rule      Rule
}

// AuditAlerter counts security events per client in Redis.
type AuditAlerter struct {
	redisClient *redis.Client
	prefix      string
	rules       map[string]Rule
	now         func() time.Time
}

// NewAuditAlerter creates an alerter backed by Redis counters. It returns nil
// when addr is empty; a nil alerter never triggers.
func NewAuditAlerter(addr, password, prefix string) *AuditAlerter {
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil
	}
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "legalgen:alerts"
	}
	return &AuditAlerter{
		redisClient: redis.NewClient(&redis.Options{
			Addr:     addr,
			Password: password,
		}),
		prefix: prefix,
		rules:  DefaultRules,
		now:    time.Now,
	}
}

// Observe records a security event. Triggered is set once per window, on the
// event that reaches the threshold.
func (a *AuditAlerter) Observe(ctx context.Context, event, outcome, ip string) (AlertResult, error) {
	if a == nil || a.redisClient == nil {
		return AlertResult{}, nil
	}
	rule, ok := a.rule(event, outcome)
	if !ok {
		return AlertResult{}, nil
	}
	windowMs := rule.Window.Milliseconds()
	slot := a.now().UTC().UnixMilli() / windowMs
	key := fmt.Sprintf("%s:%s:%s:%s:%d", a.prefix, sanitizeSegment(event), sanitizeSegment(outcome), sanitizeSegment(ip), slot)

	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	count, err := alertCounterScript.Run(ctx, a.redisClient, []string{key}, windowMs).Int64()
	if err != nil {
		return AlertResult{}, fmt.Errorf("count security event: %w", err)
	}
	return AlertResult{Triggered: count == rule.Threshold, Count: count, Rule: rule}, nil
}

// Close releases the Redis client.
func (a *AuditAlerter) Close() error {
	if a == nil || a.redisClient == nil {
		return nil
	}
	return a.redisClient.Close()
}

func (a *AuditAlerter) rule(event, outcome string) (Rule, bool) {
	var rule Rule
	switch strings.TrimSpace(outcome) {
	case "rate_limited":
		rule = rateLimitedRule
	case "fail":
		r, ok := a.rules[strings.TrimSpace(event)]
		if !ok {
			return Rule{}, false
		}
		rule = r
	default:
		return Rule{}, false
	}
	if rule.Threshold <= 0 || rule.Window.Milliseconds() <= 0 {
		return Rule{}, false
	}
	return rule, true
}

func sanitizeSegment(in string) string {
	in = strings.TrimSpace(in)
	if in == "" {
		return "unknown"
	}
	return strings.NewReplacer(":", "_", "|", "_", " ", "_").Replace(in)
}
