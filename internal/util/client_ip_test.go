package util

import (
	"net/http"
	"net/http/httptest"
	"net/netip"
	"testing"
)

func TestClientIP(t *testing.T) {
	proxies, err := NewTrustedProxies([]string{"10.0.0.0/8", " 192.168.1.10 ", ""})
	if err != nil {
		t.Fatalf("trusted proxies: %v", err)
	}

	type headers map[string]string
	tests := []struct {
		name    string
		peer    string
		headers headers
		trusted *TrustedProxies
		want    string
	}{
		{"nil trust ignores forwarding", "198.51.100.10:1234",
			headers{"X-Forwarded-For": "203.0.113.5", "X-Real-IP": "203.0.113.6"}, nil, "198.51.100.10"},
		{"untrusted peer ignores forwarding", "198.51.100.11",
			headers{"X-Forwarded-For": "203.0.113.5"}, proxies, "198.51.100.11"},
		{"trusted peer honours forwarded-for", "10.0.0.20:1234",
			headers{"X-Forwarded-For": "203.0.113.5"}, proxies, "203.0.113.5"},
		{"single-address proxy", "192.168.1.10:80",
			headers{"X-Forwarded-For": "203.0.113.9"}, proxies, "203.0.113.9"},
		{"right-most untrusted hop wins", "10.0.0.20:1234",
			headers{"X-Forwarded-For": "198.51.100.1, 203.0.113.5, 10.0.0.10"}, proxies, "203.0.113.5"},
		{"garbage forwarded-for falls back to real ip", "10.0.0.20:1234",
			headers{"X-Forwarded-For": "invalid", "X-Real-IP": "203.0.113.7"}, proxies, "203.0.113.7"},
		{"no headers keeps peer", "10.0.0.20:1234", nil, proxies, "10.0.0.20"},
		{"mapped ipv6 peer", "[::ffff:10.0.0.20]:1234",
			headers{"X-Forwarded-For": "203.0.113.8"}, proxies, "203.0.113.8"},
		{"fully trusted chain returns leftmost", "10.0.0.20:1234",
			headers{"X-Forwarded-For": "10.0.0.5, 10.0.0.10"}, proxies, "10.0.0.5"},
		{"unparseable peer returned verbatim", "pipe",
			headers{"X-Forwarded-For": "203.0.113.5"}, proxies, "pipe"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/Auth/login", nil)
			req.RemoteAddr = tt.peer
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			if got := ClientIP(req, tt.trusted); got != tt.want {
				t.Fatalf("ClientIP = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestTrustedProxies(t *testing.T) {
	if _, err := NewTrustedProxies([]string{"10.0.0.0/33"}); err == nil {
		t.Fatal("expected error for bad prefix")
	}
	if _, err := NewTrustedProxies([]string{"not-an-ip"}); err == nil {
		t.Fatal("expected error for bad address")
	}

	p, err := NewTrustedProxies([]string{"10.1.2.3/8", "2001:db8::1"})
	if err != nil {
		t.Fatalf("trusted proxies: %v", err)
	}
	for addr, want := range map[string]bool{
		"10.200.0.1":  true,
		"11.0.0.1":    false,
		"2001:db8::1": true,
		"2001:db8::2": false,
	} {
		if got := p.Contains(netip.MustParseAddr(addr)); got != want {
			t.Errorf("Contains(%s) = %v, want %v", addr, got, want)
		}
	}
	var none *TrustedProxies
	if none.Contains(netip.MustParseAddr("10.0.0.1")) {
		t.Fatal("nil set must trust nothing")
	}
}
