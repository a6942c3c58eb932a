package store

import (
	"strings"
	"testing"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
	"legalgen/pkg/domain"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestJWTStore(t *testing.T, revoker TokenRevoker, opts JWTOptions) *JWTSessionStore {
	t.Helper()
	s, err := NewJWTSessionStore(testSecret, time.Minute, revoker, opts)
	if err != nil {
		t.Fatalf("new jwt store: %v", err)
	}
	return s
}

func TestJWTSessionStoreRoundTrip(t *testing.T) {
	s := newTestJWTStore(t, NewMemoryTokenRevoker(), JWTOptions{})

	token, expires, err := s.NewSession(domain.User{ID: "user-1", Email: "a@example.com"})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if token == "" {
		t.Fatalf("expected token")
	}
	if d := time.Until(expires); d <= 0 || d > time.Minute {
		t.Fatalf("unexpected expiry in %v", d)
	}
	userID, ok, err := s.GetUserIDByToken(token)
	if err != nil || !ok || userID != "user-1" {
		t.Fatalf("unexpected verify result: ok=%v userID=%q err=%v", ok, userID, err)
	}

	claims, err := s.parseAndVerify(token)
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.Email != "a@example.com" {
		t.Fatalf("expected email claim, got %q", claims.Email)
	}
	if claims.ID == "" {
		t.Fatalf("expected jti")
	}
}

func TestJWTSessionStoreRejectsShortSecret(t *testing.T) {
	if _, err := NewJWTSessionStore("short", time.Minute, nil, JWTOptions{}); err == nil {
		t.Fatalf("expected short secret to be rejected")
	}
}

func TestJWTSessionStoreEnforcesAudience(t *testing.T) {
	signing := newTestJWTStore(t, nil, JWTOptions{Issuer: "issuer-a", Audience: "aud-a", Leeway: time.Second})
	verify := newTestJWTStore(t, nil, JWTOptions{Issuer: "issuer-a", Audience: "aud-b", Leeway: time.Second})

	token, _, err := signing.NewSession(domain.User{ID: "user-claim"})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, _, err := verify.GetUserIDByToken(token); err == nil {
		t.Fatalf("expected audience mismatch to fail")
	}
}

func TestJWTSessionStoreRejectsForeignSecret(t *testing.T) {
	signing := newTestJWTStore(t, nil, JWTOptions{})
	other, err := NewJWTSessionStore(strings.Repeat("z", 40), time.Minute, nil, JWTOptions{})
	if err != nil {
		t.Fatalf("new store: %v", err)
	}
	token, _, err := signing.NewSession(domain.User{ID: "user-1"})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, err := other.GetUserIDByToken(token); err == nil || ok {
		t.Fatalf("expected signature mismatch to fail, ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionStoreRevokesByJTI(t *testing.T) {
	s := newTestJWTStore(t, NewMemoryTokenRevoker(), JWTOptions{})

	token, _, err := s.NewSession(domain.User{ID: "user-revoke"})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.DeleteSession(token); err != nil {
		t.Fatalf("delete session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); err == nil || ok {
		t.Fatalf("expected revoked token to fail, ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionStoreRevokesByUserCutoff(t *testing.T) {
	revoker := NewMemoryTokenRevoker()
	s := newTestJWTStore(t, revoker, JWTOptions{})

	token, _, err := s.NewSession(domain.User{ID: "user-cutoff"})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if err := s.RevokeUserSessions("user-cutoff", time.Now().UTC().Add(2*time.Second)); err != nil {
		t.Fatalf("revoke user: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); err == nil || ok {
		t.Fatalf("expected user-revoked token to fail, ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionStoreKeepsTokensIssuedAfterCutoff(t *testing.T) {
	revoker := NewMemoryTokenRevoker()
	s := newTestJWTStore(t, revoker, JWTOptions{})

	if err := revoker.RevokeUser("user-fresh", time.Now().UTC().Add(-time.Minute)); err != nil {
		t.Fatalf("revoke user: %v", err)
	}
	token, _, err := s.NewSession(domain.User{ID: "user-fresh"})
	if err != nil {
		t.Fatalf("new session: %v", err)
	}
	if _, ok, err := s.GetUserIDByToken(token); err != nil || !ok {
		t.Fatalf("expected fresh token to pass, ok=%v err=%v", ok, err)
	}
}

func TestJWTSessionStoreRejectsExpiredToken(t *testing.T) {
	s := newTestJWTStore(t, nil, JWTOptions{Leeway: time.Second})
	past := time.Now().UTC().Add(-time.Hour)
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-old",
			Issuer:    defaultJWTIssuer,
			Audience:  jwt.ClaimStrings{defaultJWTAudience},
			ExpiresAt: jwt.NewNumericDate(past.Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(past),
			ID:        "jti-old",
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, _, err := s.GetUserIDByToken(signed); err == nil {
		t.Fatalf("expected expired token to fail")
	}
}

func TestJWTSessionStoreRejectsNoneAlgorithm(t *testing.T) {
	s := newTestJWTStore(t, nil, JWTOptions{})
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodNone, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-none",
			Issuer:    defaultJWTIssuer,
			Audience:  jwt.ClaimStrings{defaultJWTAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
			ID:        "jti-none",
		},
	})
	signed, err := token.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, _, err := s.GetUserIDByToken(signed); err == nil {
		t.Fatalf("expected unsigned token to fail")
	}
}

func TestJWTSessionStoreRejectsMissingJTI(t *testing.T) {
	s := newTestJWTStore(t, nil, JWTOptions{})
	now := time.Now().UTC()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-nojti",
			Issuer:    defaultJWTIssuer,
			Audience:  jwt.ClaimStrings{defaultJWTAudience},
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Minute)),
			IssuedAt:  jwt.NewNumericDate(now),
		},
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, _, err := s.GetUserIDByToken(signed); err == nil {
		t.Fatalf("expected token without jti to fail")
	}
}
