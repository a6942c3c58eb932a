package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"legalgen/internal/ratelimit"
	"legalgen/internal/util"
	"legalgen/pkg/domain"
	"legalgen/services/api/internal/app"
	"legalgen/services/api/internal/security"
)

const maxJSONBodyBytes = 1 << 20

// Config wires required dependencies for the HTTP server.
type Config struct {
	App            *app.App
	Limiter        ratelimit.Limiter
	TrustedProxies []string
	CORSOrigins    []string
	// Alerter is optional; nil disables security alerts.
	Alerter *security.AuditAlerter
	// AccountRateLimitPerMinute sizes the in-memory limiter used when Limiter is nil.
	AccountRateLimitPerMinute int
}

// Server exposes the research API over HTTP.
type Server struct {
	app         *app.App
	mux         *http.ServeMux
	limiter     ratelimit.Limiter
	trusted     *util.TrustedProxies
	corsOrigins []string
	alerter     *security.AuditAlerter
}

// New constructs the server with routes configured.
func New(cfg Config) (*Server, error) {
	if cfg.App == nil {
		return nil, errors.New("app is required")
	}
	trusted, err := util.NewTrustedProxies(cfg.TrustedProxies)
	if err != nil {
		return nil, fmt.Errorf("parse trusted proxies: %w", err)
	}
	limiter := cfg.Limiter
	if limiter == nil {
		limit := cfg.AccountRateLimitPerMinute
		if limit <= 0 {
			limit = 10
		}
		limiter, err = ratelimit.NewMemoryFixedWindowLimiter(limit, time.Minute)
		if err != nil {
			return nil, fmt.Errorf("init rate limiter: %w", err)
		}
	}
	s := &Server{
		app:         cfg.App,
		mux:         http.NewServeMux(),
		limiter:     limiter,
		trusted:     trusted,
		corsOrigins: cfg.CORSOrigins,
		alerter:     cfg.Alerter,
	}
	s.routes()
	return s, nil
}

// Router returns the configured handler with the middleware chain applied.
func (s *Server) Router() http.Handler {
	return util.WithRequestID(util.WithRequestLog(util.WithSecurityHeaders(util.WithCORS(s.corsOrigins, s.mux))))
}

func (s *Server) routes() {
	s.mux.HandleFunc("/healthz", s.handleHealth)

	// accounts
	s.mux.HandleFunc("/api/user/register", s.handleRegister)
	s.mux.HandleFunc("/api/user/login", s.handleLogin)
	s.mux.HandleFunc("/api/user/forget-password/", s.handleForgotPassword)
	s.mux.HandleFunc("/api/user/ResetPassword", s.handleResetPassword)
	s.mux.Handle("/api/user/change-password", s.authenticated(s.handleChangePassword))
	s.mux.Handle("/api/user/profile-details", s.authenticated(s.handleProfile))
	s.mux.Handle("/api/user/update-profile", s.authenticated(s.handleUpdateProfile))
	s.mux.Handle("/api/user/UserId", s.authenticated(s.handleUserID))
	s.mux.Handle("/api/user/logout", s.authenticated(s.handleLogout))

	// search
	s.mux.Handle("/api/AiChat", s.authenticated(s.handleSearch))
	s.mux.Handle("/api/AiChat/history", s.authenticated(s.handleChatHistory))

	// research books
	s.mux.Handle("/api/ResearchBooks", s.authenticated(s.handleBooks))
	s.mux.Handle("/api/ResearchBooks/", s.authenticated(s.handleBookRoutes))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.app.Ready(r.Context()); err != nil {
		util.LoggerFromContext(r.Context()).Error("health check failed", "err", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// auth wrappers
type authHandler func(http.ResponseWriter, *http.Request, domain.User)

func (s *Server) authenticated(next authHandler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, ok := s.authorize(r)
		if !ok {
			writeError(w, http.StatusUnauthorized, "Unauthorized")
			return
		}
		next(w, r, user)
	})
}

func (s *Server) authorize(r *http.Request) (domain.User, bool) {
	token, ok := bearerToken(r)
	if !ok {
		s.audit(r, "token.verify", "fail", "reason", "missing_token")
		return domain.User{}, false
	}
	user, ok := s.app.UserFromToken(r.Context(), token)
	if !ok {
		s.audit(r, "token.verify", "fail", "reason", "invalid_or_revoked")
		return domain.User{}, false
	}
	return user, true
}

func bearerToken(r *http.Request) (string, bool) {
	authHeader := r.Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", false
	}
	token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer "))
	if token == "" {
		return "", false
	}
	return token, true
}

func (s *Server) audit(r *http.Request, event, outcome string, attrs ...any) {
	ip := util.ClientIP(r, s.trusted)
	logAttrs := []any{
		"event", event,
		"outcome", outcome,
		"path", r.URL.Path,
		"method", r.Method,
		"ip", ip,
	}
	logAttrs = append(logAttrs, attrs...)
	logger := util.LoggerFromContext(r.Context())
	if outcome == "success" {
		logger.Info("security_event", logAttrs...)
		return
	}
	logger.Warn("security_event", logAttrs...)

	result, err := s.alerter.Observe(r.Context(), event, outcome, ip)
	if err != nil {
		logger.Warn("security alert evaluation failed", "event", event, "err", err)
		return
	}
	if result.Triggered {
		logger.Error("security_alert",
			"event", event,
			"outcome", outcome,
			"ip", ip,
			"count", result.Count,
			"threshold", result.Rule.Threshold,
			"window", result.Rule.Window.String(),
		)
	}
}

func (s *Server) allowRate(w http.ResponseWriter, r *http.Request, name, msg string) bool {
	key := name + "|" + util.ClientIP(r, s.trusted)
	if s.limiter.Allow(r.Context(), key) {
		return true
	}
	w.Header().Set("Retry-After", "60")
	writeError(w, http.StatusTooManyRequests, msg)
	return false
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(io.LimitReader(r.Body, maxJSONBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func methodNotAllowed(w http.ResponseWriter) {
	writeError(w, http.StatusMethodNotAllowed, "method not allowed")
}
