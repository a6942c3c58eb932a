package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"legalgen/pkg/mail"
	"legalgen/pkg/storage"
	"legalgen/pkg/store"
)

const defaultMaxUploadBytes = 20 << 20

// Config holds runtime configuration for the core application.
type Config struct {
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string

	JWTSecret   string
	JWTLifetime time.Duration
	JWTIssuer   string
	JWTAudience string
	JWTLeeway   time.Duration

	ResetTokenTTL    time.Duration
	ResetPasswordURL string

	SMTP mail.SMTPConfig

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	MaxUploadBytes int64

	Logger *slog.Logger

	// Injected dependencies take precedence over the settings above.
	Store       store.Store
	Sessions    store.SessionStore
	ResetTokens store.ResetTokenStore
	Mailer      mail.Mailer
	Objects     storage.ObjectStore
	Now         func() time.Time
}

// App is the core application service wiring together storage, sessions,
// mail and attachment storage.
type App struct {
	store            store.Store
	sessions         store.SessionStore
	resetTokens      store.ResetTokenStore
	resetTTL         time.Duration
	resetPasswordURL string
	mailer           mail.Mailer
	objects          storage.ObjectStore
	maxUploadBytes   int64
	logger           *slog.Logger
	now              func() time.Time

	closers []func() error
}

// New constructs the application. Redis, SMTP and MinIO are optional: without
// them tokens and limits live in memory, mail is logged and attachments are
// disabled.
func New(cfg Config) (*App, error) {
	if cfg.JWTLifetime == 0 {
		cfg.JWTLifetime = time.Hour
	}
	if cfg.ResetTokenTTL == 0 {
		cfg.ResetTokenTTL = store.DefaultResetTokenTTL
	}
	if cfg.MaxUploadBytes == 0 {
		cfg.MaxUploadBytes = defaultMaxUploadBytes
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Now == nil {
		cfg.Now = func() time.Time { return time.Now().UTC() }
	}
	a := &App{
		resetTTL:         cfg.ResetTokenTTL,
		resetPasswordURL: strings.TrimSpace(cfg.ResetPasswordURL),
		maxUploadBytes:   cfg.MaxUploadBytes,
		logger:           cfg.Logger,
		now:              cfg.Now,
	}
	redisEnabled := strings.TrimSpace(cfg.RedisAddr) != ""

	a.store = cfg.Store
	if a.store == nil {
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("database URL required")
		}
		gs, err := store.NewGormStore(cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("init postgres store: %w", err)
		}
		a.store = gs
		a.closers = append(a.closers, gs.Close)
	}

	a.sessions = cfg.Sessions
	if a.sessions == nil {
		var revoker store.TokenRevoker
		if redisEnabled {
			rr := store.NewRedisTokenRevoker(cfg.RedisAddr, cfg.RedisPassword)
			a.closers = append(a.closers, rr.Close)
			revoker = rr
		} else {
			revoker = store.NewMemoryTokenRevoker()
		}
		sessions, err := store.NewJWTSessionStore(cfg.JWTSecret, cfg.JWTLifetime, revoker, store.JWTOptions{
			Issuer:   cfg.JWTIssuer,
			Audience: cfg.JWTAudience,
			Leeway:   cfg.JWTLeeway,
		})
		if err != nil {
			return nil, fmt.Errorf("init jwt session store: %w", err)
		}
		a.sessions = sessions
	}

	a.resetTokens = cfg.ResetTokens
	if a.resetTokens == nil {
		if redisEnabled {
			rs, err := store.NewRedisResetTokenStore(cfg.RedisAddr, cfg.RedisPassword, cfg.ResetTokenTTL)
			if err != nil {
				return nil, fmt.Errorf("init reset token store: %w", err)
			}
			a.closers = append(a.closers, rs.Close)
			a.resetTokens = rs
		} else {
			a.resetTokens = store.NewMemoryResetTokenStore(cfg.ResetTokenTTL)
		}
	}

	a.mailer = cfg.Mailer
	if a.mailer == nil {
		if strings.TrimSpace(cfg.SMTP.Host) != "" {
			m, err := mail.NewSMTPMailer(cfg.SMTP)
			if err != nil {
				return nil, fmt.Errorf("init smtp mailer: %w", err)
			}
			a.mailer = m
		} else {
			a.mailer = mail.LogMailer{Logger: cfg.Logger}
		}
	}

	a.objects = cfg.Objects
	if a.objects == nil && cfg.MinioEndpoint != "" {
		objects, err := storage.NewMinioStore(cfg.MinioEndpoint, cfg.MinioAccessKey, cfg.MinioSecretKey, cfg.MinioBucket, cfg.MinioUseSSL)
		if err != nil {
			return nil, fmt.Errorf("init minio: %w", err)
		}
		a.objects = objects
	}
	return a, nil
}

// Ready reports whether the backing store is reachable.
func (a *App) Ready(ctx context.Context) error {
	if p, ok := a.store.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Close releases connections opened by New.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
