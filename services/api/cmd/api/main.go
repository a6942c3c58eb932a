package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	"legalgen/internal/ratelimit"
	"legalgen/internal/util"
	"legalgen/pkg/mail"
	"legalgen/services/api/internal/app"
	"legalgen/services/api/internal/config"
	"legalgen/services/api/internal/security"
	"legalgen/services/api/internal/server"
)

const shutdownTimeout = 15 * time.Second

func main() {
	cfg, err := config.Load("")
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger := util.InitLogger(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("api server stopped", "err", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg config.FileConfig, logger *slog.Logger) error {
	jwtLifetime, err := config.ParseJWTLifetime(cfg.JWTLifetime)
	if err != nil {
		return err
	}
	jwtLeeway, err := config.ParseJWTLeeway(cfg.JWTLeeway)
	if err != nil {
		return err
	}
	resetTTL, err := config.ParseResetTokenTTL(cfg.ResetTokenTTL)
	if err != nil {
		return err
	}

	appCore, err := app.New(app.Config{
		DatabaseURL:      cfg.DatabaseURL,
		RedisAddr:        cfg.RedisAddr,
		RedisPassword:    cfg.RedisPassword,
		JWTSecret:        cfg.JWTSecret,
		JWTLifetime:      jwtLifetime,
		JWTIssuer:        cfg.JWTIssuer,
		JWTAudience:      cfg.JWTAudience,
		JWTLeeway:        jwtLeeway,
		ResetTokenTTL:    resetTTL,
		ResetPasswordURL: cfg.ResetPasswordURL,
		SMTP: mail.SMTPConfig{
			Host:        cfg.SMTPHost,
			Port:        cfg.SMTPPort,
			Username:    cfg.SMTPUsername,
			Password:    cfg.SMTPPassword,
			From:        cfg.SMTPFrom,
			ImplicitTLS: cfg.SMTPImplicitTLS,
		},
		MinioEndpoint:  cfg.MinioEndpoint,
		MinioAccessKey: cfg.MinioAccessKey,
		MinioSecretKey: cfg.MinioSecretKey,
		MinioBucket:    cfg.MinioBucket,
		MinioUseSSL:    cfg.MinioUseSSL,
		MaxUploadBytes: cfg.MaxUploadBytes,
		Logger:         logger,
	})
	if err != nil {
		return fmt.Errorf("init app: %w", err)
	}
	defer appCore.Close()
	if !cfg.SMTPEnabled() {
		logger.Warn("smtp not configured; account emails are logged only")
	}
	if !cfg.MinioEnabled() {
		logger.Warn("minio not configured; document uploads are disabled")
	}

	var limiter ratelimit.Limiter
	var alerter *security.AuditAlerter
	if cfg.RedisEnabled() {
		redisLimiter, err := ratelimit.NewRedisFixedWindowLimiter(cfg.RedisAddr, cfg.RedisPassword, "", cfg.AccountRateLimitPerMinute, time.Minute)
		if err != nil {
			return fmt.Errorf("init rate limiter: %w", err)
		}
		defer redisLimiter.Close()
		limiter = redisLimiter
		alerter = security.NewAuditAlerter(cfg.RedisAddr, cfg.RedisPassword, "")
		defer alerter.Close()
	}
	httpServer, err := server.New(server.Config{
		App:                       appCore,
		Limiter:                   limiter,
		TrustedProxies:            cfg.TrustedProxies,
		CORSOrigins:               cfg.CORSOrigins,
		Alerter:                   alerter,
		AccountRateLimitPerMinute: cfg.AccountRateLimitPerMinute,
	})
	if err != nil {
		return fmt.Errorf("init server: %w", err)
	}

	addr := ":" + cfg.Port
	srv := &http.Server{
		Addr:         addr,
		Handler:      httpServer.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("api server listening", "addr", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		logger.Info("api server shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
