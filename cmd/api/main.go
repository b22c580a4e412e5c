package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/njprem/OrgAuth_BackEnd/internal/config"
	"github.com/njprem/OrgAuth_BackEnd/internal/logging"
	"github.com/njprem/OrgAuth_BackEnd/internal/repository/memory"
	"github.com/njprem/OrgAuth_BackEnd/internal/repository/ports"
	"github.com/njprem/OrgAuth_BackEnd/internal/repository/postgres"
	"github.com/njprem/OrgAuth_BackEnd/internal/service"
	"github.com/njprem/OrgAuth_BackEnd/internal/transport/captcha"
	transporthttp "github.com/njprem/OrgAuth_BackEnd/internal/transport/http"
	"github.com/njprem/OrgAuth_BackEnd/internal/transport/mail"
	"github.com/njprem/OrgAuth_BackEnd/internal/util"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg := config.Load()

	logger, logCloser, err := logging.New(logging.Options{
		Environment:  cfg.Environment,
		Level:        cfg.LogLevel,
		LogstashAddr: cfg.LogstashTCPAddr,
	})
	if err != nil {
		panic(err)
	}
	defer logCloser.Close()
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	accounts, closeStore, err := openStore(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("open store", zap.Error(err))
	}
	defer closeStore()

	mailer, err := mail.NewAccountMailer(mail.Config{
		Host:            cfg.SMTPHost,
		Port:            cfg.SMTPPort,
		Username:        cfg.SMTPUsername,
		Password:        cfg.SMTPPassword,
		From:            cfg.SMTPFrom,
		SenderName:      cfg.SMTPSenderName,
		FrontendURL:     cfg.FrontendURL,
		BackendURL:      cfg.BackendURL,
		VerificationTTL: cfg.EmailVerificationTTL,
		ResetTTL:        cfg.PasswordResetTTL,
	}, logger)
	if err != nil {
		logger.Fatal("configure mailer", zap.Error(err))
	}

	// A nil *captcha.Verifier must not reach the interface.
	var verifier service.CaptchaVerifier
	if cfg.CaptchaSecret != "" {
		verifier = captcha.NewVerifier(cfg.CaptchaSecret, cfg.CaptchaVerifyURL, nil, logger)
	}

	authService := service.NewAuthService(
		accounts,
		mailer,
		verifier,
		util.NewJWTManager(cfg.JWTAccessSecret, cfg.AccessTokenTTL),
		util.NewJWTManager(cfg.JWTRefreshSecret, cfg.RefreshTokenTTL),
		cfg.EmailVerificationTTL,
		cfg.PasswordResetTTL,
		logger,
	)

	e := transporthttp.NewRouter(cfg.AllowOrigins, logger)
	transporthttp.RegisterAuth(e, authService, transporthttp.AuthRoutesConfig{
		FrontendURL:    cfg.FrontendURL,
		InternalAPIKey: cfg.InternalAPIKey,
		CookieSecure:   cfg.CookieSecure,
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
	}, logger)
	if err := transporthttp.RegisterSwagger(e, transporthttp.DefaultSwaggerSpec, logger); err != nil {
		logger.Warn("swagger ui disabled", zap.Error(err))
	}

	go func() {
		logger.Info("api listening", zap.String("port", cfg.Port), zap.Bool("captcha", verifier != nil))
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server stopped", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown", zap.Error(err))
	}
}

func openStore(ctx context.Context, cfg config.Config, logger *zap.Logger) (ports.AccountRepository, func(), error) {
	if cfg.DatabaseDriver == config.DriverInMemory {
		logger.Warn("using in-memory account store; data is lost on restart")
		return memory.NewAccountRepo(), func() {}, nil
	}

	db, err := postgres.New(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return nil, nil, err
	}
	if cfg.AutoMigrate {
		if err := postgres.Migrate(ctx, db); err != nil {
			db.Close()
			return nil, nil, err
		}
		logger.Info("schema applied")
	}
	logger.Info("database connected", zap.String("driver", cfg.DatabaseDriver))
	return postgres.NewAccountRepo(db), func() { db.Close() }, nil
}
