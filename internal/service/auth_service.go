package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/njprem/OrgAuth_BackEnd/internal/domain"
	"github.com/njprem/OrgAuth_BackEnd/internal/repository/ports"
	"github.com/njprem/OrgAuth_BackEnd/internal/util"
)

var (
	ErrPasswordMismatch   = errors.New("Passwords do not match")
	ErrPasswordTooWeak    = errors.New("password does not meet requirements")
	ErrEmailAlreadyUsed   = errors.New("Email already registered")
	ErrInvalidCredentials = errors.New("Invalid credentials")
	ErrEmailNotVerified   = errors.New("Please verify your email before logging in.")
	ErrInvalidToken       = errors.New("Invalid or expired token")
	ErrCaptchaFailed      = errors.New("Captcha verification failed")
)

// AccountStatusError is returned by Login when the account is not active.
type AccountStatusError struct {
	Status domain.AccountStatus
}

func (e *AccountStatusError) Error() string {
	return fmt.Sprintf("Your account is %s. Contact admin.", e.Status)
}

// AccountMailer delivers the one-shot links embedded in verification and reset emails.
type AccountMailer interface {
	SendVerification(ctx context.Context, email, token string) error
	SendPasswordReset(ctx context.Context, email, token string) error
}

// CaptchaVerifier checks a client-supplied CAPTCHA response.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) (bool, error)
}

type AuthService struct {
	accounts        ports.AccountRepository
	mailer          AccountMailer
	captcha         CaptchaVerifier
	access          *util.JWTManager
	refresh         *util.JWTManager
	verificationTTL time.Duration
	resetTTL        time.Duration
	logger          *zap.Logger
	now             func() time.Time
}

type RegisterInput struct {
	OrganisationName string
	OrganisationSize string
	OrganisationType string
	Representative   string
	Designation      string
	CompanyEmail     string
	Password         string
	ConfirmPassword  string
	Mobile           string
}

type LoginInput struct {
	CompanyEmail string
	Password     string
	CaptchaToken string
	RemoteIP     string
}

type LoginResult struct {
	Account          *domain.Account
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// NewAuthService wires the credential lifecycle. captcha may be nil, in which
// case login accepts the captcha field unverified. A zero TTL stores tokens
// without an expiry.
func NewAuthService(accounts ports.AccountRepository, mailer AccountMailer, captcha CaptchaVerifier, access, refresh *util.JWTManager, verificationTTL, resetTTL time.Duration, logger *zap.Logger) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AuthService{
		accounts:        accounts,
		mailer:          mailer,
		captcha:         captcha,
		access:          access,
		refresh:         refresh,
		verificationTTL: verificationTTL,
		resetTTL:        resetTTL,
		logger:          logger.Named("auth"),
		now:             time.Now,
	}
}

func (s *AuthService) Register(ctx context.Context, in RegisterInput) (*domain.Account, error) {
	if in.Password != in.ConfirmPassword {
		return nil, ErrPasswordMismatch
	}
	if err := util.ValidatePassword(in.Password); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrPasswordTooWeak, err)
	}

	email := normalizeEmail(in.CompanyEmail)
	if _, err := s.accounts.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailAlreadyUsed
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("lookup account: %w", err)
	}

	hash, err := util.HashPassword(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	token, err := util.NewOpaqueToken()
	if err != nil {
		return nil, fmt.Errorf("generate verification token: %w", err)
	}

	account, err := s.accounts.Create(ctx, domain.NewAccount{
		OrganisationName:           strings.TrimSpace(in.OrganisationName),
		OrganisationSize:           strings.TrimSpace(in.OrganisationSize),
		OrganisationType:           strings.TrimSpace(in.OrganisationType),
		Representative:             strings.TrimSpace(in.Representative),
		Designation:                strings.TrimSpace(in.Designation),
		CompanyEmail:               email,
		Mobile:                     strings.TrimSpace(in.Mobile),
		PasswordHash:               hash,
		VerificationToken:          token,
		VerificationTokenExpiresAt: s.expiry(s.verificationTTL),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrEmailAlreadyUsed
		}
		return nil, fmt.Errorf("create account: %w", err)
	}

	if err := s.mailer.SendVerification(ctx, email, token); err != nil {
		s.logger.Error("send verification email", zap.String("account_id", account.ID.String()), zap.Error(err))
		return nil, fmt.Errorf("send verification email: %w", err)
	}

	s.logger.Info("account registered", zap.String("account_id", account.ID.String()))
	return account, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.Account, error) {
	token = strings.TrimSpace(token)
	if !util.ValidOpaqueToken(token) {
		return nil, ErrInvalidToken
	}
	account, err := s.accounts.ConsumeVerificationToken(ctx, token, s.now())
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidToken
		}
		return nil, fmt.Errorf("consume verification token: %w", err)
	}
	s.logger.Info("email verified", zap.String("account_id", account.ID.String()))
	return account, nil
}

func (s *AuthService) Login(ctx context.Context, in LoginInput) (*LoginResult, error) {
	if s.captcha != nil {
		ok, err := s.captcha.Verify(ctx, in.CaptchaToken, in.RemoteIP)
		if err != nil {
			return nil, fmt.Errorf("verify captcha: %w", err)
		}
		if !ok {
			return nil, ErrCaptchaFailed
		}
	}

	account, err := s.checkCredentials(ctx, in.CompanyEmail, in.Password)
	if err != nil {
		return nil, err
	}
	if !account.IsActive() {
		return nil, &AccountStatusError{Status: account.AccountStatus}
	}
	if !account.IsVerified {
		return nil, ErrEmailNotVerified
	}

	result, err := s.issueAccess(account)
	if err != nil {
		return nil, err
	}
	result.RefreshToken, result.RefreshExpiresAt, err = s.refresh.Generate(account.ID, account.CompanyEmail)
	if err != nil {
		return nil, fmt.Errorf("sign refresh token: %w", err)
	}

	if err := s.accounts.Touch(ctx, account.ID); err != nil {
		return nil, fmt.Errorf("touch account: %w", err)
	}
	return result, nil
}

// InternalLogin serves trusted callers already vetted by the shared key; it
// skips status and verification checks and issues only an access token.
func (s *AuthService) InternalLogin(ctx context.Context, email, password string) (*LoginResult, error) {
	account, err := s.checkCredentials(ctx, email, password)
	if err != nil {
		return nil, err
	}
	return s.issueAccess(account)
}

// RequestPasswordReset returns nil for unknown emails so callers cannot tell them apart.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	account, err := s.accounts.FindByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("lookup account: %w", err)
	}

	token, err := util.NewOpaqueToken()
	if err != nil {
		return fmt.Errorf("generate reset token: %w", err)
	}
	if err := s.accounts.SetResetToken(ctx, account.ID, token, s.expiry(s.resetTTL)); err != nil {
		return fmt.Errorf("store reset token: %w", err)
	}

	if err := s.mailer.SendPasswordReset(ctx, account.CompanyEmail, token); err != nil {
		s.logger.Error("send password reset email", zap.String("account_id", account.ID.String()), zap.Error(err))
		return fmt.Errorf("send password reset email: %w", err)
	}
	return nil
}

func (s *AuthService) ResetPassword(ctx context.Context, token, password string) error {
	token = strings.TrimSpace(token)
	if !util.ValidOpaqueToken(token) {
		return ErrInvalidToken
	}
	if err := util.ValidatePassword(password); err != nil {
		return fmt.Errorf("%w: %w", ErrPasswordTooWeak, err)
	}

	hash, err := util.HashPassword(password)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	account, err := s.accounts.ConsumeResetToken(ctx, token, hash, s.now())
	if err != nil {
		if isNotFound(err) {
			return ErrInvalidToken
		}
		return fmt.Errorf("consume reset token: %w", err)
	}
	s.logger.Info("password reset", zap.String("account_id", account.ID.String()))
	return nil
}

// Authenticate resolves a bearer access token to its account.
func (s *AuthService) Authenticate(ctx context.Context, accessToken string) (*domain.Account, error) {
	claims, err := s.access.Parse(accessToken)
	if err != nil {
		return nil, errors.New("invalid or expired token")
	}
	account, err := s.accounts.FindByID(ctx, claims.AccountID)
	if err != nil {
		if isNotFound(err) {
			return nil, errors.New("account not found")
		}
		return nil, err
	}
	return account, nil
}

// RefreshTTL is the cookie lifetime for refresh tokens.
func (s *AuthService) RefreshTTL() time.Duration {
	return s.refresh.TTL()
}

func (s *AuthService) checkCredentials(ctx context.Context, email, password string) (*domain.Account, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}
	account, err := s.accounts.FindByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup account: %w", err)
	}
	if !util.VerifyPassword(password, account.PasswordHash) {
		return nil, ErrInvalidCredentials
	}
	return account, nil
}

func (s *AuthService) issueAccess(account *domain.Account) (*LoginResult, error) {
	token, expiresAt, err := s.access.Generate(account.ID, account.CompanyEmail)
	if err != nil {
		return nil, fmt.Errorf("sign access token: %w", err)
	}
	return &LoginResult{Account: account, AccessToken: token, AccessExpiresAt: expiresAt}, nil
}

func (s *AuthService) expiry(ttl time.Duration) *time.Time {
	if ttl <= 0 {
		return nil
	}
	t := s.now().Add(ttl)
	return &t
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func isNotFound(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
