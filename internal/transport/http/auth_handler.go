package http

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/njprem/OrgAuth_BackEnd/internal/service"
	"github.com/njprem/OrgAuth_BackEnd/internal/util"
)

const (
	refreshCookieName = "refreshToken"
	msgServerError    = "Server error"
)

type AuthRoutesConfig struct {
	FrontendURL    string
	InternalAPIKey string
	CookieSecure   bool
	// RateLimitRPS of zero disables rate limiting.
	RateLimitRPS   float64
	RateLimitBurst int
}

type authHandler struct {
	svc    *service.AuthService
	cfg    AuthRoutesConfig
	logger *zap.Logger
}

func RegisterAuth(e *echo.Echo, svc *service.AuthService, cfg AuthRoutesConfig, logger *zap.Logger) {
	if logger == nil {
		logger = zap.NewNop()
	}
	cfg.FrontendURL = strings.TrimRight(cfg.FrontendURL, "/")
	h := &authHandler{svc: svc, cfg: cfg, logger: logger.Named("http.auth")}

	limited := credentialRateLimit(cfg.RateLimitRPS, cfg.RateLimitBurst)

	g := e.Group("/api/auth")
	g.POST("/register", h.register)
	g.GET("/verify-email", h.verifyEmail)
	g.POST("/login", h.login, limited...)
	g.POST("/internal-login", h.internalLogin, append(limited, RequireInternalKey(cfg.InternalAPIKey))...)
	g.POST("/logout", h.logout)
	g.POST("/forgot-password", h.forgotPassword, limited...)
	g.POST("/reset-password", h.resetPassword, limited...)
	g.GET("/me", h.me, RequireAuth(svc))
}

func credentialRateLimit(rps float64, burst int) []echo.MiddlewareFunc {
	if rps <= 0 {
		return nil
	}
	if burst <= 0 {
		burst = int(rps) + 1
	}
	store := middleware.NewRateLimiterMemoryStoreWithConfig(middleware.RateLimiterMemoryStoreConfig{
		Rate:      rate.Limit(rps),
		Burst:     burst,
		ExpiresIn: 3 * time.Minute,
	})
	return []echo.MiddlewareFunc{middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: store,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, util.Error("Unable to identify client"))
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, util.Error("Too many requests"))
		},
	})}
}

// register godoc
// @Summary Register an organisation account
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body RegisterRequest true "Registration form"
// @Success 201 {object} MessageResponse
// @Failure 400 {object} MessageResponse
// @Failure 500 {object} MessageResponse
// @Router /api/auth/register [post]
func (h *authHandler) register(c echo.Context) error {
	var req RegisterRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(validationMessage(err)))
	}

	_, err := h.svc.Register(c.Request().Context(), service.RegisterInput{
		OrganisationName: req.OrganisationName,
		OrganisationSize: req.OrganisationSize,
		OrganisationType: req.OrganisationType,
		Representative:   req.Representative,
		Designation:      req.Designation,
		CompanyEmail:     req.CompanyEmail,
		Password:         req.Password,
		ConfirmPassword:  req.ConfirmPassword,
		Mobile:           req.Mobile,
	})
	switch {
	case err == nil:
		return c.JSON(http.StatusCreated, util.Message("Registration successful. Please verify your email."))
	case errors.Is(err, service.ErrPasswordMismatch), errors.Is(err, service.ErrEmailAlreadyUsed):
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	case errors.Is(err, service.ErrPasswordTooWeak):
		return c.JSON(http.StatusBadRequest, util.Error(policyMessage(err)))
	default:
		return h.serverError(c, "register", err)
	}
}

// verifyEmail godoc
// @Summary Confirm an email address
// @Tags auth
// @Produce plain
// @Param token query string true "Verification token"
// @Success 302
// @Failure 400 {string} string "Invalid token"
// @Router /api/auth/verify-email [get]
func (h *authHandler) verifyEmail(c echo.Context) error {
	token := strings.TrimSpace(c.QueryParam("token"))
	if token == "" {
		return c.String(http.StatusBadRequest, "Invalid token")
	}
	_, err := h.svc.VerifyEmail(c.Request().Context(), token)
	if err != nil {
		if errors.Is(err, service.ErrInvalidToken) {
			return c.String(http.StatusBadRequest, "Invalid token")
		}
		h.logger.Error("verify email", zap.Error(err))
		return c.String(http.StatusInternalServerError, msgServerError)
	}
	return c.Redirect(http.StatusFound, h.cfg.FrontendURL+"/email-verified")
}

// login godoc
// @Summary Log in with company email and password
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body LoginRequest true "Credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} MessageResponse
// @Failure 403 {object} MessageResponse
// @Failure 429 {object} MessageResponse
// @Router /api/auth/login [post]
func (h *authHandler) login(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("Invalid request body"))
	}

	result, err := h.svc.Login(c.Request().Context(), service.LoginInput{
		CompanyEmail: req.CompanyEmail,
		Password:     req.Password,
		CaptchaToken: req.CaptchaToken,
		RemoteIP:     c.RealIP(),
	})
	if err != nil {
		var statusErr *service.AccountStatusError
		switch {
		case errors.Is(err, service.ErrInvalidCredentials), errors.Is(err, service.ErrCaptchaFailed):
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		case errors.As(err, &statusErr), errors.Is(err, service.ErrEmailNotVerified):
			return c.JSON(http.StatusForbidden, util.Error(err.Error()))
		default:
			return h.serverError(c, "login", err)
		}
	}

	c.SetCookie(h.refreshCookie(result.RefreshToken, result.RefreshExpiresAt))
	return c.JSON(http.StatusOK, TokenResponse{AccessToken: result.AccessToken})
}

// internalLogin godoc
// @Summary Service-to-service login
// @Tags auth
// @Accept json
// @Produce json
// @Param x-internal-api-key header string true "Shared internal key"
// @Param payload body LoginRequest true "Credentials"
// @Success 200 {object} TokenResponse
// @Failure 400 {object} MessageResponse
// @Failure 403 {object} MessageResponse
// @Router /api/auth/internal-login [post]
func (h *authHandler) internalLogin(c echo.Context) error {
	var req LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("Invalid request body"))
	}
	result, err := h.svc.InternalLogin(c.Request().Context(), req.CompanyEmail, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
		}
		return h.serverError(c, "internal login", err)
	}
	return c.JSON(http.StatusOK, TokenResponse{AccessToken: result.AccessToken})
}

// logout godoc
// @Summary Clear the refresh cookie
// @Tags auth
// @Produce json
// @Success 200 {object} MessageResponse
// @Router /api/auth/logout [post]
func (h *authHandler) logout(c echo.Context) error {
	cookie := h.refreshCookie("", time.Unix(0, 0))
	cookie.MaxAge = -1
	c.SetCookie(cookie)
	return c.JSON(http.StatusOK, util.Message("Logged out successfully"))
}

// forgotPassword godoc
// @Summary Email a password reset link
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body ForgotPasswordRequest true "Account email"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} MessageResponse
// @Router /api/auth/forgot-password [post]
func (h *authHandler) forgotPassword(c echo.Context) error {
	var req ForgotPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("Invalid request body"))
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error(validationMessage(err)))
	}
	if err := h.svc.RequestPasswordReset(c.Request().Context(), req.CompanyEmail); err != nil {
		return h.serverError(c, "forgot password", err)
	}
	return c.JSON(http.StatusOK, util.Message("If a user exists, a reset email was sent"))
}

// resetPassword godoc
// @Summary Set a new password with a reset token
// @Tags auth
// @Accept json
// @Produce json
// @Param payload body ResetPasswordRequest true "Token and new password"
// @Success 200 {object} MessageResponse
// @Failure 400 {object} MessageResponse
// @Router /api/auth/reset-password [post]
func (h *authHandler) resetPassword(c echo.Context) error {
	var req ResetPasswordRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, util.Error("Invalid request body"))
	}
	err := h.svc.ResetPassword(c.Request().Context(), req.Token, req.Password)
	switch {
	case err == nil:
		return c.JSON(http.StatusOK, util.Message("Password reset successful"))
	case errors.Is(err, service.ErrInvalidToken):
		return c.JSON(http.StatusBadRequest, util.Error(err.Error()))
	case errors.Is(err, service.ErrPasswordTooWeak):
		return c.JSON(http.StatusBadRequest, util.Error(policyMessage(err)))
	default:
		return h.serverError(c, "reset password", err)
	}
}

// me godoc
// @Summary Current account
// @Tags auth
// @Produce json
// @Security BearerAuth
// @Success 200 {object} AccountResponse
// @Failure 401 {object} MessageResponse
// @Router /api/auth/me [get]
func (h *authHandler) me(c echo.Context) error {
	account, ok := CurrentAccount(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, util.Error("authentication required"))
	}
	return c.JSON(http.StatusOK, AccountResponse{Account: account})
}

func (h *authHandler) refreshCookie(value string, expires time.Time) *http.Cookie {
	return &http.Cookie{
		Name:     refreshCookieName,
		Value:    value,
		Path:     "/",
		Expires:  expires,
		MaxAge:   int(h.svc.RefreshTTL().Seconds()),
		HttpOnly: true,
		Secure:   h.cfg.CookieSecure,
		SameSite: http.SameSiteStrictMode,
	}
}

func (h *authHandler) serverError(c echo.Context, op string, err error) error {
	h.logger.Error(op, zap.Error(err))
	return c.JSON(http.StatusInternalServerError, util.Error(msgServerError))
}

// policyMessage picks the specific password rule out of a wrapped ErrPasswordTooWeak.
func policyMessage(err error) string {
	var multi interface{ Unwrap() []error }
	if errors.As(err, &multi) {
		for _, inner := range multi.Unwrap() {
			if !errors.Is(inner, service.ErrPasswordTooWeak) {
				return inner.Error()
			}
		}
	}
	return err.Error()
}
