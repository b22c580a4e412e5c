package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/njprem/OrgAuth_BackEnd/internal/domain"
	"github.com/njprem/OrgAuth_BackEnd/internal/repository/memory"
	"github.com/njprem/OrgAuth_BackEnd/internal/service"
	"github.com/njprem/OrgAuth_BackEnd/internal/util"
)

const (
	testAccessSecret = "access-secret"
	testInternalKey  = "internal-key"
	testFrontend     = "http://app.test"
	testPassword     = "Aa1!aaaa"
)

type recordingMailer struct {
	mu            sync.Mutex
	verifications map[string]string
	resets        map[string]string
	err           error
}

func newRecordingMailer() *recordingMailer {
	return &recordingMailer{verifications: map[string]string{}, resets: map[string]string{}}
}

func (m *recordingMailer) SendVerification(ctx context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.verifications[email] = token
	return m.err
}

func (m *recordingMailer) SendPasswordReset(ctx context.Context, email, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.resets[email] = token
	return m.err
}

type testServer struct {
	e      *echo.Echo
	repo   *memory.AccountRepository
	mailer *recordingMailer
}

func newTestServer(t *testing.T, cfg AuthRoutesConfig) *testServer {
	t.Helper()
	repo := memory.NewAccountRepo()
	mailer := newRecordingMailer()
	svc := service.NewAuthService(repo, mailer, nil,
		util.NewJWTManager(testAccessSecret, 15*time.Minute),
		util.NewJWTManager("refresh-secret", 7*24*time.Hour),
		time.Hour, time.Hour, nil)

	if cfg.FrontendURL == "" {
		cfg.FrontendURL = testFrontend
	}
	if cfg.InternalAPIKey == "" {
		cfg.InternalAPIKey = testInternalKey
	}
	e := NewRouter([]string{testFrontend}, nil)
	RegisterAuth(e, svc, cfg, nil)
	return &testServer{e: e, repo: repo, mailer: mailer}
}

func (s *testServer) do(method, target string, body any, headers map[string]string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	switch b := body.(type) {
	case nil:
		reader = strings.NewReader("")
	case string:
		reader = strings.NewReader(b)
	default:
		buf, _ := json.Marshal(b)
		reader = strings.NewReader(string(buf))
	}
	req := httptest.NewRequest(method, target, reader)
	if body != nil {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	s.e.ServeHTTP(rec, req)
	return rec
}

func registration(email string) map[string]string {
	return map[string]string{
		"organisationName": "Acme",
		"organisationSize": "11-50",
		"organisationType": "Private",
		"representative":   "Jo Doe",
		"designation":      "CTO",
		"companyEmail":     email,
		"password":         testPassword,
		"confirmPassword":  testPassword,
		"mobile":           "+10000000000",
	}
}

func messageOf(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body), rec.Body.String())
	msg, _ := body["message"].(string)
	return msg
}

func (s *testServer) registerVerified(t *testing.T, email string) {
	t.Helper()
	rec := s.do(http.MethodPost, "/api/auth/register", registration(email), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	token := s.mailer.verifications[email]
	require.NotEmpty(t, token)
	rec = s.do(http.MethodGet, "/api/auth/verify-email?token="+url.QueryEscape(token), nil, nil)
	require.Equal(t, http.StatusFound, rec.Code)
}

func refreshCookieFrom(rec *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range rec.Result().Cookies() {
		if c.Name == refreshCookieName {
			return c
		}
	}
	return nil
}

func TestRegister(t *testing.T) {
	s := newTestServer(t, AuthRoutesConfig{})

	rec := s.do(http.MethodPost, "/api/auth/register", registration("acme@co.test"), nil)
	assert.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "Registration successful. Please verify your email.", messageOf(t, rec))
	assert.Equal(t, noStoreValue, rec.Header().Get("Cache-Control"))
	assert.Equal(t, 1, s.repo.Len())
	assert.NotEmpty(t, s.mailer.verifications["acme@co.test"])

	t.Run("duplicate email", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/register", registration("acme@co.test"), nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Email already registered", messageOf(t, rec))
		assert.Equal(t, 1, s.repo.Len())
	})
}

func TestRegisterRejections(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(map[string]string)
		message string
	}{
		{
			name:    "password mismatch",
			mutate:  func(m map[string]string) { m["confirmPassword"] = "Aa1!aaab" },
			message: "Passwords do not match",
		},
		{
			name:    "weak password",
			mutate:  func(m map[string]string) { m["password"], m["confirmPassword"] = "aa1!aaaa", "aa1!aaaa" },
			message: util.ErrPasswordNoUpper.Error(),
		},
		{
			name:    "invalid email",
			mutate:  func(m map[string]string) { m["companyEmail"] = "not-an-email" },
			message: "companyEmail must be a valid email address",
		},
		{
			name:    "missing organisation",
			mutate:  func(m map[string]string) { delete(m, "organisationName") },
			message: "organisationName is required",
		},
		{
			name: "password longer than bcrypt accepts",
			mutate: func(m map[string]string) {
				long := "Aa1!" + strings.Repeat("a", 80)
				m["password"], m["confirmPassword"] = long, long
			},
			message: util.ErrPasswordLong.Error(),
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			s := newTestServer(t, AuthRoutesConfig{})
			body := registration("acme@co.test")
			tc.mutate(body)

			rec := s.do(http.MethodPost, "/api/auth/register", body, nil)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, tc.message, messageOf(t, rec))
			assert.Zero(t, s.repo.Len())
			assert.Empty(t, s.mailer.verifications)
		})
	}

	t.Run("malformed json", func(t *testing.T) {
		s := newTestServer(t, AuthRoutesConfig{})
		rec := s.do(http.MethodPost, "/api/auth/register", `{"companyEmail":`, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestRegisterMailFailure(t *testing.T) {
	s := newTestServer(t, AuthRoutesConfig{})
	s.mailer.err = assert.AnError

	rec := s.do(http.MethodPost, "/api/auth/register", registration("acme@co.test"), nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "Server error", messageOf(t, rec))
}

func TestVerifyEmail(t *testing.T) {
	s := newTestServer(t, AuthRoutesConfig{FrontendURL: "http://app.test/"})
	s.do(http.MethodPost, "/api/auth/register", registration("acme@co.test"), nil)
	token := s.mailer.verifications["acme@co.test"]

	rec := s.do(http.MethodGet, "/api/auth/verify-email?token="+url.QueryEscape(token), nil, nil)
	assert.Equal(t, http.StatusFound, rec.Code)
	assert.Equal(t, "http://app.test/email-verified", rec.Header().Get(echo.HeaderLocation))

	rec = s.do(http.MethodGet, "/api/auth/verify-email?token="+url.QueryEscape(token), nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid token", rec.Body.String())

	rec = s.do(http.MethodGet, "/api/auth/verify-email", nil, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid token", rec.Body.String())
}

func TestLogin(t *testing.T) {
	s := newTestServer(t, AuthRoutesConfig{})
	s.registerVerified(t, "acme@co.test")

	rec := s.do(http.MethodPost, "/api/auth/login", map[string]string{
		"companyEmail": "acme@co.test",
		"password":     testPassword,
		"captchaToken": "ignored",
	}, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var body TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.NotEmpty(t, body.AccessToken)

	claims := jwt.MapClaims{}
	_, err := jwt.ParseWithClaims(body.AccessToken, claims, func(*jwt.Token) (any, error) {
		return []byte(testAccessSecret), nil
	})
	require.NoError(t, err)
	assert.Equal(t, "acme@co.test", claims["email"])
	assert.NotEmpty(t, claims["id"])
	exp, err := claims.GetExpirationTime()
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), exp.Time, time.Minute)

	cookie := refreshCookieFrom(rec)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.False(t, cookie.Secure)
	assert.Equal(t, 7*24*60*60, cookie.MaxAge)
	assert.NotEmpty(t, cookie.Value)
}

func TestLoginSecureCookie(t *testing.T) {
	s := newTestServer(t, AuthRoutesConfig{CookieSecure: true})
	s.registerVerified(t, "acme@co.test")

	rec := s.do(http.MethodPost, "/api/auth/login", map[string]string{"companyEmail": "acme@co.test", "password": testPassword}, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, refreshCookieFrom(rec))
	assert.True(t, refreshCookieFrom(rec).Secure)
}

func TestLoginFailures(t *testing.T) {
	s := newTestServer(t, AuthRoutesConfig{})
	s.registerVerified(t, "acme@co.test")
	s.do(http.MethodPost, "/api/auth/register", registration("pending@co.test"), nil)

	unknown := s.do(http.MethodPost, "/api/auth/login", map[string]string{"companyEmail": "none@co.test", "password": testPassword}, nil)
	wrong := s.do(http.MethodPost, "/api/auth/login", map[string]string{"companyEmail": "acme@co.test", "password": "Aa1!aaab"}, nil)

	assert.Equal(t, http.StatusBadRequest, unknown.Code)
	assert.Equal(t, http.StatusBadRequest, wrong.Code)
	assert.Equal(t, "Invalid credentials", messageOf(t, unknown))
	assert.Equal(t, unknown.Body.String(), wrong.Body.String(), "responses must not reveal which check failed")
	assert.Nil(t, refreshCookieFrom(wrong))

	rec := s.do(http.MethodPost, "/api/auth/login", map[string]string{"companyEmail": "pending@co.test", "password": testPassword}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Please verify your email before logging in.", messageOf(t, rec))

	account, err := s.repo.FindByEmail(context.Background(), "acme@co.test")
	require.NoError(t, err)
	s.repo.SetStatus(account.ID, domain.AccountStatusSuspended)
	rec = s.do(http.MethodPost, "/api/auth/login", map[string]string{"companyEmail": "acme@co.test", "password": testPassword}, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	assert.Equal(t, "Your account is suspended. Contact admin.", messageOf(t, rec))
}

func TestInternalLogin(t *testing.T) {
	s := newTestServer(t, AuthRoutesConfig{})
	s.do(http.MethodPost, "/api/auth/register", registration("acme@co.test"), nil)
	creds := map[string]string{"companyEmail": "acme@co.test", "password": testPassword}

	t.Run("missing key", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/internal-login", creds, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Forbidden: Invalid API Key", messageOf(t, rec))
	})

	t.Run("wrong key", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/internal-login", creds, map[string]string{headerInternalAPIKey: "nope"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("wrong key and wrong password", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/internal-login",
			map[string]string{"companyEmail": "acme@co.test", "password": "x"},
			map[string]string{headerInternalAPIKey: "nope"})
		assert.Equal(t, http.StatusForbidden, rec.Code)
		assert.Equal(t, "Forbidden: Invalid API Key", messageOf(t, rec))
	})

	t.Run("missing key and unknown account", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/internal-login",
			map[string]string{"companyEmail": "none@co.test", "password": testPassword}, nil)
		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("valid key skips verification", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/internal-login", creds, map[string]string{headerInternalAPIKey: testInternalKey})
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var body TokenResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.NotEmpty(t, body.AccessToken)
		assert.Nil(t, refreshCookieFrom(rec))
	})

	t.Run("bad password", func(t *testing.T) {
		rec := s.do(http.MethodPost, "/api/auth/internal-login",
			map[string]string{"companyEmail": "acme@co.test", "password": "x"},
			map[string]string{headerInternalAPIKey: testInternalKey})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "Invalid credentials", messageOf(t, rec))
	})
}

func TestLogout(t *testing.T) {
	s := newTestServer(t, AuthRoutesConfig{})

	rec := s.do(http.MethodPost, "/api/auth/logout", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Logged out successfully", messageOf(t, rec))
	cookie := refreshCookieFrom(rec)
	require.NotNil(t, cookie)
	assert.Empty(t, cookie.Value)
	assert.True(t, cookie.MaxAge < 0)
	assert.True(t, cookie.HttpOnly)
}

func TestForgotAndResetPassword(t *testing.T) {
	s := newTestServer(t, AuthRoutesConfig{})
	s.registerVerified(t, "acme@co.test")

	unknown := s.do(http.MethodPost, "/api/auth/forgot-password", map[string]string{"companyEmail": "none@co.test"}, nil)
	known := s.do(http.MethodPost, "/api/auth/forgot-password", map[string]string{"companyEmail": "acme@co.test"}, nil)
	assert.Equal(t, http.StatusOK, unknown.Code)
	assert.Equal(t, unknown.Code, known.Code)
	assert.Equal(t, unknown.Body.String(), known.Body.String())
	assert.Equal(t, "If a user exists, a reset email was sent", messageOf(t, known))
	assert.NotContains(t, s.mailer.resets, "none@co.test")

	token := s.mailer.resets["acme@co.test"]
	require.NotEmpty(t, token)

	rec := s.do(http.MethodPost, "/api/auth/reset-password", map[string]string{"token": token, "password": "short"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, util.ErrPasswordShort.Error(), messageOf(t, rec))

	rec = s.do(http.MethodPost, "/api/auth/reset-password", map[string]string{"token": token, "password": "Bb2@bbbb"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Password reset successful", messageOf(t, rec))

	rec = s.do(http.MethodPost, "/api/auth/reset-password", map[string]string{"token": token, "password": "Cc3%cccc"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired token", messageOf(t, rec))

	rec = s.do(http.MethodPost, "/api/auth/login", map[string]string{"companyEmail": "acme@co.test", "password": "Bb2@bbbb"}, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestForgotPasswordValidation(t *testing.T) {
	s := newTestServer(t, AuthRoutesConfig{})
	rec := s.do(http.MethodPost, "/api/auth/forgot-password", map[string]string{}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "companyEmail is required", messageOf(t, rec))
}

func TestMe(t *testing.T) {
	s := newTestServer(t, AuthRoutesConfig{})
	s.registerVerified(t, "acme@co.test")

	rec := s.do(http.MethodGet, "/api/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = s.do(http.MethodPost, "/api/auth/login", map[string]string{"companyEmail": "acme@co.test", "password": testPassword}, nil)
	var tokens TokenResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &tokens))

	rec = s.do(http.MethodGet, "/api/auth/me", nil, map[string]string{echo.HeaderAuthorization: "Bearer " + tokens.AccessToken})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"companyEmail":"acme@co.test"`)
	assert.NotContains(t, rec.Body.String(), "password")

	rec = s.do(http.MethodGet, "/api/auth/me", nil, map[string]string{echo.HeaderAuthorization: "Token abc"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestCredentialRateLimit(t *testing.T) {
	s := newTestServer(t, AuthRoutesConfig{RateLimitRPS: 1, RateLimitBurst: 2})
	creds := map[string]string{"companyEmail": "none@co.test", "password": testPassword}

	var last *httptest.ResponseRecorder
	for i := 0; i < 3; i++ {
		last = s.do(http.MethodPost, "/api/auth/login", creds, nil)
	}
	assert.Equal(t, http.StatusTooManyRequests, last.Code)
	assert.Equal(t, "Too many requests", messageOf(t, last))

	rec := s.do(http.MethodPost, "/api/auth/register", registration("acme@co.test"), nil)
	assert.Equal(t, http.StatusCreated, rec.Code, "register is not rate limited")
}

func TestCredentialRateLimitIgnoresForwardedHeaders(t *testing.T) {
	s := newTestServer(t, AuthRoutesConfig{RateLimitRPS: 1, RateLimitBurst: 2})
	creds := map[string]string{"companyEmail": "none@co.test", "password": testPassword}

	codes := make([]int, 0, 10)
	for i := 0; i < 10; i++ {
		rec := s.do(http.MethodPost, "/api/auth/login", creds, map[string]string{
			echo.HeaderXForwardedFor: fmt.Sprintf("203.0.113.%d", i+1),
			echo.HeaderXRealIP:       fmt.Sprintf("198.51.100.%d", i+1),
		})
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, http.StatusBadRequest, codes[0])
	assert.Equal(t, http.StatusBadRequest, codes[1])
	for i, code := range codes[2:] {
		assert.Equal(t, http.StatusTooManyRequests, code, "request %d", i+3)
	}
}

func TestResetPasswordBogusTokenWithWeakPassword(t *testing.T) {
	s := newTestServer(t, AuthRoutesConfig{})
	rec := s.do(http.MethodPost, "/api/auth/reset-password", map[string]string{"token": "not-a-token", "password": "weak"}, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid or expired token", messageOf(t, rec))
}

func TestHealth(t *testing.T) {
	s := newTestServer(t, AuthRoutesConfig{})
	rec := s.do(http.MethodGet, "/health", nil, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"ok":true}`, rec.Body.String())
}
