package http

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/njprem/OrgAuth_BackEnd/internal/domain"
	"github.com/njprem/OrgAuth_BackEnd/internal/service"
	"github.com/njprem/OrgAuth_BackEnd/internal/util"
)

const (
	contextAccountKey = "auth.account"
	contextTokenKey   = "auth.token"

	headerInternalAPIKey = "x-internal-api-key"
	noStoreValue         = "no-store, no-cache, must-revalidate, private"
)

func RequireAuth(auth *service.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if strings.TrimSpace(authHeader) == "" {
				return c.JSON(http.StatusUnauthorized, util.Error("missing authorization header"))
			}
			parts := strings.SplitN(authHeader, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				return c.JSON(http.StatusUnauthorized, util.Error("invalid authorization header"))
			}
			token := strings.TrimSpace(parts[1])
			account, err := auth.Authenticate(c.Request().Context(), token)
			if err != nil {
				return c.JSON(http.StatusUnauthorized, util.Error(err.Error()))
			}
			c.Set(contextAccountKey, account)
			c.Set(contextTokenKey, token)
			return next(c)
		}
	}
}

// RequireInternalKey rejects callers whose x-internal-api-key header does not
// match key. An empty key rejects everyone.
func RequireInternalKey(key string) echo.MiddlewareFunc {
	expected := []byte(key)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := []byte(c.Request().Header.Get(headerInternalAPIKey))
			if len(expected) == 0 || subtle.ConstantTimeCompare(got, expected) != 1 {
				return c.JSON(http.StatusForbidden, util.Error("Forbidden: Invalid API Key"))
			}
			return next(c)
		}
	}
}

func noStore(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		h := c.Response().Header()
		h.Set("Cache-Control", noStoreValue)
		h.Set("Pragma", "no-cache")
		h.Set("Expires", "0")
		return next(c)
	}
}

func CurrentAccount(c echo.Context) (*domain.Account, bool) {
	account, ok := c.Get(contextAccountKey).(*domain.Account)
	return account, ok && account != nil
}
