package http

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

func NewRouter(allowOrigins []string, logger *zap.Logger) *echo.Echo {
	if logger == nil {
		logger = zap.NewNop()
	}
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = newRequestValidator()
	// Client IPs come from the socket; X-Forwarded-For and X-Real-IP are ignored.
	e.IPExtractor = echo.ExtractIPDirect()

	allowCredentials := true
	for _, origin := range allowOrigins {
		if origin == "*" {
			allowCredentials = false
			break
		}
	}

	e.Use(middleware.RequestID())
	registerLogging(e, logger)

	e.Use(middleware.Recover())
	e.Use(middleware.Secure())
	e.Use(noStore)
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: allowOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{
			echo.HeaderAuthorization,
			echo.HeaderContentType,
			echo.HeaderAccept,
			echo.HeaderOrigin,
			echo.HeaderXRequestedWith,
			headerInternalAPIKey,
		},
		AllowCredentials: allowCredentials,
	}))
	e.Use(middleware.BodyLimit("64K"))

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, echo.Map{"ok": true})
	})
	return e
}
