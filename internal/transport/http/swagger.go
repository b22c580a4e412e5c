package http

import (
	"net/http"
	"os"

	"github.com/ghodss/yaml"
	"github.com/labstack/echo/v4"
	echoSwagger "github.com/swaggo/echo-swagger"
	"go.uber.org/zap"

	"github.com/njprem/OrgAuth_BackEnd/internal/util"
)

const DefaultSwaggerSpec = "docs/swagger.yaml"

// RegisterSwagger serves the hand-written YAML as /swagger/doc.json and the UI
// under /swagger/. The file is read once at startup.
func RegisterSwagger(e *echo.Echo, specPath string, logger *zap.Logger) error {
	if specPath == "" {
		specPath = DefaultSwaggerSpec
	}
	data, err := os.ReadFile(specPath)
	if err != nil {
		return err
	}
	jsonSpec, err := yaml.YAMLToJSON(data)
	if err != nil {
		return err
	}

	e.GET("/swagger/doc.json", func(c echo.Context) error {
		if len(jsonSpec) == 0 {
			return c.JSON(http.StatusInternalServerError, util.Error("unable to load swagger spec"))
		}
		return c.Blob(http.StatusOK, echo.MIMEApplicationJSONCharsetUTF8, jsonSpec)
	})
	e.GET("/swagger/*", echoSwagger.EchoWrapHandler(echoSwagger.URL("/swagger/doc.json")))
	if logger != nil {
		logger.Info("swagger ui enabled", zap.String("spec", specPath))
	}
	return nil
}
