package http

import (
	"encoding/json"
	"net/url"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"
)

const (
	requestBodyLogKey  = "http.request.body.summary"
	responseBodyLogKey = "http.response.body.summary"
	maxLoggedBody      = 2048
	redacted           = "redacted"
)

// sensitiveKeys are matched as substrings of lower-cased field names.
var sensitiveKeys = []string{"password", "token", "secret", "apikey", "api_key"}

// sensitiveAssignment matches "password=..." or "token: ..." inside free text.
// Prose such as "Invalid token" is left alone.
var sensitiveAssignment = regexp.MustCompile(`(?i)(password|token|secret|api_?key)\w*"?\s*[:=]`)

func registerLogging(e *echo.Echo, logger *zap.Logger) {
	logger = logger.Named("http")

	e.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogRemoteIP:  true,
		LogRequestID: true,
		LogError:     true,
		HandleError:  true,
		LogValuesFunc: func(c echo.Context, v middleware.RequestLoggerValues) error {
			accountID := "anonymous"
			if account, ok := CurrentAccount(c); ok {
				accountID = account.ID.String()
			}

			fields := []zap.Field{
				zap.String("method", v.Method),
				zap.String("uri", redactQuery(v.URI)),
				zap.Int("status", v.Status),
				zap.Int64("latency_ms", v.Latency.Milliseconds()),
				zap.String("remote_ip", v.RemoteIP),
				zap.String("account_id", accountID),
			}
			if v.RequestID != "" {
				fields = append(fields, zap.String("request_id", v.RequestID))
			}
			if summary := c.Get(requestBodyLogKey); summary != nil {
				fields = append(fields, zap.Any("request_body", summary))
			}
			if summary := c.Get(responseBodyLogKey); summary != nil {
				fields = append(fields, zap.Any("response_body", summary))
			}

			switch {
			case v.Error != nil || v.Status >= 500:
				if v.Error != nil {
					fields = append(fields, zap.Error(v.Error))
				}
				logger.Error("http_request", fields...)
			case v.Status >= 400:
				logger.Warn("http_request", fields...)
			default:
				logger.Info("http_request", fields...)
			}
			return nil
		},
	}))

	e.Use(middleware.BodyDump(func(c echo.Context, reqBody, resBody []byte) {
		if summary := sanitizeBody(reqBody, c.Request().Header.Get(echo.HeaderContentType)); summary != nil {
			c.Set(requestBodyLogKey, summary)
		}
		if summary := sanitizeBody(resBody, c.Response().Header().Get(echo.HeaderContentType)); summary != nil {
			c.Set(responseBodyLogKey, summary)
		}
	}))
}

func isSensitive(key string) bool {
	key = strings.ToLower(key)
	for _, s := range sensitiveKeys {
		if strings.Contains(key, s) {
			return true
		}
	}
	return false
}

// redactQuery hides sensitive query values, e.g. the verify-email token.
func redactQuery(uri string) string {
	path, rawQuery, ok := strings.Cut(uri, "?")
	if !ok || rawQuery == "" {
		return uri
	}
	values, err := url.ParseQuery(rawQuery)
	if err != nil {
		return path + "?" + redacted
	}
	for key := range values {
		if isSensitive(key) {
			values.Set(key, redacted)
		}
	}
	return path + "?" + values.Encode()
}

func sanitizeBody(body []byte, contentType string) any {
	if len(body) == 0 {
		return nil
	}
	lowered := strings.ToLower(strings.TrimSpace(contentType))

	if strings.HasPrefix(lowered, "application/json") || json.Valid(body) {
		var data any
		if err := json.Unmarshal(body, &data); err == nil {
			return limitSize(sanitizeJSON(data, ""))
		}
	}

	if strings.HasPrefix(lowered, "application/x-www-form-urlencoded") {
		if values, err := url.ParseQuery(string(body)); err == nil && len(values) > 0 {
			out := make(map[string]any, len(values))
			for key := range values {
				out[key] = sanitizeString(values.Get(key), key)
			}
			return limitSize(out)
		}
	}

	if isBinary(body) {
		return "binary"
	}
	text := string(body)
	if sensitiveAssignment.MatchString(text) {
		return redacted
	}
	return clampString(text)
}

func sanitizeJSON(value any, key string) any {
	switch v := value.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			if isSensitive(k) {
				out[k] = redacted
				continue
			}
			out[k] = sanitizeJSON(val, k)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = sanitizeJSON(item, key)
		}
		return out
	case string:
		return sanitizeString(v, key)
	default:
		return v
	}
}

func sanitizeString(value, key string) string {
	if key != "" && isSensitive(key) {
		return redacted
	}
	if isBinary([]byte(value)) {
		return "binary"
	}
	return clampString(value)
}

func limitSize(value any) any {
	buf, err := json.Marshal(value)
	if err != nil || len(buf) <= maxLoggedBody {
		return value
	}
	return map[string]any{"_truncated": true, "_bytes": len(buf)}
}

func isBinary(data []byte) bool {
	for len(data) > 0 {
		r, size := utf8.DecodeRune(data)
		if r == utf8.RuneError && size == 1 {
			return true
		}
		if !unicode.IsPrint(r) && !unicode.IsSpace(r) {
			return true
		}
		data = data[size:]
	}
	return false
}

func clampString(value string) string {
	if len(value) <= maxLoggedBody {
		return value
	}
	truncated := value[:maxLoggedBody]
	for !utf8.ValidString(truncated) && len(truncated) > 0 {
		truncated = truncated[:len(truncated)-1]
	}
	return truncated + "...(truncated)"
}
