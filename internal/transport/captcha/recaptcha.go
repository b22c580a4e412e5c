// Package captcha verifies reCAPTCHA-style tokens against a siteverify endpoint.
package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

const DefaultVerifyURL = "https://www.google.com/recaptcha/api/siteverify"

type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

type Verifier struct {
	secret    string
	verifyURL string
	client    HTTPDoer
	minScore  float64
	logger    *zap.Logger
}

type siteVerifyResponse struct {
	Success    bool     `json:"success"`
	Score      *float64 `json:"score,omitempty"`
	Action     string   `json:"action,omitempty"`
	ErrorCodes []string `json:"error-codes,omitempty"`
}

func NewVerifier(secret, verifyURL string, client HTTPDoer, logger *zap.Logger) *Verifier {
	if strings.TrimSpace(verifyURL) == "" {
		verifyURL = DefaultVerifyURL
	}
	if client == nil {
		client = &http.Client{Timeout: 5 * time.Second}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Verifier{
		secret:    secret,
		verifyURL: verifyURL,
		client:    client,
		minScore:  0.5,
		logger:    logger.Named("captcha"),
	}
}

// Verify reports whether the provider accepted token. v3 responses carrying a
// score below 0.5 are rejected.
func (v *Verifier) Verify(ctx context.Context, token, remoteIP string) (bool, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return false, nil
	}
	if v.secret == "" {
		return false, errors.New("captcha secret not configured")
	}

	form := url.Values{}
	form.Set("secret", v.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.verifyURL, strings.NewReader(form.Encode()))
	if err != nil {
		return false, fmt.Errorf("build siteverify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := v.client.Do(req)
	if err != nil {
		return false, fmt.Errorf("siteverify request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return false, fmt.Errorf("read siteverify response: %w", err)
	}
	if resp.StatusCode >= 300 {
		return false, fmt.Errorf("siteverify failed: status=%d", resp.StatusCode)
	}

	var out siteVerifyResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return false, fmt.Errorf("decode siteverify response: %w", err)
	}
	if !out.Success {
		v.logger.Info("captcha rejected", zap.Strings("error_codes", out.ErrorCodes))
		return false, nil
	}
	if out.Score != nil && *out.Score < v.minScore {
		v.logger.Info("captcha score too low", zap.Float64("score", *out.Score), zap.String("action", out.Action))
		return false, nil
	}
	return true, nil
}
