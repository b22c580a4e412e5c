package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	DriverPGX      = "pgx"
	DriverPQ       = "postgres"
	DriverInMemory = "memory"
)

type Config struct {
	Port            string
	Environment     string
	LogLevel        string
	LogstashTCPAddr string

	DatabaseDriver string
	DatabaseURL    string
	AutoMigrate    bool

	FrontendURL  string
	BackendURL   string
	AllowOrigins []string

	JWTAccessSecret  string
	JWTRefreshSecret string
	AccessTokenTTL   time.Duration
	RefreshTokenTTL  time.Duration
	InternalAPIKey   string
	CookieSecure     bool

	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	SMTPFrom       string
	SMTPSenderName string

	EmailVerificationTTL time.Duration
	PasswordResetTTL     time.Duration

	CaptchaSecret    string
	CaptchaVerifyURL string

	RateLimitRPS   float64
	RateLimitBurst int
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: .env file not found: %v", err)
	}

	driver := strings.ToLower(getenv("DB_DRIVER", DriverPGX))
	databaseURL := getenv("DATABASE_URL", "")
	if driver != DriverInMemory && databaseURL == "" {
		panic("missing env: DATABASE_URL")
	}

	frontendURL := strings.TrimRight(must("FRONTEND_URL"), "/")
	smtpUser := getenv("SMTP_USER", "")

	return Config{
		Port:                 getenv("PORT", "4000"),
		Environment:          getenv("APP_ENV", "development"),
		LogLevel:             getenv("LOG_LEVEL", "info"),
		LogstashTCPAddr:      getenv("LOGSTASH_TCP_ADDR", ""),
		DatabaseDriver:       driver,
		DatabaseURL:          databaseURL,
		AutoMigrate:          getBool("DB_AUTO_MIGRATE", false),
		FrontendURL:          frontendURL,
		BackendURL:           strings.TrimRight(must("BACKEND_URL"), "/"),
		AllowOrigins:         splitAndTrim(getenv("ALLOW_ORIGINS", frontendURL)),
		JWTAccessSecret:      must("JWT_ACCESS_SECRET"),
		JWTRefreshSecret:     must("JWT_REFRESH_SECRET"),
		AccessTokenTTL:       getDuration("ACCESS_TOKEN_TTL", 15*time.Minute),
		RefreshTokenTTL:      getDuration("REFRESH_TOKEN_TTL", 7*24*time.Hour),
		InternalAPIKey:       must("INTERNAL_API_KEY"),
		CookieSecure:         getBool("COOKIE_SECURE", false),
		SMTPHost:             getenv("SMTP_HOST", "smtp.gmail.com"),
		SMTPPort:             getInt("SMTP_PORT", 587),
		SMTPUsername:         smtpUser,
		SMTPPassword:         getenv("SMTP_PASS", ""),
		SMTPFrom:             getenv("SMTP_FROM", smtpUser),
		SMTPSenderName:       getenv("SMTP_SENDER_NAME", "Secure Access"),
		EmailVerificationTTL: getDuration("EMAIL_VERIFICATION_TTL", 0),
		PasswordResetTTL:     getDuration("PASSWORD_RESET_TTL", 0),
		CaptchaSecret:        getenv("CAPTCHA_SECRET", ""),
		CaptchaVerifyURL:     getenv("CAPTCHA_VERIFY_URL", "https://www.google.com/recaptcha/api/siteverify"),
		RateLimitRPS:         getFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst:       getInt("RATE_LIMIT_BURST", 10),
	}
}

func splitAndTrim(input string) []string {
	parts := strings.Split(input, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return []string{"*"}
	}
	return out
}

func getenv(k, d string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return d
}

func getDuration(k string, d time.Duration) time.Duration {
	if v := os.Getenv(k); v != "" {
		if parsed, err := time.ParseDuration(v); err == nil && parsed >= 0 {
			return parsed
		}
		log.Printf("Warning: invalid duration for %s: %q, using %s", k, v, d)
	}
	return d
}

func getInt(k string, d int) int {
	if v := os.Getenv(k); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			return parsed
		}
	}
	return d
}

func getFloat(k string, d float64) float64 {
	if v := os.Getenv(k); v != "" {
		if parsed, err := strconv.ParseFloat(v, 64); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return d
}

func getBool(k string, d bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(k))) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	}
	return d
}

func must(k string) string {
	v := os.Getenv(k)
	if v == "" {
		panic("missing env: " + k)
	}
	return v
}
