package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	Env         string
	DatabaseURL string

	JWTSecret        string
	JWTAccessExpiry  time.Duration
	JWTRefreshExpiry time.Duration

	// BaseURL is the public origin used to build signup and questionnaire links.
	BaseURL string

	SMTP          SMTPConfig
	EmailFunction EmailFunctionConfig

	Autosave  AutosaveConfig
	Reminders ReminderConfig
	RateLimit RateLimitConfig

	MetricsPort string
	LogLevel    string
	LogFormat   string
}

type SMTPConfig struct {
	Host     string
	Port     string
	Username string
	Password string
	From     string
}

// EmailFunctionConfig points at the hosted send-email function. When TokenURL
// is set the function is called with a client-credentials OAuth2 token.
type EmailFunctionConfig struct {
	URL          string
	TokenURL     string
	ClientID     string
	ClientSecret string
	Timeout      time.Duration
}

type AutosaveConfig struct {
	Debounce    time.Duration
	SaveTimeout time.Duration
}

type ReminderConfig struct {
	Interval time.Duration
	Window   time.Duration
}

type RateLimitConfig struct {
	PerSecond float64
	Burst     int
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	return &Config{
		Port:        getEnv("PORT", "8080"),
		Env:         getEnv("ENV", "development"),
		DatabaseURL: getEnv("DATABASE_URL", ""),

		JWTSecret:        getEnvOrPanic("JWT_SECRET"),
		JWTAccessExpiry:  getDuration("JWT_ACCESS_EXPIRY", 15*time.Minute),
		JWTRefreshExpiry: getDuration("JWT_REFRESH_EXPIRY", 168*time.Hour),

		BaseURL: getEnv("BASE_URL", "http://localhost:5173"),

		SMTP: SMTPConfig{
			Host:     getEnv("SMTP_HOST", ""),
			Port:     getEnv("SMTP_PORT", "587"),
			Username: getEnv("SMTP_USERNAME", ""),
			Password: getEnv("SMTP_PASSWORD", ""),
			From:     getEnv("SMTP_FROM", ""),
		},
		EmailFunction: EmailFunctionConfig{
			URL:          getEnv("EMAIL_FUNCTION_URL", ""),
			TokenURL:     getEnv("EMAIL_FUNCTION_TOKEN_URL", ""),
			ClientID:     getEnv("EMAIL_FUNCTION_CLIENT_ID", ""),
			ClientSecret: getEnv("EMAIL_FUNCTION_CLIENT_SECRET", ""),
			Timeout:      getDuration("EMAIL_FUNCTION_TIMEOUT", 30*time.Second),
		},

		Autosave: AutosaveConfig{
			Debounce:    getDuration("AUTOSAVE_DEBOUNCE", 2*time.Second),
			SaveTimeout: getDuration("AUTOSAVE_SAVE_TIMEOUT", 10*time.Second),
		},
		Reminders: ReminderConfig{
			Interval: getDuration("REMINDER_INTERVAL", time.Hour),
			Window:   getDuration("REMINDER_WINDOW", 48*time.Hour),
		},
		RateLimit: RateLimitConfig{
			PerSecond: getFloat("PUBLIC_RATE_LIMIT", 5),
			Burst:     getInt("PUBLIC_RATE_BURST", 20),
		},

		MetricsPort: getEnv("METRICS_PORT", "9090"),
		LogLevel:    getEnv("LOG_LEVEL", "info"),
		LogFormat:   getEnv("LOG_FORMAT", "text"),
	}, nil
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvOrPanic(key string) string {
	value, ok := os.LookupEnv(key)
	if !ok || value == "" {
		panic("required environment variable not set: " + key)
	}
	return value
}

func getDuration(key string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(getEnv(key, ""))
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

func getInt(key string, fallback int) int {
	n, err := strconv.Atoi(getEnv(key, ""))
	if err != nil || n <= 0 {
		return fallback
	}
	return n
}

func getFloat(key string, fallback float64) float64 {
	f, err := strconv.ParseFloat(getEnv(key, ""), 64)
	if err != nil || f <= 0 {
		return fallback
	}
	return f
}
