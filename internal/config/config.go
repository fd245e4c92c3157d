package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	ServerPort      string
	DatabaseType    string
	DatabasePath    string
	DatabaseURL     string
	LogMode         string
	JWTSecret       string
	SessionDuration time.Duration
	InviteTTL       time.Duration
	Timezone        string
	CORSOrigins     []string
	LoginRateLimit  int
	AppBaseURL      string

	Generator GeneratorConfig
	Email     EmailConfig
}

// GeneratorConfig configures the task suggestion backend. An empty BaseURL
// disables remote generation and only the built-in templates are offered.
type GeneratorConfig struct {
	BaseURL      string
	APIKey       string
	Model        string
	Timeout      time.Duration
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scope        string
}

// EmailConfig configures invitation mail through SES.
type EmailConfig struct {
	Region    string
	FromEmail string
	FromName  string
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is honoured when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:      getEnv("PORT", "8080"),
		DatabaseType:    getEnv("DB_TYPE", "sqlite"),
		DatabasePath:    getEnv("DB_PATH", "./familyquest.db"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		LogMode:         getEnv("LOG_MODE", "development"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		SessionDuration: getEnvDuration("SESSION_DURATION", 24*time.Hour),
		InviteTTL:       getEnvDuration("INVITE_TTL", 7*24*time.Hour),
		Timezone:        getEnv("APP_TIMEZONE", "UTC"),
		CORSOrigins:     splitList(getEnv("CORS_ORIGINS", "")),
		LoginRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", 10),
		AppBaseURL:      getEnv("APP_BASE_URL", "http://localhost:8080"),
		Generator: GeneratorConfig{
			BaseURL:      getEnv("GENERATOR_BASE_URL", ""),
			APIKey:       getEnv("GENERATOR_API_KEY", ""),
			Model:        getEnv("GENERATOR_MODEL", "gpt-4o-mini"),
			Timeout:      getEnvDuration("GENERATOR_TIMEOUT", 30*time.Second),
			ClientID:     getEnv("GENERATOR_CLIENT_ID", ""),
			ClientSecret: getEnv("GENERATOR_CLIENT_SECRET", ""),
			TokenURL:     getEnv("GENERATOR_TOKEN_URL", ""),
			Scope:        getEnv("GENERATOR_SCOPE", ""),
		},
		Email: EmailConfig{
			Region:    getEnv("AWS_REGION", "eu-west-2"),
			FromEmail: getEnv("SES_FROM_EMAIL", ""),
			FromName:  getEnv("SES_FROM_NAME", "FamilyQuest"),
		},
	}
}

// Location resolves the configured time zone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return defaultValue
	}
	return n
}

// getEnvDuration accepts Go duration strings ("30s", "168h").
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil || d <= 0 {
		return defaultValue
	}
	return d
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
