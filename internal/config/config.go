package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ProviderGoTrue = "gotrue"
	ProviderClerk  = "clerk"
)

type Config struct {
	Port           string
	LogLevel       string
	DatabaseURL    string
	MigrationsPath string
	RedisAddr      string

	IdentityProvider string
	SupabaseURL      string
	SupabaseAnonKey  string
	SupabaseService  string
	SupabaseJWT      string
	ClerkSecretKey   string

	AppURL                   string
	AdminEmails              []string
	TrialDays                int
	EchoReceptionCredentials bool

	StripeWebhookSecret string

	EmailFrom     string
	EmailFromName string
	SMTPHost      string
	SMTPPort      string
	SMTPUser      string
	SMTPPass      string

	CORSOrigins    []string
	RateLimitRPS   float64
	RateLimitBurst int
}

// LoginURL is the link handed to newly created reception users.
func (c *Config) LoginURL() string {
	return strings.TrimRight(c.AppURL, "/") + "/login"
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		MigrationsPath: getEnv("MIGRATIONS_PATH", "migrations"),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),

		IdentityProvider: strings.ToLower(getEnv("IDENTITY_PROVIDER", ProviderGoTrue)),
		SupabaseURL:      strings.TrimRight(os.Getenv("SUPABASE_URL"), "/"),
		SupabaseAnonKey:  os.Getenv("SUPABASE_ANON_KEY"),
		SupabaseService:  os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseJWT:      os.Getenv("SUPABASE_JWT_SECRET"),
		ClerkSecretKey:   os.Getenv("CLERK_SECRET_KEY"),

		AppURL:                   getEnv("APP_URL", "http://localhost:3000"),
		AdminEmails:              splitList(os.Getenv("ADMIN_EMAILS")),
		TrialDays:                getEnvInt("TRIAL_DAYS", 7),
		EchoReceptionCredentials: getEnvBool("ECHO_RECEPTION_CREDENTIALS", false),

		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),

		EmailFrom:     getEnv("EMAIL_FROM", "noreply@gymportal.app"),
		EmailFromName: getEnv("EMAIL_FROM_NAME", "GymPortal"),
		SMTPHost:      getEnv("SMTP_HOST", "localhost"),
		SMTPPort:      getEnv("SMTP_PORT", "587"),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPass:      os.Getenv("SMTP_PASS"),

		CORSOrigins:    splitList(os.Getenv("CORS_ORIGINS")),
		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 5),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 20),
	}
	if len(cfg.CORSOrigins) == 0 {
		cfg.CORSOrigins = []string{strings.TrimRight(cfg.AppURL, "/")}
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports every required key that is missing for the chosen identity provider.
func (c *Config) Validate() error {
	var missing []string
	if c.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	switch c.IdentityProvider {
	case ProviderGoTrue:
		if c.SupabaseURL == "" {
			missing = append(missing, "SUPABASE_URL")
		}
		if c.SupabaseService == "" {
			missing = append(missing, "SUPABASE_SERVICE_ROLE_KEY")
		}
		if c.SupabaseJWT == "" && c.SupabaseAnonKey == "" {
			missing = append(missing, "SUPABASE_JWT_SECRET or SUPABASE_ANON_KEY")
		}
	case ProviderClerk:
		if c.ClerkSecretKey == "" {
			missing = append(missing, "CLERK_SECRET_KEY")
		}
	default:
		return fmt.Errorf("unknown IDENTITY_PROVIDER %q", c.IdentityProvider)
	}

	if c.TrialDays < 0 {
		return errors.New("TRIAL_DAYS must not be negative")
	}

	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil {
		return v
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return defaultValue
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.ToLower(strings.TrimSpace(part)); p != "" {
			out = append(out, p)
		}
	}
	return out
}
