// Package config builds explicit configuration values from the environment so
// main stays lean and components never reach for ambient process state.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config aggregates every component's configuration. Each component receives
// only its own section at construction time.
type Config struct {
	Server   Server
	Gateway  Gateway
	Database Database
	Redis    Redis
	SMTP     SMTP
	Events   Events
	Receipts Receipts
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	// ThankYouURL is the user-facing redirect target after a payment
	// attempt, parameterized with ?status= and an optional &message=.
	ThankYouURL string
}

// Gateway holds the payment gateway credentials and endpoints.
type Gateway struct {
	BaseURL    string
	MerchantID string
	SaltKey    string
	SaltIndex  string
	// RedirectURL is where the gateway sends the donor's browser back;
	// CallbackURL is the server-to-server push target.
	RedirectURL string
	CallbackURL string
	// Sandbox selects the fake gateway client instead of the real one.
	Sandbox bool
	// PollGracePeriod is how long the poll path waits before querying
	// status, accommodating gateway-side eventual consistency.
	PollGracePeriod time.Duration
	RequestTimeout  time.Duration
	// MinAmount is the smallest accepted donation in rupees.
	MinAmount float64
}

// Database holds PostgreSQL connection settings. Empty URL selects the
// in-memory store.
type Database struct {
	URL string
}

// Redis holds optional Redis settings for the reconcile lock. Empty URL
// disables it.
type Redis struct {
	URL          string
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// SMTP holds outbound mail settings. Empty host selects the log-only
// notifier.
type SMTP struct {
	Host       string
	Port       int
	Username   string
	Password   string
	From       string
	AdminEmail string
}

// Events holds optional Kafka settings for lifecycle events. Empty broker
// list disables publishing.
type Events struct {
	Brokers []string
	Topic   string
}

// Receipts configures where rendered receipt artifacts land.
type Receipts struct {
	Dir string
}

// FromEnv builds the full configuration from environment variables.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:          envOr("DONATION_GATEWAY_ADDR", ":8080"),
			JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
			ThankYouURL:   envOr("THANK_YOU_URL", "http://localhost:3000/thank-you"),
		},
		Gateway: Gateway{
			BaseURL:         envOr("GATEWAY_BASE_URL", "https://api-preprod.phonepe.com/apis/pg-sandbox"),
			MerchantID:      envOr("GATEWAY_MERCHANT_ID", ""),
			SaltKey:         envOr("GATEWAY_SALT_KEY", ""),
			SaltIndex:       envOr("GATEWAY_SALT_INDEX", "1"),
			RedirectURL:     envOr("GATEWAY_REDIRECT_URL", "http://localhost:8080/api/donations/payment-status"),
			CallbackURL:     envOr("GATEWAY_CALLBACK_URL", "http://localhost:8080/api/donations/callback"),
			Sandbox:         os.Getenv("GATEWAY_SANDBOX") == "true",
			PollGracePeriod: envDurationOr("GATEWAY_POLL_GRACE_PERIOD", 3*time.Second),
			RequestTimeout:  envDurationOr("GATEWAY_REQUEST_TIMEOUT", 15*time.Second),
			MinAmount:       envFloatOr("DONATION_MIN_AMOUNT", 100),
		},
		Database: Database{
			URL: os.Getenv("DATABASE_URL"),
		},
		Redis: Redis{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			DialTimeout:  envDurationOr("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
		SMTP: SMTP{
			Host:       os.Getenv("SMTP_HOST"),
			Port:       envIntOr("SMTP_PORT", 587),
			Username:   os.Getenv("SMTP_USER"),
			Password:   os.Getenv("SMTP_PASS"),
			From:       envOr("SMTP_FROM", os.Getenv("SMTP_USER")),
			AdminEmail: os.Getenv("ADMIN_EMAIL"),
		},
		Events: Events{
			Brokers: splitNonEmpty(os.Getenv("KAFKA_BROKERS")),
			Topic:   envOr("KAFKA_DONATION_TOPIC", "donation.lifecycle"),
		},
		Receipts: Receipts{
			Dir: envOr("RECEIPT_DIR", os.TempDir()),
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloatOr(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
