package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config aggregates application configuration values loaded from environment variables.
type Config struct {
	Env                 string
	HTTPAddr            string
	PublicBaseURL       string
	Store               string
	MongoURI            string
	MongoDB             string
	KafkaBrokers        []string
	KafkaTopicPrefix    string
	IdempotencyTTL      time.Duration
	OutboxPollInterval  time.Duration
	HoldTTL             time.Duration
	SweepInterval       time.Duration
	CheckoutSerialize   bool
	StripeSecretKey     string
	StripeWebhookSecret string
	StripeAPIBase       string
	StripeTimeout       time.Duration
	AuthTokens          string
	ListingFixtures     string
}

// Load parses configuration from the current environment.
func Load() (Config, error) {
	cfg := Config{
		Env:                 getEnv("APP_ENV", "dev"),
		HTTPAddr:            getEnv("HTTP_ADDR", ":8080"),
		PublicBaseURL:       getEnv("PUBLIC_BASE_URL", "http://localhost:8080"),
		Store:               strings.ToLower(getEnv("STORE", "memory")),
		MongoURI:            os.Getenv("MONGO_URI"),
		MongoDB:             getEnv("MONGO_DB", "staybook"),
		KafkaTopicPrefix:    getEnv("KAFKA_TOPIC_PREFIX", ""),
		StripeSecretKey:     os.Getenv("STRIPE_SECRET_KEY"),
		StripeWebhookSecret: os.Getenv("STRIPE_WEBHOOK_SECRET"),
		StripeAPIBase:       getEnv("STRIPE_API_BASE", "https://api.stripe.com"),
		AuthTokens:          os.Getenv("AUTH_TOKENS"),
		ListingFixtures:     os.Getenv("LISTING_FIXTURES"),
	}
	brokers := getEnv("KAFKA_BROKERS", "")
	if brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	idempotencyTTL, err := parseDurationEnv("IDEMP_TTL", 168*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.IdempotencyTTL = idempotencyTTL

	poll, err := parseDurationEnv("OUTBOX_POLL_INTERVAL", 500*time.Millisecond)
	if err != nil {
		return Config{}, err
	}
	cfg.OutboxPollInterval = poll

	holdTTL, err := parseDurationEnv("HOLD_TTL", 24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	cfg.HoldTTL = holdTTL

	sweep, err := parseDurationEnv("SWEEP_INTERVAL", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	cfg.SweepInterval = sweep

	stripeTimeout, err := parseDurationEnv("STRIPE_TIMEOUT", 10*time.Second)
	if err != nil {
		return Config{}, err
	}
	cfg.StripeTimeout = stripeTimeout

	serialize, err := parseBoolEnv("CHECKOUT_SERIALIZE", true)
	if err != nil {
		return Config{}, err
	}
	cfg.CheckoutSerialize = serialize

	switch cfg.Store {
	case "memory":
	case "mongo":
		if cfg.MongoURI == "" {
			return Config{}, fmt.Errorf("MONGO_URI is required when STORE=mongo")
		}
	default:
		return Config{}, fmt.Errorf("invalid STORE %q (want memory or mongo)", cfg.Store)
	}
	return cfg, nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseDurationEnv(key string, def time.Duration) (time.Duration, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s duration: %w", key, err)
	}
	return d, nil
}

func parseBoolEnv(key string, def bool) (bool, error) {
	raw := os.Getenv(key)
	if raw == "" {
		return def, nil
	}
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "1", "t", "true", "yes", "y", "on":
		return true, nil
	case "0", "f", "false", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("invalid %s boolean: %q", key, raw)
	}
}
