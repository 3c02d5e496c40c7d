// Package config handles loading and managing application configuration.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

// DefaultWebhookURL is the webhook URL template used when WEBHOOK_URL is unset.
// Tokens are resolved against the process environment.
const DefaultWebhookURL = "https://{LOCATION}-{PROJECT_ID}.cloudfunctions.net/ext-{EXT_INSTANCE_ID}-handlePaymentStatus"

// Config holds all configuration for the application.
type Config struct {
	// Server configuration
	Server ServerConfig

	// LiqPay gateway configuration
	LiqPay LiqPayConfig

	// Document store configuration
	Store StoreConfig

	// Checkout collections and mapping
	Checkout CheckoutConfig

	// Event notifications
	Events EventsConfig
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port     string `env:"PORT" envDefault:"8080" validate:"required,numeric"`
	GinMode  string `env:"GIN_MODE" envDefault:"release" validate:"oneof=debug release test"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`
}

// LiqPayConfig holds the gateway credentials.
type LiqPayConfig struct {
	PublicKey  string        `env:"LIQPAY_PUBLIC_KEY,required" validate:"required"`
	PrivateKey string        `env:"LIQPAY_PRIVATE_KEY,required" validate:"required"`
	BaseURL    string        `env:"LIQPAY_BASE_URL" envDefault:"https://www.liqpay.ua/api" validate:"url"`
	Timeout    time.Duration `env:"GATEWAY_TIMEOUT" envDefault:"10s" validate:"gt=0"`
}

// StoreConfig selects the document store backend.
type StoreConfig struct {
	Backend          string `env:"STORE_BACKEND" envDefault:"firestore" validate:"oneof=memory firestore postgres"`
	FirestoreProject string `env:"FIRESTORE_PROJECT_ID"`
	GoogleProject    string `env:"PROJECT_ID"`
	DatabaseURL      string `env:"DATABASE_URL" validate:"required_if=Backend postgres"`
}

// ProjectID returns the Firestore project, falling back to PROJECT_ID.
func (c StoreConfig) ProjectID() string {
	if c.FirestoreProject != "" {
		return c.FirestoreProject
	}
	return c.GoogleProject
}

// CheckoutConfig holds the collections and the invoice mapping.
type CheckoutConfig struct {
	InvoicesCollection string `env:"INVOICES_COLLECTION" envDefault:"invoices" validate:"required"`
	SessionsCollection string `env:"SESSIONS_COLLECTION" envDefault:"checkout-sessions" validate:"required"`
	WebhookURL         string `env:"WEBHOOK_URL"`
	InvoiceMapping     string `env:"INVOICE_TO_CHECKOUT_REQUEST_JSONATA"`
}

// EventsConfig configures the event publisher. An empty endpoint disables publishing.
type EventsConfig struct {
	Endpoint     string `env:"EVENTS_ENDPOINT" validate:"omitempty,url"`
	Secret       string `env:"EVENTS_SECRET" validate:"required_with=Endpoint"`
	AllowedTypes string `env:"EVENTS_ALLOWED_TYPES"`
}

// Load reads configuration from environment variables and validates it.
func Load() (*Config, error) {
	return parse(env.Options{})
}

// LoadFrom reads configuration from the given variables instead of the process environment.
func LoadFrom(vars map[string]string) (*Config, error) {
	return parse(env.Options{Environment: vars})
}

func parse(opts env.Options) (*Config, error) {
	cfg := &Config{}
	if err := env.ParseWithOptions(cfg, opts); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if cfg.Checkout.WebhookURL == "" {
		cfg.Checkout.WebhookURL = DefaultWebhookURL
	}
	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	return cfg, nil
}
