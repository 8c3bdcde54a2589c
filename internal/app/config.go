package app

import (
	"os"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"
)

// Store drivers.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
)

const defaultAddr = "0.0.0.0:8080"

// Config holds the complete application configuration, loadable from
// environment variables (CHECKOUT_ prefix), flags, or YAML config files.
type Config struct {
	Addr      string `default:"0.0.0.0:8080" usage:"API server listen address"`
	Commerce  CommerceConfig
	Checkout  CheckoutConfig
	Store     StoreConfig
	Events    EventsConfig
	RateLimit RateLimitConfig
	CORS      CORSConfig
	Graceful  GracefulConfig
}

// CommerceConfig locates the commerce API and the card tokenization vault.
type CommerceConfig struct {
	BaseURL   string        `usage:"Commerce API base URL" flag:"commerce-url"`
	VaultURL  string        `usage:"Tokenization vault base URL" flag:"vault-url"`
	PublicKey string        `usage:"Public key for the tokenization vault" flag:"vault-public-key"`
	Timeout   time.Duration `default:"15s" usage:"Commerce API request timeout"`
}

// CheckoutConfig tunes sessions and rails.
type CheckoutConfig struct {
	CountdownSeconds int           `default:"600" usage:"Confirmation window of polled rails in seconds"`
	GraceChecks      int           `default:"1" usage:"Extra status checks allowed after the countdown expires"`
	IdleTTL          time.Duration `default:"30m" usage:"Idle session eviction delay" flag:"idle-ttl"`
	MaxSessions      int           `default:"100000" usage:"Live sessions above which the service reports unready"`
	TaxRate          string        `default:"0" usage:"Tax rate applied to the cart subtotal, e.g. 0.07"`
	Currency         string        `default:"THB" usage:"Charge currency"`
	ConfirmationURL  string        `default:"/orders/{order_id}/confirmation" usage:"Order confirmation URL template" flag:"confirmation-url"`
	ReturnURL        string        `default:"/api/checkout/returns/{order_id}" usage:"Return URL template for external payment steps" flag:"return-url"`
}

// StoreConfig selects where suspended sessions and submit keys live.
type StoreConfig struct {
	Driver         string        `default:"postgres" usage:"Suspension store: postgres or redis" flag:"store"`
	DatabaseURL    string        `usage:"PostgreSQL connection URL (CHECKOUT_STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	RedisURL       string        `usage:"Redis URL (CHECKOUT_STORE_REDIS_URL or REDIS_URL); enables submit deduplication" flag:"redis-url"`
	SuspensionTTL  time.Duration `default:"24h" usage:"How long a redirected session can be resumed" flag:"suspension-ttl"`
	IdempotencyTTL time.Duration `default:"10m" usage:"How long a submit idempotency key is remembered" flag:"idempotency-ttl"`
}

// EventsConfig controls the checkout event publisher. Without brokers events
// are logged.
type EventsConfig struct {
	Brokers []string `usage:"Kafka brokers" flag:"kafka-brokers"`
	Topic   string   `default:"checkout.events" usage:"Kafka topic" flag:"kafka-topic"`
}

// RateLimitConfig controls the per-buyer sliding window rate limiter.
type RateLimitConfig struct {
	Max    int           `default:"100" usage:"Max requests per window"`
	Window time.Duration `default:"1m"  usage:"Rate limit window duration"`
}

// CORSConfig controls Cross-Origin Resource Sharing headers.
type CORSConfig struct {
	Origins          []string `default:"*" usage:"Allowed CORS origins"`
	AllowCredentials bool     `default:"false" usage:"Allow credentials (cookies, auth headers)" flag:"cors-credentials"`
}

// GracefulConfig controls graceful shutdown timing.
type GracefulConfig struct {
	ReadinessDelay  time.Duration `default:"3s"  usage:"Delay after readiness=false before shutdown" flag:"readiness-delay"`
	ShutdownTimeout time.Duration `default:"15s" usage:"Maximum shutdown duration" flag:"shutdown-timeout"`
}

func loaderConfig() aconfig.Config {
	return aconfig.Config{
		EnvPrefix: "CHECKOUT",
		Files:     []string{"config.yaml", "/etc/checkout/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	}
}

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	return load(loaderConfig())
}

func load(ac aconfig.Config) (*Config, error) {
	var cfg Config
	if err := aconfig.LoaderFor(&cfg, ac).Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's CHECKOUT_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.Store.DatabaseURL == "" {
		c.Store.DatabaseURL = os.Getenv("DATABASE_URL")
	}
	if c.Store.RedisURL == "" {
		c.Store.RedisURL = os.Getenv("REDIS_URL")
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == defaultAddr {
		c.Addr = "0.0.0.0:" + port
	}
}

func (c *Config) validate() error {
	if c.Commerce.BaseURL == "" {
		return errors.New("commerce base URL is required: set CHECKOUT_COMMERCE_BASE_URL")
	}
	switch c.Store.Driver {
	case StorePostgres:
		if c.Store.DatabaseURL == "" {
			return errors.New("database URL is required: set CHECKOUT_STORE_DATABASE_URL or DATABASE_URL")
		}
	case StoreRedis:
		if c.Store.RedisURL == "" {
			return errors.New("redis URL is required: set CHECKOUT_STORE_REDIS_URL or REDIS_URL")
		}
	default:
		return errors.Errorf("unknown store driver %q", c.Store.Driver)
	}
	rate, err := c.TaxRate()
	if err != nil {
		return err
	}
	if rate.IsNegative() {
		return errors.Errorf("tax rate %s is negative", rate)
	}
	return nil
}

// TaxRate parses Checkout.TaxRate.
func (c *Config) TaxRate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(c.Checkout.TaxRate)
	if err != nil {
		return decimal.Zero, errors.Wrapf(err, "parse tax rate %q", c.Checkout.TaxRate)
	}
	return rate, nil
}
