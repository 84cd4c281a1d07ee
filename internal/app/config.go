package app

import (
	"os"
	"strings"
	"time"

	"github.com/cristalhq/aconfig"
	"github.com/cristalhq/aconfig/aconfigyaml"
	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/webstore/store-api/internal/domain/order"
	"github.com/webstore/store-api/internal/events"
	"github.com/webstore/store-api/internal/jwtauth"
)

// Config holds the complete application configuration, loadable from
// environment variables (STORE_ prefix), flags, or YAML config files.
type Config struct {
	Addr         string `default:"0.0.0.0:8080" usage:"API server listen address"`
	DatabaseURL  string `usage:"PostgreSQL connection URL (STORE_DATABASE_URL or DATABASE_URL)" flag:"database-url"`
	ImagesDir    string `default:"images/products" usage:"Directory for uploaded product images" flag:"images-dir"`
	ImageBaseURL string `default:"/images/products/" usage:"URL prefix for product images" flag:"image-base-url"`
	Auth         AuthConfig
	Catalog      CatalogConfig
	Orders       OrdersConfig
	Users        UsersConfig
	Kafka        KafkaConfig
	RateLimit    RateLimitConfig
	CORS         CORSConfig
	Graceful     GracefulConfig
}

// AuthConfig configures bearer token verification.
type AuthConfig struct {
	Secret   string `usage:"HS512 signing secret (STORE_AUTH_SECRET)"`
	Issuer   string `default:"" usage:"Expected token issuer"`
	Audience string `default:"" usage:"Expected token audience"`
}

// CatalogConfig configures product browsing.
type CatalogConfig struct {
	PageSize   int      `default:"5" usage:"Products per page"`
	Categories []string `usage:"Closed product category set"`
}

// OrdersConfig configures checkout. PaymentMethods entries are "code=Label".
// The first status of each list is assigned to new orders.
type OrdersConfig struct {
	ShippingFee       string   `default:"5.00" usage:"Flat shipping fee"`
	PaymentMethods    []string `default:"cash=Cash on Delivery,paypal=Paypal,credit_card=Credit Card" usage:"Accepted payment methods"`
	PaymentStatuses   []string `default:"pending,accepted,canceled" usage:"Payment statuses"`
	OrderStatuses     []string `default:"created,accepted,canceled,shipped,delivered,returned" usage:"Order statuses"`
	StrictOrderStatus bool     `default:"false" usage:"Reject order status updates outside OrderStatuses"`
	PageSize          int      `default:"5" usage:"Orders per page"`
}

// UsersConfig configures the admin account listing.
type UsersConfig struct {
	PageSize int `default:"5" usage:"Users per page"`
}

// KafkaConfig configures the order event relay. No brokers disables it.
type KafkaConfig struct {
	Brokers      []string      `usage:"Kafka bootstrap brokers"`
	Topic        string        `default:"" usage:"Single topic for all order events; empty uses the event type"`
	PollInterval time.Duration `default:"1s" usage:"Outbox poll interval"`
	BatchSize    int           `default:"100" usage:"Outbox rows per publish"`
}

// RateLimitConfig controls the per-client sliding window rate limiter.
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

// LoadConfig loads configuration from environment variables, YAML config files,
// and applies platform-specific defaults.
func LoadConfig() (*Config, error) {
	var cfg Config
	loader := aconfig.LoaderFor(&cfg, aconfig.Config{
		EnvPrefix: "STORE",
		Files:     []string{"config.yaml", "/etc/store/config.yaml"},
		FileDecoders: map[string]aconfig.FileDecoder{
			".yaml": aconfigyaml.New(),
		},
	})
	if err := loader.Load(); err != nil {
		return nil, errors.Wrap(err, "load config")
	}
	cfg.applyPlatformDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate reports the first setting the server cannot start with.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("database URL is required: set STORE_DATABASE_URL or DATABASE_URL")
	}
	if c.Auth.Secret == "" {
		return errors.New("auth secret is required: set STORE_AUTH_SECRET")
	}
	if c.Users.PageSize <= 0 {
		return errors.New("users page size must be positive")
	}
	if _, err := c.Policy(); err != nil {
		return errors.Wrap(err, "orders")
	}
	return nil
}

// Policy parses the orders section into an order.Policy.
func (c *Config) Policy() (order.Policy, error) {
	o := c.Orders
	fee, err := decimal.NewFromString(strings.TrimSpace(o.ShippingFee))
	if err != nil {
		return order.Policy{}, errors.Wrapf(err, "parse shipping fee %q", o.ShippingFee)
	}

	p := order.Policy{
		ShippingFee:       fee.Round(2),
		PaymentStatuses:   trimAll(o.PaymentStatuses),
		OrderStatuses:     trimAll(o.OrderStatuses),
		StrictOrderStatus: o.StrictOrderStatus,
		PageSize:          o.PageSize,
	}
	seen := make(map[string]bool, len(o.PaymentMethods))
	for _, entry := range trimAll(o.PaymentMethods) {
		code, label, ok := strings.Cut(entry, "=")
		code, label = strings.TrimSpace(code), strings.TrimSpace(label)
		if !ok || code == "" || label == "" {
			return order.Policy{}, errors.Errorf("payment method %q: want code=Label", entry)
		}
		if seen[code] {
			return order.Policy{}, errors.Errorf("payment method %q listed twice", code)
		}
		seen[code] = true
		p.PaymentMethods = append(p.PaymentMethods, order.PaymentMethod{Code: code, Label: label})
	}

	if err := p.Validate(); err != nil {
		return order.Policy{}, err
	}
	return p, nil
}

// Tokens returns the bearer token settings.
func (c *Config) Tokens() jwtauth.Config {
	return jwtauth.Config{
		Secret:   []byte(c.Auth.Secret),
		Issuer:   c.Auth.Issuer,
		Audience: c.Auth.Audience,
	}
}

// Relay returns the outbox relay settings.
func (c *Config) Relay() events.RelayConfig {
	return events.RelayConfig{
		PollInterval: c.Kafka.PollInterval,
		BatchSize:    c.Kafka.BatchSize,
		Topic:        c.Kafka.Topic,
	}
}

// applyPlatformDefaults maps platform-provided environment variables (Railway,
// Render, etc.) that use standard names like DATABASE_URL and PORT to the
// application's STORE_-prefixed configuration.
func (c *Config) applyPlatformDefaults() {
	if c.DatabaseURL == "" {
		if v := os.Getenv("DATABASE_URL"); v != "" {
			c.DatabaseURL = v
		}
	}
	if port := os.Getenv("PORT"); port != "" && c.Addr == "0.0.0.0:8080" {
		c.Addr = "0.0.0.0:" + port
	}
}

func trimAll(in []string) []string {
	out := make([]string, 0, len(in))
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}
