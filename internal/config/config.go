package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Store backends.
const (
	BackendSanity   = "sanity"
	BackendDynamoDB = "dynamodb"
)

// ErrMissingEnv marks a required environment variable that is unset.
var ErrMissingEnv = errors.New("missing environment variable")

// Config is the process configuration, read from the environment.
type Config struct {
	HTTPAddr string `envconfig:"HTTP_ADDR" default:":8080"`
	RunLocal bool   `envconfig:"RUN_LOCAL" default:"false"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"json"`

	StoreBackend string       `envconfig:"STORE_BACKEND" default:"sanity"`
	Sanity       SanityConfig `ignored:"true"`
	Dynamo       DynamoConfig `ignored:"true"`

	Auth  AuthConfig  `ignored:"true"`
	Redis RedisConfig `ignored:"true"`

	OrderEventsQueueURL string `envconfig:"ORDER_EVENTS_QUEUE_URL"`
	MetricsNamespace    string `envconfig:"METRICS_NAMESPACE"`
	SerializeMutations  bool   `envconfig:"SERIALIZE_MUTATIONS" default:"true"`
}

// SanityConfig holds the content store settings.
type SanityConfig struct {
	APIVersion string        `envconfig:"SANITY_API_VERSION"`
	Dataset    string        `envconfig:"SANITY_DATASET"`
	ProjectID  string        `envconfig:"SANITY_PROJECT_ID"`
	Token      string        `envconfig:"SANITY_API_TOKEN"`
	Timeout    time.Duration `envconfig:"SANITY_TIMEOUT" default:"30s"`
}

// DynamoConfig names the tables used by the DynamoDB backend and the audit worker.
type DynamoConfig struct {
	OrdersTable      string `envconfig:"ORDERS_TABLE" default:"orders"`
	ProductsTable    string `envconfig:"PRODUCTS_TABLE" default:"products"`
	IdempotencyTable string `envconfig:"IDEMPOTENCY_TABLE" default:"order-event-idempotency"`
	AuditTable       string `envconfig:"AUDIT_TABLE" default:"order-audit"`
}

// AuthConfig configures the admin route guard.
type AuthConfig struct {
	JWTSecret string `envconfig:"AUTH_JWT_SECRET"`
	Issuer    string `envconfig:"AUTH_ISSUER"`
}

// RedisConfig enables the shared dashboard state store when Addr is set.
type RedisConfig struct {
	Addr       string        `envconfig:"REDIS_ADDR"`
	Password   string        `envconfig:"REDIS_PASSWORD"`
	DB         int           `envconfig:"REDIS_DB" default:"0"`
	SessionTTL time.Duration `envconfig:"SESSION_TTL" default:"12h"`
}

// Load reads an optional .env file, then the environment, and validates the result.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorker reads the same sources as Load without the dashboard checks.
// The audit worker only needs logging and the DynamoDB table names.
func LoadWorker() (*Config, error) {
	return read()
}

func read() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	var cfg Config
	// sections are processed on their own so their variables keep unprefixed names
	for _, spec := range []any{&cfg, &cfg.Sanity, &cfg.Dynamo, &cfg.Auth, &cfg.Redis} {
		if err := envconfig.Process("", spec); err != nil {
			return nil, fmt.Errorf("process env: %w", err)
		}
	}
	return &cfg, nil
}

// Validate checks the settings the selected backend cannot start without.
func (c *Config) Validate() error {
	switch c.StoreBackend {
	case BackendSanity:
		required := []struct{ name, value string }{
			{"SANITY_API_VERSION", c.Sanity.APIVersion},
			{"SANITY_DATASET", c.Sanity.Dataset},
			{"SANITY_PROJECT_ID", c.Sanity.ProjectID},
			{"SANITY_API_TOKEN", c.Sanity.Token},
		}
		for _, r := range required {
			if r.value == "" {
				return fmt.Errorf("%w: %s", ErrMissingEnv, r.name)
			}
		}
	case BackendDynamoDB:
	default:
		return fmt.Errorf("unknown STORE_BACKEND %q", c.StoreBackend)
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("%w: AUTH_JWT_SECRET", ErrMissingEnv)
	}
	return nil
}
