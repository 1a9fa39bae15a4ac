package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

// Backend selects the remote collaborator used by the client.
const (
	BackendFixture = "fixture"
	BackendHTTP    = "http"
)

// Token store kinds.
const (
	TokenStoreMemory = "memory"
	TokenStoreFile   = "file"
	TokenStoreRedis  = "redis"
)

// Mock API storage kinds.
const (
	StorageMemory = "memory"
	StorageMongo  = "mongo"
)

type Config struct {
	Env       string `env:"ENV,        default=development"`
	LogLevel  string `env:"LOG_LEVEL,  default=info"`
	JWTSecret string `env:"JWT_SECRET, default=dev-secret-change-me"`

	Client  ClientConfig
	MockAPI MockAPIConfig
	Mongo   MongoConfig
	Redis   RedisConfig
}

type ClientConfig struct {
	Backend        string        `env:"CRM_BACKEND,      default=fixture"`
	APIURL         string        `env:"CRM_API_URL,      default=http://localhost:8080"`
	HTTPTimeout    time.Duration `env:"CRM_HTTP_TIMEOUT, default=10s"`
	HTTPRetries    int           `env:"CRM_HTTP_RETRIES, default=2"`
	FixtureLatency time.Duration `env:"FIXTURE_LATENCY,  default=0s"`
	TokenStore     string        `env:"TOKEN_STORE,      default=memory"`
	TokenFile      string        `env:"TOKEN_FILE"`
}

type MockAPIConfig struct {
	Port     string        `env:"PORT,            default=8080"`
	Storage  string        `env:"MOCKAPI_STORAGE, default=memory"`
	TokenTTL time.Duration `env:"TOKEN_TTL,       default=24h"`
}

type MongoConfig struct {
	URI      string `env:"MONGO_URI, default=mongodb://localhost:27017"`
	Database string `env:"MONGO_DB,  default=crm"`
}

type RedisConfig struct {
	Addr     string        `env:"REDIS_ADDR,      default=localhost:6379"`
	DB       int           `env:"REDIS_DB,        default=0"`
	TokenKey string        `env:"REDIS_TOKEN_KEY, default=crm:session:token"`
	TokenTTL time.Duration `env:"REDIS_TOKEN_TTL, default=0s"`
}

// IsDevelopment reports whether human-friendly log output should be used.
func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	var cfg Config
	if err := envconfig.Process(ctx, &cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// LoadFrom is Load with an explicit variable source, for tests.
func LoadFrom(ctx context.Context, vars map[string]string) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.MapLookuper(vars),
	}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	switch c.Client.Backend {
	case BackendFixture, BackendHTTP:
	default:
		return fmt.Errorf("config: CRM_BACKEND must be %q or %q, got %q", BackendFixture, BackendHTTP, c.Client.Backend)
	}
	switch c.Client.TokenStore {
	case TokenStoreMemory, TokenStoreFile, TokenStoreRedis:
	default:
		return fmt.Errorf("config: unknown TOKEN_STORE %q", c.Client.TokenStore)
	}
	switch c.MockAPI.Storage {
	case StorageMemory, StorageMongo:
	default:
		return fmt.Errorf("config: unknown MOCKAPI_STORAGE %q", c.MockAPI.Storage)
	}
	if c.Client.HTTPRetries < 0 {
		return fmt.Errorf("config: CRM_HTTP_RETRIES must not be negative")
	}
	return nil
}
