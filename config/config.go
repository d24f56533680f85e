package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

const (
	BrokerNone  = "none"
	BrokerNats  = "nats"
	BrokerRedis = "redis"

	StorageMemory = "memory"
	StorageFile   = "file"
	StorageS3     = "s3"
)

type Config struct {
	Env         string `env:"APP_ENV" env-default:"local"` // "local", "dev", "prod"
	ServiceName string `env:"SERVICE_NAME" env-default:"feed-service"`
	HTTPPort    string `env:"HTTP_PORT" env-default:"8080"`

	// Infrastructure
	DBUrl      string `env:"DB_URL" env-default:"memory"` // "memory" ou connection string Postgres
	StorageURL string `env:"STORAGE_URL" env-default:"file://./data"`
	Broker     string `env:"BROKER" env-default:"none"`
	NatsUrl    string `env:"NATS_URL" env-default:"nats://localhost:4222"`
	RedisAddr  string `env:"REDIS_ADDR" env-default:"localhost:6379"`

	S3 S3Config

	// Sécurité
	JWTSecret         string        `env:"JWT_SECRET"`
	RSAPrivateKeyPath string        `env:"RSA_PRIVATE_KEY_PATH"`
	RSAPublicKeyPath  string        `env:"RSA_PUBLIC_KEY_PATH"`
	TokenTTL          time.Duration `env:"TOKEN_TTL" env-default:"1h"`

	// Feed
	PageSize       int      `env:"PAGE_SIZE" env-default:"2"`
	MaxUploadBytes int64    `env:"MAX_UPLOAD_BYTES" env-default:"10485760"`
	AllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" env-default:"*" env-separator:","`

	// Telemetry
	OtelEndpoint   string `env:"OTEL_EXPORTER_OTLP_ENDPOINT" env-default:"localhost:4317"`
	TracingEnabled bool   `env:"TRACING_ENABLED" env-default:"false"`

	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" env-default:"10s"`
}

type S3Config struct {
	Region          string `env:"S3_REGION" env-default:"us-east-1"`
	AccessKeyID     string `env:"S3_ACCESS_KEY_ID"`
	SecretAccessKey string `env:"S3_SECRET_ACCESS_KEY"`
	Endpoint        string `env:"S3_ENDPOINT"`
	UsePathStyle    bool   `env:"S3_USE_PATH_STYLE" env-default:"false"`
	CreateBucket    bool   `env:"S3_CREATE_BUCKET" env-default:"false"`
}

// Storage est STORAGE_URL décodée.
type Storage struct {
	Kind     string // memory, file, s3
	Location string // répertoire ou bucket
}

// Load charge la configuration depuis l'ENV puis la valide.
func Load() (*Config, error) {
	var cfg Config
	if err := cleanenv.ReadEnv(&cfg); err != nil {
		return nil, fmt.Errorf("read env: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate évite de démarrer avec une config cassée.
func (c *Config) Validate() error {
	var errs []error

	if c.PageSize <= 0 {
		errs = append(errs, fmt.Errorf("PAGE_SIZE must be positive, got %d", c.PageSize))
	}

	switch c.Broker {
	case BrokerNone, BrokerNats, BrokerRedis:
	default:
		errs = append(errs, fmt.Errorf("BROKER must be one of none|nats|redis, got %q", c.Broker))
	}

	if _, err := c.Storage(); err != nil {
		errs = append(errs, err)
	}

	if (c.RSAPrivateKeyPath == "") != (c.RSAPublicKeyPath == "") {
		errs = append(errs, errors.New("RSA_PRIVATE_KEY_PATH and RSA_PUBLIC_KEY_PATH must be set together"))
	}

	if c.IsProd() {
		if c.DBUrl == "" || c.DBUrl == "memory" {
			errs = append(errs, errors.New("DB_URL must point to Postgres in production"))
		}
		if c.JWTSecret == "" && c.RSAPrivateKeyPath == "" {
			errs = append(errs, errors.New("JWT_SECRET or RSA key paths are required in production"))
		}
	}

	return errors.Join(errs...)
}

func (c *Config) IsProd() bool {
	return c.Env == "prod"
}

func (c *Config) UsesMemoryDB() bool {
	return c.DBUrl == "" || c.DBUrl == "memory"
}

func (c *Config) UsesRSA() bool {
	return c.RSAPrivateKeyPath != "" && c.RSAPublicKeyPath != ""
}

// Storage décode STORAGE_URL : "memory", "file://<dir>" ou "s3://<bucket>".
func (c *Config) Storage() (Storage, error) {
	raw := strings.TrimSpace(c.StorageURL)
	if raw == "" || raw == StorageMemory {
		return Storage{Kind: StorageMemory}, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return Storage{}, fmt.Errorf("invalid STORAGE_URL %q: %w", raw, err)
	}

	switch u.Scheme {
	case StorageFile:
		// file://./data -> host "." + path "/data" ; file:///var/data -> path absolu
		dir := u.Host + u.Path
		if dir == "" {
			return Storage{}, fmt.Errorf("STORAGE_URL %q has no directory", raw)
		}
		return Storage{Kind: StorageFile, Location: dir}, nil
	case StorageS3:
		if u.Host == "" {
			return Storage{}, fmt.Errorf("STORAGE_URL %q has no bucket", raw)
		}
		return Storage{Kind: StorageS3, Location: u.Host}, nil
	default:
		return Storage{}, fmt.Errorf("unsupported STORAGE_URL scheme %q", u.Scheme)
	}
}

// String masque les secrets (le config est logué au démarrage).
func (c Config) String() string {
	return fmt.Sprintf("{env:%s service:%s port:%s db:%s storage:%s broker:%s page_size:%d tracing:%t}",
		c.Env, c.ServiceName, c.HTTPPort, redactURL(c.DBUrl), c.StorageURL, c.Broker, c.PageSize, c.TracingEnabled)
}

func redactURL(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.User == nil {
		return raw
	}
	return u.Redacted()
}
