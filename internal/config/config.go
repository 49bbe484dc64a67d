package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates all runtime settings required by the application.
type Config struct {
	AppName     string
	Environment string
	HTTP        HTTPConfig
	Storage     StorageConfig
	Database    DatabaseConfig
	Redis       RedisConfig
	Auth        AuthConfig
	Broker      BrokerConfig
	Outbox      OutboxConfig
	Context     ContextConfig
	Logger      LoggerConfig
	Migrations  MigrationsConfig
}

type HTTPConfig struct {
	Host         string
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	MaxConn      int
}

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"
)

// StorageConfig selects where aggregates and sessions live. The memory driver
// needs neither postgres nor redis.
type StorageConfig struct {
	Driver string
}

type DatabaseConfig struct {
	URL             string
	Host            string
	Port            string
	Name            string
	User            string
	Password        string
	MaxOpenConns    int
	MaxIdleConns    int
	MaxConnLifetime time.Duration
	SSLMode         string
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret  string
	JWTIssuer  string
	TokenTTL   time.Duration
	BcryptCost int
}

const (
	BrokerMemory = "memory"
	BrokerNATS   = "nats"
	BrokerRedis  = "redis"
)

type BrokerConfig struct {
	Driver               string
	URL                  string
	Exchange             string
	RoutingPrefix        string
	QueueSize            int
	QueueUserCreatedLog  string
	QueueUserCreatedPets string
}

// OutboxConfig controls the optional bbolt-backed outbox. When disabled a
// failed broker publish is returned to the caller.
type OutboxConfig struct {
	Enabled       bool
	Path          string
	SyncInterval  time.Duration
	BatchSize     int
	MaxRetry      int
	DeadLetterTTL time.Duration
}

type ContextConfig struct {
	RequestTimeout  time.Duration
	ShutdownTimeout time.Duration
}

type LoggerConfig struct {
	Level    string
	Encoding string
}

type MigrationsConfig struct {
	Enabled bool
	Path    string
}

// Load reads configuration from environment variables (optionally .env)
// and applies sane defaults so the service can boot in any environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		AppName:     getString("APP_NAME", "pets"),
		Environment: getString("APP_ENV", "development"),
		HTTP: HTTPConfig{
			Host:         getString("SERVER_HOST", "0.0.0.0"),
			Port:         getString("SERVER_PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 10*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
			MaxConn:      getInt("SERVER_MAX_CONN", 0),
		},
		Storage: StorageConfig{
			Driver: strings.ToLower(getString("STORAGE_DRIVER", StoragePostgres)),
		},
		Database: DatabaseConfig{
			URL:             os.Getenv("DATABASE_URL"),
			Host:            getString("DB_HOST", "localhost"),
			Port:            getString("DB_PORT", "5432"),
			Name:            getString("DB_NAME", "pets"),
			User:            getString("DB_USER", "pets"),
			Password:        os.Getenv("DB_PASSWORD"),
			MaxOpenConns:    getInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getInt("DB_MAX_IDLE_CONNS", 10),
			MaxConnLifetime: getDuration("DB_CONN_LIFETIME", time.Hour),
			SSLMode:         getString("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			URL:      getString("REDIS_URL", "redis://localhost:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret:  os.Getenv("JWT_SECRET"),
			JWTIssuer:  getString("JWT_ISSUER", "pets"),
			TokenTTL:   getDuration("JWT_TTL", time.Hour),
			BcryptCost: getInt("BCRYPT_COST", 0),
		},
		Broker: BrokerConfig{
			Driver:               strings.ToLower(getString("BROKER_DRIVER", BrokerMemory)),
			URL:                  os.Getenv("BROKER_URL"),
			Exchange:             getString("BROKER_EXCHANGE", "domain-events"),
			RoutingPrefix:        getString("BROKER_ROUTING_PREFIX", "events"),
			QueueSize:            getInt("BROKER_QUEUE_SIZE", 256),
			QueueUserCreatedLog:  getString("QUEUE_USER_CREATED_LOG", "user-created-log.q"),
			QueueUserCreatedPets: getString("QUEUE_USER_CREATED_PETS", "user-created-pets.q"),
		},
		Outbox: OutboxConfig{
			Enabled:       getBool("OUTBOX_ENABLED", false),
			Path:          getString("OUTBOX_PATH", "./data/outbox.db"),
			SyncInterval:  getDuration("OUTBOX_SYNC_INTERVAL", 30*time.Second),
			BatchSize:     getInt("OUTBOX_BATCH_SIZE", 50),
			MaxRetry:      getInt("OUTBOX_MAX_RETRY", 5),
			DeadLetterTTL: getDuration("OUTBOX_DEAD_LETTER_TTL", 72*time.Hour),
		},
		Context: ContextConfig{
			RequestTimeout:  getDuration("REQUEST_TIMEOUT_SECONDS", 5*time.Second),
			ShutdownTimeout: getDuration("SHUTDOWN_TIMEOUT_SECONDS", 15*time.Second),
		},
		Logger: LoggerConfig{
			Level:    getString("LOG_LEVEL", "info"),
			Encoding: getString("LOG_ENCODING", "json"),
		},
		Migrations: MigrationsConfig{
			Enabled: getBool("RUN_MIGRATIONS", true),
			Path:    getString("MIGRATIONS_PATH", "./assets/migrations"),
		},
	}

	if cfg.Database.URL == "" {
		cfg.Database.URL = buildPostgresURL(cfg.Database)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// MustLoad panics if configuration cannot be loaded.
func MustLoad() *Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Validate rejects driver names the server cannot wire and a missing JWT secret.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	default:
		return fmt.Errorf("unknown STORAGE_DRIVER %q", c.Storage.Driver)
	}
	switch c.Broker.Driver {
	case BrokerMemory:
	case BrokerNATS, BrokerRedis:
		if c.Broker.Driver == BrokerNATS && c.Broker.URL == "" {
			return fmt.Errorf("BROKER_URL is required for the nats broker")
		}
	default:
		return fmt.Errorf("unknown BROKER_DRIVER %q", c.Broker.Driver)
	}
	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}
	return nil
}

// NeedsRedis reports whether any component talks to redis.
func (c *Config) NeedsRedis() bool {
	return c.Storage.Driver == StoragePostgres || c.Broker.Driver == BrokerRedis
}

func buildPostgresURL(db DatabaseConfig) string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		db.User,
		db.Password,
		db.Host,
		db.Port,
		db.Name,
		db.SSLMode,
	)
}

func getString(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if val := os.Getenv(key); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			return parsed
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if parsed, err := time.ParseDuration(val); err == nil {
			return parsed
		}
		if seconds, err := strconv.Atoi(val); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return fallback
}

// Address returns the HTTP listen address for the fasthttp server.
func (c *Config) Address() string {
	return fmt.Sprintf("%s:%s", c.HTTP.Host, c.HTTP.Port)
}
