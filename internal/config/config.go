package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// OwnerPolicy decides who owns a request when it is created.
type OwnerPolicy string

const (
	// OwnerPolicyDefaultSelf uses the creator when no owner is supplied.
	OwnerPolicyDefaultSelf OwnerPolicy = "default_self"
	// OwnerPolicyExplicit requires an owner in every create payload.
	OwnerPolicyExplicit OwnerPolicy = "explicit"
	// OwnerPolicyForceSelf always makes the creator the owner.
	OwnerPolicyForceSelf OwnerPolicy = "force_self"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Board    BoardConfig
	Broker   BrokerConfig
	CORS     CORSConfig
	Requests RequestsConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	MigrationsDir  string
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values. An empty Addr disables Redis.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines authentication parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
	BcryptCost            int
}

// BoardConfig tunes the board read path.
type BoardConfig struct {
	CacheTTLSeconds int
	CachePrefix     string
}

// BrokerConfig points at the RabbitMQ event feed. An empty URL disables it.
type BrokerConfig struct {
	URL                 string
	Queue               string
	BufferSize          int
	DialTimeoutSeconds  int
	RetryBackoffSeconds int
}

// CORSConfig lists browser origins allowed to call the API.
type CORSConfig struct {
	AllowOrigins string
}

// RequestsConfig holds request lifecycle policy knobs.
type RequestsConfig struct {
	OwnerPolicy OwnerPolicy
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	policy, err := ParseOwnerPolicy(getEnv("REQUEST_OWNER_POLICY", string(OwnerPolicyDefaultSelf)))
	if err != nil {
		return nil, err
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "opsboard"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "4000"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            firstEnv("POSTGRES_DSN", "DATABASE_URL"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			MigrationsDir:  getEnv("POSTGRES_MIGRATIONS_DIR", "migrations"),
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", getEnv("JWT_SECRET", "dev-secret")),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 7*24*60),
			BcryptCost:            getEnvAsInt("AUTH_BCRYPT_COST", 12),
		},
		Board: BoardConfig{
			CacheTTLSeconds: getEnvAsInt("BOARD_CACHE_TTL_SECONDS", 5),
			CachePrefix:     getEnv("BOARD_CACHE_PREFIX", "opsboard"),
		},
		Broker: BrokerConfig{
			URL:                 firstEnv("RABBITMQ_URL", "AMQP_URL"),
			Queue:               getEnv("RABBITMQ_QUEUE", "opsboard.request.events"),
			BufferSize:          getEnvAsInt("RABBITMQ_BUFFER_SIZE", 256),
			DialTimeoutSeconds:  getEnvAsInt("RABBITMQ_DIAL_TIMEOUT_SECONDS", 5),
			RetryBackoffSeconds: getEnvAsInt("RABBITMQ_RETRY_BACKOFF_SECONDS", 10),
		},
		CORS: CORSConfig{
			AllowOrigins: getEnv("CORS_ORIGIN", "http://localhost:5173"),
		},
		Requests: RequestsConfig{
			OwnerPolicy: policy,
		},
	}

	if cfg.App.Env == "production" && cfg.Auth.JWTSecret == "dev-secret" {
		return nil, fmt.Errorf("AUTH_JWT_SECRET must be set in production")
	}

	return cfg, nil
}

// ParseOwnerPolicy validates a policy name.
func ParseOwnerPolicy(raw string) (OwnerPolicy, error) {
	switch p := OwnerPolicy(strings.ToLower(strings.TrimSpace(raw))); p {
	case OwnerPolicyDefaultSelf, OwnerPolicyExplicit, OwnerPolicyForceSelf:
		return p, nil
	default:
		return "", fmt.Errorf("invalid REQUEST_OWNER_POLICY %q", raw)
	}
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// AccessTokenTTL returns the bearer token lifetime.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
}

// CacheTTL returns how long a board snapshot stays cached; zero disables caching.
func (b BoardConfig) CacheTTL() time.Duration {
	if b.CacheTTLSeconds <= 0 {
		return 0
	}
	return time.Duration(b.CacheTTLSeconds) * time.Second
}

// DialTimeout bounds the TCP connect plus AMQP handshake.
func (b BrokerConfig) DialTimeout() time.Duration {
	if b.DialTimeoutSeconds <= 0 {
		return 5 * time.Second
	}
	return time.Duration(b.DialTimeoutSeconds) * time.Second
}

// RetryBackoff is how long publishing is skipped after a failed connect.
func (b BrokerConfig) RetryBackoff() time.Duration {
	if b.RetryBackoffSeconds < 0 {
		return 0
	}
	return time.Duration(b.RetryBackoffSeconds) * time.Second
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if val := os.Getenv(key); val != "" {
			return val
		}
	}
	return ""
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
