package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// ErrMissingSigningSecret is returned when AUTH_JWT_SECRET is not set. The
// server must not start without it.
var ErrMissingSigningSecret = errors.New("AUTH_JWT_SECRET is required")

// Presence backends.
const (
	PresenceBackendRedis    = "redis"
	PresenceBackendPostgres = "postgres"
	PresenceBackendMemory   = "memory"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Postgres PostgresConfig
	Redis    RedisConfig
	Logger   LoggerConfig
	Auth     AuthConfig
	Presence PresenceConfig
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
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// AuthConfig defines session credential parameters.
type AuthConfig struct {
	JWTSecret       string
	TokenTTLMinutes int
	BcryptCost      int
	CookieName      string
	CookieSecure    bool
	SeedUsername    string
	SeedPassword    string
	SeedRole        string
}

// PresenceConfig controls the presence store.
type PresenceConfig struct {
	Backend         string
	StalenessWindow time.Duration
	SweepInterval   time.Duration
	RatePerSecond   float64
	RateBurst       int
}

// ClientConfig configures the heartbeat client.
type ClientConfig struct {
	ServerURL      string
	Token          string
	Interval       time.Duration
	RequestTimeout time.Duration
	CookieName     string
	LogLevel       string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	secret := strings.TrimSpace(os.Getenv("AUTH_JWT_SECRET"))
	if secret == "" {
		return nil, ErrMissingSigningSecret
	}

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	window, err := getEnvAsDuration("PRESENCE_STALENESS_WINDOW", 5*time.Minute)
	if err != nil {
		return nil, err
	}
	sweep, err := getEnvAsDuration("PRESENCE_SWEEP_INTERVAL", time.Minute)
	if err != nil {
		return nil, err
	}

	backend := strings.ToLower(getEnv("PRESENCE_BACKEND", PresenceBackendRedis))
	switch backend {
	case PresenceBackendRedis, PresenceBackendPostgres, PresenceBackendMemory:
	default:
		return nil, fmt.Errorf("invalid PRESENCE_BACKEND %q", backend)
	}

	dsn := os.Getenv("POSTGRES_DSN")
	if backend == PresenceBackendPostgres && dsn == "" {
		return nil, errors.New("PRESENCE_BACKEND=postgres requires POSTGRES_DSN")
	}

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "web-toko"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            dsn,
			MaxConns:       int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10)),
			MinConns:       int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2)),
			RunMigrations:  getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true),
			ConnMaxIdleSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30)),
			ConnMaxLifeSec: int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Auth: AuthConfig{
			JWTSecret:       secret,
			TokenTTLMinutes: getEnvAsInt("AUTH_TOKEN_TTL_MINUTES", 60*24),
			BcryptCost:      getEnvAsInt("AUTH_BCRYPT_COST", 12),
			CookieName:      getEnv("AUTH_COOKIE_NAME", "token"),
			CookieSecure:    getEnvAsBool("AUTH_COOKIE_SECURE", false),
			SeedUsername:    getEnv("AUTH_SEED_USERNAME", ""),
			SeedPassword:    os.Getenv("AUTH_SEED_PASSWORD"),
			SeedRole:        getEnv("AUTH_SEED_ROLE", "admin"),
		},
		Presence: PresenceConfig{
			Backend:         backend,
			StalenessWindow: window,
			SweepInterval:   sweep,
			RatePerSecond:   getEnvAsFloat("PRESENCE_RATE_PER_SECOND", 1),
			RateBurst:       getEnvAsInt("PRESENCE_RATE_BURST", 5),
		},
	}

	return cfg, nil
}

// LoadClient reads heartbeat client configuration.
func LoadClient() (*ClientConfig, error) {
	_ = godotenv.Load()

	interval, err := getEnvAsDuration("HEARTBEAT_INTERVAL", 30*time.Second)
	if err != nil {
		return nil, err
	}
	timeout, err := getEnvAsDuration("HEARTBEAT_REQUEST_TIMEOUT", 5*time.Second)
	if err != nil {
		return nil, err
	}

	return &ClientConfig{
		ServerURL:      strings.TrimRight(getEnv("HEARTBEAT_SERVER_URL", "http://127.0.0.1:8080"), "/"),
		Token:          os.Getenv("HEARTBEAT_TOKEN"),
		Interval:       interval,
		RequestTimeout: timeout,
		CookieName:     getEnv("AUTH_COOKIE_NAME", "token"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
	}, nil
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

// TokenTTL returns the lifetime of issued session credentials.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.TokenTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
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

func getEnvAsFloat(key string, fallback float64) float64 {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseFloat(val, 64)
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

// getEnvAsDuration is strict: a malformed duration is a configuration error.
func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	val := os.Getenv(key)
	if val == "" {
		return fallback, nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("%s has invalid duration %q: %w", key, val, err)
	}
	if parsed <= 0 {
		return 0, fmt.Errorf("%s must be positive, got %s", key, val)
	}
	return parsed, nil
}
