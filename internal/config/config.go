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

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Auth         AuthConfig
	Notification NotificationConfig
	Classifier   ClassifierConfig
	Dispatcher   DispatcherConfig
	Rules        RulesConfig
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

// PostgresConfig holds DB connection values. An empty DSN selects the in-memory stores.
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
	Enabled  bool
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level       string
	Name        string
	Development bool
}

// AuthConfig defines token verification parameters.
type AuthConfig struct {
	JWTSecret             string
	AccessTokenTTLMinutes int
}

// NotificationConfig controls safety-advice fan-out.
type NotificationConfig struct {
	ChannelPrefix     string
	HeartbeatInterval time.Duration
}

// ClassifierConfig selects and tunes the language-model backend.
type ClassifierConfig struct {
	Provider        string
	BaseURL         string
	Model           string
	AnthropicAPIKey string
	AnthropicModel  string
	MaxTokens       int
	Timeout         time.Duration
	RatePerSecond   float64
	Burst           int
}

// DispatcherConfig tunes the analysis poller.
type DispatcherConfig struct {
	Enabled      bool
	PollInterval time.Duration
	BatchSize    int
	Concurrency  int
}

// RulesConfig points at the complexity rule catalog and the optional agent roster.
type RulesConfig struct {
	Path       string
	RosterPath string
}

const (
	ProviderOllama    = "ollama"
	ProviderAnthropic = "anthropic"
)

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	batchSize := getEnvAsInt("DISPATCHER_BATCH_SIZE", 10)
	appName := getEnv("APP_NAME", "dispatch-service")
	appEnv := getEnv("APP_ENV", "development")

	cfg := &Config{
		App: AppConfig{
			Name:                  appName,
			Env:                   appEnv,
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
			Enabled:  getEnvAsBool("REDIS_ENABLED", true),
		},
		Logger: LoggerConfig{
			Level:       getEnv("LOG_LEVEL", "info"),
			Name:        appName,
			Development: appEnv == "development",
		},
		Auth: AuthConfig{
			JWTSecret:             getEnv("AUTH_JWT_SECRET", "dev-secret"),
			AccessTokenTTLMinutes: getEnvAsInt("AUTH_ACCESS_TOKEN_TTL_MINUTES", 60),
		},
		Notification: NotificationConfig{
			ChannelPrefix:     getEnv("NOTIFY_CHANNEL_PREFIX", "service_request:"),
			HeartbeatInterval: getEnvAsDuration("NOTIFY_SSE_HEARTBEAT", 15*time.Second),
		},
		Classifier: ClassifierConfig{
			Provider:        strings.ToLower(getEnv("CLASSIFIER_PROVIDER", ProviderOllama)),
			BaseURL:         getEnv("CLASSIFIER_BASE_URL", "http://localhost:11434"),
			Model:           getEnv("CLASSIFIER_MODEL", "llama3.1"),
			AnthropicAPIKey: os.Getenv("ANTHROPIC_API_KEY"),
			AnthropicModel:  getEnv("CLASSIFIER_ANTHROPIC_MODEL", "claude-3-5-haiku-latest"),
			MaxTokens:       getEnvAsInt("CLASSIFIER_MAX_TOKENS", 1024),
			Timeout:         getEnvAsDuration("CLASSIFIER_TIMEOUT", 30*time.Second),
			RatePerSecond:   getEnvAsFloat("CLASSIFIER_RATE_PER_SEC", 2),
			Burst:           getEnvAsInt("CLASSIFIER_BURST", 4),
		},
		Dispatcher: DispatcherConfig{
			Enabled:      getEnvAsBool("DISPATCHER_ENABLED", true),
			PollInterval: getEnvAsDuration("DISPATCHER_POLL_INTERVAL", 5*time.Second),
			BatchSize:    batchSize,
			Concurrency:  getEnvAsInt("DISPATCHER_CONCURRENCY", batchSize),
		},
		Rules: RulesConfig{
			Path:       os.Getenv("RULES_PATH"),
			RosterPath: os.Getenv("AGENTS_PATH"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects values the dispatcher or classifier cannot run with.
func (c *Config) Validate() error {
	var errs []error
	if c.Dispatcher.PollInterval <= 0 {
		errs = append(errs, errors.New("DISPATCHER_POLL_INTERVAL must be positive"))
	}
	if c.Dispatcher.BatchSize <= 0 {
		errs = append(errs, errors.New("DISPATCHER_BATCH_SIZE must be positive"))
	}
	if c.Dispatcher.Concurrency <= 0 {
		errs = append(errs, errors.New("DISPATCHER_CONCURRENCY must be positive"))
	}
	if c.Classifier.Timeout <= 0 {
		errs = append(errs, errors.New("CLASSIFIER_TIMEOUT must be positive"))
	}
	if c.Classifier.RatePerSecond <= 0 || c.Classifier.Burst <= 0 {
		errs = append(errs, errors.New("CLASSIFIER_RATE_PER_SEC and CLASSIFIER_BURST must be positive"))
	}
	switch c.Classifier.Provider {
	case ProviderOllama:
	case ProviderAnthropic:
		if c.Classifier.AnthropicAPIKey == "" {
			errs = append(errs, errors.New("ANTHROPIC_API_KEY is required for the anthropic provider"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown CLASSIFIER_PROVIDER %q", c.Classifier.Provider))
	}
	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("AUTH_JWT_SECRET must not be empty"))
	}
	return errors.Join(errs...)
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

// AccessTokenTTL returns the lifetime of minted tokens.
func (a AuthConfig) AccessTokenTTL() time.Duration {
	return time.Duration(a.AccessTokenTTLMinutes) * time.Minute
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

// getEnvAsDuration accepts Go duration strings ("5s") or bare seconds ("5").
func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	if parsed, err := time.ParseDuration(val); err == nil {
		return parsed
	}
	if secs, err := strconv.Atoi(val); err == nil {
		return time.Duration(secs) * time.Second
	}
	return fallback
}
