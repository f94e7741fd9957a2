package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	appGrpcEndpoint   = "GRPC_ENDPOINT"
	appHttpEndpoint   = "HTTP_ENDPOINT"
	appDBAddress      = "DB_ADDRESS"
	appMigrationsPath = "MIGRATIONS_PATH"
	appBaseURL        = "BASE_URL"
	appErrorPageURL   = "ERROR_PAGE_URL"
	appLogLevel       = "LOG_LEVEL"
)

const (
	redisAddr       = "REDIS_ADDRESS"
	redisPoolSize   = "REDIS_POOL_SIZE"
	redisCodePrefix = "REDIS_CODE_PREFIX"
)

const (
	rateLimiterKeyPrefix    = "RATE_LIMIT_KEY_PREFIX"
	rateLimiterCapacity     = "RATE_LIMIT_CAPACITY"
	rateLimiterRefillRate   = "RATE_LIMIT_REFILL_RATE"
	rateLimiterRefillPeriod = "RATE_LIMIT_REFILL_PERIOD"
)

const (
	shortenerMaxRetries        = "SHORTENER_MAX_RETRIES"
	shortenerBackgroundTimeout = "SHORTENER_BACKGROUND_TIMEOUT"
)

type AppSettings struct {
	GrpcEndpoint   string
	HttpEndpoint   string
	DBAddress      string
	MigrationsPath string
	// BaseURL prefixes issued codes, e.g. "http://localhost:8080/".
	BaseURL string
	// ErrorPageURL is where unresolvable codes are redirected.
	ErrorPageURL string
	LogLevel     slog.Level
}

type Redis struct {
	Addr       string
	CodePrefix string
	PoolSize   int
}

type RateLimiter struct {
	KeyPrefix    string        // Redis key prefix
	Capacity     int           // Maximum tokens in bucket
	RefillRate   int           // Tokens added per period
	RefillPeriod time.Duration // How often to refill tokens
}

type Shortener struct {
	// MaxRetries is the number of extra reservation attempts after the first collision.
	MaxRetries int
	// BackgroundTimeout bounds each detached analytics or directory write.
	BackgroundTimeout time.Duration
}

type Config struct {
	App         AppSettings
	Redis       Redis
	RateLimiter RateLimiter
	Shortener   Shortener
}

// Load reads the configuration from the environment. A .env file in the
// working directory is loaded first when present.
func Load() (Config, error) {
	_ = godotenv.Load()
	return fromEnv(os.LookupEnv)
}

func fromEnv(lookup func(string) (string, bool)) (Config, error) {
	e := env{lookup: lookup}

	cfg := Config{
		App: AppSettings{
			GrpcEndpoint:   e.getString(appGrpcEndpoint, "localhost:8081"),
			HttpEndpoint:   e.getString(appHttpEndpoint, "localhost:8080"),
			DBAddress:      e.getString(appDBAddress, "postgres://ndev:@localhost:5432/tinyurl?sslmode=disable"),
			MigrationsPath: e.getString(appMigrationsPath, "file://.migrations"),
			BaseURL:        e.getString(appBaseURL, "http://localhost:8080/"),
			ErrorPageURL:   e.getString(appErrorPageURL, "/notfound"),
			LogLevel:       e.getLevel(appLogLevel, slog.LevelInfo),
		},
		Redis: Redis{
			Addr:       e.getString(redisAddr, "localhost:6379"),
			PoolSize:   e.getInt(redisPoolSize, 10),
			CodePrefix: e.getString(redisCodePrefix, "tiny"),
		},
		RateLimiter: RateLimiter{
			KeyPrefix:    e.getString(rateLimiterKeyPrefix, "ratelimit:"),
			Capacity:     e.getInt(rateLimiterCapacity, 10),
			RefillRate:   e.getInt(rateLimiterRefillRate, 40),
			RefillPeriod: e.getDuration(rateLimiterRefillPeriod, time.Second),
		},
		Shortener: Shortener{
			MaxRetries:        e.getInt(shortenerMaxRetries, 4),
			BackgroundTimeout: e.getDuration(shortenerBackgroundTimeout, 2*time.Second),
		},
	}
	if e.err != nil {
		return Config{}, e.err
	}

	if !strings.HasSuffix(cfg.App.BaseURL, "/") {
		cfg.App.BaseURL += "/"
	}
	if cfg.Shortener.MaxRetries < 0 {
		return Config{}, fmt.Errorf("config: %s must not be negative", shortenerMaxRetries)
	}
	if cfg.RateLimiter.RefillPeriod < time.Second {
		return Config{}, fmt.Errorf("config: %s must be at least 1s", rateLimiterRefillPeriod)
	}
	return cfg, nil
}

// env collects the first parse error so Load can report it once.
type env struct {
	lookup func(string) (string, bool)
	err    error
}

func (e *env) getString(key, fallback string) string {
	if v, ok := e.lookup(key); ok && v != "" {
		return v
	}
	return fallback
}

func (e *env) getInt(key string, fallback int) int {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, err)
		return fallback
	}
	return n
}

func (e *env) getDuration(key string, fallback time.Duration) time.Duration {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, err)
		return fallback
	}
	return d
}

func (e *env) getLevel(key string, fallback slog.Level) slog.Level {
	v, ok := e.lookup(key)
	if !ok || v == "" {
		return fallback
	}
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		e.fail(key, err)
		return fallback
	}
	return l
}

func (e *env) fail(key string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("config: invalid %s: %w", key, err)
	}
}
