package configs

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	Redis     RedisConfig
	Log       LogConfig
	RateLimit RateLimitConfig
	Client    ClientConfig
	Cache     CacheConfig
	Retry     RetryConfig
	Locale    LocaleConfig
	Toast     ToastConfig
}

type ServerConfig struct {
	Host           string
	Port           string
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	IdleTimeout    time.Duration
	TLSCertFile    string
	TLSKeyFile     string
	AllowedOrigins []string
	Environment    string
	MigrationsPath string
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	DSN      string
	// Connection pool settings
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

type JWTConfig struct {
	Secret         string
	Issuer         string
	AccessTokenTTL time.Duration
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
	// Pool and timeout settings
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	PoolTimeout  time.Duration
	IdleTimeout  time.Duration
	// TTLs of the server-side cache-aside layer
	PlanCacheTTL      time.Duration
	DirectoryCacheTTL time.Duration
}

type LogConfig struct {
	Level  string
	Format string // json or text
}

type RateLimitConfig struct {
	RequestsPerMinute int
	Window            time.Duration
	KeyPrefix         string
}

// ClientConfig points the client engine at the billing API.
type ClientConfig struct {
	BaseURL        string
	AccessToken    string
	RequestTimeout time.Duration
}

// CacheConfig holds the staleness and GC windows of the client cache.
type CacheConfig struct {
	StaleTime          time.Duration
	StaticStaleTime    time.Duration
	GCTime             time.Duration
	RefetchOnMount     bool
	RefetchOnFocus     bool
	RefetchOnReconnect bool
}

type RetryConfig struct {
	ReadRetries  int
	WriteRetries int
	BaseDelay    time.Duration
	MaxDelay     time.Duration
}

type LocaleConfig struct {
	Default string
	// Dir optionally overrides the embedded bundles with <locale>.json files.
	Dir string
}

type ToastConfig struct {
	DefaultDuration time.Duration
	Limit           int
}

func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnv("SERVER_PORT", "8080"),
			ReadTimeout:    getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:   getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:    getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			TLSCertFile:    getEnv("TLS_CERT_FILE", ""),
			TLSKeyFile:     getEnv("TLS_KEY_FILE", ""),
			AllowedOrigins: getListEnv("ALLOWED_ORIGINS", []string{"*"}),
			Environment:    getEnv("ENVIRONMENT", "development"),
			MigrationsPath: getEnv("MIGRATIONS_PATH", "./migrations"),
		},
		Database: DatabaseConfig{
			Host:            getEnv("DB_HOST", "localhost"),
			Port:            getEnv("DB_PORT", "5432"),
			User:            getEnv("DB_USER", "postgres"),
			Password:        getEnv("DB_PASSWORD", "postgres"),
			DBName:          getEnv("DB_NAME", "marketplace"),
			SSLMode:         getEnv("DB_SSL_MODE", "disable"),
			MaxOpenConns:    getIntEnv("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns:    getIntEnv("DB_MAX_IDLE_CONNS", 25),
			ConnMaxLifetime: getDurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
			ConnMaxIdleTime: getDurationEnv("DB_CONN_MAX_IDLE_TIME", 5*time.Minute),
		},
		JWT: JWTConfig{
			Secret:         getEnv("JWT_SECRET", ""),
			Issuer:         getEnv("JWT_ISSUER", "services-marketplace"),
			AccessTokenTTL: getDurationEnv("JWT_ACCESS_TTL", 24*time.Hour),
		},
		Redis: RedisConfig{
			Host:              getEnv("REDIS_HOST", "localhost"),
			Port:              getEnv("REDIS_PORT", "6379"),
			Password:          getEnv("REDIS_PASSWORD", ""),
			DB:                getIntEnv("REDIS_DB", 0),
			PoolSize:          getIntEnv("REDIS_POOL_SIZE", 10),
			MinIdleConns:      getIntEnv("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:       getDurationEnv("REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:       getDurationEnv("REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout:      getDurationEnv("REDIS_WRITE_TIMEOUT", 3*time.Second),
			PoolTimeout:       getDurationEnv("REDIS_POOL_TIMEOUT", 4*time.Second),
			IdleTimeout:       getDurationEnv("REDIS_IDLE_TIMEOUT", 5*time.Minute),
			PlanCacheTTL:      getDurationEnv("REDIS_PLAN_CACHE_TTL", 10*time.Minute),
			DirectoryCacheTTL: getDurationEnv("REDIS_DIRECTORY_CACHE_TTL", 30*time.Minute),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "json"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerMinute: getIntEnv("RATE_LIMIT_RPM", 120),
			Window:            getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
			KeyPrefix:         getEnv("RATE_LIMIT_KEY_PREFIX", "ratelimit:provider"),
		},
		Client: ClientConfig{
			BaseURL:        getEnv("API_BASE_URL", "http://localhost:8080/api/v1"),
			AccessToken:    getEnv("API_TOKEN", ""),
			RequestTimeout: getDurationEnv("API_REQUEST_TIMEOUT", 30*time.Second),
		},
		Cache: CacheConfig{
			StaleTime:          getDurationEnv("CACHE_STALE_TIME", 5*time.Minute),
			StaticStaleTime:    getDurationEnv("CACHE_STATIC_STALE_TIME", 30*time.Minute),
			GCTime:             getDurationEnv("CACHE_GC_TIME", 10*time.Minute),
			RefetchOnMount:     getBoolEnv("CACHE_REFETCH_ON_MOUNT", true),
			RefetchOnFocus:     getBoolEnv("CACHE_REFETCH_ON_FOCUS", false),
			RefetchOnReconnect: getBoolEnv("CACHE_REFETCH_ON_RECONNECT", true),
		},
		Retry: RetryConfig{
			ReadRetries:  getIntEnv("RETRY_READ_MAX", 3),
			WriteRetries: getIntEnv("RETRY_WRITE_MAX", 2),
			BaseDelay:    getDurationEnv("RETRY_BASE_DELAY", time.Second),
			MaxDelay:     getDurationEnv("RETRY_MAX_DELAY", 30*time.Second),
		},
		Locale: LocaleConfig{
			Default: getEnv("LOCALE_DEFAULT", "en"),
			Dir:     getEnv("LOCALE_DIR", ""),
		},
		Toast: ToastConfig{
			DefaultDuration: getDurationEnv("TOAST_DURATION", 5*time.Second),
			Limit:           getIntEnv("TOAST_LIMIT", 5),
		},
	}

	// Build database DSN
	cfg.Database.DSN = fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.User,
		cfg.Database.Password,
		cfg.Database.DBName,
		cfg.Database.SSLMode,
	)

	if cfg.Cache.GCTime < cfg.Cache.StaleTime {
		return nil, fmt.Errorf("CACHE_GC_TIME (%s) must not be shorter than CACHE_STALE_TIME (%s)", cfg.Cache.GCTime, cfg.Cache.StaleTime)
	}
	return cfg, nil
}

// ValidateServer checks the settings only the billing API server needs, so
// client tooling can run without them.
func (c *Config) ValidateServer() error {
	var errs []error
	if c.JWT.Secret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Database.Host == "" || c.Database.DBName == "" {
		errs = append(errs, errors.New("DB_HOST and DB_NAME are required"))
	}
	if c.RateLimit.RequestsPerMinute <= 0 {
		errs = append(errs, errors.New("RATE_LIMIT_RPM must be positive"))
	}
	return errors.Join(errs...)
}

// NewLogger builds the process logger from the log settings.
func (c LogConfig) NewLogger() *logrus.Logger {
	logger := logrus.New()
	if strings.EqualFold(c.Format, "text") {
		logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		logger.SetFormatter(&logrus.JSONFormatter{})
	}
	level, err := logrus.ParseLevel(c.Level)
	if err != nil {
		logger.SetLevel(logrus.InfoLevel)
	} else {
		logger.SetLevel(level)
	}
	return logger
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getListEnv(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
