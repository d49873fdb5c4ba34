package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
)

// Cache backend constants
const (
	CacheBackendMemory = "memory"
	CacheBackendRedis  = "redis"
)

type Config struct {
	// Server settings
	ServerAddr string
	BaseURL    string

	// Session settings
	SessionSecret string
	SessionName   string

	// Crowd server
	CrowdURL                string // part before "rest/usermanagement/1"
	CrowdApplication        string
	CrowdPassword           string
	CrowdTimeout            time.Duration
	CrowdSessionTimeout     time.Duration
	CrowdInsecureSkipVerify bool
	CrowdCACertFile         string
	CrowdMaxRetries         int // 0 disables retries
	CrowdRetryDelay         time.Duration
	CrowdMaxRetryDelay      time.Duration

	// Login strategy
	UsernameField  string // request body field, bracket syntax for nesting
	PasswordField  string
	RetrieveGroups bool
	NestedGroups   bool

	// Session validation cache
	CacheBackend    string // "memory" or "redis"
	SessionCacheTTL time.Duration
	RedisAddr       string
	RedisPassword   string
	RedisDB         int

	// Database (audit log)
	DatabaseDriver string // "sqlite" or "postgres"
	DatabaseDSN    string
	AuditEnabled   bool
	AuditBuffer    int
	AuditRetention time.Duration // 0 keeps logs forever

	// Metrics
	MetricsEnabled bool
	MetricsToken   string // optional Bearer token protecting /metrics

	// Rate limiting
	LoginRateLimit int // login attempts per minute per IP, 0 disables
}

func Load() *Config {
	// Load .env file if exists (ignore error if not found)
	_ = godotenv.Load()

	// Determine database driver and DSN
	driver := getEnv("DATABASE_DRIVER", "sqlite")
	var dsn string
	if driver == "sqlite" {
		dsn = getEnv("DATABASE_DSN", "crowdgate.db")
	} else {
		dsn = getEnv("DATABASE_DSN", "")
	}

	return &Config{
		ServerAddr:    getEnv("SERVER_ADDR", ":8080"),
		BaseURL:       getEnv("BASE_URL", "http://localhost:8080"),
		SessionSecret: getEnv("SESSION_SECRET", "session-secret-change-in-production"),
		SessionName:   getEnv("SESSION_NAME", "crowdgate_session"),

		// Crowd server
		CrowdURL:                getEnv("CROWD_URL", ""),
		CrowdApplication:        getEnv("CROWD_APPLICATION", ""),
		CrowdPassword:           getEnv("CROWD_PASSWORD", ""),
		CrowdTimeout:            getEnvDuration("CROWD_TIMEOUT", 10*time.Second),
		CrowdSessionTimeout:     getEnvDuration("CROWD_SESSION_TIMEOUT", 10*time.Minute),
		CrowdInsecureSkipVerify: getEnvBool("CROWD_INSECURE_SKIP_VERIFY", false),
		CrowdCACertFile:         getEnv("CROWD_CA_CERT_FILE", ""),
		CrowdMaxRetries:         getEnvInt("CROWD_MAX_RETRIES", 0),
		CrowdRetryDelay:         getEnvDuration("CROWD_RETRY_DELAY", 1*time.Second),
		CrowdMaxRetryDelay:      getEnvDuration("CROWD_MAX_RETRY_DELAY", 10*time.Second),

		// Login strategy
		UsernameField:  getEnv("LOGIN_USERNAME_FIELD", "username"),
		PasswordField:  getEnv("LOGIN_PASSWORD_FIELD", "password"),
		RetrieveGroups: getEnvBool("LOGIN_RETRIEVE_GROUPS", false),
		NestedGroups:   getEnvBool("LOGIN_NESTED_GROUPS", true),

		// Session validation cache
		CacheBackend:    getEnv("CACHE_BACKEND", CacheBackendMemory),
		SessionCacheTTL: getEnvDuration("SESSION_CACHE_TTL", 1*time.Minute),
		RedisAddr:       getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   getEnv("REDIS_PASSWORD", ""),
		RedisDB:         getEnvInt("REDIS_DB", 0),

		// Database
		DatabaseDriver: driver,
		DatabaseDSN:    dsn,
		AuditEnabled:   getEnvBool("AUDIT_ENABLED", true),
		AuditBuffer:    getEnvInt("AUDIT_BUFFER", 1000),
		AuditRetention: getEnvDuration("AUDIT_RETENTION", 90*24*time.Hour),

		// Metrics
		MetricsEnabled: getEnvBool("METRICS_ENABLED", true),
		MetricsToken:   getEnv("METRICS_TOKEN", ""),

		// Rate limiting
		LoginRateLimit: getEnvInt("LOGIN_RATE_LIMIT", 10),
	}
}

// Validate checks the settings that have no usable default.
func (c *Config) Validate() error {
	if c.CrowdURL == "" {
		return fmt.Errorf("CROWD_URL is required")
	}
	if c.CrowdApplication == "" {
		return fmt.Errorf("CROWD_APPLICATION is required")
	}
	if c.CrowdPassword == "" {
		return fmt.Errorf("CROWD_PASSWORD is required")
	}
	switch c.CacheBackend {
	case CacheBackendMemory, CacheBackendRedis:
	default:
		return fmt.Errorf("unsupported cache backend: %s", c.CacheBackend)
	}
	if c.DatabaseDriver != "sqlite" && c.DatabaseDSN == "" {
		return fmt.Errorf("DATABASE_DSN is required for driver %s", c.DatabaseDriver)
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		var i int
		if _, err := fmt.Sscanf(value, "%d", &i); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
