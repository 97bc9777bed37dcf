package config

import (
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"
)

// Bookmark store backends
const (
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

type Config struct {
	ListenPort      string        // ex: ":8080"
	ShutdownTimeout time.Duration // ex: 5s

	LogLevel  string // "debug" | "info" | "warn" | "error"
	PrettyLog bool   // true => zap dev (color), false => zap prod (JSON)

	Store                 string        // bookmark store: "redis" | "memory"
	CatalogFile           string        // path to the topics/posts catalog yaml
	CatalogReloadInterval time.Duration // interval to reload the catalog (default: 1h)
	CatalogWatch          bool          // reload as soon as the catalog file changes on disk

	// Reminder dispatch
	DispatchInterval   time.Duration // how often due reminders are polled (default: 15s)
	DispatchBatch      int           // max reminders claimed per poll (default: 100)
	ReminderRetryDelay time.Duration // delay before a failed reminder runs again (default: 1m)

	// Redis
	RedisAddr             string        // ex: "localhost:6379"
	RedisUser             string        // optional
	RedisPassword         string        // optional
	RedisPasswordRequired bool          // true => require password, false => allow empty password
	RedisDB               int           // Redis DB number
	RedisDT               time.Duration // Redis dial timeout (ex: 5s)
	RedisRT               time.Duration // Redis read timeout (ex: 3s)
	RedisWT               time.Duration // Redis write timeout (ex: 3s)
	RedisMaxWait          time.Duration // max wait between retries (ex: 10s)
	RedisPingTimeout      time.Duration // timeout for each ping attempt (ex: 5s)
	RedisPoolSize         int           // Redis connection pool size
	RedisConnectTimeout   time.Duration // Total time to retry connecting (ex: 30s)
	RedisRetryInterval    time.Duration // Initial wait between retries (ex: 2s, grows exponentially)
	RedisWarnThreshold    int           // warn after this many attempts

	AllowedCIDRS []string // optional, restrict ops endpoints to these networks (e.g. "10.0.0.0/8, 127.0.0.1")
	TrustProxy   bool     // true => trust X-Forwarded-For headers
}

func Load() *Config {
	cfg := &Config{
		// Server settings
		ListenPort:      getenv("PINBOARD_LISTEN_PORT", ":8080"),
		ShutdownTimeout: mustDuration("PINBOARD_SHUTDOWN_TIMEOUT", 5*time.Second),

		// Logging
		LogLevel:  getenv("PINBOARD_LOG_LEVEL", "info"),
		PrettyLog: mustBool("PINBOARD_PRETTY_LOG", false),

		// Bookmarks
		Store:                 mustStore("PINBOARD_STORE", StoreRedis),
		CatalogFile:           requireEnv("PINBOARD_CATALOG_FILE"),
		CatalogReloadInterval: mustDuration("PINBOARD_CATALOG_RELOAD_INTERVAL", time.Hour),
		CatalogWatch:          mustBool("PINBOARD_CATALOG_WATCH", true),

		// Reminders
		DispatchInterval:   mustDuration("PINBOARD_DISPATCH_INTERVAL", 15*time.Second),
		DispatchBatch:      getenvInt("PINBOARD_DISPATCH_BATCH", 100),
		ReminderRetryDelay: mustDuration("PINBOARD_REMINDER_RETRY_DELAY", time.Minute),

		// Redis settings
		RedisAddr:             requireEnv("PINBOARD_REDIS_ADDR"),
		RedisUser:             getenv("PINBOARD_REDIS_USERNAME", "default"),
		RedisPasswordRequired: mustBool("PINBOARD_REDIS_PASSWORD_REQUIRED", true),
		RedisPassword:         getenv("PINBOARD_REDIS_PASSWORD", ""),
		RedisDB:               requireEnvInt("PINBOARD_REDIS_DB"),
		RedisDT:               mustDuration("REDIS_DIAL_TIMEOUT", 5*time.Second),
		RedisRT:               mustDuration("REDIS_READ_TIMEOUT", 3*time.Second),
		RedisWT:               mustDuration("REDIS_WRITE_TIMEOUT", 3*time.Second),
		RedisMaxWait:          mustDuration("REDIS_MAX_WAIT", 10*time.Second),
		RedisPingTimeout:      mustDuration("REDIS_PING_TIMEOUT", 5*time.Second),
		RedisPoolSize:         getenvInt("REDIS_POOL_SIZE", 10),
		RedisConnectTimeout:   mustDuration("REDIS_CONNECT_TIMEOUT", 30*time.Second),
		RedisRetryInterval:    mustDuration("REDIS_RETRY_INTERVAL", 2*time.Second),
		RedisWarnThreshold:    getenvInt("REDIS_WARN_THRESHOLD", 3),

		// Access restrictions
		AllowedCIDRS: splitAndTrim(getenv("PINBOARD_ALLOWED_CIDRS", "")),
		TrustProxy:   mustBool("PINBOARD_TRUST_PROXY", false),
	}

	// Validate Redis password configuration
	if cfg.RedisPasswordRequired && cfg.RedisPassword == "" {
		panic("❌ FATAL: PINBOARD_REDIS_PASSWORD is required when PINBOARD_REDIS_PASSWORD_REQUIRED=true")
	}

	if cfg.DispatchBatch <= 0 {
		panic(fmt.Sprintf("❌ FATAL: PINBOARD_DISPATCH_BATCH must be > 0, got %d", cfg.DispatchBatch))
	}

	// Log config only in debug mode with redacted sensitive fields
	if cfg.LogLevel == "debug" {
		cfgCopy := *cfg
		cfgCopy.RedisPassword = "***REDACTED***"
		if cfg.RedisUser != "" {
			cfgCopy.RedisUser = "***REDACTED***"
		}
		log.Printf("[DEBUG] cfg: %+v\n", cfgCopy)
	}

	return cfg
}

// helpers
func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func requireEnv(key string) string {
	v := os.Getenv(key)
	if v == "" {
		panic(fmt.Sprintf("❌ FATAL: Required environment variable %s is not set", key))
	}
	return v
}

func requireEnvInt(key string) int {
	v := requireEnv(key)
	i, err := strconv.Atoi(v)
	if err != nil {
		panic(fmt.Sprintf("❌ FATAL: Invalid integer value for %s: %s", key, v))
	}
	return i
}

func getenvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func mustBool(key string, def bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err == nil {
			return b
		}
	}
	return def
}

func mustDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

// mustStore panics on an unknown backend name.
func mustStore(key, def string) string {
	v := strings.ToLower(getenv(key, def))
	switch v {
	case StoreRedis, StoreMemory:
		return v
	default:
		panic(fmt.Sprintf("❌ FATAL: Invalid value for %s: %s (want %q or %q)", key, v, StoreRedis, StoreMemory))
	}
}

func splitAndTrim(s string) []string {
	if s == "" {
		return nil
	}
	raw := strings.Split(s, ",")
	parts := make([]string, 0, len(raw))
	for _, part := range raw {
		trimmed := strings.TrimSpace(part)
		// Remove surrounding quotes if present
		trimmed = strings.Trim(trimmed, `"'`)
		if trimmed != "" {
			parts = append(parts, trimmed)
		}
	}
	return parts
}
