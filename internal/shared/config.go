package shared

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"flex_reviews/internal/domain"
	"flex_reviews/internal/normalize"
)

const (
	SourceMock     = "mock"
	SourceHostaway = "hostaway"

	StoreMemory = "memory"
	StoreRedis  = "redis"
	StoreMySQL  = "mysql"
)

type Config struct {
	AppEnv      string
	LogLevel    string
	HTTPAddr    string
	MetricsAddr string

	ReviewSource      string
	HostawayBase      string
	HostawayAccountID string
	HostawayKey       string
	HostawayRPS       int

	ModerationStore string
	CacheStore      string
	MySQLDSN        string
	RedisAddr       string
	RedisDB         int
	RedisPass       string
	CacheTTL        time.Duration

	ListingsFile string
	CORSOrigins  []string
}

func Load() Config {
	atoi := func(k string, def int) int {
		if v := os.Getenv(k); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				return n
			}
			log.Warn().Str("key", k).Str("value", v).Msg("ignoring non-integer env value")
		}
		return def
	}
	c := Config{
		AppEnv:      env("APP_ENV", "prod"),
		LogLevel:    env("LOG_LEVEL", "info"),
		HTTPAddr:    env("HTTP_ADDR", ":8080"),
		MetricsAddr: env("METRICS_ADDR", ""),

		ReviewSource:      strings.ToLower(env("REVIEW_SOURCE", SourceMock)),
		HostawayBase:      env("HOSTAWAY_BASE_URL", "https://api.hostaway.com/v1"),
		HostawayAccountID: env("HOSTAWAY_ACCOUNT_ID", ""),
		HostawayKey:       env("HOSTAWAY_API_KEY", ""),
		HostawayRPS:       atoi("HOSTAWAY_RPS", 5),

		ModerationStore: strings.ToLower(env("MODERATION_STORE", StoreMemory)),
		CacheStore:      strings.ToLower(env("CACHE_STORE", StoreMemory)),
		MySQLDSN:        env("MYSQL_DSN", "root:root@tcp(localhost:3306)/flex?parseTime=true&charset=utf8mb4&loc=UTC"),
		RedisAddr:       env("REDIS_ADDR", "localhost:6379"),
		RedisDB:         atoi("REDIS_DB", 0),
		RedisPass:       env("REDIS_PASSWORD", ""),
		CacheTTL:        time.Duration(atoi("CACHE_TTL_SECONDS", 300)) * time.Second,

		ListingsFile: env("LISTINGS_FILE", ""),
		CORSOrigins:  splitList(os.Getenv("CORS_ORIGINS")),
	}
	if c.ReviewSource == SourceHostaway && c.HostawayKey == "" {
		log.Warn().Msg("HOSTAWAY_API_KEY is empty")
	}
	return c
}

// Validate rejects backend selections this build does not know.
func (c Config) Validate() error {
	switch c.ReviewSource {
	case SourceMock, SourceHostaway:
	default:
		return fmt.Errorf("REVIEW_SOURCE: unknown value %q", c.ReviewSource)
	}
	switch c.ModerationStore {
	case StoreMemory, StoreRedis, StoreMySQL:
	default:
		return fmt.Errorf("MODERATION_STORE: unknown value %q", c.ModerationStore)
	}
	switch c.CacheStore {
	case StoreMemory, StoreRedis:
	default:
		return fmt.Errorf("CACHE_STORE: unknown value %q", c.CacheStore)
	}
	if c.CacheTTL < 0 {
		return fmt.Errorf("CACHE_TTL_SECONDS must not be negative")
	}
	return nil
}

// Listings returns the bucket table from LISTINGS_FILE, or the built-in
// table when no file is configured.
func (c Config) Listings() ([]domain.ListingRef, error) {
	if c.ListingsFile == "" {
		return normalize.DefaultListings(), nil
	}
	return normalize.LoadListings(c.ListingsFile)
}

func env(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
