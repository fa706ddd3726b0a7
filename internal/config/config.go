package config

import (
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
	_ "time/tzdata" // TIME_ZONE must resolve on minimal images

	"github.com/joho/godotenv"
)

type Config struct {
	// Application
	AppName  string
	AppEnv   string
	Port     string
	TimeZone string

	// Remote participation store
	APIURL     string
	APIToken   string
	APITimeout time.Duration

	// Local cache and offline queue (optional driver switch via ENV, default: sqlite)
	DBDriver     string
	DBConnection string

	// Security
	JWTSecret string
	JWTExpiry time.Duration

	// Twitter profile lookup (app-only auth; falls back to the store's proxy when unset)
	TwitterClientID     string
	TwitterClientSecret string
	TwitterAPIURL       string
	TwitterTokenURL     string

	// Milestone notifications (optional)
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Background jobs
	OfflineQueue    bool
	SyncSchedule    string
	RefreshSchedule string
	WatchChallenges []int64

	// Momentum thresholds
	HotThreshold24h int
	HotThreshold1h  int

	// Observability (optional)
	SentryDSN string

	// Report storage (S3-compatible, optional)
	S3Region        string
	S3Bucket        string
	S3AccessKey     string
	S3SecretKey     string
	S3Endpoint      string
	S3PresignExpiry time.Duration
}

func Load() *Config {
	err := godotenv.Load()
	if err != nil {
		slog.Info("no .env file found, using environment variables")
	}

	cfg := &Config{
		AppName:  envString("APP_NAME", "doin"),
		AppEnv:   envString("APP_ENV", "development"),
		Port:     envString("PORT", "8090"),
		TimeZone: envString("TIME_ZONE", "Asia/Tokyo"),

		APIURL:     envRequired("DOIN_API_URL"),
		APIToken:   envString("DOIN_API_TOKEN", ""),
		APITimeout: envDuration("DOIN_API_TIMEOUT", 15*time.Second),

		DBDriver:     envString("DB_DRIVER", "sqlite"),
		DBConnection: envString("DB_CONNECTION", "./data/doin.db?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"),

		JWTSecret: envString("JWT_SECRET", ""),
		JWTExpiry: envDuration("JWT_EXPIRY", 168*time.Hour), // 7 days

		TwitterClientID:     envString("TWITTER_CLIENT_ID", ""),
		TwitterClientSecret: envString("TWITTER_CLIENT_SECRET", ""),
		TwitterAPIURL:       envString("TWITTER_API_URL", "https://api.twitter.com"),
		TwitterTokenURL:     envString("TWITTER_TOKEN_URL", "https://api.twitter.com/oauth2/token"),

		RedisAddr:     envString("REDIS_ADDR", ""),
		RedisPassword: envString("REDIS_PASSWORD", ""),
		RedisDB:       envInt("REDIS_DB", 0),

		OfflineQueue:    envBool("OFFLINE_QUEUE", true),
		SyncSchedule:    envString("SYNC_SCHEDULE", "@every 1m"),
		RefreshSchedule: envString("REFRESH_SCHEDULE", "@every 5m"),
		WatchChallenges: envIDs("WATCH_CHALLENGES"),

		HotThreshold24h: envInt("HOT_THRESHOLD_24H", 5),
		HotThreshold1h:  envInt("HOT_THRESHOLD_1H", 2),

		SentryDSN: envString("SENTRY_DSN", ""),

		S3Region:        envString("S3_REGION", ""),
		S3Bucket:        envString("S3_BUCKET", ""),
		S3AccessKey:     envString("S3_ACCESS_KEY", ""),
		S3SecretKey:     envString("S3_SECRET_KEY", ""),
		S3Endpoint:      envString("S3_ENDPOINT", ""),                   // Optional: for non-AWS providers
		S3PresignExpiry: envDuration("S3_PRESIGN_EXPIRY", 24*time.Hour), // Download links for exported reports
	}

	if cfg.IsProduction() {
		validateProduction(cfg)
	}

	return cfg
}

// validateProduction ensures the identity secret is set; development
// serves anonymous requests only when it is missing.
func validateProduction(cfg *Config) {
	if cfg.JWTSecret == "" {
		slog.Error("production deployment requires JWT_SECRET")
		os.Exit(1)
	}
}

func envString(key, def string) string {
	value := os.Getenv(key)
	if value == "" {
		value = def
	}
	return value
}

func envBool(key string, def bool) bool {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		slog.Warn("config invalid bool, using default", "key", key, "value", v, "default", def)
		return def
	}
	return b
}

func envInt(key string, def int) int {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		slog.Warn("config invalid int, using default", "key", key, "value", v, "default", def)
		return def
	}
	return n
}

func envDuration(key string, def time.Duration) time.Duration {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		slog.Warn("config invalid duration, using default", "key", key, "value", v, "default", def)
		return def
	}
	return d
}

// envIDs parses a comma-separated list of challenge IDs, skipping bad entries.
func envIDs(key string) []int64 {
	var ids []int64
	for _, part := range strings.Split(os.Getenv(key), ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil || id <= 0 {
			slog.Warn("config invalid challenge id, skipping", "key", key, "value", part)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func envRequired(key string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	slog.Error("config required env var missing", "key", key)
	os.Exit(1)
	return ""
}

func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

func (c *Config) IsProduction() bool {
	return c.AppEnv == "production"
}

func (c *Config) StorageEnabled() bool {
	return c.S3Bucket != "" && c.S3Region != ""
}

func (c *Config) RedisEnabled() bool {
	return c.RedisAddr != ""
}

func (c *Config) TwitterEnabled() bool {
	return c.TwitterClientID != "" && c.TwitterClientSecret != ""
}

// Location resolves TimeZone, falling back to UTC.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.TimeZone)
	if err != nil {
		slog.Warn("config invalid time zone, using UTC", "time_zone", c.TimeZone)
		return time.UTC
	}
	return loc
}
