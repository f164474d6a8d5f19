package internal

import (
	"fmt"
	"os"
	"time"
)

type Config struct {
	RiotAPIKey  string
	RiotRegion  string
	RiotBaseURL string

	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDb       string
	PostgresSSLMode  string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int

	NATSUrl      string
	NATSClientID string

	RateLimitRedisPrefix string

	AppPort  string
	AppEnv   string
	LogLevel string

	RankTTL        time.Duration
	MasteryTTL     time.Duration
	SyncCooldown   time.Duration
	MatchSyncLimit int

	CacheEnabled bool
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0, fmt.Errorf("invalid %s: %q", key, v)
	}
	return n, nil
}

func LoadConfig() (*Config, error) {
	apiKey := os.Getenv("RIOT_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("RIOT_API_KEY is required")
	}

	matchLimit, err := envInt("MATCH_SYNC_LIMIT", 20)
	if err != nil {
		return nil, err
	}
	if matchLimit <= 0 {
		return nil, fmt.Errorf("MATCH_SYNC_LIMIT must be positive, got %d", matchLimit)
	}

	redisDB, err := envInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}

	cacheEnabled := os.Getenv("CACHE_ENABLED")

	return &Config{
		RiotAPIKey:  apiKey,
		RiotRegion:  envOr("RIOT_REGION", "BR1"),
		RiotBaseURL: os.Getenv("RIOT_BASE_URL"),

		PostgresHost:     envOr("POSTGRES_HOST", "localhost"),
		PostgresPort:     envOr("POSTGRES_PORT", "5432"),
		PostgresUser:     os.Getenv("POSTGRES_USER"),
		PostgresPassword: os.Getenv("POSTGRES_PASSWORD"),
		PostgresDb:       os.Getenv("POSTGRES_DB"),
		PostgresSSLMode:  envOr("POSTGRES_SSL_MODE", "disable"),

		RedisHost:     envOr("REDIS_HOST", "localhost"),
		RedisPort:     envOr("REDIS_PORT", "6379"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),
		RedisDB:       redisDB,

		NATSUrl:      envOr("NATS_URL", "nats://localhost:4222"),
		NATSClientID: envOr("NATS_CLIENT_ID", "lol-sync-core"),

		RateLimitRedisPrefix: envOr("RATE_LIMIT_REDIS_PREFIX", "lol:ratelimit"),

		AppPort:  envOr("APP_PORT", "8000"),
		AppEnv:   envOr("APP_ENV", "development"),
		LogLevel: envOr("LOG_LEVEL", "info"),

		RankTTL:        envDuration("RANK_TTL", time.Hour),
		MasteryTTL:     envDuration("MASTERY_TTL", 30*time.Minute),
		SyncCooldown:   envDuration("SYNC_COOLDOWN", 60*time.Second),
		MatchSyncLimit: matchLimit,

		CacheEnabled: cacheEnabled == "true" || cacheEnabled == "",
	}, nil
}
