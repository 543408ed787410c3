package config

import (
	"flag"
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Server  ServerConfig
	Cache   CacheConfig
	Feeds   FeedsConfig
	Finance FinanceConfig
	Chat    ChatConfig
	Maps    MapsConfig
	Geo     GeoConfig
	Logging LoggingConfig
}

// ServerConfig holds HTTP listener and gateway policy configuration
type ServerConfig struct {
	HTTPAddr        string
	DevIP           string
	RateLimitWindow time.Duration
	RateLimitMax    int
}

// CacheConfig holds cache backend configuration
type CacheConfig struct {
	Backend   string // "memory" or "redis"
	RedisAddr string
}

// FeedsConfig holds per-feed fetch settings. TTLs of zero mean the feed is
// always fetched live (finance, reddit).
type FeedsConfig struct {
	NewsAPIKey string
	NewsTTL    time.Duration
	TrendsTTL  time.Duration
	Timeout    time.Duration
	UserAgent  string
}

// FinanceConfig holds market-data settings for the real-time panel
type FinanceConfig struct {
	DefaultSymbol    string
	RealTimeRange    string
	RealTimeInterval string
	RefreshMin       time.Duration
	RefreshMax       time.Duration
}

// ChatConfig holds chat-completion provider settings and session budgets
type ChatConfig struct {
	APIKey        string
	Model         string
	MaxTokens     int
	MaxMessages   int
	SessionBudget int
}

// MapsConfig holds the server-side maps key; it is never sent to clients
type MapsConfig struct {
	APIKey string
}

// GeoConfig holds the optional GeoIP database path for the geo restrictor
type GeoConfig struct {
	MMDBPath string
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level string
}

// Load parses flags and environment variables to build configuration.
// Secrets come from the environment only.
func Load() *Config {
	httpAddr := flag.String("http", ":8080", "HTTP server address")
	cacheBackend := flag.String("cache-backend", "memory", "Cache backend: memory or redis")
	redisAddr := flag.String("redis-addr", "localhost:6379", "Redis server address")
	newsTTL := flag.Duration("news-ttl", 5*time.Minute, "Cache TTL for news queries")
	trendsTTL := flag.Duration("trends-ttl", 10*time.Minute, "Cache TTL for trends queries")
	fetchTimeout := flag.Duration("fetch-timeout", 15*time.Second, "Upstream fetch timeout")
	refreshMin := flag.Duration("refresh-min", 2*time.Second, "Minimum auto-refresh interval")
	refreshMax := flag.Duration("refresh-max", 3*time.Second, "Maximum auto-refresh interval")
	defaultSymbol := flag.String("symbol", "AAPL", "Default finance symbol")
	rateWindow := flag.Duration("rate-window", time.Minute, "Gateway rate-limit window per IP")
	rateMax := flag.Int("rate-max", 1000, "Gateway request cap per IP per window")
	logLevel := flag.String("log-level", "info", "Log level (debug, info, warn, error)")

	flag.Parse()

	cfg := &Config{}

	cfg.Server = ServerConfig{
		HTTPAddr:        envOr("HTTP_ADDR", *httpAddr),
		DevIP:           envOr("DEV_IP", "127.0.0.1"),
		RateLimitWindow: envDuration("RATE_WINDOW", *rateWindow),
		RateLimitMax:    envInt("RATE_MAX", *rateMax),
	}
	if port := os.Getenv("PORT"); port != "" && os.Getenv("HTTP_ADDR") == "" {
		cfg.Server.HTTPAddr = ":" + port
	}

	cfg.Cache = CacheConfig{
		Backend:   envOr("CACHE_BACKEND", *cacheBackend),
		RedisAddr: envOr("REDIS_ADDR", *redisAddr),
	}

	cfg.Feeds = FeedsConfig{
		NewsAPIKey: os.Getenv("NEWS_API_KEY"),
		NewsTTL:    envDuration("NEWS_TTL", *newsTTL),
		TrendsTTL:  envDuration("TRENDS_TTL", *trendsTTL),
		Timeout:    envDuration("FETCH_TIMEOUT", *fetchTimeout),
		UserAgent:  envOr("FETCH_USER_AGENT", "Pulseboard/1.0"),
	}

	cfg.Finance = FinanceConfig{
		DefaultSymbol:    envOr("FINANCE_SYMBOL", *defaultSymbol),
		RealTimeRange:    "1d",
		RealTimeInterval: "1m",
		RefreshMin:       envDuration("REFRESH_MIN", *refreshMin),
		RefreshMax:       envDuration("REFRESH_MAX", *refreshMax),
	}

	cfg.Chat = ChatConfig{
		APIKey:        os.Getenv("OPENAI_API_KEY"),
		Model:         envOr("CHAT_MODEL", "gpt-3.5-turbo"),
		MaxTokens:     envInt("CHAT_MAX_TOKENS", 333),
		MaxMessages:   envInt("CHAT_MAX_MESSAGES", 10),
		SessionBudget: envInt("CHAT_SESSION_BUDGET", 999),
	}

	cfg.Maps = MapsConfig{
		APIKey: os.Getenv("GOOGLE_MAPS_API_KEY"),
	}

	cfg.Geo = GeoConfig{
		MMDBPath: os.Getenv("GEOIP_DB_PATH"),
	}

	cfg.Logging = LoggingConfig{
		Level: envOr("LOG_LEVEL", *logLevel),
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
