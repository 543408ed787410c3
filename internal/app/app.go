package app

import (
	"context"
	"time"

	"github.com/pulseboard/pulseboard/internal/cache"
	"github.com/pulseboard/pulseboard/internal/chat"
	"github.com/pulseboard/pulseboard/internal/config"
	"github.com/pulseboard/pulseboard/internal/dashboard"
	"github.com/pulseboard/pulseboard/internal/feeds"
	"github.com/pulseboard/pulseboard/internal/geo"
	"github.com/pulseboard/pulseboard/internal/httpapi"
	"github.com/pulseboard/pulseboard/internal/logging"
	"github.com/pulseboard/pulseboard/internal/ratelimit"
	"github.com/pulseboard/pulseboard/internal/refresh"
)

// App holds all application dependencies
type App struct {
	Config       *config.Config
	Logger       *logging.Logger
	Cache        cache.Cache
	Orchestrator *dashboard.Orchestrator
	HTTPServer   *httpapi.Server

	restrictor *geo.Restrictor
}

// New creates and initializes an App instance
func New(cfg *config.Config) (*App, error) {
	app := &App{Config: cfg}

	app.Logger = app.initLogger()
	app.Cache = app.initCache()

	// politeness interval toward upstream providers
	limiter := ratelimit.New(time.Second)

	fetcherConfig := feeds.FetcherConfig{
		Timeout:   cfg.Feeds.Timeout,
		UserAgent: cfg.Feeds.UserAgent,
	}

	var fallback *feeds.RSSFallback
	if cfg.Feeds.NewsAPIKey == "" {
		app.Logger.Info("No news provider key, falling back to RSS headlines")
		fallback = feeds.NewRSSFallback(feeds.DefaultRSSSources(), limiter, fetcherConfig)
	}

	clients := dashboard.Clients{
		News:    feeds.NewNewsClient(cfg.Feeds.NewsAPIKey, cfg.Feeds.NewsTTL, app.Cache, limiter, fetcherConfig, fallback, app.Logger),
		Trends:  feeds.NewTrendsClient(cfg.Feeds.TrendsTTL, app.Cache, limiter, fetcherConfig, app.Logger),
		Reddit:  feeds.NewRedditClient(limiter, fetcherConfig, app.Logger),
		Finance: feeds.NewFinanceClient(limiter, fetcherConfig, app.Logger),
	}

	schedulerCfg := refresh.Config{
		RealTimeRange:    cfg.Finance.RealTimeRange,
		RealTimeInterval: cfg.Finance.RealTimeInterval,
		MinPeriod:        cfg.Finance.RefreshMin,
		MaxPeriod:        cfg.Finance.RefreshMax,
	}

	defaults := dashboard.BootstrapDefaults()
	defaults.Symbol = cfg.Finance.DefaultSymbol
	defaults.FinanceRange = cfg.Finance.RealTimeRange
	defaults.FinanceIntrvl = cfg.Finance.RealTimeInterval

	app.Orchestrator = dashboard.New(clients, schedulerCfg, defaults, app.Logger)

	restrictor, err := geo.New(cfg.Geo.MMDBPath, cfg.Server.DevIP, app.Logger)
	if err != nil {
		return nil, err
	}
	app.restrictor = restrictor

	chatClient := chat.New(chat.Config{
		APIKey:    cfg.Chat.APIKey,
		Model:     cfg.Chat.Model,
		MaxTokens: cfg.Chat.MaxTokens,
	})
	chatSess := chat.NewSession(cfg.Chat.MaxMessages, cfg.Chat.SessionBudget)

	app.HTTPServer = httpapi.New(app.Orchestrator, clients, chatClient, chatSess, restrictor, cfg, app.Logger)

	return app, nil
}

// Run starts the HTTP server after kicking off the panel bootstrap in the
// background
func (a *App) Run(ctx context.Context) error {
	go func() {
		a.Logger.Info("Bootstrapping panels in background...")
		a.Orchestrator.Bootstrap(ctx)
		a.Logger.Info("Panel bootstrap complete")
	}()

	return a.HTTPServer.Start(a.Config.Server.HTTPAddr)
}

// Shutdown gracefully stops the scheduler, server, and cache
func (a *App) Shutdown(ctx context.Context) error {
	a.Orchestrator.Stop()

	if a.HTTPServer != nil {
		if err := a.HTTPServer.Shutdown(ctx); err != nil {
			a.Logger.Error("HTTP server shutdown error", logging.WithField("error", err.Error()))
		}
	}

	if a.restrictor != nil {
		a.restrictor.Close()
	}
	a.closeCache()
	return nil
}

// closeCache releases whichever cache backend is wired: the memory backend
// stops its sweep goroutine, the Redis backend closes its client connection.
func (a *App) closeCache() {
	switch c := a.Cache.(type) {
	case *cache.MemoryCache:
		c.Stop()
	case *cache.RedisCache:
		if err := c.Close(); err != nil {
			a.Logger.Warn("Redis close error", logging.WithField("error", err.Error()))
		}
	}
}

func (a *App) initLogger() *logging.Logger {
	level := logging.LevelInfo
	switch a.Config.Logging.Level {
	case "debug":
		level = logging.LevelDebug
	case "warn":
		level = logging.LevelWarn
	case "error":
		level = logging.LevelError
	}
	return logging.New(level)
}

func (a *App) initCache() cache.Cache {
	switch a.Config.Cache.Backend {
	case "redis":
		a.Logger.Info("Using Redis cache backend", logging.WithField("addr", a.Config.Cache.RedisAddr))
		redisCache, err := cache.NewRedis(cache.RedisConfig{
			Addr:   a.Config.Cache.RedisAddr,
			Prefix: "pulseboard:",
		}, a.Config.Feeds.NewsTTL)
		if err != nil {
			a.Logger.Error("Failed to connect to Redis, falling back to memory cache", logging.WithField("error", err.Error()))
			return cache.NewMemory(a.Config.Feeds.NewsTTL)
		}
		return redisCache
	default:
		a.Logger.Info("Using in-memory cache backend")
		return cache.NewMemory(a.Config.Feeds.NewsTTL)
	}
}
