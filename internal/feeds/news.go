package feeds

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"time"

	"github.com/pulseboard/pulseboard/internal/cache"
	"github.com/pulseboard/pulseboard/internal/logging"
	"github.com/pulseboard/pulseboard/internal/models"
	"github.com/pulseboard/pulseboard/internal/ratelimit"
)

// NewsClient fetches and normalizes news headlines. With no provider key it
// degrades to the configured RSS sources instead of failing.
type NewsClient struct {
	// BaseURL points at the news provider; tests override it
	BaseURL string

	apiKey   string
	ttl      time.Duration
	cache    cache.Cache
	limiter  *ratelimit.Limiter
	client   *http.Client
	config   FetcherConfig
	logger   *logging.Logger
	fallback *RSSFallback
}

type newsResponse struct {
	Status   string        `json:"status"`
	Articles []newsArticle `json:"articles"`
}

type newsArticle struct {
	Source struct {
		Name string `json:"name"`
	} `json:"source"`
	Author      string `json:"author"`
	Title       string `json:"title"`
	Description string `json:"description"`
	URL         string `json:"url"`
	URLToImage  string `json:"urlToImage"`
	PublishedAt string `json:"publishedAt"`
}

// NewNewsClient creates a news client. fallback may be nil.
func NewNewsClient(apiKey string, ttl time.Duration, c cache.Cache, limiter *ratelimit.Limiter, cfg FetcherConfig, fallback *RSSFallback, logger *logging.Logger) *NewsClient {
	return &NewsClient{
		BaseURL:  "https://newsapi.org/v2",
		apiKey:   apiKey,
		ttl:      ttl,
		cache:    c,
		limiter:  limiter,
		client:   newHTTPClient(cfg),
		config:   cfg,
		logger:   logger,
		fallback: fallback,
	}
}

// FetchRaw returns the provider-shaped JSON for the gateway proxy path.
// Requests with a "query" parameter hit the everything endpoint; otherwise
// the caller category is mapped onto the provider's top-headlines vocabulary.
func (c *NewsClient) FetchRaw(ctx context.Context, params url.Values) ([]byte, error) {
	if c.apiKey == "" {
		if c.fallback != nil {
			return c.fallback.FetchRaw(ctx)
		}
		return nil, &ConfigurationError{Missing: "NEWS_API_KEY"}
	}

	lang := NormalizeLanguage(params.Get("language"))

	var u string
	if q := params.Get("query"); q != "" {
		u = c.BaseURL + "/everything?q=" + url.QueryEscape(q) + "&language=" + lang + "&apiKey=" + c.apiKey
	} else {
		category := MapCategory(params.Get("category"))
		u = c.BaseURL + "/top-headlines?category=" + category
		if country := params.Get("country"); country != "" {
			u += "&country=" + url.QueryEscape(country)
		}
		u += "&apiKey=" + c.apiKey
	}

	if c.limiter != nil {
		c.limiter.Wait(hostOf(c.BaseURL))
	}
	return getBody(ctx, c.client, u, c.config.UserAgent)
}

// Fetch returns the normalized news model for query. Upstream failures come
// back as a degraded model, never as an error; the cache is consulted first
// and failures are never cached.
func (c *NewsClient) Fetch(ctx context.Context, query models.FeedQuery, force bool) models.NewsModel {
	model, cached, err := cache.GetOrFetch(c.cache, query.Key(), c.ttl, force, func() (models.NewsModel, error) {
		return c.fetch(ctx, query)
	})
	if err != nil {
		c.logger.Warn("News fetch failed", logging.WithField("error", err.Error()))
		return models.NewsModel{Degraded: true, Reason: "Unable to fetch news: " + displayReason(err)}
	}
	if cached {
		c.logger.Debug("Using cached news data", logging.WithField("key", query.Key()))
	}
	return model
}

func (c *NewsClient) fetch(ctx context.Context, query models.FeedQuery) (models.NewsModel, error) {
	params := url.Values{}
	for _, k := range []string{"query", "category", "country", "language"} {
		if v := query.Param(k); v != "" {
			params.Set(k, v)
		}
	}

	body, err := c.FetchRaw(ctx, params)
	if err != nil {
		return models.NewsModel{}, err
	}

	var resp newsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.NewsModel{}, &UpstreamShapeError{Feed: "news", Detail: "response is not valid JSON"}
	}
	if resp.Articles == nil {
		return models.NewsModel{}, &UpstreamShapeError{Feed: "news", Detail: "missing articles field"}
	}

	articles := make([]models.Article, 0, len(resp.Articles))
	for _, a := range resp.Articles {
		publishedAt, _ := time.Parse(time.RFC3339, a.PublishedAt)
		articles = append(articles, models.Article{
			Title:       a.Title,
			Description: a.Description,
			URL:         a.URL,
			ImageURL:    a.URLToImage,
			Author:      a.Author,
			PublishedAt: publishedAt,
			SourceName:  a.Source.Name,
		})
	}

	return models.NewsModel{Articles: articles}, nil
}

// displayReason turns a fetch error into a one-line, display-safe message
func displayReason(err error) string {
	if IsRateLimited(err) {
		return "provider rate limit reached, retry manually"
	}
	if IsConfiguration(err) {
		return "service unavailable"
	}
	return err.Error()
}
