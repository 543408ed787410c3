package feeds

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/pulseboard/pulseboard/internal/cache"
	"github.com/pulseboard/pulseboard/internal/logging"
	"github.com/pulseboard/pulseboard/internal/models"
	"github.com/pulseboard/pulseboard/internal/ratelimit"
)

const trendsMaxArticles = 5

// realtimeCategories is the provider's single-letter category set
var realtimeCategories = map[string]bool{
	"all": true, "b": true, "e": true, "m": true, "t": true, "s": true, "h": true,
}

// TrendsClient fetches and normalizes Google Trends data. The provider
// prefixes its JSON with an XSSI guard that must be stripped before decoding.
type TrendsClient struct {
	// BaseURL points at the trends API root; tests override it
	BaseURL string

	ttl     time.Duration
	cache   cache.Cache
	limiter *ratelimit.Limiter
	client  *http.Client
	config  FetcherConfig
	logger  *logging.Logger
}

type dailyTrendsResponse struct {
	Default struct {
		TrendingSearchesDays []struct {
			FormattedDate    string `json:"formattedDate"`
			TrendingSearches []struct {
				Title struct {
					Query string `json:"query"`
				} `json:"title"`
				FormattedTraffic string `json:"formattedTraffic"`
				Image            struct {
					ImageURL string `json:"imageUrl"`
				} `json:"image"`
				Articles []struct {
					Title   string `json:"title"`
					URL     string `json:"url"`
					Source  string `json:"source"`
					Time    string `json:"timeAgo"`
					Snippet string `json:"snippet"`
					Image   struct {
						ImageURL string `json:"imageUrl"`
					} `json:"image"`
				} `json:"articles"`
			} `json:"trendingSearches"`
		} `json:"trendingSearchesDays"`
	} `json:"default"`
}

type realtimeTrendsResponse struct {
	StorySummaries struct {
		TrendingStories []struct {
			Title string `json:"title"`
			Image struct {
				ImgURL string `json:"imgUrl"`
			} `json:"image"`
			Articles []struct {
				ArticleTitle string `json:"articleTitle"`
				URL          string `json:"url"`
				Source       string `json:"source"`
				Time         string `json:"time"`
				Snippet      string `json:"snippet"`
			} `json:"articles"`
		} `json:"trendingStories"`
	} `json:"storySummaries"`
}

// NewTrendsClient creates a trends client
func NewTrendsClient(ttl time.Duration, c cache.Cache, limiter *ratelimit.Limiter, cfg FetcherConfig, logger *logging.Logger) *TrendsClient {
	return &TrendsClient{
		BaseURL: "https://trends.google.com/trends/api",
		ttl:     ttl,
		cache:   c,
		limiter: limiter,
		client:  newHTTPClient(cfg),
		config:  cfg,
		logger:  logger,
	}
}

// FetchRaw returns provider-shaped JSON (XSSI prefix already stripped) for
// the gateway proxy path. Trend type must be daily or realtime; an unknown
// realtime category falls back to "all".
func (c *TrendsClient) FetchRaw(ctx context.Context, trendType, geo, category, lang string) ([]byte, error) {
	if trendType != "daily" && trendType != "realtime" {
		return nil, &InvalidParameterError{Param: "type", Value: trendType, Allowed: "daily, realtime"}
	}

	if geo == "" {
		geo = "US"
	}
	lang = NormalizeLanguage(lang)

	var u string
	if trendType == "realtime" {
		if !realtimeCategories[category] {
			category = "all"
		}
		u = c.BaseURL + "/realtimetrends?hl=" + lang + "&tz=0&cat=" + category +
			"&fi=0&fs=0&geo=" + url.QueryEscape(geo) + "&ri=300&rs=20&sort=0"
	} else {
		u = c.BaseURL + "/dailytrends?hl=" + lang + "&tz=0&geo=" + url.QueryEscape(geo)
	}

	if c.limiter != nil {
		c.limiter.Wait(hostOf(c.BaseURL))
	}

	body, err := getBody(ctx, c.client, u, c.config.UserAgent)
	if err != nil {
		return nil, err
	}
	return stripXSSIPrefix(body), nil
}

// Fetch returns the normalized trends model for query. Upstream failures
// come back as a degraded model; only InvalidParameter is returned as an
// error (caller bug).
func (c *TrendsClient) Fetch(ctx context.Context, query models.FeedQuery, force bool) (models.TrendsModel, error) {
	trendType := query.Param("type")
	if trendType == "" {
		trendType = "daily"
	}
	if trendType != "daily" && trendType != "realtime" {
		return models.TrendsModel{}, &InvalidParameterError{Param: "type", Value: trendType, Allowed: "daily, realtime"}
	}

	model, _, err := cache.GetOrFetch(c.cache, query.Key(), c.ttl, force, func() (models.TrendsModel, error) {
		return c.fetch(ctx, trendType, query)
	})
	if err != nil {
		c.logger.Warn("Trends fetch failed", logging.WithField("error", err.Error()))
		return models.TrendsModel{Degraded: true, Reason: "Unable to fetch trends: " + displayReason(err)}, nil
	}
	return model, nil
}

func (c *TrendsClient) fetch(ctx context.Context, trendType string, query models.FeedQuery) (models.TrendsModel, error) {
	body, err := c.FetchRaw(ctx, trendType, query.Param("geo"), query.Param("category"), query.Param("language"))
	if err != nil {
		return models.TrendsModel{}, err
	}

	if trendType == "realtime" {
		return parseRealtimeTrends(body)
	}
	return parseDailyTrends(body)
}

func parseDailyTrends(body []byte) (models.TrendsModel, error) {
	var resp dailyTrendsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.TrendsModel{}, &UpstreamShapeError{Feed: "trends", Detail: "daily response is not valid JSON"}
	}
	if resp.Default.TrendingSearchesDays == nil {
		return models.TrendsModel{}, &UpstreamShapeError{Feed: "trends", Detail: "missing trendingSearchesDays"}
	}

	var topics []models.Topic
	for _, day := range resp.Default.TrendingSearchesDays {
		for _, search := range day.TrendingSearches {
			topic := models.Topic{
				Title:        cleanText(search.Title.Query),
				TrafficLabel: search.FormattedTraffic,
				ImageURL:     search.Image.ImageURL,
				DateLabel:    day.FormattedDate,
			}
			for i, a := range search.Articles {
				if i >= trendsMaxArticles {
					break
				}
				topic.Articles = append(topic.Articles, models.TrendArticle{
					Title:    cleanText(a.Title),
					URL:      a.URL,
					Source:   a.Source,
					Snippet:  firstLine(cleanText(a.Snippet)),
					ImageURL: a.Image.ImageURL,
					Time:     a.Time,
				})
			}
			topics = append(topics, topic)
		}
	}

	return models.TrendsModel{Topics: topics}, nil
}

func parseRealtimeTrends(body []byte) (models.TrendsModel, error) {
	var resp realtimeTrendsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.TrendsModel{}, &UpstreamShapeError{Feed: "trends", Detail: "realtime response is not valid JSON"}
	}
	if resp.StorySummaries.TrendingStories == nil {
		return models.TrendsModel{}, &UpstreamShapeError{Feed: "trends", Detail: "missing trendingStories"}
	}

	var topics []models.Topic
	for _, story := range resp.StorySummaries.TrendingStories {
		topic := models.Topic{
			Title:    cleanText(story.Title),
			ImageURL: story.Image.ImgURL,
		}
		for i, a := range story.Articles {
			if i >= trendsMaxArticles {
				break
			}
			topic.Articles = append(topic.Articles, models.TrendArticle{
				Title:   cleanText(a.ArticleTitle),
				URL:     a.URL,
				Source:  a.Source,
				Snippet: firstLine(cleanText(a.Snippet)),
				Time:    a.Time,
			})
		}
		topics = append(topics, topic)
	}

	return models.TrendsModel{Topics: topics}, nil
}

// stripXSSIPrefix removes the provider's anti-hijacking prefix ()]}', plus
// whitespace) from the front of the payload
func stripXSSIPrefix(body []byte) []byte {
	idx := bytes.IndexByte(body, '{')
	if idx <= 0 {
		return body
	}
	prefix := bytes.TrimSpace(body[:idx])
	if bytes.HasPrefix(prefix, []byte(")]}'")) {
		return body[idx:]
	}
	return body
}

// cleanText strips markup and decodes HTML entities from provider strings
func cleanText(s string) string {
	if !strings.ContainsAny(s, "<&") {
		return strings.TrimSpace(s)
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
	if err != nil {
		return strings.TrimSpace(s)
	}
	return strings.TrimSpace(doc.Text())
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
