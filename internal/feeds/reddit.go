package feeds

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/pulseboard/pulseboard/internal/logging"
	"github.com/pulseboard/pulseboard/internal/models"
	"github.com/pulseboard/pulseboard/internal/ratelimit"
)

// RedditClient fetches sitewide top posts. Reddit is always fetched live;
// there is no cache TTL for this feed.
type RedditClient struct {
	// BaseURL points at the reddit endpoint; tests override it
	BaseURL string

	limiter *ratelimit.Limiter
	client  *http.Client
	config  FetcherConfig
	logger  *logging.Logger
}

type redditResponse struct {
	Data struct {
		Children []struct {
			Kind string     `json:"kind"`
			Data redditPost `json:"data"`
		} `json:"children"`
	} `json:"data"`
}

type redditPost struct {
	Title     string `json:"title"`
	Permalink string `json:"permalink"`
	Score     int    `json:"score"`
	Preview   struct {
		Images []struct {
			Source struct {
				URL string `json:"url"`
			} `json:"source"`
		} `json:"images"`
	} `json:"preview"`
	Media struct {
		RedditVideo struct {
			FallbackURL string `json:"fallback_url"`
		} `json:"reddit_video"`
	} `json:"media"`
}

// NewRedditClient creates a reddit client
func NewRedditClient(limiter *ratelimit.Limiter, cfg FetcherConfig, logger *logging.Logger) *RedditClient {
	return &RedditClient{
		BaseURL: "https://www.reddit.com",
		limiter: limiter,
		client:  newHTTPClient(cfg),
		config:  cfg,
		logger:  logger,
	}
}

// FetchRaw returns the provider-shaped JSON for the gateway proxy path.
// period must be day or week.
func (c *RedditClient) FetchRaw(ctx context.Context, period string) ([]byte, error) {
	if period != "day" && period != "week" {
		return nil, &InvalidParameterError{Param: "t", Value: period, Allowed: "day, week"}
	}

	if c.limiter != nil {
		c.limiter.Wait(hostOf(c.BaseURL))
	}
	return getBody(ctx, c.client, c.BaseURL+"/top.json?sort=top&t="+period, c.config.UserAgent)
}

// Fetch returns the normalized reddit model. An invalid time period is a
// caller bug and returns an error; upstream failures produce a degraded
// model instead.
func (c *RedditClient) Fetch(ctx context.Context, query models.FeedQuery) (models.RedditModel, error) {
	period := query.Param("t")
	if period == "" {
		period = "day"
	}

	body, err := c.FetchRaw(ctx, period)
	if err != nil {
		if IsInvalidParameter(err) {
			return models.RedditModel{}, err
		}
		c.logger.Warn("Reddit fetch failed", logging.WithField("error", err.Error()))
		return models.RedditModel{Degraded: true, Reason: "Unable to fetch Reddit posts: " + displayReason(err)}, nil
	}

	var resp redditResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.RedditModel{Degraded: true, Reason: "Unable to fetch Reddit posts: response is not valid JSON"}, nil
	}
	if resp.Data.Children == nil {
		return models.RedditModel{Degraded: true, Reason: "Unable to fetch Reddit posts: missing children field"}, nil
	}

	posts := make([]models.Post, 0, len(resp.Data.Children))
	for _, child := range resp.Data.Children {
		// t3 is the "link" kind; everything else is metadata
		if child.Kind != "t3" {
			continue
		}

		post := models.Post{
			Title:     child.Data.Title,
			Permalink: child.Data.Permalink,
			Score:     child.Data.Score,
			VideoURL:  child.Data.Media.RedditVideo.FallbackURL,
		}
		if imgs := child.Data.Preview.Images; len(imgs) > 0 {
			// preview URLs arrive entity-escaped
			post.PreviewImageURL = strings.ReplaceAll(imgs[0].Source.URL, "&amp;", "&")
		}
		posts = append(posts, post)
	}

	return models.RedditModel{Posts: posts}, nil
}
