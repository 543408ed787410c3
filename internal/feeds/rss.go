package feeds

import (
	"context"
	"encoding/json"
	"sort"

	"github.com/mmcdole/gofeed"

	"github.com/pulseboard/pulseboard/internal/ratelimit"
)

const rssMaxItemsPerSource = 20

// RSSSource is one syndication feed used as a keyless news fallback
type RSSSource struct {
	Name string
	URL  string
}

// DefaultRSSSources returns general-news feeds used when no provider key is set
func DefaultRSSSources() []RSSSource {
	return []RSSSource{
		{Name: "BBC News", URL: "https://feeds.bbci.co.uk/news/world/rss.xml"},
		{Name: "Reuters", URL: "https://www.reutersagency.com/feed/"},
		{Name: "NPR", URL: "https://feeds.npr.org/1001/rss.xml"},
	}
}

// RSSFallback serves headline data from RSS feeds, shaped like the news
// provider's response so the gateway surface stays uniform
type RSSFallback struct {
	sources []RSSSource
	parser  *gofeed.Parser
	limiter *ratelimit.Limiter
	config  FetcherConfig
}

// NewRSSFallback creates a fallback over the given sources
func NewRSSFallback(sources []RSSSource, limiter *ratelimit.Limiter, cfg FetcherConfig) *RSSFallback {
	return &RSSFallback{
		sources: sources,
		parser:  gofeed.NewParser(),
		limiter: limiter,
		config:  cfg,
	}
}

// FetchRaw fetches every source, newest first, and returns provider-shaped
// JSON. Sources that fail are skipped; an error is returned only when no
// source yielded anything.
func (f *RSSFallback) FetchRaw(ctx context.Context) ([]byte, error) {
	var articles []newsArticle
	var lastErr error

	for _, src := range f.sources {
		if f.limiter != nil {
			f.limiter.Wait(hostOf(src.URL))
		}

		fetchCtx, cancel := context.WithTimeout(ctx, f.config.Timeout)
		feed, err := f.parser.ParseURLWithContext(src.URL, fetchCtx)
		cancel()
		if err != nil {
			lastErr = err
			continue
		}

		for i, item := range feed.Items {
			if i >= rssMaxItemsPerSource {
				break
			}

			a := newsArticle{
				Title:       item.Title,
				Description: item.Description,
				URL:         item.Link,
			}
			a.Source.Name = src.Name
			if item.Author != nil {
				a.Author = item.Author.Name
			}
			if item.Image != nil {
				a.URLToImage = item.Image.URL
			}
			if item.PublishedParsed != nil {
				a.PublishedAt = item.PublishedParsed.UTC().Format("2006-01-02T15:04:05Z")
			}
			articles = append(articles, a)
		}
	}

	if len(articles) == 0 {
		if lastErr != nil {
			return nil, &NetworkError{Host: "rss", Err: lastErr}
		}
		return nil, &UpstreamShapeError{Feed: "news", Detail: "rss sources returned no items"}
	}

	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].PublishedAt > articles[j].PublishedAt
	})

	return json.Marshal(newsResponse{Status: "ok", Articles: articles})
}
