package models

import (
	"sort"
	"strings"
	"time"
)

// FeedKind identifies one of the dashboard's data feeds
type FeedKind string

const (
	KindNews    FeedKind = "news"
	KindTrends  FeedKind = "trends"
	KindReddit  FeedKind = "reddit"
	KindFinance FeedKind = "finance"
)

// Kinds lists every feed kind in panel order
func Kinds() []FeedKind {
	return []FeedKind{KindNews, KindTrends, KindReddit, KindFinance}
}

// ParseFeedKind validates a feed kind string from a request path
func ParseFeedKind(s string) (FeedKind, bool) {
	switch FeedKind(s) {
	case KindNews, KindTrends, KindReddit, KindFinance:
		return FeedKind(s), true
	}
	return "", false
}

// FeedQuery identifies one fetch: a feed kind plus its parameters.
// Identity is the kind and the canonicalized parameter tuple.
type FeedQuery struct {
	Kind   FeedKind
	params map[string]string
}

// NewFeedQuery builds a query; the params map is copied
func NewFeedQuery(kind FeedKind, params map[string]string) FeedQuery {
	p := make(map[string]string, len(params))
	for k, v := range params {
		p[k] = v
	}
	return FeedQuery{Kind: kind, params: p}
}

// Param returns a single parameter value ("" when absent)
func (q FeedQuery) Param(key string) string {
	return q.params[key]
}

// Key returns the canonical cache key: kind plus key-sorted parameters
func (q FeedQuery) Key() string {
	keys := make([]string, 0, len(q.params))
	for k := range q.params {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(string(q.Kind))
	for _, k := range keys {
		b.WriteByte('|')
		b.WriteString(k)
		b.WriteByte('=')
		b.WriteString(q.params[k])
	}
	return b.String()
}

// FeedModel is the normalized, panel-ready output of a feed client.
// A degraded model represents a handled failure and is safe to render.
type FeedModel interface {
	FeedKind() FeedKind
	DegradedReason() (bool, string)
}

// Article is one news headline
type Article struct {
	Title       string
	Description string
	URL         string
	ImageURL    string
	Author      string
	PublishedAt time.Time
	SourceName  string
}

// NewsModel is the normalized news feed
type NewsModel struct {
	Articles []Article
	Degraded bool
	Reason   string
}

func (NewsModel) FeedKind() FeedKind               { return KindNews }
func (m NewsModel) DegradedReason() (bool, string) { return m.Degraded, m.Reason }

// TrendArticle is a sub-article attached to a trending topic
type TrendArticle struct {
	Title    string
	URL      string
	Source   string
	Snippet  string
	ImageURL string
	VideoURL string
	Time     string
}

// Topic is one trending search or story
type Topic struct {
	Title        string
	TrafficLabel string
	ImageURL     string
	DateLabel    string
	Articles     []TrendArticle
}

// TrendsModel is the normalized trends feed
type TrendsModel struct {
	Topics   []Topic
	Degraded bool
	Reason   string
}

func (TrendsModel) FeedKind() FeedKind               { return KindTrends }
func (m TrendsModel) DegradedReason() (bool, string) { return m.Degraded, m.Reason }

// Post is one reddit post
type Post struct {
	Title           string
	Permalink       string
	Score           int
	PreviewImageURL string
	VideoURL        string
}

// RedditModel is the normalized reddit feed
type RedditModel struct {
	Posts    []Post
	Degraded bool
	Reason   string
}

func (RedditModel) FeedKind() FeedKind               { return KindReddit }
func (m RedditModel) DegradedReason() (bool, string) { return m.Degraded, m.Reason }

// PricePoint is one sample in a price series; Close is nil for gaps
type PricePoint struct {
	Timestamp time.Time
	Close     *float64
}

// FinanceSeries is the normalized historical price feed for one symbol
type FinanceSeries struct {
	Symbol     string
	RangeLabel string
	Interval   string
	Points     []PricePoint
	Quote      *FinanceQuote
	Degraded   bool
	Reason     string
}

func (FinanceSeries) FeedKind() FeedKind               { return KindFinance }
func (m FinanceSeries) DegradedReason() (bool, string) { return m.Degraded, m.Reason }

// FinanceQuote is the latest quote for one symbol. HasChange is false when
// neither the provider nor the series supplied enough data to derive change.
type FinanceQuote struct {
	Symbol        string
	Price         float64
	Change        float64
	ChangePercent float64
	HasChange     bool
	AsOf          time.Time
}
