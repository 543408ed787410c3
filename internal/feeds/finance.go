package feeds

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pulseboard/pulseboard/internal/logging"
	"github.com/pulseboard/pulseboard/internal/models"
	"github.com/pulseboard/pulseboard/internal/ratelimit"
)

// FinanceClient fetches price history and quotes from the Yahoo chart API.
// Finance data is always live; it never goes through the fetch cache.
type FinanceClient struct {
	// BaseURL points at the chart API root; tests override it
	BaseURL string

	limiter *ratelimit.Limiter
	client  *http.Client
	config  FetcherConfig
	logger  *logging.Logger
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol                     string   `json:"symbol"`
				RegularMarketPrice         float64  `json:"regularMarketPrice"`
				RegularMarketChange        *float64 `json:"regularMarketChange"`
				RegularMarketChangePercent *float64 `json:"regularMarketChangePercent"`
				RegularMarketTime          int64    `json:"regularMarketTime"`
			} `json:"meta"`
			Timestamp  []int64 `json:"timestamp"`
			Indicators struct {
				Quote []struct {
					Close []*float64 `json:"close"`
				} `json:"quote"`
			} `json:"indicators"`
		} `json:"result"`
		Error *struct {
			Code        string `json:"code"`
			Description string `json:"description"`
		} `json:"error"`
	} `json:"chart"`
}

// NewFinanceClient creates a finance client
func NewFinanceClient(limiter *ratelimit.Limiter, cfg FetcherConfig, logger *logging.Logger) *FinanceClient {
	return &FinanceClient{
		BaseURL: "https://query1.finance.yahoo.com/v8/finance/chart",
		limiter: limiter,
		client:  newHTTPClient(cfg),
		config:  cfg,
		logger:  logger,
	}
}

// FetchRaw returns the provider-shaped chart JSON for the gateway proxy path
func (c *FinanceClient) FetchRaw(ctx context.Context, symbol, rng, interval string) ([]byte, error) {
	if symbol == "" {
		return nil, &InvalidParameterError{Param: "symbol", Value: symbol, Allowed: "a non-empty ticker"}
	}
	if rng == "" {
		rng = "1d"
	}
	if interval == "" {
		interval = "1m"
	}

	u := c.BaseURL + "/" + url.PathEscape(strings.ToUpper(symbol)) +
		"?range=" + url.QueryEscape(rng) + "&interval=" + url.QueryEscape(interval)

	if c.limiter != nil {
		c.limiter.Wait(hostOf(c.BaseURL))
	}
	return getBody(ctx, c.client, u, c.config.UserAgent)
}

// Fetch returns the normalized price series and quote for query.
//
// RateLimited and InvalidParameter come back as errors so callers can react
// (the scheduler disarms on rate limiting); any other upstream failure is a
// degraded model.
func (c *FinanceClient) Fetch(ctx context.Context, query models.FeedQuery) (models.FinanceSeries, error) {
	symbol := strings.ToUpper(query.Param("symbol"))
	rng := query.Param("range")
	interval := query.Param("interval")

	body, err := c.FetchRaw(ctx, symbol, rng, interval)
	if err != nil {
		if IsInvalidParameter(err) || IsRateLimited(err) {
			return models.FinanceSeries{}, err
		}
		c.logger.Warn("Finance fetch failed", logging.WithFields(map[string]interface{}{
			"symbol": symbol,
			"error":  err.Error(),
		}))
		return degradedSeries(symbol, rng, interval, "Unable to fetch financial data: "+displayReason(err)), nil
	}

	series, err := parseChart(body, symbol, rng, interval)
	if err != nil {
		c.logger.Warn("Finance payload malformed", logging.WithField("error", err.Error()))
		return degradedSeries(symbol, rng, interval, "Unable to fetch financial data: "+err.Error()), nil
	}
	return series, nil
}

func parseChart(body []byte, symbol, rng, interval string) (models.FinanceSeries, error) {
	var resp chartResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return models.FinanceSeries{}, &UpstreamShapeError{Feed: "finance", Detail: "response is not valid JSON"}
	}
	if resp.Chart.Error != nil {
		return models.FinanceSeries{}, &UpstreamShapeError{Feed: "finance", Detail: resp.Chart.Error.Description}
	}
	if len(resp.Chart.Result) == 0 {
		return models.FinanceSeries{}, &UpstreamShapeError{Feed: "finance", Detail: "empty chart result"}
	}

	result := resp.Chart.Result[0]
	if len(result.Indicators.Quote) == 0 {
		return models.FinanceSeries{}, &UpstreamShapeError{Feed: "finance", Detail: "missing quote indicators"}
	}

	closes := result.Indicators.Quote[0].Close
	points := make([]models.PricePoint, 0, len(result.Timestamp))
	for i, ts := range result.Timestamp {
		var close *float64
		if i < len(closes) {
			close = closes[i]
		}
		points = append(points, models.PricePoint{
			Timestamp: time.Unix(ts, 0).UTC(),
			Close:     close,
		})
	}

	quote := &models.FinanceQuote{
		Symbol: symbol,
		Price:  result.Meta.RegularMarketPrice,
		AsOf:   time.Unix(result.Meta.RegularMarketTime, 0).UTC(),
	}
	if result.Meta.RegularMarketChange != nil && result.Meta.RegularMarketChangePercent != nil {
		quote.Change = *result.Meta.RegularMarketChange
		quote.ChangePercent = *result.Meta.RegularMarketChangePercent
		quote.HasChange = true
	} else {
		deriveChange(quote, points)
	}

	return models.FinanceSeries{
		Symbol:     symbol,
		RangeLabel: rng,
		Interval:   interval,
		Points:     points,
		Quote:      quote,
	}, nil
}

// deriveChange computes absolute and percent change from the first and last
// non-null closes. Fewer than two samples is insufficient data: change stays
// zero and HasChange stays false.
func deriveChange(quote *models.FinanceQuote, points []models.PricePoint) {
	var first, last *float64
	for i := range points {
		if points[i].Close == nil {
			continue
		}
		if first == nil {
			first = points[i].Close
		}
		last = points[i].Close
	}

	if first == nil || last == nil || first == last || *first == 0 {
		return
	}

	quote.Change = *last - *first
	quote.ChangePercent = (*last - *first) / *first * 100
	quote.HasChange = true
}

func degradedSeries(symbol, rng, interval, reason string) models.FinanceSeries {
	return models.FinanceSeries{
		Symbol:     symbol,
		RangeLabel: rng,
		Interval:   interval,
		Degraded:   true,
		Reason:     reason,
	}
}
