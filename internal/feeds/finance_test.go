package feeds

import (
	"context"
	"fmt"
	"math"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pulseboard/pulseboard/internal/models"
	"github.com/pulseboard/pulseboard/internal/testutil"
)

func chartPayload(metaExtra, closes string) string {
	return fmt.Sprintf(`{
		"chart": {
			"result": [
				{
					"meta": {
						"symbol": "AAPL",
						"regularMarketPrice": 191.5,
						"regularMarketTime": 1709668800
						%s
					},
					"timestamp": [1709650800, 1709650860, 1709650920, 1709650980],
					"indicators": {"quote": [{"close": %s}]}
				}
			],
			"error": null
		}
	}`, metaExtra, closes)
}

func financeClientFor(t *testing.T, srv *httptest.Server) *FinanceClient {
	t.Helper()
	c := NewFinanceClient(nil, DefaultConfig(), testutil.NullLogger())
	c.BaseURL = srv.URL
	return c
}

func financeQuery(symbol string) models.FeedQuery {
	return models.NewFeedQuery(models.KindFinance, map[string]string{
		"symbol":   symbol,
		"range":    "1d",
		"interval": "1m",
	})
}

func TestFinanceFetchParsesSeries(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/AAPL" {
			t.Errorf("path = %q, want /AAPL", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("range") != "1d" || q.Get("interval") != "1m" {
			t.Errorf("query = %q", r.URL.RawQuery)
		}
		meta := `, "regularMarketChange": 1.25, "regularMarketChangePercent": 0.66`
		w.Write([]byte(chartPayload(meta, "[190.0, null, 190.8, 191.5]")))
	}))
	defer srv.Close()

	c := financeClientFor(t, srv)
	series, err := c.Fetch(context.Background(), financeQuery("aapl"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if series.Degraded {
		t.Fatalf("series degraded: %s", series.Reason)
	}

	if series.Symbol != "AAPL" {
		t.Errorf("symbol = %q, want uppercased AAPL", series.Symbol)
	}
	if len(series.Points) != 4 {
		t.Fatalf("got %d points, want 4", len(series.Points))
	}
	if series.Points[1].Close != nil {
		t.Error("null close should stay nil, not be filled at this layer")
	}
	if series.Points[3].Close == nil || *series.Points[3].Close != 191.5 {
		t.Errorf("last close = %v", series.Points[3].Close)
	}

	if series.Quote == nil {
		t.Fatal("quote missing")
	}
	if !series.Quote.HasChange || series.Quote.Change != 1.25 || series.Quote.ChangePercent != 0.66 {
		t.Errorf("quote = %+v, want provider change fields", series.Quote)
	}
}

func TestFinanceFetchDerivesChange(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartPayload("", "[null, 200.0, null, 205.0]")))
	}))
	defer srv.Close()

	c := financeClientFor(t, srv)
	series, err := c.Fetch(context.Background(), financeQuery("AAPL"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	q := series.Quote
	if q == nil || !q.HasChange {
		t.Fatalf("quote = %+v, want change derived from closes", q)
	}
	if q.Change != 5.0 {
		t.Errorf("change = %v, want 5.0", q.Change)
	}
	if math.Abs(q.ChangePercent-2.5) > 1e-9 {
		t.Errorf("changePercent = %v, want 2.5", q.ChangePercent)
	}
}

func TestFinanceFetchInsufficientData(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(chartPayload("", "[null, null, 200.0, null]")))
	}))
	defer srv.Close()

	c := financeClientFor(t, srv)
	series, err := c.Fetch(context.Background(), financeQuery("AAPL"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}

	q := series.Quote
	if q == nil {
		t.Fatal("quote missing")
	}
	if q.HasChange || q.Change != 0 || q.ChangePercent != 0 {
		t.Errorf("quote = %+v, want no change with a single usable close", q)
	}
}

func TestFinanceFetchRateLimitedPropagates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := financeClientFor(t, srv)
	_, err := c.Fetch(context.Background(), financeQuery("AAPL"))
	if !IsRateLimited(err) {
		t.Errorf("got %v, want RateLimitedError", err)
	}
}

func TestFinanceFetchMissingSymbol(t *testing.T) {
	c := NewFinanceClient(nil, DefaultConfig(), testutil.NullLogger())

	_, err := c.Fetch(context.Background(), models.NewFeedQuery(models.KindFinance, nil))
	if !IsInvalidParameter(err) {
		t.Errorf("got %v, want InvalidParameterError", err)
	}
}

func TestFinanceFetchDegradedOnProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"chart": {"result": null, "error": {"code": "Not Found", "description": "No data found"}}}`))
	}))
	defer srv.Close()

	c := financeClientFor(t, srv)
	series, err := c.Fetch(context.Background(), financeQuery("ZZZZ"))
	if err != nil {
		t.Fatalf("Fetch: %v", err)
	}
	if !series.Degraded {
		t.Error("expected degraded series for a provider error payload")
	}
}
