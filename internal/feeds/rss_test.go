package feeds

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/pulseboard/pulseboard/internal/testutil"
)

const rssFixture = `<?xml version="1.0" encoding="UTF-8"?>
<rss version="2.0">
	<channel>
		<title>Test Feed</title>
		<item>
			<title>Older story</title>
			<link>https://example.com/older</link>
			<description>Happened earlier.</description>
			<pubDate>Mon, 04 Mar 2024 09:00:00 GMT</pubDate>
		</item>
		<item>
			<title>Newer story</title>
			<link>https://example.com/newer</link>
			<description>Happened later.</description>
			<pubDate>Tue, 05 Mar 2024 09:00:00 GMT</pubDate>
		</item>
	</channel>
</rss>`

func TestRSSFallbackProviderShape(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	f := NewRSSFallback([]RSSSource{{Name: "Test Feed", URL: srv.URL}}, nil, DefaultConfig())

	body, err := f.FetchRaw(context.Background())
	if err != nil {
		t.Fatalf("FetchRaw: %v", err)
	}

	var resp newsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("fallback output is not provider-shaped: %v", err)
	}
	if resp.Status != "ok" {
		t.Errorf("status = %q, want ok", resp.Status)
	}
	if len(resp.Articles) != 2 {
		t.Fatalf("got %d articles, want 2", len(resp.Articles))
	}
	if resp.Articles[0].Title != "Newer story" {
		t.Errorf("first article = %q, want newest first", resp.Articles[0].Title)
	}
	if resp.Articles[0].Source.Name != "Test Feed" {
		t.Errorf("source = %q", resp.Articles[0].Source.Name)
	}
}

func TestRSSFallbackAllSourcesDown(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	f := NewRSSFallback([]RSSSource{{Name: "Dead", URL: srv.URL}}, nil, DefaultConfig())

	if _, err := f.FetchRaw(context.Background()); err == nil {
		t.Error("expected an error when no source yields articles")
	}
}

func TestNewsFetchFallsBackWithoutKey(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rss+xml")
		w.Write([]byte(rssFixture))
	}))
	defer srv.Close()

	fallback := NewRSSFallback([]RSSSource{{Name: "Test Feed", URL: srv.URL}}, nil, DefaultConfig())
	c := NewNewsClient("", 0, nil, nil, DefaultConfig(), fallback, testutil.NullLogger())

	body, err := c.FetchRaw(context.Background(), urlValues("category", "world"))
	if err != nil {
		t.Fatalf("FetchRaw: %v", err)
	}

	var resp newsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Articles) == 0 {
		t.Error("expected fallback articles with no provider key")
	}
}
