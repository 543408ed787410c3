package panel

import (
	"strings"
	"testing"

	"github.com/pulseboard/pulseboard/internal/models"
)

func newsModelWith(n int) models.NewsModel {
	m := models.NewsModel{}
	for i := 0; i < n; i++ {
		m.Articles = append(m.Articles, models.Article{
			Title:       "Article",
			Description: "Body",
			URL:         "https://example.com",
			ImageURL:    "https://example.com/i.jpg",
		})
	}
	return m
}

func TestRenderIdempotent(t *testing.T) {
	r := NewRenderer()
	model := newsModelWith(7)

	first, err := r.Render(model, 1)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	second, err := r.Render(model, 1)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if first.HTML != second.HTML {
		t.Error("same model and page rendered differently")
	}
}

func TestRenderNewsFiltersIncompleteArticles(t *testing.T) {
	model := models.NewsModel{Articles: []models.Article{
		{Title: "Keep", Description: "Body", ImageURL: "https://example.com/a.jpg", URL: "u"},
		{Title: "No image", Description: "Body", URL: "u"},
		{Title: "No description", ImageURL: "https://example.com/b.jpg", URL: "u"},
	}}

	frag, err := NewRenderer().Render(model, 1)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	html := string(frag.HTML)
	if !strings.Contains(html, "Keep") {
		t.Error("complete article missing from fragment")
	}
	if strings.Contains(html, "No image") || strings.Contains(html, "No description") {
		t.Error("incomplete articles should be filtered before paging")
	}
}

func TestRenderNewsBylineSeparator(t *testing.T) {
	model := models.NewsModel{Articles: []models.Article{
		{Title: "Keep", Description: "Body", ImageURL: "https://example.com/a.jpg", URL: "u", SourceName: "Wire", Author: "A. Writer"},
	}}

	frag, err := NewRenderer().Render(model, 1)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	if !strings.Contains(string(frag.HTML), "Wire - A. Writer") {
		t.Errorf("byline missing plain separator: %s", frag.HTML)
	}
}

func TestRenderPagerControls(t *testing.T) {
	r := NewRenderer()
	model := newsModelWith(12)

	frag, _ := r.Render(model, 1)
	if frag.Page.Count != 3 {
		t.Fatalf("page count = %d, want 3", frag.Page.Count)
	}
	if strings.Contains(string(frag.HTML), "Previous") {
		t.Error("page 1 must not offer Previous")
	}
	if !strings.Contains(string(frag.HTML), "Next") {
		t.Error("page 1 should offer Next")
	}

	frag, _ = r.Render(model, 3)
	if strings.Contains(string(frag.HTML), "Next") {
		t.Error("last page must not offer Next")
	}
	if !strings.Contains(string(frag.HTML), "Previous") {
		t.Error("last page should offer Previous")
	}
}

func TestRenderDegradedModel(t *testing.T) {
	model := models.NewsModel{Degraded: true, Reason: "Unable to fetch news: upstream down"}

	frag, err := NewRenderer().Render(model, 1)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(frag.HTML), "Unable to fetch news") {
		t.Error("degraded fragment should carry the display reason")
	}
}

func TestRenderRedditVideoOverImage(t *testing.T) {
	model := models.RedditModel{Posts: []models.Post{{
		Title:           "Clip",
		Permalink:       "/r/x/1",
		PreviewImageURL: "https://example.com/p.jpg",
		VideoURL:        "https://example.com/v.mp4",
	}}}

	frag, err := NewRenderer().Render(model, 1)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}

	html := string(frag.HTML)
	if !strings.Contains(html, "v.mp4") {
		t.Error("video missing")
	}
	if strings.Contains(html, "p.jpg") {
		t.Error("preview image rendered despite a video being present")
	}
}

func TestRenderFinanceReplacesChart(t *testing.T) {
	r := NewRenderer()
	series := models.FinanceSeries{
		Symbol:     "AAPL",
		RangeLabel: "1d",
		Points:     seriesOf(fptr(190), fptr(191), fptr(192)),
	}

	if _, err := r.Render(series, 1); err != nil {
		t.Fatalf("Render: %v", err)
	}
	first := r.Chart()
	if first == nil {
		t.Fatal("no chart after finance render")
	}

	if _, err := r.Render(series, 1); err != nil {
		t.Fatalf("Render: %v", err)
	}
	second := r.Chart()

	if !first.Closed() {
		t.Error("previous chart must be closed before the replacement is installed")
	}
	if second == first {
		t.Error("chart handle was reused instead of replaced")
	}
	if second.Closed() {
		t.Error("live chart is closed")
	}
}

func TestRenderFinanceInsufficientData(t *testing.T) {
	r := NewRenderer()
	series := models.FinanceSeries{
		Symbol:     "AAPL",
		RangeLabel: "1d",
		Points:     seriesOf(fptr(190)),
		Quote:      &models.FinanceQuote{Symbol: "AAPL", Price: 190},
	}

	frag, err := r.Render(series, 1)
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if r.Chart() != nil {
		t.Error("single-point series must not produce a chart")
	}
	if !strings.Contains(string(frag.HTML), "insufficient data") {
		t.Error("fragment should note the missing chart")
	}
}
