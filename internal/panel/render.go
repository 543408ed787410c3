package panel

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/pulseboard/pulseboard/internal/models"
)

// Fragment is one rendered panel body. Rendering replaces the panel's
// previous content wholesale; fragments are never appended to each other.
type Fragment struct {
	HTML template.HTML
	Page Page
}

// Renderer turns normalized feed models into HTML fragments for one panel.
// The finance renderer additionally owns the panel's chart handle; the old
// chart is closed before a new one is installed, so a stale handle can
// never be redrawn.
type Renderer struct {
	tmpl  *template.Template
	chart *Chart
}

// NewRenderer creates a renderer with the panel templates parsed
func NewRenderer() *Renderer {
	return &Renderer{tmpl: panelTemplates}
}

// Render produces the fragment for model at the requested page. The same
// model and page always produce the same fragment.
func (r *Renderer) Render(model models.FeedModel, requestedPage int) (Fragment, error) {
	if degraded, reason := model.DegradedReason(); degraded {
		return r.execute("error", struct{ Reason string }{reason}, Page{Number: 1, Count: 1})
	}

	switch m := model.(type) {
	case models.NewsModel:
		return r.renderNews(m, requestedPage)
	case models.TrendsModel:
		return r.renderTrends(m, requestedPage)
	case models.RedditModel:
		return r.renderReddit(m, requestedPage)
	case models.FinanceSeries:
		return r.renderFinance(m)
	}
	return Fragment{}, fmt.Errorf("no renderer for feed kind %q", model.FeedKind())
}

// Chart returns the live chart handle (nil when no finance render happened
// yet or the series was too thin to plot)
func (r *Renderer) Chart() *Chart { return r.chart }

// Close releases the renderer's chart handle
func (r *Renderer) Close() {
	if r.chart != nil {
		r.chart.Close()
		r.chart = nil
	}
}

func (r *Renderer) renderNews(m models.NewsModel, requestedPage int) (Fragment, error) {
	// cards need both an image and a description; drop articles missing
	// either before paging
	articles := make([]models.Article, 0, len(m.Articles))
	for _, a := range m.Articles {
		if a.ImageURL == "" || a.Description == "" {
			continue
		}
		articles = append(articles, a)
	}

	page := Paginate(len(articles), requestedPage, newsPageSize)
	data := struct {
		Articles []models.Article
		Page     Page
	}{articles[page.Start:page.End], page}
	return r.execute("news", data, page)
}

func (r *Renderer) renderTrends(m models.TrendsModel, requestedPage int) (Fragment, error) {
	page := Paginate(len(m.Topics), requestedPage, trendsPageSize)
	data := struct {
		Topics []models.Topic
		Page   Page
	}{m.Topics[page.Start:page.End], page}
	return r.execute("trends", data, page)
}

func (r *Renderer) renderReddit(m models.RedditModel, requestedPage int) (Fragment, error) {
	page := Paginate(len(m.Posts), requestedPage, redditPageSize)
	data := struct {
		Posts []models.Post
		Page  Page
	}{m.Posts[page.Start:page.End], page}
	return r.execute("reddit", data, page)
}

func (r *Renderer) renderFinance(m models.FinanceSeries) (Fragment, error) {
	chart := BuildChart(m)

	// replace-on-redraw: the previous handle dies before the new one lives
	if r.chart != nil {
		r.chart.Close()
		r.chart = nil
	}
	if len(chart.Points) >= 2 {
		r.chart = chart
	}

	data := struct {
		Series models.FinanceSeries
		Quote  *models.FinanceQuote
		Chart  *Chart
	}{m, m.Quote, r.chart}
	return r.execute("finance", data, Page{Number: 1, Count: 1})
}

func (r *Renderer) execute(name string, data interface{}, page Page) (Fragment, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, data); err != nil {
		return Fragment{}, fmt.Errorf("render %s fragment: %w", name, err)
	}
	return Fragment{HTML: template.HTML(buf.String()), Page: page}, nil
}

var panelTemplates = template.Must(template.New("panels").Parse(`
{{define "error"}}<div class="panel-error">{{.Reason}}</div>{{end}}

{{define "pager"}}
<nav class="pager">
	{{if .HasPrev}}<button data-dir="prev">Previous</button>{{end}}
	<span>{{.Number}} / {{.Count}}</span>
	{{if .HasNext}}<button data-dir="next">Next</button>{{end}}
</nav>
{{end}}

{{define "news"}}
<ul class="news-list">
	{{range .Articles}}
	<li class="news-card">
		<img src="{{.ImageURL}}" alt="">
		<a href="{{.URL}}">{{.Title}}</a>
		<p>{{.Description}}</p>
		<small>{{.SourceName}}{{if .Author}} - {{.Author}}{{end}}</small>
	</li>
	{{end}}
</ul>
{{template "pager" .Page}}
{{end}}

{{define "trends"}}
{{range .Topics}}
<article class="trend-topic">
	{{if .DateLabel}}<h3>{{.DateLabel}}</h3>{{end}}
	<h4>{{.Title}}{{if .TrafficLabel}} <span class="traffic">{{.TrafficLabel}}</span>{{end}}</h4>
	{{if .ImageURL}}<img src="{{.ImageURL}}" alt="">{{end}}
	<ul>
		{{range .Articles}}
		<li><a href="{{.URL}}">{{.Title}}</a> <small>{{.Source}} {{.Time}}</small>
			{{if .Snippet}}<p>{{.Snippet}}</p>{{end}}</li>
		{{end}}
	</ul>
</article>
{{end}}
{{template "pager" .Page}}
{{end}}

{{define "reddit"}}
<ul class="reddit-list">
	{{range .Posts}}
	<li class="reddit-post">
		<a href="https://www.reddit.com{{.Permalink}}">{{.Title}}</a>
		<span class="score">{{.Score}}</span>
		{{if .VideoURL}}<video src="{{.VideoURL}}" controls></video>
		{{else if .PreviewImageURL}}<img src="{{.PreviewImageURL}}" alt="">{{end}}
	</li>
	{{end}}
</ul>
{{template "pager" .Page}}
{{end}}

{{define "finance"}}
<div class="finance-panel" data-symbol="{{.Series.Symbol}}">
	{{with .Quote}}
	<div class="quote">
		<strong>{{.Symbol}}</strong> {{printf "%.2f" .Price}}
		{{if .HasChange}}<span class="change">{{printf "%+.2f" .Change}} ({{printf "%+.2f" .ChangePercent}}%)</span>{{end}}
	</div>
	{{end}}
	{{if .Chart}}
	<figure class="chart" data-time-unit="{{.Chart.TimeUnit}}" data-points="{{len .Chart.Points}}"></figure>
	{{else}}
	<div class="panel-note">insufficient data</div>
	{{end}}
</div>
{{end}}
`))
