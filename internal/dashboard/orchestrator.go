package dashboard

import (
	"context"
	"fmt"
	"sync"

	"github.com/pulseboard/pulseboard/internal/feeds"
	"github.com/pulseboard/pulseboard/internal/logging"
	"github.com/pulseboard/pulseboard/internal/models"
	"github.com/pulseboard/pulseboard/internal/panel"
	"github.com/pulseboard/pulseboard/internal/refresh"
)

// Clients collects the feed clients the orchestrator dispatches to
type Clients struct {
	News    *feeds.NewsClient
	Trends  *feeds.TrendsClient
	Reddit  *feeds.RedditClient
	Finance *feeds.FinanceClient
}

// Defaults are the bootstrap parameters for every panel
type Defaults struct {
	NewsCategory  string
	NewsCountry   string
	NewsLanguage  string
	RedditPeriod  string
	TrendsType    string
	Symbol        string
	FinanceRange  string
	FinanceIntrvl string
}

// BootstrapDefaults returns the stock dashboard: world news, daily trends,
// top-of-day reddit, and a live AAPL chart.
func BootstrapDefaults() Defaults {
	return Defaults{
		NewsCategory:  "world",
		NewsCountry:   "us",
		NewsLanguage:  "en",
		RedditPeriod:  "day",
		TrendsType:    "daily",
		Symbol:        "AAPL",
		FinanceRange:  "1d",
		FinanceIntrvl: "1m",
	}
}

// PanelState is the mutable state of one panel: the pagination cursor, the
// pause flag, and the last model rendered into it.
type PanelState struct {
	Paused    bool
	Page      int
	PageSize  int
	LastModel models.FeedModel
}

// panelSlot pairs a panel's state with its renderer and fetch dispatch.
// token is a monotonic counter stamped onto every fetch; a fetch's render
// applies only while its stamp is still the newest issued for the panel, so
// an older request resolving late can never overwrite a newer render.
type panelSlot struct {
	fetch func(ctx context.Context, query models.FeedQuery, force bool) (models.FeedModel, error)

	state    PanelState
	renderer *panel.Renderer
	query    models.FeedQuery
	fragment panel.Fragment
	token    uint64
	issued   uint64
}

// Orchestrator owns the dashboard session: one slot per feed kind (a closed
// set, no name-based dispatch), the finance auto-refresh scheduler, and the
// last known quote change per symbol.
type Orchestrator struct {
	mu        sync.Mutex
	slots     map[models.FeedKind]*panelSlot
	scheduler *refresh.Scheduler
	defaults  Defaults
	logger    *logging.Logger

	// quote change carried forward when a live tick omits it
	lastChange map[string]quoteChange
}

type quoteChange struct {
	change  float64
	percent float64
}

// New wires an orchestrator around the given clients. schedulerCfg controls
// the finance polling loop.
func New(clients Clients, schedulerCfg refresh.Config, defaults Defaults, logger *logging.Logger) *Orchestrator {
	o := &Orchestrator{
		slots:      make(map[models.FeedKind]*panelSlot, len(models.Kinds())),
		defaults:   defaults,
		logger:     logger,
		lastChange: make(map[string]quoteChange),
	}

	o.slots[models.KindNews] = &panelSlot{
		fetch: func(ctx context.Context, q models.FeedQuery, force bool) (models.FeedModel, error) {
			return clients.News.Fetch(ctx, q, force), nil
		},
	}
	o.slots[models.KindTrends] = &panelSlot{
		fetch: func(ctx context.Context, q models.FeedQuery, force bool) (models.FeedModel, error) {
			return clients.Trends.Fetch(ctx, q, force)
		},
	}
	o.slots[models.KindReddit] = &panelSlot{
		fetch: func(ctx context.Context, q models.FeedQuery, force bool) (models.FeedModel, error) {
			return clients.Reddit.Fetch(ctx, q)
		},
	}
	o.slots[models.KindFinance] = &panelSlot{
		fetch: func(ctx context.Context, q models.FeedQuery, force bool) (models.FeedModel, error) {
			series, err := clients.Finance.Fetch(ctx, q)
			if err != nil {
				return nil, err
			}
			return o.carryQuoteChange(series), nil
		},
	}

	for kind, slot := range o.slots {
		slot.state = PanelState{Page: 1, PageSize: panel.PageSize(kind)}
		slot.renderer = panel.NewRenderer()
		slot.query = o.defaultQuery(kind)
	}

	o.scheduler = refresh.New(schedulerCfg, o.financeTick, logger)
	return o
}

func (o *Orchestrator) defaultQuery(kind models.FeedKind) models.FeedQuery {
	d := o.defaults
	switch kind {
	case models.KindNews:
		return models.NewFeedQuery(kind, map[string]string{
			"category": d.NewsCategory,
			"country":  d.NewsCountry,
			"language": d.NewsLanguage,
		})
	case models.KindTrends:
		return models.NewFeedQuery(kind, map[string]string{"type": d.TrendsType})
	case models.KindReddit:
		return models.NewFeedQuery(kind, map[string]string{"t": d.RedditPeriod})
	case models.KindFinance:
		return models.NewFeedQuery(kind, map[string]string{
			"symbol":   d.Symbol,
			"range":    d.FinanceRange,
			"interval": d.FinanceIntrvl,
		})
	}
	return models.NewFeedQuery(kind, nil)
}

// Bootstrap fetches and renders every panel once with its defaults, then
// arms the finance scheduler (which itself decides whether the market is
// open enough to poll).
func (o *Orchestrator) Bootstrap(ctx context.Context) {
	for _, kind := range []models.FeedKind{models.KindNews, models.KindTrends, models.KindReddit} {
		if _, err := o.Refresh(ctx, kind, nil, false); err != nil {
			o.logger.Warn("Bootstrap fetch failed", logging.WithFields(map[string]interface{}{
				"feed":  string(kind),
				"error": err.Error(),
			}))
		}
	}

	if err := o.scheduler.Start(ctx, o.defaults.Symbol, o.defaults.FinanceRange, o.defaults.FinanceIntrvl); err != nil {
		o.logger.Warn("Bootstrap finance start failed", logging.WithField("error", err.Error()))
	}
}

// Refresh fetches kind (with the panel's current query when query is nil)
// and renders the result. A paused panel is left untouched. Stale responses
// are discarded: only the newest issued request may render.
func (o *Orchestrator) Refresh(ctx context.Context, kind models.FeedKind, query *models.FeedQuery, force bool) (panel.Fragment, error) {
	slot, ok := o.slots[kind]
	if !ok {
		return panel.Fragment{}, fmt.Errorf("unknown feed kind %q", kind)
	}

	o.mu.Lock()
	if slot.state.Paused {
		frag := slot.fragment
		o.mu.Unlock()
		return frag, nil
	}
	if query != nil {
		slot.query = *query
		slot.state.Page = 1
	}
	q := slot.query
	slot.issued++
	token := slot.issued
	o.mu.Unlock()

	model, err := slot.fetch(ctx, q, force)
	if err != nil {
		return panel.Fragment{}, err
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if token < slot.issued {
		// a newer request is in flight or already rendered
		o.logger.Debug("Discarding stale fetch result", logging.WithField("feed", string(kind)))
		return slot.fragment, nil
	}
	slot.token = token

	return o.renderLocked(kind, slot, model)
}

// renderLocked renders model into slot and records it. Callers hold o.mu.
func (o *Orchestrator) renderLocked(kind models.FeedKind, slot *panelSlot, model models.FeedModel) (panel.Fragment, error) {
	frag, err := slot.renderer.Render(model, slot.state.Page)
	if err != nil {
		return panel.Fragment{}, fmt.Errorf("render %s panel: %w", kind, err)
	}

	slot.state.LastModel = model
	slot.state.Page = frag.Page.Number
	slot.fragment = frag
	return frag, nil
}

// Fragment returns the panel's current rendered fragment
func (o *Orchestrator) Fragment(kind models.FeedKind) (panel.Fragment, bool) {
	slot, ok := o.slots[kind]
	if !ok {
		return panel.Fragment{}, false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return slot.fragment, true
}

// MovePage shifts the pagination cursor by one page ("next" or "prev") and
// re-renders from the last model without refetching.
func (o *Orchestrator) MovePage(kind models.FeedKind, dir string) (panel.Fragment, error) {
	slot, ok := o.slots[kind]
	if !ok {
		return panel.Fragment{}, fmt.Errorf("unknown feed kind %q", kind)
	}
	if dir != "next" && dir != "prev" {
		return panel.Fragment{}, fmt.Errorf("invalid page direction %q", dir)
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if slot.state.LastModel == nil {
		return slot.fragment, nil
	}

	if dir == "next" {
		slot.state.Page++
	} else {
		slot.state.Page--
	}
	return o.renderLocked(kind, slot, slot.state.LastModel)
}

// TogglePause flips the panel's pause flag. Resuming immediately refetches;
// the finance panel also re-arms its scheduler.
func (o *Orchestrator) TogglePause(ctx context.Context, kind models.FeedKind) (bool, panel.Fragment, error) {
	slot, ok := o.slots[kind]
	if !ok {
		return false, panel.Fragment{}, fmt.Errorf("unknown feed kind %q", kind)
	}

	o.mu.Lock()
	slot.state.Paused = !slot.state.Paused
	paused := slot.state.Paused
	frag := slot.fragment
	o.mu.Unlock()

	if paused {
		if kind == models.KindFinance {
			o.scheduler.Stop()
		}
		return true, frag, nil
	}

	if kind == models.KindFinance {
		q := o.currentQuery(kind)
		err := o.scheduler.Start(ctx, q.Param("symbol"), q.Param("range"), q.Param("interval"))
		frag, _ = o.Fragment(kind)
		return false, frag, err
	}

	frag, err := o.Refresh(ctx, kind, nil, false)
	return false, frag, err
}

// Paused reports the panel's pause flag
func (o *Orchestrator) Paused(kind models.FeedKind) bool {
	slot, ok := o.slots[kind]
	if !ok {
		return false
	}
	o.mu.Lock()
	defer o.mu.Unlock()
	return slot.state.Paused
}

// StartFinance points the live chart at a new (symbol, range, interval)
// selection, restarting the scheduler
func (o *Orchestrator) StartFinance(ctx context.Context, symbol, rng, interval string) error {
	if rng == "" {
		rng = o.defaults.FinanceRange
	}
	if interval == "" {
		interval = o.defaults.FinanceIntrvl
	}
	query := models.NewFeedQuery(models.KindFinance, map[string]string{
		"symbol":   symbol,
		"range":    rng,
		"interval": interval,
	})

	o.mu.Lock()
	o.slots[models.KindFinance].query = query
	o.mu.Unlock()

	return o.scheduler.Start(ctx, symbol, rng, interval)
}

// Stop disarms the scheduler and releases panel resources
func (o *Orchestrator) Stop() {
	o.scheduler.Stop()
	for _, slot := range o.slots {
		slot.renderer.Close()
	}
}

func (o *Orchestrator) currentQuery(kind models.FeedKind) models.FeedQuery {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.slots[kind].query
}

// financeTick is the scheduler's callback: one fetch-and-render of the
// finance panel
func (o *Orchestrator) financeTick(ctx context.Context, symbol, rng, interval string) error {
	query := models.NewFeedQuery(models.KindFinance, map[string]string{
		"symbol":   symbol,
		"range":    rng,
		"interval": interval,
	})
	_, err := o.Refresh(ctx, models.KindFinance, &query, true)
	return err
}

// carryQuoteChange fills a quote's missing change fields from the last tick
// that had them, and records fresh ones
func (o *Orchestrator) carryQuoteChange(series models.FinanceSeries) models.FinanceSeries {
	if series.Quote == nil {
		return series
	}

	o.mu.Lock()
	defer o.mu.Unlock()

	if series.Quote.HasChange {
		o.lastChange[series.Symbol] = quoteChange{series.Quote.Change, series.Quote.ChangePercent}
		return series
	}
	if last, ok := o.lastChange[series.Symbol]; ok {
		q := *series.Quote
		q.Change = last.change
		q.ChangePercent = last.percent
		q.HasChange = true
		series.Quote = &q
	}
	return series
}
