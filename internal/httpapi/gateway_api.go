package httpapi

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/pulseboard/pulseboard/internal/feeds"
	"github.com/pulseboard/pulseboard/internal/logging"
)

const mapsScriptURL = "https://maps.googleapis.com/maps/api/js"

func (s *Server) writeProviderJSON(w http.ResponseWriter, body []byte) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(body)
}

// handleNews handles GET /api/news?query=|category=&country=&language=
func (s *Server) handleNews(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	params := url.Values{}
	for _, k := range []string{"query", "category", "country", "language"} {
		if v := r.URL.Query().Get(k); v != "" {
			params.Set(k, v)
		}
	}

	body, err := s.news.FetchRaw(r.Context(), params)
	if err != nil {
		s.logger.Warn("News proxy failed", logging.WithField("error", err.Error()))
		s.writeError(w, err)
		return
	}
	s.writeProviderJSON(w, body)
}

// handleTrends handles GET /api/trends?type=daily|realtime&category=&geo=&language=
func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	q := r.URL.Query()
	trendType := q.Get("type")
	if trendType == "" {
		trendType = "daily"
	}

	body, err := s.trends.FetchRaw(r.Context(), trendType, q.Get("geo"), q.Get("category"), q.Get("language"))
	if err != nil {
		s.logger.Warn("Trends proxy failed", logging.WithField("error", err.Error()))
		s.writeError(w, err)
		return
	}
	s.writeProviderJSON(w, body)
}

// handleFinance handles GET /api/finance/{symbol}?range=&interval=
func (s *Server) handleFinance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	symbol := strings.TrimPrefix(r.URL.Path, "/api/finance/")
	if symbol == "" || strings.Contains(symbol, "/") {
		s.writeError(w, &feeds.InvalidParameterError{Param: "symbol", Value: symbol, Allowed: "a single ticker"})
		return
	}

	q := r.URL.Query()
	body, err := s.finance.FetchRaw(r.Context(), symbol, q.Get("range"), q.Get("interval"))
	if err != nil {
		s.logger.Warn("Finance proxy failed", logging.WithFields(map[string]interface{}{
			"symbol": symbol,
			"error":  err.Error(),
		}))
		s.writeError(w, err)
		return
	}
	s.writeProviderJSON(w, body)
}

// handleReddit handles GET /api/reddit?t=day|week
func (s *Server) handleReddit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	period := r.URL.Query().Get("t")
	if period == "" {
		period = "day"
	}

	body, err := s.reddit.FetchRaw(r.Context(), period)
	if err != nil {
		s.logger.Warn("Reddit proxy failed", logging.WithField("error", err.Error()))
		s.writeError(w, err)
		return
	}
	s.writeProviderJSON(w, body)
}

// handleMapsScript redirects to the maps loader with the server-held key
// attached; the key itself never appears in any JSON response
func (s *Server) handleMapsScript(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if s.cfg.Maps.APIKey == "" {
		s.writeError(w, &feeds.ConfigurationError{Missing: "GOOGLE_MAPS_API_KEY"})
		return
	}

	target := mapsScriptURL + "?key=" + url.QueryEscape(s.cfg.Maps.APIKey) + "&libraries=places"
	http.Redirect(w, r, target, http.StatusFound)
}

// handleConfig returns the client bootstrap settings. Secrets stay
// server-side; the client only learns which features are live.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]interface{}{
		"defaultSymbol":    s.cfg.Finance.DefaultSymbol,
		"realTimeRange":    s.cfg.Finance.RealTimeRange,
		"realTimeInterval": s.cfg.Finance.RealTimeInterval,
		"features": map[string]bool{
			"news": s.cfg.Feeds.NewsAPIKey != "",
			"maps": s.cfg.Maps.APIKey != "",
			"chat": s.cfg.Chat.APIKey != "",
		},
	})
}

// handleChat handles POST /api/chat {"messages": [...]} -> {"reply": ...};
// the per-session budget is charged before the provider call
func (s *Server) handleChat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Messages []string `json:"messages"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || len(req.Messages) == 0 {
		s.writeError(w, &feeds.InvalidParameterError{Param: "messages", Value: "", Allowed: "a non-empty array"})
		return
	}

	latest := req.Messages[len(req.Messages)-1]
	if err := s.chatSess.Admit(latest); err != nil {
		s.writeError(w, err)
		return
	}

	reply, err := s.chatClient.Complete(r.Context(), req.Messages)
	if err != nil {
		s.logger.Warn("Chat completion failed", logging.WithField("error", err.Error()))
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, map[string]string{
		"reply": reply,
	})
}
