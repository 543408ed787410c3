package httpapi

import (
	"net/http"
	"strings"

	"github.com/pulseboard/pulseboard/internal/models"
	"github.com/pulseboard/pulseboard/internal/panel"
)

// handlePanels routes /panels/{feed} and its sub-actions:
//
//	GET  /panels/{feed}          current fragment
//	POST /panels/{feed}/page     move the cursor (?dir=next|prev)
//	POST /panels/{feed}/pause    toggle pause; resume refreshes
//	POST /panels/{feed}/refresh  force a refetch
func (s *Server) handlePanels(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, "/panels/")
	name, action, _ := strings.Cut(rest, "/")

	kind, ok := models.ParseFeedKind(name)
	if !ok {
		http.Error(w, "Unknown panel", http.StatusNotFound)
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.servePanel(w, r, kind)
	case "page":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.servePanelPage(w, r, kind)
	case "pause":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.servePanelPause(w, r, kind)
	case "refresh":
		if r.Method != http.MethodPost {
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
			return
		}
		s.servePanelRefresh(w, r, kind)
	default:
		http.Error(w, "Unknown panel action", http.StatusNotFound)
	}
}

func (s *Server) servePanel(w http.ResponseWriter, r *http.Request, kind models.FeedKind) {
	frag, ok := s.orch.Fragment(kind)
	if !ok || frag.HTML == "" {
		// nothing rendered yet, fetch on demand
		var err error
		frag, err = s.orch.Refresh(r.Context(), kind, nil, false)
		if err != nil {
			s.writeError(w, err)
			return
		}
	}
	s.writeFragment(w, kind, frag)
}

func (s *Server) servePanelPage(w http.ResponseWriter, r *http.Request, kind models.FeedKind) {
	frag, err := s.orch.MovePage(kind, r.URL.Query().Get("dir"))
	if err != nil {
		s.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}
	s.writeFragment(w, kind, frag)
}

func (s *Server) servePanelPause(w http.ResponseWriter, r *http.Request, kind models.FeedKind) {
	paused, frag, err := s.orch.TogglePause(r.Context(), kind)
	if err != nil {
		s.writeError(w, err)
		return
	}

	w.Header().Set("X-Panel-Paused", boolHeader(paused))
	s.writeFragment(w, kind, frag)
}

func (s *Server) servePanelRefresh(w http.ResponseWriter, r *http.Request, kind models.FeedKind) {
	query := panelQuery(kind, r)

	// a new finance selection re-arms the live scheduler, which performs
	// the immediate fetch-and-render itself
	if kind == models.KindFinance && query != nil && query.Param("symbol") != "" {
		if err := s.orch.StartFinance(r.Context(), query.Param("symbol"), query.Param("range"), query.Param("interval")); err != nil {
			s.writeError(w, err)
			return
		}
		frag, _ := s.orch.Fragment(kind)
		s.writeFragment(w, kind, frag)
		return
	}

	frag, err := s.orch.Refresh(r.Context(), kind, query, true)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeFragment(w, kind, frag)
}

// panelQuery builds an override query from request parameters, nil when the
// caller supplied none (keep the panel's current query)
func panelQuery(kind models.FeedKind, r *http.Request) *models.FeedQuery {
	var keys []string
	switch kind {
	case models.KindNews:
		keys = []string{"query", "category", "country", "language"}
	case models.KindTrends:
		keys = []string{"type", "geo", "category", "language"}
	case models.KindReddit:
		keys = []string{"t"}
	case models.KindFinance:
		keys = []string{"symbol", "range", "interval"}
	}

	params := map[string]string{}
	for _, k := range keys {
		if v := r.URL.Query().Get(k); v != "" {
			params[k] = v
		}
	}
	if len(params) == 0 {
		return nil
	}

	q := models.NewFeedQuery(kind, params)
	return &q
}

func (s *Server) writeFragment(w http.ResponseWriter, kind models.FeedKind, frag panel.Fragment) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("X-Panel-Feed", string(kind))
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(frag.HTML))
}

func boolHeader(b bool) string {
	if b {
		return "true"
	}
	return "false"
}
