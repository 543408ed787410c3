package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/pulseboard/pulseboard/internal/chat"
	"github.com/pulseboard/pulseboard/internal/config"
	"github.com/pulseboard/pulseboard/internal/dashboard"
	"github.com/pulseboard/pulseboard/internal/feeds"
	"github.com/pulseboard/pulseboard/internal/geo"
	"github.com/pulseboard/pulseboard/internal/logging"
	"github.com/pulseboard/pulseboard/internal/ratelimit"
)

// Server is the dashboard's HTTP surface: the /api gateway that proxies
// external providers with server-held secrets, and the /panels routes
// serving rendered fragments from the orchestrator.
type Server struct {
	orch       *dashboard.Orchestrator
	news       *feeds.NewsClient
	trends     *feeds.TrendsClient
	reddit     *feeds.RedditClient
	finance    *feeds.FinanceClient
	chatClient *chat.Client
	chatSess   *chat.Session
	restrictor *geo.Restrictor
	ipLimiter  *ratelimit.WindowLimiter
	cfg        *config.Config
	logger     *logging.Logger
	server     *http.Server
}

func New(orch *dashboard.Orchestrator, clients dashboard.Clients, chatClient *chat.Client, chatSess *chat.Session, restrictor *geo.Restrictor, cfg *config.Config, logger *logging.Logger) *Server {
	return &Server{
		orch:       orch,
		news:       clients.News,
		trends:     clients.Trends,
		reddit:     clients.Reddit,
		finance:    clients.Finance,
		chatClient: chatClient,
		chatSess:   chatSess,
		restrictor: restrictor,
		ipLimiter:  ratelimit.NewWindow(cfg.Server.RateLimitWindow, cfg.Server.RateLimitMax),
		cfg:        cfg,
		logger:     logger,
	}
}

func (s *Server) Start(addr string) error {
	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	s.logger.Info("HTTP server starting", logging.WithField("addr", addr))
	return s.server.ListenAndServe()
}

// Handler builds the route table; split out so tests can drive it through
// httptest without a listener
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	// Gateway routes
	mux.HandleFunc("/api/news", s.middleware(s.handleNews))
	mux.HandleFunc("/api/trends", s.middleware(s.handleTrends))
	mux.HandleFunc("/api/finance/", s.middleware(s.handleFinance))
	mux.HandleFunc("/api/reddit", s.middleware(s.handleReddit))
	mux.HandleFunc("/api/googlemaps/script", s.middleware(s.handleMapsScript))
	mux.HandleFunc("/api/config", s.middleware(s.handleConfig))
	mux.HandleFunc("/api/chat", s.middleware(s.handleChat))

	// Panel routes
	mux.HandleFunc("/panels/", s.middleware(s.handlePanels))

	// Health check
	mux.HandleFunc("/health", s.handleHealth)

	return mux
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// writeError emits the uniform error envelope with a status drawn from the
// error's type
func (s *Server) writeError(w http.ResponseWriter, err error) {
	s.writeJSON(w, statusFor(err), map[string]string{
		"error": displayError(err),
	})
}

func statusFor(err error) int {
	switch {
	case feeds.IsInvalidParameter(err):
		return http.StatusBadRequest
	case feeds.IsRateLimited(err):
		return http.StatusTooManyRequests
	case feeds.IsConfiguration(err):
		return http.StatusInternalServerError
	case errors.Is(err, chat.ErrBudgetExhausted):
		return http.StatusTooManyRequests
	}
	var shape *feeds.UpstreamShapeError
	if errors.As(err, &shape) {
		return http.StatusBadGateway
	}
	var network *feeds.NetworkError
	if errors.As(err, &network) {
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// displayError keeps server configuration details out of responses
func displayError(err error) string {
	if feeds.IsConfiguration(err) {
		return "service unavailable"
	}
	return err.Error()
}

// clientIP prefers the first forwarded address, falling back to the
// connection peer
func clientIP(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		for i := 0; i < len(fwd); i++ {
			if fwd[i] == ',' {
				return fwd[:i]
			}
		}
		return fwd
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
