package refresh

import (
	"context"
	"math/rand"
	"sync"
	"time"

	"github.com/pulseboard/pulseboard/internal/feeds"
	"github.com/pulseboard/pulseboard/internal/logging"
)

// TickFunc fetches and renders the finance panel for one quote request. The
// scheduler calls it once immediately on Start and then on every armed tick.
type TickFunc func(ctx context.Context, symbol, rng, interval string) error

// Config holds the scheduler's timing parameters
type Config struct {
	// RealTimeRange / RealTimeInterval is the one (range, interval) pair
	// that gets a live polling timer; everything else renders once
	RealTimeRange    string
	RealTimeInterval string

	// tick period is drawn uniformly from [MinPeriod, MaxPeriod) each arm
	MinPeriod time.Duration
	MaxPeriod time.Duration
}

// DefaultConfig returns the scheduler timing used when none is configured
func DefaultConfig() Config {
	return Config{
		RealTimeRange:    "1d",
		RealTimeInterval: "1m",
		MinPeriod:        2 * time.Second,
		MaxPeriod:        3 * time.Second,
	}
}

// Scheduler drives the live finance panel. It is either Idle or holds
// exactly one armed timer; Start always stops the previous timer first, so
// two live timers cannot exist.
//
// Once armed, a timer keeps firing until stopped: market hours are checked
// at arm time only, not per tick.
type Scheduler struct {
	cfg    Config
	tick   TickFunc
	logger *logging.Logger
	now    func() time.Time

	mu   sync.Mutex
	stop chan struct{}
	wg   sync.WaitGroup
}

// New creates an idle scheduler around tick
func New(cfg Config, tick TickFunc, logger *logging.Logger) *Scheduler {
	if cfg.MinPeriod <= 0 {
		cfg.MinPeriod = 2 * time.Second
	}
	if cfg.MaxPeriod <= cfg.MinPeriod {
		cfg.MaxPeriod = cfg.MinPeriod + time.Second
	}
	return &Scheduler{
		cfg:    cfg,
		tick:   tick,
		logger: logger,
		now:    time.Now,
	}
}

// Start stops any previous timer, performs one immediate tick, and arms the
// polling loop only when (rng, interval) is the real-time pair and the
// market is open right now. The immediate tick always runs.
func (s *Scheduler) Start(ctx context.Context, symbol, rng, interval string) error {
	s.Stop()

	err := s.tick(ctx, symbol, rng, interval)
	if err != nil {
		s.logger.Warn("Initial finance refresh failed", logging.WithFields(map[string]interface{}{
			"symbol": symbol,
			"error":  err.Error(),
		}))
		if feeds.IsRateLimited(err) {
			return err
		}
	}

	if rng != s.cfg.RealTimeRange || interval != s.cfg.RealTimeInterval {
		return err
	}
	if !MarketOpen(s.now()) {
		s.logger.Debug("Market closed, finance panel stays static",
			logging.WithField("symbol", symbol))
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// a concurrent Start may have armed between our Stop and here
	if s.stop != nil {
		close(s.stop)
	}
	stop := make(chan struct{})
	s.stop = stop
	s.wg.Add(1)
	go s.loop(ctx, symbol, rng, interval, stop)

	s.logger.Info("Finance auto-refresh armed", logging.WithFields(map[string]interface{}{
		"symbol":   symbol,
		"interval": interval,
	}))
	return err
}

// Stop disarms the timer if one is live. Safe to call from any state.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if s.stop != nil {
		close(s.stop)
		s.stop = nil
	}
	s.mu.Unlock()
	s.wg.Wait()
}

// Active reports whether a polling timer is currently armed
func (s *Scheduler) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stop != nil
}

func (s *Scheduler) loop(ctx context.Context, symbol, rng, interval string, stop chan struct{}) {
	defer s.wg.Done()

	timer := time.NewTimer(s.period())
	defer timer.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ctx.Done():
			s.disarm(stop)
			return
		case <-timer.C:
		}

		if err := s.tick(ctx, symbol, rng, interval); err != nil {
			if feeds.IsRateLimited(err) {
				// stay down until a manual restart
				s.logger.Warn("Finance auto-refresh disarmed by provider rate limit",
					logging.WithField("symbol", symbol))
				s.disarm(stop)
				return
			}
			s.logger.Warn("Finance refresh tick failed", logging.WithFields(map[string]interface{}{
				"symbol": symbol,
				"error":  err.Error(),
			}))
		}

		timer.Reset(s.period())
	}
}

// disarm clears the stop channel from inside the loop goroutine; a no-op
// when Stop already swapped it out
func (s *Scheduler) disarm(stop chan struct{}) {
	s.mu.Lock()
	if s.stop == stop {
		s.stop = nil
	}
	s.mu.Unlock()
}

// period draws one jittered tick period from [MinPeriod, MaxPeriod)
func (s *Scheduler) period() time.Duration {
	span := s.cfg.MaxPeriod - s.cfg.MinPeriod
	return s.cfg.MinPeriod + time.Duration(rand.Int63n(int64(span)))
}
