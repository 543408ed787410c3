package refresh

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/pulseboard/pulseboard/internal/feeds"
	"github.com/pulseboard/pulseboard/internal/testutil"
)

// a Tuesday at 10:00 New York time, well inside trading hours
var tradingTime = time.Date(2024, 3, 5, 10, 0, 0, 0, marketZone)

// the Sunday before
var weekendTime = time.Date(2024, 3, 3, 10, 0, 0, 0, marketZone)

func TestMarketOpen(t *testing.T) {
	tests := []struct {
		name string
		t    time.Time
		want bool
	}{
		{"tuesday mid-session", time.Date(2024, 3, 5, 10, 0, 0, 0, marketZone), true},
		{"opening minute", time.Date(2024, 3, 5, 9, 30, 0, 0, marketZone), true},
		{"minute before open", time.Date(2024, 3, 5, 9, 29, 59, 0, marketZone), false},
		{"closing minute inclusive", time.Date(2024, 3, 5, 16, 0, 30, 0, marketZone), true},
		{"minute after close", time.Date(2024, 3, 5, 16, 1, 0, 0, marketZone), false},
		{"saturday", time.Date(2024, 3, 2, 12, 0, 0, 0, marketZone), false},
		{"sunday", weekendTime, false},
		{"utc time converted", time.Date(2024, 3, 5, 15, 0, 0, 0, time.UTC), true}, // 10:00 ET
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MarketOpen(tt.t); got != tt.want {
				t.Errorf("MarketOpen(%v) = %v, want %v", tt.t, got, tt.want)
			}
		})
	}
}

func testConfig() Config {
	return Config{
		RealTimeRange:    "1d",
		RealTimeInterval: "1m",
		MinPeriod:        5 * time.Millisecond,
		MaxPeriod:        10 * time.Millisecond,
	}
}

func newTestScheduler(tick TickFunc, now time.Time) *Scheduler {
	s := New(testConfig(), tick, testutil.NullLogger())
	s.now = func() time.Time { return now }
	return s
}

func TestSchedulerOutsideMarketHoursRendersOnce(t *testing.T) {
	var ticks atomic.Int64
	s := newTestScheduler(func(ctx context.Context, symbol, rng, interval string) error {
		ticks.Add(1)
		return nil
	}, weekendTime)

	if err := s.Start(context.Background(), "AAPL", "1d", "1m"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if s.Active() {
		t.Error("timer armed outside market hours")
	}
	time.Sleep(30 * time.Millisecond)
	if got := ticks.Load(); got != 1 {
		t.Errorf("got %d ticks, want exactly the immediate one", got)
	}
}

func TestSchedulerNonRealTimePairRendersOnce(t *testing.T) {
	var ticks atomic.Int64
	s := newTestScheduler(func(ctx context.Context, symbol, rng, interval string) error {
		ticks.Add(1)
		return nil
	}, tradingTime)

	if err := s.Start(context.Background(), "AAPL", "1mo", "1d"); err != nil {
		t.Fatalf("Start: %v", err)
	}

	if s.Active() {
		t.Error("timer armed for a historical range")
	}
	if got := ticks.Load(); got != 1 {
		t.Errorf("got %d ticks, want 1", got)
	}
}

func TestSchedulerArmsDuringMarketHours(t *testing.T) {
	var ticks atomic.Int64
	s := newTestScheduler(func(ctx context.Context, symbol, rng, interval string) error {
		ticks.Add(1)
		return nil
	}, tradingTime)
	defer s.Stop()

	if err := s.Start(context.Background(), "AAPL", "1d", "1m"); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !s.Active() {
		t.Fatal("timer not armed during market hours")
	}

	time.Sleep(60 * time.Millisecond)
	if got := ticks.Load(); got < 3 {
		t.Errorf("got %d ticks after several periods, want repeated firing", got)
	}
}

func TestSchedulerStopBeforeStart(t *testing.T) {
	var ticks atomic.Int64
	s := newTestScheduler(func(ctx context.Context, symbol, rng, interval string) error {
		ticks.Add(1)
		return nil
	}, tradingTime)

	s.Start(context.Background(), "AAPL", "1d", "1m")
	s.Start(context.Background(), "MSFT", "1d", "1m")
	if !s.Active() {
		t.Fatal("second Start should leave one armed timer")
	}

	s.Stop()
	if s.Active() {
		t.Fatal("Stop left a timer armed")
	}

	// nothing fires after Stop
	frozen := ticks.Load()
	time.Sleep(40 * time.Millisecond)
	if got := ticks.Load(); got != frozen {
		t.Errorf("ticks advanced from %d to %d after Stop", frozen, got)
	}

	// Stop is idempotent
	s.Stop()
}

func TestSchedulerTickErrorKeepsPolling(t *testing.T) {
	var ticks atomic.Int64
	s := newTestScheduler(func(ctx context.Context, symbol, rng, interval string) error {
		ticks.Add(1)
		return errors.New("transient upstream failure")
	}, tradingTime)
	defer s.Stop()

	s.Start(context.Background(), "AAPL", "1d", "1m")
	time.Sleep(40 * time.Millisecond)

	if !s.Active() {
		t.Error("ordinary tick errors must not disarm the timer")
	}
	if got := ticks.Load(); got < 2 {
		t.Errorf("got %d ticks, want polling to continue through errors", got)
	}
}

func TestSchedulerRateLimitDisarms(t *testing.T) {
	var ticks atomic.Int64
	s := newTestScheduler(func(ctx context.Context, symbol, rng, interval string) error {
		if ticks.Add(1) > 1 {
			return &feeds.RateLimitedError{Host: "example.com"}
		}
		return nil
	}, tradingTime)
	defer s.Stop()

	s.Start(context.Background(), "AAPL", "1d", "1m")

	deadline := time.Now().Add(time.Second)
	for s.Active() && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if s.Active() {
		t.Fatal("429 on a tick should disarm the timer")
	}

	frozen := ticks.Load()
	time.Sleep(40 * time.Millisecond)
	if got := ticks.Load(); got != frozen {
		t.Errorf("ticks advanced from %d to %d after rate-limit disarm", frozen, got)
	}
}

func TestSchedulerPeriodJitterBounds(t *testing.T) {
	s := New(testConfig(), nil, testutil.NullLogger())

	for i := 0; i < 200; i++ {
		p := s.period()
		if p < s.cfg.MinPeriod || p >= s.cfg.MaxPeriod {
			t.Fatalf("period %v outside [%v, %v)", p, s.cfg.MinPeriod, s.cfg.MaxPeriod)
		}
	}
}
