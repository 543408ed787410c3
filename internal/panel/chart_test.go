package panel

import (
	"testing"
	"time"

	"github.com/pulseboard/pulseboard/internal/models"
)

func fptr(v float64) *float64 { return &v }

func seriesOf(closes ...*float64) []models.PricePoint {
	base := time.Date(2024, 3, 5, 14, 30, 0, 0, time.UTC)
	points := make([]models.PricePoint, len(closes))
	for i, c := range closes {
		points[i] = models.PricePoint{Timestamp: base.Add(time.Duration(i) * time.Minute), Close: c}
	}
	return points
}

func TestForwardFill(t *testing.T) {
	got := ForwardFill(seriesOf(fptr(10), nil, nil, fptr(13)))

	want := []float64{10, 10, 10, 13}
	if len(got) != len(want) {
		t.Fatalf("got %d points, want %d", len(got), len(want))
	}
	for i, w := range want {
		if got[i].Close != w {
			t.Errorf("point %d = %v, want %v", i, got[i].Close, w)
		}
	}
}

func TestForwardFillDropsLeadingNulls(t *testing.T) {
	got := ForwardFill(seriesOf(nil, nil, fptr(20), nil))

	if len(got) != 2 {
		t.Fatalf("got %d points, want 2", len(got))
	}
	if got[0].Close != 20 || got[1].Close != 20 {
		t.Errorf("got %v/%v, want 20/20", got[0].Close, got[1].Close)
	}
}

func TestDecimate(t *testing.T) {
	points := make([]ChartPoint, 10000)
	base := time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC)
	for i := range points {
		points[i] = ChartPoint{Timestamp: base.Add(time.Duration(i) * time.Second), Close: float64(i)}
	}

	got := Decimate(points, 200)

	if len(got) > 200 {
		t.Errorf("got %d points, want at most the 200-point budget", len(got))
	}
	if got[0] != points[0] {
		t.Error("first original point missing")
	}
	if got[len(got)-1] != points[len(points)-1] {
		t.Error("last original point missing")
	}
	for i := 1; i < len(got); i++ {
		if !got[i].Timestamp.After(got[i-1].Timestamp) {
			t.Fatal("decimated samples out of order")
		}
	}
}

func TestDecimateWithinBudgetUntouched(t *testing.T) {
	points := make([]ChartPoint, 150)
	got := Decimate(points, 200)
	if len(got) != 150 {
		t.Errorf("got %d points, want the series unchanged", len(got))
	}
}

func TestTimeUnitFor(t *testing.T) {
	tests := []struct {
		rangeLabel string
		want       string
	}{
		{"1m", "minute"},
		{"1d", "minute"},
		{"1h", "hour"},
		{"5d", "day"},
		{"1mo", "day"},
		{"1y", "week"},
		{"6mo", "day"},
	}

	for _, tt := range tests {
		if got := TimeUnitFor(tt.rangeLabel); got != tt.want {
			t.Errorf("TimeUnitFor(%q) = %q, want %q", tt.rangeLabel, got, tt.want)
		}
	}
}
