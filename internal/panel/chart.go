package panel

import (
	"time"

	"github.com/pulseboard/pulseboard/internal/models"
)

// chartPointBudget bounds how many points a chart plots; decimation applies
// only when a series exceeds it
const chartPointBudget = 200

// ChartPoint is one plotted sample; nulls are gone by the time one exists
type ChartPoint struct {
	Timestamp time.Time
	Close     float64
}

// Chart is the renderer-owned handle for the finance panel's plot. The
// renderer holds at most one and closes the previous before installing a
// replacement; nothing else may keep a reference.
type Chart struct {
	Symbol   string
	TimeUnit string
	Points   []ChartPoint

	closed bool
}

// Close releases the chart. Rendering a closed chart is a bug.
func (c *Chart) Close() {
	c.closed = true
	c.Points = nil
}

// Closed reports whether the handle has been released
func (c *Chart) Closed() bool { return c.closed }

// TimeUnitFor maps a range label to the chart's time axis unit
func TimeUnitFor(rangeLabel string) string {
	switch rangeLabel {
	case "1m", "1d":
		return "minute"
	case "1h":
		return "hour"
	case "5d", "1mo":
		return "day"
	case "1y":
		return "week"
	}
	return "day"
}

// ForwardFill converts a nullable series into plottable points by carrying
// the previous close over gaps. Leading nulls have nothing to carry and are
// dropped.
func ForwardFill(points []models.PricePoint) []ChartPoint {
	out := make([]ChartPoint, 0, len(points))
	var last float64
	seeded := false

	for _, p := range points {
		if p.Close != nil {
			last = *p.Close
			seeded = true
		} else if !seeded {
			continue
		}
		out = append(out, ChartPoint{Timestamp: p.Timestamp, Close: last})
	}
	return out
}

// Decimate samples points down to at most budget entries with a fixed
// stride, always keeping the first and last samples. Series within budget
// pass through untouched.
func Decimate(points []ChartPoint, budget int) []ChartPoint {
	if budget < 2 || len(points) <= budget {
		return points
	}

	// stride sized so the samples plus the appended final point fit the budget
	stride := (len(points) - 1 + budget - 2) / (budget - 1)
	out := make([]ChartPoint, 0, budget+1)
	for i := 0; i < len(points); i += stride {
		out = append(out, points[i])
	}
	if out[len(out)-1].Timestamp != points[len(points)-1].Timestamp {
		out = append(out, points[len(points)-1])
	}
	return out
}

// BuildChart produces a fresh chart handle from a normalized series
func BuildChart(series models.FinanceSeries) *Chart {
	filled := ForwardFill(series.Points)
	return &Chart{
		Symbol:   series.Symbol,
		TimeUnit: TimeUnitFor(series.RangeLabel),
		Points:   Decimate(filled, chartPointBudget),
	}
}
