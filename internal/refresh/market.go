package refresh

import "time"

// marketZone is the exchange time zone. Falls back to a fixed offset when
// the host has no tz database.
var marketZone = func() *time.Location {
	loc, err := time.LoadLocation("America/New_York")
	if err != nil {
		return time.FixedZone("EST", -5*60*60)
	}
	return loc
}()

const (
	marketOpenMinute  = 9*60 + 30 // 09:30
	marketCloseMinute = 16 * 60   // 16:00, boundary minute included
)

// MarketOpen reports whether t falls inside regular US equity trading hours:
// Monday through Friday, 09:30 to 16:00 New York time, both boundary minutes
// included.
func MarketOpen(t time.Time) bool {
	et := t.In(marketZone)

	switch et.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}

	minute := et.Hour()*60 + et.Minute()
	return minute >= marketOpenMinute && minute <= marketCloseMinute
}
