package schedule

import (
	"sort"
	"time"
)

// DateFormat is the ISO date key used throughout the scheduler and the
// persisted ledger.
const DateFormat = "2006-01-02"

// TimePeriod is one day's planned mowing window. It is created by the
// dry-window selection and mutated in place by the off-day selection, the
// rolling balancer and the edge-pass marking before being finalized.
type TimePeriod struct {
	StartHour       int  `json:"startHour"`
	StartMinute     int  `json:"startMinute"`
	DurationMinutes int  `json:"durationMinutes"`
	CutEdge         bool `json:"cutEdge"`
}

// Week maps an ISO date (YYYY-MM-DD) to that day's period for the planning
// horizon of a single run.
type Week map[string]*TimePeriod

// Dates returns the map keys in chronological order.
func (w Week) Dates() []string {
	keys := make([]string, 0, len(w))
	for k := range w {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// TotalMinutes is the sum of all planned durations.
func (w Week) TotalMinutes() int {
	total := 0
	for _, p := range w {
		total += p.DurationMinutes
	}
	return total
}

// ParseDate converts an ISO date key back to a time in the given location.
func ParseDate(key string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateFormat, key, loc)
}
