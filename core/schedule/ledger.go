package schedule

import (
	"context"
	"time"
)

// Entry is one persisted row: the minutes planned for a calendar date.
type Entry struct {
	Date    time.Time
	Minutes int
}

// Ledger persists planned minutes per date. It is the only state surviving
// across scheduling runs and feeds the rolling balancer's lookback.
type Ledger interface {
	// UpsertDurations overwrites the stored minutes for each entry's date.
	// The batch is applied atomically.
	UpsertDurations(ctx context.Context, entries []Entry) error
	// SumMinutes returns the total minutes over [from, to], both
	// inclusive. Dates without a row contribute zero.
	SumMinutes(ctx context.Context, from, to time.Time) (int, error)
}

// Day truncates t to the start of its calendar day, keeping the location.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
