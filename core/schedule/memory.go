package schedule

import (
	"context"
	"sync"
	"time"
)

// MemoryLedger keeps durations in memory for testing or lightweight usage.
type MemoryLedger struct {
	mu   sync.Mutex
	data map[string]int
}

// NewMemoryLedger returns an empty MemoryLedger.
func NewMemoryLedger() *MemoryLedger {
	return &MemoryLedger{data: map[string]int{}}
}

// UpsertDurations overwrites the stored minutes for each entry's date.
func (l *MemoryLedger) UpsertDurations(_ context.Context, entries []Entry) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, e := range entries {
		l.data[e.Date.Format(DateFormat)] = e.Minutes
	}
	return nil
}

// SumMinutes returns the total minutes between from and to inclusive.
func (l *MemoryLedger) SumMinutes(_ context.Context, from, to time.Time) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	total := 0
	for d := Day(from); !d.After(Day(to)); d = d.AddDate(0, 0, 1) {
		total += l.data[d.Format(DateFormat)]
	}
	return total, nil
}
