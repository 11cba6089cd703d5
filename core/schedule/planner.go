package schedule

import (
	"context"
	"fmt"
	"time"

	"github.com/virtualzone/landroid-bridge/core/logger"
	"github.com/virtualzone/landroid-bridge/core/weather"
)

// Planner computes the next days' mowing schedule from a weather source and
// the persisted duration ledger, and pushes applied schedules to the device
// channel.
type Planner struct {
	cfg    Config
	source weather.Source
	ledger Ledger
	device DeviceChannel
	log    logger.Logger

	// Now is the planner's clock. Overridable in tests.
	Now func() time.Time
}

// NewPlanner wires a Planner from its collaborators. A nil device defaults
// to NopDevice.
func NewPlanner(cfg Config, source weather.Source, ledger Ledger, device DeviceChannel, log logger.Logger) *Planner {
	if device == nil {
		device = NopDevice{}
	}
	return &Planner{
		cfg:    cfg,
		source: source,
		ledger: ledger,
		device: device,
		log:    log,
		Now:    time.Now,
	}
}

// Next7Days computes the upcoming schedule without persisting or pushing
// anything. Setting force bypasses the weather source's response cache.
func (p *Planner) Next7Days(ctx context.Context, force bool) (Week, error) {
	if !p.cfg.Enable {
		return nil, ErrDisabled
	}
	timeline, err := p.source.Hourly(ctx, true, force)
	if err != nil {
		return nil, fmt.Errorf("could not load weather forecast: %w", err)
	}
	week := p.timePeriods(timeline)
	p.zeroOffDays(week)
	if err := p.balance(ctx, week); err != nil {
		return nil, err
	}
	p.markEdgeDays(week)
	return week, nil
}

// Apply computes the upcoming schedule, pushes it to the mower weekday by
// weekday and persists the planned minutes. Persistence happens only once
// the full week is finalized; a failed device push for a single day is
// logged and does not abort the run.
func (p *Planner) Apply(ctx context.Context, force bool) (Week, error) {
	week, err := p.Next7Days(ctx, force)
	if err != nil {
		return nil, err
	}
	loc := p.Now().Location()
	entries := make([]Entry, 0, len(week))
	for i, key := range week.Dates() {
		date, err := ParseDate(key, loc)
		if err != nil {
			return nil, fmt.Errorf("invalid schedule key %q: %w", key, err)
		}
		item := week[key]
		entries = append(entries, Entry{Date: date, Minutes: item.DurationMinutes})
		if i <= 7 {
			if err := p.device.SetSchedule(date.Weekday(), *item); err != nil {
				p.log.Errorf("set schedule for %s (%s): %v", key, date.Weekday(), err)
			}
		}
	}
	if err := p.ledger.UpsertDurations(ctx, entries); err != nil {
		return nil, fmt.Errorf("persist durations: %w", err)
	}
	return week, nil
}

// timePeriods builds the initial week from the fused timeline, one dry
// window per day. Today is skipped once the operating window has passed.
func (p *Planner) timePeriods(timeline []weather.Record) Week {
	now := p.Now()
	offset := 0
	if now.Hour() >= p.cfg.LatestStop {
		offset = 1
	}
	week := make(Week)
	for i := offset; i <= 7-offset; i++ {
		date := Day(now).AddDate(0, 0, i)
		week[date.Format(DateFormat)] = p.periodForDate(timeline, date)
	}
	return week
}

// periodForDate selects the longest dry window on the given day, leaving
// room for the rain-delay settle time in front of it.
func (p *Planner) periodForDate(timeline []weather.Record, date time.Time) *TimePeriod {
	startOffsetHours := (p.cfg.RainDelayMinutes + 59) / 60
	start := date.Add(time.Duration(p.cfg.EarliestStart-startOffsetHours) * time.Hour)
	end := date.Add(time.Duration(p.cfg.LatestStop) * time.Hour)
	window := weather.Between(timeline, start, end)
	if len(window) == 0 {
		return &TimePeriod{StartHour: p.cfg.EarliestStart, CutEdge: true}
	}
	runIdx, runLen := longestDryRun(window, p.cfg.Threshold)
	duration := (runLen - startOffsetHours) * 60
	if duration < 0 {
		duration = 0
	}
	return &TimePeriod{
		StartHour:       window[runIdx].Time.Hour() + startOffsetHours,
		StartMinute:     0,
		DurationMinutes: duration,
		CutEdge:         true,
	}
}

// longestDryRun returns the start index and length of the longest
// contiguous run of records strictly below the precipitation threshold.
// Ties keep the earliest run.
func longestDryRun(records []weather.Record, threshold int) (int, int) {
	maxIdx, maxLen, currIdx, currLen := 0, 0, 0, 0
	for i, r := range records {
		if r.Precipitation < threshold {
			currLen++
			if currLen == 1 {
				currIdx = i
			}
			if currLen > maxLen {
				maxLen = currLen
				maxIdx = currIdx
			}
		} else {
			currLen = 0
		}
	}
	return maxIdx, maxLen
}

// zeroOffDays picks the OffDays lowest-duration dates and zeroes them.
func (p *Planner) zeroOffDays(week Week) {
	selected := make(map[string]bool, p.cfg.OffDays)
	for i := 0; i < p.cfg.OffDays && i < len(week); i++ {
		smallest := ""
		for key, item := range week {
			if selected[key] {
				continue
			}
			if smallest == "" || item.DurationMinutes < week[smallest].DurationMinutes {
				smallest = key
			}
		}
		selected[smallest] = true
	}
	for key := range selected {
		week[key].DurationMinutes = 0
	}
}

// balance walks the week chronologically and shrinks each day so that the
// total over any rolling DaysForTotalCut window approaches one full cut,
// consulting already-balanced in-memory days first and the persisted
// ledger for days before the horizon.
func (p *Planner) balance(ctx context.Context, week Week) error {
	totalCut := p.cfg.WorkMinutesTotalCut()
	targetPerDay := totalCut / float64(p.cfg.DaysForTotalCut)
	dates := week.Dates()
	if len(dates) == 0 {
		return nil
	}
	loc := p.Now().Location()
	horizonStart, err := ParseDate(dates[0], loc)
	if err != nil {
		return fmt.Errorf("invalid schedule key %q: %w", dates[0], err)
	}
	for _, key := range dates {
		date, err := ParseDate(key, loc)
		if err != nil {
			return fmt.Errorf("invalid schedule key %q: %w", key, err)
		}
		past, err := p.pastRollingSum(ctx, week, date, horizonStart)
		if err != nil {
			return err
		}
		item := week[key]
		target := totalCut - float64(past)
		if target < targetPerDay {
			target = targetPerDay
		}
		original := item.DurationMinutes
		if target > float64(original) {
			target = float64(original)
		}
		if target < 0 {
			target = 0
		}
		adjusted := int(target)
		if diff := original - adjusted; diff > 0 && !p.cfg.StartEarly {
			// Shrink from the front, keeping the end of the window.
			item.StartHour += diff / 60
		}
		item.DurationMinutes = adjusted
	}
	return nil
}

// pastRollingSum totals the minutes of the DaysForTotalCut-1 days before
// date, using in-memory values inside the horizon and one ledger range
// query for the days before it.
func (p *Planner) pastRollingSum(ctx context.Context, week Week, date, horizonStart time.Time) (int, error) {
	lookback := p.cfg.DaysForTotalCut - 1
	if lookback <= 0 {
		return 0, nil
	}
	total := 0
	from := date.AddDate(0, 0, -lookback)
	if from.Before(horizonStart) {
		to := date.AddDate(0, 0, -1)
		if !to.Before(horizonStart) {
			to = horizonStart.AddDate(0, 0, -1)
		}
		sum, err := p.ledger.SumMinutes(ctx, from, to)
		if err != nil {
			return 0, fmt.Errorf("ledger lookback: %w", err)
		}
		total += sum
	}
	for d := from; d.Before(date); d = d.AddDate(0, 0, 1) {
		if d.Before(horizonStart) {
			continue
		}
		if item, ok := week[d.Format(DateFormat)]; ok {
			total += item.DurationMinutes
		}
	}
	return total, nil
}

// markEdgeDays designates one day per cycle for the supplementary edge
// pass, carrying the flag to the next working day when the designated day
// is idle.
func (p *Planner) markEdgeDays(week Week) {
	loc := p.Now().Location()
	missingCut := false
	for _, key := range week.Dates() {
		date, err := ParseDate(key, loc)
		if err != nil {
			continue
		}
		item := week[key]
		switch {
		case date.YearDay()%p.cfg.DaysForTotalCut == 0:
			if item.DurationMinutes == 0 {
				item.CutEdge = false
				missingCut = true
			} else {
				item.CutEdge = true
				missingCut = false
			}
		case missingCut && item.DurationMinutes > 0:
			item.CutEdge = true
			missingCut = false
		default:
			item.CutEdge = false
		}
	}
}
