package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/virtualzone/landroid-bridge/core/weather"
)

type nopLog struct{}

func (nopLog) Debugf(string, ...any)         {}
func (nopLog) Debugw(string, map[string]any) {}
func (nopLog) Infof(string, ...any)          {}
func (nopLog) Warnf(string, ...any)          {}
func (nopLog) Errorf(string, ...any)         {}

type staticSource struct {
	timeline []weather.Record
	err      error
}

func (s staticSource) Current(context.Context, bool) (weather.Record, error) {
	return weather.Record{}, s.err
}

func (s staticSource) History(context.Context, bool) ([]weather.Record, error) {
	return nil, s.err
}

func (s staticSource) Hourly(context.Context, bool, bool) ([]weather.Record, error) {
	return s.timeline, s.err
}

type captureDevice struct {
	pushed map[time.Weekday]TimePeriod
	fail   bool
}

func (d *captureDevice) SetSchedule(weekday time.Weekday, period TimePeriod) error {
	if d.fail {
		return errors.New("device offline")
	}
	if d.pushed == nil {
		d.pushed = map[time.Weekday]TimePeriod{}
	}
	d.pushed[weekday] = period
	return nil
}

func testConfig() Config {
	return Config{
		Enable:          true,
		EarliestStart:   10,
		LatestStop:      20,
		Threshold:       30,
		DaysForTotalCut: 2,
		SquareMeters:    250,
		PerHour:         50,
		MowTime:         90,
		ChargeTime:      90,
	}
}

// dryDays builds a fully dry hourly timeline covering days of the horizon.
func dryDays(start time.Time, days int) []weather.Record {
	var out []weather.Record
	for h := 0; h < days*24; h++ {
		out = append(out, weather.Record{
			Time:         start.Add(time.Duration(h) * time.Hour),
			TemperatureC: 18,
		})
	}
	return out
}

func withPrecip(day time.Time, fromHour int, values []int) func([]weather.Record) {
	return func(records []weather.Record) {
		for i, v := range values {
			target := day.Add(time.Duration(fromHour+i) * time.Hour)
			for j := range records {
				if records[j].Time.Equal(target) {
					records[j].Precipitation = v
				}
			}
		}
	}
}

func newTestPlanner(cfg Config, timeline []weather.Record, ledger Ledger, device DeviceChannel, now time.Time) *Planner {
	p := NewPlanner(cfg, staticSource{timeline: timeline}, ledger, device, nopLog{})
	p.Now = func() time.Time { return now }
	return p
}

func TestLongestDryRun(t *testing.T) {
	toRecords := func(precip []int) []weather.Record {
		base := time.Date(2026, 6, 1, 7, 0, 0, 0, time.UTC)
		out := make([]weather.Record, len(precip))
		for i, p := range precip {
			out[i] = weather.Record{Time: base.Add(time.Duration(i) * time.Hour), Precipitation: p}
		}
		return out
	}

	idx, length := longestDryRun(toRecords([]int{100, 90, 80, 20, 10, 10, 0, 0, 40, 100, 40, 50, 50}), 40)
	assert.Equal(t, 3, idx)
	assert.Equal(t, 5, length)

	idx, length = longestDryRun(toRecords(make([]int, 13)), 40)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 13, length)

	idx, length = longestDryRun(toRecords([]int{50, 50, 10, 20, 90, 80, 100, 0, 0, 0, 0, 0, 100}), 40)
	assert.Equal(t, 7, idx)
	assert.Equal(t, 5, length)

	idx, length = longestDryRun(toRecords([]int{100, 100, 100}), 40)
	assert.Equal(t, 0, idx)
	assert.Equal(t, 0, length)
}

func TestPeriodForDatePicksLongestWindow(t *testing.T) {
	cfg := testConfig()
	cfg.EarliestStart = 7
	cfg.Threshold = 40
	now := time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC)
	day := Day(now)
	timeline := dryDays(day, 1)
	withPrecip(day, 7, []int{100, 90, 80, 20, 10, 10, 0, 0, 40, 100, 40, 50, 50})(timeline)

	p := newTestPlanner(cfg, timeline, NewMemoryLedger(), nil, now)
	period := p.periodForDate(timeline, day)

	assert.Equal(t, 10, period.StartHour)
	assert.Equal(t, 0, period.StartMinute)
	assert.Equal(t, 300, period.DurationMinutes)
}

func TestPeriodForDateRainDelayShiftsStart(t *testing.T) {
	cfg := testConfig()
	cfg.EarliestStart = 7
	cfg.RainDelayMinutes = 75 // rounds up to 2 hours
	now := time.Date(2026, 6, 1, 4, 0, 0, 0, time.UTC)
	day := Day(now)
	timeline := dryDays(day, 1)
	for j := range timeline {
		if timeline[j].Time.Hour() >= 11 {
			timeline[j].Precipitation = 90
		}
	}

	p := newTestPlanner(cfg, timeline, NewMemoryLedger(), nil, now)
	period := p.periodForDate(timeline, day)

	// Dry run spans hours 5-10 of the widened window; the first two hours
	// soak up the rain delay.
	assert.Equal(t, 7, period.StartHour)
	assert.Equal(t, 240, period.DurationMinutes)
}

func TestPeriodForDateNoDataYieldsIdleDay(t *testing.T) {
	cfg := testConfig()
	now := time.Date(2026, 6, 1, 6, 0, 0, 0, time.UTC)
	p := newTestPlanner(cfg, nil, NewMemoryLedger(), nil, now)

	period := p.periodForDate(nil, Day(now))

	assert.Equal(t, cfg.EarliestStart, period.StartHour)
	assert.Equal(t, 0, period.DurationMinutes)
}

func TestNext7DaysDisabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enable = false
	p := newTestPlanner(cfg, nil, NewMemoryLedger(), nil, time.Now())

	_, err := p.Next7Days(context.Background(), false)

	assert.ErrorIs(t, err, ErrDisabled)
}

func TestNext7DaysSourceFailure(t *testing.T) {
	p := NewPlanner(testConfig(), staticSource{err: weather.ErrForecastUnavailable}, NewMemoryLedger(), nil, nopLog{})

	_, err := p.Next7Days(context.Background(), false)

	require.Error(t, err)
	assert.ErrorIs(t, err, weather.ErrForecastUnavailable)
	assert.Contains(t, err.Error(), "could not load weather forecast")
}

func TestNext7DaysBalancesRollingWindow(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	timeline := dryDays(Day(now), 9)
	p := newTestPlanner(testConfig(), timeline, NewMemoryLedger(), nil, now)

	week, err := p.Next7Days(context.Background(), false)

	require.NoError(t, err)
	dates := week.Dates()
	require.Len(t, dates, 8)
	assert.Equal(t, "2026-06-01", dates[0])
	assert.Equal(t, "2026-06-08", dates[7])

	// One full cut is 600 minutes over two days. The first fully dry day
	// takes the whole cut; every following day settles at the per-day
	// share of 300 minutes, shrunk from the front of the window.
	assert.Equal(t, 600, week[dates[0]].DurationMinutes)
	assert.Equal(t, 10, week[dates[0]].StartHour)
	for _, key := range dates[1:] {
		assert.Equal(t, 300, week[key].DurationMinutes, "day %s", key)
		assert.Equal(t, 15, week[key].StartHour, "day %s", key)
	}
}

func TestNext7DaysStartEarlyKeepsWindowStart(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	timeline := dryDays(Day(now), 9)
	cfg := testConfig()
	cfg.StartEarly = true
	p := newTestPlanner(cfg, timeline, NewMemoryLedger(), nil, now)

	week, err := p.Next7Days(context.Background(), false)

	require.NoError(t, err)
	for _, key := range week.Dates() {
		assert.Equal(t, 10, week[key].StartHour, "day %s", key)
	}
}

func TestNext7DaysConsultsLedgerBeforeHorizon(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	timeline := dryDays(Day(now), 9)
	store := NewMemoryLedger()
	yesterday := Day(now).AddDate(0, 0, -1)
	require.NoError(t, store.UpsertDurations(context.Background(), []Entry{{Date: yesterday, Minutes: 500}}))
	p := newTestPlanner(testConfig(), timeline, store, nil, now)

	week, err := p.Next7Days(context.Background(), false)

	require.NoError(t, err)
	first := week[week.Dates()[0]]
	// Yesterday's 500 minutes count against the 600-minute cut, so today
	// falls back to the per-day share instead of a full cut.
	assert.Equal(t, 300, first.DurationMinutes)
}

func TestNext7DaysEveningSkipsToday(t *testing.T) {
	now := time.Date(2026, 6, 1, 21, 0, 0, 0, time.UTC)
	timeline := dryDays(Day(now), 9)
	p := newTestPlanner(testConfig(), timeline, NewMemoryLedger(), nil, now)

	week, err := p.Next7Days(context.Background(), false)

	require.NoError(t, err)
	dates := week.Dates()
	require.Len(t, dates, 6)
	assert.Equal(t, "2026-06-02", dates[0])
	assert.Equal(t, "2026-06-07", dates[5])
}

func TestNext7DaysZeroesOffDays(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	timeline := dryDays(Day(now), 9)
	cfg := testConfig()
	cfg.OffDays = 2
	p := newTestPlanner(cfg, timeline, NewMemoryLedger(), nil, now)

	week, err := p.Next7Days(context.Background(), false)

	require.NoError(t, err)
	zeroed := 0
	for _, item := range week {
		if item.DurationMinutes == 0 {
			zeroed++
		}
	}
	assert.Equal(t, 2, zeroed)
}

func TestZeroOffDaysMoreThanHorizon(t *testing.T) {
	cfg := testConfig()
	cfg.OffDays = 5
	p := newTestPlanner(cfg, nil, NewMemoryLedger(), nil, time.Now())
	week := Week{
		"2026-06-01": {DurationMinutes: 120},
		"2026-06-02": {DurationMinutes: 60},
	}

	p.zeroOffDays(week)

	for key, item := range week {
		assert.Equal(t, 0, item.DurationMinutes, "day %s", key)
	}
}

func TestMarkEdgeDaysCarriesOverIdleDays(t *testing.T) {
	// 2026-06-01 has year day 152, so with a two-day cycle it is a
	// designated edge day.
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	p := newTestPlanner(testConfig(), nil, NewMemoryLedger(), nil, now)
	week := Week{
		"2026-06-01": {DurationMinutes: 0},
		"2026-06-02": {DurationMinutes: 60},
		"2026-06-03": {DurationMinutes: 60},
		"2026-06-04": {DurationMinutes: 60},
	}

	p.markEdgeDays(week)

	assert.False(t, week["2026-06-01"].CutEdge, "idle designated day must not keep the flag")
	assert.True(t, week["2026-06-02"].CutEdge, "flag carries to the next working day")
	assert.True(t, week["2026-06-03"].CutEdge, "next designated day")
	assert.False(t, week["2026-06-04"].CutEdge)
}

func TestApplyPersistsAndPushes(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	timeline := dryDays(Day(now), 9)
	store := NewMemoryLedger()
	device := &captureDevice{}
	p := newTestPlanner(testConfig(), timeline, store, device, now)

	week, err := p.Apply(context.Background(), false)

	require.NoError(t, err)
	require.Len(t, week, 8)
	// Monday appears twice in the horizon; the later push wins.
	assert.Len(t, device.pushed, 7)

	sum, err := store.SumMinutes(context.Background(), Day(now), Day(now).AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, week.TotalMinutes(), sum)
}

func TestApplyDevicePushFailureIsNonFatal(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	timeline := dryDays(Day(now), 9)
	store := NewMemoryLedger()
	p := newTestPlanner(testConfig(), timeline, store, &captureDevice{fail: true}, now)

	week, err := p.Apply(context.Background(), false)

	require.NoError(t, err)
	sum, err := store.SumMinutes(context.Background(), Day(now), Day(now).AddDate(0, 0, 7))
	require.NoError(t, err)
	assert.Equal(t, week.TotalMinutes(), sum)
}

func TestApplyIsIdempotent(t *testing.T) {
	now := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	timeline := dryDays(Day(now), 9)
	store := NewMemoryLedger()
	p := newTestPlanner(testConfig(), timeline, store, nil, now)

	first, err := p.Apply(context.Background(), false)
	require.NoError(t, err)
	second, err := p.Apply(context.Background(), false)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestWorkMinutesTotalCut(t *testing.T) {
	cfg := testConfig()
	// 250 m2 at 50 m2/h is 5 hours; equal mow and charge time doubles it.
	assert.InDelta(t, 600, cfg.WorkMinutesTotalCut(), 0.001)
}
