package metrics

import "time"

// ScheduleRunEvent describes one completed (or failed) scheduling run.
type ScheduleRunEvent struct {
	Start          time.Time
	Duration       time.Duration
	Days           int
	PlannedMinutes int
	Applied        bool
	Err            error
}

// WeatherFetchEvent describes one weather-source refresh cycle, including
// how many attempts it took.
type WeatherFetchEvent struct {
	Provider string
	Attempts int
	Success  bool
	Time     time.Time
}

// Sink records scheduler events for observability purposes.
type Sink interface {
	RecordScheduleRun(ev ScheduleRunEvent) error
	RecordWeatherFetch(ev WeatherFetchEvent) error
}

// NopSink discards all events.
type NopSink struct{}

func (NopSink) RecordScheduleRun(ScheduleRunEvent) error   { return nil }
func (NopSink) RecordWeatherFetch(WeatherFetchEvent) error { return nil }
