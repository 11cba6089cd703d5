package metrics

import coremetrics "github.com/virtualzone/landroid-bridge/core/metrics"

// MultiSink fans events out to multiple sinks.
type MultiSink struct {
	Sinks []coremetrics.Sink
}

// NewMultiSink creates a MultiSink with the provided sinks.
func NewMultiSink(sinks ...coremetrics.Sink) *MultiSink {
	return &MultiSink{Sinks: sinks}
}

// RecordScheduleRun forwards the event to all sinks, returning the first
// error encountered.
func (m *MultiSink) RecordScheduleRun(ev coremetrics.ScheduleRunEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordScheduleRun(ev); err != nil {
			return err
		}
	}
	return nil
}

// RecordWeatherFetch forwards the event to all sinks.
func (m *MultiSink) RecordWeatherFetch(ev coremetrics.WeatherFetchEvent) error {
	for _, s := range m.Sinks {
		if err := s.RecordWeatherFetch(ev); err != nil {
			return err
		}
	}
	return nil
}
