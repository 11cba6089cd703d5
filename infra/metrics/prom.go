package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/virtualzone/landroid-bridge/core/metrics"
)

// PromSink records scheduler events in Prometheus metrics.
type PromSink struct {
	runs           *prometheus.CounterVec
	runDuration    prometheus.Histogram
	plannedMinutes prometheus.Gauge
	fetches        *prometheus.CounterVec
	fetchAttempts  prometheus.Histogram
}

// NewPromSink registers scheduler metrics on the default Prometheus
// registerer. The Prometheus server should be started separately using
// cfg.PrometheusPort.
func NewPromSink(cfg Config) (coremetrics.Sink, error) {
	return NewPromSinkWithRegistry(cfg, prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on the provided registerer.
// A nil registerer defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(_ Config, reg prometheus.Registerer) (coremetrics.Sink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	runs := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "schedule_runs_total",
		Help: "Total number of scheduling runs",
	}, []string{"applied", "success"})
	runDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "schedule_run_duration_seconds",
		Help:    "Wall time of a scheduling run",
		Buckets: prometheus.DefBuckets,
	})
	plannedMinutes := prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "schedule_planned_minutes",
		Help: "Total mow minutes planned in the most recent run",
	})
	fetches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "weather_fetches_total",
		Help: "Total number of weather refresh cycles",
	}, []string{"provider", "success"})
	fetchAttempts := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "weather_fetch_attempts",
		Help:    "Attempts needed per weather refresh cycle",
		Buckets: []float64{1, 2, 3, 4, 5},
	})

	for _, c := range []prometheus.Collector{runs, runDuration, plannedMinutes, fetches, fetchAttempts} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return nil, err
			}
		}
	}

	return &PromSink{
		runs:           runs,
		runDuration:    runDuration,
		plannedMinutes: plannedMinutes,
		fetches:        fetches,
		fetchAttempts:  fetchAttempts,
	}, nil
}

// RecordScheduleRun updates the run counters and gauges.
func (s *PromSink) RecordScheduleRun(ev coremetrics.ScheduleRunEvent) error {
	s.runs.WithLabelValues(strconv.FormatBool(ev.Applied), strconv.FormatBool(ev.Err == nil)).Inc()
	s.runDuration.Observe(ev.Duration.Seconds())
	if ev.Err == nil {
		s.plannedMinutes.Set(float64(ev.PlannedMinutes))
	}
	return nil
}

// RecordWeatherFetch counts a refresh cycle and its attempts.
func (s *PromSink) RecordWeatherFetch(ev coremetrics.WeatherFetchEvent) error {
	s.fetches.WithLabelValues(ev.Provider, strconv.FormatBool(ev.Success)).Inc()
	s.fetchAttempts.Observe(float64(ev.Attempts))
	return nil
}
