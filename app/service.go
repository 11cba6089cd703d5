package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	apischeduler "github.com/virtualzone/landroid-bridge/api/scheduler"
	apiweather "github.com/virtualzone/landroid-bridge/api/weather"
	"github.com/virtualzone/landroid-bridge/config"
	coremetrics "github.com/virtualzone/landroid-bridge/core/metrics"
	"github.com/virtualzone/landroid-bridge/core/schedule"
	coreweather "github.com/virtualzone/landroid-bridge/core/weather"
	"github.com/virtualzone/landroid-bridge/infra/ledger"
	"github.com/virtualzone/landroid-bridge/infra/logger"
	"github.com/virtualzone/landroid-bridge/infra/metrics"
	"github.com/virtualzone/landroid-bridge/infra/mower"
	"github.com/virtualzone/landroid-bridge/infra/weather"
	"github.com/virtualzone/landroid-bridge/internal/eventbus"
)

// cronSpec triggers the periodic re-apply hourly at minute 15.
const cronSpec = "15 * * * *"

// fetchRetries bounds the weather refresh attempts of one cron cycle.
const fetchRetries = 5

// ErrRunInProgress is returned when a scheduling run is requested while
// another one is still active.
var ErrRunInProgress = errors.New("scheduling run already in progress")

// Service wires the planner, the weather source, the ledger and the mower
// channel, and serves the REST API plus the periodic refresh.
type Service struct {
	cfg     *config.Config
	planner *schedule.Planner
	source  coreweather.Source
	store   *ledger.SQLiteLedger
	device  *mower.Client
	sink    coremetrics.Sink
	bus     *eventbus.Bus[coremetrics.ScheduleRunEvent]
	log     logger.Logger

	// runMu enforces the single-flight discipline: a run must finish
	// before the next one may start.
	runMu sync.Mutex
}

// New creates a Service from the configuration.
func New(cfg *config.Config) (*Service, error) {
	log := logger.New("service")

	source, err := weather.NewSource(cfg.Weather)
	if err != nil {
		return nil, fmt.Errorf("weather source: %w", err)
	}
	store, err := ledger.NewSQLiteLedger(cfg.DB.Path)
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	var device *mower.Client
	var channel schedule.DeviceChannel = schedule.NopDevice{}
	if cfg.MQTT.Enable {
		device, err = mower.NewClient(cfg.MQTT)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("mqtt client: %w", err)
		}
		channel = device
	}

	var sinks []coremetrics.Sink
	if cfg.Metrics.PrometheusEnabled {
		sink, err := metrics.NewPromSink(cfg.Metrics)
		if err != nil {
			_ = store.Close()
			return nil, fmt.Errorf("prom sink: %w", err)
		}
		sinks = append(sinks, sink)
	}
	if cfg.Metrics.InfluxEnabled {
		sinks = append(sinks, metrics.NewInfluxSinkWithFallback(cfg.Metrics))
	}
	var sink coremetrics.Sink = coremetrics.NopSink{}
	if len(sinks) == 1 {
		sink = sinks[0]
	} else if len(sinks) > 1 {
		sink = metrics.NewMultiSink(sinks...)
	}

	planner := schedule.NewPlanner(cfg.Scheduler, source, store, channel, logger.New("planner"))
	return &Service{
		cfg:     cfg,
		planner: planner,
		source:  source,
		store:   store,
		device:  device,
		sink:    sink,
		bus:     eventbus.New[coremetrics.ScheduleRunEvent](),
		log:     log,
	}, nil
}

// Next7Days computes the upcoming schedule without persisting it.
func (s *Service) Next7Days(ctx context.Context, force bool) (schedule.Week, error) {
	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()
	return s.recordRun(false, func() (schedule.Week, error) {
		return s.planner.Next7Days(ctx, force)
	})
}

// Apply computes, persists and pushes the upcoming schedule.
func (s *Service) Apply(ctx context.Context, force bool) (schedule.Week, error) {
	if !s.runMu.TryLock() {
		return nil, ErrRunInProgress
	}
	defer s.runMu.Unlock()
	return s.recordRun(true, func() (schedule.Week, error) {
		return s.planner.Apply(ctx, force)
	})
}

func (s *Service) recordRun(applied bool, run func() (schedule.Week, error)) (schedule.Week, error) {
	start := time.Now()
	week, err := run()
	ev := coremetrics.ScheduleRunEvent{
		Start:    start,
		Duration: time.Since(start),
		Applied:  applied,
		Err:      err,
	}
	if err == nil {
		ev.Days = len(week)
		ev.PlannedMinutes = week.TotalMinutes()
	}
	if serr := s.sink.RecordScheduleRun(ev); serr != nil {
		s.log.Errorf("record run: %v", serr)
	}
	s.bus.Publish(ev)
	return week, err
}

// refreshSchedule is the periodic trigger: it re-applies the schedule with
// a forced weather cache renewal, retrying while the forecast is
// unavailable.
func (s *Service) refreshSchedule(ctx context.Context) {
	if !s.cfg.Scheduler.Enable || !s.cfg.Scheduler.Cron {
		s.log.Debugf("skipping refresh, scheduler cron is not enabled")
		return
	}
	var err error
	attempts := 0
	for attempts < fetchRetries {
		attempts++
		_, err = s.Apply(ctx, true)
		if err == nil || !errors.Is(err, coreweather.ErrForecastUnavailable) {
			break
		}
		s.log.Warnf("refresh attempt %d failed: %v", attempts, err)
	}
	fetch := coremetrics.WeatherFetchEvent{
		Provider: s.cfg.Weather.Provider,
		Attempts: attempts,
		Success:  err == nil,
		Time:     time.Now(),
	}
	if serr := s.sink.RecordWeatherFetch(fetch); serr != nil {
		s.log.Errorf("record fetch: %v", serr)
	}
	if err != nil {
		s.log.Errorf("schedule refresh failed after %d attempts: %v", attempts, err)
		return
	}
	s.log.Infof("schedule refreshed")
}

// announceRuns forwards applied runs to the mower's status topic.
func (s *Service) announceRuns(ctx context.Context) {
	sub := s.bus.Subscribe()
	defer s.bus.Unsubscribe(sub)
	for {
		select {
		case <-ctx.Done():
			return
		case ev, ok := <-sub:
			if !ok {
				return
			}
			if s.device == nil || !ev.Applied || ev.Err != nil {
				continue
			}
			status := struct {
				Event          string `json:"event"`
				Days           int    `json:"days"`
				PlannedMinutes int    `json:"plannedMinutes"`
				Timestamp      int64  `json:"timestamp"`
			}{"schedule_applied", ev.Days, ev.PlannedMinutes, ev.Start.UnixMilli()}
			if err := s.device.PublishStatus(status); err != nil {
				s.log.Errorf("publish status: %v", err)
			}
		}
	}
}

// Run starts the HTTP API, the metrics server and the cron trigger, and
// blocks until the context is cancelled.
func (s *Service) Run(ctx context.Context) error {
	go s.announceRuns(ctx)

	if s.cfg.Metrics.PrometheusEnabled {
		go func() {
			if err := metrics.StartPromServer(ctx, s.cfg.Metrics.PrometheusPort); err != nil {
				s.log.Errorf("prom server: %v", err)
			}
		}()
	}

	var c *cron.Cron
	if s.cfg.Scheduler.Enable && s.cfg.Scheduler.Cron {
		c = cron.New()
		if _, err := c.AddFunc(cronSpec, func() { s.refreshSchedule(context.Background()) }); err != nil {
			return fmt.Errorf("cron: %w", err)
		}
		c.Start()
		defer c.Stop()
	}

	srv := &http.Server{Addr: s.cfg.HTTP.Listen, Handler: s.routes()}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			s.log.Errorf("http shutdown: %v", err)
		}
	}()
	s.log.Infof("listening on %s", s.cfg.HTTP.Listen)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// routes assembles the REST API.
func (s *Service) routes() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/scheduler/next7days", apischeduler.NewNext7DaysHandler(s, logger.New("api")))
	mux.Handle("/scheduler/apply", apischeduler.NewApplyHandler(s, logger.New("api")))
	mux.Handle("/weather/hourly10day", apiweather.NewHourlyHandler(s.source, logger.New("api")))
	mux.Handle("/weather/summary", apiweather.NewSummaryHandler(s.source, logger.New("api")))
	return mux
}

// Close releases resources held by the service.
func (s *Service) Close() error {
	s.bus.Close()
	if s.device != nil {
		s.device.Disconnect()
	}
	return s.store.Close()
}
