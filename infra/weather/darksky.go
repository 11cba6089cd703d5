package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"

	"github.com/virtualzone/landroid-bridge/core/schedule"
	coreweather "github.com/virtualzone/landroid-bridge/core/weather"
	"github.com/virtualzone/landroid-bridge/infra/logger"
)

// darkSkyBaseURL is a seam for tests.
var darkSkyBaseURL = "https://api.darksky.net"

// DarkSky implements weather.Source against the Dark Sky API. Unlike
// OpenWeatherMap it has native hourly resolution, a real probability of
// precipitation and a time-machine endpoint for today's elapsed hours.
type DarkSky struct {
	cfg    Config
	client *http.Client
	cache  *responseCache
	log    logger.Logger
}

// NewDarkSky creates a client for the given location and key.
func NewDarkSky(cfg Config) *DarkSky {
	return &DarkSky{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		cache:  newResponseCache(70 * time.Minute),
		log:    logger.New("darksky"),
	}
}

type darkSkyPoint struct {
	Time              int64    `json:"time"`
	Temperature       *float64 `json:"temperature"`
	TemperatureHigh   *float64 `json:"temperatureHigh"`
	PrecipProbability float64  `json:"precipProbability"`
}

type darkSkyResponse struct {
	Currently *darkSkyPoint `json:"currently"`
	Hourly    *struct {
		Data []darkSkyPoint `json:"data"`
	} `json:"hourly"`
	Daily *struct {
		Data []darkSkyPoint `json:"data"`
	} `json:"daily"`
}

func (p darkSkyPoint) record() coreweather.Record {
	temperature := 0.0
	if p.Temperature != nil {
		temperature = *p.Temperature
	} else if p.TemperatureHigh != nil {
		temperature = *p.TemperatureHigh
	}
	return coreweather.Record{
		Time:          time.Unix(p.Time, 0),
		TemperatureC:  temperature,
		Precipitation: int(math.Ceil(p.PrecipProbability * 100)),
	}
}

// Current returns the latest observation.
func (s *DarkSky) Current(ctx context.Context, force bool) (coreweather.Record, error) {
	url := fmt.Sprintf("%s/forecast/%s/%f,%f?units=si",
		darkSkyBaseURL, s.cfg.APIKey, s.cfg.Latitude, s.cfg.Longitude)
	body, err := s.fetch(ctx, "current", url, force)
	if err != nil {
		return coreweather.Record{}, err
	}
	var data darkSkyResponse
	if err := json.Unmarshal(body, &data); err != nil || data.Currently == nil {
		return coreweather.Record{}, fmt.Errorf("%w: invalid response from api.darksky.net", coreweather.ErrForecastUnavailable)
	}
	return data.Currently.record(), nil
}

// History returns today's already-elapsed hours via the time-machine
// endpoint, oldest first.
func (s *DarkSky) History(ctx context.Context, force bool) ([]coreweather.Record, error) {
	now := time.Now()
	midnight := schedule.Day(now)
	url := fmt.Sprintf("%s/forecast/%s/%f,%f,%d?units=si",
		darkSkyBaseURL, s.cfg.APIKey, s.cfg.Latitude, s.cfg.Longitude, midnight.Unix())
	body, err := s.fetch(ctx, "history", url, force)
	if err != nil {
		return nil, err
	}
	var data darkSkyResponse
	if err := json.Unmarshal(body, &data); err != nil || data.Hourly == nil {
		return nil, fmt.Errorf("%w: invalid response from api.darksky.net", coreweather.ErrForecastUnavailable)
	}
	currentHour := now.Truncate(time.Hour)
	var history []coreweather.Record
	for _, p := range data.Hourly.Data {
		r := p.record()
		if r.Time.Before(currentHour) {
			history = append(history, r)
		}
	}
	return history, nil
}

// Hourly returns the next days as an hourly sequence: 48 native hourly
// entries extended hour by hour from the daily forecast out to seven days.
func (s *DarkSky) Hourly(ctx context.Context, includeTodayHistory, force bool) ([]coreweather.Record, error) {
	url := fmt.Sprintf("%s/forecast/%s/%f,%f?units=si",
		darkSkyBaseURL, s.cfg.APIKey, s.cfg.Latitude, s.cfg.Longitude)
	body, err := s.fetch(ctx, "forecast", url, force)
	if err != nil {
		return nil, err
	}
	var data darkSkyResponse
	if err := json.Unmarshal(body, &data); err != nil || data.Hourly == nil || data.Daily == nil {
		return nil, fmt.Errorf("%w: invalid response from api.darksky.net", coreweather.ErrForecastUnavailable)
	}
	if len(data.Hourly.Data) < 48 {
		return nil, fmt.Errorf("%w: too few entries in hourly forecast", coreweather.ErrForecastUnavailable)
	}
	if len(data.Daily.Data) < 7 {
		return nil, fmt.Errorf("%w: too few entries in daily forecast", coreweather.ErrForecastUnavailable)
	}
	hourly := make([]coreweather.Record, 0, len(data.Hourly.Data))
	for _, p := range data.Hourly.Data {
		hourly = append(hourly, p.record())
	}
	daily := make([]coreweather.Record, 0, len(data.Daily.Data))
	for _, p := range data.Daily.Data {
		daily = append(daily, p.record())
	}
	forecast := extendHourly(hourly, daily, time.Now())
	if !includeTodayHistory {
		return forecast, nil
	}
	history, err := s.History(ctx, force)
	if err != nil {
		return nil, err
	}
	current, err := s.Current(ctx, force)
	if err != nil {
		return nil, err
	}
	return coreweather.FuseTimeline(history, current, forecast), nil
}

// extendHourly stretches the 48-hour native forecast to the full horizon by
// cloning each matching daily entry once per remaining hour, up to seven
// days out.
func extendHourly(hourly, daily []coreweather.Record, now time.Time) []coreweather.Record {
	out := make([]coreweather.Record, len(hourly))
	copy(out, hourly)
	end := schedule.Day(now).AddDate(0, 0, 7).Add(23 * time.Hour)
	next := hourly[len(hourly)-1].Time.Truncate(time.Hour)
	for next = next.Add(time.Hour); !next.After(end); next = next.Add(time.Hour) {
		for _, d := range daily {
			if schedule.Day(d.Time).Equal(schedule.Day(next)) {
				entry := d.Clone()
				entry.Time = next
				out = append(out, entry)
				break
			}
		}
	}
	return out
}

func (s *DarkSky) fetch(ctx context.Context, kind, url string, force bool) ([]byte, error) {
	if !force {
		if payload, ok := s.cache.get(kind); ok {
			return payload, nil
		}
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreweather.ErrForecastUnavailable, err)
	}
	s.log.Debugf("loading %s weather data", kind)
	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreweather.ErrForecastUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected status %d from api.darksky.net", coreweather.ErrForecastUnavailable, resp.StatusCode)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreweather.ErrForecastUnavailable, err)
	}
	s.cache.put(kind, payload)
	return payload, nil
}
