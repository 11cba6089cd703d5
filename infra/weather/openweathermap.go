package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	coreweather "github.com/virtualzone/landroid-bridge/core/weather"
	"github.com/virtualzone/landroid-bridge/infra/logger"
)

// owmBaseURL is a seam for tests.
var owmBaseURL = "https://api.openweathermap.org/data/2.5"

// minForecastEntries is the smallest usable hourly forecast: five 3-hour
// entries per day for three days.
const minForecastEntries = 3 * 5

// OpenWeatherMap implements weather.Source against the OpenWeatherMap API.
// The free tier has no history endpoint, so History always returns an
// empty slice and the fused timeline starts at the current observation.
type OpenWeatherMap struct {
	cfg    Config
	client *http.Client
	cache  *responseCache
	log    logger.Logger
}

// NewOpenWeatherMap creates a client for the given location and key.
func NewOpenWeatherMap(cfg Config) *OpenWeatherMap {
	return &OpenWeatherMap{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		cache:  newResponseCache(70 * time.Minute),
		log:    logger.New("openweathermap"),
	}
}

type owmCurrent struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Weather []struct {
		ID int `json:"id"`
	} `json:"weather"`
}

type owmForecast struct {
	List []owmForecastEntry `json:"list"`
}

type owmForecastEntry struct {
	Dt   int64 `json:"dt"`
	Main struct {
		Temp float64 `json:"temp"`
	} `json:"main"`
	Rain *struct {
		ThreeHours float64 `json:"3h"`
	} `json:"rain"`
}

// Current returns the latest observation. Condition codes 200-699
// (thunderstorm, drizzle, rain, snow, atmosphere) count as precipitation.
func (s *OpenWeatherMap) Current(ctx context.Context, force bool) (coreweather.Record, error) {
	url := fmt.Sprintf("%s/weather?lat=%f&lon=%f&appid=%s&units=metric",
		owmBaseURL, s.cfg.Latitude, s.cfg.Longitude, s.cfg.APIKey)
	body, err := s.fetch(ctx, "current", url, force)
	if err != nil {
		return coreweather.Record{}, err
	}
	var data owmCurrent
	if err := json.Unmarshal(body, &data); err != nil || data.Dt == 0 {
		return coreweather.Record{}, fmt.Errorf("%w: invalid response from api.openweathermap.org", coreweather.ErrForecastUnavailable)
	}
	precipitation := 0
	if len(data.Weather) > 0 && data.Weather[0].ID >= 200 && data.Weather[0].ID <= 699 {
		precipitation = 100
	}
	return coreweather.Record{
		Time:          time.Unix(data.Dt, 0),
		TemperatureC:  data.Main.Temp,
		Precipitation: precipitation,
	}, nil
}

// History is not available on the free OpenWeatherMap tier.
func (s *OpenWeatherMap) History(context.Context, bool) ([]coreweather.Record, error) {
	return nil, nil
}

// Hourly returns the 3-hourly forecast, fused with the current observation
// when includeTodayHistory is set.
func (s *OpenWeatherMap) Hourly(ctx context.Context, includeTodayHistory, force bool) ([]coreweather.Record, error) {
	url := fmt.Sprintf("%s/forecast?lat=%f&lon=%f&appid=%s&units=metric",
		owmBaseURL, s.cfg.Latitude, s.cfg.Longitude, s.cfg.APIKey)
	body, err := s.fetch(ctx, "forecast", url, force)
	if err != nil {
		return nil, err
	}
	var data owmForecast
	if err := json.Unmarshal(body, &data); err != nil {
		return nil, fmt.Errorf("%w: invalid response from api.openweathermap.org", coreweather.ErrForecastUnavailable)
	}
	if len(data.List) < minForecastEntries {
		return nil, fmt.Errorf("%w: too few entries in hourly forecast", coreweather.ErrForecastUnavailable)
	}
	forecast := make([]coreweather.Record, 0, len(data.List))
	for _, entry := range data.List {
		precipitation := 0
		if entry.Rain != nil && entry.Rain.ThreeHours > 0 {
			precipitation = 50
		}
		forecast = append(forecast, coreweather.Record{
			Time:          time.Unix(entry.Dt, 0),
			TemperatureC:  entry.Main.Temp,
			Precipitation: precipitation,
		})
	}
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

func (s *OpenWeatherMap) fetch(ctx context.Context, kind, url string, force bool) ([]byte, error) {
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
		return nil, fmt.Errorf("%w: unexpected status %d from api.openweathermap.org", coreweather.ErrForecastUnavailable, resp.StatusCode)
	}
	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", coreweather.ErrForecastUnavailable, err)
	}
	s.cache.put(kind, payload)
	return payload, nil
}
