package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	coreweather "github.com/virtualzone/landroid-bridge/core/weather"
)

func testOWMConfig() Config {
	return Config{Provider: "openweathermap", APIKey: "test-key", Latitude: 52.52, Longitude: 13.405}
}

type owmFixture struct {
	currentDt   int64
	conditionID int
	entries     int
	rainEvery   int
	requests    map[string]int
}

func newOWMServer(t *testing.T, fx *owmFixture) *OpenWeatherMap {
	t.Helper()
	if fx.requests == nil {
		fx.requests = map[string]int{}
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/weather", func(w http.ResponseWriter, r *http.Request) {
		fx.requests["weather"]++
		assert.Equal(t, "test-key", r.URL.Query().Get("appid"))
		assert.Equal(t, "metric", r.URL.Query().Get("units"))
		fmt.Fprintf(w, `{"dt":%d,"main":{"temp":21.5},"weather":[{"id":%d}]}`, fx.currentDt, fx.conditionID)
	})
	mux.HandleFunc("/forecast", func(w http.ResponseWriter, r *http.Request) {
		fx.requests["forecast"]++
		list := make([]map[string]any, 0, fx.entries)
		for i := 0; i < fx.entries; i++ {
			entry := map[string]any{
				"dt":   fx.currentDt + int64((i+1)*3*3600),
				"main": map[string]any{"temp": 15.0},
			}
			if fx.rainEvery > 0 && i%fx.rainEvery == 0 {
				entry["rain"] = map[string]any{"3h": 0.5}
			}
			list = append(list, entry)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"list": list})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	prev := owmBaseURL
	owmBaseURL = srv.URL
	t.Cleanup(func() { owmBaseURL = prev })

	return NewOpenWeatherMap(testOWMConfig())
}

func TestOpenWeatherMapCurrent(t *testing.T) {
	now := time.Now().Truncate(time.Hour)
	source := newOWMServer(t, &owmFixture{currentDt: now.Unix(), conditionID: 501, entries: 20})

	record, err := source.Current(context.Background(), false)

	require.NoError(t, err)
	assert.True(t, record.Time.Equal(now))
	assert.Equal(t, 21.5, record.TemperatureC)
	assert.Equal(t, 100, record.Precipitation, "rain condition code maps to certainty")
}

func TestOpenWeatherMapCurrentClearSky(t *testing.T) {
	source := newOWMServer(t, &owmFixture{currentDt: time.Now().Unix(), conditionID: 800, entries: 20})

	record, err := source.Current(context.Background(), false)

	require.NoError(t, err)
	assert.Equal(t, 0, record.Precipitation)
}

func TestOpenWeatherMapHourlyMapsRain(t *testing.T) {
	source := newOWMServer(t, &owmFixture{currentDt: time.Now().Unix(), conditionID: 800, entries: 20, rainEvery: 4})

	forecast, err := source.Hourly(context.Background(), false, false)

	require.NoError(t, err)
	require.Len(t, forecast, 20)
	assert.Equal(t, 50, forecast[0].Precipitation, "measured rainfall maps to 50 percent")
	assert.Equal(t, 0, forecast[1].Precipitation)
	assert.Equal(t, 15.0, forecast[1].TemperatureC)
}

func TestOpenWeatherMapHourlyTooFewEntries(t *testing.T) {
	source := newOWMServer(t, &owmFixture{currentDt: time.Now().Unix(), entries: 10})

	_, err := source.Hourly(context.Background(), false, false)

	require.Error(t, err)
	assert.ErrorIs(t, err, coreweather.ErrForecastUnavailable)
	assert.Contains(t, err.Error(), "too few entries")
}

func TestOpenWeatherMapHourlyFusesCurrent(t *testing.T) {
	current := time.Date(2026, 6, 1, 10, 0, 0, 0, time.UTC)
	source := newOWMServer(t, &owmFixture{currentDt: current.Unix(), conditionID: 501, entries: 20})

	timeline, err := source.Hourly(context.Background(), true, false)

	require.NoError(t, err)
	require.NotEmpty(t, timeline)
	// There is no history tier, so the hours up to the forecast boundary
	// carry the current observation's conditions.
	assert.Equal(t, current.Add(time.Hour).Unix(), timeline[0].Time.Unix())
	assert.Equal(t, 100, timeline[0].Precipitation)
	seen := map[int64]bool{}
	for _, r := range timeline {
		hour := r.Time.Truncate(time.Hour).Unix()
		assert.False(t, seen[hour], "duplicate hour %d", hour)
		seen[hour] = true
	}
}

func TestOpenWeatherMapCachesResponses(t *testing.T) {
	fx := &owmFixture{currentDt: time.Now().Unix(), conditionID: 800, entries: 20}
	source := newOWMServer(t, fx)
	ctx := context.Background()

	_, err := source.Current(ctx, false)
	require.NoError(t, err)
	_, err = source.Current(ctx, false)
	require.NoError(t, err)
	assert.Equal(t, 1, fx.requests["weather"], "second call must hit the cache")

	_, err = source.Current(ctx, true)
	require.NoError(t, err)
	assert.Equal(t, 2, fx.requests["weather"], "force must bypass the cache")
}

func TestOpenWeatherMapServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(srv.Close)
	prev := owmBaseURL
	owmBaseURL = srv.URL
	t.Cleanup(func() { owmBaseURL = prev })

	source := NewOpenWeatherMap(testOWMConfig())
	_, err := source.Current(context.Background(), false)

	assert.ErrorIs(t, err, coreweather.ErrForecastUnavailable)
}
