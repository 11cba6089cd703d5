package weather

import (
	"encoding/json"
	"errors"
	"net/http"
	"sort"

	"gonum.org/v1/gonum/stat"

	corelogger "github.com/virtualzone/landroid-bridge/core/logger"
	coreweather "github.com/virtualzone/landroid-bridge/core/weather"
)

// NewHourlyHandler exposes the fused hourly timeline via
// GET /weather/hourly10day.
func NewHourlyHandler(source coreweather.Source, log corelogger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		records, err := source.Hourly(r.Context(), true, false)
		if err != nil {
			writeFetchError(w, log, err)
			return
		}
		writeJSON(w, records)
	})
}

// DaySummary aggregates one day of the fused timeline.
type DaySummary struct {
	Date              string  `json:"date"`
	Hours             int     `json:"hours"`
	MeanTemperatureC  float64 `json:"meanTemperature"`
	MeanPrecipitation float64 `json:"meanPrecipitation"`
	MaxPrecipitation  int     `json:"maxPrecipitation"`
}

// NewSummaryHandler exposes per-day aggregates of the fused timeline via
// GET /weather/summary.
func NewSummaryHandler(source coreweather.Source, log corelogger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		records, err := source.Hourly(r.Context(), true, false)
		if err != nil {
			writeFetchError(w, log, err)
			return
		}
		writeJSON(w, Summarize(records))
	})
}

// Summarize groups records by calendar day and computes aggregates.
func Summarize(records []coreweather.Record) []DaySummary {
	byDay := make(map[string][]coreweather.Record)
	for _, r := range records {
		key := r.Time.Format("2006-01-02")
		byDay[key] = append(byDay[key], r)
	}
	days := make([]string, 0, len(byDay))
	for key := range byDay {
		days = append(days, key)
	}
	sort.Strings(days)

	out := make([]DaySummary, 0, len(days))
	for _, key := range days {
		recs := byDay[key]
		temps := make([]float64, len(recs))
		precip := make([]float64, len(recs))
		maxPrecip := 0
		for i, r := range recs {
			temps[i] = r.TemperatureC
			precip[i] = float64(r.Precipitation)
			if r.Precipitation > maxPrecip {
				maxPrecip = r.Precipitation
			}
		}
		out = append(out, DaySummary{
			Date:              key,
			Hours:             len(recs),
			MeanTemperatureC:  stat.Mean(temps, nil),
			MeanPrecipitation: stat.Mean(precip, nil),
			MaxPrecipitation:  maxPrecip,
		})
	}
	return out
}

func writeFetchError(w http.ResponseWriter, log corelogger.Logger, err error) {
	log.Errorf("weather request failed: %v", err)
	if errors.Is(err, coreweather.ErrForecastUnavailable) {
		http.Error(w, err.Error(), http.StatusBadGateway)
		return
	}
	http.Error(w, "internal server error", http.StatusInternalServerError)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
