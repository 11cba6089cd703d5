package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	corelogger "github.com/virtualzone/landroid-bridge/core/logger"
	"github.com/virtualzone/landroid-bridge/core/schedule"
	"github.com/virtualzone/landroid-bridge/core/weather"
)

// Planner is the subset of the scheduling service used by the HTTP API.
type Planner interface {
	Next7Days(ctx context.Context, force bool) (schedule.Week, error)
	Apply(ctx context.Context, force bool) (schedule.Week, error)
}

// NewNext7DaysHandler returns a read-only preview of the upcoming schedule
// via GET /scheduler/next7days.
func NewNext7DaysHandler(planner Planner, log corelogger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		week, err := planner.Next7Days(r.Context(), false)
		if err != nil {
			writePlanError(w, log, err)
			return
		}
		writeJSON(w, week)
	})
}

// NewApplyHandler computes, persists and pushes the schedule via
// POST /scheduler/apply.
func NewApplyHandler(planner Planner, log corelogger.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		week, err := planner.Apply(r.Context(), false)
		if err != nil {
			writePlanError(w, log, err)
			return
		}
		writeJSON(w, week)
	})
}

func writePlanError(w http.ResponseWriter, log corelogger.Logger, err error) {
	log.Errorf("scheduler request failed: %v", err)
	switch {
	case errors.Is(err, schedule.ErrDisabled):
		http.Error(w, err.Error(), http.StatusServiceUnavailable)
	case errors.Is(err, weather.ErrForecastUnavailable):
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
