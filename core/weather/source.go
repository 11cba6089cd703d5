package weather

import (
	"context"
	"errors"
)

// ErrForecastUnavailable indicates that a weather source could not deliver
// the data needed to build a timeline. Fetch, decode and short-payload
// failures are all wrapped in this error.
var ErrForecastUnavailable = errors.New("weather forecast unavailable")

// Source supplies hourly weather records for one location.
//
// Current returns the latest observation. History returns today's
// already-elapsed hours, oldest first; providers without a history API
// return an empty slice. Hourly returns the multi-day hourly forecast,
// fused with history and current conditions when includeTodayHistory is
// set. Setting force bypasses the source's response cache.
type Source interface {
	Current(ctx context.Context, force bool) (Record, error)
	History(ctx context.Context, force bool) ([]Record, error)
	Hourly(ctx context.Context, includeTodayHistory, force bool) ([]Record, error)
}
