package schedule

import (
	"errors"
	"fmt"
)

// Config defines the planning parameters for the mowing scheduler. The
// field names follow the bridge's configuration file.
type Config struct {
	// Enable gates the whole scheduler; planning fails fast when unset.
	Enable bool `json:"enable"`
	// Cron enables the periodic background re-apply.
	Cron bool `json:"cron"`
	// EarliestStart and LatestStop bound the daily operating window
	// (hours of day, LatestStop exclusive).
	EarliestStart int `json:"earliestStart"`
	LatestStop    int `json:"latestStop"`
	// RainDelayMinutes is the mower's configured settle time after rain.
	// It is consumed from the front of each dry window, rounded up to
	// whole hours.
	RainDelayMinutes int `json:"rainDelay"`
	// Threshold is the precipitation likelihood (percent) above which an
	// hour counts as wet.
	Threshold int `json:"threshold"`
	// OffDays is the number of days per horizon left idle.
	OffDays int `json:"offDays"`
	// DaysForTotalCut is the rolling cycle length: the whole lawn should
	// receive a full pass within this many days.
	DaysForTotalCut int `json:"daysForTotalCut"`
	// SquareMeters and PerHour determine the raw mowing hours for one
	// full pass.
	SquareMeters float64 `json:"squareMeters"`
	PerHour      float64 `json:"perHour"`
	// MowTime and ChargeTime (minutes per cycle) derive the charging
	// overhead multiplier.
	MowTime    float64 `json:"mowTime"`
	ChargeTime float64 `json:"chargeTime"`
	// StartEarly preserves the window start when the balancer shrinks a
	// day; otherwise the window shrinks from the front.
	StartEarly bool `json:"startEarly"`
}

// ErrDisabled is returned by planning operations when the scheduler is not
// enabled in the configuration.
var ErrDisabled = errors.New("scheduler is not enabled")

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.LatestStop == 0 {
		c.LatestStop = 20
	}
	if c.Threshold == 0 {
		c.Threshold = 30
	}
	if c.DaysForTotalCut == 0 {
		c.DaysForTotalCut = 2
	}
	if c.PerHour == 0 {
		c.PerHour = 50
	}
	if c.MowTime == 0 {
		c.MowTime = 90
	}
	if c.ChargeTime == 0 {
		c.ChargeTime = 90
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.EarliestStart < 0 || c.EarliestStart > 23 {
		return fmt.Errorf("earliestStart out of range: %d", c.EarliestStart)
	}
	if c.LatestStop < 1 || c.LatestStop > 24 {
		return fmt.Errorf("latestStop out of range: %d", c.LatestStop)
	}
	if c.EarliestStart >= c.LatestStop {
		return fmt.Errorf("earliestStart %d must be before latestStop %d", c.EarliestStart, c.LatestStop)
	}
	if c.Threshold < 0 || c.Threshold > 100 {
		return fmt.Errorf("threshold out of range: %d", c.Threshold)
	}
	if c.DaysForTotalCut <= 0 {
		return errors.New("daysForTotalCut must be positive")
	}
	if c.SquareMeters <= 0 {
		return errors.New("squareMeters must be positive")
	}
	if c.PerHour <= 0 {
		return errors.New("perHour must be positive")
	}
	if c.MowTime <= 0 {
		return errors.New("mowTime must be positive")
	}
	if c.OffDays < 0 {
		return errors.New("offDays must not be negative")
	}
	return nil
}

// WorkMinutesTotalCut is the number of mowing minutes, charging overhead
// included, needed to cover the whole area once.
func (c Config) WorkMinutesTotalCut() float64 {
	rawHours := c.SquareMeters / c.PerHour
	chargingFactor := c.ChargeTime/c.MowTime + 1
	return rawHours * chargingFactor * 60
}
