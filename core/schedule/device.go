package schedule

import "time"

// DeviceChannel applies a finalized day to the physical mower. One call per
// weekday; a later call for the same weekday overwrites the earlier one.
type DeviceChannel interface {
	SetSchedule(weekday time.Weekday, period TimePeriod) error
}

// NopDevice discards schedules. It stands in when no device transport is
// configured.
type NopDevice struct{}

func (NopDevice) SetSchedule(time.Weekday, TimePeriod) error { return nil }
