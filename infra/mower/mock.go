package mower

import (
	"sync"
	"time"

	"github.com/virtualzone/landroid-bridge/core/schedule"
)

// MockDevice records pushed schedules for tests.
type MockDevice struct {
	mu        sync.Mutex
	Schedules map[time.Weekday]schedule.TimePeriod
	FailDays  map[time.Weekday]bool
	Err       error
}

// NewMockDevice creates an empty MockDevice.
func NewMockDevice() *MockDevice {
	return &MockDevice{
		Schedules: make(map[time.Weekday]schedule.TimePeriod),
		FailDays:  make(map[time.Weekday]bool),
	}
}

// SetSchedule records the period or fails if the weekday is configured to.
func (m *MockDevice) SetSchedule(weekday time.Weekday, period schedule.TimePeriod) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailDays[weekday] {
		return m.Err
	}
	m.Schedules[weekday] = period
	return nil
}

// Pushed returns the recorded period for the weekday.
func (m *MockDevice) Pushed(weekday time.Weekday) (schedule.TimePeriod, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.Schedules[weekday]
	return p, ok
}
