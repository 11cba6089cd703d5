package weather

import "time"

// Record is a single hourly weather observation or forecast entry.
// Precipitation is a likelihood in percent (0-100); providers that only
// report measured rainfall map it onto this scale.
type Record struct {
	Time          time.Time `json:"dateTime"`
	TemperatureC  float64   `json:"temperature"`
	Precipitation int       `json:"precipitation"`
}

// Clone returns a copy of the record.
func (r Record) Clone() Record {
	return Record{Time: r.Time, TemperatureC: r.TemperatureC, Precipitation: r.Precipitation}
}

// SameHour reports whether both records fall within the same clock hour.
func (r Record) SameHour(other Record) bool {
	return r.Time.Truncate(time.Hour).Equal(other.Time.Truncate(time.Hour))
}
