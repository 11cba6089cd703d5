package weather

import "fmt"

// Config selects and parameterizes the weather provider.
type Config struct {
	// Provider is "openweathermap" or "darksky".
	Provider  string  `json:"provider"`
	APIKey    string  `json:"apiKey"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// SetDefaults applies sane defaults.
func (c *Config) SetDefaults() {
	if c.Provider == "" {
		c.Provider = "openweathermap"
	}
}

// Validate checks mandatory fields.
func (c Config) Validate() error {
	if c.Provider != "openweathermap" && c.Provider != "darksky" {
		return fmt.Errorf("unknown weather provider: %s", c.Provider)
	}
	if c.APIKey == "" {
		return fmt.Errorf("weather apiKey is required")
	}
	if c.Latitude < -90 || c.Latitude > 90 {
		return fmt.Errorf("latitude out of range: %f", c.Latitude)
	}
	if c.Longitude < -180 || c.Longitude > 180 {
		return fmt.Errorf("longitude out of range: %f", c.Longitude)
	}
	return nil
}
