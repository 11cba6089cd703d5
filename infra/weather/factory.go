package weather

import (
	"fmt"

	coreweather "github.com/virtualzone/landroid-bridge/core/weather"
)

// NewSource builds the configured provider client.
func NewSource(cfg Config) (coreweather.Source, error) {
	switch cfg.Provider {
	case "openweathermap":
		return NewOpenWeatherMap(cfg), nil
	case "darksky":
		return NewDarkSky(cfg), nil
	default:
		return nil, fmt.Errorf("unknown weather provider: %s", cfg.Provider)
	}
}
