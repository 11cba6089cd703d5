package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/virtualzone/landroid-bridge/core/schedule"
	"github.com/virtualzone/landroid-bridge/infra/metrics"
	"github.com/virtualzone/landroid-bridge/infra/mower"
	"github.com/virtualzone/landroid-bridge/infra/weather"
)

// Config is the root configuration of the bridge.
type Config struct {
	HTTP      HTTPConfig      `json:"http"`
	Scheduler schedule.Config `json:"scheduler"`
	Weather   weather.Config  `json:"weather"`
	DB        DBConfig        `json:"db"`
	MQTT      mower.Config    `json:"mqtt"`
	Metrics   metrics.Config  `json:"metrics"`
}

// HTTPConfig configures the REST listener.
type HTTPConfig struct {
	Listen string `json:"listen"`
}

// SetDefaults applies sane defaults.
func (c *HTTPConfig) SetDefaults() {
	if c.Listen == "" {
		c.Listen = ":3000"
	}
}

// DBConfig locates the schedule ledger database.
type DBConfig struct {
	Path string `json:"path"`
}

// SetDefaults applies sane defaults.
func (c *DBConfig) SetDefaults() {
	if c.Path == "" {
		c.Path = "landroid.db"
	}
}

// Load reads the configuration file at path, applying LB_ environment
// overrides, defaults and validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	// Optional environment overrides
	if err := k.Load(env.Provider("LB_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "lb_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.HTTP.SetDefaults()
	cfg.DB.SetDefaults()
	cfg.Scheduler.SetDefaults()
	cfg.Weather.SetDefaults()
	cfg.MQTT.SetDefaults()
	cfg.Metrics.SetDefaults()
	if cfg.Scheduler.Enable {
		if err := cfg.Scheduler.Validate(); err != nil {
			return nil, err
		}
		if err := cfg.Weather.Validate(); err != nil {
			return nil, err
		}
	}
	if err := cfg.MQTT.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
