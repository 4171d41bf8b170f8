package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"lightbox/params"
)

const DefaultFile = "lightbox.yml"

type LoggingConfig struct {
	Level  string `yaml:"Level"`
	Format string `yaml:"Format"`
	File   string `yaml:"File"`
}

type DeviceConfig struct {
	Type   string         `yaml:"Type"`
	Config map[string]any `yaml:"Config"`
}

// ParameterConfig seeds the parameter store at startup and on config
// reload. Values go through the store's own validation, so the ranges
// here match the live set_parameter ranges exactly.
type ParameterConfig struct {
	Brightness float64    `yaml:"Brightness"`
	Speed      float64    `yaml:"Speed"`
	Gamma      float64    `yaml:"Gamma"`
	Balance    [3]float64 `yaml:"Balance"`
	MirrorX    bool       `yaml:"MirrorX"`
	MirrorY    bool       `yaml:"MirrorY"`
	Rotation   int        `yaml:"Rotation"`
}

type NightDimmerConfig struct {
	Enabled   bool    `yaml:"Enabled"`
	Latitude  float64 `yaml:"Latitude"`
	Longitude float64 `yaml:"Longitude"`
	Cap       float64 `yaml:"Cap"`
}

type Config struct {
	Logging      LoggingConfig     `yaml:"Logging"`
	Device       DeviceConfig      `yaml:"Device"`
	MediaDir     string            `yaml:"MediaDir"`
	Parameters   ParameterConfig   `yaml:"Parameters"`
	PlaylistFile string            `yaml:"PlaylistFile"`
	NightDimmer  NightDimmerConfig `yaml:"NightDimmer"`
}

func defaults() *Config {
	cfg := &Config{}
	cfg.Logging.Level = "INFO"
	cfg.Logging.Format = "text"
	cfg.Device.Type = "TERM"
	cfg.Device.Config = map[string]any{"width": 64, "height": 32}
	cfg.MediaDir = "media"
	cfg.Parameters = FromSet(params.Defaults())
	cfg.NightDimmer.Cap = 0.3
	return cfg
}

// ReadConfig loads and validates the YAML config file. Unknown keys
// are rejected so typos surface at startup instead of silently falling
// back to defaults.
func ReadConfig(cfile string) (*Config, error) {
	f, err := os.Open(cfile)
	if err != nil {
		return nil, fmt.Errorf("opening config file: %w", err)
	}
	defer f.Close()

	cfg := defaults()
	decoder := yaml.NewDecoder(f)
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("decoding config file %s: %w", cfile, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", cfile, err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch strings.ToUpper(c.Logging.Level) {
	case "DEBUG", "INFO", "WARN", "ERROR":
	default:
		return fmt.Errorf("Logging.Level %q not one of DEBUG/INFO/WARN/ERROR", c.Logging.Level)
	}
	switch strings.ToLower(c.Logging.Format) {
	case "text", "json":
	default:
		return fmt.Errorf("Logging.Format %q not one of text/json", c.Logging.Format)
	}
	if c.Device.Type == "" {
		return fmt.Errorf("Device.Type must be set")
	}
	if err := params.Validate(c.Parameters.ToSet()); err != nil {
		return fmt.Errorf("Parameters: %w", err)
	}
	if c.NightDimmer.Enabled {
		if c.NightDimmer.Cap < 0 || c.NightDimmer.Cap > 1 {
			return fmt.Errorf("NightDimmer.Cap %v outside [0,1]", c.NightDimmer.Cap)
		}
		if c.NightDimmer.Latitude < -90 || c.NightDimmer.Latitude > 90 {
			return fmt.Errorf("NightDimmer.Latitude %v outside [-90,90]", c.NightDimmer.Latitude)
		}
		if c.NightDimmer.Longitude < -180 || c.NightDimmer.Longitude > 180 {
			return fmt.Errorf("NightDimmer.Longitude %v outside [-180,180]", c.NightDimmer.Longitude)
		}
	}
	return nil
}

func (p ParameterConfig) ToSet() params.Set {
	return params.Set{
		Brightness: p.Brightness,
		Speed:      p.Speed,
		Gamma:      p.Gamma,
		Balance:    p.Balance,
		MirrorX:    p.MirrorX,
		MirrorY:    p.MirrorY,
		Rotation:   p.Rotation,
	}
}

func FromSet(s params.Set) ParameterConfig {
	return ParameterConfig{
		Brightness: s.Brightness,
		Speed:      s.Speed,
		Gamma:      s.Gamma,
		Balance:    s.Balance,
		MirrorX:    s.MirrorX,
		MirrorY:    s.MirrorY,
		Rotation:   s.Rotation,
	}
}
