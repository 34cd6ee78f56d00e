package main

import (
	_ "embed"
	"fmt"
	"os"
	"sync"
	"time"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Config holds every tunable of the server
type Config struct {
	Server    ServerConfig             `yaml:"server"`
	Log       LogConfig                `yaml:"log"`
	Playfield PlayfieldConfig          `yaml:"playfield"`
	Player    PlayerConfig             `yaml:"player"`
	Variants  map[string]VariantConfig `yaml:"variants"`
	Telemetry TelemetryConfig          `yaml:"telemetry"`
}

// ServerConfig holds network and storage settings
type ServerConfig struct {
	Addr           string        `yaml:"addr"`
	ClientDir      string        `yaml:"client_dir"`
	PublicURL      string        `yaml:"public_url"` // base for join links and QR codes
	DBPath         string        `yaml:"db_path"`    // empty disables persistence
	MaxSessions    int           `yaml:"max_sessions"`
	IdleTimeout    time.Duration `yaml:"idle_timeout"`
	DefaultVariant string        `yaml:"default_variant"`
}

// LogConfig selects the log level and output format
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // text or json
}

// PlayfieldConfig sizes the stage
type PlayfieldConfig struct {
	Width      float64 `yaml:"width"`
	Height     float64 `yaml:"height"`
	CullMargin float64 `yaml:"cull_margin"`
}

// PlayerConfig tunes the pilot's avatar
type PlayerConfig struct {
	Speed float64 `yaml:"speed"` // px/s
	Size  float64 `yaml:"size"`  // 0 keeps the variant's size
}

// VariantConfig overrides a built-in variant. Nil fields keep the built-in
// value.
type VariantConfig struct {
	Health             *int     `yaml:"health"`
	IntroFrames        *int     `yaml:"intro_frames"`
	ReducedDamageEnd   *int     `yaml:"reduced_damage_end"`
	ReducedDamageScale *float64 `yaml:"reduced_damage_scale"`
	RingStagger        *int     `yaml:"ring_stagger"`
}

// TelemetryConfig controls the headless bench output
type TelemetryConfig struct {
	Dir            string `yaml:"dir"`
	IntervalFrames int    `yaml:"interval_frames"`
}

// LoadConfig reads the embedded defaults and overlays the file at path, if
// any. Only keys present in the file replace defaults.
func LoadConfig(path string) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(defaultsYAML, cfg); err != nil {
		return nil, fmt.Errorf("parsing embedded defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading config file: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.Playfield.Width <= 0 || c.Playfield.Height <= 0 {
		return fmt.Errorf("playfield must have a positive size, got %vx%v", c.Playfield.Width, c.Playfield.Height)
	}
	if c.Playfield.CullMargin < 0 {
		return fmt.Errorf("playfield cull margin must not be negative")
	}
	if c.Player.Speed <= 0 {
		return fmt.Errorf("player speed must be positive")
	}
	for name, o := range c.Variants {
		if _, ok := variants[name]; !ok {
			return fmt.Errorf("variants: %w: %q", ErrUnknownVariant, name)
		}
		if o.Health != nil && *o.Health <= 0 {
			return fmt.Errorf("variants.%s.health must be positive", name)
		}
		if o.ReducedDamageScale != nil && *o.ReducedDamageScale < 0 {
			return fmt.Errorf("variants.%s.reduced_damage_scale must not be negative", name)
		}
	}
	if c.Server.DefaultVariant != "" {
		if _, ok := variants[c.Server.DefaultVariant]; !ok {
			return fmt.Errorf("server.default_variant: %w: %q", ErrUnknownVariant, c.Server.DefaultVariant)
		}
	}
	return nil
}

// Field returns the configured stage
func (c *Config) Field() Playfield {
	return Playfield{
		Width:  c.Playfield.Width,
		Height: c.Playfield.Height,
		Margin: c.Playfield.CullMargin,
	}
}

func (o VariantConfig) apply(v Variant) Variant {
	if o.Health != nil {
		v.Health = *o.Health
	}
	if o.IntroFrames != nil {
		v.IntroFrames = *o.IntroFrames
	}
	if o.ReducedDamageEnd != nil {
		v.ReducedDamageEnd = *o.ReducedDamageEnd
	}
	if o.ReducedDamageScale != nil {
		v.ReducedDamageScale = *o.ReducedDamageScale
	}
	if o.RingStagger != nil {
		v.RingStagger = *o.RingStagger
	}
	return v
}

// ConfigStore hands out the current config and swaps in reloaded ones.
// Sessions read it once when they are created.
type ConfigStore struct {
	mu   sync.RWMutex
	cfg  *Config
	path string
}

// NewConfigStore wraps cfg, which was loaded from path
func NewConfigStore(cfg *Config, path string) *ConfigStore {
	return &ConfigStore{cfg: cfg, path: path}
}

// Get returns the current config
func (s *ConfigStore) Get() *Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Reload re-reads the config file. On error the current config is kept.
func (s *ConfigStore) Reload() error {
	cfg, err := LoadConfig(s.path)
	if err != nil {
		return err
	}
	s.mu.Lock()
	s.cfg = cfg
	s.mu.Unlock()
	return nil
}

// Path returns the file the store reloads from
func (s *ConfigStore) Path() string { return s.path }
