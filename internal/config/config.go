package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

const (
	DefaultStatsName    = "renderframe-stats"
	DefaultStatsAddr    = ":9300"
	DefaultStatsHistory = 256
)

// StatsConfig configures the beacon collector.
type StatsConfig struct {
	Name        string   `toml:"name"`
	Addr        string   `toml:"addr"`
	CorsOrigins []string `toml:"cors_origins"`
	// Formats restricts accepted beacon formats. Empty accepts any.
	Formats []string `toml:"formats"`
	// History is how many recent timing reports are kept per origin.
	History int `toml:"history"`
}

func LoadStatsConfig(path string) (StatsConfig, error) {
	var cfg StatsConfig
	if err := loadToml(path, &cfg); err != nil {
		return StatsConfig{}, err
	}
	cfg = cfg.WithDefaults()
	if err := ValidateStatsConfig(cfg); err != nil {
		return StatsConfig{}, err
	}
	return cfg, nil
}

func (c StatsConfig) WithDefaults() StatsConfig {
	if c.Name == "" {
		c.Name = DefaultStatsName
	}
	if c.Addr == "" {
		c.Addr = DefaultStatsAddr
	}
	if c.History == 0 {
		c.History = DefaultStatsHistory
	}
	return c
}

func loadToml(path string, out any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config load failed (%s): %w", path, err)
	}
	if err := toml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("config parse failed (%s): %w", path, err)
	}
	return nil
}

func ValidateStatsConfig(cfg StatsConfig) error {
	if strings.TrimSpace(cfg.Name) == "" {
		return fmt.Errorf("stats config missing name")
	}
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("stats config missing addr")
	}
	if cfg.History < 1 {
		return fmt.Errorf("stats config history must be positive")
	}
	for i, format := range cfg.Formats {
		if err := ValidateFormat(format); err != nil {
			return fmt.Errorf("formats[%d] invalid: %w", i, err)
		}
	}
	return nil
}

// ValidateFormat checks that format is usable as a single URL path segment.
func ValidateFormat(format string) error {
	trimmed := strings.TrimSpace(format)
	if trimmed == "" {
		return fmt.Errorf("format is required")
	}
	if trimmed != format || strings.ContainsAny(format, "/?#") {
		return fmt.Errorf("format %q is not a path segment", format)
	}
	return nil
}
