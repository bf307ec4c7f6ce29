package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/danmuck/renderframe/internal/bridge"
	"github.com/danmuck/renderframe/internal/config"
)

// framed config.toml key mapping to bridge settings.
type fileConfig struct {
	Addr                  string     `toml:"addr"`
	Name                  string     `toml:"name"`
	CorsOrigins           []string   `toml:"cors_origins"`
	HostSuffix            string     `toml:"host_suffix"`
	Format                string     `toml:"format"`
	DocsHostname          string     `toml:"docs_hostname"`
	RenderURL             string     `toml:"render_url"`
	ClientTimeoutAttempts int        `toml:"client_timeout_attempts"`
	LoadTimeout           string     `toml:"load_timeout"`
	Debounce              string     `toml:"debounce"`
	Width                 float64    `toml:"width"`
	OutboxCapacity        int        `toml:"outbox_capacity"`
	AuthToken             string     `toml:"auth_token"`
	Engine                engineFile `toml:"engine"`
}

type engineFile struct {
	Binary  string `toml:"binary"`
	Theme   string `toml:"theme"`
	Timeout string `toml:"timeout"`
}

// loadServiceConfig overlays path onto bridge.DefaultConfig.
func loadServiceConfig(path string) (bridge.Config, error) {
	cfg := bridge.DefaultConfig()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return bridge.Config{}, fmt.Errorf("load framed config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return bridge.Config{}, fmt.Errorf("load framed config: unknown key %q", undecoded[0].String())
	}

	if meta.IsDefined("addr") {
		cfg.Addr = strings.TrimSpace(raw.Addr)
	}
	if meta.IsDefined("name") {
		cfg.Name = strings.TrimSpace(raw.Name)
	}
	if meta.IsDefined("cors_origins") {
		cfg.CorsOrigins = raw.CorsOrigins
	}
	if meta.IsDefined("host_suffix") {
		cfg.HostSuffix = strings.TrimSpace(raw.HostSuffix)
	}
	if meta.IsDefined("format") {
		cfg.Format = strings.TrimSpace(raw.Format)
	}
	if meta.IsDefined("docs_hostname") {
		cfg.DocsHostname = strings.TrimSpace(raw.DocsHostname)
	}
	if meta.IsDefined("render_url") {
		cfg.RenderURL = strings.TrimSpace(raw.RenderURL)
	}
	if meta.IsDefined("client_timeout_attempts") {
		cfg.ClientTimeoutAttempts = raw.ClientTimeoutAttempts
	}
	if meta.IsDefined("load_timeout") {
		if cfg.LoadTimeout, err = parseDuration("load_timeout", raw.LoadTimeout); err != nil {
			return bridge.Config{}, err
		}
	}
	if meta.IsDefined("debounce") {
		if cfg.Debounce, err = parseDuration("debounce", raw.Debounce); err != nil {
			return bridge.Config{}, err
		}
	}
	if meta.IsDefined("width") {
		cfg.Width = raw.Width
	}
	if meta.IsDefined("outbox_capacity") {
		cfg.OutboxCapacity = raw.OutboxCapacity
	}
	if meta.IsDefined("auth_token") {
		cfg.AuthToken = strings.TrimSpace(raw.AuthToken)
	}
	if meta.IsDefined("engine", "binary") {
		cfg.Engine.Binary = strings.TrimSpace(raw.Engine.Binary)
	}
	if meta.IsDefined("engine", "theme") {
		cfg.Engine.Theme = strings.TrimSpace(raw.Engine.Theme)
	}
	if meta.IsDefined("engine", "timeout") {
		if cfg.Engine.Timeout, err = parseDuration("engine.timeout", raw.Engine.Timeout); err != nil {
			return bridge.Config{}, err
		}
	}

	if err := validateServiceConfig(cfg); err != nil {
		return bridge.Config{}, err
	}
	return cfg, nil
}

func validateServiceConfig(cfg bridge.Config) error {
	if strings.TrimSpace(cfg.Addr) == "" {
		return fmt.Errorf("load framed config: addr is required")
	}
	if strings.TrimSpace(cfg.HostSuffix) == "" {
		return fmt.Errorf("load framed config: host_suffix is required")
	}
	if err := config.ValidateFormat(cfg.Format); err != nil {
		return fmt.Errorf("load framed config: %w", err)
	}
	if cfg.ClientTimeoutAttempts < 1 {
		return fmt.Errorf("load framed config: client_timeout_attempts must be positive")
	}
	if cfg.Width <= 0 {
		return fmt.Errorf("load framed config: width must be positive")
	}
	if cfg.Engine.Theme != "default" && cfg.Engine.Theme != "dark" {
		return fmt.Errorf("load framed config: unsupported engine theme %q (expected default or dark)", cfg.Engine.Theme)
	}
	return nil
}

func parseDuration(key, raw string) (time.Duration, error) {
	d, err := time.ParseDuration(strings.TrimSpace(raw))
	if err != nil {
		return 0, fmt.Errorf("load framed config: %s: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("load framed config: %s must be positive", key)
	}
	return d, nil
}
