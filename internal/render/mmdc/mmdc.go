// Package mmdc renders mermaid diagrams by running mermaid-cli.
package mmdc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/danmuck/renderframe/internal/tools"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const DefaultBinary = "mmdc"

var ErrBinaryRequired = errors.New("mmdc: binary required")

type Config struct {
	Binary string
	// Theme is "default" or "dark".
	Theme   string
	Timeout time.Duration
	Runner  tools.CommandRunner
	Logger  *zerolog.Logger
}

func DefaultConfig() Config {
	return Config{
		Binary:  DefaultBinary,
		Theme:   "default",
		Timeout: 20 * time.Second,
	}
}

// Engine implements render.Engine on top of the mmdc command.
type Engine struct {
	cfg    Config
	config []byte
	log    zerolog.Logger
}

func New(cfg Config) (*Engine, error) {
	if strings.TrimSpace(cfg.Binary) == "" {
		return nil, ErrBinaryRequired
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultConfig().Timeout
	}
	if cfg.Runner == nil {
		cfg.Runner = tools.ExecRunner{}
	}
	if cfg.Logger == nil {
		l := log.Logger
		cfg.Logger = &l
	}
	raw, err := json.Marshal(mermaidConfig(cfg.Theme))
	if err != nil {
		return nil, err
	}
	return &Engine{
		cfg:    cfg,
		config: raw,
		log:    cfg.Logger.With().Str("component", "mmdc").Logger(),
	}, nil
}

// mermaidConfig locks down what a diagram may change about rendering.
func mermaidConfig(theme string) map[string]any {
	if theme != "dark" {
		theme = "default"
	}
	return map[string]any{
		"startOnLoad":   false,
		"secure":        []string{"secure", "securityLevel", "startOnLoad", "maxTextSize"},
		"securityLevel": "strict",
		"theme":         theme,
		"flowchart":     map[string]any{"diagramPadding": 48},
		"gantt":         map[string]any{"useWidth": 1200},
		"pie":           map[string]any{"useWidth": 1200},
		"sequence":      map[string]any{"diagramMarginY": 40},
	}
}

func (e *Engine) Render(ctx context.Context, id, text string) (string, error) {
	dir, err := os.MkdirTemp("", "renderframe-mmdc-")
	if err != nil {
		return "", err
	}
	defer os.RemoveAll(dir)

	in := filepath.Join(dir, "input.mmd")
	out := filepath.Join(dir, "output.svg")
	cfgPath := filepath.Join(dir, "config.json")
	if err := os.WriteFile(in, []byte(text), 0o600); err != nil {
		return "", err
	}
	if err := os.WriteFile(cfgPath, e.config, 0o600); err != nil {
		return "", err
	}

	runCtx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()
	start := time.Now()
	_, stderr, code, err := e.cfg.Runner.Run(runCtx, e.cfg.Binary,
		"--quiet",
		"--input", in,
		"--output", out,
		"--configFile", cfgPath,
		"--svgId", id,
	)
	if err != nil {
		msg := strings.TrimSpace(string(stderr))
		if msg == "" {
			msg = err.Error()
		}
		e.log.Debug().Err(err).Int32("exit_code", code).Str("stderr", msg).Msg("mmdc failed")
		return "", fmt.Errorf("mmdc: %s", msg)
	}
	svg, err := os.ReadFile(out)
	if err != nil {
		return "", fmt.Errorf("mmdc: read output: %w", err)
	}
	e.log.Debug().Dur("elapsed", time.Since(start)).Int("bytes", len(svg)).Msg("mmdc rendered")
	return string(svg), nil
}
