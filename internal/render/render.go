// Package render turns diagram source into sanitized SVG markup with known
// intrinsic dimensions. Drawing is delegated to an Engine and cleaning to a
// Sanitizer; this package only owns the glue between them.
package render

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// DiagramID is the element id handed to the engine for the rendered svg.
const DiagramID = "diagram"

// Engine draws diagram text as SVG markup. It returns an error for
// malformed diagram text.
type Engine interface {
	Render(ctx context.Context, id, text string) (string, error)
}

// Sanitizer strips script-executing constructs from markup.
type Sanitizer interface {
	Sanitize(markup string) string
}

// DiagramSource is one render request.
type DiagramSource struct {
	Text  string
	Width float64
}

// Result is sanitized markup plus the viewBox dimensions of its svg.
type Result struct {
	Markup string
	Width  float64
	Height float64
}

// RenderError wraps any failure to turn source into displayable markup.
type RenderError struct {
	Err error
}

func (e *RenderError) Error() string {
	return e.Err.Error()
}

func (e *RenderError) Unwrap() error {
	return e.Err
}

type Renderer struct {
	engine    Engine
	sanitizer Sanitizer
	log       zerolog.Logger
}

func NewRenderer(engine Engine, sanitizer Sanitizer, logger *zerolog.Logger) *Renderer {
	if logger == nil {
		l := log.Logger
		logger = &l
	}
	return &Renderer{
		engine:    engine,
		sanitizer: sanitizer,
		log:       logger.With().Str("component", "render").Logger(),
	}
}

func (r *Renderer) Render(ctx context.Context, src DiagramSource) (Result, error) {
	if strings.TrimSpace(src.Text) == "" {
		return Result{}, &RenderError{Err: fmt.Errorf("render: empty diagram definition")}
	}
	raw, err := r.engine.Render(ctx, DiagramID, src.Text)
	if err != nil {
		return Result{}, &RenderError{Err: err}
	}
	clean := raw
	if r.sanitizer != nil {
		clean = r.sanitizer.Sanitize(raw)
	}
	markup, box, err := fitSVG(clean)
	if err != nil {
		return Result{}, &RenderError{Err: err}
	}
	r.log.Debug().
		Float64("viewbox_width", box.Width).
		Float64("viewbox_height", box.Height).
		Float64("requested_width", src.Width).
		Msg("diagram rendered")
	return Result{Markup: markup, Width: box.Width, Height: box.Height}, nil
}
