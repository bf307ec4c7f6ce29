package viewer

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/renderframe/internal/clock"
	"github.com/danmuck/renderframe/internal/protocol"
	"github.com/danmuck/renderframe/internal/render"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"golang.org/x/net/html"
)

const (
	DefaultSelector      = ".mermaid-view"
	DefaultDebounce      = 200 * time.Millisecond
	DefaultRenderTimeout = 30 * time.Second
	DefaultDocsHostname  = "https://docs.github.com"
	DocsLinkPath         = "/get-started/writing-on-github/working-with-advanced-formatting/creating-diagrams#creating-mermaid-diagrams"
)

type State int

const (
	StateUninitialized State = iota
	StateAwaitingContent
	StateRendering
	StateReady
	StateError
)

func (s State) String() string {
	switch s {
	case StateAwaitingContent:
		return "awaiting_content"
	case StateRendering:
		return "rendering"
	case StateReady:
		return "ready"
	case StateError:
		return "error"
	default:
		return "uninitialized"
	}
}

// Renderer turns a diagram source into displayable output.
type Renderer interface {
	Render(ctx context.Context, src render.DiagramSource) (render.Result, error)
}

// Reporter receives lifecycle statuses for the host.
type Reporter interface {
	Emit(kind protocol.Kind, payload map[string]any)
}

type Config struct {
	Selector      string
	DocsHostname  string
	Debounce      time.Duration
	RenderTimeout time.Duration
	// Content, when set, is subscribed to at construction.
	Content *Signal
	Clock   clock.Clock
	Logger  *zerolog.Logger
}

func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.Selector) == "" {
		c.Selector = DefaultSelector
	}
	if strings.TrimSpace(c.DocsHostname) == "" {
		c.DocsHostname = DefaultDocsHostname
	}
	if c.Debounce <= 0 {
		c.Debounce = DefaultDebounce
	}
	if c.RenderTimeout <= 0 {
		c.RenderTimeout = DefaultRenderTimeout
	}
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Logger == nil {
		l := log.Logger
		c.Logger = &l
	}
	return c
}

// Viewer drives one container through AwaitingContent -> Rendering ->
// Ready | Error. Render passes are serialized.
type Viewer struct {
	cfg       Config
	log       zerolog.Logger
	container Container
	renderer  Renderer
	reporter  Reporter
	panZoom   *PanZoom

	pass sync.Mutex

	mu        sync.Mutex
	state     State
	source    render.DiagramSource
	hasSource bool
	width     float64
	height    float64
	lastErr   string
	debounce  *clock.Timer
	// debounceGen identifies the armed debounce timer. A callback whose
	// generation is stale was superseded or cancelled and does nothing.
	debounceGen uint64
}

func New(doc Document, renderer Renderer, reporter Reporter, cfg Config) (*Viewer, error) {
	cfg = cfg.WithDefaults()
	container, ok := doc.Lookup(cfg.Selector)
	if !ok || container == nil {
		return nil, &TargetMissingError{Selector: cfg.Selector}
	}
	v := &Viewer{
		cfg:       cfg,
		log:       cfg.Logger.With().Str("component", "viewer").Logger(),
		container: container,
		renderer:  renderer,
		reporter:  reporter,
		state:     StateAwaitingContent,
	}
	v.panZoom = NewPanZoom(container.ApplyTransform)
	if cfg.Content != nil {
		cfg.Content.Subscribe(v.OnContent)
	}
	return v, nil
}

func (v *Viewer) PanZoom() *PanZoom {
	return v.panZoom
}

func (v *Viewer) State() State {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.state
}

// Height is the last height reported to the host.
func (v *Viewer) Height() float64 {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.height
}

// LastError is the message shown for the most recent failed pass.
func (v *Viewer) LastError() string {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.lastErr
}

// OnContent renders src. Failures are reported and shown, never returned.
func (v *Viewer) OnContent(src render.DiagramSource) {
	v.pass.Lock()
	defer v.pass.Unlock()

	width := src.Width
	if width <= 0 {
		width = v.container.Width()
	}
	v.mu.Lock()
	v.source = src
	v.hasSource = true
	v.state = StateRendering
	v.mu.Unlock()

	height, err := v.renderPass(src.Text, width)
	if err != nil {
		v.fail(err)
		return
	}
	v.succeed(height)
	v.reporter.Emit(protocol.KindReady, map[string]any{"height": height})
}

// Resize schedules a re-render once resize signals have been quiet for the
// debounce window.
func (v *Viewer) Resize() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.debounce != nil {
		v.debounce.Stop()
	}
	v.debounceGen++
	gen := v.debounceGen
	v.debounce = v.cfg.Clock.AfterFunc(v.cfg.Debounce, func() { v.resizeSettled(gen) })
}

func (v *Viewer) resizeSettled(gen uint64) {
	v.mu.Lock()
	if gen != v.debounceGen {
		v.mu.Unlock()
		return
	}
	v.debounce = nil
	hasSource := v.hasSource
	text := v.source.Text
	v.mu.Unlock()
	if !hasSource {
		return
	}

	v.pass.Lock()
	defer v.pass.Unlock()

	newWidth := v.container.Width()
	v.mu.Lock()
	unchanged := newWidth == v.width
	v.mu.Unlock()
	if unchanged {
		v.log.Debug().Float64("width", newWidth).Msg("container width unchanged, skipping render")
		return
	}

	v.mu.Lock()
	v.state = StateRendering
	v.mu.Unlock()
	height, err := v.renderPass(text, newWidth)
	if err != nil {
		v.fail(err)
		return
	}
	v.succeed(height)
	v.reporter.Emit(protocol.KindResize, map[string]any{"height": height})
}

// Close cancels a pending debounced resize.
func (v *Viewer) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.debounceGen++
	if v.debounce != nil {
		v.debounce.Stop()
		v.debounce = nil
	}
}

func (v *Viewer) renderPass(text string, width float64) (float64, error) {
	ctx, cancel := context.WithTimeout(context.Background(), v.cfg.RenderTimeout)
	defer cancel()

	v.mu.Lock()
	v.width = width
	v.mu.Unlock()

	res, err := v.renderer.Render(ctx, render.DiagramSource{Text: text, Width: width})
	if err != nil {
		return 0, err
	}
	v.container.Replace(res.Markup)
	v.panZoom.Reapply()
	x, y := v.container.Offset()
	return ComputeHeight(res, width, x, y), nil
}

func (v *Viewer) succeed(height float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.state = StateReady
	v.height = height
	v.lastErr = ""
}

func (v *Viewer) fail(err error) {
	docs := v.docsURL()
	msg := fmt.Sprintf("%s\n\nFor more information, see %s", strings.TrimSpace(err.Error()), docs)

	v.mu.Lock()
	v.state = StateError
	v.lastErr = msg
	v.mu.Unlock()

	v.log.Warn().Err(err).Msg("diagram render failed")
	v.container.Replace(errorMarkup(err.Error(), docs))
	v.reporter.Emit(protocol.KindError, map[string]any{"message": msg})
}

func (v *Viewer) docsURL() string {
	base, err := url.Parse(v.cfg.DocsHostname)
	if err != nil {
		base, _ = url.Parse(DefaultDocsHostname)
	}
	ref, _ := url.Parse(DocsLinkPath)
	return base.ResolveReference(ref).String()
}

func errorMarkup(message, docs string) string {
	return fmt.Sprintf(
		`<div class="render-error"><p>%s</p><p>For more information, see <a href="%s">%s</a></p></div>`,
		html.EscapeString(message), html.EscapeString(docs), html.EscapeString(docs),
	)
}
