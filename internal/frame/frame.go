// Package frame assembles one renderer frame: the origin guard, the status
// channel to the host, the viewer and the content loader.
package frame

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/danmuck/renderframe/internal/clock"
	"github.com/danmuck/renderframe/internal/loader"
	"github.com/danmuck/renderframe/internal/protocol"
	"github.com/danmuck/renderframe/internal/render"
	"github.com/danmuck/renderframe/internal/status"
	"github.com/danmuck/renderframe/internal/viewer"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultHostSuffix = "github.localhost"
	DefaultFormat     = "mermaid"
	DefaultWidth      = 1012
)

// Telemetry receives timing reports and give-up beacons.
type Telemetry interface {
	status.TimingSink
	loader.GiveUpSink
}

type Config struct {
	Identity   string
	HostSuffix string
	Format     string
	// Host is nil when the frame is not embedded in a parent.
	Host      status.Host
	Telemetry Telemetry
	Renderer  viewer.Renderer
	// Width is the initial container width.
	Width float64
	// OffsetX and OffsetY place the container within the frame document and
	// are folded into every reported height.
	OffsetX               float64
	OffsetY               float64
	Selector              string
	DocsHostname          string
	ClientTimeoutAttempts int
	LoadTimeout           time.Duration
	Debounce              time.Duration
	HTTPClient            *http.Client
	Clock                 clock.Clock
	Logger                *zerolog.Logger
}

func (c Config) WithDefaults() Config {
	if strings.TrimSpace(c.HostSuffix) == "" {
		c.HostSuffix = DefaultHostSuffix
	}
	if strings.TrimSpace(c.Format) == "" {
		c.Format = DefaultFormat
	}
	if c.Width <= 0 {
		c.Width = DefaultWidth
	}
	if strings.TrimSpace(c.Selector) == "" {
		c.Selector = viewer.DefaultSelector
	}
	if c.ClientTimeoutAttempts <= 0 {
		c.ClientTimeoutAttempts = loader.DefaultAttempts
	}
	if c.LoadTimeout <= 0 {
		c.LoadTimeout = loader.DefaultTimeout
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

type Frame struct {
	cfg     Config
	log     zerolog.Logger
	guard   *Guard
	status  *status.Channel
	pane    *viewer.Pane
	viewer  *viewer.Viewer
	content *viewer.Signal
	loader  *loader.Loader

	mu       sync.Mutex
	embedded bool
}

func New(cfg Config) (*Frame, error) {
	cfg = cfg.WithDefaults()
	if cfg.Renderer == nil {
		return nil, fmt.Errorf("frame: renderer is required")
	}
	logger := cfg.Logger.With().Str("identity", cfg.Identity).Str("format", cfg.Format).Logger()

	var timing status.TimingSink
	var giveUp loader.GiveUpSink
	if cfg.Telemetry != nil {
		timing, giveUp = cfg.Telemetry, cfg.Telemetry
	}

	f := &Frame{
		cfg:      cfg,
		log:      logger.With().Str("component", "frame").Logger(),
		guard:    NewGuard(cfg.HostSuffix, cfg.Identity, &logger),
		pane:     viewer.NewPane(cfg.Width),
		content:  viewer.NewSignal(),
		embedded: true,
	}
	f.pane.SetOffset(cfg.OffsetX, cfg.OffsetY)
	f.status = status.NewChannel(status.Config{
		Identity: cfg.Identity,
		Host:     cfg.Host,
		Timing:   timing,
		Clock:    cfg.Clock,
		Logger:   &logger,
	})
	v, err := viewer.New(viewer.StaticDocument{cfg.Selector: f.pane}, cfg.Renderer, f.status, viewer.Config{
		Selector:     cfg.Selector,
		DocsHostname: cfg.DocsHostname,
		Debounce:     cfg.Debounce,
		Content:      f.content,
		Clock:        cfg.Clock,
		Logger:       &logger,
	})
	if err != nil {
		return nil, err
	}
	f.viewer = v
	f.loader = loader.New(loader.Config{
		Client:  cfg.HTTPClient,
		Emitter: f.status,
		GiveUp:  giveUp,
		Clock:   cfg.Clock,
		Logger:  &logger,
	})
	return f, nil
}

// Start begins the hello handshake when the frame has a parent.
func (f *Frame) Start() {
	if !f.status.HasParent() {
		f.log.Debug().Msg("no parent frame, skipping handshake")
		return
	}
	f.status.SendInitial(protocol.KindHello, status.DefaultInitialAttempts, status.DefaultInitialInterval)
}

// HandleMessage processes one message posted by the host. It reports
// whether the message was accepted; rejected messages change nothing.
func (f *Frame) HandleMessage(origin string, data []byte) bool {
	msg, err := protocol.DecodeInbound(data)
	if err != nil {
		f.log.Debug().Err(err).Msg("dropping undecodable message")
		return false
	}
	if !f.guard.Accept(origin, msg) {
		return false
	}

	switch msg.Type {
	case protocol.TypeTiming:
		return f.handleTiming(msg)
	case protocol.TypeCommand:
		cmd, err := protocol.DecodeCommand(msg.Body)
		if err != nil {
			f.log.Debug().Err(err).Msg("invalid command")
			return false
		}
		f.handleCommand(cmd)
		return true
	default:
		f.log.Debug().Err(protocol.ErrUnknownType).Str("type", msg.Type).Msg("dropping message")
		return false
	}
}

func (f *Frame) handleTiming(msg protocol.Inbound) bool {
	timing, err := protocol.DecodeTiming(msg.Body)
	if err != nil {
		f.log.Debug().Err(err).Msg("malformed timing message")
		return false
	}
	if timing.Format != f.cfg.Format {
		f.log.Debug().Str("got", timing.Format).Str("want", f.cfg.Format).Msg("timing format mismatch")
		return false
	}
	if f.cfg.Telemetry != nil {
		f.cfg.Telemetry.SubmitTiming("remote", timing.Timing)
	}
	return true
}

func (f *Frame) handleCommand(cmd protocol.Command) {
	switch c := cmd.(type) {
	case protocol.Branding:
		f.mu.Lock()
		f.embedded = false
		f.mu.Unlock()
	case protocol.Ack:
		f.status.Acknowledge()
	case protocol.Markdown:
		if c.Width > 0 {
			f.pane.SetWidth(c.Width)
		}
		f.content.Publish(render.DiagramSource{Text: render.DecodeHTML(c.Data), Width: c.Width})
	case protocol.ContainerSize:
		if c.Width > 0 {
			f.pane.SetWidth(c.Width)
		}
		f.viewer.Resize()
	}
}

// LoadSource fetches diagram text from url and renders it at width, or at
// the container width when width is zero.
func (f *Frame) LoadSource(ctx context.Context, url string, width float64) error {
	payload, err := f.loader.Load(ctx, url, loader.Options{
		Attempts: f.cfg.ClientTimeoutAttempts,
		Timeout:  f.cfg.LoadTimeout,
	})
	if err != nil {
		return err
	}
	text := payload.Text
	if payload.Kind == loader.PayloadBinary {
		text = string(payload.Binary)
	}
	if width > 0 {
		f.pane.SetWidth(width)
	}
	f.content.Publish(render.DiagramSource{Text: text, Width: width})
	return nil
}

// Control applies one pan/zoom control to the view.
func (f *Frame) Control(c viewer.Control) (viewer.Transform, error) {
	return f.viewer.PanZoom().Dispatch(c)
}

// View is a snapshot of what the frame currently displays.
type View struct {
	Identity string              `json:"identity"`
	State    string              `json:"state"`
	Height   float64             `json:"height"`
	Error    string              `json:"error,omitempty"`
	Embedded bool                `json:"embedded"`
	Acked    bool                `json:"acked"`
	Pane     viewer.PaneSnapshot `json:"pane"`
}

func (f *Frame) View() View {
	f.mu.Lock()
	embedded := f.embedded
	f.mu.Unlock()
	return View{
		Identity: f.cfg.Identity,
		State:    f.viewer.State().String(),
		Height:   f.viewer.Height(),
		Error:    f.viewer.LastError(),
		Embedded: embedded,
		Acked:    f.status.Acked(),
		Pane:     f.pane.Snapshot(),
	}
}

func (f *Frame) Identity() string {
	return f.cfg.Identity
}

func (f *Frame) Status() *status.Channel {
	return f.status
}

func (f *Frame) Viewer() *viewer.Viewer {
	return f.viewer
}

func (f *Frame) Embedded() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.embedded
}

// Close stops the handshake and any pending resize.
func (f *Frame) Close() {
	f.status.Close()
	f.viewer.Close()
}
