package status

import (
	"sync"
	"time"

	"github.com/danmuck/renderframe/internal/clock"
	"github.com/danmuck/renderframe/internal/protocol"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

const (
	DefaultInitialAttempts = 10
	DefaultInitialInterval = time.Second
)

// Host receives outbound status messages. Delivery is fire-and-forget and
// must not block.
type Host interface {
	PostMessage(msg protocol.Outbound)
}

// TimingSink receives timing reports. Implementations must not block.
type TimingSink interface {
	SubmitTiming(origin string, timing map[string]float64)
}

// Message is one recorded status.
type Message struct {
	Kind    protocol.Kind
	Payload map[string]any
	When    time.Time
	Sent    bool
}

type Config struct {
	Identity string
	// Host is nil when the frame has no parent; delivery is then a no-op.
	Host   Host
	Timing TimingSink
	Clock  clock.Clock
	Logger *zerolog.Logger
}

func (c Config) WithDefaults() Config {
	if c.Clock == nil {
		c.Clock = clock.Real()
	}
	if c.Logger == nil {
		l := log.Logger
		c.Logger = &l
	}
	return c
}

// Channel is the single record of what this frame has told its host.
type Channel struct {
	mu           sync.Mutex
	cfg          Config
	log          zerolog.Logger
	acked        bool
	messages     []Message
	initialTimer *clock.Timer
}

func NewChannel(cfg Config) *Channel {
	cfg = cfg.WithDefaults()
	c := &Channel{
		cfg: cfg,
		log: cfg.Logger.With().Str("component", "status").Str("identity", cfg.Identity).Logger(),
	}
	// Construction time is kept for timing reports only; it is never posted.
	c.messages = append(c.messages, Message{
		Kind: protocol.KindConstructor,
		When: cfg.Clock.Now(),
		Sent: true,
	})
	return c
}

func (c *Channel) HasParent() bool {
	return c.cfg.Host != nil
}

func (c *Channel) Identity() string {
	return c.cfg.Identity
}

// Emit records kind and posts it, or holds it until acknowledgment.
func (c *Channel) Emit(kind protocol.Kind, payload map[string]any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.emitLocked(kind, payload)
}

func (c *Channel) emitLocked(kind protocol.Kind, payload map[string]any) {
	if !kind.Valid() {
		c.log.Warn().Str("kind", string(kind)).Msg("dropping unknown status kind")
		return
	}
	now := c.cfg.Clock.Now()
	prev, seen := c.findLocked(kind)
	if seen && kind != protocol.KindHello && kind != protocol.KindResize {
		c.log.Debug().
			Str("kind", string(kind)).
			Dur("ago", now.Sub(prev.When)).
			Msg("status already set")
		return
	}
	if payload == nil {
		payload = map[string]any{}
	}

	idx := -1
	if !seen || kind != protocol.KindHello {
		c.messages = append(c.messages, Message{Kind: kind, Payload: payload, When: now})
		idx = len(c.messages) - 1
	}

	if kind == protocol.KindReady {
		c.reportReadyLocked()
	}

	if c.requireAckLocked(kind) {
		return
	}
	if idx >= 0 {
		c.messages[idx].Sent = true
	}
	c.postLocked(kind, payload)
}

// SendInitial emits kind now and again every interval until the host
// acknowledges or remaining attempts run out.
func (c *Channel) SendInitial(kind protocol.Kind, remaining int, interval time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sendInitialLocked(kind, remaining, interval)
}

func (c *Channel) sendInitialLocked(kind protocol.Kind, remaining int, interval time.Duration) {
	c.stopInitialLocked()
	if c.acked || remaining < 1 {
		return
	}
	c.initialTimer = c.cfg.Clock.AfterFunc(interval, func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.sendInitialLocked(kind, remaining-1, interval)
	})
	c.log.Debug().
		Str("kind", string(kind)).
		Int("remaining", remaining).
		Dur("interval", interval).
		Msg("sending initial status until acknowledged")
	c.emitLocked(kind, nil)
}

// Acknowledge marks the host ready and flushes held messages in insertion
// order. Repeated acknowledgments are ignored.
func (c *Channel) Acknowledge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopInitialLocked()
	if c.acked {
		return
	}
	c.acked = true
	c.log.Debug().Msg("acknowledged, sending held messages")
	for i := range c.messages {
		if c.messages[i].Sent {
			continue
		}
		c.messages[i].Sent = true
		c.postLocked(c.messages[i].Kind, c.messages[i].Payload)
	}
}

func (c *Channel) Acked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.acked
}

// InitialPending reports whether the initial-status retry timer is armed.
func (c *Channel) InitialPending() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialTimer != nil
}

// Messages returns a copy of the recorded sequence.
func (c *Channel) Messages() []Message {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// Close stops the initial-status timer.
func (c *Channel) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stopInitialLocked()
}

func (c *Channel) stopInitialLocked() {
	if c.initialTimer == nil {
		return
	}
	c.initialTimer.Stop()
	c.initialTimer = nil
}

func (c *Channel) requireAckLocked(kind protocol.Kind) bool {
	return !c.acked && kind != protocol.KindHello
}

func (c *Channel) findLocked(kind protocol.Kind) (Message, bool) {
	for _, msg := range c.messages {
		if msg.Kind == kind {
			return msg, true
		}
	}
	return Message{}, false
}

// reportReadyLocked submits the local timing map; later entries of a kind
// overwrite earlier ones.
func (c *Channel) reportReadyLocked() {
	if c.cfg.Timing == nil {
		return
	}
	timing := make(map[string]float64, len(c.messages))
	for _, msg := range c.messages {
		timing[string(msg.Kind)] = float64(msg.When.UnixMilli())
	}
	c.cfg.Timing.SubmitTiming("local", timing)
}

func (c *Channel) postLocked(kind protocol.Kind, payload map[string]any) {
	msg := protocol.NewStatus(c.cfg.Identity, kind, payload)
	if c.cfg.Host == nil {
		c.log.Debug().Str("kind", string(kind)).Msg("no parent frame, dropping status")
		return
	}
	c.log.Debug().Str("kind", string(kind)).Interface("payload", payload).Msg("render status")
	c.cfg.Host.PostMessage(msg)
}
