package protocol

import "encoding/json"

const (
	TypeCommand = "render:cmd"
	TypeTiming  = "render:timing"
	TypeStatus  = "render"
)

// Kind is a lifecycle status reported to the host.
type Kind string

const (
	KindConstructor Kind = "constructor"
	KindHello       Kind = "hello"
	KindLoading     Kind = "loading"
	KindLoaded      Kind = "loaded"
	KindReady       Kind = "ready"
	KindError       Kind = "error"
	KindFatal       Kind = "fatal"
	KindResize      Kind = "resize"
)

func (k Kind) Valid() bool {
	switch k {
	case KindConstructor, KindHello, KindLoading, KindLoaded,
		KindReady, KindError, KindFatal, KindResize:
		return true
	}
	return false
}

// Inbound is one host->frame message after unwrapping.
type Inbound struct {
	Type     string          `json:"type"`
	Identity string          `json:"identity,omitempty"`
	Body     json.RawMessage `json:"body"`
}

// Outbound is one frame->host status message.
type Outbound struct {
	Type     string         `json:"type"`
	Identity string         `json:"identity"`
	Body     Kind           `json:"body"`
	Payload  map[string]any `json:"payload"`
}

// Timing is the body of a render:timing message.
type Timing struct {
	Timing map[string]float64 `json:"timing"`
	Format string             `json:"format"`
}
