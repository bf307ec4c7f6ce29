package bridge

import (
	"sync"
	"time"

	"github.com/danmuck/renderframe/internal/observability"
	"github.com/danmuck/renderframe/internal/protocol"
)

const DefaultOutboxCapacity = 256

// Posted is one status message waiting for the host to collect it.
type Posted struct {
	Seq      uint64            `json:"seq"`
	PostedAt time.Time         `json:"posted_at"`
	Message  protocol.Outbound `json:"message"`
}

// Outbox is the host side of a frame's status channel. Messages get
// increasing sequence numbers; the oldest are dropped past capacity.
type Outbox struct {
	mu       sync.RWMutex
	capacity int
	next     uint64
	items    []Posted
	dropped  uint64
}

func NewOutbox(capacity int) *Outbox {
	if capacity < 1 {
		capacity = DefaultOutboxCapacity
	}
	return &Outbox{capacity: capacity, next: 1}
}

// PostMessage implements status.Host.
func (o *Outbox) PostMessage(msg protocol.Outbound) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.items = append(o.items, Posted{Seq: o.next, PostedAt: time.Now(), Message: msg})
	o.next++
	if over := len(o.items) - o.capacity; over > 0 {
		o.items = append(o.items[:0:0], o.items[over:]...)
		o.dropped += uint64(over)
	}
	observability.RecordFrameStatus(string(msg.Body))
}

// Since returns messages with a sequence number above after, oldest first.
func (o *Outbox) Since(after uint64) []Posted {
	o.mu.RLock()
	defer o.mu.RUnlock()
	out := make([]Posted, 0, len(o.items))
	for _, item := range o.items {
		if item.Seq > after {
			out = append(out, item)
		}
	}
	return out
}

// Drain removes and returns everything queued.
func (o *Outbox) Drain() []Posted {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := o.items
	o.items = nil
	if out == nil {
		out = []Posted{}
	}
	return out
}

func (o *Outbox) Len() int {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return len(o.items)
}

// Dropped counts messages evicted before they were collected.
func (o *Outbox) Dropped() uint64 {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.dropped
}
