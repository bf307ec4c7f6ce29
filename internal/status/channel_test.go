package status

import (
	"sync"
	"testing"
	"time"

	"github.com/danmuck/renderframe/internal/clock"
	"github.com/danmuck/renderframe/internal/protocol"
	"github.com/danmuck/renderframe/internal/testutil/testlog"
)

type recordingHost struct {
	mu   sync.Mutex
	msgs []protocol.Outbound
}

func (h *recordingHost) PostMessage(msg protocol.Outbound) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.msgs = append(h.msgs, msg)
}

func (h *recordingHost) kinds() []protocol.Kind {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]protocol.Kind, 0, len(h.msgs))
	for _, msg := range h.msgs {
		out = append(out, msg.Body)
	}
	return out
}

type recordingTiming struct {
	origins []string
	last    map[string]float64
}

func (r *recordingTiming) SubmitTiming(origin string, timing map[string]float64) {
	r.origins = append(r.origins, origin)
	r.last = timing
}

func newTestChannel(host Host) (*Channel, *clock.FakeClock, *recordingTiming) {
	fc := clock.Fake(time.Unix(1700000000, 0))
	timing := &recordingTiming{}
	ch := NewChannel(Config{
		Identity: "frame-1",
		Host:     host,
		Timing:   timing,
		Clock:    fc,
	})
	return ch, fc, timing
}

func countKind(msgs []Message, kind protocol.Kind) int {
	n := 0
	for _, msg := range msgs {
		if msg.Kind == kind {
			n++
		}
	}
	return n
}

func TestEmitDeduplicatesIdempotentKinds(t *testing.T) {
	testlog.Start(t)
	host := &recordingHost{}
	ch, _, _ := newTestChannel(host)
	ch.Acknowledge()

	for i := 0; i < 3; i++ {
		ch.Emit(protocol.KindLoading, nil)
		ch.Emit(protocol.KindError, map[string]any{"attempt": i})
	}
	msgs := ch.Messages()
	if countKind(msgs, protocol.KindLoading) != 1 || countKind(msgs, protocol.KindError) != 1 {
		t.Fatalf("expected single loading/error entries, got %+v", msgs)
	}
	for _, msg := range msgs {
		if msg.Kind == protocol.KindError && msg.Payload["attempt"] != 0 {
			t.Fatalf("expected first error payload kept, got %+v", msg.Payload)
		}
	}
	if got := host.kinds(); len(got) != 2 {
		t.Fatalf("expected two posts, got %v", got)
	}
}

func TestEmitDropsUnknownKinds(t *testing.T) {
	testlog.Start(t)
	host := &recordingHost{}
	ch, _, _ := newTestChannel(host)
	ch.Acknowledge()
	before := len(ch.Messages())
	sent := len(host.kinds())

	ch.Emit(protocol.Kind("rendered"), nil)
	if got := len(ch.Messages()); got != before {
		t.Fatalf("unknown kind recorded: %+v", ch.Messages())
	}
	if got := len(host.kinds()); got != sent {
		t.Fatalf("unknown kind posted: %v", host.kinds())
	}
}

func TestEmitResizeRepeats(t *testing.T) {
	testlog.Start(t)
	host := &recordingHost{}
	ch, _, _ := newTestChannel(host)
	ch.Acknowledge()

	ch.Emit(protocol.KindResize, map[string]any{"height": 300})
	ch.Emit(protocol.KindResize, map[string]any{"height": 400})
	if n := countKind(ch.Messages(), protocol.KindResize); n != 2 {
		t.Fatalf("expected two resize entries, got %d", n)
	}
	if got := host.kinds(); len(got) != 2 {
		t.Fatalf("expected two resize posts, got %v", got)
	}
}

func TestSendInitialInsertsHelloOnceAndStops(t *testing.T) {
	testlog.Start(t)
	host := &recordingHost{}
	ch, fc, _ := newTestChannel(host)

	ch.SendInitial(protocol.KindHello, 3, time.Second)
	for i := 0; i < 5; i++ {
		fc.Advance(time.Second)
	}

	if n := countKind(ch.Messages(), protocol.KindHello); n != 1 {
		t.Fatalf("expected hello recorded once, got %d", n)
	}
	if got := host.kinds(); len(got) != 3 {
		t.Fatalf("expected three hello posts, got %v", got)
	}
	if ch.InitialPending() || fc.Pending() != 0 {
		t.Fatalf("initial timer leaked: pending=%d", fc.Pending())
	}
}

func TestSendInitialStopsOnAcknowledge(t *testing.T) {
	testlog.Start(t)
	host := &recordingHost{}
	ch, fc, _ := newTestChannel(host)

	ch.SendInitial(protocol.KindHello, DefaultInitialAttempts, DefaultInitialInterval)
	fc.Advance(time.Second)
	ch.Acknowledge()
	fc.Advance(10 * time.Second)

	if got := host.kinds(); len(got) != 2 {
		t.Fatalf("expected two hello posts before ack, got %v", got)
	}
	if ch.InitialPending() || fc.Pending() != 0 {
		t.Fatalf("initial timer not cleared after ack")
	}
}

func TestAcknowledgeFlushesInInsertionOrder(t *testing.T) {
	testlog.Start(t)
	host := &recordingHost{}
	ch, _, _ := newTestChannel(host)

	ch.Emit(protocol.KindHello, nil)
	ch.Emit(protocol.KindLoading, nil)
	ch.Emit(protocol.KindLoaded, nil)
	ch.Emit(protocol.KindReady, map[string]any{"height": 250})

	if got := host.kinds(); len(got) != 1 || got[0] != protocol.KindHello {
		t.Fatalf("only hello should be posted before ack, got %v", got)
	}

	ch.Acknowledge()
	ch.Acknowledge()
	ch.Emit(protocol.KindResize, map[string]any{"height": 300})

	want := []protocol.Kind{
		protocol.KindHello,
		protocol.KindLoading,
		protocol.KindLoaded,
		protocol.KindReady,
		protocol.KindResize,
	}
	got := host.kinds()
	if len(got) != len(want) {
		t.Fatalf("unexpected posts: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("post %d: got %s want %s (all=%v)", i, got[i], want[i], got)
		}
	}
	for _, msg := range ch.Messages() {
		if !msg.Sent {
			t.Fatalf("message left unsent: %+v", msg)
		}
	}
	if host.msgs[3].Identity != "frame-1" || host.msgs[3].Payload["height"] != 250 {
		t.Fatalf("unexpected ready envelope: %+v", host.msgs[3])
	}
}

func TestReadySubmitsLocalTimingOnce(t *testing.T) {
	testlog.Start(t)
	ch, fc, timing := newTestChannel(&recordingHost{})

	fc.Advance(20 * time.Millisecond)
	ch.Emit(protocol.KindHello, nil)
	fc.Advance(30 * time.Millisecond)
	ch.Emit(protocol.KindReady, nil)
	ch.Emit(protocol.KindReady, nil)

	if len(timing.origins) != 1 || timing.origins[0] != "local" {
		t.Fatalf("expected one local timing report, got %v", timing.origins)
	}
	ctor := timing.last[string(protocol.KindConstructor)]
	ready := timing.last[string(protocol.KindReady)]
	if ready-ctor != 50 {
		t.Fatalf("unexpected timing spread: %v", timing.last)
	}
}

func TestNoParentDropsDelivery(t *testing.T) {
	testlog.Start(t)
	ch, _, _ := newTestChannel(nil)
	if ch.HasParent() {
		t.Fatalf("expected no parent")
	}
	ch.Acknowledge()
	ch.Emit(protocol.KindLoading, nil)

	msgs := ch.Messages()
	if countKind(msgs, protocol.KindLoading) != 1 || !msgs[len(msgs)-1].Sent {
		t.Fatalf("expected loading recorded as sent, got %+v", msgs)
	}
}
