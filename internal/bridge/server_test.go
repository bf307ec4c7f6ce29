package bridge

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/danmuck/renderframe/internal/clock"
	"github.com/danmuck/renderframe/internal/frame"
	"github.com/danmuck/renderframe/internal/protocol"
	"github.com/danmuck/renderframe/internal/render"
	"github.com/danmuck/renderframe/internal/telemetry"
	"github.com/danmuck/renderframe/internal/testutil/testlog"
	"github.com/gin-gonic/gin"
)

const hostOrigin = "https://github.localhost"

type stubRenderer struct{}

func (stubRenderer) Render(_ context.Context, src render.DiagramSource) (render.Result, error) {
	return render.Result{Markup: "<svg>" + src.Text + "</svg>", Width: 1000, Height: 500}, nil
}

func newServer(t *testing.T) *Server {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := DefaultConfig()
	cfg.Name = "bridge-test"
	cfg.Clock = clock.Fake(time.Unix(1700000000, 0))
	s := New(cfg, stubRenderer{}, telemetry.Nop{})
	s.RegisterRoutes()
	t.Cleanup(s.Close)
	return s
}

func do(s *Server, method, path, origin, body string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	return rr
}

func decode[T any](t *testing.T, rr *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(rr.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode body %q: %v", rr.Body.String(), err)
	}
	return out
}

type messagesResponse struct {
	Messages []Posted `json:"messages"`
	Next     uint64   `json:"next"`
}

func TestFrameLifecycleOverHTTP(t *testing.T) {
	testlog.Start(t)
	s := newServer(t)

	rr := do(s, http.MethodPost, "/frames", "", `{"location":"https://viewscreen.local/view/mermaid#frame-7","width":500}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	if view := decode[frame.View](t, rr); view.Identity != "frame-7" {
		t.Fatalf("unexpected identity %q", view.Identity)
	}

	got := decode[messagesResponse](t, do(s, http.MethodGet, "/frames/frame-7/messages", "", ""))
	if len(got.Messages) != 1 || got.Messages[0].Message.Body != protocol.KindHello {
		t.Fatalf("expected hello, got %+v", got.Messages)
	}
	cursor := got.Next

	for _, msg := range []string{
		`{"type":"render:cmd","identity":"frame-7","body":{"cmd":"ack","ack":true}}`,
		`{"type":"render:cmd","identity":"frame-7","body":{"cmd":"markdown","markdown":{"data":"graph TD; A--&gt;B","width":500}}}`,
	} {
		rr := do(s, http.MethodPost, "/frames/frame-7/messages", hostOrigin, msg)
		if rr.Code != http.StatusAccepted || !decode[map[string]bool](t, rr)["accepted"] {
			t.Fatalf("message rejected: %d %s", rr.Code, rr.Body.String())
		}
	}

	got = decode[messagesResponse](t, do(s, http.MethodGet, "/frames/frame-7/messages?after="+strconv.FormatUint(cursor, 10), "", ""))
	if len(got.Messages) != 1 || got.Messages[0].Message.Body != protocol.KindReady {
		t.Fatalf("expected ready after cursor, got %+v", got.Messages)
	}
	if got.Messages[0].Message.Payload["height"] != float64(250) {
		t.Fatalf("unexpected ready payload: %+v", got.Messages[0].Message.Payload)
	}

	view := decode[frame.View](t, do(s, http.MethodGet, "/frames/frame-7/view", "", ""))
	if view.State != "ready" || !view.Acked || !strings.Contains(view.Pane.Markup, "A-->B") {
		t.Fatalf("unexpected view: %+v", view)
	}

	rr = do(s, http.MethodPost, "/frames/frame-7/controls/zoom-in", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("control: %d %s", rr.Code, rr.Body.String())
	}
	if css := decode[map[string]any](t, rr)["css"]; css != "translate(0px, 0px) scale(1.1)" {
		t.Fatalf("unexpected css %v", css)
	}
	if rr := do(s, http.MethodPost, "/frames/frame-7/controls/spin", "", ""); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown control, got %d", rr.Code)
	}

	if rr := do(s, http.MethodDelete, "/frames/frame-7", "", ""); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rr.Code)
	}
	if rr := do(s, http.MethodGet, "/frames/frame-7/view", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404 after delete, got %d", rr.Code)
	}
}

func TestUntrustedOriginIsNotAccepted(t *testing.T) {
	testlog.Start(t)
	s := newServer(t)
	if _, err := s.CreateFrame(CreateFrameRequest{Identity: "f1"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	rr := do(s, http.MethodPost, "/frames/f1/messages", "https://evil.test", `{"type":"render:cmd","body":{"cmd":"ack","ack":true}}`)
	if rr.Code != http.StatusAccepted || decode[map[string]bool](t, rr)["accepted"] {
		t.Fatalf("expected silent rejection, got %d %s", rr.Code, rr.Body.String())
	}
	f, _, _ := s.Frames.Get("f1")
	if f.Status().Acked() {
		t.Fatalf("untrusted ack was applied")
	}
}

func TestCreateFrameConflictsAndDefaults(t *testing.T) {
	testlog.Start(t)
	s := newServer(t)

	rr := do(s, http.MethodPost, "/frames", "", "")
	if rr.Code != http.StatusCreated {
		t.Fatalf("create without body: %d %s", rr.Code, rr.Body.String())
	}
	view := decode[frame.View](t, rr)
	if view.Identity == "" || view.Pane.Width != frame.DefaultWidth {
		t.Fatalf("unexpected defaults: %+v", view)
	}

	body := `{"identity":"` + view.Identity + `"}`
	if rr := do(s, http.MethodPost, "/frames", "", body); rr.Code != http.StatusConflict {
		t.Fatalf("expected conflict, got %d", rr.Code)
	}
	if rr := do(s, http.MethodPost, "/frames/missing/messages", hostOrigin, `{}`); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestCreateFrameOffsetFoldsIntoHeight(t *testing.T) {
	testlog.Start(t)
	s := newServer(t)

	rr := do(s, http.MethodPost, "/frames", "", `{"identity":"off","width":500,"offset_x":40,"offset_y":8}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rr.Code, rr.Body.String())
	}
	for _, msg := range []string{
		`{"type":"render:cmd","body":{"cmd":"ack","ack":true}}`,
		`{"type":"render:cmd","body":{"cmd":"markdown","markdown":{"data":"graph TD","width":500}}}`,
	} {
		do(s, http.MethodPost, "/frames/off/messages", hostOrigin, msg)
	}

	got := decode[messagesResponse](t, do(s, http.MethodGet, "/frames/off/messages", "", ""))
	last := got.Messages[len(got.Messages)-1].Message
	if last.Body != protocol.KindReady || last.Payload["height"] != float64(274) {
		t.Fatalf("unexpected ready message: %+v", last)
	}
}

func TestDetachedFramePostsNothing(t *testing.T) {
	testlog.Start(t)
	s := newServer(t)
	if _, err := s.CreateFrame(CreateFrameRequest{Identity: "solo", Detached: true}); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, outbox, _ := s.Frames.Get("solo")
	if outbox.Len() != 0 {
		t.Fatalf("detached frame posted %d messages", outbox.Len())
	}
}

func TestLoadSourceRoute(t *testing.T) {
	testlog.Start(t)
	src := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain")
		_, _ = w.Write([]byte("graph LR; X-->Y"))
	}))
	defer src.Close()

	s := newServer(t)
	if _, err := s.CreateFrame(CreateFrameRequest{Identity: "f2"}); err != nil {
		t.Fatalf("create: %v", err)
	}
	rr := do(s, http.MethodPost, "/frames/f2/source", "", `{"url":"`+src.URL+`","width":2000}`)
	if rr.Code != http.StatusOK {
		t.Fatalf("source: %d %s", rr.Code, rr.Body.String())
	}
	if view := decode[frame.View](t, rr); view.Height != 500 || view.State != "ready" {
		t.Fatalf("unexpected view: %+v", view)
	}
	if rr := do(s, http.MethodPost, "/frames/f2/source", "", `{"url":"client://x"}`); rr.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for client url, got %d", rr.Code)
	}
}

func TestOutboxCapacityAndCursor(t *testing.T) {
	testlog.Start(t)
	o := NewOutbox(2)
	for _, kind := range []protocol.Kind{protocol.KindHello, protocol.KindLoading, protocol.KindReady} {
		o.PostMessage(protocol.NewStatus("f", kind, nil))
	}
	items := o.Since(0)
	if len(items) != 2 || items[0].Seq != 2 || items[1].Message.Body != protocol.KindReady {
		t.Fatalf("unexpected items: %+v", items)
	}
	if o.Dropped() != 1 {
		t.Fatalf("expected one dropped, got %d", o.Dropped())
	}
	if len(o.Since(3)) != 0 {
		t.Fatalf("cursor did not filter")
	}
	if drained := o.Drain(); len(drained) != 2 || o.Len() != 0 {
		t.Fatalf("drain failed: %+v", drained)
	}
}

func TestDrainMessagesRoute(t *testing.T) {
	testlog.Start(t)
	s := newServer(t)
	if _, err := s.CreateFrame(CreateFrameRequest{Identity: "d1"}); err != nil {
		t.Fatalf("create: %v", err)
	}

	rr := do(s, http.MethodDelete, "/frames/d1/messages", "", "")
	if rr.Code != http.StatusOK {
		t.Fatalf("drain: %d %s", rr.Code, rr.Body.String())
	}
	got := decode[messagesResponse](t, rr)
	if len(got.Messages) != 1 || got.Messages[0].Message.Body != protocol.KindHello || got.Next != 1 {
		t.Fatalf("unexpected drained messages: %+v", got)
	}
	if again := decode[messagesResponse](t, do(s, http.MethodDelete, "/frames/d1/messages", "", "")); len(again.Messages) != 0 {
		t.Fatalf("outbox not cleared: %+v", again.Messages)
	}
	if rr := do(s, http.MethodDelete, "/frames/missing/messages", "", ""); rr.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rr.Code)
	}
}

func TestAuthTokenGuardsFrameRoutes(t *testing.T) {
	testlog.Start(t)
	gin.SetMode(gin.TestMode)
	cfg := DefaultConfig()
	cfg.Name = "bridge-auth-test"
	cfg.AuthToken = "sekret"
	cfg.Clock = clock.Fake(time.Unix(1700000000, 0))
	s := New(cfg, stubRenderer{}, telemetry.Nop{})
	s.RegisterRoutes()
	t.Cleanup(s.Close)

	if rr := do(s, http.MethodPost, "/frames", "", ""); rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", rr.Code)
	}
	req := httptest.NewRequest(http.MethodPost, "/frames", nil)
	req.Header.Set("Authorization", "Bearer sekret")
	rr := httptest.NewRecorder()
	s.HTTPRouter().ServeHTTP(rr, req)
	if rr.Code != http.StatusCreated {
		t.Fatalf("expected 201 with token, got %d %s", rr.Code, rr.Body.String())
	}
	if rr := do(s, http.MethodGet, "/health", "", ""); rr.Code != http.StatusOK {
		t.Fatalf("health must stay open, got %d", rr.Code)
	}
}
