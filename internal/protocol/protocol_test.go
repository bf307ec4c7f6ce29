package protocol

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/danmuck/renderframe/internal/testutil/testlog"
)

func TestDecodeInboundObject(t *testing.T) {
	testlog.Start(t)
	msg, err := DecodeInbound([]byte(`{"type":"render:cmd","identity":"abc","body":{"cmd":"ack","ack":true}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.Type != TypeCommand || msg.Identity != "abc" {
		t.Fatalf("unexpected message: %+v", msg)
	}
}

func TestDecodeInboundStringWrapped(t *testing.T) {
	testlog.Start(t)
	inner := `{"type":"render:cmd","body":{"cmd":"containerSize","containerSize":{"width":640}}}`
	wrapped, _ := json.Marshal(inner)

	msg, err := DecodeInbound(wrapped)
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	cmd, err := DecodeCommand(msg.Body)
	if err != nil {
		t.Fatalf("decode command: %v", err)
	}
	size, ok := cmd.(ContainerSize)
	if !ok || size.Width != 640 {
		t.Fatalf("unexpected command: %#v", cmd)
	}
}

func TestDecodeInboundRejectsIncomplete(t *testing.T) {
	testlog.Start(t)
	cases := map[string]error{
		``:                                  ErrEmptyMessage,
		`null`:                              ErrEmptyMessage,
		`{"body":{"cmd":"ack"}}`:            ErrMissingType,
		`{"type":"render:cmd"}`:             ErrMissingBody,
		`{"type":"render:cmd","body":null}`: ErrMissingBody,
	}
	for raw, want := range cases {
		if _, err := DecodeInbound([]byte(raw)); !errors.Is(err, want) {
			t.Fatalf("DecodeInbound(%q) err=%v want %v", raw, err, want)
		}
	}
}

func TestDecodeCommandSet(t *testing.T) {
	testlog.Start(t)
	md, err := DecodeCommand(json.RawMessage(`{"cmd":"markdown","markdown":{"data":"graph TD; A--&gt;B","width":800}}`))
	if err != nil {
		t.Fatalf("markdown: %v", err)
	}
	if got := md.(Markdown); got.Data != "graph TD; A--&gt;B" || got.Width != 800 {
		t.Fatalf("unexpected markdown: %+v", got)
	}

	ack, err := DecodeCommand(json.RawMessage(`{"cmd":"ack","ack":true}`))
	if err != nil || ack.Name() != CmdAck {
		t.Fatalf("ack: %v %#v", err, ack)
	}

	branding, err := DecodeCommand(json.RawMessage(`{"cmd":"branding","branding":false}`))
	if err != nil || branding.Name() != CmdBranding {
		t.Fatalf("branding: %v %#v", err, branding)
	}
}

func TestDecodeCommandRejectsOutsideSet(t *testing.T) {
	testlog.Start(t)
	if _, err := DecodeCommand(json.RawMessage(`{"cmd":"constructor","constructor":{}}`)); !errors.Is(err, ErrUnknownCommand) {
		t.Fatalf("expected unknown command, got %v", err)
	}
	if _, err := DecodeCommand(json.RawMessage(`{"cmd":"ack"}`)); !errors.Is(err, ErrMissingArgument) {
		t.Fatalf("expected missing argument, got %v", err)
	}
	if _, err := DecodeCommand(json.RawMessage(`{"cmd":42}`)); !errors.Is(err, ErrMalformedCommand) {
		t.Fatalf("expected malformed command, got %v", err)
	}
	if _, err := DecodeCommand(json.RawMessage(`{"cmd":"markdown","markdown":"oops"}`)); !errors.Is(err, ErrMalformedCommand) {
		t.Fatalf("expected malformed markdown, got %v", err)
	}
}

func TestDecodeTiming(t *testing.T) {
	testlog.Start(t)
	timing, err := DecodeTiming(json.RawMessage(`{"timing":{"hello":12.5,"ready":40},"format":"mermaid"}`))
	if err != nil {
		t.Fatalf("decode timing: %v", err)
	}
	if timing.Format != "mermaid" || timing.Timing["ready"] != 40 {
		t.Fatalf("unexpected timing: %+v", timing)
	}
	if _, err := DecodeTiming(json.RawMessage(`{"timing":{},"format":"mermaid"}`)); !errors.Is(err, ErrMalformedTiming) {
		t.Fatalf("expected malformed timing, got %v", err)
	}
}
