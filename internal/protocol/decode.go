package protocol

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// DecodeInbound parses raw message data. Hosts sometimes post the envelope
// as a JSON string rather than an object; both forms are accepted.
func DecodeInbound(data []byte) (Inbound, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return Inbound{}, ErrEmptyMessage
	}
	if data[0] == '"' {
		var inner string
		if err := json.Unmarshal(data, &inner); err != nil {
			return Inbound{}, err
		}
		data = bytes.TrimSpace([]byte(inner))
	}
	var msg Inbound
	if err := json.Unmarshal(data, &msg); err != nil {
		return Inbound{}, err
	}
	msg.Type = strings.TrimSpace(msg.Type)
	if msg.Type == "" {
		return Inbound{}, ErrMissingType
	}
	if isAbsent(msg.Body) {
		return Inbound{}, ErrMissingBody
	}
	return msg, nil
}

// DecodeCommand maps a render:cmd body onto the closed command set. The
// body names the command in "cmd" and carries its argument under that key.
func DecodeCommand(body json.RawMessage) (Command, error) {
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedCommand, err)
	}
	var name string
	if raw, ok := fields["cmd"]; !ok || isAbsent(raw) {
		return nil, fmt.Errorf("%w: missing cmd", ErrMalformedCommand)
	} else if err := json.Unmarshal(raw, &name); err != nil {
		return nil, fmt.Errorf("%w: cmd is not a string", ErrMalformedCommand)
	}
	arg, ok := fields[name]
	if !ok || isAbsent(arg) {
		return nil, fmt.Errorf("%w: %q", ErrMissingArgument, name)
	}

	switch name {
	case CmdAck:
		return Ack{}, nil
	case CmdBranding:
		return Branding{}, nil
	case CmdMarkdown:
		var cmd Markdown
		if err := json.Unmarshal(arg, &cmd); err != nil {
			return nil, fmt.Errorf("%w: markdown: %v", ErrMalformedCommand, err)
		}
		return cmd, nil
	case CmdContainerSize:
		var cmd ContainerSize
		if err := json.Unmarshal(arg, &cmd); err != nil {
			return nil, fmt.Errorf("%w: containerSize: %v", ErrMalformedCommand, err)
		}
		return cmd, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownCommand, name)
	}
}

func DecodeTiming(body json.RawMessage) (Timing, error) {
	var timing Timing
	if err := json.Unmarshal(body, &timing); err != nil {
		return Timing{}, fmt.Errorf("%w: %v", ErrMalformedTiming, err)
	}
	if len(timing.Timing) == 0 || strings.TrimSpace(timing.Format) == "" {
		return Timing{}, ErrMalformedTiming
	}
	return timing, nil
}

func isAbsent(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null"))
}
