package protocol

import "errors"

var (
	ErrEmptyMessage     = errors.New("protocol: empty message")
	ErrMissingType      = errors.New("protocol: missing type")
	ErrMissingBody      = errors.New("protocol: missing body")
	ErrUnknownType      = errors.New("protocol: unknown message type")
	ErrUnknownCommand   = errors.New("protocol: unknown command")
	ErrMissingArgument  = errors.New("protocol: missing command argument")
	ErrMalformedTiming  = errors.New("protocol: malformed timing message")
	ErrMalformedCommand = errors.New("protocol: malformed command")
)
