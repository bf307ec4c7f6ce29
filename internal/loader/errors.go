package loader

import (
	"errors"
	"fmt"
)

var ErrLoadFailed = errors.New("loader: failed to load content")

// ProtocolError rejects URLs using the reserved client:// scheme.
type ProtocolError struct {
	URL string
}

func (e *ProtocolError) Error() string {
	return "loader: the client:// protocol is invalid"
}

// TransientLoadError is returned once every attempt has failed.
type TransientLoadError struct {
	URL      string
	Attempts int
	Err      error
}

func (e *TransientLoadError) Error() string {
	return ErrLoadFailed.Error()
}

func (e *TransientLoadError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrLoadFailed}
	}
	return []error{ErrLoadFailed, e.Err}
}

// ParseError means the body was not JSON even after entity decoding.
type ParseError struct {
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("loader: parse response: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// statusError is one attempt rejected by HTTP status.
type statusError struct {
	Code int
}

func (e *statusError) Error() string {
	return fmt.Sprintf("loader: http status %d", e.Code)
}
