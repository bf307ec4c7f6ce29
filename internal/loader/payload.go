package loader

import (
	"encoding/json"
	"mime"
	"strings"

	"golang.org/x/net/html"
)

type PayloadKind int

const (
	PayloadText PayloadKind = iota
	PayloadBinary
	PayloadJSON
)

func (k PayloadKind) String() string {
	switch k {
	case PayloadBinary:
		return "binary"
	case PayloadJSON:
		return "json"
	default:
		return "text"
	}
}

// Payload is a classified response body.
type Payload struct {
	Kind       PayloadKind
	Binary     []byte
	Text       string
	JSON       any
	StatusCode int
}

func isBinary(contentType string) bool {
	mediaType, _, err := mime.ParseMediaType(contentType)
	if err != nil {
		mediaType = strings.TrimSpace(contentType)
	}
	return strings.EqualFold(mediaType, "application/octet-stream")
}

// decodePayload classifies body by content type. A JSON body that fails to
// parse gets one more try after HTML entity decoding, for servers that
// double-encode.
func decodePayload(contentType string, body []byte, wantJSON bool) (Payload, error) {
	if isBinary(contentType) {
		return Payload{Kind: PayloadBinary, Binary: body}, nil
	}
	if !wantJSON {
		return Payload{Kind: PayloadText, Text: string(body)}, nil
	}
	var v any
	if err := json.Unmarshal(body, &v); err == nil {
		return Payload{Kind: PayloadJSON, JSON: v}, nil
	}
	if err := json.Unmarshal([]byte(html.UnescapeString(string(body))), &v); err != nil {
		return Payload{}, &ParseError{Err: err}
	}
	return Payload{Kind: PayloadJSON, JSON: v}, nil
}
