// Defines the relayed upstream response.

package notion

import (
	"bytes"
	"encoding/json"
	"unicode/utf8"
)

// BodyKind tells how an upstream body is relayed.
type BodyKind int

const (
	// BodyStructured is a body that parsed as JSON. It is relayed verbatim.
	BodyStructured BodyKind = iota
	// BodyRaw is anything else. It is relayed inside a fallback envelope.
	BodyRaw
)

// Response is an upstream response as received from Notion.
type Response struct {
	StatusCode int
	Kind       BodyKind
	// Structured is set when Kind is BodyStructured.
	Structured json.RawMessage
	// Raw is set when Kind is BodyRaw.
	Raw string
}

// rawEnvelope wraps a body that is not JSON.
type rawEnvelope struct {
	Status int    `json:"status"`
	Text   string `json:"text"`
}

// NewResponse classifies body by attempting to parse it as JSON.
func NewResponse(statusCode int, body []byte) *Response {
	if json.Valid(body) {
		return &Response{StatusCode: statusCode, Kind: BodyStructured, Structured: body}
	}
	return &Response{StatusCode: statusCode, Kind: BodyRaw, Raw: string(body)}
}

// Status returns the upstream status code.
func (r *Response) Status() int {
	return r.StatusCode
}

// Body returns the JSON document to send back to the caller.
func (r *Response) Body() []byte {
	if r.Kind == BodyStructured {
		return r.Structured
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	// Upstream HTML error pages are relayed as written.
	enc.SetEscapeHTML(false)
	if err := enc.Encode(rawEnvelope{Status: r.StatusCode, Text: r.Raw}); err != nil {
		// Encoding an int and a string cannot fail.
		panic(err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n"))
}

// truncate returns at most n bytes of s without splitting a UTF-8 sequence.
// n <= 0 means no limit.
func truncate(s string, n int) string {
	if n <= 0 || len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n]
}
