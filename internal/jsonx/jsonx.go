// Package jsonx is the JSON codec used across the service. It wraps Sonic
// with a fixed configuration so Arabic text is emitted verbatim and HTML
// characters are not escaped.
package jsonx

import (
	"io"

	"github.com/bytedance/sonic"
)

var api = sonic.Config{
	EscapeHTML:       false,
	UseInt64:         true,
	ValidateString:   true,
	CompactMarshaler: true,
}.Froze()

// Marshal returns the JSON encoding of v.
func Marshal(v any) ([]byte, error) {
	return api.Marshal(v)
}

// Unmarshal parses data into the value pointed to by v.
func Unmarshal(data []byte, v any) error {
	return api.Unmarshal(data, v)
}

// UnmarshalFromString parses s into the value pointed to by v.
func UnmarshalFromString(s string, v any) error {
	return api.UnmarshalFromString(s, v)
}

// NewEncoder returns an encoder writing newline-terminated values to w.
func NewEncoder(w io.Writer) sonic.Encoder {
	return api.NewEncoder(w)
}

// NewDecoder returns a streaming decoder reading from r.
func NewDecoder(r io.Reader) sonic.Decoder {
	return api.NewDecoder(r)
}

// Valid reports whether data is a valid JSON encoding.
func Valid(data []byte) bool {
	return api.Valid(data)
}
