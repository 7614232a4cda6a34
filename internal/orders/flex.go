package orders

import (
	"bytes"
	"strings"

	"github.com/stockdesk/ai-proxy/internal/jsonx"
)

// FlexString is a string that also accepts a bare JSON number or boolean.
// Models regularly answer "price": 15000 where a string was asked for.
type FlexString string

// Ptr returns a pointer to a FlexString holding s.
func Ptr(s string) *FlexString {
	f := FlexString(s)
	return &f
}

func (f FlexString) String() string { return string(f) }

// UnmarshalJSON implements json.Unmarshaler.
func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0 || bytes.Equal(data, []byte("null")):
		*f = ""
		return nil
	case data[0] == '"':
		var s string
		if err := jsonx.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	case data[0] == '[' || data[0] == '{':
		// Structured values carry no usable scalar.
		*f = ""
		return nil
	default:
		*f = FlexString(strings.TrimSpace(string(data)))
		return nil
	}
}

// FlexList is a string list that also accepts a single string or number.
type FlexList []string

// UnmarshalJSON implements json.Unmarshaler.
func (l *FlexList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*l = nil
		return nil
	}
	if data[0] == '[' {
		var items []FlexString
		if err := jsonx.Unmarshal(data, &items); err != nil {
			return err
		}
		out := make([]string, 0, len(items))
		for _, it := range items {
			if s := strings.TrimSpace(string(it)); s != "" {
				out = append(out, s)
			}
		}
		*l = out
		return nil
	}

	var one FlexString
	if err := one.UnmarshalJSON(data); err != nil {
		return err
	}
	if s := strings.TrimSpace(string(one)); s != "" {
		*l = FlexList{s}
	} else {
		*l = nil
	}
	return nil
}
