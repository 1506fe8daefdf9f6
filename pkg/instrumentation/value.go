package instrumentation

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// Kind identifies which field of a Value is populated.
type Kind int

const (
	// KindInt is a 64-bit integer value.
	KindInt Kind = iota
	// KindString is a string value.
	KindString
	// KindStrings is an ordered sequence of strings.
	KindStrings
	// KindUnavailable marks a deferred value that could not be produced.
	KindUnavailable
)

// String returns the wire name of the kind.
func (k Kind) String() string {
	switch k {
	case KindInt:
		return "int"
	case KindString:
		return "string"
	case KindStrings:
		return "strings"
	case KindUnavailable:
		return "unavailable"
	default:
		return "kind(" + strconv.Itoa(int(k)) + ")"
	}
}

// ParseKind parses the wire name produced by Kind.String.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "int":
		return KindInt, nil
	case "string":
		return KindString, nil
	case "strings":
		return KindStrings, nil
	case "unavailable":
		return KindUnavailable, nil
	default:
		return KindInt, fmt.Errorf("unknown value kind: %q", s)
	}
}

// Value is the payload of an Entry: an integer, a string, a list of strings,
// or the Unavailable marker. The zero Value is Int(0).
type Value struct {
	kind    Kind
	integer int64
	text    string
	list    []string
}

// Int returns an integer value.
func Int(v int64) Value {
	return Value{kind: KindInt, integer: v}
}

// String returns a string value.
func String(v string) Value {
	return Value{kind: KindString, text: v}
}

// Strings returns a string-list value. The slice is copied.
func Strings(v []string) Value {
	list := make([]string, len(v))
	copy(list, v)
	return Value{kind: KindStrings, list: list}
}

// Unavailable returns the marker recorded in place of a deferred value that
// failed, panicked or timed out.
func Unavailable(reason string) Value {
	return Value{kind: KindUnavailable, text: reason}
}

// Kind reports which variant v holds.
func (v Value) Kind() Kind { return v.kind }

// Int64 returns the integer payload and whether v is an integer.
func (v Value) Int64() (int64, bool) {
	return v.integer, v.kind == KindInt
}

// Text returns the string payload and whether v is a string.
func (v Value) Text() (string, bool) {
	return v.text, v.kind == KindString
}

// List returns a copy of the string-list payload and whether v is a list.
func (v Value) List() ([]string, bool) {
	if v.kind != KindStrings {
		return nil, false
	}
	out := make([]string, len(v.list))
	copy(out, v.list)
	return out, true
}

// Reason returns why a value is unavailable. It is empty for other kinds.
func (v Value) Reason() string {
	if v.kind != KindUnavailable {
		return ""
	}
	return v.text
}

// IsUnavailable reports whether v is the Unavailable marker.
func (v Value) IsUnavailable() bool { return v.kind == KindUnavailable }

// Equal reports whether two values hold the same variant and payload.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindInt:
		return v.integer == o.integer
	case KindStrings:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
		return true
	default:
		return v.text == o.text
	}
}

// String renders the value for logs and CSV output.
func (v Value) String() string {
	switch v.kind {
	case KindInt:
		return strconv.FormatInt(v.integer, 10)
	case KindString:
		return v.text
	case KindStrings:
		return strings.Join(v.list, ",")
	case KindUnavailable:
		return "<unavailable: " + v.text + ">"
	default:
		return ""
	}
}

// Map applies fn to every string in the value. Integer values are returned
// unchanged. It is used by sinks that rewrite sensitive payloads.
func (v Value) Map(fn func(string) string) Value {
	switch v.kind {
	case KindString:
		return String(fn(v.text))
	case KindStrings:
		out := make([]string, len(v.list))
		for i, s := range v.list {
			out[i] = fn(s)
		}
		return Value{kind: KindStrings, list: out}
	default:
		return v
	}
}

// valueJSON is the wire form of a Value.
type valueJSON struct {
	Kind    string   `json:"kind"`
	Int     *int64   `json:"int,omitempty"`
	String  *string  `json:"string,omitempty"`
	Strings []string `json:"strings,omitempty"`
	Reason  string   `json:"reason,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (v Value) MarshalJSON() ([]byte, error) {
	out := valueJSON{Kind: v.kind.String()}
	switch v.kind {
	case KindInt:
		n := v.integer
		out.Int = &n
	case KindString:
		s := v.text
		out.String = &s
	case KindStrings:
		out.Strings = v.list
		if out.Strings == nil {
			out.Strings = []string{}
		}
	case KindUnavailable:
		out.Reason = v.text
	}
	return json.Marshal(out)
}

// UnmarshalJSON implements json.Unmarshaler.
func (v *Value) UnmarshalJSON(data []byte) error {
	var in valueJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	kind, err := ParseKind(in.Kind)
	if err != nil {
		return err
	}
	switch kind {
	case KindInt:
		if in.Int == nil {
			return fmt.Errorf("int value missing payload")
		}
		*v = Int(*in.Int)
	case KindString:
		if in.String == nil {
			return fmt.Errorf("string value missing payload")
		}
		*v = String(*in.String)
	case KindStrings:
		*v = Strings(in.Strings)
	case KindUnavailable:
		*v = Unavailable(in.Reason)
	}
	return nil
}

// Sensitivity is the privacy tag attached to every entry.
type Sensitivity int

const (
	// Sensitive marks data that may identify a user or contain user
	// intellectual property.
	Sensitive Sensitivity = iota
	// Metric marks aggregate data that identifies nobody.
	Metric
)

// String returns "data" or "metric".
func (s Sensitivity) String() string {
	if s == Metric {
		return "metric"
	}
	return "data"
}

// ParseSensitivity parses "data" or "metric".
func ParseSensitivity(s string) (Sensitivity, error) {
	switch s {
	case "data", "sensitive":
		return Sensitive, nil
	case "metric":
		return Metric, nil
	default:
		return Sensitive, fmt.Errorf("unknown sensitivity: %q", s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Sensitivity) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Sensitivity) UnmarshalText(text []byte) error {
	parsed, err := ParseSensitivity(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Entry is one named telemetry value.
type Entry struct {
	Name        string      `json:"name"`
	Value       Value       `json:"value"`
	Sensitivity Sensitivity `json:"sensitivity"`
	Deferred    bool        `json:"deferred"`
}
