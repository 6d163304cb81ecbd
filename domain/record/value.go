package record

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// ValueKind tags the variant held by a Value.
type ValueKind int

const (
	KindNone ValueKind = iota
	KindScalar
	KindList
	KindLabel
)

// Value is the payload of a property or preparation detail: a single number,
// an ordered list of numbers, or a text label.
type Value struct {
	kind   ValueKind
	number float64
	list   []float64
	label  string
	raw    json.RawMessage // decoded encoding, kept when it has members beyond "value"
}

// Scalar wraps a single number
func Scalar(v float64) Value {
	return Value{kind: KindScalar, number: v}
}

// List wraps an ordered sequence of numbers; the slice is copied.
func List(vs []float64) Value {
	owned := make([]float64, len(vs))
	copy(owned, vs)
	return Value{kind: KindList, list: owned}
}

// Label wraps a text value
func Label(s string) Value {
	return Value{kind: KindLabel, label: s}
}

// Kind reports which variant is set
func (v Value) Kind() ValueKind { return v.kind }

// IsZero reports whether no value is set
func (v Value) IsZero() bool { return v.kind == KindNone }

// Float returns the scalar value. Labels holding a number are parsed.
func (v Value) Float() (float64, bool) {
	switch v.kind {
	case KindScalar:
		return v.number, true
	case KindLabel:
		f, err := strconv.ParseFloat(v.label, 64)
		if err != nil {
			return 0, false
		}
		return f, true
	}
	return 0, false
}

// Floats returns a copy of the list value
func (v Value) Floats() ([]float64, bool) {
	if v.kind != KindList {
		return nil, false
	}
	out := make([]float64, len(v.list))
	copy(out, v.list)
	return out, true
}

// Text returns the label, or the formatted number for scalars
func (v Value) Text() (string, bool) {
	switch v.kind {
	case KindLabel:
		return v.label, true
	case KindScalar:
		return strconv.FormatFloat(v.number, 'g', -1, 64), true
	}
	return "", false
}

// Equal compares two values structurally; uncertainty and other preserved
// members are ignored.
func (v Value) Equal(o Value) bool {
	if v.kind != o.kind {
		return false
	}
	switch v.kind {
	case KindScalar:
		return v.number == o.number
	case KindLabel:
		return v.label == o.label
	case KindList:
		if len(v.list) != len(o.list) {
			return false
		}
		for i := range v.list {
			if v.list[i] != o.list[i] {
				return false
			}
		}
	}
	return true
}

type scalarOut struct {
	Value float64 `json:"value"`
}

// MarshalJSON writes numbers as {"value": x}, lists as [{"value": x}, ...] and
// labels as bare strings.
// A decoded value that carried more than "value" (uncertainty, minimum, ...)
// is written back as it was read.
func (v Value) MarshalJSON() ([]byte, error) {
	if len(v.raw) > 0 {
		return v.raw, nil
	}
	switch v.kind {
	case KindScalar:
		return json.Marshal(scalarOut{Value: v.number})
	case KindList:
		items := make([]scalarOut, len(v.list))
		for i, x := range v.list {
			items[i] = scalarOut{Value: x}
		}
		return json.Marshal(items)
	case KindLabel:
		return json.Marshal(v.label)
	}
	return []byte("null"), nil
}

// UnmarshalJSON accepts every shape MarshalJSON writes plus bare numbers and
// {"value": "text"} objects.
func (v *Value) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*v = Value{}
		return nil
	}

	switch data[0] {
	case '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*v = Label(s)
		return nil
	case '{':
		parsed, extra, err := decodeScalarObject(data)
		if err != nil {
			return err
		}
		if extra {
			parsed.raw = append(json.RawMessage(nil), data...)
		}
		*v = parsed
		return nil
	case '[':
		var items []json.RawMessage
		if err := json.Unmarshal(data, &items); err != nil {
			return err
		}
		list := make([]float64, 0, len(items))
		keep := false
		for i, item := range items {
			parsed, extra, err := decodeScalarObject(bytes.TrimSpace(item))
			if err != nil {
				return fmt.Errorf("list item %d: %w", i, err)
			}
			f, ok := parsed.Float()
			if !ok {
				return fmt.Errorf("list item %d is not numeric", i)
			}
			list = append(list, f)
			keep = keep || extra
		}
		*v = Value{kind: KindList, list: list}
		if keep {
			v.raw = append(json.RawMessage(nil), data...)
		}
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("unsupported value %s: %w", string(data), err)
	}
	*v = Scalar(f)
	return nil
}

// decodeScalarObject reads {"value": x, ...} or a bare number. extra reports
// whether the object had members other than "value".
func decodeScalarObject(data []byte) (v Value, extra bool, err error) {
	if len(data) > 0 && data[0] != '{' {
		var f float64
		if err := json.Unmarshal(data, &f); err != nil {
			return Value{}, false, fmt.Errorf("expected scalar object, got %s", string(data))
		}
		return Scalar(f), false, nil
	}

	var members map[string]json.RawMessage
	if err := json.Unmarshal(data, &members); err != nil {
		return Value{}, false, err
	}
	_, hasValue := members["value"]
	extra = len(members) > 1 || (len(members) == 1 && !hasValue)

	raw := bytes.TrimSpace(members["value"])
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return Value{}, extra, nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Value{}, false, err
		}
		return Label(s), extra, nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return Value{}, false, err
	}
	return Scalar(f), extra, nil
}
