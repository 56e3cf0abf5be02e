package automation

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// Kind tags the JSON type carried by a Value.
type Kind int

const (
	KindOther Kind = iota // null, object, array: never applied
	KindNumber
	KindString
	KindBool
)

// Value is the tagged union an automation event carries. It decodes from any
// JSON value; the applier decides per path whether the kind is acceptable.
type Value struct {
	kind Kind
	num  float64
	str  string
	b    bool
	raw  json.RawMessage
}

func Number(v float64) Value { return Value{kind: KindNumber, num: v} }
func String(v string) Value  { return Value{kind: KindString, str: v} }
func Bool(v bool) Value      { return Value{kind: KindBool, b: v} }

func (v Value) Kind() Kind { return v.kind }

func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }
func (v Value) AsString() (string, bool)  { return v.str, v.kind == KindString }
func (v Value) AsBool() (bool, bool)      { return v.b, v.kind == KindBool }

func (v Value) String() string {
	switch v.kind {
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.str)
	case KindBool:
		return strconv.FormatBool(v.b)
	default:
		if len(v.raw) > 0 {
			return string(v.raw)
		}
		return "null"
	}
}

func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	*v = Value{}
	if len(trimmed) == 0 {
		return nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = String(s)
	case 't', 'f':
		var b bool
		if err := json.Unmarshal(trimmed, &b); err != nil {
			return err
		}
		*v = Bool(b)
	case '{', '[', 'n':
		v.raw = append(json.RawMessage(nil), trimmed...)
	default:
		var f float64
		if err := json.Unmarshal(trimmed, &f); err != nil {
			return err
		}
		*v = Number(f)
	}
	return nil
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindNumber:
		return json.Marshal(v.num)
	case KindString:
		return json.Marshal(v.str)
	case KindBool:
		return json.Marshal(v.b)
	default:
		if len(v.raw) > 0 {
			return v.raw, nil
		}
		return []byte("null"), nil
	}
}
