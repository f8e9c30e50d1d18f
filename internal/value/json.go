package value

import (
	"bytes"
	"encoding/json"
)

// MarshalJSON encodes a Value the way spec.md §6 describes the wire
// encoding: Null -> null, Integer/Float -> JSON number, Boolean -> bool,
// Text -> string.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case Null:
		return []byte("null"), nil
	case Integer:
		return json.Marshal(v.I)
	case Float:
		return json.Marshal(v.F)
	case Boolean:
		return json.Marshal(v.B)
	case Text:
		return json.Marshal(v.S)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON decodes a JSON scalar back into a Value. JSON numbers are
// decoded as Integer when they carry no fractional/exponent part, else
// Float.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.Equal(trimmed, []byte("null")):
		*v = NewNull()
		return nil
	case bytes.Equal(trimmed, []byte("true")):
		*v = NewBoolean(true)
		return nil
	case bytes.Equal(trimmed, []byte("false")):
		*v = NewBoolean(false)
		return nil
	case len(trimmed) > 0 && trimmed[0] == '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return err
		}
		*v = NewText(s)
		return nil
	default:
		if bytes.ContainsAny(trimmed, ".eE") {
			var f float64
			if err := json.Unmarshal(trimmed, &f); err != nil {
				return err
			}
			*v = NewFloat(f)
			return nil
		}
		var i int64
		if err := json.Unmarshal(trimmed, &i); err != nil {
			return err
		}
		*v = NewInteger(i)
		return nil
	}
}
