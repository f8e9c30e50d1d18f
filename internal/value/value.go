// Package value holds the Lunaris runtime Value type: the tagged union
// that flows through row serialization, the VM register file, and the
// wire protocol's JSON result rows.
//
// Grounded on original_source/common/src/value.rs.
package value

import "fmt"

// Kind discriminates a Value's variant.
type Kind int

const (
	Null Kind = iota
	Integer
	Float
	Boolean
	Text
)

// Value is a tagged union over Null, Integer, Float, Boolean and Text.
// Only the field matching Kind is meaningful.
type Value struct {
	Kind Kind
	I    int64
	F    float64
	B    bool
	S    string
}

func NewNull() Value           { return Value{Kind: Null} }
func NewInteger(i int64) Value { return Value{Kind: Integer, I: i} }
func NewFloat(f float64) Value { return Value{Kind: Float, F: f} }
func NewBoolean(b bool) Value  { return Value{Kind: Boolean, B: b} }
func NewText(s string) Value   { return Value{Kind: Text, S: s} }

func (v Value) IsNull() bool { return v.Kind == Null }

func (v Value) String() string {
	switch v.Kind {
	case Null:
		return "NULL"
	case Integer:
		return fmt.Sprintf("%d", v.I)
	case Float:
		return fmt.Sprintf("%v", v.F)
	case Boolean:
		if v.B {
			return "true"
		}
		return "false"
	case Text:
		return v.S
	default:
		return ""
	}
}

// Ordering mirrors Rust's std::cmp::Ordering, with an explicit "incomparable"
// state rather than a thrown error — see spec.md §9's note on duck-typed
// comparison.
type Ordering int

const (
	Less Ordering = iota - 1
	Equal
	Greater
)

// Compare returns the relation between a and b, or ok=false when the pair
// is incomparable (any Null, or mismatched non-numeric variants).
func Compare(a, b Value) (ord Ordering, ok bool) {
	switch {
	case a.Kind == Integer && b.Kind == Integer:
		return cmpInt64(a.I, b.I), true
	case a.Kind == Float && b.Kind == Float:
		return cmpFloat64(a.F, b.F), true
	case a.Kind == Integer && b.Kind == Float:
		return cmpFloat64(float64(a.I), b.F), true
	case a.Kind == Float && b.Kind == Integer:
		return cmpFloat64(a.F, float64(b.I)), true
	case a.Kind == Text && b.Kind == Text:
		return cmpString(a.S, b.S), true
	case a.Kind == Boolean && b.Kind == Boolean:
		return cmpBool(a.B, b.B), true
	default:
		return 0, false
	}
}

func cmpInt64(a, b int64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func cmpFloat64(a, b float64) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func cmpString(a, b string) Ordering {
	switch {
	case a < b:
		return Less
	case a > b:
		return Greater
	default:
		return Equal
	}
}

func cmpBool(a, b bool) Ordering {
	switch {
	case a == b:
		return Equal
	case !a && b:
		return Less
	default:
		return Greater
	}
}
