package value

import "testing"

func TestCompareNumericCrossKind(t *testing.T) {
	ord, ok := Compare(NewInteger(3), NewFloat(3.5))
	if !ok || ord != Less {
		t.Fatalf("Compare(3, 3.5) = %v, %v", ord, ok)
	}
	ord, ok = Compare(NewFloat(4.0), NewInteger(4))
	if !ok || ord != Equal {
		t.Fatalf("Compare(4.0, 4) = %v, %v", ord, ok)
	}
}

func TestCompareIncomparable(t *testing.T) {
	cases := []struct{ a, b Value }{
		{NewNull(), NewNull()},
		{NewInteger(1), NewNull()},
		{NewText("a"), NewInteger(1)},
		{NewBoolean(true), NewInteger(1)},
	}
	for _, c := range cases {
		if _, ok := Compare(c.a, c.b); ok {
			t.Errorf("Compare(%+v, %+v) should be incomparable", c.a, c.b)
		}
	}
}

func TestCompareText(t *testing.T) {
	ord, ok := Compare(NewText("apple"), NewText("banana"))
	if !ok || ord != Less {
		t.Fatalf("Compare(apple, banana) = %v, %v", ord, ok)
	}
}

func TestCompareBoolean(t *testing.T) {
	ord, ok := Compare(NewBoolean(false), NewBoolean(true))
	if !ok || ord != Less {
		t.Fatalf("Compare(false, true) = %v, %v", ord, ok)
	}
}

func TestIsNull(t *testing.T) {
	if !NewNull().IsNull() {
		t.Fatal("NewNull() should be null")
	}
	if NewInteger(0).IsNull() {
		t.Fatal("NewInteger(0) should not be null")
	}
}

func TestStringFormatting(t *testing.T) {
	cases := []struct {
		v    Value
		want string
	}{
		{NewNull(), "NULL"},
		{NewInteger(42), "42"},
		{NewBoolean(true), "true"},
		{NewText("hi"), "hi"},
	}
	for _, c := range cases {
		if got := c.v.String(); got != c.want {
			t.Errorf("String() = %q, want %q", got, c.want)
		}
	}
}
