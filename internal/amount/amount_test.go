package amount

import (
	"math"
	"testing"
)

func TestParseAda(t *testing.T) {
	cases := []struct {
		in   string
		want int64
	}{
		{"10", 10_000_000},
		{"10.0", 10_000_000},
		{"0.5", 500_000},
		{"1,5", 1_500_000},
		{" 2.25 ", 2_250_000},
		{"0.000001", 1},
		{"1.0000005", 1_000_001},
	}
	for _, c := range cases {
		got, err := ParseAda(c.in)
		if err != nil {
			t.Fatalf("%q: unexpected err: %v", c.in, err)
		}
		if got != c.want {
			t.Fatalf("%q: expected %d, got=%d", c.in, c.want, got)
		}
	}

	for _, bad := range []string{"0", "-1", "abc", "", "NaN", "0.0000001", "1e30"} {
		if _, err := ParseAda(bad); err == nil {
			t.Fatalf("expected error for %q", bad)
		}
	}
}

func TestFromAda(t *testing.T) {
	got, err := FromAda(10.0)
	if err != nil || got != 10_000_000 {
		t.Fatalf("expected 10000000, got=%d err=%v", got, err)
	}

	got, err = FromAda(0.1 + 0.2)
	if err != nil || got != 300_000 {
		t.Fatalf("expected 300000, got=%d err=%v", got, err)
	}

	for _, bad := range []float64{0, -3, math.NaN(), math.Inf(1), math.Inf(-1)} {
		if _, err := FromAda(bad); err == nil {
			t.Fatalf("expected error for %v", bad)
		}
	}
}

func TestRoundTrip(t *testing.T) {
	for _, x := range []float64{0.000001, 0.1, 1.234567, 10, 42.5, 15000, 123456.789012} {
		l, err := FromAda(x)
		if err != nil {
			t.Fatalf("%v: %v", x, err)
		}
		if back := ToAda(l); math.Abs(back-x) > 1e-6 {
			t.Fatalf("%v: round trip gave %v", x, back)
		}
	}
}

func TestFormatAda(t *testing.T) {
	if got := FormatAda(10_000_000, 2); got != "10.00" {
		t.Fatalf("expected 10.00, got %q", got)
	}
	if got := FormatAda(1_234_567, 6); got != "1.234567" {
		t.Fatalf("expected 1.234567, got %q", got)
	}
	if got := FormatAda(500_000, 2); got != "0.50" {
		t.Fatalf("expected 0.50, got %q", got)
	}
}
