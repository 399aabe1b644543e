package amount

import (
	"errors"
	"math/big"
	"testing"
)

func TestParseFormatRoundTrip(t *testing.T) {
	cases := []struct {
		value    string
		decimals uint8
	}{
		{"0", 18},
		{"1", 18},
		{"1", 0},
		{"1000000000000000001", 18}, // needs all 18 fractional digits
		{"9850000000000000000", 18},
		{"12345", 6},
	}

	for _, tc := range cases {
		n, ok := new(big.Int).SetString(tc.value, 10)
		if !ok {
			t.Fatalf("bad test value: %s", tc.value)
		}

		human := Format(n, tc.decimals)
		back, err := Parse(human, tc.decimals)
		if err != nil {
			t.Fatalf("parse %q (decimals=%d): %v", human, tc.decimals, err)
		}
		if back.Cmp(n) != 0 {
			t.Fatalf("round trip mismatch: %s -> %q -> %s", tc.value, human, back.String())
		}
	}
}

func TestParseExact(t *testing.T) {
	n, err := Parse("10", 18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ := new(big.Int).SetString("10000000000000000000", 10)
	if n.Cmp(want) != 0 {
		t.Fatalf("parse mismatch: %s != %s", n, want)
	}

	n, err = Parse("0.000000000000000001", 18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n.Cmp(big.NewInt(1)) != 0 {
		t.Fatalf("smallest unit mismatch: %s", n)
	}

	n, err = Parse("9.85", 18)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want, _ = new(big.Int).SetString("9850000000000000000", 10)
	if n.Cmp(want) != 0 {
		t.Fatalf("parse mismatch: %s != %s", n, want)
	}
}

func TestParseInvalid(t *testing.T) {
	cases := []struct {
		human    string
		decimals uint8
	}{
		{"", 18},
		{"   ", 18},
		{"abc", 18},
		{"-1", 18},
		{"1.2.3", 18},
		{"1.234", 2}, // too many fractional digits
	}

	for _, tc := range cases {
		if _, err := Parse(tc.human, tc.decimals); !errors.Is(err, ErrInvalidAmount) {
			t.Fatalf("expected ErrInvalidAmount for %q, got %v", tc.human, err)
		}
	}
}

func TestParseOrZeroNeverFails(t *testing.T) {
	for _, human := range []string{"", "abc", "-5", "0.123456789", "10"} {
		n := ParseOrZero(human, 2)
		if n == nil {
			t.Fatalf("nil result for %q", human)
		}
		if n.Sign() < 0 {
			t.Fatalf("negative result for %q", human)
		}
	}
}

func TestFormat(t *testing.T) {
	if got := Format(nil, 18); got != "0" {
		t.Fatalf("nil should format as 0, got %q", got)
	}
	if got := Format(new(big.Int), 18); got != "0" {
		t.Fatalf("zero should format as 0, got %q", got)
	}

	n, _ := new(big.Int).SetString("9850000000000000000", 10)
	if got := Format(n, 18); got != "9.85" {
		t.Fatalf("format mismatch: %q", got)
	}

	if got := Format(big.NewInt(1), 18); got != "0.000000000000000001" {
		t.Fatalf("format mismatch: %q", got)
	}
}
