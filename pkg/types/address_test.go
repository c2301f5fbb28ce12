package types

import (
	"encoding/json"
	"testing"
)

func TestAddress_IsZero(t *testing.T) {
	var zero Address
	if !zero.IsZero() {
		t.Error("zero-value Address should be zero")
	}

	nonZero := Address{0x01}
	if nonZero.IsZero() {
		t.Error("non-zero Address should not be zero")
	}
}

func TestAddress_Roundtrip(t *testing.T) {
	a := Address{0x8f, 0x3a, 0x44, 0xb8, 0x05, 0x6c, 0xaf, 0xec}
	a[31] = 0xcd

	parsed, err := ParseAddress(a.String())
	if err != nil {
		t.Fatalf("ParseAddress() error: %v", err)
	}
	if parsed != a {
		t.Errorf("ParseAddress(String()) = %x, want %x", parsed, a)
	}
}

func TestParseAddress_Invalid(t *testing.T) {
	tests := []struct {
		name string
		in   string
	}{
		{"empty", ""},
		{"not base58", "0OIl"},
		{"too short", "1111"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseAddress(tt.in); err == nil {
				t.Errorf("ParseAddress(%q) should fail", tt.in)
			}
		})
	}
}

func TestAddress_JSON(t *testing.T) {
	a := Address{0x42}

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal() error: %v", err)
	}

	var got Address
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("Unmarshal() error: %v", err)
	}
	if got != a {
		t.Errorf("JSON roundtrip = %x, want %x", got, a)
	}

	if err := json.Unmarshal([]byte(`""`), &got); err != nil {
		t.Fatalf("Unmarshal(empty) error: %v", err)
	}
	if !got.IsZero() {
		t.Error("empty string should decode to zero address")
	}
}

func TestAddress_Short(t *testing.T) {
	a := Address{0x42}
	if got := a.Short(10); len(got) != 10 {
		t.Errorf("Short(10) length = %d, want 10", len(got))
	}
	if got := a.Short(1000); got != a.String() {
		t.Errorf("Short(1000) = %q, want full string", got)
	}
}

func TestAddressSet(t *testing.T) {
	a, b := Address{0x01}, Address{0x02}
	s := NewAddressSet(a)
	if !s.Has(a) {
		t.Error("set should contain a")
	}
	if s.Has(b) {
		t.Error("set should not contain b")
	}
}
