package types

import (
	"encoding/json"
	"fmt"

	"github.com/mr-tron/base58"
)

// AddressSize is the length of an address hash in bytes.
const AddressSize = 32

// P2PKHPrefix is the lockup-script type byte prepended to a public key hash
// in the string form of an address.
const P2PKHPrefix byte = 0x00

// Address is the blake2b-256 hash of a compressed public key.
type Address [AddressSize]byte

// IsZero returns true if the address is all zeros.
func (a Address) IsZero() bool {
	return a == Address{}
}

// String returns the base58 form: base58(prefix || hash).
func (a Address) String() string {
	buf := make([]byte, 0, AddressSize+1)
	buf = append(buf, P2PKHPrefix)
	buf = append(buf, a[:]...)
	return base58.Encode(buf)
}

// Short returns the first n characters of the string form, for display.
func (a Address) Short(n int) string {
	s := a.String()
	if n >= len(s) {
		return s
	}
	return s[:n]
}

// MarshalJSON encodes the address as its base58 string.
func (a Address) MarshalJSON() ([]byte, error) {
	return json.Marshal(a.String())
}

// UnmarshalJSON decodes a base58 address string. An empty string decodes to
// the zero address, which is how contract inputs without an owner arrive.
func (a *Address) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	if s == "" {
		*a = Address{}
		return nil
	}
	parsed, err := ParseAddress(s)
	if err != nil {
		return err
	}
	*a = parsed
	return nil
}

// ParseAddress parses a base58 P2PKH address string.
func ParseAddress(s string) (Address, error) {
	if s == "" {
		return Address{}, fmt.Errorf("empty address")
	}
	raw, err := base58.Decode(s)
	if err != nil {
		return Address{}, fmt.Errorf("invalid base58 address: %w", err)
	}
	if len(raw) != AddressSize+1 {
		return Address{}, fmt.Errorf("address must be %d bytes, got %d", AddressSize+1, len(raw))
	}
	if raw[0] != P2PKHPrefix {
		return Address{}, fmt.Errorf("unsupported address type 0x%02x", raw[0])
	}
	var a Address
	copy(a[:], raw[1:])
	return a, nil
}

// AddressSet is a set of address hashes.
type AddressSet map[Address]struct{}

// NewAddressSet builds a set from the given addresses.
func NewAddressSet(addrs ...Address) AddressSet {
	s := make(AddressSet, len(addrs))
	for _, a := range addrs {
		s[a] = struct{}{}
	}
	return s
}

// Has reports whether a is in the set.
func (s AddressSet) Has(a Address) bool {
	_, ok := s[a]
	return ok
}
