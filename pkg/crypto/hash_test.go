package crypto

import (
	"encoding/hex"
	"testing"

	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
)

func hexToHash(t *testing.T, s string) types.Hash {
	t.Helper()
	h, err := types.HexToHash(s)
	if err != nil {
		t.Fatalf("bad hex: %v", err)
	}
	return h
}

func TestHash(t *testing.T) {
	tests := []struct {
		name  string
		input []byte
		want  string
	}{
		{
			name:  "empty input",
			input: []byte{},
			want:  "0e5751c026e543b2e8ab2eb06099daa1d1e5df47778f7787faab45cdf12fe3a8",
		},
		{
			name:  "abc",
			input: []byte("abc"),
			want:  "bddd813c634239723171ef3fee98579b94964e3bb1cb3e427262c8c068d52319",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Hash(tt.input)
			want := hexToHash(t, tt.want)
			if got != want {
				t.Errorf("Hash(%q) = %x, want %x", tt.input, got, want)
			}
		})
	}
}

func TestAddressFromPubKey(t *testing.T) {
	pub, _ := hex.DecodeString("0279be667ef9dcbbac55a06295ce870b07029bfcdb2dce28d959f2815b16f81798")
	addr := AddressFromPubKey(pub)
	if addr != types.Address(Hash(pub)) {
		t.Error("address should be the blake2b hash of the public key")
	}
}

func TestScriptHint_LowBitSet(t *testing.T) {
	for i := 0; i < 64; i++ {
		addr := types.Address(Hash([]byte{byte(i)}))
		if ScriptHint(addr)&1 != 1 {
			t.Fatalf("ScriptHint() low bit not set for input %d", i)
		}
	}
}

func TestScriptHint_Djb2(t *testing.T) {
	var addr types.Address
	// djb2 over 32 zero bytes: h = h*33 repeated 32 times, starting at 5381.
	var want uint32 = 5381
	for i := 0; i < types.AddressSize; i++ {
		want *= 33
	}
	want |= 1
	if got := ScriptHint(addr); got != want {
		t.Errorf("ScriptHint(zero) = %d, want %d", got, want)
	}
}

func TestGroupOf_RangeAndSpread(t *testing.T) {
	seen := make(map[types.Group]int)
	for i := 0; i < 256; i++ {
		g := GroupOf(types.Address(Hash([]byte{byte(i), 0x7f})))
		if !g.Valid() {
			t.Fatalf("GroupOf() = %d out of range", g)
		}
		seen[g]++
	}
	if len(seen) != types.TotalGroups {
		t.Errorf("expected all %d groups to appear, got %v", types.TotalGroups, seen)
	}
}

func TestGroupOf_Deterministic(t *testing.T) {
	addr := types.Address(Hash([]byte("group")))
	if GroupOf(addr) != GroupOf(addr) {
		t.Error("GroupOf is not deterministic")
	}
}
