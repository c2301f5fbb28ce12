// Package crypto provides the hashing, grouping and key primitives used to
// turn derived key material into group-assigned addresses.
package crypto

import (
	"encoding/binary"

	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
	"golang.org/x/crypto/blake2b"
)

// Hash computes a BLAKE2b-256 hash of the input data.
func Hash(data []byte) types.Hash {
	return blake2b.Sum256(data)
}

// AddressFromPubKey derives an address from a compressed public key.
// Address = BLAKE2b-256(compressed_pubkey).
func AddressFromPubKey(pubKey []byte) types.Address {
	return types.Address(Hash(pubKey))
}

// ScriptHint returns the djb2 hash of the address bytes with the low bit set.
// Arithmetic wraps at 32 bits.
func ScriptHint(addr types.Address) uint32 {
	var h uint32 = 5381
	for _, b := range addr {
		h = (h << 5) + h + uint32(b)
	}
	return h | 1
}

// GroupOf returns the group an address belongs to: the xor of the four
// big-endian bytes of its script hint, modulo TotalGroups.
func GroupOf(addr types.Address) types.Group {
	var buf [4]byte
	binary.BigEndian.PutUint32(buf[:], ScriptHint(addr))
	x := buf[0] ^ buf[1] ^ buf[2] ^ buf[3]
	return types.Group(int(x) % types.TotalGroups)
}
