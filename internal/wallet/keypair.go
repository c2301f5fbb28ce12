package wallet

import (
	"bytes"
	"errors"

	"github.com/Klingon-tech/klingnet-groupwallet/pkg/crypto"
	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
)

// KeyPair is the identity of one derived address. Only the deriver produces
// key pairs, and Group is always computed from Hash.
type KeyPair struct {
	Index     types.AddressIndex
	Group     types.Group
	PublicKey []byte
	Hash      types.Address

	privateKey *crypto.PrivateKey
}

// PrivateKey returns the signing handle of the pair.
func (k KeyPair) PrivateKey() *crypto.PrivateKey {
	return k.privateKey
}

// Equal reports whether two pairs describe the same key material.
func (k KeyPair) Equal(o KeyPair) bool {
	if k.Index != o.Index || k.Group != o.Group || k.Hash != o.Hash {
		return false
	}
	if !bytes.Equal(k.PublicKey, o.PublicKey) {
		return false
	}
	if k.privateKey == nil || o.privateKey == nil {
		return k.privateKey == o.privateKey
	}
	return bytes.Equal(k.privateKey.Serialize(), o.privateKey.Serialize())
}

// ErrKeyMismatch means a pair's signing handle does not match its public key.
var ErrKeyMismatch = errors.New("private key does not sign for public key")

// Check signs the pair's address hash with the private handle and verifies
// the signature against PublicKey.
func (k KeyPair) Check() error {
	if k.privateKey == nil {
		return ErrKeyMismatch
	}
	msg := crypto.Hash(k.Hash[:])
	sig, err := k.privateKey.Sign(msg[:])
	if err != nil {
		return err
	}
	if !crypto.VerifySignature(msg[:], sig, k.PublicKey) {
		return ErrKeyMismatch
	}
	return nil
}

// keyPairFromHD builds the pair for an address key at index.
func keyPairFromHD(index types.AddressIndex, key *HDKey) (KeyPair, error) {
	priv, err := key.PrivateKey()
	if err != nil {
		return KeyPair{}, err
	}
	pub := key.PublicKeyBytes()
	hash := crypto.AddressFromPubKey(pub)
	return KeyPair{
		Index:      index,
		Group:      crypto.GroupOf(hash),
		PublicKey:  pub,
		Hash:       hash,
		privateKey: priv,
	}, nil
}

// Indexes returns the indexes of the given pairs in order.
func Indexes(pairs []KeyPair) []types.AddressIndex {
	out := make([]types.AddressIndex, len(pairs))
	for i, p := range pairs {
		out[i] = p.Index
	}
	return out
}
