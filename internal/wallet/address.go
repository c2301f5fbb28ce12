package wallet

import (
	"math/big"

	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
)

// TokenBalance is the balance of one token held by an address.
type TokenBalance struct {
	ID            types.TokenID
	Balance       *big.Int
	LockedBalance *big.Int
}

// ChainState is the live ledger state of an address. It is filled in by the
// network sync layer and left zero by derivation.
type ChainState struct {
	Balance       *big.Int
	LockedBalance *big.Int
	Tokens        []TokenBalance
	TxHashes      []types.Hash
}

// Address is a derived key pair decorated with its metadata and chain state.
type Address struct {
	KeyPair
	Label     string
	Color     string
	IsDefault bool
	State     ChainState
}

// NewAddress attaches metadata to a key pair. The metadata index is ignored in
// favor of the key pair's.
func NewAddress(kp KeyPair, md AddressMetadata) Address {
	return Address{
		KeyPair:   kp,
		Label:     md.Label,
		Color:     md.Color,
		IsDefault: md.IsDefault,
	}
}

// Metadata returns the persisted part of the address.
func (a Address) Metadata() AddressMetadata {
	return AddressMetadata{
		Index:     a.Index,
		Label:     a.Label,
		Color:     a.Color,
		IsDefault: a.IsDefault,
	}
}
