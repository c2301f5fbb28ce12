// Package txinfo computes the economic effect of a ledger transaction on one
// wallet address.
package txinfo

import (
	"fmt"
	"math/big"

	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
)

// StatusPending marks a transaction that was broadcast by this wallet and is
// not yet confirmed.
const StatusPending = "pending"

// Token is a token amount attached to an input or output.
type Token struct {
	ID     types.TokenID `json:"id"`
	Amount string        `json:"amount"`
}

// Input is a spent output as reported by the explorer. Address is kept in
// its wire form because contract inputs carry non-P2PKH addresses.
type Input struct {
	Address        string  `json:"address,omitempty"`
	AttoAlphAmount string  `json:"attoAlphAmount,omitempty"`
	Tokens         []Token `json:"tokens,omitempty"`
}

// Output is a created output. LockTime is a unix timestamp in milliseconds,
// zero when the output is not locked.
type Output struct {
	Type           string  `json:"type,omitempty"`
	Address        string  `json:"address"`
	AttoAlphAmount string  `json:"attoAlphAmount"`
	Tokens         []Token `json:"tokens,omitempty"`
	LockTime       int64   `json:"lockTime,omitempty"`
	Message        string  `json:"message,omitempty"`
}

// Transaction is either a confirmed explorer transaction or a pending one
// recorded locally when it was sent. Pending transactions set Status and the
// From/To/Amount/LockTime fields; confirmed ones carry inputs and outputs.
type Transaction struct {
	Hash      types.Hash `json:"hash"`
	BlockHash types.Hash `json:"blockHash,omitempty"`
	Timestamp int64      `json:"timestamp"`
	Inputs    []Input    `json:"inputs,omitempty"`
	Outputs   []Output   `json:"outputs,omitempty"`
	GasAmount int64      `json:"gasAmount,omitempty"`
	GasPrice  string     `json:"gasPrice,omitempty"`

	Status      string  `json:"status,omitempty"`
	FromAddress string  `json:"fromAddress,omitempty"`
	ToAddress   string  `json:"toAddress,omitempty"`
	Amount      *string `json:"amount,omitempty"`
	LockTime    *int64  `json:"lockTime,omitempty"`
}

// IsPending reports whether the transaction is a locally tracked pending one.
func (tx *Transaction) IsPending() bool {
	return tx.Status == StatusPending
}

// parseAmount parses a decimal atto amount. Empty means zero.
func parseAmount(s string) (*big.Int, error) {
	if s == "" {
		return new(big.Int), nil
	}
	v, ok := new(big.Int).SetString(s, 10)
	if !ok {
		return nil, fmt.Errorf("invalid amount %q", s)
	}
	return v, nil
}
