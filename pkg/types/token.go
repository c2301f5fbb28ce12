package types

import "math/big"

// AssetAmount is an amount of a single asset. Amount is never nil once built
// by the classifier.
type AssetAmount struct {
	ID     TokenID  `json:"id"`
	Amount *big.Int `json:"amount"`
}
