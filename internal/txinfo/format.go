package txinfo

import (
	"math/big"

	"github.com/shopspring/decimal"
)

// AlphDecimals is the number of decimals of the native asset.
const AlphDecimals = 18

// FormatAmount renders an atto amount with the given number of decimals,
// trimming trailing zeros.
func FormatAmount(atto *big.Int, decimals int32) string {
	if atto == nil {
		return "0"
	}
	return decimal.NewFromBigInt(atto, -decimals).String()
}

// FormatAlph renders an atto-ALPH amount.
func FormatAlph(atto *big.Int) string {
	return FormatAmount(atto, AlphDecimals)
}
