package txinfo

import (
	"fmt"
	"math/big"
	"time"

	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// Direction is the side of a transaction the reference address is on.
type Direction string

// InfoType is the presentation category of a transaction.
type InfoType string

const (
	DirectionIn  Direction = "in"
	DirectionOut Direction = "out"

	InfoIn      InfoType = "in"
	InfoOut     InfoType = "out"
	InfoMove    InfoType = "move"
	InfoPending InfoType = "pending"
)

// Classification is the effect of a transaction on one address. Amount and
// token amounts are magnitudes; Direction carries the sign.
type Classification struct {
	Direction Direction
	InfoType  InfoType
	// Amount is None only for a pending transaction with no declared amount.
	Amount   fn.Option[*big.Int]
	Tokens   []types.AssetAmount
	LockTime fn.Option[time.Time]
	Outputs  []Output
}

// Classify computes the classification of tx for ref. known is the set of all
// wallet addresses and decides whether a transfer is internal. With
// showInternalInflows set, internal transfers into ref are shown as inflows
// instead of moves.
func Classify(tx *Transaction, ref types.Address, known types.AddressSet,
	showInternalInflows bool) (*Classification, error) {

	if tx.IsPending() {
		return classifyPending(tx)
	}

	refStr := ref.String()
	alph, tokens, err := amountDeltas(tx, refStr)
	if err != nil {
		return nil, fmt.Errorf("tx %s: %w", tx.Hash, err)
	}

	c := &Classification{
		Amount:   fn.Some(new(big.Int).Abs(alph)),
		Tokens:   make([]types.AssetAmount, len(tokens)),
		LockTime: maxLockTime(tx.Outputs),
		Outputs:  tx.Outputs,
	}
	for i, t := range tokens {
		c.Tokens[i] = types.AssetAmount{ID: t.ID, Amount: new(big.Int).Abs(t.Amount)}
	}

	if IsConsolidation(tx) {
		c.Direction = DirectionOut
		c.InfoType = InfoMove
		return c, nil
	}

	c.Direction = DirectionIn
	if alph.Sign() < 0 {
		c.Direction = DirectionOut
	}

	internal := hasOnlyOutputsWith(tx.Outputs, known)
	switch {
	case internal && !showInternalInflows:
		c.InfoType = InfoMove
	case internal && c.Direction == DirectionOut:
		c.InfoType = InfoMove
	default:
		c.InfoType = InfoType(c.Direction)
	}
	return c, nil
}

func classifyPending(tx *Transaction) (*Classification, error) {
	c := &Classification{
		Direction: DirectionOut,
		InfoType:  InfoPending,
		Amount:    fn.None[*big.Int](),
		LockTime:  fn.None[time.Time](),
	}
	// An empty declared amount is treated as absent.
	if tx.Amount != nil && *tx.Amount != "" {
		amount, err := parseAmount(*tx.Amount)
		if err != nil {
			return nil, fmt.Errorf("pending tx %s: %w", tx.Hash, err)
		}
		c.Amount = fn.Some(amount)
	}
	if tx.LockTime != nil {
		c.LockTime = fn.Some(time.UnixMilli(*tx.LockTime).UTC())
	}
	return c, nil
}

// amountDeltas returns the signed native and per-token change of addr's
// holdings. Tokens are listed in order of first appearance, outputs before
// inputs.
func amountDeltas(tx *Transaction, addr string) (*big.Int, []types.AssetAmount, error) {
	alph := new(big.Int)
	var tokens []types.AssetAmount
	pos := make(map[types.TokenID]int)

	add := func(id types.TokenID, v *big.Int) {
		i, ok := pos[id]
		if !ok {
			pos[id] = len(tokens)
			tokens = append(tokens, types.AssetAmount{ID: id, Amount: new(big.Int)})
			i = len(tokens) - 1
		}
		tokens[i].Amount.Add(tokens[i].Amount, v)
	}

	for _, out := range tx.Outputs {
		if out.Address != addr {
			continue
		}
		v, err := parseAmount(out.AttoAlphAmount)
		if err != nil {
			return nil, nil, err
		}
		alph.Add(alph, v)
		for _, t := range out.Tokens {
			tv, err := parseAmount(t.Amount)
			if err != nil {
				return nil, nil, err
			}
			add(t.ID, tv)
		}
	}
	for _, in := range tx.Inputs {
		if in.Address != addr {
			continue
		}
		v, err := parseAmount(in.AttoAlphAmount)
		if err != nil {
			return nil, nil, err
		}
		alph.Sub(alph, v)
		for _, t := range in.Tokens {
			tv, err := parseAmount(t.Amount)
			if err != nil {
				return nil, nil, err
			}
			add(t.ID, tv.Neg(tv))
		}
	}
	return alph, tokens, nil
}

// IsConsolidation reports whether tx moves funds from exactly one address
// back to that same address only.
func IsConsolidation(tx *Transaction) bool {
	ins := uniqueAddresses(len(tx.Inputs), func(i int) string { return tx.Inputs[i].Address })
	outs := uniqueAddresses(len(tx.Outputs), func(i int) string { return tx.Outputs[i].Address })
	return len(ins) == 1 && len(outs) == 1 && ins[0] == outs[0]
}

func uniqueAddresses(n int, at func(int) string) []string {
	seen := make(map[string]struct{}, n)
	var out []string
	for i := 0; i < n; i++ {
		a := at(i)
		if a == "" {
			continue
		}
		if _, ok := seen[a]; ok {
			continue
		}
		seen[a] = struct{}{}
		out = append(out, a)
	}
	return out
}

// hasOnlyOutputsWith reports whether every output pays an address in known.
// A transaction without outputs qualifies.
func hasOnlyOutputsWith(outputs []Output, known types.AddressSet) bool {
	for _, out := range outputs {
		if out.Address == "" {
			return false
		}
		addr, err := types.ParseAddress(out.Address)
		if err != nil || !known.Has(addr) {
			return false
		}
	}
	return true
}

// maxLockTime returns the latest output lock time, or None when no output is
// locked.
func maxLockTime(outputs []Output) fn.Option[time.Time] {
	var latest int64
	for _, out := range outputs {
		if out.LockTime > latest {
			latest = out.LockTime
		}
	}
	if latest == 0 {
		return fn.None[time.Time]()
	}
	return fn.Some(time.UnixMilli(latest).UTC())
}
