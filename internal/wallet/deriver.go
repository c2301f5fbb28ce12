package wallet

import (
	"errors"

	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/tyler-smith/go-bip32"
)

// errHardenedIndex rejects indexes that would leave the non-hardened range.
var errHardenedIndex = errors.New("index is in the hardened range")

// errBadChain rejects an external chain key that cannot derive address keys.
var errBadChain = errors.New("external chain key is not a private depth-4 key")

// externalChainDepth is the depth of m/44'/1234'/account'/0.
const externalChainDepth = 4

// DefaultMaxSearchIndex bounds every ascending index search. A group is hit
// with probability 1/TotalGroups per index, so reaching it means the request
// is unsatisfiable rather than unlucky.
const DefaultMaxSearchIndex types.AddressIndex = 1 << 20

// MaxNonHardenedIndex is the highest index DeriveAt accepts.
const MaxNonHardenedIndex = types.AddressIndex(bip32.FirstHardenedChild - 1)

// Deriver is the key derivation unit: it maps (seed, index) to a KeyPair and
// searches the index space for group-matching keys. It holds no mutable state,
// so one Deriver may be shared between goroutines.
type Deriver struct {
	chain    *HDKey
	maxIndex types.AddressIndex
}

// DeriverOption configures a Deriver.
type DeriverOption func(*Deriver)

// WithMaxSearchIndex sets the highest index a search may try.
func WithMaxSearchIndex(max types.AddressIndex) DeriverOption {
	return func(d *Deriver) {
		if max > 0 {
			d.maxIndex = max
		}
	}
}

// NewDeriver prepares a deriver for the external chain of the default account.
func NewDeriver(seed Seed, opts ...DeriverOption) (*Deriver, error) {
	master, err := NewMasterKey(seed)
	if err != nil {
		return nil, &DerivationError{Err: err}
	}
	chain, err := master.ExternalChain(DefaultAccount)
	if err != nil {
		return nil, &DerivationError{Err: err}
	}
	if !chain.IsPrivate() || chain.Depth() != externalChainDepth {
		return nil, &DerivationError{Err: errBadChain}
	}
	d := &Deriver{chain: chain, maxIndex: DefaultMaxSearchIndex}
	for _, opt := range opts {
		opt(d)
	}

	// The first address key must sign for its own public key before the
	// deriver hands out anything.
	first, err := d.DeriveAt(0)
	if err != nil {
		return nil, err
	}
	if err := first.Check(); err != nil {
		return nil, &DerivationError{Err: err}
	}
	return d, nil
}

// MaxSearchIndex returns the configured search bound.
func (d *Deriver) MaxSearchIndex() types.AddressIndex {
	return d.maxIndex
}

// DeriveAt derives the key pair at exactly index.
func (d *Deriver) DeriveAt(index types.AddressIndex) (KeyPair, error) {
	if index > MaxNonHardenedIndex {
		return KeyPair{}, &DerivationError{Index: index, Err: errHardenedIndex}
	}
	child, err := d.chain.DeriveChild(uint32(index))
	if err != nil {
		return KeyPair{}, &DerivationError{Index: index, Err: err}
	}
	kp, err := keyPairFromHD(index, child)
	if err != nil {
		return KeyPair{}, &DerivationError{Index: index, Err: err}
	}
	return kp, nil
}

// DeriveNext searches ascending from start for the first index not in skip
// whose group matches group (any group when None). skip is only read.
func (d *Deriver) DeriveNext(group fn.Option[types.Group], start types.AddressIndex,
	skip types.IndexSet) (KeyPair, error) {

	target, hasTarget := group.UnwrapOr(0), group.IsSome()
	if hasTarget && !target.Valid() {
		return KeyPair{}, &DerivationError{
			Index: start, Group: target, HasGroup: true, Err: ErrInvalidGroup,
		}
	}

	for i := uint64(start); i <= uint64(d.maxIndex); i++ {
		index := types.AddressIndex(i)
		if skip.Has(index) {
			continue
		}
		kp, err := d.DeriveAt(index)
		if err != nil {
			// go-bip32 rejects the rare index whose tweak is out of range;
			// the next index is as good as this one.
			continue
		}
		if hasTarget && kp.Group != target {
			continue
		}
		return kp, nil
	}

	return KeyPair{}, &DerivationError{
		Index: d.maxIndex, Group: target, HasGroup: hasTarget, Err: ErrSearchExhausted,
	}
}

// Derive is the single-address entry point. With an index it derives that
// index directly and checks the optional group against it; without one it
// searches from zero.
func (d *Deriver) Derive(index fn.Option[types.AddressIndex], group fn.Option[types.Group],
	skip types.IndexSet) (KeyPair, error) {

	if index.IsNone() {
		return d.DeriveNext(group, 0, skip)
	}

	idx := index.UnwrapOr(0)
	kp, err := d.DeriveAt(idx)
	if err != nil {
		return KeyPair{}, err
	}
	if group.IsSome() && kp.Group != group.UnwrapOr(0) {
		return KeyPair{}, &DerivationError{
			Index: idx, Group: group.UnwrapOr(0), HasGroup: true, Err: ErrGroupMismatch,
		}
	}
	return kp, nil
}

// Derive is a convenience wrapper building a one-shot Deriver for seed.
func Derive(seed Seed, index fn.Option[types.AddressIndex], group fn.Option[types.Group],
	skip types.IndexSet, opts ...DeriverOption) (KeyPair, error) {

	d, err := NewDeriver(seed, opts...)
	if err != nil {
		return KeyPair{}, err
	}
	return d.Derive(index, group, skip)
}
