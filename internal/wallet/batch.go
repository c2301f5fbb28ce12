package wallet

import (
	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// OnePerGroup derives one fresh address for each requested group, in request
// order. Every group searches from index zero against a skip set that starts
// as skip and grows with each index handed out, so results never collide with
// skip or with each other. The caller's skip set is not modified.
//
// Duplicate groups are collapsed to their first occurrence. A nil or empty
// groups slice means every group.
func (d *Deriver) OnePerGroup(groups []types.Group, skip types.IndexSet) ([]KeyPair, error) {
	if len(groups) == 0 {
		groups = types.AllGroups()
	}

	seen := make(map[types.Group]struct{}, len(groups))
	ordered := make([]types.Group, 0, len(groups))
	for _, g := range groups {
		if !g.Valid() {
			return nil, &DerivationError{Group: g, HasGroup: true, Err: ErrInvalidGroup}
		}
		if _, dup := seen[g]; dup {
			continue
		}
		seen[g] = struct{}{}
		ordered = append(ordered, g)
	}

	taken := skip.Clone()
	pairs := make([]KeyPair, 0, len(ordered))
	for _, g := range ordered {
		kp, err := d.DeriveNext(fn.Some(g), 0, taken)
		if err != nil {
			return nil, err
		}
		taken.Add(kp.Index)
		pairs = append(pairs, kp)
	}
	return pairs, nil
}

// DeriveOnePerGroup is the seed-level form of Deriver.OnePerGroup.
func DeriveOnePerGroup(seed Seed, groups []types.Group, skip types.IndexSet,
	opts ...DeriverOption) ([]KeyPair, error) {

	d, err := NewDeriver(seed, opts...)
	if err != nil {
		return nil, err
	}
	return d.OnePerGroup(groups, skip)
}

// DeriveIndexes derives the key pair at each index, preserving input order.
// Duplicate indexes yield duplicate pairs.
func (d *Deriver) DeriveIndexes(indexes []types.AddressIndex) ([]KeyPair, error) {
	pairs := make([]KeyPair, 0, len(indexes))
	for _, idx := range indexes {
		kp, err := d.DeriveAt(idx)
		if err != nil {
			return nil, err
		}
		pairs = append(pairs, kp)
	}
	return pairs, nil
}

// DeriveIndexes is the seed-level form of Deriver.DeriveIndexes.
func DeriveIndexes(seed Seed, indexes []types.AddressIndex) ([]KeyPair, error) {
	d, err := NewDeriver(seed)
	if err != nil {
		return nil, err
	}
	return d.DeriveIndexes(indexes)
}
