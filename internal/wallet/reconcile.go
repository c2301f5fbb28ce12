package wallet

import (
	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
)

// Reconcile joins derived key pairs with stored metadata by index. Every pair
// must have a record; a missing one fails the whole call with a
// ReconciliationError. Records are upgraded first and missing colors are
// filled in from colors.
func Reconcile(pairs []KeyPair, records []StoredMetadata, colors Colorer) ([]Address, error) {
	if colors == nil {
		colors = RandomColors{}
	}

	byIndex := make(map[types.AddressIndex]StoredMetadata, len(records))
	for _, rec := range records {
		byIndex[rec.Index] = rec
	}

	out := make([]Address, 0, len(pairs))
	for _, kp := range pairs {
		rec, ok := byIndex[kp.Index]
		if !ok {
			return nil, &ReconciliationError{Index: kp.Index, Err: ErrMissingMetadata}
		}
		md, needsColor := UpgradeMetadata(rec)
		if needsColor {
			md.Color = colors.Color(kp.Hash)
		}
		out = append(out, NewAddress(kp, md))
	}
	return out, nil
}

// Restore rebuilds addresses from stored metadata. It derives exactly the
// indexes the records name and joins them back. Empty records restore
// nothing and touch no key material.
func Restore(seed Seed, records []StoredMetadata, colors Colorer) ([]Address, error) {
	if len(records) == 0 {
		return nil, nil
	}
	indexes := make([]types.AddressIndex, len(records))
	for i, rec := range records {
		indexes[i] = rec.Index
	}
	pairs, err := DeriveIndexes(seed, indexes)
	if err != nil {
		return nil, err
	}
	return Reconcile(pairs, records, colors)
}
