package addrgen

import (
	"math/big"
	"sort"
	"strings"
	"sync"

	"github.com/Klingon-tech/klingnet-groupwallet/internal/txinfo"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/wallet"
	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
	"github.com/lightningnetwork/lnd/fn/v2"
)

// AlphID is the asset id of the native asset.
var AlphID types.TokenID

// AddressBook is the in-memory set of wallet addresses, keyed by index.
type AddressBook struct {
	mu    sync.RWMutex
	addrs map[types.AddressIndex]wallet.Address
}

// NewAddressBook creates an empty book.
func NewAddressBook() *AddressBook {
	return &AddressBook{addrs: make(map[types.AddressIndex]wallet.Address)}
}

// Add inserts addresses, replacing any held under the same index.
func (b *AddressBook) Add(addrs ...wallet.Address) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, a := range addrs {
		b.addrs[a.Index] = a
	}
}

// Len returns the number of addresses.
func (b *AddressBook) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.addrs)
}

// All returns the addresses in ascending index order.
func (b *AddressBook) All() []wallet.Address {
	b.mu.RLock()
	out := make([]wallet.Address, 0, len(b.addrs))
	for _, a := range b.addrs {
		out = append(out, a)
	}
	b.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Indexes returns the set of held indexes.
func (b *AddressBook) Indexes() types.IndexSet {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := make(types.IndexSet, len(b.addrs))
	for i := range b.addrs {
		s.Add(i)
	}
	return s
}

// Hashes returns the set of held address hashes.
func (b *AddressBook) Hashes() types.AddressSet {
	b.mu.RLock()
	defer b.mu.RUnlock()
	s := make(types.AddressSet, len(b.addrs))
	for _, a := range b.addrs {
		s[a.Hash] = struct{}{}
	}
	return s
}

// Lookup returns the address with the given hash.
func (b *AddressBook) Lookup(hash types.Address) fn.Option[wallet.Address] {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for _, a := range b.addrs {
		if a.Hash == hash {
			return fn.Some(a)
		}
	}
	return fn.None[wallet.Address]()
}

// Default returns the address flagged as default, if any.
func (b *AddressBook) Default() fn.Option[wallet.Address] {
	for _, a := range b.All() {
		if a.IsDefault {
			return fn.Some(a)
		}
	}
	return fn.None[wallet.Address]()
}

// SetDefault flags the address at index as default and clears the flag on
// every other address. It reports whether index is held.
func (b *AddressBook) SetDefault(index types.AddressIndex) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, ok := b.addrs[index]; !ok {
		return false
	}
	for i, a := range b.addrs {
		a.IsDefault = i == index
		b.addrs[i] = a
	}
	return true
}

func orZero(v *big.Int) *big.Int {
	if v == nil {
		return new(big.Int)
	}
	return v
}

// AvailableBalance is the native balance minus the locked part.
func AvailableBalance(a wallet.Address) *big.Int {
	return new(big.Int).Sub(orZero(a.State.Balance), orZero(a.State.LockedBalance))
}

// AssetsAvailableBalance lists the available balance of every asset held by
// a, native asset first.
func AssetsAvailableBalance(a wallet.Address) []types.AssetAmount {
	out := make([]types.AssetAmount, 0, len(a.State.Tokens)+1)
	out = append(out, types.AssetAmount{ID: AlphID, Amount: AvailableBalance(a)})
	for _, t := range a.State.Tokens {
		out = append(out, types.AssetAmount{
			ID:     t.ID,
			Amount: new(big.Int).Sub(orZero(t.Balance), orZero(t.LockedBalance)),
		})
	}
	return out
}

// AssetAmountsWithinAvailableBalance reports whether a can cover every
// amount. Nil or zero amounts are always covered; an asset a does not hold
// is never covered.
func AssetAmountsWithinAvailableBalance(a wallet.Address, amounts []types.AssetAmount) bool {
	available := make(map[types.TokenID]*big.Int)
	for _, aa := range AssetsAvailableBalance(a) {
		available[aa.ID] = aa.Amount
	}
	for _, want := range amounts {
		if want.Amount == nil || want.Amount.Sign() == 0 {
			continue
		}
		have, ok := available[want.ID]
		if !ok || have.Sign() == 0 {
			return false
		}
		if want.Amount.Cmp(have) > 0 {
			return false
		}
	}
	return true
}

// DisplayName is the label, or a shortened hash for unlabeled addresses.
func DisplayName(a wallet.Address) string {
	if a.Label != "" {
		return a.Label
	}
	return a.Hash.Short(10) + "..."
}

// FilterAddresses keeps addresses whose label or hash contains text, ignoring
// case. Queries shorter than two characters match everything.
func FilterAddresses(addrs []wallet.Address, text string) []wallet.Address {
	if len(text) < 2 {
		return addrs
	}
	q := strings.ToLower(text)
	var out []wallet.Address
	for _, a := range addrs {
		if strings.Contains(strings.ToLower(a.Label), q) ||
			strings.Contains(strings.ToLower(a.Hash.String()), q) {
			out = append(out, a)
		}
	}
	return out
}

// InitialAddressSettings is the metadata of a wallet's first address.
func InitialAddressSettings(colors wallet.Colorer) wallet.AddressMetadata {
	if colors == nil {
		colors = wallet.RandomColors{}
	}
	return wallet.AddressMetadata{
		IsDefault: true,
		Color:     colors.Color(types.Address{}),
	}
}

// AddressTransaction pairs a transaction with the wallet address it is shown
// under.
type AddressTransaction struct {
	Tx      *txinfo.Transaction
	Address wallet.Address
}

// SelectAddressTransactions pairs txs with the addresses among hashes whose
// history lists them. A pending transaction only pairs with its sender.
func SelectAddressTransactions(addrs []wallet.Address, txs []txinfo.Transaction,
	hashes []types.Address) []AddressTransaction {

	want := types.NewAddressSet(hashes...)
	var out []AddressTransaction
	for i := range txs {
		tx := &txs[i]
		for _, a := range addrs {
			if !want.Has(a.Hash) || !listsTx(a, tx.Hash) {
				continue
			}
			if tx.IsPending() && tx.FromAddress != a.Hash.String() {
				continue
			}
			out = append(out, AddressTransaction{Tx: tx, Address: a})
		}
	}
	return out
}

func listsTx(a wallet.Address, hash types.Hash) bool {
	for _, h := range a.State.TxHashes {
		if h == hash {
			return true
		}
	}
	return false
}
