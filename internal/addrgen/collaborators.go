package addrgen

import (
	"context"
	"errors"
	"sync"

	"github.com/Klingon-tech/klingnet-groupwallet/internal/wallet"
)

// ErrSeedNotFound is returned by a SeedProvider that has no seed for a wallet.
var ErrSeedNotFound = errors.New("seed not found")

// SeedProvider hands out the seed of a wallet.
type SeedProvider interface {
	Seed(ctx context.Context, walletID string) (wallet.Seed, error)
}

// MetadataStore loads and persists address metadata per wallet.
type MetadataStore interface {
	Load(walletID string) ([]wallet.StoredMetadata, error)
	SaveAddresses(walletID string, addrs []wallet.Address) error
}

// Listener observes long-running address operations.
type Listener interface {
	DiscoveryStarted(enableLoading bool)
	DiscoveryFinished(enableLoading bool)
	RestorationStarted()
	AddressesRestored(addrs []wallet.Address)
}

// NopListener ignores every event.
type NopListener struct{}

func (NopListener) DiscoveryStarted(bool) {}
func (NopListener) DiscoveryFinished(bool) {}
func (NopListener) RestorationStarted() {}
func (NopListener) AddressesRestored([]wallet.Address) {}

// MemorySeeds is a SeedProvider holding seeds in memory for the lifetime of
// a session.
type MemorySeeds struct {
	mu    sync.RWMutex
	seeds map[string]wallet.Seed
}

// NewMemorySeeds creates an empty provider.
func NewMemorySeeds() *MemorySeeds {
	return &MemorySeeds{seeds: make(map[string]wallet.Seed)}
}

// Add stores a copy of seed for walletID.
func (m *MemorySeeds) Add(walletID string, seed wallet.Seed) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seeds[walletID] = seed.Clone()
}

// AddMnemonic derives and stores the seed of a mnemonic.
func (m *MemorySeeds) AddMnemonic(walletID, mnemonic, passphrase string) error {
	seed, err := wallet.SeedFromMnemonic(mnemonic, passphrase)
	if err != nil {
		return err
	}
	m.Add(walletID, seed)
	seed.Zero()
	return nil
}

// Remove wipes and forgets the seed of walletID.
func (m *MemorySeeds) Remove(walletID string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if seed, ok := m.seeds[walletID]; ok {
		seed.Zero()
		delete(m.seeds, walletID)
	}
}

// Seed implements SeedProvider. The returned seed is a copy.
func (m *MemorySeeds) Seed(_ context.Context, walletID string) (wallet.Seed, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seed, ok := m.seeds[walletID]
	if !ok {
		return nil, ErrSeedNotFound
	}
	return seed.Clone(), nil
}
