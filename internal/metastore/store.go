// Package metastore persists per-address metadata on top of internal/storage,
// one namespace per wallet.
package metastore

import (
	"encoding/binary"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/Klingon-tech/klingnet-groupwallet/internal/log"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/storage"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/wallet"
	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
)

// Key layout: "meta/" + hex(walletID) + "/" + uint32 big-endian index.
// Hex keeps one wallet's namespace from being a prefix of another's, and the
// big-endian index keeps iteration in index order.
const keyPrefix = "meta/"

// Store reads and writes StoredMetadata records.
type Store struct {
	db storage.DB
}

// New creates a store on db. The store does not own db.
func New(db storage.DB) *Store {
	return &Store{db: db}
}

func (s *Store) namespace(walletID string) (*storage.PrefixDB, error) {
	if walletID == "" {
		return nil, wallet.Precondition("wallet identity is required")
	}
	prefix := keyPrefix + hex.EncodeToString([]byte(walletID)) + "/"
	return storage.NewPrefixDB(s.db, []byte(prefix)), nil
}

func indexKey(i types.AddressIndex) []byte {
	var k [4]byte
	binary.BigEndian.PutUint32(k[:], uint32(i))
	return k[:]
}

// Load returns every record of walletID in ascending index order. A wallet
// with no records yields an empty slice.
func (s *Store) Load(walletID string) ([]wallet.StoredMetadata, error) {
	ns, err := s.namespace(walletID)
	if err != nil {
		return nil, err
	}

	var out []wallet.StoredMetadata
	err = ns.ForEach(nil, func(key, value []byte) error {
		if len(key) != 4 {
			return fmt.Errorf("malformed metadata key %x", key)
		}
		var rec wallet.StoredMetadata
		if err := json.Unmarshal(value, &rec); err != nil {
			return fmt.Errorf("decode metadata %x: %w", key, err)
		}
		// The key is authoritative for the index.
		rec.Index = types.AddressIndex(binary.BigEndian.Uint32(key))
		out = append(out, rec)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	return out, nil
}

// Get returns the record of one index.
func (s *Store) Get(walletID string, index types.AddressIndex) (wallet.StoredMetadata, error) {
	ns, err := s.namespace(walletID)
	if err != nil {
		return wallet.StoredMetadata{}, err
	}
	data, err := ns.Get(indexKey(index))
	if err != nil {
		return wallet.StoredMetadata{}, err
	}
	var rec wallet.StoredMetadata
	if err := json.Unmarshal(data, &rec); err != nil {
		return wallet.StoredMetadata{}, fmt.Errorf("decode metadata %d: %w", index, err)
	}
	rec.Index = index
	return rec, nil
}

// Save writes records in one batch, replacing existing records of the same
// index. Records are always written in the current version.
func (s *Store) Save(walletID string, records []wallet.AddressMetadata) error {
	ns, err := s.namespace(walletID)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		return nil
	}

	b := ns.NewBatch()
	for _, md := range records {
		data, err := json.Marshal(md.Stored())
		if err != nil {
			return fmt.Errorf("encode metadata %d: %w", md.Index, err)
		}
		if err := b.Put(indexKey(md.Index), data); err != nil {
			return fmt.Errorf("stage metadata %d: %w", md.Index, err)
		}
	}
	if err := b.Commit(); err != nil {
		return fmt.Errorf("commit metadata: %w", err)
	}

	log.Storage.Debug().
		Int("records", len(records)).
		Msg("Saved address metadata")
	return nil
}

// SaveAddresses persists the metadata part of addrs.
func (s *Store) SaveAddresses(walletID string, addrs []wallet.Address) error {
	records := make([]wallet.AddressMetadata, len(addrs))
	for i, a := range addrs {
		records[i] = a.Metadata()
	}
	return s.Save(walletID, records)
}

// Delete removes every record of walletID.
func (s *Store) Delete(walletID string) error {
	ns, err := s.namespace(walletID)
	if err != nil {
		return err
	}
	return ns.DeleteAll()
}

// IsNotFound reports whether err means a record does not exist.
func IsNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
