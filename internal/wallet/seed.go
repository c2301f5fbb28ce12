// Package wallet derives group-assigned address keys from a seed and
// reconciles them with persisted per-address metadata.
package wallet

import (
	"fmt"

	"github.com/tyler-smith/go-bip39"
)

// SeedSize is the length of a derived seed in bytes (512 bits).
const SeedSize = 64

// MnemonicEntropyBits is the entropy size for 24-word mnemonics.
const MnemonicEntropyBits = 256

// Seed is the BIP-39 seed a wallet's keys are derived from. It is owned by the
// session and must never be logged.
type Seed []byte

// Validate checks that the seed is present and of the expected size.
func (s Seed) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("%w: seed is empty", ErrInvalidSeed)
	}
	if len(s) != SeedSize {
		return fmt.Errorf("%w: seed must be %d bytes, got %d", ErrInvalidSeed, SeedSize, len(s))
	}
	return nil
}

// Zero wipes the seed in place.
func (s Seed) Zero() {
	for i := range s {
		s[i] = 0
	}
}

// Clone returns an independent copy of the seed.
func (s Seed) Clone() Seed {
	if s == nil {
		return nil
	}
	c := make(Seed, len(s))
	copy(c, s)
	return c
}

// String redacts the seed so it cannot leak through fmt or loggers.
func (s Seed) String() string {
	return "[redacted seed]"
}

// GenerateMnemonic creates a new 24-word BIP-39 mnemonic.
func GenerateMnemonic() (string, error) {
	entropy, err := bip39.NewEntropy(MnemonicEntropyBits)
	if err != nil {
		return "", fmt.Errorf("generate entropy: %w", err)
	}
	mnemonic, err := bip39.NewMnemonic(entropy)
	if err != nil {
		return "", fmt.Errorf("generate mnemonic: %w", err)
	}
	return mnemonic, nil
}

// ValidateMnemonic checks word count, word list membership and checksum.
func ValidateMnemonic(mnemonic string) bool {
	return bip39.IsMnemonicValid(mnemonic)
}

// SeedFromMnemonic derives a 512-bit seed from a mnemonic and optional
// passphrase using PBKDF2-SHA512 as specified in BIP-39.
func SeedFromMnemonic(mnemonic, passphrase string) (Seed, error) {
	if !ValidateMnemonic(mnemonic) {
		return nil, fmt.Errorf("%w: invalid mnemonic", ErrInvalidSeed)
	}
	seed, err := bip39.NewSeedWithErrorChecking(mnemonic, passphrase)
	if err != nil {
		return nil, fmt.Errorf("derive seed: %w", err)
	}
	return seed, nil
}
