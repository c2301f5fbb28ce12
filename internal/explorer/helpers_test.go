package explorer

import (
	"testing"

	"github.com/Klingon-tech/klingnet-groupwallet/internal/wallet"
	"github.com/stretchr/testify/require"
)

func testDeriver(t *testing.T) *wallet.Deriver {
	t.Helper()
	seed, err := wallet.SeedFromMnemonic(
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
		"TREZOR",
	)
	require.NoError(t, err)
	d, err := wallet.NewDeriver(seed)
	require.NoError(t, err)
	return d
}
