package discovery

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/Klingon-tech/klingnet-groupwallet/internal/wallet"
	"github.com/Klingon-tech/klingnet-groupwallet/pkg/crypto"
	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
	"github.com/lightningnetwork/lnd/fn/v2"
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

// groupSequence returns the first n indexes of group g that are not skipped.
func groupSequence(t *testing.T, d *wallet.Deriver, g types.Group, n int,
	skip types.IndexSet) []wallet.KeyPair {

	t.Helper()
	var out []wallet.KeyPair
	cursor := types.AddressIndex(0)
	for len(out) < n {
		kp, err := d.DeriveNext(fn.Some(g), cursor, skip)
		require.NoError(t, err)
		out = append(out, kp)
		cursor = kp.Index + 1
	}
	return out
}

// mockOracle marks a fixed set of addresses as used and counts calls.
type mockOracle struct {
	mu     sync.Mutex
	used   types.AddressSet
	calls  map[types.Group]int
	failFn func(g types.Group, call int) error
}

func newMockOracle(used ...types.Address) *mockOracle {
	return &mockOracle{
		used:  types.NewAddressSet(used...),
		calls: make(map[types.Group]int),
	}
}

func (m *mockOracle) AddressesUsed(_ context.Context, addrs []types.Address) (map[types.Address]bool, error) {
	g := crypto.GroupOf(addrs[0])

	m.mu.Lock()
	m.calls[g]++
	call := m.calls[g]
	m.mu.Unlock()

	if m.failFn != nil {
		if err := m.failFn(g, call); err != nil {
			return nil, err
		}
	}
	out := make(map[types.Address]bool, len(addrs))
	for _, a := range addrs {
		out[a] = m.used.Has(a)
	}
	return out, nil
}

func (m *mockOracle) callsFor(g types.Group) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[g]
}

func TestScan_TerminatesAfterEmptyBatch(t *testing.T) {
	d := testDeriver(t)

	var used []types.Address
	want := make(map[types.Group][]types.AddressIndex)
	for _, g := range types.AllGroups() {
		seq := groupSequence(t, d, g, 15, nil)
		for _, pos := range []int{0, 2, 5} {
			used = append(used, seq[pos].Hash)
			want[g] = append(want[g], seq[pos].Index)
		}
	}
	oracle := newMockOracle(used...)

	res, err := NewScanner(d, oracle, DefaultConfig()).Scan(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, res.Complete())
	require.Len(t, res.Found(), 12)

	for _, gr := range res.Groups {
		require.True(t, gr.Complete)
		require.Equal(t, want[gr.Group], wallet.Indexes(gr.Found))
		for _, kp := range gr.Found {
			require.Equal(t, gr.Group, kp.Group)
		}
		// Two batches with hits, then one empty batch.
		require.Equal(t, 3, gr.Batches)
		require.Equal(t, 3, oracle.callsFor(gr.Group))
	}
}

func TestScan_NothingUsed(t *testing.T) {
	oracle := newMockOracle()
	res, err := NewScanner(testDeriver(t), oracle, DefaultConfig()).Scan(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, res.Complete())
	require.Empty(t, res.Found())
	for _, g := range types.AllGroups() {
		require.Equal(t, 1, oracle.callsFor(g))
	}
}

func TestScan_RespectsSkip(t *testing.T) {
	d := testDeriver(t)
	seq := groupSequence(t, d, 0, 5, nil)
	skip := types.NewIndexSet(seq[0].Index, seq[1].Index)

	// The skipped addresses are "used" but must never be asked about.
	var asked []types.Address
	var mu sync.Mutex
	oracle := OracleFunc(func(_ context.Context, addrs []types.Address) (map[types.Address]bool, error) {
		mu.Lock()
		asked = append(asked, addrs...)
		mu.Unlock()
		return map[types.Address]bool{seq[0].Hash: true, seq[1].Hash: true}, nil
	})

	res, err := NewScanner(d, oracle, DefaultConfig()).Scan(context.Background(), skip)
	require.NoError(t, err)
	require.Empty(t, res.Found())
	require.NotContains(t, asked, seq[0].Hash)
	require.NotContains(t, asked, seq[1].Hash)
}

func TestScan_PartialResultsOnFailure(t *testing.T) {
	d := testDeriver(t)

	var used []types.Address
	for _, g := range types.AllGroups() {
		used = append(used, groupSequence(t, d, g, 1, nil)[0].Hash)
	}
	boom := errors.New("connection refused")
	oracle := newMockOracle(used...)
	oracle.failFn = func(g types.Group, call int) error {
		if g == 1 && call == 2 {
			return boom
		}
		return nil
	}

	res, err := NewScanner(d, oracle, DefaultConfig()).Scan(context.Background(), nil)
	require.Error(t, err)
	require.ErrorIs(t, err, boom)

	var qe *OracleQueryError
	require.ErrorAs(t, err, &qe)
	require.Equal(t, types.Group(1), qe.Group)

	require.False(t, res.Complete())
	require.Len(t, res.Found(), 4, "group 1 keeps the address found before the failure")

	g1 := res.Groups[1]
	require.False(t, g1.Complete)
	require.Equal(t, 1, g1.Batches)
	require.Len(t, g1.Found, 1)
	require.Equal(t, qe.Cursor, g1.Cursor)
}

func TestScan_Retries(t *testing.T) {
	var failures atomic.Int32
	oracle := newMockOracle()
	oracle.failFn = func(g types.Group, call int) error {
		if g == 2 && call == 1 {
			failures.Add(1)
			return errors.New("timeout")
		}
		return nil
	}

	cfg := DefaultConfig()
	cfg.Retries = 1
	cfg.RetryDelay = 0

	res, err := NewScanner(testDeriver(t), oracle, cfg).Scan(context.Background(), nil)
	require.NoError(t, err)
	require.True(t, res.Complete())
	require.Equal(t, int32(1), failures.Load())
	require.Equal(t, 2, oracle.callsFor(2))
}

func TestScan_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := NewScanner(testDeriver(t), newMockOracle(), DefaultConfig()).Scan(ctx, nil)
	require.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	require.False(t, res.Complete())
}

func TestScan_SearchBound(t *testing.T) {
	seed, err := wallet.SeedFromMnemonic(
		"abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon abandon about",
		"TREZOR",
	)
	require.NoError(t, err)
	d, err := wallet.NewDeriver(seed, wallet.WithMaxSearchIndex(2))
	require.NoError(t, err)

	res, err := NewScanner(d, newMockOracle(), DefaultConfig()).Scan(context.Background(), nil)
	require.ErrorIs(t, err, wallet.ErrSearchExhausted)
	require.False(t, res.Complete())
}
