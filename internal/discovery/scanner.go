// Package discovery finds previously used addresses of a seed by probing an
// activity oracle group by group, one small batch at a time.
package discovery

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/Klingon-tech/klingnet-groupwallet/internal/log"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/wallet"
	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// DefaultBatchSize is the number of candidates probed per group per round.
const DefaultBatchSize = 5

// Oracle reports whether addresses have ever appeared in a transaction.
// Addresses missing from the returned map are treated as unused.
type Oracle interface {
	AddressesUsed(ctx context.Context, addrs []types.Address) (map[types.Address]bool, error)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(ctx context.Context, addrs []types.Address) (map[types.Address]bool, error)

// AddressesUsed implements Oracle.
func (f OracleFunc) AddressesUsed(ctx context.Context, addrs []types.Address) (map[types.Address]bool, error) {
	return f(ctx, addrs)
}

// OracleQueryError reports a failed activity query for one group batch.
// Addresses found before the failure are still returned in the Result.
type OracleQueryError struct {
	Group  types.Group
	Cursor types.AddressIndex
	Err    error
}

func (e *OracleQueryError) Error() string {
	return fmt.Sprintf("query activity for group %d at index %d: %v", e.Group, e.Cursor, e.Err)
}

func (e *OracleQueryError) Unwrap() error {
	return e.Err
}

// GroupResult is the outcome of scanning one group.
type GroupResult struct {
	Group types.Group
	// Found holds the active addresses in ascending index order.
	Found []wallet.KeyPair
	// Cursor is the first index the scan has not looked at yet.
	Cursor types.AddressIndex
	// Batches counts oracle rounds that completed.
	Batches int
	// Complete is set when a batch came back with no active address.
	Complete bool
	// Err is the reason the scan stopped early, nil when Complete.
	Err error
}

// Result aggregates every group of one scan.
type Result struct {
	Groups []GroupResult
}

// Found returns the active addresses of all groups, ordered by index.
func (r *Result) Found() []wallet.KeyPair {
	var out []wallet.KeyPair
	for _, g := range r.Groups {
		out = append(out, g.Found...)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out
}

// Complete reports whether every group reached its termination condition.
func (r *Result) Complete() bool {
	for _, g := range r.Groups {
		if !g.Complete {
			return false
		}
	}
	return true
}

// Err joins the per-group failures, or returns nil.
func (r *Result) Err() error {
	var errs []error
	for _, g := range r.Groups {
		if g.Err != nil {
			errs = append(errs, g.Err)
		}
	}
	return errors.Join(errs...)
}

// Config tunes a Scanner.
type Config struct {
	BatchSize  int
	Retries    int
	RetryDelay time.Duration
}

// DefaultConfig returns the scanner defaults: batches of five and no retry.
func DefaultConfig() Config {
	return Config{
		BatchSize:  DefaultBatchSize,
		RetryDelay: time.Second,
	}
}

// Scanner is the usage discovery scanner.
type Scanner struct {
	deriver *wallet.Deriver
	oracle  Oracle
	cfg     Config
	logger  zerolog.Logger
}

// NewScanner creates a scanner deriving candidates with d and checking them
// against oracle.
func NewScanner(d *wallet.Deriver, oracle Oracle, cfg Config) *Scanner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = DefaultBatchSize
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	return &Scanner{
		deriver: d,
		oracle:  oracle,
		cfg:     cfg,
		logger:  log.Discovery,
	}
}

// Scan probes every group concurrently. Indexes in skip are never derived.
// The returned Result is always non-nil and holds whatever was found; the
// error is non-nil when at least one group stopped before its termination
// condition and matches *OracleQueryError or *wallet.DerivationError.
func (s *Scanner) Scan(ctx context.Context, skip types.IndexSet) (*Result, error) {
	groups := types.AllGroups()
	res := &Result{Groups: make([]GroupResult, len(groups))}

	start := time.Now()
	s.logger.Info().
		Int("groups", len(groups)).
		Int("batch_size", s.cfg.BatchSize).
		Int("skipped", len(skip)).
		Msg("Address discovery started")

	var eg errgroup.Group
	for i, g := range groups {
		i, g := i, g
		// Each goroutine owns its slot; skip is only read.
		eg.Go(func() error {
			res.Groups[i] = s.scanGroup(ctx, g, skip)
			return nil
		})
	}
	_ = eg.Wait()

	err := res.Err()
	ev := s.logger.Info()
	if err != nil {
		ev = s.logger.Warn().Err(err)
	}
	ev.Int("found", len(res.Found())).
		Bool("complete", res.Complete()).
		Dur("elapsed", time.Since(start)).
		Msg("Address discovery finished")

	return res, err
}

func (s *Scanner) scanGroup(ctx context.Context, g types.Group, skip types.IndexSet) GroupResult {
	gr := GroupResult{Group: g}
	logger := s.logger.With().Int("group", int(g)).Logger()

	for {
		if err := ctx.Err(); err != nil {
			gr.Err = &OracleQueryError{Group: g, Cursor: gr.Cursor, Err: err}
			return gr
		}

		batch, next, err := s.nextBatch(g, gr.Cursor, skip)
		if err != nil {
			gr.Err = err
			return gr
		}

		used, err := s.query(ctx, batch)
		if err != nil {
			logger.Warn().Err(err).Uint32("cursor", uint32(gr.Cursor)).Msg("Activity query failed")
			gr.Err = &OracleQueryError{Group: g, Cursor: gr.Cursor, Err: err}
			return gr
		}

		active := 0
		for _, kp := range batch {
			if used[kp.Hash] {
				gr.Found = append(gr.Found, kp)
				active++
			}
		}
		gr.Cursor = next
		gr.Batches++

		logger.Debug().
			Int("batch", gr.Batches).
			Int("active", active).
			Uint32("cursor", uint32(next)).
			Msg("Scanned batch")

		if active == 0 {
			gr.Complete = true
			return gr
		}
	}
}

// nextBatch derives up to BatchSize candidates of group g at or after cursor
// and returns the index after the last one.
func (s *Scanner) nextBatch(g types.Group, cursor types.AddressIndex,
	skip types.IndexSet) ([]wallet.KeyPair, types.AddressIndex, error) {

	batch := make([]wallet.KeyPair, 0, s.cfg.BatchSize)
	for len(batch) < s.cfg.BatchSize {
		kp, err := s.deriver.DeriveNext(fn.Some(g), cursor, skip)
		if err != nil {
			return nil, cursor, err
		}
		batch = append(batch, kp)
		cursor = kp.Index + 1
	}
	return batch, cursor, nil
}

func (s *Scanner) query(ctx context.Context, batch []wallet.KeyPair) (map[types.Address]bool, error) {
	addrs := make([]types.Address, len(batch))
	for i, kp := range batch {
		addrs[i] = kp.Hash
	}

	var lastErr error
	for attempt := 0; attempt <= s.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(s.cfg.RetryDelay):
			}
		}
		used, err := s.oracle.AddressesUsed(ctx, addrs)
		if err == nil {
			return used, nil
		}
		lastErr = err
	}
	return nil, lastErr
}
