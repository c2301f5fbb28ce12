// Package addrgen is the application-facing address service. It generates,
// restores and discovers wallet addresses on background workers and
// classifies transactions against the wallet's address book.
package addrgen

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/Klingon-tech/klingnet-groupwallet/internal/discovery"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/log"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/txinfo"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/wallet"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/worker"
	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/rs/zerolog"
)

// Config holds the collaborators and tunables of a Service.
type Config struct {
	// WalletID is the active wallet operations default to.
	WalletID string

	Seeds  SeedProvider
	Store  MetadataStore
	Oracle discovery.Oracle

	// Colors decorates new addresses. Defaults to random palette colors.
	Colors   wallet.Colorer
	Listener Listener

	Discovery      discovery.Config
	MaxSearchIndex types.AddressIndex
}

// Service implements the address operations of one wallet session.
type Service struct {
	cfg    Config
	book   *AddressBook
	logger zerolog.Logger

	groups  *worker.Unit[groupsJob, []wallet.KeyPair]
	indexes *worker.Unit[indexesJob, []wallet.KeyPair]
	scans   *worker.Unit[scanJob, scanOutcome]

	// reserved holds indexes handed out by batch jobs whose addresses may
	// not have reached the book yet.
	reservedMu sync.Mutex
	reserved   types.IndexSet
}

type groupsJob struct {
	seed   wallet.Seed
	groups []types.Group
	skip   types.IndexSet
}

type indexesJob struct {
	seed    wallet.Seed
	indexes []types.AddressIndex
}

type scanJob struct {
	seed wallet.Seed
	skip types.IndexSet
}

// scanOutcome carries partial results across the worker boundary together
// with the scan error.
type scanOutcome struct {
	result *discovery.Result
	err    error
}

// New creates a service and starts its workers.
func New(cfg Config) (*Service, error) {
	if cfg.Seeds == nil {
		return nil, fmt.Errorf("seed provider is required")
	}
	if cfg.Store == nil {
		return nil, fmt.Errorf("metadata store is required")
	}
	if cfg.Colors == nil {
		cfg.Colors = wallet.RandomColors{}
	}
	if cfg.Listener == nil {
		cfg.Listener = NopListener{}
	}
	if cfg.Discovery.BatchSize <= 0 {
		cfg.Discovery = discovery.DefaultConfig()
	}

	s := &Service{
		cfg:      cfg,
		book:     NewAddressBook(),
		logger:   log.Wallet,
		reserved: types.NewIndexSet(),
	}
	if cfg.WalletID != "" {
		s.logger = log.WithWallet(cfg.WalletID).With().Str("component", "wallet").Logger()
	}

	s.groups = worker.NewUnit("derive-groups", s.deriveGroups,
		worker.WithDiscard(func(j groupsJob) { j.seed.Zero() }))
	s.indexes = worker.NewUnit("derive-indexes", s.deriveIndexes,
		worker.WithDiscard(func(j indexesJob) { j.seed.Zero() }))
	s.scans = worker.NewUnit("discover", s.discover,
		worker.WithDiscard(func(j scanJob) { j.seed.Zero() }))
	return s, nil
}

// Close terminates the workers, discarding any in-flight job.
func (s *Service) Close() {
	s.groups.Terminate()
	s.indexes.Terminate()
	s.scans.Terminate()
}

// Book returns the service's address book.
func (s *Service) Book() *AddressBook {
	return s.book
}

func (s *Service) deriverOpts() []wallet.DeriverOption {
	if s.cfg.MaxSearchIndex == 0 {
		return nil
	}
	return []wallet.DeriverOption{wallet.WithMaxSearchIndex(s.cfg.MaxSearchIndex)}
}

func (s *Service) seedFor(ctx context.Context, walletID string) (wallet.Seed, error) {
	if walletID == "" {
		return nil, wallet.Precondition("wallet identity is required")
	}
	seed, err := s.cfg.Seeds.Seed(ctx, walletID)
	if errors.Is(err, ErrSeedNotFound) {
		return nil, wallet.Precondition("seed for wallet %q not found", walletID)
	}
	if err != nil {
		return nil, fmt.Errorf("load seed: %w", err)
	}
	if len(seed) == 0 {
		return nil, wallet.Precondition("seed for wallet %q is empty", walletID)
	}
	return seed, nil
}

// GenerateAddress derives the next unused address, in group when given. It
// runs on the caller's goroutine and does not save the address.
func (s *Service) GenerateAddress(ctx context.Context, group fn.Option[types.Group]) (wallet.KeyPair, error) {
	seed, err := s.seedFor(ctx, s.cfg.WalletID)
	if err != nil {
		return wallet.KeyPair{}, err
	}
	defer seed.Zero()

	d, err := wallet.NewDeriver(seed, s.deriverOpts()...)
	if err != nil {
		return wallet.KeyPair{}, err
	}
	return d.Derive(fn.None[types.AddressIndex](), group, s.heldIndexes())
}

// heldIndexes returns the book's indexes plus those reserved by batch jobs.
func (s *Service) heldIndexes() types.IndexSet {
	held := s.book.Indexes()
	s.reservedMu.Lock()
	defer s.reservedMu.Unlock()
	for i := range s.reserved {
		held.Add(i)
	}
	return held
}

// BatchOptions decorate the addresses of GenerateAndSaveOneAddressPerGroup.
type BatchOptions struct {
	// LabelPrefix labels each address "<prefix> <group>" when set.
	LabelPrefix string
	// LabelColor is shared by the whole batch. A random color is picked
	// when empty.
	LabelColor string
	SkipGroups []types.Group
}

// GenerateAndSaveOneAddressPerGroup derives one new address for every group
// not in SkipGroups, saves them and adds them to the book.
func (s *Service) GenerateAndSaveOneAddressPerGroup(ctx context.Context,
	opts BatchOptions) (*worker.Future[[]wallet.Address], error) {

	walletID := s.cfg.WalletID
	seed, err := s.seedFor(ctx, walletID)
	if err != nil {
		return nil, err
	}

	var groups []types.Group
	for _, g := range types.AllGroups() {
		if !slices.Contains(opts.SkipGroups, g) {
			groups = append(groups, g)
		}
	}
	if len(groups) == 0 {
		seed.Zero()
		return worker.Resolved[[]wallet.Address](nil), nil
	}

	fut, err := s.groups.Submit(ctx, groupsJob{seed: seed, groups: groups, skip: s.book.Indexes()})
	if err != nil {
		seed.Zero()
		return nil, err
	}

	return worker.Then(fut, func(r fn.Result[[]wallet.KeyPair]) fn.Result[[]wallet.Address] {
		pairs, err := r.Unpack()
		if err != nil {
			return fn.Err[[]wallet.Address](err)
		}

		color := opts.LabelColor
		if color == "" && len(pairs) > 0 {
			color = s.cfg.Colors.Color(pairs[0].Hash)
		}
		addrs := make([]wallet.Address, len(pairs))
		for i, kp := range pairs {
			label := ""
			if opts.LabelPrefix != "" {
				label = fmt.Sprintf("%s %d", opts.LabelPrefix, kp.Group)
			}
			addrs[i] = wallet.NewAddress(kp, wallet.AddressMetadata{Label: label, Color: color})
		}

		if err := s.save(walletID, addrs); err != nil {
			return fn.Err[[]wallet.Address](err)
		}
		s.logger.Info().Int("addresses", len(addrs)).Msg("Generated one address per group")
		return fn.Ok(addrs)
	}), nil
}

// RestoreOptions identify the wallet to restore.
type RestoreOptions struct {
	Seed           wallet.Seed
	WalletID       string
	PassphraseUsed bool
}

// RestoreAddressesFromMetadata rebuilds the addresses listed in the wallet's
// stored metadata and adds them to the book. Wallets opened with a
// passphrase carry no metadata and restore nothing without a lookup.
// Records in an older format are written back in the current one.
func (s *Service) RestoreAddressesFromMetadata(ctx context.Context,
	opts RestoreOptions) (*worker.Future[[]wallet.Address], error) {

	if len(opts.Seed) == 0 {
		return nil, wallet.Precondition("seed is required")
	}
	if opts.WalletID == "" {
		return nil, wallet.Precondition("wallet identity is required")
	}
	if opts.PassphraseUsed {
		return worker.Resolved[[]wallet.Address](nil), nil
	}

	records, err := s.cfg.Store.Load(opts.WalletID)
	if err != nil {
		return nil, fmt.Errorf("load metadata: %w", err)
	}
	if len(records) == 0 {
		return worker.Resolved[[]wallet.Address](nil), nil
	}

	indexes := make([]types.AddressIndex, len(records))
	stale := false
	for i, rec := range records {
		indexes[i] = rec.Index
		if rec.Version < wallet.MetadataVersion || rec.Color == "" {
			stale = true
		}
	}

	seed := opts.Seed.Clone()
	fut, err := s.indexes.Submit(ctx, indexesJob{seed: seed, indexes: indexes})
	if err != nil {
		seed.Zero()
		return nil, err
	}
	s.cfg.Listener.RestorationStarted()

	return worker.Then(fut, func(r fn.Result[[]wallet.KeyPair]) fn.Result[[]wallet.Address] {
		pairs, err := r.Unpack()
		if err != nil {
			return fn.Err[[]wallet.Address](err)
		}
		addrs, err := wallet.Reconcile(pairs, records, s.cfg.Colors)
		if err != nil {
			return fn.Err[[]wallet.Address](err)
		}

		s.book.Add(addrs...)
		s.cfg.Listener.AddressesRestored(addrs)
		s.logger.Info().Int("addresses", len(addrs)).Msg("Restored addresses from metadata")

		if stale {
			if err := s.cfg.Store.SaveAddresses(opts.WalletID, addrs); err != nil {
				return fn.Err[[]wallet.Address](fmt.Errorf("persist upgraded metadata: %w", err))
			}
		}
		return fn.Ok(addrs)
	}), nil
}

// DiscoverOptions configure DiscoverAndSaveUsedAddresses. An empty WalletID
// or Seed falls back to the active wallet. SkipIndexes are skipped on top of
// the indexes the wallet already holds.
type DiscoverOptions struct {
	Seed          wallet.Seed
	WalletID      string
	SkipIndexes   []types.AddressIndex
	EnableLoading fn.Option[bool]
}

// DiscoveryError is returned when discovery stopped early. Addresses found
// before the failure are saved and listed in Found.
type DiscoveryError struct {
	Found []wallet.Address
	Err   error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("discovery incomplete (%d addresses saved): %v", len(e.Found), e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// DiscoverAndSaveUsedAddresses scans every group for addresses with ledger
// activity, saves them and adds them to the book.
func (s *Service) DiscoverAndSaveUsedAddresses(ctx context.Context,
	opts DiscoverOptions) (*worker.Future[[]wallet.Address], error) {

	if s.cfg.Oracle == nil {
		return nil, wallet.Precondition("activity oracle is not configured")
	}

	walletID := opts.WalletID
	if walletID == "" {
		walletID = s.cfg.WalletID
	}
	if walletID == "" {
		return nil, wallet.Precondition("wallet identity is required")
	}

	seed := opts.Seed.Clone()
	if len(seed) == 0 {
		var err error
		if seed, err = s.seedFor(ctx, walletID); err != nil {
			return nil, err
		}
	}

	// Held indexes are always skipped so discovery never rewrites the
	// metadata of an address the wallet already has.
	skip := s.heldIndexes()
	for _, i := range opts.SkipIndexes {
		skip.Add(i)
	}
	loading := opts.EnableLoading.UnwrapOr(true)

	s.cfg.Listener.DiscoveryStarted(loading)

	fut, err := s.scans.Submit(ctx, scanJob{seed: seed, skip: skip})
	if err != nil {
		seed.Zero()
		s.cfg.Listener.DiscoveryFinished(loading)
		return nil, err
	}

	return worker.Then(fut, func(r fn.Result[scanOutcome]) fn.Result[[]wallet.Address] {
		defer s.cfg.Listener.DiscoveryFinished(loading)

		out, err := r.Unpack()
		if err != nil {
			return fn.Err[[]wallet.Address](err)
		}

		found := out.result.Found()
		addrs := make([]wallet.Address, len(found))
		for i, kp := range found {
			addrs[i] = wallet.NewAddress(kp, wallet.AddressMetadata{Color: s.cfg.Colors.Color(kp.Hash)})
		}
		if err := s.save(walletID, addrs); err != nil {
			return fn.Err[[]wallet.Address](err)
		}

		s.logger.Info().
			Int("addresses", len(addrs)).
			Bool("complete", out.result.Complete()).
			Msg("Discovered used addresses")

		if out.err != nil {
			return fn.Err[[]wallet.Address](&DiscoveryError{Found: addrs, Err: out.err})
		}
		return fn.Ok(addrs)
	}), nil
}

// ClassifyTransaction classifies tx for ref against every address in the
// book.
func (s *Service) ClassifyTransaction(tx *txinfo.Transaction, ref types.Address,
	showInternalInflows bool) (*txinfo.Classification, error) {

	c, err := txinfo.Classify(tx, ref, s.book.Hashes(), showInternalInflows)
	if err != nil {
		return nil, err
	}
	log.TxInfo.Debug().
		Str("tx", tx.Hash.String()).
		Str("direction", string(c.Direction)).
		Str("type", string(c.InfoType)).
		Msg("Classified transaction")
	return c, nil
}

func (s *Service) save(walletID string, addrs []wallet.Address) error {
	if len(addrs) == 0 {
		return nil
	}
	if err := s.cfg.Store.SaveAddresses(walletID, addrs); err != nil {
		return fmt.Errorf("save addresses: %w", err)
	}
	s.book.Add(addrs...)
	return nil
}

func (s *Service) deriveGroups(_ context.Context, job groupsJob) ([]wallet.KeyPair, error) {
	defer job.seed.Zero()
	d, err := wallet.NewDeriver(job.seed, s.deriverOpts()...)
	if err != nil {
		return nil, err
	}

	s.reservedMu.Lock()
	defer s.reservedMu.Unlock()

	skip := job.skip.Clone()
	for i := range s.reserved {
		skip.Add(i)
	}
	pairs, err := d.OnePerGroup(job.groups, skip)
	if err != nil {
		return nil, err
	}
	for _, kp := range pairs {
		s.reserved.Add(kp.Index)
	}
	return pairs, nil
}

func (s *Service) deriveIndexes(_ context.Context, job indexesJob) ([]wallet.KeyPair, error) {
	defer job.seed.Zero()
	d, err := wallet.NewDeriver(job.seed, s.deriverOpts()...)
	if err != nil {
		return nil, err
	}
	return d.DeriveIndexes(job.indexes)
}

func (s *Service) discover(ctx context.Context, job scanJob) (scanOutcome, error) {
	defer job.seed.Zero()
	d, err := wallet.NewDeriver(job.seed, s.deriverOpts()...)
	if err != nil {
		return scanOutcome{}, err
	}
	res, err := discovery.NewScanner(d, s.cfg.Oracle, s.cfg.Discovery).Scan(ctx, job.skip)
	return scanOutcome{result: res, err: err}, nil
}
