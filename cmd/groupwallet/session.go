package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/Klingon-tech/klingnet-groupwallet/config"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/addrgen"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/discovery"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/explorer"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/log"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/metastore"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/storage"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/wallet"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/worker"
	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// Environment variables holding wallet secrets. They are read directly and
// never pass through the config layer.
const (
	envMnemonic   = "GROUPWALLET_MNEMONIC"
	envPassphrase = "GROUPWALLET_PASSPHRASE"
)

type globalOptions struct {
	configFile    string
	mnemonicFile  string
	askPassphrase bool
}

// session is an opened wallet: config, metadata database, explorer client
// and an address service whose book holds the restored addresses.
type session struct {
	cfg        *config.Config
	db         *storage.BadgerDB
	store      *metastore.Store
	explorer   *explorer.Client
	svc        *addrgen.Service
	seeds      *addrgen.MemorySeeds
	passphrase bool
}

// openSession loads the config, opens storage, unlocks the wallet seed and
// restores the addresses recorded in the metadata store.
func openSession(cmd *cobra.Command, opts *globalOptions) (*session, error) {
	cfg, err := config.Load(opts.configFile, cmd.Flags())
	if err != nil {
		return nil, err
	}
	if err := log.Init(cfg.Log.Level, cfg.Log.JSON, cfg.Log.File); err != nil {
		return nil, fmt.Errorf("init logging: %w", err)
	}

	mnemonic, err := readMnemonic(opts.mnemonicFile, cmd.InOrStdin(), cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	passphrase, err := readPassphrase(opts.askPassphrase, cmd.ErrOrStderr())
	if err != nil {
		return nil, err
	}
	seeds := addrgen.NewMemorySeeds()
	if err := seeds.AddMnemonic(cfg.WalletID, mnemonic, passphrase); err != nil {
		return nil, err
	}

	if err := os.MkdirAll(cfg.MetadataDir(), 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	db, err := storage.NewBadger(cfg.MetadataDir())
	if err != nil {
		return nil, fmt.Errorf("open metadata db: %w", err)
	}

	s := &session{
		cfg:        cfg,
		db:         db,
		store:      metastore.New(db),
		seeds:      seeds,
		passphrase: passphrase != "",
		explorer: explorer.New(cfg.Explorer.URL,
			explorer.WithTimeout(cfg.Explorer.Timeout),
			explorer.WithRate(cfg.Explorer.Rate)),
	}

	s.svc, err = addrgen.New(addrgen.Config{
		WalletID: cfg.WalletID,
		Seeds:    seeds,
		Store:    s.store,
		Oracle:   s.explorer,
		Colors:   wallet.RandomColors{},
		Listener: &consoleListener{w: cmd.ErrOrStderr()},
		Discovery: discovery.Config{
			BatchSize:  cfg.Discovery.BatchSize,
			Retries:    cfg.Discovery.Retries,
			RetryDelay: cfg.Discovery.RetryDelay,
		},
		MaxSearchIndex: types.AddressIndex(cfg.Discovery.MaxIndex),
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	if err := s.restore(cmd.Context()); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}

func (s *session) restore(ctx context.Context) error {
	seed, err := s.seeds.Seed(ctx, s.cfg.WalletID)
	if err != nil {
		return err
	}
	defer seed.Zero()

	fut, err := s.svc.RestoreAddressesFromMetadata(ctx, addrgen.RestoreOptions{
		Seed:           seed,
		WalletID:       s.cfg.WalletID,
		PassphraseUsed: s.passphrase,
	})
	if err != nil {
		return err
	}
	_, err = await(ctx, fut)
	return err
}

// Close stops the workers, closes the database and forgets the seed.
func (s *session) Close() {
	s.svc.Close()
	s.seeds.Remove(s.cfg.WalletID)
	if err := s.db.Close(); err != nil {
		log.Storage.Warn().Err(err).Msg("Close metadata db")
	}
}

func await[T any](ctx context.Context, f *worker.Future[T]) (T, error) {
	return f.Await(ctx).Unpack()
}

// readMnemonic takes the mnemonic from file, then the environment, then a
// hidden terminal prompt, then a line of piped input.
func readMnemonic(file string, in io.Reader, prompt io.Writer) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("read mnemonic file: %w", err)
		}
		return normalizeMnemonic(string(data))
	}
	if m := os.Getenv(envMnemonic); m != "" {
		return normalizeMnemonic(m)
	}

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		fmt.Fprint(prompt, "Enter mnemonic: ")
		b, err := term.ReadPassword(int(f.Fd()))
		fmt.Fprintln(prompt) // newline after hidden input
		if err != nil {
			return "", fmt.Errorf("read mnemonic: %w", err)
		}
		return normalizeMnemonic(string(b))
	}

	line, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return "", fmt.Errorf("read mnemonic: %w", err)
	}
	return normalizeMnemonic(line)
}

func normalizeMnemonic(s string) (string, error) {
	m := strings.Join(strings.Fields(s), " ")
	if m == "" {
		return "", wallet.Precondition("mnemonic is required")
	}
	if !wallet.ValidateMnemonic(m) {
		return "", fmt.Errorf("%w: invalid mnemonic", wallet.ErrInvalidSeed)
	}
	return m, nil
}

func readPassphrase(ask bool, prompt io.Writer) (string, error) {
	if p := os.Getenv(envPassphrase); p != "" {
		return p, nil
	}
	if !ask {
		return "", nil
	}
	if !term.IsTerminal(int(os.Stdin.Fd())) {
		return "", fmt.Errorf("--passphrase needs a terminal; set %s instead", envPassphrase)
	}
	fmt.Fprint(prompt, "Enter passphrase: ")
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Fprintln(prompt)
	if err != nil {
		return "", fmt.Errorf("read passphrase: %w", err)
	}
	return string(b), nil
}

// consoleListener reports long-running operations on stderr.
type consoleListener struct {
	w io.Writer
}

func (l *consoleListener) DiscoveryStarted(loading bool) {
	if loading {
		fmt.Fprintln(l.w, "Scanning groups for used addresses...")
	}
}

func (l *consoleListener) DiscoveryFinished(loading bool) {
	if loading {
		fmt.Fprintln(l.w, "Scan finished.")
	}
}

func (l *consoleListener) RestorationStarted() {
	fmt.Fprintln(l.w, "Restoring addresses from metadata...")
}

func (l *consoleListener) AddressesRestored(addrs []wallet.Address) {
	fmt.Fprintf(l.w, "Restored %d addresses.\n", len(addrs))
}
