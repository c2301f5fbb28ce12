package main

import (
	"errors"
	"fmt"
	"io"
	"math/big"
	"strings"
	"time"

	"github.com/Klingon-tech/klingnet-groupwallet/internal/addrgen"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/txinfo"
	"github.com/Klingon-tech/klingnet-groupwallet/internal/wallet"
	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
	"github.com/lightningnetwork/lnd/fn/v2"
	"github.com/spf13/cobra"
)

// withSession opens a session around run and closes it afterwards.
func withSession(opts *globalOptions, run func(cmd *cobra.Command, s *session, args []string) error) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd, opts)
		if err != nil {
			return err
		}
		defer s.Close()
		return run(cmd, s, args)
	}
}

func newMnemonicCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "mnemonic",
		Short: "Generate a new 24-word mnemonic",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := wallet.GenerateMnemonic()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Mnemonic (write this down!):")
			fmt.Fprintf(cmd.OutOrStdout(), "  %s\n", m)
			return nil
		},
	}
}

func newAddressCommand(opts *globalOptions) *cobra.Command {
	var (
		group int
		save  bool
		label string
	)
	cmd := &cobra.Command{
		Use:   "address",
		Short: "Derive the next unused address, optionally in a group",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, _ []string) error {
			target := fn.None[types.Group]()
			if group >= 0 {
				g, err := types.ParseGroup(group)
				if err != nil {
					return err
				}
				target = fn.Some(g)
			}

			kp, err := s.svc.GenerateAddress(cmd.Context(), target)
			if err != nil {
				return err
			}
			md := wallet.AddressMetadata{Color: wallet.RandomColors{}.Color(kp.Hash)}
			if s.svc.Book().Len() == 0 {
				md = addrgen.InitialAddressSettings(nil)
			}
			md.Label = label
			addr := wallet.NewAddress(kp, md)

			if save {
				if err := s.store.SaveAddresses(s.cfg.WalletID, []wallet.Address{addr}); err != nil {
					return err
				}
				s.svc.Book().Add(addr)
			}
			printAddresses(cmd.OutOrStdout(), []wallet.Address{addr})
			return nil
		}),
	}
	cmd.Flags().IntVar(&group, "group", -1, "Target group (default: any)")
	cmd.Flags().BoolVar(&save, "save", false, "Store the address metadata")
	cmd.Flags().StringVar(&label, "label", "", "Label for a saved address")
	return cmd
}

func newGroupsCommand(opts *globalOptions) *cobra.Command {
	var (
		prefix string
		color  string
		skip   []int
	)
	cmd := &cobra.Command{
		Use:   "groups",
		Short: "Derive and save one new address in every group",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, _ []string) error {
			skipGroups, err := parseGroups(skip)
			if err != nil {
				return err
			}
			fut, err := s.svc.GenerateAndSaveOneAddressPerGroup(cmd.Context(), addrgen.BatchOptions{
				LabelPrefix: prefix,
				LabelColor:  color,
				SkipGroups:  skipGroups,
			})
			if err != nil {
				return err
			}
			addrs, err := await(cmd.Context(), fut)
			if err != nil {
				return err
			}
			printAddresses(cmd.OutOrStdout(), addrs)
			return nil
		}),
	}
	cmd.Flags().StringVar(&prefix, "label-prefix", "", `Label addresses "<prefix> <group>"`)
	cmd.Flags().StringVar(&color, "color", "", "Color shared by the batch (default: random)")
	cmd.Flags().IntSliceVar(&skip, "skip-groups", nil, "Groups to leave out")
	return cmd
}

func newRestoreCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "restore",
		Short: "Rebuild the addresses recorded in the metadata store",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, _ []string) error {
			if s.passphrase {
				fmt.Fprintln(cmd.ErrOrStderr(), "Wallets opened with a passphrase keep no metadata; nothing to restore.")
			}
			printAddresses(cmd.OutOrStdout(), s.svc.Book().All())
			return nil
		}),
	}
}

func newListCommand(opts *globalOptions) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known addresses",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, _ []string) error {
			printAddresses(cmd.OutOrStdout(), addrgen.FilterAddresses(s.svc.Book().All(), filter))
			return nil
		}),
	}
	cmd.Flags().StringVar(&filter, "filter", "", "Only show addresses whose label or hash contains this text")
	return cmd
}

func newDiscoverCommand(opts *globalOptions) *cobra.Command {
	var (
		skip  []uint
		quiet bool
	)
	cmd := &cobra.Command{
		Use:   "discover",
		Short: "Scan every group for used addresses and save them",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, _ []string) error {
			skipIndexes := make([]types.AddressIndex, len(skip))
			for i, v := range skip {
				skipIndexes[i] = types.AddressIndex(v)
			}
			fut, err := s.svc.DiscoverAndSaveUsedAddresses(cmd.Context(), addrgen.DiscoverOptions{
				WalletID:      s.cfg.WalletID,
				SkipIndexes:   skipIndexes,
				EnableLoading: fn.Some(!quiet),
			})
			if err != nil {
				return err
			}

			addrs, err := await(cmd.Context(), fut)
			var partial *addrgen.DiscoveryError
			if errors.As(err, &partial) {
				printAddresses(cmd.OutOrStdout(), partial.Found)
				return err
			}
			if err != nil {
				return err
			}
			printAddresses(cmd.OutOrStdout(), addrs)
			return nil
		}),
	}
	cmd.Flags().UintSliceVar(&skip, "skip", nil, "Extra indexes to leave out besides the restored addresses")
	cmd.Flags().BoolVar(&quiet, "quiet", false, "Do not report scan progress")
	return cmd
}

func newBalanceCommand(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Show the available balance of every known address",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, _ []string) error {
			out := cmd.OutOrStdout()
			total := new(big.Int)
			for _, a := range s.svc.Book().All() {
				bal, err := s.explorer.AddressBalance(cmd.Context(), a.Hash)
				if err != nil {
					return fmt.Errorf("balance of %s: %w", a.Hash, err)
				}
				a.State.Balance = bal.Balance
				a.State.LockedBalance = bal.LockedBalance
				s.svc.Book().Add(a)

				avail := addrgen.AvailableBalance(a)
				total.Add(total, avail)
				fmt.Fprintf(out, "%-20s %s  %s ALPH (locked %s)\n",
					addrgen.DisplayName(a), a.Hash,
					txinfo.FormatAlph(avail), txinfo.FormatAlph(a.State.LockedBalance))
			}
			fmt.Fprintf(out, "Total available: %s ALPH\n", txinfo.FormatAlph(total))
			return nil
		}),
	}
}

func newClassifyCommand(opts *globalOptions) *cobra.Command {
	var (
		ref          string
		showInternal bool
	)
	cmd := &cobra.Command{
		Use:   "classify <tx-hash>",
		Short: "Classify a transaction relative to one of the wallet's addresses",
		Args:  cobra.ExactArgs(1),
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, args []string) error {
			hash, err := types.HexToHash(args[0])
			if err != nil {
				return fmt.Errorf("invalid tx hash: %w", err)
			}
			refAddr, err := types.ParseAddress(ref)
			if err != nil {
				return fmt.Errorf("invalid --address: %w", err)
			}
			tx, err := s.explorer.Transaction(cmd.Context(), hash)
			if err != nil {
				return err
			}
			c, err := s.svc.ClassifyTransaction(tx, refAddr, showInternal)
			if err != nil {
				return err
			}
			printClassification(cmd.OutOrStdout(), tx, c)
			return nil
		}),
	}
	cmd.Flags().StringVar(&ref, "address", "", "Reference address")
	cmd.MarkFlagRequired("address")
	cmd.Flags().BoolVar(&showInternal, "show-internal", false, "Show internal transfers into the address as inflows")
	return cmd
}

func newHistoryCommand(opts *globalOptions) *cobra.Command {
	var (
		limit        int
		showInternal bool
	)
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent classified transactions of every known address",
		Args:  cobra.NoArgs,
		RunE: withSession(opts, func(cmd *cobra.Command, s *session, _ []string) error {
			book := s.svc.Book()
			addrs := book.All()
			hashes := make([]types.Address, 0, len(addrs))
			seen := make(map[types.Hash]bool)
			var txs []txinfo.Transaction
			for i := range addrs {
				page, err := s.explorer.AddressTransactions(cmd.Context(), addrs[i].Hash, 1, limit)
				if err != nil {
					return fmt.Errorf("history of %s: %w", addrs[i].Hash, err)
				}
				addrs[i].State.TxHashes = addrs[i].State.TxHashes[:0]
				for _, tx := range page {
					addrs[i].State.TxHashes = append(addrs[i].State.TxHashes, tx.Hash)
					if !seen[tx.Hash] {
						seen[tx.Hash] = true
						txs = append(txs, tx)
					}
				}
				book.Add(addrs[i])
				hashes = append(hashes, addrs[i].Hash)
			}

			for _, at := range addrgen.SelectAddressTransactions(addrs, txs, hashes) {
				c, err := s.svc.ClassifyTransaction(at.Tx, at.Address.Hash, showInternal)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "[%s] ", addrgen.DisplayName(at.Address))
				printClassification(cmd.OutOrStdout(), at.Tx, c)
			}
			return nil
		}),
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "Transactions per address")
	cmd.Flags().BoolVar(&showInternal, "show-internal", false, "Show internal transfers into an address as inflows")
	return cmd
}

func parseGroups(vals []int) ([]types.Group, error) {
	groups := make([]types.Group, 0, len(vals))
	for _, v := range vals {
		g, err := types.ParseGroup(v)
		if err != nil {
			return nil, err
		}
		groups = append(groups, g)
	}
	return groups, nil
}

func printAddresses(w io.Writer, addrs []wallet.Address) {
	if len(addrs) == 0 {
		fmt.Fprintln(w, "No addresses.")
		return
	}
	for _, a := range addrs {
		marker := " "
		if a.IsDefault {
			marker = "*"
		}
		fmt.Fprintf(w, "%s %4d  group %d  %s  %-8s %s\n",
			marker, a.Index, a.Group, a.Hash, a.Color, a.Label)
	}
}

func printClassification(w io.Writer, tx *txinfo.Transaction, c *txinfo.Classification) {
	amount := fn.MapOption(txinfo.FormatAlph)(c.Amount).UnwrapOr("?")
	var b strings.Builder
	fmt.Fprintf(&b, "%s  %-7s %s ALPH", tx.Hash, c.InfoType, amount)
	for _, t := range c.Tokens {
		fmt.Fprintf(&b, "  %s %s", t.Amount, shortID(t.ID))
	}
	c.LockTime.WhenSome(func(lt time.Time) {
		fmt.Fprintf(&b, "  locked until %s", lt.UTC().Format(time.RFC3339))
	})
	fmt.Fprintln(w, b.String())
}

func shortID(id types.TokenID) string {
	s := id.String()
	if len(s) > 8 {
		return s[:8] + "..."
	}
	return s
}
