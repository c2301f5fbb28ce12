// groupwallet derives, discovers and inspects the addresses of a
// group-sharded HD wallet.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	opts := &globalOptions{}
	root := &cobra.Command{
		Use:           "groupwallet",
		Short:         "Group-sharded HD wallet address tool",
		Long:          "groupwallet derives addresses per group, restores them from stored metadata, discovers used addresses through an explorer and classifies transactions.",
		Version:       fmt.Sprintf("%s (commit %s, built %s)", version, commit, date),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&opts.configFile, "config", "", "Config file (yaml, json or toml)")
	pf.String("network", "", "Network: mainnet, testnet or devnet")
	pf.String("datadir", "", "Data directory")
	pf.String("wallet", "", "Wallet identity for stored metadata")
	pf.String("explorer-url", "", "Explorer backend URL")
	pf.Int("rate", 0, "Explorer requests per second (0 = unlimited)")
	pf.Int("batch-size", 0, "Discovery batch size per group")
	pf.Uint32("max-index", 0, "Highest index a group search may try")
	pf.String("log-level", "", "Log level: debug, info, warn, error")
	pf.Bool("log-json", false, "Log as JSON")
	pf.String("log-file", "", "Also log to this file")
	pf.StringVar(&opts.mnemonicFile, "mnemonic-file", "", "Read the mnemonic from this file")
	pf.BoolVar(&opts.askPassphrase, "passphrase", false, "Prompt for a BIP-39 passphrase")

	root.AddCommand(
		newMnemonicCommand(),
		newAddressCommand(opts),
		newGroupsCommand(opts),
		newRestoreCommand(opts),
		newListCommand(opts),
		newDiscoverCommand(opts),
		newBalanceCommand(opts),
		newClassifyCommand(opts),
		newHistoryCommand(opts),
	)
	return root
}
