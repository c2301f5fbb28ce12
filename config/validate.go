package config

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/Klingon-tech/klingnet-groupwallet/internal/wallet"
	"github.com/Klingon-tech/klingnet-groupwallet/pkg/types"
)

// Validate checks the config for obvious operator mistakes.
func Validate(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("config is nil")
	}
	switch cfg.Network {
	case Mainnet, Testnet, Devnet:
	default:
		return fmt.Errorf("network must be %q, %q or %q", Mainnet, Testnet, Devnet)
	}
	if strings.TrimSpace(cfg.DataDir) == "" {
		return fmt.Errorf("datadir is empty")
	}
	if strings.TrimSpace(cfg.WalletID) == "" {
		return fmt.Errorf("wallet_id is empty")
	}

	u, err := url.Parse(cfg.Explorer.URL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("explorer.url must be an http(s) URL, got %q", cfg.Explorer.URL)
	}
	if cfg.Explorer.Timeout <= 0 {
		return fmt.Errorf("explorer.timeout must be positive")
	}
	if cfg.Explorer.Rate < 0 {
		return fmt.Errorf("explorer.rate must not be negative")
	}

	if cfg.Discovery.BatchSize < 1 {
		return fmt.Errorf("discovery.batch_size must be at least 1")
	}
	if cfg.Discovery.Retries < 0 {
		return fmt.Errorf("discovery.retries must not be negative")
	}
	if cfg.Discovery.MaxIndex == 0 || types.AddressIndex(cfg.Discovery.MaxIndex) > wallet.MaxNonHardenedIndex {
		return fmt.Errorf("discovery.max_index must be in range [1, %d]", wallet.MaxNonHardenedIndex)
	}

	switch strings.ToLower(cfg.Log.Level) {
	case "debug", "info", "warn", "error", "disabled", "off":
	default:
		return fmt.Errorf("log.level %q is not a known level", cfg.Log.Level)
	}
	return nil
}
