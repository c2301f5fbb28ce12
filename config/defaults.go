package config

import (
	"time"

	"github.com/Klingon-tech/klingnet-groupwallet/internal/wallet"
)

// Explorer backends per network.
const (
	MainnetExplorerURL = "https://backend.mainnet.alephium.org"
	TestnetExplorerURL = "https://backend.testnet.alephium.org"
	DevnetExplorerURL  = "http://127.0.0.1:9090"
)

// DefaultWalletID is used when no wallet identity is configured.
const DefaultWalletID = "default"

// DefaultMainnet returns the default configuration for mainnet.
func DefaultMainnet() *Config {
	return &Config{
		Network:  Mainnet,
		DataDir:  DefaultDataDir(),
		WalletID: DefaultWalletID,
		Explorer: ExplorerConfig{
			URL:     MainnetExplorerURL,
			Timeout: 30 * time.Second,
			Rate:    10,
		},
		Discovery: DiscoveryConfig{
			BatchSize:  5,
			Retries:    2,
			RetryDelay: time.Second,
			MaxIndex:   uint32(wallet.DefaultMaxSearchIndex),
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// DefaultTestnet returns the default configuration for testnet.
func DefaultTestnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Testnet
	cfg.Explorer.URL = TestnetExplorerURL
	return cfg
}

// DefaultDevnet returns the default configuration for a local devnet.
func DefaultDevnet() *Config {
	cfg := DefaultMainnet()
	cfg.Network = Devnet
	cfg.Explorer.URL = DevnetExplorerURL
	cfg.Explorer.Rate = 0
	return cfg
}

// Default returns the default configuration for the given network.
func Default(network NetworkType) *Config {
	switch network {
	case Testnet:
		return DefaultTestnet()
	case Devnet:
		return DefaultDevnet()
	default:
		return DefaultMainnet()
	}
}
