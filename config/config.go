// Package config handles application configuration.
//
// Settings come from, in increasing priority: built-in defaults for the
// selected network, an optional config file, GROUPWALLET_* environment
// variables and command-line flags.
package config

import (
	"os"
	"path/filepath"
	"runtime"
	"time"
)

// NetworkType identifies the network whose explorer the wallet talks to.
type NetworkType string

const (
	Mainnet NetworkType = "mainnet"
	Testnet NetworkType = "testnet"
	Devnet  NetworkType = "devnet"
)

// Config holds the wallet engine's runtime configuration.
type Config struct {
	// Core
	Network NetworkType `mapstructure:"network"`
	DataDir string      `mapstructure:"datadir"`

	// Wallet identity the address metadata is stored under.
	WalletID string `mapstructure:"wallet_id"`

	// Explorer backend used as the activity oracle.
	Explorer ExplorerConfig `mapstructure:"explorer"`

	// Address discovery
	Discovery DiscoveryConfig `mapstructure:"discovery"`

	// Logging
	Log LogConfig `mapstructure:"log"`
}

// ExplorerConfig holds explorer client settings.
type ExplorerConfig struct {
	URL     string        `mapstructure:"url"`
	Timeout time.Duration `mapstructure:"timeout"`
	Rate    int           `mapstructure:"rate"` // Requests per second, 0 = unlimited.
}

// DiscoveryConfig holds discovery scanner settings.
type DiscoveryConfig struct {
	BatchSize  int           `mapstructure:"batch_size"`
	Retries    int           `mapstructure:"retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
	MaxIndex   uint32        `mapstructure:"max_index"` // Group search bound.
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level string `mapstructure:"level"`
	File  string `mapstructure:"file"`
	JSON  bool   `mapstructure:"json"`
}

// =============================================================================
// Directory helpers
// =============================================================================

// DefaultDataDir returns the platform-specific default data directory.
//
//	Linux:   ~/.groupwallet
//	macOS:   ~/Library/Application Support/GroupWallet
//	Windows: %APPDATA%\GroupWallet
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".groupwallet"
	}
	switch runtime.GOOS {
	case "darwin":
		return filepath.Join(home, "Library", "Application Support", "GroupWallet")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData != "" {
			return filepath.Join(appData, "GroupWallet")
		}
		return filepath.Join(home, "AppData", "Roaming", "GroupWallet")
	default:
		return filepath.Join(home, ".groupwallet")
	}
}

// NetworkDataDir returns the network-specific data directory.
func (c *Config) NetworkDataDir() string {
	return filepath.Join(c.DataDir, string(c.Network))
}

// MetadataDir returns the address metadata database directory.
func (c *Config) MetadataDir() string {
	return filepath.Join(c.NetworkDataDir(), "metadata")
}

// LogsDir returns the logs directory.
func (c *Config) LogsDir() string {
	return filepath.Join(c.DataDir, "logs")
}

// ConfigFile returns the default config file path.
func (c *Config) ConfigFile() string {
	return filepath.Join(c.DataDir, "groupwallet.yaml")
}
