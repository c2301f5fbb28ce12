package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes every environment override: GROUPWALLET_EXPLORER_URL
// sets explorer.url.
const EnvPrefix = "GROUPWALLET"

// FlagKeys maps command-line flag names to config keys. Only flags present
// in the set passed to Load are bound.
var FlagKeys = map[string]string{
	"network":      "network",
	"datadir":      "datadir",
	"wallet":       "wallet_id",
	"explorer-url": "explorer.url",
	"rate":         "explorer.rate",
	"batch-size":   "discovery.batch_size",
	"max-index":    "discovery.max_index",
	"log-level":    "log.level",
	"log-json":     "log.json",
	"log-file":     "log.file",
}

// Load builds the configuration. The network is resolved first so that
// defaults match it; then the file at path (optional), the environment and
// the changed flags are layered on top. A missing file is not an error.
// The result is validated.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if flags != nil {
		for name, key := range FlagKeys {
			if f := flags.Lookup(name); f != nil {
				if err := v.BindPFlag(key, f); err != nil {
					return nil, fmt.Errorf("bind flag %s: %w", name, err)
				}
			}
		}
	}

	if path != "" {
		switch _, err := os.Stat(path); {
		case err == nil:
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return nil, fmt.Errorf("read config %s: %w", path, err)
			}
		case !os.IsNotExist(err):
			return nil, fmt.Errorf("stat config %s: %w", path, err)
		}
	}

	network := NetworkType(strings.ToLower(v.GetString("network")))
	if network == "" {
		network = Mainnet
	}
	setDefaults(v, Default(network))

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.Network = NetworkType(strings.ToLower(string(cfg.Network)))
	cfg.Log.Level = strings.ToLower(cfg.Log.Level)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("network", string(d.Network))
	v.SetDefault("datadir", d.DataDir)
	v.SetDefault("wallet_id", d.WalletID)
	v.SetDefault("explorer.url", d.Explorer.URL)
	v.SetDefault("explorer.timeout", d.Explorer.Timeout)
	v.SetDefault("explorer.rate", d.Explorer.Rate)
	v.SetDefault("discovery.batch_size", d.Discovery.BatchSize)
	v.SetDefault("discovery.retries", d.Discovery.Retries)
	v.SetDefault("discovery.retry_delay", d.Discovery.RetryDelay)
	v.SetDefault("discovery.max_index", d.Discovery.MaxIndex)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.file", d.Log.File)
	v.SetDefault("log.json", d.Log.JSON)
}
