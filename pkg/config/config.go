package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Chain   ChainConfig   `json:"chain" yaml:"chain"`
	Sale    SaleConfig    `json:"sale" yaml:"sale"`
	Wallet  WalletConfig  `json:"wallet" yaml:"wallet"`
	Gateway GatewayConfig `json:"gateway" yaml:"gateway"`
	Watcher WatcherConfig `json:"watcher" yaml:"watcher"`
	Log     LogConfig     `json:"log" yaml:"log"`
}

// ChainConfig identifies the EVM chain the sale runs on.
type ChainConfig struct {
	Name     string `json:"name" yaml:"name" env:"PRESALE_CHAIN_NAME"`
	ChainID  int64  `json:"chain_id" yaml:"chain_id" env:"PRESALE_CHAIN_ID"`
	RPC      string `json:"rpc" yaml:"rpc" env:"PRESALE_CHAIN_RPC"`
	Explorer string `json:"explorer" yaml:"explorer" env:"PRESALE_CHAIN_EXPLORER"` // tx URL prefix
}

// SaleConfig holds the fixed sale parameters: contract addresses, the
// receiving wallet, and the per-asset exchange rates.
type SaleConfig struct {
	TokenContract  string `json:"token_contract" yaml:"token_contract" env:"PRESALE_SALE_TOKEN_CONTRACT"`
	StableContract string `json:"stable_contract" yaml:"stable_contract" env:"PRESALE_SALE_STABLE_CONTRACT"`
	StableSymbol   string `json:"stable_symbol" yaml:"stable_symbol" env:"PRESALE_SALE_STABLE_SYMBOL"`
	NativeSymbol   string `json:"native_symbol" yaml:"native_symbol" env:"PRESALE_SALE_NATIVE_SYMBOL"`
	Receiver       string `json:"receiver" yaml:"receiver" env:"PRESALE_SALE_RECEIVER"`
	StableRate     int64  `json:"stable_rate" yaml:"stable_rate" env:"PRESALE_SALE_STABLE_RATE"`
	NativeRate     int64  `json:"native_rate" yaml:"native_rate" env:"PRESALE_SALE_NATIVE_RATE"`
	Decimals       int32  `json:"decimals" yaml:"decimals" env:"PRESALE_SALE_DECIMALS"`
}

type WalletConfig struct {
	Dir string `json:"dir" yaml:"dir" env:"PRESALE_WALLET_DIR"`
}

type GatewayConfig struct {
	Host string `json:"host" yaml:"host" env:"PRESALE_GATEWAY_HOST"`
	Port int    `json:"port" yaml:"port" env:"PRESALE_GATEWAY_PORT"`
}

// WatcherConfig tunes confirmation polling.
type WatcherConfig struct {
	PollSeconds    int `json:"poll_seconds" yaml:"poll_seconds" env:"PRESALE_WATCHER_POLL_SECONDS"`
	TimeoutSeconds int `json:"timeout_seconds" yaml:"timeout_seconds" env:"PRESALE_WATCHER_TIMEOUT_SECONDS"`
}

type LogConfig struct {
	Level string `json:"level" yaml:"level" env:"PRESALE_LOG_LEVEL"`
	JSON  bool   `json:"json" yaml:"json" env:"PRESALE_LOG_JSON"`
}

func DefaultConfig() *Config {
	return &Config{
		Chain: ChainConfig{
			Name:     "BSC",
			ChainID:  56,
			RPC:      "https://bsc-dataseed.binance.org",
			Explorer: "https://bscscan.com/tx/",
		},
		Sale: SaleConfig{
			TokenContract:  "0x1234567890123456789012345678901234567890",
			StableContract: "0x55d398326f99059fF775485246999027B3197955",
			StableSymbol:   "USDT",
			NativeSymbol:   "BNB",
			Receiver:       "0x0987654321098765432109876543210987654321",
			StableRate:     10,
			NativeRate:     100,
			Decimals:       18,
		},
		Wallet: WalletConfig{
			Dir: "~/.presale/wallet",
		},
		Gateway: GatewayConfig{
			Host: "0.0.0.0",
			Port: 18890,
		},
		Watcher: WatcherConfig{
			PollSeconds:    3,
			TimeoutSeconds: 600,
		},
		Log: LogConfig{
			Level: "info",
			JSON:  false,
		},
	}
}

// LoadConfig reads the config file at path (JSON or YAML by extension),
// falling back to defaults when the file does not exist, then applies
// environment variable overrides.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			if err := env.Parse(cfg); err != nil {
				return nil, err
			}
			return cfg, cfg.Validate()
		}
		return nil, err
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse %s: %w", path, err)
		}
	}

	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	return cfg, cfg.Validate()
}

func SaveConfig(path string, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return err
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	return os.WriteFile(path, data, 0o600)
}

// Validate checks the sale parameters the purchase flow depends on.
func (c *Config) Validate() error {
	if c.Chain.RPC == "" {
		return fmt.Errorf("chain.rpc is required")
	}
	if c.Chain.ChainID <= 0 {
		return fmt.Errorf("chain.chain_id must be positive, got %d", c.Chain.ChainID)
	}
	for name, addr := range map[string]string{
		"sale.token_contract":  c.Sale.TokenContract,
		"sale.stable_contract": c.Sale.StableContract,
		"sale.receiver":        c.Sale.Receiver,
	} {
		if !common.IsHexAddress(addr) {
			return fmt.Errorf("%s is not a valid address: %q", name, addr)
		}
	}
	if c.Sale.StableRate <= 0 || c.Sale.NativeRate <= 0 {
		return fmt.Errorf("sale rates must be positive")
	}
	if c.Sale.Decimals < 0 {
		return fmt.Errorf("sale.decimals must be >= 0, got %d", c.Sale.Decimals)
	}
	return nil
}

// WalletDir returns the keystore directory with ~ expanded.
func (c *Config) WalletDir() string {
	return expandHome(c.Wallet.Dir)
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") || path == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		if path == "~" {
			return home
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
