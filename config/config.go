// Package config loads the relayer's TOML configuration file: chain
// endpoints, relayer keystore accounts, pool parameters and the JSON-RPC
// listener addresses.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/ethereum/go-ethereum/common"
)

// RelayerAccount names one keystore file and its decryption passphrase
// source. Passphrase is never stored in the TOML file itself; it is read
// from PassphraseFile so config files can be committed without secrets.
type RelayerAccount struct {
	KeyFile        string `toml:"keyfile"`
	PassphraseFile string `toml:"passphrase_file"`
}

// PoolConfig mirrors core/pool.Params plus the token allow-list.
type PoolConfig struct {
	MaxPerSender int      `toml:"max_per_sender"`
	MaxCount     int      `toml:"max_count"`
	AllowTokens  []string `toml:"allow_tokens"`
}

// RPCConfig configures the JSON-RPC HTTP/WS listener and the Unix-socket
// IPC endpoint.
type RPCConfig struct {
	HTTPAddr  string   `toml:"http_addr"`
	WSAddr    string   `toml:"ws_addr"`
	IPCPath   string   `toml:"ipc_path"`
	CORSHosts []string `toml:"cors_hosts"`
}

// Config is the top-level TOML document.
type Config struct {
	ChainEndpoints    []string         `toml:"chain_endpoints"`
	DispatcherAddress string           `toml:"dispatcher_address"`
	ChainID           uint64           `toml:"chain_id"`
	ConfirmationCount uint64           `toml:"confirmation_count"`
	TickInterval      int              `toml:"tick_interval_seconds"`
	Relayers          []RelayerAccount `toml:"relayer"`
	Pool              PoolConfig       `toml:"pool"`
	RPC               RPCConfig        `toml:"rpc"`
}

// Load reads and decodes the TOML file at path.
func Load(path string) (*Config, error) {
	var cfg Config
	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	return &cfg, nil
}

// DispatcherAddr parses DispatcherAddress as a hex address.
func (c *Config) DispatcherAddr() (common.Address, error) {
	if !common.IsHexAddress(c.DispatcherAddress) {
		return common.Address{}, fmt.Errorf("config: invalid dispatcher_address %q", c.DispatcherAddress)
	}
	return common.HexToAddress(c.DispatcherAddress), nil
}

// AllowedTokens parses Pool.AllowTokens as hex addresses.
func (c *Config) AllowedTokens() ([]common.Address, error) {
	out := make([]common.Address, 0, len(c.Pool.AllowTokens))
	for _, s := range c.Pool.AllowTokens {
		if !common.IsHexAddress(s) {
			return nil, fmt.Errorf("config: invalid token address %q", s)
		}
		out = append(out, common.HexToAddress(s))
	}
	return out, nil
}

// DefaultConfigDir resolves the relayer's config directory, following
// $XDG_CONFIG_HOME when set and falling back to $HOME/.config/relayer.
func DefaultConfigDir() (string, error) {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "relayer"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "relayer"), nil
}

// DefaultDataDir resolves the relayer's data directory (keystore files,
// any future persisted state), following $XDG_DATA_HOME when set.
func DefaultDataDir() (string, error) {
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, "relayer"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".local", "share", "relayer"), nil
}

// ReadPassphrase reads and trims the passphrase file for a relayer account.
func ReadPassphrase(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("config: read passphrase %s: %w", path, err)
	}
	return trimTrailingNewline(string(data)), nil
}

func trimTrailingNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
