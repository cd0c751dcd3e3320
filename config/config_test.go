package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "relayer.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadParsesFullDocument(t *testing.T) {
	path := writeTempConfig(t, `
chain_endpoints = ["http://localhost:8545"]
dispatcher_address = "0x0000000000000000000000000000000000000123"
chain_id = 1
confirmation_count = 6
tick_interval_seconds = 5

[[relayer]]
keyfile = "/keys/relayer1.json"
passphrase_file = "/keys/relayer1.pass"

[pool]
max_per_sender = 3
max_count = 1000
allow_tokens = ["0x0000000000000000000000000000000000000abc"]

[rpc]
http_addr = "127.0.0.1:8080"
ws_addr = "127.0.0.1:8081"
ipc_path = "/tmp/relayer.ipc"
cors_hosts = ["*"]
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	require.Equal(t, []string{"http://localhost:8545"}, cfg.ChainEndpoints)
	require.Equal(t, uint64(1), cfg.ChainID)
	require.Len(t, cfg.Relayers, 1)
	require.Equal(t, "/keys/relayer1.json", cfg.Relayers[0].KeyFile)

	addr, err := cfg.DispatcherAddr()
	require.NoError(t, err)
	require.Equal(t, "0x0000000000000000000000000000000000000123", addr.Hex())

	tokens, err := cfg.AllowedTokens()
	require.NoError(t, err)
	require.Len(t, tokens, 1)
}

func TestDispatcherAddrRejectsInvalidHex(t *testing.T) {
	cfg := &Config{DispatcherAddress: "not-an-address"}
	_, err := cfg.DispatcherAddr()
	require.Error(t, err)
}

func TestReadPassphraseTrimsTrailingNewline(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "pass.txt")
	require.NoError(t, os.WriteFile(path, []byte("hunter2\n"), 0o600))

	pass, err := ReadPassphrase(path)
	require.NoError(t, err)
	require.Equal(t, "hunter2", pass)
}
