package core

import (
	"math/big"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	file := filepath.Join(t.TempDir(), "host.toml")
	require.NoError(t, os.WriteFile(file, []byte(content), 0o600))
	return file
}

func TestConfigRoundTrip(t *testing.T) {
	cfg := DefaultConfig
	cfg.MaxCallDepth = 64
	cfg.Alloc = []GenesisAccount{{Address: alice, Balance: big.NewInt(12345)}}

	out, err := cfg.Dump()
	require.NoError(t, err)

	var loaded Config
	require.NoError(t, LoadConfig(writeConfig(t, string(out)), &loaded))
	require.Equal(t, 64, loaded.MaxCallDepth)
	require.Len(t, loaded.Alloc, 1)
	require.Equal(t, alice, loaded.Alloc[0].Address)
	require.Equal(t, int64(12345), loaded.Alloc[0].Balance.Int64())
}

func TestConfigDefaults(t *testing.T) {
	out, err := DefaultConfig.Dump()
	require.NoError(t, err)
	require.Contains(t, string(out), "MaxCallDepth")

	cfg := DefaultConfig
	require.NoError(t, LoadConfig(writeConfig(t, ""), &cfg))
	require.Equal(t, DefaultConfig.MaxCallDepth, cfg.MaxCallDepth)
}

func TestConfigUnknownField(t *testing.T) {
	cfg := DefaultConfig
	file := writeConfig(t, "MaxCallDepth = 12\nGasLimit = 100\n")
	err := LoadConfig(file, &cfg)
	require.Error(t, err)
	require.Contains(t, err.Error(), "GasLimit")
}

func TestConfigValidate(t *testing.T) {
	cfg := DefaultConfig
	require.Error(t, LoadConfig(writeConfig(t, "MaxCallDepth = 0\n"), &cfg))

	bad := DefaultConfig
	bad.Alloc = []GenesisAccount{{Address: bob, Balance: big.NewInt(-1)}}
	require.Error(t, bad.Validate())

	_, err := NewHost(&bad, nil)
	require.Error(t, err)
}
