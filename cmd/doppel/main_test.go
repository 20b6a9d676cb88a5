package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/clydemeng/doppelganger/internal/testcontract"
)

func runApp(t *testing.T, args ...string) string {
	t.Helper()
	var out bytes.Buffer
	app := newApp()
	app.Writer = &out
	require.NoError(t, app.Run(append([]string{"doppel", "--verbosity", "0"}, args...)))
	return out.String()
}

func TestSelectors(t *testing.T) {
	file := filepath.Join(t.TempDir(), "erc20.json")
	require.NoError(t, os.WriteFile(file, []byte(testcontract.ERC20ABIJSON), 0o600))

	out := runApp(t, "selectors", "--abi", file)
	require.Contains(t, out, "balanceOf(address)")
	require.Contains(t, out, "0x70a08231")
	require.Contains(t, out, "transfer(address,uint256)")
	require.Contains(t, out, "0xa9059cbb")
	require.Contains(t, out, "receive")
	require.NotContains(t, out, "__mock__call")

	out = runApp(t, "selectors", "--abi", file, "--admin")
	require.Contains(t, out, "__mock__call(address,bytes)")
}

func TestDumpConfig(t *testing.T) {
	require.Contains(t, runApp(t, "dumpconfig"), "MaxCallDepth")

	file := filepath.Join(t.TempDir(), "host.toml")
	require.NoError(t, os.WriteFile(file, []byte("MaxCallDepth = 7\n"), 0o600))
	require.Contains(t, runApp(t, "dumpconfig", "--config", file), "7")
}
