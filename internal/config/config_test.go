package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/altuslabsxyz/workspaces-go/pkg/network"
	"github.com/altuslabsxyz/workspaces-go/pkg/rpc"
	"github.com/altuslabsxyz/workspaces-go/types"
)

func writeFile(t *testing.T, dir, content string) string {
	t.Helper()
	require.NoError(t, os.MkdirAll(dir, 0o755))
	path := filepath.Join(dir, FileName)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func newTestLoader(t *testing.T, configPath string) (*Loader, string, string) {
	t.Helper()
	t.Setenv(EnvSandboxBinPath, "")
	t.Setenv(EnvRPCURL, "")
	home := t.TempDir()
	work := t.TempDir()
	l := NewLoader(home, configPath, nil)
	l.workDir = work
	return l, home, work
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, rpc.DefaultPollConfig(), cfg.PollConfig())
	assert.Equal(t, network.TestnetRPCURL, cfg.Testnet.RPCURL)
	assert.Equal(t, network.TestnetHelperURL, cfg.Testnet.HelperURL)
	assert.True(t, cfg.Sandbox.InitialBalance.Equal(types.NEAR(100)))
}

func TestFileConfigIsEmpty(t *testing.T) {
	fc := &FileConfig{}
	assert.True(t, fc.IsEmpty())

	v := "5s"
	fc.RPC.Timeout = &v
	assert.False(t, fc.IsEmpty())
}

func TestLoad_NoFiles(t *testing.T) {
	l, _, _ := newTestLoader(t, "")
	cfg, files, err := l.Load()
	require.NoError(t, err)
	assert.Empty(t, files)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoad_MergePriority(t *testing.T) {
	l, home, work := newTestLoader(t, "")
	writeFile(t, home, `
[rpc]
timeout = "3s"
retry_max = 2

[poll]
max_rounds = 10
`)
	writeFile(t, work, `
[rpc]
timeout = "7s"

[sandbox]
grace_period = "1s"
initial_balance = "5000"
`)
	explicit := writeFile(t, filepath.Join(t.TempDir(), "explicit"), `
[testnet]
rpc_url = "https://rpc.example.org"
save_credentials = true
`)
	l.configPath = explicit

	cfg, files, err := l.Load()
	require.NoError(t, err)
	assert.Len(t, files, 3)

	assert.Equal(t, 7*time.Second, cfg.RPC.Timeout)
	assert.Equal(t, 2, cfg.RPC.RetryMax)
	assert.Equal(t, 10, cfg.Poll.MaxRounds)
	assert.Equal(t, time.Second, cfg.Sandbox.GracePeriod)
	assert.True(t, cfg.Sandbox.InitialBalance.Equal(types.Yocto(5000)))
	assert.Equal(t, "https://rpc.example.org", cfg.Testnet.RPCURL)
	assert.True(t, cfg.Testnet.SaveCredentials)

	// untouched values keep their defaults
	assert.Equal(t, rpc.DefaultPollTimeout, cfg.Poll.Timeout)
}

func TestLoad_ExplicitMissing(t *testing.T) {
	l, _, _ := newTestLoader(t, filepath.Join(t.TempDir(), "missing.toml"))
	_, _, err := l.Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file not found")
}

func TestLoad_ExplicitSameAsWorkDir(t *testing.T) {
	l, _, work := newTestLoader(t, "")
	l.configPath = writeFile(t, work, `[rpc]
retry_max = 1
`)
	_, files, err := l.Load()
	require.NoError(t, err)
	assert.Len(t, files, 1)
}

func TestLoad_EnvOverrides(t *testing.T) {
	l, home, _ := newTestLoader(t, "")
	writeFile(t, home, `
[sandbox]
binary_path = "/from/file"
`)
	t.Setenv(EnvSandboxBinPath, "/from/env")
	t.Setenv(EnvRPCURL, "http://localhost:3030")

	cfg, _, err := l.Load()
	require.NoError(t, err)
	assert.Equal(t, "/from/env", cfg.Sandbox.BinaryPath)
	assert.Equal(t, "http://localhost:3030", cfg.Testnet.RPCURL)
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		content string
		want    string
	}{
		{"bad toml", `[rpc`, "failed to parse"},
		{"bad duration", "[rpc]\ntimeout = \"soon\"", "invalid duration for rpc.timeout"},
		{"bad balance", "[sandbox]\ninitial_balance = \"-1\"", "sandbox.initial_balance"},
		{"zero rounds", "[poll]\nmax_rounds = 0", "poll.max_rounds"},
		{"bad url", "[testnet]\nhelper_url = \"ftp://x\"", "testnet.helper_url"},
		{"max below initial", "[poll]\ninitial_interval = \"5s\"\nmax_interval = \"1s\"", "poll.max_interval"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l, _, work := newTestLoader(t, "")
			writeFile(t, work, tt.content)
			_, _, err := l.Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestConversions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Sandbox.BinaryPath = "/bin/near-sandbox"
	cfg.RPC.RetryMax = 3
	cfg.Testnet.SaveCredentials = true

	sb := cfg.NetworkSandboxConfig(nil, nil)
	assert.Equal(t, "/bin/near-sandbox", sb.Process.BinaryPath)
	assert.Equal(t, 3, sb.RPC.RetryMax)
	assert.Equal(t, cfg.PollConfig(), sb.RPC.Poll)
	assert.True(t, sb.InitialBalance.Equal(network.DefaultTLABalance))

	tn := cfg.NetworkTestnetConfig(nil, nil, nil)
	assert.Equal(t, network.TestnetKeystorePath, tn.KeystorePath)
	assert.True(t, tn.SaveCredentials)
	assert.Nil(t, tn.Keystore)
}
