// Package config loads workspaces.toml into the option structs of the
// rpc, sandbox and network packages.
package config

import (
	"log/slog"
	"time"

	"github.com/altuslabsxyz/workspaces-go/pkg/keystore"
	"github.com/altuslabsxyz/workspaces-go/pkg/network"
	"github.com/altuslabsxyz/workspaces-go/pkg/rpc"
	"github.com/altuslabsxyz/workspaces-go/pkg/sandbox"
	"github.com/altuslabsxyz/workspaces-go/types"
)

// Config is the resolved configuration.
// Priority: defaults < config files < environment variables < CLI flags
type Config struct {
	Global  GlobalConfig  `toml:"global"`
	RPC     RPCConfig     `toml:"rpc"`
	Poll    PollConfig    `toml:"poll"`
	Sandbox SandboxConfig `toml:"sandbox"`
	Testnet TestnetConfig `toml:"testnet"`
}

// GlobalConfig holds CLI output settings.
type GlobalConfig struct {
	NoColor bool `toml:"no_color"`
	Verbose bool `toml:"verbose"`
	JSON    bool `toml:"json"`
}

// RPCConfig holds JSON-RPC transport settings.
type RPCConfig struct {
	Timeout  time.Duration `toml:"timeout"`
	RetryMax int           `toml:"retry_max"`
}

// PollConfig holds the finality poll budget.
type PollConfig struct {
	InitialInterval time.Duration `toml:"initial_interval"`
	MaxInterval     time.Duration `toml:"max_interval"`
	MaxRounds       int           `toml:"max_rounds"`
	Timeout         time.Duration `toml:"timeout"`
}

// SandboxConfig holds sandbox process settings.
type SandboxConfig struct {
	BinaryPath      string        `toml:"binary_path"`
	HomeDir         string        `toml:"home_dir"`
	LivenessTimeout time.Duration `toml:"liveness_timeout"`
	GracePeriod     time.Duration `toml:"grace_period"`

	// InitialBalance is the yoctoNEAR amount given to new top-level accounts.
	InitialBalance types.Balance `toml:"-"`
}

// TestnetConfig holds testnet endpoints.
type TestnetConfig struct {
	RPCURL          string        `toml:"rpc_url"`
	HelperURL       string        `toml:"helper_url"`
	KeystorePath    string        `toml:"keystore_path"`
	HelperTimeout   time.Duration `toml:"helper_timeout"`
	SaveCredentials bool          `toml:"save_credentials"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		RPC: RPCConfig{
			Timeout: rpc.DefaultTimeout,
		},
		Poll: PollConfig{
			InitialInterval: rpc.DefaultPollInitialInterval,
			MaxInterval:     rpc.DefaultPollMaxInterval,
			MaxRounds:       rpc.DefaultPollMaxRounds,
			Timeout:         rpc.DefaultPollTimeout,
		},
		Sandbox: SandboxConfig{
			LivenessTimeout: sandbox.DefaultLivenessTimeout,
			GracePeriod:     sandbox.DefaultGracePeriod,
			InitialBalance:  network.DefaultTLABalance,
		},
		Testnet: TestnetConfig{
			RPCURL:        network.TestnetRPCURL,
			HelperURL:     network.TestnetHelperURL,
			KeystorePath:  network.TestnetKeystorePath,
			HelperTimeout: 30 * time.Second,
		},
	}
}

// PollConfig converts the poll budget.
func (c *Config) PollConfig() rpc.PollConfig {
	return rpc.PollConfig{
		InitialInterval: c.Poll.InitialInterval,
		MaxInterval:     c.Poll.MaxInterval,
		MaxRounds:       c.Poll.MaxRounds,
		Timeout:         c.Poll.Timeout,
	}
}

// RPCConfig converts the transport settings.
func (c *Config) RPCConfig(logger *slog.Logger, metrics *rpc.Metrics) rpc.Config {
	return rpc.Config{
		Timeout:  c.RPC.Timeout,
		RetryMax: c.RPC.RetryMax,
		Poll:     c.PollConfig(),
		Logger:   logger,
		Metrics:  metrics,
	}
}

// SandboxProcessConfig converts the sandbox process settings.
func (c *Config) SandboxProcessConfig(logger *slog.Logger) sandbox.Config {
	return sandbox.Config{
		BinaryPath:      c.Sandbox.BinaryPath,
		HomeDir:         c.Sandbox.HomeDir,
		LivenessTimeout: c.Sandbox.LivenessTimeout,
		GracePeriod:     c.Sandbox.GracePeriod,
		Logger:          logger,
	}
}

// NetworkSandboxConfig converts to a sandbox backend config.
func (c *Config) NetworkSandboxConfig(logger *slog.Logger, metrics *rpc.Metrics) network.SandboxConfig {
	return network.SandboxConfig{
		Process:        c.SandboxProcessConfig(logger),
		RPC:            c.RPCConfig(logger, metrics),
		InitialBalance: c.Sandbox.InitialBalance,
	}
}

// NetworkTestnetConfig converts to a testnet backend config. A nil store
// means the file keystore at KeystorePath.
func (c *Config) NetworkTestnetConfig(logger *slog.Logger, metrics *rpc.Metrics, store keystore.Store) network.TestnetConfig {
	return network.TestnetConfig{
		RPCURL:          c.Testnet.RPCURL,
		HelperURL:       c.Testnet.HelperURL,
		KeystorePath:    c.Testnet.KeystorePath,
		RPC:             c.RPCConfig(logger, metrics),
		HelperTimeout:   c.Testnet.HelperTimeout,
		SaveCredentials: c.Testnet.SaveCredentials,
		Keystore:        store,
	}
}
