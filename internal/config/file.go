package config

// FileConfig represents the raw workspaces.toml contents.
// All fields are pointers to distinguish "not set" from "set to zero/false".
// Durations are strings parsed with time.ParseDuration.
type FileConfig struct {
	Global  GlobalFileConfig  `toml:"global"`
	RPC     RPCFileConfig     `toml:"rpc"`
	Poll    PollFileConfig    `toml:"poll"`
	Sandbox SandboxFileConfig `toml:"sandbox"`
	Testnet TestnetFileConfig `toml:"testnet"`
}

// GlobalFileConfig is the [global] table.
type GlobalFileConfig struct {
	NoColor *bool `toml:"no_color"`
	Verbose *bool `toml:"verbose"`
	JSON    *bool `toml:"json"`
}

// RPCFileConfig is the [rpc] table.
type RPCFileConfig struct {
	Timeout  *string `toml:"timeout"`
	RetryMax *int    `toml:"retry_max"`
}

// PollFileConfig is the [poll] table.
type PollFileConfig struct {
	InitialInterval *string `toml:"initial_interval"`
	MaxInterval     *string `toml:"max_interval"`
	MaxRounds       *int    `toml:"max_rounds"`
	Timeout         *string `toml:"timeout"`
}

// SandboxFileConfig is the [sandbox] table.
type SandboxFileConfig struct {
	BinaryPath      *string `toml:"binary_path"`
	HomeDir         *string `toml:"home_dir"`
	LivenessTimeout *string `toml:"liveness_timeout"`
	GracePeriod     *string `toml:"grace_period"`
	InitialBalance  *string `toml:"initial_balance"` // yoctoNEAR
}

// TestnetFileConfig is the [testnet] table.
type TestnetFileConfig struct {
	RPCURL          *string `toml:"rpc_url"`
	HelperURL       *string `toml:"helper_url"`
	KeystorePath    *string `toml:"keystore_path"`
	HelperTimeout   *string `toml:"helper_timeout"`
	SaveCredentials *bool   `toml:"save_credentials"`
}

// IsEmpty returns true if no configuration values are set.
func (f *FileConfig) IsEmpty() bool {
	return *f == FileConfig{}
}

// mergeFileConfig copies the non-nil values of src over dst.
func mergeFileConfig(dst, src *FileConfig) {
	setIf(&dst.Global.NoColor, src.Global.NoColor)
	setIf(&dst.Global.Verbose, src.Global.Verbose)
	setIf(&dst.Global.JSON, src.Global.JSON)

	setIf(&dst.RPC.Timeout, src.RPC.Timeout)
	setIf(&dst.RPC.RetryMax, src.RPC.RetryMax)

	setIf(&dst.Poll.InitialInterval, src.Poll.InitialInterval)
	setIf(&dst.Poll.MaxInterval, src.Poll.MaxInterval)
	setIf(&dst.Poll.MaxRounds, src.Poll.MaxRounds)
	setIf(&dst.Poll.Timeout, src.Poll.Timeout)

	setIf(&dst.Sandbox.BinaryPath, src.Sandbox.BinaryPath)
	setIf(&dst.Sandbox.HomeDir, src.Sandbox.HomeDir)
	setIf(&dst.Sandbox.LivenessTimeout, src.Sandbox.LivenessTimeout)
	setIf(&dst.Sandbox.GracePeriod, src.Sandbox.GracePeriod)
	setIf(&dst.Sandbox.InitialBalance, src.Sandbox.InitialBalance)

	setIf(&dst.Testnet.RPCURL, src.Testnet.RPCURL)
	setIf(&dst.Testnet.HelperURL, src.Testnet.HelperURL)
	setIf(&dst.Testnet.KeystorePath, src.Testnet.KeystorePath)
	setIf(&dst.Testnet.HelperTimeout, src.Testnet.HelperTimeout)
	setIf(&dst.Testnet.SaveCredentials, src.Testnet.SaveCredentials)
}

func setIf[T any](dst **T, src *T) {
	if src != nil {
		*dst = src
	}
}
