package config

import (
	"bytes"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/altuslabsxyz/workspaces-go/types"
)

// FileName is the config file looked up in each search location.
const FileName = "workspaces.toml"

// Environment variable names
const (
	EnvSandboxBinPath = "NEAR_SANDBOX_BIN_PATH"
	EnvRPCURL         = "NEAR_RPC_URL"
)

// DefaultHomeDir returns ~/.workspaces, or "" when the home directory is
// unknown.
func DefaultHomeDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".workspaces")
}

// Loader loads configuration from files and the environment.
type Loader struct {
	homeDir    string
	workDir    string
	configPath string // explicit --config path
	logger     *slog.Logger
}

// NewLoader creates a loader. homeDir holds the user-wide config file and
// configPath, when set, names an explicit file that must exist.
func NewLoader(homeDir, configPath string, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		homeDir:    homeDir,
		workDir:    ".",
		configPath: configPath,
		logger:     logger,
	}
}

// Load returns the configuration with priority:
// defaults < ~/.workspaces/workspaces.toml < ./workspaces.toml < explicit path < env.
func (l *Loader) Load() (*Config, []string, error) {
	fileCfg, files, err := l.LoadFileConfig()
	if err != nil {
		return nil, nil, err
	}

	cfg := DefaultConfig()
	if err := applyFileConfig(cfg, fileCfg); err != nil {
		return nil, nil, err
	}
	applyEnvVars(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("config validation failed: %w", err)
	}
	return cfg, files, nil
}

// configFiles lists the existing config files in order of increasing
// priority, without duplicates.
func (l *Loader) configFiles() ([]string, error) {
	var candidates []string
	if l.homeDir != "" {
		candidates = append(candidates, filepath.Join(l.homeDir, FileName))
	}
	candidates = append(candidates, filepath.Join(l.workDir, FileName))

	if l.configPath != "" {
		if _, err := os.Stat(l.configPath); err != nil {
			return nil, fmt.Errorf("config file not found: %s", l.configPath)
		}
	}

	var files []string
	seen := make(map[string]bool)
	add := func(path string) {
		abs, err := filepath.Abs(path)
		if err != nil {
			abs = path
		}
		if seen[abs] {
			return
		}
		seen[abs] = true
		files = append(files, path)
	}
	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			add(path)
		}
	}
	if l.configPath != "" {
		add(l.configPath)
	}
	return files, nil
}

// LoadFileConfig reads and merges every config file found. Later files
// override earlier ones. It returns the files that were read.
func (l *Loader) LoadFileConfig() (*FileConfig, []string, error) {
	files, err := l.configFiles()
	if err != nil {
		return nil, nil, err
	}

	var merged FileConfig
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		var fc FileConfig
		if err := toml.Unmarshal(data, &fc); err != nil {
			return nil, nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
		mergeFileConfig(&merged, &fc)
		l.warnUnknownKeys(path, data)
		l.logger.Debug("loaded config file", "path", path)
	}
	return &merged, files, nil
}

// warnUnknownKeys logs keys that do not map to any setting.
func (l *Loader) warnUnknownKeys(path string, data []byte) {
	var fc FileConfig
	err := toml.NewDecoder(bytes.NewReader(data)).DisallowUnknownFields().Decode(&fc)

	var strict *toml.StrictMissingError
	if errors.As(err, &strict) {
		for _, e := range strict.Errors {
			l.logger.Warn("unknown config key", "path", path, "key", strings.Join(e.Key(), "."))
		}
	}
}

// applyFileConfig copies set file values onto cfg.
func applyFileConfig(cfg *Config, fc *FileConfig) error {
	if fc.Global.NoColor != nil {
		cfg.Global.NoColor = *fc.Global.NoColor
	}
	if fc.Global.Verbose != nil {
		cfg.Global.Verbose = *fc.Global.Verbose
	}
	if fc.Global.JSON != nil {
		cfg.Global.JSON = *fc.Global.JSON
	}

	if err := applyDuration(&cfg.RPC.Timeout, fc.RPC.Timeout, "rpc.timeout"); err != nil {
		return err
	}
	if fc.RPC.RetryMax != nil {
		cfg.RPC.RetryMax = *fc.RPC.RetryMax
	}

	if err := applyDuration(&cfg.Poll.InitialInterval, fc.Poll.InitialInterval, "poll.initial_interval"); err != nil {
		return err
	}
	if err := applyDuration(&cfg.Poll.MaxInterval, fc.Poll.MaxInterval, "poll.max_interval"); err != nil {
		return err
	}
	if fc.Poll.MaxRounds != nil {
		cfg.Poll.MaxRounds = *fc.Poll.MaxRounds
	}
	if err := applyDuration(&cfg.Poll.Timeout, fc.Poll.Timeout, "poll.timeout"); err != nil {
		return err
	}

	if fc.Sandbox.BinaryPath != nil {
		cfg.Sandbox.BinaryPath = *fc.Sandbox.BinaryPath
	}
	if fc.Sandbox.HomeDir != nil {
		cfg.Sandbox.HomeDir = *fc.Sandbox.HomeDir
	}
	if err := applyDuration(&cfg.Sandbox.LivenessTimeout, fc.Sandbox.LivenessTimeout, "sandbox.liveness_timeout"); err != nil {
		return err
	}
	if err := applyDuration(&cfg.Sandbox.GracePeriod, fc.Sandbox.GracePeriod, "sandbox.grace_period"); err != nil {
		return err
	}
	if fc.Sandbox.InitialBalance != nil {
		b, err := types.ParseBalance(*fc.Sandbox.InitialBalance)
		if err != nil {
			return fmt.Errorf("sandbox.initial_balance: %w", err)
		}
		cfg.Sandbox.InitialBalance = b
	}

	if fc.Testnet.RPCURL != nil {
		cfg.Testnet.RPCURL = *fc.Testnet.RPCURL
	}
	if fc.Testnet.HelperURL != nil {
		cfg.Testnet.HelperURL = *fc.Testnet.HelperURL
	}
	if fc.Testnet.KeystorePath != nil {
		cfg.Testnet.KeystorePath = *fc.Testnet.KeystorePath
	}
	if err := applyDuration(&cfg.Testnet.HelperTimeout, fc.Testnet.HelperTimeout, "testnet.helper_timeout"); err != nil {
		return err
	}
	if fc.Testnet.SaveCredentials != nil {
		cfg.Testnet.SaveCredentials = *fc.Testnet.SaveCredentials
	}
	return nil
}

func applyDuration(dst *time.Duration, src *string, key string) error {
	if src == nil {
		return nil
	}
	d, err := time.ParseDuration(*src)
	if err != nil {
		return fmt.Errorf("invalid duration for %s: %q", key, *src)
	}
	*dst = d
	return nil
}

// applyEnvVars applies environment variable overrides to cfg.
func applyEnvVars(cfg *Config) {
	if v := os.Getenv(EnvSandboxBinPath); v != "" {
		cfg.Sandbox.BinaryPath = v
	}
	if v := os.Getenv(EnvRPCURL); v != "" {
		cfg.Testnet.RPCURL = v
	}
}
