package config

import (
	"fmt"
	"net/url"
)

// Validate checks the resolved values against allowed ranges.
func (c *Config) Validate() error {
	if c.RPC.Timeout <= 0 {
		return fmt.Errorf("invalid rpc.timeout: %s (must be positive)", c.RPC.Timeout)
	}
	if c.RPC.RetryMax < 0 || c.RPC.RetryMax > 10 {
		return fmt.Errorf("invalid rpc.retry_max: %d (must be 0-10)", c.RPC.RetryMax)
	}

	if c.Poll.InitialInterval <= 0 {
		return fmt.Errorf("invalid poll.initial_interval: %s (must be positive)", c.Poll.InitialInterval)
	}
	if c.Poll.MaxInterval < c.Poll.InitialInterval {
		return fmt.Errorf("invalid poll.max_interval: %s (must not be below initial_interval %s)", c.Poll.MaxInterval, c.Poll.InitialInterval)
	}
	if c.Poll.MaxRounds < 1 {
		return fmt.Errorf("invalid poll.max_rounds: %d (must be at least 1)", c.Poll.MaxRounds)
	}
	if c.Poll.Timeout <= 0 {
		return fmt.Errorf("invalid poll.timeout: %s (must be positive)", c.Poll.Timeout)
	}

	if c.Sandbox.LivenessTimeout <= 0 {
		return fmt.Errorf("invalid sandbox.liveness_timeout: %s (must be positive)", c.Sandbox.LivenessTimeout)
	}
	if c.Sandbox.GracePeriod <= 0 {
		return fmt.Errorf("invalid sandbox.grace_period: %s (must be positive)", c.Sandbox.GracePeriod)
	}

	if err := validateURL("testnet.rpc_url", c.Testnet.RPCURL); err != nil {
		return err
	}
	if err := validateURL("testnet.helper_url", c.Testnet.HelperURL); err != nil {
		return err
	}
	if c.Testnet.KeystorePath == "" {
		return fmt.Errorf("invalid testnet.keystore_path: must not be empty")
	}
	return nil
}

func validateURL(key, raw string) error {
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid %s: %q (must be an http or https URL)", key, raw)
	}
	return nil
}
