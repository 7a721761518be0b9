package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/workspaces-go/internal/config"
	"github.com/altuslabsxyz/workspaces-go/internal/output"
)

// Global configuration variables
var (
	homeDir    string
	jsonMode   bool
	noColor    bool
	verbose    bool
	configPath string // Path to workspaces.toml (--config flag)

	// cfg holds the resolved configuration, set before any command runs.
	cfg *config.Config

	logger = output.NewLogger()
)

// Command group IDs for organized help output.
const (
	GroupNetwork = "network"
	GroupAccount = "account"
)

func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "workspaces",
		Short: "Drive a NEAR sandbox or testnet from the command line",
		Long: `workspaces starts local NEAR sandbox nodes and creates accounts on a
sandbox or on testnet.

Examples:
  # Start a sandbox and keep it running until Ctrl-C
  workspaces sandbox

  # Create a dev account on testnet and save its key
  workspaces create-account --network testnet --save

  # Show the balance of an account
  workspaces view-account alice.testnet`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Flags are applied to the logger first so config loading can log.
			// Priority: default < workspaces.toml < env < flag
			logger.SetVerbose(verbose)
			loaded, files, err := config.NewLoader(homeDir, configPath, logger.Slog()).Load()
			if err != nil {
				return err
			}
			cfg = loaded

			if !cmd.Flags().Changed("verbose") {
				verbose = cfg.Global.Verbose
			}
			if !cmd.Flags().Changed("json") {
				jsonMode = cfg.Global.JSON
			}
			if !cmd.Flags().Changed("no-color") {
				noColor = cfg.Global.NoColor
			}
			if os.Getenv("NO_COLOR") != "" && !cmd.Flags().Changed("no-color") {
				noColor = true
			}

			logger.SetVerbose(verbose)
			logger.SetJSONMode(jsonMode)
			if noColor {
				logger.SetNoColor(true)
			}

			for _, f := range files {
				logger.Debug("Using config file: %s", f)
			}
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&homeDir, "home", config.DefaultHomeDir(),
		"Directory holding the user-wide workspaces.toml")
	cmd.PersistentFlags().BoolVar(&jsonMode, "json", false,
		"Output in JSON format")
	cmd.PersistentFlags().BoolVar(&noColor, "no-color", false,
		"Disable colored output")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false,
		"Enable verbose logging")
	cmd.PersistentFlags().StringVar(&configPath, "config", "",
		"Path to workspaces.toml file")

	cmd.AddGroup(&cobra.Group{ID: GroupNetwork, Title: "Network Commands:"})
	cmd.AddGroup(&cobra.Group{ID: GroupAccount, Title: "Account Commands:"})

	sandboxCmd := NewSandboxCmd()
	sandboxCmd.GroupID = GroupNetwork
	createAccountCmd := NewCreateAccountCmd()
	createAccountCmd.GroupID = GroupAccount
	viewAccountCmd := NewViewAccountCmd()
	viewAccountCmd.GroupID = GroupAccount

	cmd.AddCommand(
		sandboxCmd,
		createAccountCmd,
		viewAccountCmd,
		NewVersionCmd(),
	)

	return cmd
}
