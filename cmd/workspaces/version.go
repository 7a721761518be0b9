package main

import (
	"fmt"

	goversion "github.com/caarlos0/go-version"
	"github.com/spf13/cobra"
)

// Version information - set at build time via ldflags
var (
	Version   = ""
	GitCommit = ""
	BuildDate = ""
)

func buildVersion() goversion.Info {
	return goversion.GetVersionInfo(
		goversion.WithAppDetails("workspaces", "NEAR sandbox and testnet workspaces", "https://github.com/altuslabsxyz/workspaces-go"),
		func(i *goversion.Info) {
			if Version != "" {
				i.GitVersion = Version
			}
			if GitCommit != "" {
				i.GitCommit = GitCommit
			}
			if BuildDate != "" {
				i.BuildDate = BuildDate
			}
		},
	)
}

func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		RunE: func(cmd *cobra.Command, args []string) error {
			info := buildVersion()
			if jsonMode {
				return logger.JSON(info)
			}
			fmt.Fprintln(logger.Writer(), info.String())
			return nil
		},
	}
}
