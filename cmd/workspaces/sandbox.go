package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/workspaces-go/internal/output"
	"github.com/altuslabsxyz/workspaces-go/pkg/rpc"
	"github.com/altuslabsxyz/workspaces-go/pkg/sandbox"
	"github.com/altuslabsxyz/workspaces-go/pkg/workspaces"
)

var (
	sandboxHome        string
	sandboxMetricsAddr string
)

// sandboxInfo is printed once the sandbox is reachable.
type sandboxInfo struct {
	RPCURL        string `json:"rpc_url"`
	RootAccountID string `json:"root_account_id"`
	RootKey       string `json:"root_public_key"`
	HomeDir       string `json:"home_dir"`
	PID           int    `json:"pid"`
}

func NewSandboxCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sandbox",
		Short: "Start a local sandbox node until interrupted",
		Long: `Start a near-sandbox node on free local ports and keep it running until
Ctrl-C. The node is stopped and its temporary home removed on exit.

The binary is taken from [sandbox] binary_path, then $NEAR_SANDBOX_BIN_PATH,
then near-sandbox on PATH.

Examples:
  # Start with a temporary home directory
  workspaces sandbox

  # Keep the chain data between runs
  workspaces sandbox --home-dir ./sandbox-data

  # Expose client metrics
  workspaces sandbox --metrics-addr 127.0.0.1:9090`,
		RunE: runSandbox,
	}

	cmd.Flags().StringVar(&sandboxHome, "home-dir", "",
		"Sandbox data directory (default: temporary, removed on exit)")
	cmd.Flags().StringVar(&sandboxMetricsAddr, "metrics-addr", "",
		"Serve Prometheus metrics on this address")

	return cmd
}

func runSandbox(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var metrics *rpc.Metrics
	if sandboxMetricsAddr != "" {
		reg := prometheus.NewRegistry()
		m, err := rpc.NewMetrics(reg)
		if err != nil {
			return err
		}
		metrics = m

		srv := &http.Server{
			Addr:    sandboxMetricsAddr,
			Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Warn("metrics server stopped: %v", err)
			}
		}()
		defer srv.Close()
	}

	sbCfg := cfg.NetworkSandboxConfig(logger.Slog(), metrics)
	if sandboxHome != "" {
		sbCfg.Process.HomeDir = sandboxHome
	}

	logger.Debug("Starting sandbox...")
	worker, err := workspaces.Sandbox(ctx, sbCfg)
	if err != nil {
		printLaunchError(err)
		return err
	}
	defer func() {
		if err := worker.Close(context.Background()); err != nil {
			logger.Warn("failed to stop sandbox: %v", err)
		}
	}()

	proc := worker.Network().Process()
	root := worker.Network().RootAccount()
	info := sandboxInfo{
		RPCURL:        worker.Info().RPCURL,
		RootAccountID: root.ID().String(),
		RootKey:       root.Signer().PublicKey().String(),
		HomeDir:       proc.HomeDir(),
		PID:           proc.PID(),
	}

	if jsonMode {
		if err := logger.JSON(info); err != nil {
			return err
		}
	} else {
		logger.Success("Sandbox is running")
		logger.Field("RPC", info.RPCURL)
		logger.Field("Root account", info.RootAccountID)
		logger.Field("Root key", info.RootKey)
		logger.Field("Home", info.HomeDir)
		logger.Field("PID", info.PID)
		logger.Info("Press Ctrl-C to stop.")
	}

	select {
	case <-ctx.Done():
		logger.Info("Stopping sandbox...")
	case <-proc.Exited():
		err := errors.New("sandbox exited unexpectedly")
		logger.PrintSandboxError(&output.SandboxErrorInfo{
			HomeDir:  proc.HomeDir(),
			LogLines: proc.LogTail(20),
			Error:    err,
		})
		return err
	}
	return nil
}

// printLaunchError prints launch failures with the sandbox log tail.
func printLaunchError(err error) {
	var launchErr *sandbox.LaunchError
	if !errors.As(err, &launchErr) {
		return
	}
	logger.PrintSandboxError(&output.SandboxErrorInfo{
		Binary:   launchErr.Binary,
		LogLines: launchErr.LogTail,
		Error:    launchErr.Err,
	})
}
