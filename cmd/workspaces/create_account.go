package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/workspaces-go/pkg/network"
	"github.com/altuslabsxyz/workspaces-go/pkg/rpc"
	"github.com/altuslabsxyz/workspaces-go/pkg/workspaces"
	"github.com/altuslabsxyz/workspaces-go/types"
)

var (
	createNetwork string
	createID      string
	createSave    bool
)

// createdAccount is printed after a successful creation.
type createdAccount struct {
	Network   string `json:"network"`
	AccountID string `json:"account_id"`
	PublicKey string `json:"public_key"`
	SecretKey string `json:"secret_key,omitempty"`
	TxHash    string `json:"tx_hash,omitempty"`
	Keystore  string `json:"keystore,omitempty"`
}

func NewCreateAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create-account",
		Short: "Create a top-level account with a fresh key",
		Long: `Create a top-level account with a fresh ed25519 key.

Without --id a dev account name is generated. On testnet the account is created
and funded by the helper service. On sandbox a temporary node is started, the
account is created by its root account and the node is stopped again, which is
mostly useful to check a sandbox installation.

Examples:
  # Create a dev account on testnet and keep its key
  workspaces create-account --network testnet --save

  # Create a named account
  workspaces create-account --network testnet --id my-app-test`,
		RunE: runCreateAccount,
	}

	cmd.Flags().StringVarP(&createNetwork, "network", "n", "testnet",
		"Network to create the account on (sandbox, testnet)")
	cmd.Flags().StringVar(&createID, "id", "",
		"Account id (default: generated dev account id)")
	cmd.Flags().BoolVar(&createSave, "save", false,
		"Save the key to the network's keystore")

	return cmd
}

func runCreateAccount(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	id, sk, err := network.DevGenerate()
	if err != nil {
		return err
	}
	if createID != "" {
		if id, err = types.ParseAccountID(createID); err != nil {
			return err
		}
	}

	var (
		exec  *network.CallExecution[*network.Account]
		store string
	)
	switch createNetwork {
	case "testnet":
		tnCfg := cfg.NetworkTestnetConfig(logger.Slog(), nil, nil)
		tnCfg.SaveCredentials = tnCfg.SaveCredentials || createSave
		if tnCfg.SaveCredentials {
			store = tnCfg.KeystorePath
		}
		worker := workspaces.Testnet(tnCfg)
		defer worker.Close(context.Background())

		exec, err = worker.CreateTLA(ctx, id, sk)
	case "sandbox":
		if createSave {
			return fmt.Errorf("--save is not supported on sandbox: the node is stopped after creation")
		}
		worker, werr := workspaces.Sandbox(ctx, cfg.NetworkSandboxConfig(logger.Slog(), nil))
		if werr != nil {
			printLaunchError(werr)
			return werr
		}
		defer worker.Close(context.Background())

		exec, err = worker.CreateTLA(ctx, id, sk)
	default:
		return fmt.Errorf("invalid network: %s (must be 'sandbox' or 'testnet')", createNetwork)
	}
	if err != nil {
		return err
	}

	account, err := exec.Into()
	if err != nil {
		return err
	}
	return printCreatedAccount(account, exec.Details, store)
}

func printCreatedAccount(account *network.Account, details *rpc.CallExecutionDetails, store string) error {
	result := createdAccount{
		Network:   createNetwork,
		AccountID: account.ID().String(),
		PublicKey: account.Signer().PublicKey().String(),
		TxHash:    details.TxHash,
		Keystore:  store,
	}
	if store == "" {
		// the key is printed only when it is not persisted
		result.SecretKey = account.SecretKey().Encode()
	}

	if jsonMode {
		return logger.JSON(result)
	}
	logger.Success("Created account %s", result.AccountID)
	logger.Field("Network", result.Network)
	logger.Field("Public key", result.PublicKey)
	if result.TxHash != "" {
		logger.Field("Tx hash", result.TxHash)
	}
	if store != "" {
		logger.Field("Keystore", store)
	} else {
		logger.Field("Secret key", result.SecretKey)
		logger.Warn("the key is not saved; pass --save to keep it")
	}
	return nil
}
