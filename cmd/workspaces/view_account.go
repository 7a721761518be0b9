package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/altuslabsxyz/workspaces-go/pkg/rpc"
	"github.com/altuslabsxyz/workspaces-go/types"
)

var viewRPCURL string

// accountState is the printed form of a view_account result.
type accountState struct {
	AccountID    string `json:"account_id"`
	Amount       string `json:"amount"`
	Locked       string `json:"locked"`
	CodeHash     string `json:"code_hash"`
	StorageUsage uint64 `json:"storage_usage"`
	BlockHeight  uint64 `json:"block_height"`
}

func NewViewAccountCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "view-account <account-id>",
		Short: "Show the on-chain state of an account",
		Long: `Show the balance, code hash and storage usage of an account.

The RPC endpoint defaults to [testnet] rpc_url, or $NEAR_RPC_URL when set.

Examples:
  workspaces view-account alice.testnet
  workspaces view-account test.near --rpc-url http://127.0.0.1:3030`,
		Args: cobra.ExactArgs(1),
		RunE: runViewAccount,
	}

	cmd.Flags().StringVar(&viewRPCURL, "rpc-url", "",
		"RPC endpoint (default: testnet rpc_url)")

	return cmd
}

func runViewAccount(cmd *cobra.Command, args []string) error {
	id, err := types.ParseAccountID(args[0])
	if err != nil {
		return err
	}

	endpoint := viewRPCURL
	if endpoint == "" {
		endpoint = cfg.Testnet.RPCURL
	}
	client := rpc.NewClient(endpoint, cfg.RPCConfig(logger.Slog(), nil))

	view, err := client.ViewAccount(cmd.Context(), id)
	if err != nil {
		if rpc.IsUnknownAccount(err) {
			return fmt.Errorf("account %s does not exist on %s", id, endpoint)
		}
		return err
	}

	state := accountState{
		AccountID:    id.String(),
		Amount:       view.Amount.String(),
		Locked:       view.Locked.String(),
		CodeHash:     view.CodeHash,
		StorageUsage: view.StorageUsage,
		BlockHeight:  view.BlockHeight,
	}
	if jsonMode {
		return logger.JSON(state)
	}
	logger.Info("%s", state.AccountID)
	logger.Field("Balance", formatNEAR(view.Amount))
	logger.Field("Locked", formatNEAR(view.Locked))
	logger.Field("Code hash", state.CodeHash)
	logger.Field("Storage", fmt.Sprintf("%d bytes", state.StorageUsage))
	logger.Field("Block", state.BlockHeight)
	return nil
}

// formatNEAR renders a yoctoNEAR amount as NEAR with up to five decimals.
func formatNEAR(b types.Balance) string {
	s := b.String()
	const decimals = 24
	for len(s) <= decimals {
		s = "0" + s
	}
	whole, frac := s[:len(s)-decimals], s[len(s)-decimals:len(s)-decimals+5]
	return fmt.Sprintf("%s.%s NEAR", whole, frac)
}
