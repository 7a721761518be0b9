package network

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/altuslabsxyz/workspaces-go/pkg/keystore"
	"github.com/altuslabsxyz/workspaces-go/pkg/rpc"
	"github.com/altuslabsxyz/workspaces-go/types"
)

const (
	// TestnetRPCURL is the public testnet RPC endpoint.
	TestnetRPCURL = "https://rpc.testnet.near.org"

	// TestnetHelperURL is the testnet account helper service.
	TestnetHelperURL = "https://helper.testnet.near.org"

	// TestnetRootID is the namespace of testnet top-level accounts.
	TestnetRootID = "testnet"

	// TestnetKeystorePath is where testnet credentials are kept.
	TestnetKeystorePath = ".near-credentials/testnet/"
)

// TestnetConfig configures a testnet backend. Empty fields take the public
// testnet defaults.
type TestnetConfig struct {
	RPCURL       string
	HelperURL    string
	KeystorePath string
	RPC          rpc.Config

	// HelperTimeout bounds one helper request.
	HelperTimeout time.Duration

	// SaveCredentials writes the key of every created account to the
	// keystore.
	SaveCredentials bool
	Keystore        keystore.Store
}

// Testnet is a backend over a remote RPC endpoint. New top-level accounts
// are created and funded by the helper service.
type Testnet struct {
	client   *rpc.Client
	helper   *HelperClient
	info     Info
	keystore keystore.Store
	save     bool
	logger   *slog.Logger
}

// NewTestnet binds a client to the testnet endpoint.
func NewTestnet(cfg TestnetConfig) *Testnet {
	if cfg.RPCURL == "" {
		cfg.RPCURL = TestnetRPCURL
	}
	if cfg.HelperURL == "" {
		cfg.HelperURL = TestnetHelperURL
	}
	if cfg.KeystorePath == "" {
		cfg.KeystorePath = TestnetKeystorePath
	}
	if cfg.RPC.Logger == nil {
		cfg.RPC.Logger = slog.Default()
	}
	if cfg.Keystore == nil {
		cfg.Keystore = keystore.NewFileStore(cfg.KeystorePath)
	}

	client := rpc.NewClient(cfg.RPCURL, cfg.RPC)
	return &Testnet{
		client: client,
		helper: NewHelperClient(cfg.HelperURL, cfg.HelperTimeout, cfg.RPC.Logger),
		info: Info{
			Name:         "testnet",
			RootID:       TestnetRootID,
			KeystorePath: cfg.KeystorePath,
			RPCURL:       cfg.RPCURL,
		},
		keystore: cfg.Keystore,
		save:     cfg.SaveCredentials,
		logger:   cfg.RPC.Logger,
	}
}

func (*Testnet) network()                 {}
func (*Testnet) allowDevAccountCreation() {}

// Client returns the RPC client.
func (t *Testnet) Client() *rpc.Client {
	return t.client
}

// Info returns the testnet metadata.
func (t *Testnet) Info() Info {
	return t.info
}

// Helper returns the helper service client.
func (t *Testnet) Helper() *HelperClient {
	return t.helper
}

// Keystore returns the credential store.
func (t *Testnet) Keystore() keystore.Store {
	return t.keystore
}

// CreateTLA asks the helper service to create and fund id. No transaction is
// signed locally, so the details report zero gas and no value.
func (t *Testnet) CreateTLA(ctx context.Context, id types.AccountID, sk types.SecretKey) (*CallExecution[*Account], error) {
	if err := t.helper.CreateAccount(ctx, id, sk.PublicKey()); err != nil {
		return nil, err
	}
	t.logger.Debug("helper created account", "account", id, "helper", t.helper.Endpoint())

	exec := &CallExecution[*Account]{
		Result: NewAccount(t.client, id, sk),
		Details: &rpc.CallExecutionDetails{
			TotalGasBurnt: 0,
			Status:        rpc.ExecutionStatus{Kind: rpc.StatusSuccessNoValue},
		},
	}

	// The account exists on chain either way, so the caller keeps the key.
	if t.save {
		if err := t.keystore.Save(id, sk); err != nil {
			return exec, fmt.Errorf("account %s created but credentials not saved: %w", id, err)
		}
	}
	return exec, nil
}

// CreateTLAAndDeploy creates id through the helper, then deploys wasm in a
// separate transaction signed by the new account.
func (t *Testnet) CreateTLAAndDeploy(ctx context.Context, id types.AccountID, sk types.SecretKey, wasm []byte) (*CallExecution[*Contract], error) {
	return createAndDeploy(ctx, t, id, sk, wasm)
}

// Close is a no-op; the testnet backend holds no local resources.
func (t *Testnet) Close(context.Context) error {
	return nil
}
