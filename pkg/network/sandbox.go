package network

import (
	"context"
	"log/slog"
	"sync"

	"github.com/altuslabsxyz/workspaces-go/pkg/rpc"
	"github.com/altuslabsxyz/workspaces-go/pkg/sandbox"
	"github.com/altuslabsxyz/workspaces-go/types"
)

// DefaultTLABalance is transferred to top-level accounts created on a
// sandbox.
var DefaultTLABalance = types.NEAR(100)

// SandboxConfig configures a sandbox backend.
type SandboxConfig struct {
	Process sandbox.Config
	RPC     rpc.Config

	// InitialBalance funds new top-level accounts. Defaults to 100 NEAR.
	InitialBalance types.Balance
}

// Sandbox is a backend over a locally spawned node. It owns the process.
type Sandbox struct {
	process *sandbox.Process
	client  *rpc.Client
	info    Info
	root    *Account
	balance types.Balance
	logger  *slog.Logger

	closeOnce sync.Once
	closeErr  error
}

// NewSandbox starts a sandbox process and binds a client to it. If anything
// fails after the process started, it is stopped before returning.
func NewSandbox(ctx context.Context, cfg SandboxConfig) (*Sandbox, error) {
	if cfg.RPC.Logger == nil {
		cfg.RPC.Logger = cfg.Process.Logger
	}
	proc, err := sandbox.Start(ctx, cfg.Process)
	if err != nil {
		return nil, err
	}

	rootID, rootKey := proc.RootAccount()
	s := newSandbox(proc, rpc.NewClient(proc.RPCURL(), cfg.RPC), rootID, rootKey, cfg.InitialBalance)
	s.info.KeystorePath = proc.HomeDir()
	if cfg.Process.Logger != nil {
		s.logger = cfg.Process.Logger
	}

	if _, err := s.client.ViewAccessKey(ctx, rootID, rootKey.PublicKey()); err != nil {
		if stopErr := proc.Stop(ctx); stopErr != nil {
			s.logger.Warn("failed to stop sandbox", "pid", proc.PID(), "error", stopErr)
		}
		return nil, err
	}
	return s, nil
}

func newSandbox(proc *sandbox.Process, client *rpc.Client, rootID types.AccountID, rootKey types.SecretKey, balance types.Balance) *Sandbox {
	if balance.IsNil() {
		balance = DefaultTLABalance
	}
	return &Sandbox{
		process: proc,
		client:  client,
		info: Info{
			Name:   "sandbox",
			RootID: rootID,
			RPCURL: client.Endpoint(),
		},
		root:    NewAccount(client, rootID, rootKey),
		balance: balance,
		logger:  slog.Default(),
	}
}

func (*Sandbox) network()                 {}
func (*Sandbox) allowDevAccountCreation() {}

// Client returns the RPC client bound to the sandbox.
func (s *Sandbox) Client() *rpc.Client {
	return s.client
}

// Info returns the sandbox metadata.
func (s *Sandbox) Info() Info {
	return s.info
}

// RootAccount returns the pre-funded root account.
func (s *Sandbox) RootAccount() *Account {
	return s.root
}

// Process returns the underlying process, or nil when the sandbox was not
// started by this backend.
func (s *Sandbox) Process() *sandbox.Process {
	return s.process
}

// CreateTLA creates id funded by the root account: create, add id's key
// with full access, and transfer the initial balance in one transaction.
func (s *Sandbox) CreateTLA(ctx context.Context, id types.AccountID, sk types.SecretKey) (*CallExecution[*Account], error) {
	details, err := s.client.SubmitTransaction(ctx, s.root.Signer(), id,
		rpc.CreateAccountAction{},
		rpc.AddKeyAction{PublicKey: sk.PublicKey(), AccessKey: rpc.FullAccessKey()},
		rpc.TransferAction{Deposit: s.balance},
	)
	if details == nil {
		return nil, err
	}
	s.logger.Debug("created top-level account", "account", id, "txHash", details.TxHash)
	return &CallExecution[*Account]{Result: NewAccount(s.client, id, sk), Details: details}, err
}

// CreateTLAAndDeploy creates id, then deploys wasm in a second transaction.
func (s *Sandbox) CreateTLAAndDeploy(ctx context.Context, id types.AccountID, sk types.SecretKey, wasm []byte) (*CallExecution[*Contract], error) {
	return createAndDeploy(ctx, s, id, sk, wasm)
}

// Close stops the sandbox process.
func (s *Sandbox) Close(ctx context.Context) error {
	s.closeOnce.Do(func() {
		if s.process != nil {
			s.closeErr = s.process.Stop(ctx)
		}
	})
	return s.closeErr
}

// createAndDeploy runs the create step, then a separate deploy transaction.
// Nothing is rolled back when the deploy fails.
func createAndDeploy(ctx context.Context, creator TopLevelAccountCreator, id types.AccountID, sk types.SecretKey, wasm []byte) (*CallExecution[*Contract], error) {
	created, err := creator.CreateTLA(ctx, id, sk)
	if err != nil {
		se := &StepError{Step: StepCreate, Err: err}
		if created != nil {
			se.Details = created.Details
		}
		return nil, se
	}

	account := created.Result
	deployed, err := account.Deploy(ctx, wasm)
	if err != nil {
		se := &StepError{Step: StepDeploy, Account: account, Err: err}
		if deployed != nil {
			se.Details = deployed.Details
		}
		return nil, se
	}
	return deployed, nil
}
