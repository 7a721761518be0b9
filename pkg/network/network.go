// Package network defines the closed set of network backends and the
// account and contract handles built on top of them.
package network

import (
	"context"

	"github.com/altuslabsxyz/workspaces-go/pkg/rpc"
	"github.com/altuslabsxyz/workspaces-go/types"
)

// Info is immutable metadata about a backend.
type Info struct {
	Name         string
	RootID       types.AccountID
	KeystorePath string
	RPCURL       string
}

// NetworkClient gives access to the backend's RPC client.
type NetworkClient interface {
	Client() *rpc.Client
}

// NetworkInfo gives access to the backend's metadata.
type NetworkInfo interface {
	Info() Info
}

// TopLevelAccountCreator creates accounts that have no parent namespace.
//
// When the creation transaction finalizes with a failure, both the execution
// and an *rpc.ExecutionFailureError are returned.
type TopLevelAccountCreator interface {
	CreateTLA(ctx context.Context, id types.AccountID, sk types.SecretKey) (*CallExecution[*Account], error)
	CreateTLAAndDeploy(ctx context.Context, id types.AccountID, sk types.SecretKey, wasm []byte) (*CallExecution[*Contract], error)
}

// Network is implemented only by the backends in this package.
type Network interface {
	NetworkClient
	NetworkInfo
	TopLevelAccountCreator

	// Close releases the backend's resources. It is safe to call more than
	// once.
	Close(ctx context.Context) error

	network()
}

// AllowDevAccountCreation marks backends that accept ad-hoc top-level
// account names.
type AllowDevAccountCreation interface {
	allowDevAccountCreation()
}

// DevNetwork is a backend on which dev accounts may be created.
type DevNetwork interface {
	Network
	AllowDevAccountCreation
}

var (
	_ DevNetwork = (*Sandbox)(nil)
	_ DevNetwork = (*Testnet)(nil)
)
