// Package workspaces is the entry point for driving a NEAR network from Go
// code: it starts or connects to a backend and hands out a shared Worker.
package workspaces

import (
	"context"
	"errors"
	"sync"

	"github.com/hashicorp/go-multierror"

	"github.com/altuslabsxyz/workspaces-go/pkg/network"
	"github.com/altuslabsxyz/workspaces-go/pkg/rpc"
	"github.com/altuslabsxyz/workspaces-go/types"
)

// ErrWorkerClosed is returned by Share and Close on a handle that was
// already closed.
var ErrWorkerClosed = errors.New("worker already closed")

// shared is the state common to every handle of one backend.
type shared[T network.Network] struct {
	backend T

	mu   sync.Mutex
	refs int
}

// Worker is a handle on a network backend. Handles made with Share refer to
// the same backend; it is closed when the last handle is closed.
type Worker[T network.Network] struct {
	shared *shared[T]

	closeOnce sync.Once
}

// NewWorker wraps backend in a worker holding the only reference.
func NewWorker[T network.Network](backend T) *Worker[T] {
	return &Worker[T]{shared: &shared[T]{backend: backend, refs: 1}}
}

// Share returns a new handle on the same backend.
func (w *Worker[T]) Share() (*Worker[T], error) {
	s := w.shared
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.refs == 0 {
		return nil, ErrWorkerClosed
	}
	s.refs++
	return &Worker[T]{shared: s}, nil
}

// Close releases this handle. When it is the last one the backend is closed
// and its error returned. Closing a handle twice releases it once.
func (w *Worker[T]) Close(ctx context.Context) error {
	var err error
	released := false
	w.closeOnce.Do(func() {
		released = true
		s := w.shared
		s.mu.Lock()
		s.refs--
		last := s.refs == 0
		s.mu.Unlock()

		if last {
			err = s.backend.Close(context.WithoutCancel(ctx))
		}
	})
	if !released {
		return ErrWorkerClosed
	}
	return err
}

// Network returns the backend.
func (w *Worker[T]) Network() T {
	return w.shared.backend
}

// Client returns the backend's RPC client.
func (w *Worker[T]) Client() *rpc.Client {
	return w.shared.backend.Client()
}

// Info returns the backend's metadata.
func (w *Worker[T]) Info() network.Info {
	return w.shared.backend.Info()
}

// RootAccountID returns the namespace top-level accounts live under.
func (w *Worker[T]) RootAccountID() types.AccountID {
	return w.Info().RootID
}

// CreateTLA creates a top-level account owned by sk.
func (w *Worker[T]) CreateTLA(ctx context.Context, id types.AccountID, sk types.SecretKey) (*network.CallExecution[*network.Account], error) {
	return w.shared.backend.CreateTLA(ctx, id, sk)
}

// CreateTLAAndDeploy creates a top-level account and deploys wasm to it.
func (w *Worker[T]) CreateTLAAndDeploy(ctx context.Context, id types.AccountID, sk types.SecretKey, wasm []byte) (*network.CallExecution[*network.Contract], error) {
	return w.shared.backend.CreateTLAAndDeploy(ctx, id, sk, wasm)
}

// ViewAccount returns the on-chain state of id.
func (w *Worker[T]) ViewAccount(ctx context.Context, id types.AccountID) (*rpc.AccountView, error) {
	return w.Client().ViewAccount(ctx, id)
}

// ViewCode returns the code deployed to id.
func (w *Worker[T]) ViewCode(ctx context.Context, id types.AccountID) ([]byte, error) {
	return w.Client().ViewCode(ctx, id)
}

// ViewFunction calls a read-only contract method.
func (w *Worker[T]) ViewFunction(ctx context.Context, contract types.AccountID, method string, args []byte) (*rpc.ViewResult, error) {
	return w.Client().ViewFunction(ctx, contract, method, args)
}

// Status returns the node status.
func (w *Worker[T]) Status(ctx context.Context) (*rpc.StatusView, error) {
	return w.Client().Status(ctx)
}

// Account returns a handle for an existing account whose key is sk.
func (w *Worker[T]) Account(id types.AccountID, sk types.SecretKey) *network.Account {
	return network.NewAccount(w.Client(), id, sk)
}

// closeAfter closes w and joins its error with err. err is returned as is
// when the close succeeds.
func closeAfter[T network.Network](ctx context.Context, w *Worker[T], err error) error {
	closeErr := w.Close(ctx)
	if closeErr == nil {
		return err
	}
	if err == nil {
		return closeErr
	}
	return multierror.Append(err, closeErr)
}
