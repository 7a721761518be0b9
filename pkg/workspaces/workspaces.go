package workspaces

import (
	"context"

	"github.com/altuslabsxyz/workspaces-go/pkg/network"
	"github.com/altuslabsxyz/workspaces-go/types"
)

// Sandbox starts a local sandbox node and returns a worker over it. Closing
// the last handle stops the node.
func Sandbox(ctx context.Context, cfg network.SandboxConfig) (*Worker[*network.Sandbox], error) {
	backend, err := network.NewSandbox(ctx, cfg)
	if err != nil {
		return nil, err
	}
	return NewWorker(backend), nil
}

// Testnet returns a worker over the public testnet.
func Testnet(cfg network.TestnetConfig) *Worker[*network.Testnet] {
	return NewWorker(network.NewTestnet(cfg))
}

// WithSandbox runs fn against a fresh sandbox and stops it afterwards, also
// when fn fails.
func WithSandbox(ctx context.Context, cfg network.SandboxConfig, fn func(*Worker[*network.Sandbox]) error) error {
	w, err := Sandbox(ctx, cfg)
	if err != nil {
		return err
	}
	return closeAfter(ctx, w, fn(w))
}

// WithTestnet runs fn against a testnet worker.
func WithTestnet(ctx context.Context, cfg network.TestnetConfig, fn func(*Worker[*network.Testnet]) error) error {
	w := Testnet(cfg)
	return closeAfter(ctx, w, fn(w))
}

// DevGenerate returns a fresh dev account id and key. The account does not
// exist until it is created with DevCreateAccount or CreateTLA.
func DevGenerate[T network.DevNetwork](*Worker[T]) (types.AccountID, types.SecretKey, error) {
	return network.DevGenerate()
}

// DevCreateAccount creates a dev account with a fresh id and key.
func DevCreateAccount[T network.DevNetwork](ctx context.Context, w *Worker[T]) (*network.Account, error) {
	id, sk, err := DevGenerate(w)
	if err != nil {
		return nil, err
	}
	exec, err := w.CreateTLA(ctx, id, sk)
	if err != nil {
		return nil, err
	}
	return exec.Into()
}

// DevDeploy creates a dev account and deploys wasm to it.
func DevDeploy[T network.DevNetwork](ctx context.Context, w *Worker[T], wasm []byte) (*network.Contract, error) {
	id, sk, err := DevGenerate(w)
	if err != nil {
		return nil, err
	}
	exec, err := w.CreateTLAAndDeploy(ctx, id, sk, wasm)
	if err != nil {
		return nil, err
	}
	return exec.Into()
}
