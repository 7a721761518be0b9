package network

import (
	"github.com/altuslabsxyz/workspaces-go/pkg/rpc"
)

// CallExecution pairs the typed result of a transaction with its outcome.
type CallExecution[T any] struct {
	Result  T
	Details *rpc.CallExecutionDetails
}

// Into returns the result, or an *rpc.ExecutionFailureError when the
// transaction finalized with a failure.
func (c *CallExecution[T]) Into() (T, error) {
	if err := c.Details.Err(); err != nil {
		var zero T
		return zero, err
	}
	return c.Result, nil
}

// IsSuccess reports whether the transaction succeeded.
func (c *CallExecution[T]) IsSuccess() bool {
	return c.Details != nil && c.Details.Status.IsSuccess()
}
