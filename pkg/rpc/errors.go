package rpc

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrNoActions is returned when a transaction carries no actions.
var ErrNoActions = errors.New("transaction must contain at least one action")

// TransportError is returned when the endpoint is unreachable or answers with
// something that is not a usable JSON-RPC response. Callers may retry with a
// freshly built transaction.
type TransportError struct {
	Method   string
	Endpoint string
	// Cause is the node-reported cause for server-side timeouts and
	// internal errors; empty for HTTP level failures.
	Cause string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("RPC %s to %s failed: %v", e.Method, e.Endpoint, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// ChainRejectionError is returned when the node refuses a request outright:
// bad nonce, unknown key, insufficient balance, malformed transaction.
type ChainRejectionError struct {
	Method  string
	Name    string
	Message string
	Info    json.RawMessage
}

func (e *ChainRejectionError) Error() string {
	if len(e.Info) > 0 {
		return fmt.Sprintf("RPC %s rejected: %s: %s", e.Method, e.Name, string(e.Info))
	}
	return fmt.Sprintf("RPC %s rejected: %s: %s", e.Method, e.Name, e.Message)
}

// ExecutionFailureError is returned when a transaction reached a final status
// that reports an on-chain failure. Details holds the full outcome.
type ExecutionFailureError struct {
	TxHash  string
	Reason  string
	Details *CallExecutionDetails
}

func (e *ExecutionFailureError) Error() string {
	return fmt.Sprintf("transaction %s failed: %s", e.TxHash, e.Reason)
}

// PollTimeoutError is returned when finality was not observed within the
// polling budget. The transaction's true outcome is unknown.
type PollTimeoutError struct {
	TxHash  string
	Rounds  int
	Elapsed time.Duration
	Err     error
}

func (e *PollTimeoutError) Error() string {
	msg := fmt.Sprintf("transaction %s not final after %d round(s) in %s", e.TxHash, e.Rounds, e.Elapsed.Round(time.Millisecond))
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *PollTimeoutError) Unwrap() error {
	return e.Err
}

// RemoteError is a JSON-RPC error that fits no other category, such as an
// unknown block on a view query.
type RemoteError struct {
	Method string
	Name   string
	Cause  string
	Info   json.RawMessage
	Msg    string
}

func (e *RemoteError) Error() string {
	return fmt.Sprintf("RPC %s failed: %s/%s: %s", e.Method, e.Name, e.Cause, e.Msg)
}

// IsRetryable reports whether err is a transport or poll-timeout error that
// a caller may retry with a fresh nonce and block hash.
func IsRetryable(err error) bool {
	var te *TransportError
	var pe *PollTimeoutError
	return errors.As(err, &te) || errors.As(err, &pe)
}

// IsChainRejection reports whether err is a ChainRejectionError.
func IsChainRejection(err error) bool {
	var ce *ChainRejectionError
	return errors.As(err, &ce)
}

// IsExecutionFailure reports whether err is an ExecutionFailureError.
func IsExecutionFailure(err error) bool {
	var ee *ExecutionFailureError
	return errors.As(err, &ee)
}

// IsUnknownAccount reports whether err is a rejection caused by a missing account.
func IsUnknownAccount(err error) bool {
	var ce *ChainRejectionError
	return errors.As(err, &ce) && ce.Name == causeUnknownAccount
}
