package sandbox

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// ErrBinaryNotFound is returned when no sandbox binary can be resolved.
var ErrBinaryNotFound = errors.New("near-sandbox binary not found")

// LaunchError is returned when the sandbox binary is missing, fails to
// initialize its home directory, or exits before becoming reachable.
type LaunchError struct {
	Binary  string
	Step    string
	LogTail []string
	Err     error
}

func (e *LaunchError) Error() string {
	msg := fmt.Sprintf("sandbox %s failed", e.Step)
	if e.Binary != "" {
		msg += fmt.Sprintf(" (%s)", e.Binary)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	if len(e.LogTail) > 0 {
		msg += "\n" + strings.Join(e.LogTail, "\n")
	}
	return msg
}

func (e *LaunchError) Unwrap() error {
	return e.Err
}

// LivenessTimeoutError is returned when the process started but its RPC
// endpoint never answered a status probe within the timeout.
type LivenessTimeoutError struct {
	RPCAddr string
	Timeout time.Duration
	Err     error
}

func (e *LivenessTimeoutError) Error() string {
	msg := fmt.Sprintf("sandbox RPC at %s not reachable after %s", e.RPCAddr, e.Timeout)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *LivenessTimeoutError) Unwrap() error {
	return e.Err
}
