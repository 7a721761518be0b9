package network

import (
	"fmt"

	"github.com/altuslabsxyz/workspaces-go/pkg/rpc"
)

// Step names one transaction of a multi-transaction operation.
type Step string

const (
	StepCreate Step = "create"
	StepDeploy Step = "deploy"
)

// StepError reports which step of a create-and-deploy failed. Earlier steps
// are not rolled back: after a StepDeploy failure Account exists on chain
// without the contract.
type StepError struct {
	Step    Step
	Account *Account
	Details *rpc.CallExecutionDetails
	Err     error
}

func (e *StepError) Error() string {
	if e.Account != nil {
		return fmt.Sprintf("%s step failed for %s: %v", e.Step, e.Account.ID(), e.Err)
	}
	return fmt.Sprintf("%s step failed: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error {
	return e.Err
}

// HelperServiceError is returned when the account helper service fails to
// create an account.
type HelperServiceError struct {
	Endpoint   string
	StatusCode int
	Body       string
	Err        error
}

func (e *HelperServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("helper service %s failed: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("helper service %s returned HTTP %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

func (e *HelperServiceError) Unwrap() error {
	return e.Err
}
