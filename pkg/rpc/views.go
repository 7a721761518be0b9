package rpc

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/altuslabsxyz/workspaces-go/types"
)

// StatusKind tags an ExecutionStatus.
type StatusKind int

const (
	StatusUnknown StatusKind = iota
	StatusSuccessValue
	StatusSuccessNoValue
	StatusFailure
)

func (k StatusKind) String() string {
	switch k {
	case StatusSuccessValue:
		return "SuccessValue"
	case StatusSuccessNoValue:
		return "SuccessNoValue"
	case StatusFailure:
		return "Failure"
	default:
		return "Unknown"
	}
}

// ExecutionStatus is the final status of a transaction.
type ExecutionStatus struct {
	Kind StatusKind

	// Value is the decoded return value for StatusSuccessValue.
	Value []byte

	// ReceiptID is set when execution continued in another receipt.
	ReceiptID string

	// FailureReason is a short reason for StatusFailure, and FailureRaw the
	// node's full error object.
	FailureReason string
	FailureRaw    json.RawMessage
}

// IsSuccess reports whether the status is a success of either kind.
func (s ExecutionStatus) IsSuccess() bool {
	return s.Kind == StatusSuccessValue || s.Kind == StatusSuccessNoValue
}

// IsFailure reports whether the status is a failure.
func (s ExecutionStatus) IsFailure() bool {
	return s.Kind == StatusFailure
}

func (s ExecutionStatus) String() string {
	switch s.Kind {
	case StatusSuccessValue:
		return fmt.Sprintf("SuccessValue(%q)", s.Value)
	case StatusFailure:
		return "Failure(" + s.FailureReason + ")"
	default:
		return s.Kind.String()
	}
}

// rawStatus decodes the node's status union. Pending states ("NotStarted",
// "Started") come as bare strings.
type rawStatus struct {
	pending          bool
	SuccessValue     *string         `json:"SuccessValue"`
	SuccessReceiptID *string         `json:"SuccessReceiptId"`
	Failure          json.RawMessage `json:"Failure"`
}

func (s *rawStatus) UnmarshalJSON(data []byte) error {
	var str string
	if err := json.Unmarshal(data, &str); err == nil {
		s.pending = true
		return nil
	}
	type plain rawStatus
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*s = rawStatus(p)
	return nil
}

func (s *rawStatus) terminal() bool {
	return s != nil && !s.pending && (s.SuccessValue != nil || s.SuccessReceiptID != nil || len(s.Failure) > 0)
}

func (s *rawStatus) toStatus() (ExecutionStatus, error) {
	switch {
	case len(s.Failure) > 0:
		return ExecutionStatus{
			Kind:          StatusFailure,
			FailureReason: failureReason(s.Failure),
			FailureRaw:    s.Failure,
		}, nil
	case s.SuccessValue != nil:
		if *s.SuccessValue == "" {
			return ExecutionStatus{Kind: StatusSuccessNoValue}, nil
		}
		v, err := base64.StdEncoding.DecodeString(*s.SuccessValue)
		if err != nil {
			return ExecutionStatus{}, fmt.Errorf("invalid SuccessValue: %w", err)
		}
		return ExecutionStatus{Kind: StatusSuccessValue, Value: v}, nil
	case s.SuccessReceiptID != nil:
		return ExecutionStatus{Kind: StatusSuccessNoValue, ReceiptID: *s.SuccessReceiptID}, nil
	default:
		return ExecutionStatus{Kind: StatusUnknown}, nil
	}
}

// failureReason walks the nested error object and joins the variant names,
// e.g. "ActionError: FunctionCallError: CompilationError".
func failureReason(raw json.RawMessage) string {
	var parts []string
	var cur interface{}
	if err := json.Unmarshal(raw, &cur); err != nil {
		return string(raw)
	}
	for depth := 0; depth < 6; depth++ {
		m, ok := cur.(map[string]interface{})
		if !ok {
			if s, ok := cur.(string); ok {
				parts = append(parts, s)
			}
			break
		}
		next := ""
		if _, ok := m["kind"]; ok {
			next = "kind"
		} else {
			keys := make([]string, 0, len(m))
			for k := range m {
				if k != "index" {
					keys = append(keys, k)
				}
			}
			sort.Strings(keys)
			if len(keys) > 0 {
				next = keys[0]
			}
		}
		if next == "" {
			break
		}
		if next != "kind" {
			parts = append(parts, next)
		}
		cur = m[next]
	}
	if len(parts) == 0 {
		return string(raw)
	}
	return strings.Join(parts, ": ")
}

// CallExecutionDetails is the immutable result of a finalized transaction.
type CallExecutionDetails struct {
	TxHash        string
	TotalGasBurnt types.Gas
	Status        ExecutionStatus
	Logs          []string
}

// JSON decodes a SuccessValue into v.
func (d *CallExecutionDetails) JSON(v interface{}) error {
	if d.Status.Kind != StatusSuccessValue {
		return fmt.Errorf("transaction %s returned no value (%s)", d.TxHash, d.Status.Kind)
	}
	return json.Unmarshal(d.Status.Value, v)
}

// Err returns an ExecutionFailureError when the status is a failure.
func (d *CallExecutionDetails) Err() error {
	if d == nil || !d.Status.IsFailure() {
		return nil
	}
	return &ExecutionFailureError{TxHash: d.TxHash, Reason: d.Status.FailureReason, Details: d}
}

type outcomeView struct {
	Logs       []string   `json:"logs"`
	ReceiptIDs []string   `json:"receipt_ids"`
	GasBurnt   uint64     `json:"gas_burnt"`
	Status     *rawStatus `json:"status"`
	ExecutorID string     `json:"executor_id"`
}

type outcomeWithID struct {
	ID      string      `json:"id"`
	Outcome outcomeView `json:"outcome"`
}

// finalOutcomeView is the `tx` method result.
type finalOutcomeView struct {
	FinalExecutionStatus string          `json:"final_execution_status"`
	Status               *rawStatus      `json:"status"`
	TransactionOutcome   outcomeWithID   `json:"transaction_outcome"`
	ReceiptsOutcome      []outcomeWithID `json:"receipts_outcome"`
}

// terminalWaitLevels are the final_execution_status values at which an
// outcome can no longer change.
var terminalWaitLevels = map[string]bool{
	"EXECUTED_OPTIMISTIC": true,
	"EXECUTED":            true,
	"FINAL":               true,
}

func (v *finalOutcomeView) isFinal() bool {
	if !v.Status.terminal() {
		return false
	}
	return v.FinalExecutionStatus == "" || terminalWaitLevels[v.FinalExecutionStatus]
}

func (v *finalOutcomeView) details(hash string) (*CallExecutionDetails, error) {
	status, err := v.Status.toStatus()
	if err != nil {
		return nil, err
	}
	d := &CallExecutionDetails{
		TxHash:        hash,
		TotalGasBurnt: v.TransactionOutcome.Outcome.GasBurnt,
		Status:        status,
	}
	d.Logs = append(d.Logs, v.TransactionOutcome.Outcome.Logs...)
	for _, r := range v.ReceiptsOutcome {
		d.TotalGasBurnt += r.Outcome.GasBurnt
		d.Logs = append(d.Logs, r.Outcome.Logs...)
	}
	return d, nil
}

// AccountView is the result of a view_account query.
type AccountView struct {
	Amount       types.Balance
	Locked       types.Balance
	CodeHash     string
	StorageUsage uint64
	BlockHeight  uint64
	BlockHash    string
}

type accountViewJSON struct {
	Amount       string `json:"amount"`
	Locked       string `json:"locked"`
	CodeHash     string `json:"code_hash"`
	StorageUsage uint64 `json:"storage_usage"`
	BlockHeight  uint64 `json:"block_height"`
	BlockHash    string `json:"block_hash"`
}

func (j accountViewJSON) view() (*AccountView, error) {
	amount, err := types.ParseBalance(j.Amount)
	if err != nil {
		return nil, err
	}
	locked := types.ZeroBalance()
	if j.Locked != "" {
		if locked, err = types.ParseBalance(j.Locked); err != nil {
			return nil, err
		}
	}
	return &AccountView{
		Amount:       amount,
		Locked:       locked,
		CodeHash:     j.CodeHash,
		StorageUsage: j.StorageUsage,
		BlockHeight:  j.BlockHeight,
		BlockHash:    j.BlockHash,
	}, nil
}

// AccessKeyView is the result of a view_access_key query.
type AccessKeyView struct {
	Nonce       uint64          `json:"nonce"`
	Permission  json.RawMessage `json:"permission"`
	BlockHeight uint64          `json:"block_height"`
	BlockHash   string          `json:"block_hash"`
}

// StatusView is the subset of the node status used for liveness.
type StatusView struct {
	ChainID  string `json:"chain_id"`
	SyncInfo struct {
		LatestBlockHash   string `json:"latest_block_hash"`
		LatestBlockHeight uint64 `json:"latest_block_height"`
		Syncing           bool   `json:"syncing"`
	} `json:"sync_info"`
	Version struct {
		Version string `json:"version"`
		Build   string `json:"build"`
	} `json:"version"`
}

// ViewResult is the result of a call_function query.
type ViewResult struct {
	Result      []byte
	Logs        []string
	BlockHeight uint64
	BlockHash   string
}

// JSON decodes the view result into v.
func (r *ViewResult) JSON(v interface{}) error {
	return json.Unmarshal(r.Result, v)
}

type viewResultJSON struct {
	Result      []int    `json:"result"`
	Logs        []string `json:"logs"`
	BlockHeight uint64   `json:"block_height"`
	BlockHash   string   `json:"block_hash"`
}

func (j viewResultJSON) view() *ViewResult {
	out := make([]byte, len(j.Result))
	for i, b := range j.Result {
		out[i] = byte(b)
	}
	return &ViewResult{Result: out, Logs: j.Logs, BlockHeight: j.BlockHeight, BlockHash: j.BlockHash}
}

type codeViewJSON struct {
	CodeBase64 string `json:"code_base64"`
	Hash       string `json:"hash"`
}

// BlockView is the subset of a block used by callers.
type BlockView struct {
	Author string `json:"author"`
	Header struct {
		Height           uint64 `json:"height"`
		Hash             string `json:"hash"`
		PrevHash         string `json:"prev_hash"`
		TimestampNanosec string `json:"timestamp_nanosec"`
	} `json:"header"`
}
