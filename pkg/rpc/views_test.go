package rpc

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFinalOutcome_IsFinal(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		final bool
	}{
		{"included only", `{"final_execution_status":"INCLUDED"}`, false},
		{"pending status string", `{"final_execution_status":"INCLUDED","status":"Started"}`, false},
		{"success optimistic", `{"final_execution_status":"EXECUTED_OPTIMISTIC","status":{"SuccessValue":""}}`, true},
		{"success final", `{"final_execution_status":"FINAL","status":{"SuccessValue":"MQ=="}}`, true},
		{"receipt id without level", `{"status":{"SuccessReceiptId":"abc"}}`, true},
		{"failure", `{"final_execution_status":"EXECUTED","status":{"Failure":{"ActionError":{"index":0,"kind":"X"}}}}`, true},
		{"status but still included", `{"final_execution_status":"INCLUDED_FINAL","status":{"SuccessValue":""}}`, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var v finalOutcomeView
			require.NoError(t, json.Unmarshal([]byte(tt.body), &v))
			assert.Equal(t, tt.final, v.isFinal())
		})
	}
}

func TestFinalOutcome_Details(t *testing.T) {
	body := `{
		"final_execution_status": "FINAL",
		"status": {"SuccessValue": "eyJvayI6dHJ1ZX0="},
		"transaction_outcome": {"id": "h", "outcome": {"logs": [], "gas_burnt": 100, "status": {"SuccessReceiptId": "r1"}}},
		"receipts_outcome": [
			{"id": "r1", "outcome": {"logs": ["one"], "gas_burnt": 200, "status": {"SuccessReceiptId": "r2"}}},
			{"id": "r2", "outcome": {"logs": ["two"], "gas_burnt": 300, "status": {"SuccessValue": ""}}}
		]
	}`
	var v finalOutcomeView
	require.NoError(t, json.Unmarshal([]byte(body), &v))

	d, err := v.details("h")
	require.NoError(t, err)
	assert.Equal(t, uint64(600), d.TotalGasBurnt)
	assert.Equal(t, []string{"one", "two"}, d.Logs)
	assert.Equal(t, StatusSuccessValue, d.Status.Kind)
	assert.NoError(t, d.Err())

	var out struct {
		OK bool `json:"ok"`
	}
	require.NoError(t, d.JSON(&out))
	assert.True(t, out.OK)
}

func TestFailureReason(t *testing.T) {
	raw := json.RawMessage(`{"ActionError":{"index":1,"kind":{"FunctionCallError":{"CompilationError":{"PrepareError":"Deserialization"}}}}}`)
	assert.Equal(t, "ActionError: FunctionCallError: CompilationError: PrepareError: Deserialization", failureReason(raw))

	assert.Equal(t, "InvalidTxError", failureReason(json.RawMessage(`"InvalidTxError"`)))
}

func TestExecutionFailure(t *testing.T) {
	var v finalOutcomeView
	require.NoError(t, json.Unmarshal([]byte(`{"status":{"Failure":{"ActionError":{"index":0,"kind":{"AccountDoesNotExist":{"account_id":"x.near"}}}}}}`), &v))

	d, err := v.details("hash")
	require.NoError(t, err)
	require.True(t, d.Status.IsFailure())

	err = d.Err()
	require.Error(t, err)
	assert.True(t, IsExecutionFailure(err))
	assert.False(t, IsRetryable(err))

	var fe *ExecutionFailureError
	require.ErrorAs(t, err, &fe)
	assert.Equal(t, "hash", fe.TxHash)
	assert.Equal(t, "ActionError: AccountDoesNotExist: account_id: x.near", fe.Reason)
	assert.Same(t, d, fe.Details)
}

func TestAccountViewJSON(t *testing.T) {
	var j accountViewJSON
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"100000000000000000000000000","locked":"0","code_hash":"11111111111111111111111111111111","storage_usage":182,"block_height":9}`), &j))
	view, err := j.view()
	require.NoError(t, err)
	assert.Equal(t, "100000000000000000000000000", view.Amount.String())
	assert.True(t, view.Locked.IsZero())
	assert.Equal(t, uint64(182), view.StorageUsage)

	j.Amount = "not a number"
	_, err = j.view()
	require.Error(t, err)
}
