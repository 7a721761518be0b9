package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassify(t *testing.T) {
	c := NewClient("http://node", Config{})

	tests := []struct {
		name      string
		obj       ErrorObject
		rejection bool
		transport bool
		retryable bool
	}{
		{
			name:      "invalid transaction",
			obj:       ErrorObject{Name: "HANDLER_ERROR", Cause: &ErrorCause{Name: causeInvalidTransaction}},
			rejection: true,
		},
		{
			name:      "unknown access key",
			obj:       ErrorObject{Name: "HANDLER_ERROR", Cause: &ErrorCause{Name: causeUnknownAccessKey}},
			rejection: true,
		},
		{
			name:      "request validation",
			obj:       ErrorObject{Name: "REQUEST_VALIDATION_ERROR", Cause: &ErrorCause{Name: "METHOD_NOT_FOUND"}},
			rejection: true,
		},
		{
			name:      "timeout",
			obj:       ErrorObject{Name: "HANDLER_ERROR", Cause: &ErrorCause{Name: causeTimeout}},
			transport: true,
			retryable: true,
		},
		{
			name:      "internal",
			obj:       ErrorObject{Name: "INTERNAL_ERROR", Cause: &ErrorCause{Name: causeInternalError}},
			transport: true,
			retryable: true,
		},
		{
			name: "unknown transaction",
			obj:  ErrorObject{Name: "HANDLER_ERROR", Cause: &ErrorCause{Name: causeUnknownTransaction}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := c.classify("query", &tt.obj)
			require.Error(t, err)
			assert.Equal(t, tt.rejection, IsChainRejection(err))
			var te *TransportError
			assert.Equal(t, tt.transport, errors.As(err, &te))
			assert.Equal(t, tt.retryable, IsRetryable(err))
		})
	}
}

func TestIsUnknownAccount(t *testing.T) {
	c := NewClient("http://node", Config{})
	err := c.classify("query", &ErrorObject{Name: "HANDLER_ERROR", Cause: &ErrorCause{Name: causeUnknownAccount}})
	assert.True(t, IsUnknownAccount(err))
	assert.False(t, IsUnknownAccount(errors.New("other")))
}

func TestCall_RequestEnvelope(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "application/json", r.Header.Get("Content-Type"))

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		var req Request
		require.NoError(t, json.Unmarshal(body, &req))
		require.Equal(t, "2.0", req.JSONRPC)
		require.Equal(t, "status", req.Method)
		require.NotEmpty(t, req.ID)

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"jsonrpc":"2.0","id":"` + req.ID + `","result":{"chain_id":"localnet","sync_info":{"latest_block_height":42}}}`))
	}))
	defer server.Close()

	status, err := NewClient(server.URL, Config{}).Status(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "localnet", status.ChainID)
	assert.Equal(t, uint64(42), status.SyncInfo.LatestBlockHeight)
}

func TestCall_TransportErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{
			name: "malformed body",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte("not json"))
			},
		},
		{
			name: "http error without rpc error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusBadGateway)
				w.Write([]byte(`{"jsonrpc":"2.0","id":"1"}`))
			},
		},
		{
			name: "result does not match",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.Write([]byte(`{"jsonrpc":"2.0","id":"1","result":"oops"}`))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			_, err := NewClient(server.URL, Config{}).Status(context.Background())
			require.Error(t, err)
			var te *TransportError
			require.ErrorAs(t, err, &te)
			assert.Equal(t, "status", te.Method)
			assert.True(t, IsRetryable(err))
		})
	}
}

func TestCall_Unreachable(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	_, err := NewClient(url, Config{}).Status(context.Background())
	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, url, te.Endpoint)
}

func TestCall_ErrorWithNon200(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"jsonrpc":"2.0","id":"1","error":{"name":"HANDLER_ERROR","cause":{"name":"UNKNOWN_ACCOUNT","info":{"requested_account_id":"nobody.near"}},"code":-32000,"message":"Server error"}}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, Config{}).ViewAccount(context.Background(), "nobody.near")
	require.Error(t, err)
	assert.True(t, IsUnknownAccount(err))
	assert.False(t, IsRetryable(err))
	assert.Contains(t, err.Error(), "nobody.near")
}
