package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/google/uuid"
	"github.com/hashicorp/go-retryablehttp"
)

// Error cause names reported by the node.
const (
	causeInvalidTransaction = "INVALID_TRANSACTION"
	causeUnknownTransaction = "UNKNOWN_TRANSACTION"
	causeTimeout            = "TIMEOUT_ERROR"
	causeUnknownAccount     = "UNKNOWN_ACCOUNT"
	causeUnknownAccessKey   = "UNKNOWN_ACCESS_KEY"
	causeParseError         = "PARSE_ERROR"
	causeInternalError      = "INTERNAL_ERROR"
)

// Request is a JSON-RPC 2.0 request.
type Request struct {
	JSONRPC string      `json:"jsonrpc"`
	ID      string      `json:"id"`
	Method  string      `json:"method"`
	Params  interface{} `json:"params"`
}

// Response is a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      string          `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *ErrorObject    `json:"error,omitempty"`
}

// ErrorObject is the node's structured error.
type ErrorObject struct {
	Name    string          `json:"name,omitempty"`
	Cause   *ErrorCause     `json:"cause,omitempty"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

// ErrorCause names the concrete failure inside an ErrorObject.
type ErrorCause struct {
	Name string          `json:"name"`
	Info json.RawMessage `json:"info,omitempty"`
}

func (e *ErrorObject) causeName() string {
	if e.Cause != nil {
		return e.Cause.Name
	}
	return ""
}

func (e *ErrorObject) causeInfo() json.RawMessage {
	if e.Cause != nil && len(e.Cause.Info) > 0 {
		return e.Cause.Info
	}
	return e.Data
}

// call performs one JSON-RPC round trip and decodes the result into out.
func (c *Client) call(ctx context.Context, method string, params, out interface{}) error {
	err := c.doCall(ctx, method, params, out)
	c.metrics.observeRequest(method, err)
	return err
}

func (c *Client) doCall(ctx context.Context, method string, params, out interface{}) error {
	body, err := json.Marshal(Request{
		JSONRPC: "2.0",
		ID:      uuid.NewString(),
		Method:  method,
		Params:  params,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s request: %w", method, err)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, body)
	if err != nil {
		return &TransportError{Method: method, Endpoint: c.endpoint, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &TransportError{Method: method, Endpoint: c.endpoint, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &TransportError{Method: method, Endpoint: c.endpoint, Err: err}
	}

	var rpcResp Response
	if err := json.Unmarshal(data, &rpcResp); err != nil {
		return &TransportError{
			Method:   method,
			Endpoint: c.endpoint,
			Err:      fmt.Errorf("HTTP %d: malformed response: %w", resp.StatusCode, err),
		}
	}

	if rpcResp.Error != nil {
		return c.classify(method, rpcResp.Error)
	}
	if resp.StatusCode != http.StatusOK {
		return &TransportError{Method: method, Endpoint: c.endpoint, Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(rpcResp.Result, out); err != nil {
		return &TransportError{
			Method:   method,
			Endpoint: c.endpoint,
			Err:      fmt.Errorf("failed to parse result: %w", err),
		}
	}
	return nil
}

// classify maps a node error onto the error taxonomy.
func (c *Client) classify(method string, e *ErrorObject) error {
	cause := e.causeName()
	switch cause {
	case causeInvalidTransaction, causeParseError, causeUnknownAccount, causeUnknownAccessKey:
		return &ChainRejectionError{Method: method, Name: cause, Message: e.Message, Info: e.causeInfo()}
	case causeTimeout, causeInternalError:
		return &TransportError{Method: method, Endpoint: c.endpoint, Cause: cause, Err: fmt.Errorf("%s: %s", cause, e.Message)}
	}
	if e.Name == "REQUEST_VALIDATION_ERROR" {
		return &ChainRejectionError{Method: method, Name: e.Name, Message: e.Message, Info: e.causeInfo()}
	}
	return &RemoteError{Method: method, Name: e.Name, Cause: cause, Info: e.causeInfo(), Msg: e.Message}
}
