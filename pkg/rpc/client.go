// Package rpc provides the JSON-RPC client used to submit signed
// transactions to a node and wait for their final outcome.
package rpc

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/hashicorp/go-retryablehttp"

	"github.com/altuslabsxyz/workspaces-go/types"
)

const (
	// DefaultTimeout is the default HTTP timeout per request.
	DefaultTimeout = 10 * time.Second

	// DefaultPollInitialInterval is the first wait between status polls.
	DefaultPollInitialInterval = 100 * time.Millisecond

	// DefaultPollMaxInterval caps the wait between status polls.
	DefaultPollMaxInterval = 2 * time.Second

	// DefaultPollMaxRounds bounds the number of status polls.
	DefaultPollMaxRounds = 60

	// DefaultPollTimeout bounds the total time spent polling.
	DefaultPollTimeout = 2 * time.Minute
)

// PollConfig bounds the finality poll loop.
type PollConfig struct {
	InitialInterval time.Duration
	MaxInterval     time.Duration
	MaxRounds       int
	Timeout         time.Duration
}

// DefaultPollConfig returns the default polling budget.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		InitialInterval: DefaultPollInitialInterval,
		MaxInterval:     DefaultPollMaxInterval,
		MaxRounds:       DefaultPollMaxRounds,
		Timeout:         DefaultPollTimeout,
	}
}

func (p PollConfig) withDefaults() PollConfig {
	d := DefaultPollConfig()
	if p.InitialInterval <= 0 {
		p.InitialInterval = d.InitialInterval
	}
	if p.MaxInterval < p.InitialInterval {
		p.MaxInterval = d.MaxInterval
		if p.MaxInterval < p.InitialInterval {
			p.MaxInterval = p.InitialInterval
		}
	}
	if p.MaxRounds <= 0 {
		p.MaxRounds = d.MaxRounds
	}
	if p.Timeout <= 0 {
		p.Timeout = d.Timeout
	}
	return p
}

// Config configures a Client.
type Config struct {
	// Timeout is the HTTP timeout per request.
	Timeout time.Duration

	// RetryMax enables transport-level retries of a single request.
	// Zero, the default, surfaces every transport error immediately.
	RetryMax int

	// Poll bounds the wait for a final outcome.
	Poll PollConfig

	// Logger receives debug output. Defaults to slog.Default().
	Logger *slog.Logger

	// Metrics, when set, records request and poll statistics.
	Metrics *Metrics

	// HTTPClient overrides the underlying HTTP client.
	HTTPClient *http.Client
}

// Client talks to one RPC endpoint. It holds no per-transaction state and is
// safe for concurrent use.
type Client struct {
	endpoint string
	http     *retryablehttp.Client
	poll     PollConfig
	logger   *slog.Logger
	metrics  *Metrics
}

// NewClient creates a Client for endpoint.
func NewClient(endpoint string, cfg Config) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.RetryMax < 0 {
		cfg.RetryMax = 0
	}

	httpClient := retryablehttp.NewClient()
	if cfg.HTTPClient != nil {
		httpClient.HTTPClient = cfg.HTTPClient
	} else {
		httpClient.HTTPClient = &http.Client{Timeout: cfg.Timeout}
	}
	httpClient.RetryMax = cfg.RetryMax
	httpClient.Logger = cfg.Logger
	// JSON-RPC errors may arrive with non-2xx codes; the body is still needed.
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &Client{
		endpoint: endpoint,
		http:     httpClient,
		poll:     cfg.Poll.withDefaults(),
		logger:   cfg.Logger,
		metrics:  cfg.Metrics,
	}
}

// Endpoint returns the RPC URL the client is bound to.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// PollConfig returns the client's polling budget.
func (c *Client) PollConfig() PollConfig {
	return c.poll
}

// WithPollConfig returns a copy of c using the given polling budget.
func (c *Client) WithPollConfig(p PollConfig) *Client {
	cp := *c
	cp.poll = p.withDefaults()
	return &cp
}

// Status returns the node status. It doubles as a liveness probe.
func (c *Client) Status(ctx context.Context) (*StatusView, error) {
	var out StatusView
	if err := c.call(ctx, "status", []interface{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Views read optimistic state so that they observe the effects of
// transactions that were just reported as executed.
func (c *Client) query(ctx context.Context, finality string, params map[string]interface{}, out interface{}) error {
	params["finality"] = finality
	return c.call(ctx, "query", params, out)
}

// Block returns the header of the latest final block.
func (c *Client) Block(ctx context.Context) (*BlockView, error) {
	var out BlockView
	if err := c.call(ctx, "block", map[string]interface{}{"finality": "final"}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ViewAccount returns the account's balance and storage.
func (c *Client) ViewAccount(ctx context.Context, id types.AccountID) (*AccountView, error) {
	var out accountViewJSON
	err := c.query(ctx, "optimistic", map[string]interface{}{
		"request_type": "view_account",
		"account_id":   id,
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.view()
}

// ViewAccessKey returns the current nonce and permission of a key.
func (c *Client) ViewAccessKey(ctx context.Context, id types.AccountID, pk types.PublicKey) (*AccessKeyView, error) {
	var out AccessKeyView
	err := c.query(ctx, "final", map[string]interface{}{
		"request_type": "view_access_key",
		"account_id":   id,
		"public_key":   pk.String(),
	}, &out)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

// ViewFunction calls a read-only contract method.
func (c *Client) ViewFunction(ctx context.Context, contract types.AccountID, method string, args []byte) (*ViewResult, error) {
	var out viewResultJSON
	err := c.query(ctx, "optimistic", map[string]interface{}{
		"request_type": "call_function",
		"account_id":   contract,
		"method_name":  method,
		"args_base64":  base64.StdEncoding.EncodeToString(args),
	}, &out)
	if err != nil {
		return nil, err
	}
	return out.view(), nil
}

// ViewCode returns the contract code deployed under id.
func (c *Client) ViewCode(ctx context.Context, id types.AccountID) ([]byte, error) {
	var out codeViewJSON
	err := c.query(ctx, "optimistic", map[string]interface{}{
		"request_type": "view_code",
		"account_id":   id,
	}, &out)
	if err != nil {
		return nil, err
	}
	code, err := base64.StdEncoding.DecodeString(out.CodeBase64)
	if err != nil {
		return nil, &TransportError{Method: "query", Endpoint: c.endpoint, Err: fmt.Errorf("invalid code_base64: %w", err)}
	}
	return code, nil
}

// SignTransaction discovers a fresh nonce and block hash for signer and
// returns the signed transaction without submitting it.
func (c *Client) SignTransaction(ctx context.Context, signer *InMemorySigner, receiver types.AccountID, actions ...Action) (*SignedTransaction, error) {
	if len(actions) == 0 {
		return nil, ErrNoActions
	}
	signer.mu.Lock()
	defer signer.mu.Unlock()
	return c.signLocked(ctx, signer, receiver, actions)
}

func (c *Client) signLocked(ctx context.Context, signer *InMemorySigner, receiver types.AccountID, actions []Action) (*SignedTransaction, error) {
	key, err := c.ViewAccessKey(ctx, signer.AccountID, signer.PublicKey())
	if err != nil {
		return nil, err
	}
	blockHash, err := types.ParseCryptoHash(key.BlockHash)
	if err != nil {
		return nil, &TransportError{Method: "query", Endpoint: c.endpoint, Err: err}
	}

	tx := Transaction{
		SignerID:   signer.AccountID,
		PublicKey:  signer.PublicKey(),
		Nonce:      signer.nextNonce(key.Nonce),
		ReceiverID: receiver,
		BlockHash:  blockHash,
		Actions:    actions,
	}
	return SignTransaction(tx, signer.secretKey)
}

// SubmitTransaction signs actions with a fresh nonce, submits them to
// receiver and waits for the final outcome.
//
// On an on-chain failure both the details and an *ExecutionFailureError are
// returned.
func (c *Client) SubmitTransaction(ctx context.Context, signer *InMemorySigner, receiver types.AccountID, actions ...Action) (*CallExecutionDetails, error) {
	if len(actions) == 0 {
		return nil, ErrNoActions
	}

	st, err := c.signAndSend(ctx, signer, receiver, actions)
	if err != nil {
		return nil, err
	}
	return c.WaitForFinality(ctx, st.Hash(), signer.AccountID)
}

// signAndSend holds the signer's nonce lock until the node has accepted the
// transaction so that concurrent submissions get distinct nonces.
func (c *Client) signAndSend(ctx context.Context, signer *InMemorySigner, receiver types.AccountID, actions []Action) (*SignedTransaction, error) {
	signer.mu.Lock()
	defer signer.mu.Unlock()

	st, err := c.signLocked(ctx, signer, receiver, actions)
	if err != nil {
		return nil, err
	}
	if err := c.send(ctx, st); err != nil {
		return nil, err
	}
	return st, nil
}

// SendSignedTransaction submits an already signed transaction and waits for
// its final outcome. Resubmitting a transaction that was already executed is
// rejected by the node.
func (c *Client) SendSignedTransaction(ctx context.Context, st *SignedTransaction) (*CallExecutionDetails, error) {
	if err := c.send(ctx, st); err != nil {
		return nil, err
	}
	return c.WaitForFinality(ctx, st.Hash(), st.Transaction.SignerID)
}

func (c *Client) send(ctx context.Context, st *SignedTransaction) error {
	payload, err := st.EncodeBase64()
	if err != nil {
		return fmt.Errorf("failed to encode transaction: %w", err)
	}
	c.logger.Debug("submitting transaction",
		"txHash", st.Hash().String(),
		"signer", st.Transaction.SignerID,
		"receiver", st.Transaction.ReceiverID,
		"nonce", st.Transaction.Nonce)
	return c.call(ctx, "send_tx", map[string]interface{}{
		"signed_tx_base64": payload,
		"wait_until":       "NONE",
	}, nil)
}

// TransactionStatus performs one status query. It returns the details and
// true once the outcome is final.
func (c *Client) TransactionStatus(ctx context.Context, hash types.CryptoHash, sender types.AccountID) (*CallExecutionDetails, bool, error) {
	var out finalOutcomeView
	err := c.call(ctx, "tx", map[string]interface{}{
		"tx_hash":           hash.String(),
		"sender_account_id": sender,
		"wait_until":        "NONE",
	}, &out)
	if err != nil {
		if isPending(err) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if !out.isFinal() {
		return nil, false, nil
	}
	details, err := out.details(hash.String())
	if err != nil {
		return nil, false, &TransportError{Method: "tx", Endpoint: c.endpoint, Err: err}
	}
	return details, true, nil
}

// isPending reports node errors that mean the outcome is not known yet.
func isPending(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) && re.Cause == causeUnknownTransaction {
		return true
	}
	var te *TransportError
	return errors.As(err, &te) && te.Cause == causeTimeout
}

// WaitForFinality polls the transaction status with exponential backoff until
// the outcome is final or the poll budget is exhausted. Cancelling ctx only
// abandons the wait; the transaction may still execute.
func (c *Client) WaitForFinality(ctx context.Context, hash types.CryptoHash, sender types.AccountID) (*CallExecutionDetails, error) {
	b := backoff.NewExponentialBackOff(
		backoff.WithInitialInterval(c.poll.InitialInterval),
		backoff.WithMaxInterval(c.poll.MaxInterval),
		backoff.WithMaxElapsedTime(c.poll.Timeout),
	)

	start := time.Now()
	timeout := func(rounds int, cause error) error {
		c.metrics.observePoll(rounds)
		return &PollTimeoutError{TxHash: hash.String(), Rounds: rounds, Elapsed: time.Since(start), Err: cause}
	}

	for round := 1; ; round++ {
		details, final, err := c.TransactionStatus(ctx, hash, sender)
		if err != nil {
			if ctx.Err() != nil {
				return nil, timeout(round, ctx.Err())
			}
			return nil, err
		}
		if final {
			c.metrics.observePoll(round)
			c.logger.Debug("transaction final",
				"txHash", details.TxHash,
				"status", details.Status.String(),
				"gasBurnt", details.TotalGasBurnt,
				"rounds", round)
			return details, details.Err()
		}
		if round >= c.poll.MaxRounds {
			return nil, timeout(round, nil)
		}

		wait := b.NextBackOff()
		if wait == backoff.Stop {
			return nil, timeout(round, nil)
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, timeout(round, ctx.Err())
		case <-timer.C:
		}
	}
}

// Deploy deploys code to the signer's own account.
func (c *Client) Deploy(ctx context.Context, signer *InMemorySigner, code []byte) (*CallExecutionDetails, error) {
	return c.SubmitTransaction(ctx, signer, signer.AccountID, DeployContractAction{Code: code})
}

// Transfer sends amount from the signer to receiver.
func (c *Client) Transfer(ctx context.Context, signer *InMemorySigner, receiver types.AccountID, amount types.Balance) (*CallExecutionDetails, error) {
	return c.SubmitTransaction(ctx, signer, receiver, TransferAction{Deposit: amount})
}

// Call invokes a contract method as the signer.
func (c *Client) Call(ctx context.Context, signer *InMemorySigner, contract types.AccountID, method string, args []byte, gas types.Gas, deposit types.Balance) (*CallExecutionDetails, error) {
	if gas == 0 {
		gas = types.DefaultCallGas
	}
	return c.SubmitTransaction(ctx, signer, contract, FunctionCallAction{
		MethodName: method,
		Args:       args,
		Gas:        gas,
		Deposit:    deposit,
	})
}
