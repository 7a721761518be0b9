package network

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/altuslabsxyz/workspaces-go/types"
)

// HelperClient talks to the account helper service that creates and funds
// top-level accounts out of band.
type HelperClient struct {
	endpoint string
	http     *retryablehttp.Client
}

// NewHelperClient returns a client for the helper at endpoint.
func NewHelperClient(endpoint string, timeout time.Duration, logger *slog.Logger) *HelperClient {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	httpClient := retryablehttp.NewClient()
	httpClient.HTTPClient = &http.Client{Timeout: timeout}
	httpClient.RetryMax = 0
	httpClient.Logger = logger
	httpClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	return &HelperClient{endpoint: strings.TrimRight(endpoint, "/"), http: httpClient}
}

// Endpoint returns the helper URL.
func (h *HelperClient) Endpoint() string {
	return h.endpoint
}

type createAccountRequest struct {
	NewAccountID        string `json:"newAccountId"`
	NewAccountPublicKey string `json:"newAccountPublicKey"`
}

// CreateAccount asks the helper to create and fund id with pk as its key.
func (h *HelperClient) CreateAccount(ctx context.Context, id types.AccountID, pk types.PublicKey) error {
	body, err := json.Marshal(createAccountRequest{
		NewAccountID:        id.String(),
		NewAccountPublicKey: pk.String(),
	})
	if err != nil {
		return fmt.Errorf("failed to encode helper request: %w", err)
	}

	url := h.endpoint + "/account"
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return &HelperServiceError{Endpoint: url, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.http.Do(req)
	if err != nil {
		return &HelperServiceError{Endpoint: url, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &HelperServiceError{Endpoint: url, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}
