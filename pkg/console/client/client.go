// Package client is a typed HTTP client for the transaction service API.
// One method per operation, context on every call, no automatic retries. A
// circuit breaker guards the transport; business rejections (4xx) pass
// through it without counting as failures.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cfs-platform/transaction-service/pkg/resilience"
)

// APIError is a non-2xx response decoded from the service's error envelope
type APIError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
	RequestID  string `json:"requestId,omitempty"`
}

// Error implements the error interface
func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.StatusCode, e.Message)
}

// IsNotFound reports whether the error is a 404 from the service
func IsNotFound(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.StatusCode == http.StatusNotFound
}

// IsStaleSelection reports whether the server rejected a bulk step because
// some selected packages no longer held the step's source status
func IsStaleSelection(err error) bool {
	apiErr, ok := err.(*APIError)
	return ok && apiErr.Code == "STALE_SELECTION"
}

// Config holds client configuration
type Config struct {
	BaseURL     string
	Timeout     time.Duration
	OperatorID  string
	Permissions []string
}

// DefaultConfig returns a client configuration with defaults applied
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
	}
}

// Client calls the transaction service API
type Client struct {
	baseURL     string
	httpClient  *http.Client
	breaker     *resilience.CircuitBreaker
	operatorID  string
	permissions string
}

// NewClient creates a new API client
func NewClient(config *Config, logger *slog.Logger) *Client {
	timeout := config.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}

	return &Client{
		baseURL:     strings.TrimRight(config.BaseURL, "/"),
		httpClient:  &http.Client{Timeout: timeout},
		breaker:     resilience.NewCircuitBreaker(resilience.DefaultCircuitBreakerConfig("transaction-api"), logger),
		operatorID:  config.OperatorID,
		permissions: strings.Join(config.Permissions, ","),
	}
}

// CreateTransaction opens a new transaction for a packing list
func (c *Client) CreateTransaction(ctx context.Context, packingListID, flowName string) (*Transaction, error) {
	body := map[string]string{
		"packingListId":       packingListID,
		"businessProcessFlow": flowName,
	}
	var tx Transaction
	if err := c.do(ctx, http.MethodPost, "/api/v1/transactions", body, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetTransaction fetches a transaction by ID
func (c *Client) GetTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	var tx Transaction
	path := "/api/v1/transactions/" + url.PathEscape(transactionID)
	if err := c.do(ctx, http.MethodGet, path, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// GetActiveTransaction resolves the transaction to display for a packing
// list. A nil result means no transaction exists.
func (c *Client) GetActiveTransaction(ctx context.Context, packingListID string) (*Transaction, error) {
	var tx Transaction
	path := "/api/v1/transactions/active?packingListId=" + url.QueryEscape(packingListID)
	if err := c.do(ctx, http.MethodGet, path, nil, &tx); err != nil {
		if IsNotFound(err) {
			return nil, nil
		}
		return nil, err
	}
	return &tx, nil
}

// HandleStep executes one step against a transaction
func (c *Client) HandleStep(ctx context.Context, transactionID string, req StepRequest) (*Transaction, error) {
	var tx Transaction
	path := "/api/v1/transactions/" + url.PathEscape(transactionID) + "/steps"
	if err := c.do(ctx, http.MethodPost, path, req.stepBody(), &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// CompleteTransaction closes a transaction
func (c *Client) CompleteTransaction(ctx context.Context, transactionID string) (*Transaction, error) {
	var tx Transaction
	path := "/api/v1/transactions/" + url.PathEscape(transactionID) + "/complete"
	if err := c.do(ctx, http.MethodPost, path, nil, &tx); err != nil {
		return nil, err
	}
	return &tx, nil
}

// DeleteTransaction removes an empty transaction
func (c *Client) DeleteTransaction(ctx context.Context, transactionID string) error {
	path := "/api/v1/transactions/" + url.PathEscape(transactionID)
	return c.do(ctx, http.MethodDelete, path, nil, nil)
}

// GetFlow fetches a flow definition by name
func (c *Client) GetFlow(ctx context.Context, name string) (*Flow, error) {
	var flow Flow
	path := "/api/v1/flows/" + url.PathEscape(name)
	if err := c.do(ctx, http.MethodGet, path, nil, &flow); err != nil {
		return nil, err
	}
	return &flow, nil
}

// GetPackingList fetches a packing list with its cargo lines
func (c *Client) GetPackingList(ctx context.Context, packingListID string) (*PackingList, error) {
	var list PackingList
	path := "/api/v1/packing-lists/" + url.PathEscape(packingListID)
	if err := c.do(ctx, http.MethodGet, path, nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetLocation fetches a storage location by ID
func (c *Client) GetLocation(ctx context.Context, locationID string) (*Location, error) {
	var loc Location
	path := "/api/v1/locations/" + url.PathEscape(locationID)
	if err := c.do(ctx, http.MethodGet, path, nil, &loc); err != nil {
		return nil, err
	}
	return &loc, nil
}

// do runs one HTTP exchange. Transport failures and 5xx responses count
// against the circuit breaker; 4xx responses are business rejections and do
// not.
func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.operatorID != "" {
		req.Header.Set("X-Operator-ID", c.operatorID)
	}
	if c.permissions != "" {
		req.Header.Set("X-Operator-Permissions", c.permissions)
	}

	result, err := c.breaker.Execute(func() (interface{}, error) {
		resp, err := c.httpClient.Do(req)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to read response: %w", err)
		}

		if resp.StatusCode >= http.StatusInternalServerError {
			return nil, decodeAPIError(resp.StatusCode, data)
		}

		return &rawResponse{status: resp.StatusCode, body: data}, nil
	})
	if err != nil {
		return err
	}

	resp := result.(*rawResponse)
	if resp.status >= http.StatusBadRequest {
		return decodeAPIError(resp.status, resp.body)
	}

	if out != nil && len(resp.body) > 0 {
		if err := json.Unmarshal(resp.body, out); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}

	return nil
}

type rawResponse struct {
	status int
	body   []byte
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{StatusCode: status}
	if err := json.Unmarshal(body, apiErr); err != nil || apiErr.Code == "" {
		apiErr.Code = http.StatusText(status)
		apiErr.Message = strings.TrimSpace(string(body))
	}
	return apiErr
}
