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

	"github.com/brojonat/blinkmart/service/actions"
)

// Client is the HTTP client for the blinkmart action endpoints.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// APIError is returned for any non-2xx response. Message is the server's
// {message} body when present.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("request failed with status %d: %s", e.StatusCode, e.Message)
}

// NewClient creates a new action service client.
func NewClient(baseURL string, httpClient *http.Client, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: httpClient,
		logger:     logger,
	}
}

// GetItem fetches the action descriptor for an item.
func (c *Client) GetItem(ctx context.Context, itemID string) (*actions.Descriptor, error) {
	var d actions.Descriptor
	if err := c.do(ctx, http.MethodGet, itemPath(itemID), nil, &d); err != nil {
		return nil, err
	}
	return &d, nil
}

// Buy requests an unsigned buy-now transaction for account.
func (c *Client) Buy(ctx context.Context, itemID, account string) (string, error) {
	var resp transactionResponse
	body := map[string]interface{}{"account": account}
	if err := c.do(ctx, http.MethodPost, itemPath(itemID)+"/buy", body, &resp); err != nil {
		return "", err
	}
	c.logger.Debug("buy transaction prepared", "item_id", itemID, "account", account)
	return resp.Transaction, nil
}

// Offer requests an unsigned bid transaction for amount SOL.
func (c *Client) Offer(ctx context.Context, itemID, account string, amount float64) (string, error) {
	var resp transactionResponse
	body := map[string]interface{}{"account": account, "offerAmount": amount}
	if err := c.do(ctx, http.MethodPost, itemPath(itemID)+"/offer", body, &resp); err != nil {
		return "", err
	}
	c.logger.Debug("offer transaction prepared", "item_id", itemID, "account", account, "amount", amount)
	return resp.Transaction, nil
}

// Health returns nil if the server answers its health check.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/health", nil, nil)
}

type transactionResponse struct {
	Transaction string `json:"transaction"`
}

func itemPath(itemID string) string {
	return "/item/" + url.PathEscape(itemID)
}

func (c *Client) do(ctx context.Context, method, path string, reqBody, out interface{}) error {
	var body io.Reader
	if reqBody != nil {
		data, err := json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return parseErrorResponse(resp)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

// parseErrorResponse builds an APIError from a {message} body, falling back
// to the raw body text.
func parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Message string `json:"message"`
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(body, &errResp); err != nil || errResp.Message == "" {
		return &APIError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}
	return &APIError{StatusCode: resp.StatusCode, Message: errResp.Message}
}
