package marketplace

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/brojonat/blinkmart/service/metrics"
)

const (
	apiKeyHeader        = "x-api-key"
	maxResponseBodySize = 4 << 20 // transactions with lookup tables stay well below this
)

// AssetRecord is the marketplace's view of an item.
// Price is a string-encoded integer amount of lamports, nil when not listed.
type AssetRecord struct {
	Mint        string  `json:"mint"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	ImageURI    string  `json:"imageUri"`
	Price       *string `json:"price"`
}

// BuyParams are the inputs of a buy-now transaction.
type BuyParams struct {
	Mint      string
	Buyer     string
	Blockhash string
}

// OfferParams are the inputs of a bid (offer) transaction.
type OfferParams struct {
	Mint      string
	Owner     string
	Lamports  uint64
	Blockhash string
}

type txResponse struct {
	Tx string `json:"tx"`
}

// Client talks to the marketplace REST API.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
	metrics    *metrics.Metrics
	logger     *slog.Logger
}

// NewClient creates a marketplace API client.
// If httpClient is nil a client with a 30s timeout is used. Metrics may be nil.
func NewClient(baseURL, apiKey string, httpClient *http.Client, m *metrics.Metrics, logger *slog.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: httpClient,
		metrics:    m,
		logger:     logger,
	}
}

// FetchAsset returns the marketplace record for id, or nil if the marketplace
// does not know it.
func (c *Client) FetchAsset(ctx context.Context, id string) (*AssetRecord, error) {
	if id == "" {
		return nil, fmt.Errorf("asset id is required")
	}

	var record *AssetRecord
	found, err := c.get(ctx, "fetch_asset", "/api/v1/mint", url.Values{"mint": {id}}, &record)
	if err != nil {
		return nil, err
	}
	if !found || record == nil || record.Mint == "" {
		c.logger.DebugContext(ctx, "asset not found on marketplace", "id", id)
		return nil, nil
	}
	return record, nil
}

// BuyTransaction asks the marketplace for an unsigned buy-now transaction.
// An empty string means the marketplace returned no transaction.
func (c *Client) BuyTransaction(ctx context.Context, params BuyParams) (string, error) {
	var resp txResponse
	_, err := c.get(ctx, "buy_tx", "/api/v1/tx/buy", url.Values{
		"mint":      {params.Mint},
		"buyer":     {params.Buyer},
		"blockhash": {params.Blockhash},
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Tx, nil
}

// OfferTransaction asks the marketplace for an unsigned bid transaction.
// An empty string means the marketplace returned no transaction.
func (c *Client) OfferTransaction(ctx context.Context, params OfferParams) (string, error) {
	var resp txResponse
	_, err := c.get(ctx, "offer_tx", "/api/v1/tx/bid", url.Values{
		"mint":      {params.Mint},
		"owner":     {params.Owner},
		"price":     {fmt.Sprintf("%d", params.Lamports)},
		"blockhash": {params.Blockhash},
	}, &resp)
	if err != nil {
		return "", err
	}
	return resp.Tx, nil
}

// get performs a GET and decodes a JSON body into out.
// found is false for 404 responses; any other non-2xx status is an error.
func (c *Client) get(ctx context.Context, operation, path string, query url.Values, out any) (found bool, err error) {
	start := time.Now()
	defer func() {
		if c.metrics == nil {
			return
		}
		status := "success"
		switch {
		case err != nil:
			status = "error"
		case !found:
			status = "not_found"
		}
		c.metrics.RecordMarketplaceCall(operation, status, time.Since(start).Seconds())
	}()

	u := c.baseURL + path + "?" + query.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set(apiKeyHeader, c.apiKey)
	}

	c.logger.DebugContext(ctx, "calling marketplace API", "operation", operation, "path", path)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return false, fmt.Errorf("%s request failed: %w", operation, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return false, nil
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodySize))
	if err != nil {
		return false, fmt.Errorf("%s: failed to read response: %w", operation, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return false, &APIError{Operation: operation, StatusCode: resp.StatusCode, Body: truncate(string(body), 256)}
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		return false, nil
	}

	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("%s: failed to decode response: %w", operation, err)
	}

	return true, nil
}

// APIError is returned for non-2xx marketplace responses other than 404.
type APIError struct {
	Operation  string
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("marketplace %s returned status %d: %s", e.Operation, e.StatusCode, e.Body)
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
