package horizon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"
)

// Client answers on-chain questions about Stellar transactions. The
// dispatcher treats it as an oracle for the instant a payment was included
// in a ledger.
type Client interface {
	GetTransactionCreatedAt(ctx context.Context, hash string) (time.Time, error)
}

// HTTPClient queries a Horizon instance over its REST API.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient creates a client for the Horizon instance at baseURL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

// GetTransactionCreatedAt fetches the ledger close time of the transaction
// with the given hash.
func (c *HTTPClient) GetTransactionCreatedAt(ctx context.Context, hash string) (time.Time, error) {
	endpoint := fmt.Sprintf("%s/transactions/%s", c.baseURL, url.PathEscape(hash))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return time.Time{}, fmt.Errorf("build horizon request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return time.Time{}, fmt.Errorf("query horizon: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return time.Time{}, fmt.Errorf("horizon returned status %d for transaction %s", resp.StatusCode, hash)
	}

	var body struct {
		CreatedAt time.Time `json:"created_at"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return time.Time{}, fmt.Errorf("decode horizon response: %w", err)
	}
	return body.CreatedAt, nil
}
