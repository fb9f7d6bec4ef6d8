// internal/adapters/out/http/stock_oracle_client.go
package httpout

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	stockdom "cartsync/internal/domain/stock"
)

// StockOracleClient implements stock.Oracle against the stock service.
//
// Endpoint:
// - GET {base}/stock/{productId} -> {"quantity": <int>}
//
// The transport timeout here is a safety net; callers always pass a ctx with
// the real (shorter) deadline.
type StockOracleClient struct {
	baseURL string
	client  *http.Client
}

func NewStockOracleClient(baseURL string) *StockOracleClient {
	return &StockOracleClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (c *StockOracleClient) Quantity(ctx context.Context, productID string) (int, error) {
	if c == nil || c.baseURL == "" {
		return 0, fmt.Errorf("stock oracle client is not configured")
	}
	pid := strings.TrimSpace(productID)
	if pid == "" {
		return 0, fmt.Errorf("stock oracle client: productID is empty")
	}

	u := c.baseURL + "/stock/" + url.PathEscape(pid)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", stockdom.ErrUnavailable, err)
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return 0, fmt.Errorf("%w: %s", stockdom.ErrNotFound, pid)
	}
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		return 0, fmt.Errorf("%w: status=%d body=%s", stockdom.ErrUnavailable, res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return 0, fmt.Errorf("%w: decode: %v", stockdom.ErrUnavailable, err)
	}
	if payload.Quantity < 0 {
		payload.Quantity = 0
	}
	return payload.Quantity, nil
}
