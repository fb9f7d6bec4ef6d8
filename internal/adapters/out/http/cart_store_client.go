// internal/adapters/out/http/cart_store_client.go
package httpout

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	cartdom "cartsync/internal/domain/cart"
	iddom "cartsync/internal/domain/identity"
)

// CartStoreClient implements cart.Store against the cart API.
//
// Endpoints:
// - GET {base}/carts/{identityKey}           -> {"lines": [...]}
// - PUT {base}/carts/{identityKey} {"lines"} -> {"lines": [...]} (canonical)
type CartStoreClient struct {
	baseURL string
	client  *http.Client
}

func NewCartStoreClient(baseURL string) *CartStoreClient {
	return &CartStoreClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: 10 * time.Second},
	}
}

type cartPayload struct {
	Lines []cartdom.Line `json:"lines"`
}

func (c *CartStoreClient) cartURL(id iddom.Identity) string {
	return c.baseURL + "/carts/" + url.PathEscape(id.Key())
}

func (c *CartStoreClient) Get(ctx context.Context, id iddom.Identity) ([]cartdom.Line, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("cart store client is not configured")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.cartURL(id), nil)
	if err != nil {
		return nil, err
	}

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		return nil, fmt.Errorf("cart store get failed status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload cartPayload
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return cartdom.Normalize(payload.Lines), nil
}

func (c *CartStoreClient) Put(ctx context.Context, id iddom.Identity, lines []cartdom.Line) ([]cartdom.Line, error) {
	if c == nil || c.baseURL == "" {
		return nil, fmt.Errorf("cart store client is not configured")
	}

	b, _ := json.Marshal(cartPayload{Lines: cartdom.Normalize(lines)})

	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.cartURL(id), bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(res.Body, 1<<20))
		return nil, fmt.Errorf("cart store put failed status=%d body=%s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload cartPayload
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return nil, err
	}
	return cartdom.Normalize(payload.Lines), nil
}
