// internal/adapters/out/http/beacon_client.go
package httpout

import (
	"bytes"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	cartdom "cartsync/internal/domain/cart"
)

// BeaconClient is the forced-flush transport: a fire-and-forget POST usable
// at process-teardown time. It never awaits a usable response; the request
// is sent with a short timeout and the result is only logged.
//
// Endpoint:
// - POST {base}/carts/{identityKey}/beacon {"lines": [...]}
type BeaconClient struct {
	baseURL string
	client  *http.Client
}

func NewBeaconClient(baseURL string) *BeaconClient {
	return &BeaconClient{
		baseURL: strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		client:  &http.Client{Timeout: 2 * time.Second},
	}
}

func (c *BeaconClient) Send(identityKey string, lines []cartdom.Line) {
	if c == nil || c.baseURL == "" {
		return
	}
	key := strings.TrimSpace(identityKey)
	if key == "" {
		return
	}

	b, _ := json.Marshal(cartPayload{Lines: cartdom.Normalize(lines)})
	u := c.baseURL + "/carts/" + url.PathEscape(key) + "/beacon"

	req, err := http.NewRequest(http.MethodPost, u, bytes.NewReader(b))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", "application/json")

	res, err := c.client.Do(req)
	if err != nil {
		log.Printf("[beacon_client] send failed identity=%s: %v", key, err)
		return
	}
	// Response content is irrelevant; drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, res.Body)
	_ = res.Body.Close()
}
