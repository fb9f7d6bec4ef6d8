// internal/domain/stock/oracle_port.go
package stock

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrUnavailable means the oracle could not answer in time.
	// Callers take the conservative branch (reject the increase).
	ErrUnavailable = errors.New("stock: unavailable")

	ErrNotFound = errors.New("stock: product not found")
)

// Oracle answers "how many units of productID are available right now".
// Latency-unbounded in theory; callers always attach a short hard timeout.
type Oracle interface {
	Quantity(ctx context.Context, productID string) (int, error)
}

// Snapshot is a cached best-effort oracle reading for one product.
// It is a hint, never authoritative.
type Snapshot struct {
	Quantity  int
	FetchedAt time.Time
}
