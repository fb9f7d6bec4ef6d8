// internal/adapters/out/firestore/stock_oracle_fs.go
package firestore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	stockdom "cartsync/internal/domain/stock"
)

// StockOracleFS implements stock.Oracle over the inventories collection.
//
// Collection design:
// - collection: inventories
// - docId: productId
// - fields: quantity (int)
type StockOracleFS struct {
	Client *firestore.Client
}

func NewStockOracleFS(client *firestore.Client) *StockOracleFS {
	return &StockOracleFS{Client: client}
}

func (o *StockOracleFS) Quantity(ctx context.Context, productID string) (int, error) {
	if o == nil || o.Client == nil {
		return 0, errors.New("stock_oracle_fs: firestore client is nil")
	}

	pid := strings.TrimSpace(productID)
	if pid == "" {
		return 0, errors.New("stock_oracle_fs: productID is empty")
	}

	snap, err := o.Client.Collection("inventories").Doc(pid).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return 0, fmt.Errorf("%w: %s", stockdom.ErrNotFound, pid)
		}
		return 0, err
	}

	raw := snap.Data()
	if raw == nil {
		return 0, nil
	}
	qty := asInt(raw["quantity"])
	if qty < 0 {
		qty = 0
	}
	return qty, nil
}
