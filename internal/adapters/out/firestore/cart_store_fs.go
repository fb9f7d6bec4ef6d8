// internal/adapters/out/firestore/cart_store_fs.go
package firestore

import (
	"context"
	"errors"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	cartdom "cartsync/internal/domain/cart"
	iddom "cartsync/internal/domain/identity"
)

// CartStoreFS implements cart.Store using Firestore.
//
// Collection design:
// - collection: carts
// - docId: identity key ("user:<id>", or "guest" for a session-scoped doc)
// - fields: lines(array), updatedAt
type CartStoreFS struct {
	Client *firestore.Client
}

func NewCartStoreFS(client *firestore.Client) *CartStoreFS {
	return &CartStoreFS{Client: client}
}

func (s *CartStoreFS) col() *firestore.CollectionRef {
	return s.Client.Collection("carts")
}

type cartLineDoc struct {
	ProductID   string `firestore:"productId"`
	DisplayName string `firestore:"displayName"`
	UnitPrice   int    `firestore:"unitPrice"`
	Qty         int    `firestore:"qty"`
	ImageRef    string `firestore:"imageRef,omitempty"`
}

type cartDoc struct {
	Lines     []cartLineDoc `firestore:"lines"`
	UpdatedAt time.Time     `firestore:"updatedAt"`
}

// Get returns (nil, nil) if no cart document exists (nil policy).
func (s *CartStoreFS) Get(ctx context.Context, id iddom.Identity) ([]cartdom.Line, error) {
	if s == nil || s.Client == nil {
		return nil, errors.New("cart_store_fs: firestore client is nil")
	}

	snap, err := s.col().Doc(id.Key()).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, nil
		}
		return nil, err
	}

	return linesFromSnapshot(snap), nil
}

// Put overwrites the full document (simple & predictable) and returns the
// canonical stored set. An empty list means "clear" and still writes a doc.
func (s *CartStoreFS) Put(ctx context.Context, id iddom.Identity, lines []cartdom.Line) ([]cartdom.Line, error) {
	if s == nil || s.Client == nil {
		return nil, errors.New("cart_store_fs: firestore client is nil")
	}

	normalized := cartdom.Normalize(lines)

	doc := cartDoc{
		Lines:     make([]cartLineDoc, 0, len(normalized)),
		UpdatedAt: time.Now().UTC(),
	}
	for _, l := range normalized {
		doc.Lines = append(doc.Lines, cartLineDoc{
			ProductID:   l.ProductID,
			DisplayName: l.DisplayName,
			UnitPrice:   l.UnitPrice,
			Qty:         l.Qty,
			ImageRef:    l.ImageRef,
		})
	}

	if _, err := s.col().Doc(id.Key()).Set(ctx, doc); err != nil {
		return nil, err
	}
	return normalized, nil
}

// linesFromSnapshot parses document data by hand. Schema drift (a line map
// missing fields, legacy qty-only entries) must degrade to skipped lines,
// not a decode error.
func linesFromSnapshot(snap *firestore.DocumentSnapshot) []cartdom.Line {
	if snap == nil {
		return nil
	}
	raw := snap.Data()
	if raw == nil {
		return nil
	}

	arr, ok := raw["lines"].([]any)
	if !ok {
		return nil
	}

	out := make([]cartdom.Line, 0, len(arr))
	for _, v := range arr {
		m, ok := v.(map[string]any)
		if !ok {
			continue
		}
		pid := strings.TrimSpace(asString(m["productId"]))
		qty := asInt(m["qty"])
		if pid == "" || qty <= 0 {
			continue
		}
		out = append(out, cartdom.Line{
			ProductID:   pid,
			DisplayName: strings.TrimSpace(asString(m["displayName"])),
			UnitPrice:   asInt(m["unitPrice"]),
			Qty:         qty,
			ImageRef:    strings.TrimSpace(asString(m["imageRef"])),
		})
	}
	return cartdom.Normalize(out)
}

func asString(v any) string {
	if s, ok := v.(string); ok {
		return s
	}
	return ""
}

func asInt(v any) int {
	switch t := v.(type) {
	case int:
		return t
	case int64:
		return int(t)
	case float64:
		return int(t)
	}
	return 0
}
