// internal/application/query/cart_view_query.go
package query

import (
	"context"
	"errors"
	"log"

	dto "cartsync/internal/application/query/dto"
	usecase "cartsync/internal/application/usecase"
)

var ErrCartViewNotConfigured = errors.New("cart_view_query: engine is nil")

// ImageURLResolver resolves a stored image ref to a browser-usable URL.
// Best effort: resolution failures leave ImageURL empty.
type ImageURLResolver interface {
	ResolveURL(ctx context.Context, imageRef string) (string, error)
}

// CartViewService builds the cart read model served to the UI.
type CartViewService struct {
	engine *usecase.CartEngine
	images ImageURLResolver
}

func NewCartViewService(engine *usecase.CartEngine, images ImageURLResolver) *CartViewService {
	return &CartViewService{engine: engine, images: images}
}

// GetCartView returns the current cart enriched with subtotals and resolved
// image URLs.
func (s *CartViewService) GetCartView(ctx context.Context) (dto.CartViewDTO, error) {
	if s == nil || s.engine == nil {
		return dto.CartViewDTO{}, ErrCartViewNotConfigured
	}

	lines := s.engine.Lines()

	out := dto.CartViewDTO{
		Identity: s.engine.Identity().Key(),
		Lines:    make([]dto.CartLineDTO, 0, len(lines)),
	}

	for _, l := range lines {
		d := dto.CartLineDTO{
			ProductID:   l.ProductID,
			DisplayName: l.DisplayName,
			UnitPrice:   l.UnitPrice,
			Qty:         l.Qty,
			Subtotal:    l.Subtotal(),
			KnownStock:  l.KnownStock,
			OutOfStock:  l.KnownStock != nil && *l.KnownStock == 0,
			ImageRef:    l.ImageRef,
		}

		if s.images != nil && l.ImageRef != "" {
			url, err := s.images.ResolveURL(ctx, l.ImageRef)
			if err != nil {
				log.Printf("[cart_view_query] WARN: image resolve failed ref=%q: %v", l.ImageRef, err)
			} else {
				d.ImageURL = url
			}
		}

		out.Lines = append(out.Lines, d)
		out.TotalQty += l.Qty
		out.TotalPrice += d.Subtotal
	}

	return out, nil
}
