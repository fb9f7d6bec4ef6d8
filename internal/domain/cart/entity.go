// internal/domain/cart/entity.go
package cart

import (
	"errors"
	"sort"
	"strings"
)

var (
	ErrInvalidProductID = errors.New("cart: invalid product id")
	ErrInvalidUnitPrice = errors.New("cart: invalid unit price")
	ErrInvalidQuantity  = errors.New("cart: invalid quantity")
)

// Line represents one line item in a cart.
// Uniqueness within a cart is defined by ProductID.
type Line struct {
	ProductID   string `json:"productId" firestore:"productId"`
	DisplayName string `json:"displayName" firestore:"displayName"`

	// UnitPrice is in JPY.
	UnitPrice int `json:"unitPrice" firestore:"unitPrice"`

	Qty int `json:"qty" firestore:"qty"`

	// KnownStock is an optional best-effort stock reading for this product.
	// It is a hint, never authoritative; nil means "never observed".
	KnownStock *int `json:"knownStock,omitempty" firestore:"knownStock,omitempty"`

	ImageRef string `json:"imageRef,omitempty" firestore:"imageRef,omitempty"`
}

// NewLine builds a validated line with quantity 1.
func NewLine(productID, displayName string, unitPrice int, imageRef string) (Line, error) {
	l := Line{
		ProductID:   strings.TrimSpace(productID),
		DisplayName: strings.TrimSpace(displayName),
		UnitPrice:   unitPrice,
		Qty:         1,
		ImageRef:    strings.TrimSpace(imageRef),
	}
	if err := l.Validate(); err != nil {
		return Line{}, err
	}
	return l, nil
}

func (l Line) Validate() error {
	if strings.TrimSpace(l.ProductID) == "" {
		return ErrInvalidProductID
	}
	if l.UnitPrice < 0 {
		return ErrInvalidUnitPrice
	}
	if l.Qty < 1 {
		return ErrInvalidQuantity
	}
	if l.KnownStock != nil && *l.KnownStock < 0 {
		return ErrInvalidQuantity
	}
	return nil
}

func (l Line) Subtotal() int {
	return l.UnitPrice * l.Qty
}

// Normalize merges duplicate product ids (qty summed, first metadata wins),
// drops lines with qty <= 0 or empty product id, and applies a stable order.
// A cart never holds two lines for the same product and never a zero line.
func Normalize(src []Line) []Line {
	m := map[string]Line{}
	for _, l := range src {
		pid := strings.TrimSpace(l.ProductID)
		if pid == "" || l.Qty <= 0 {
			continue
		}
		l.ProductID = pid

		if exist, ok := m[pid]; ok {
			exist.Qty += l.Qty
			if strings.TrimSpace(exist.DisplayName) == "" {
				exist.DisplayName = l.DisplayName
			}
			if exist.ImageRef == "" {
				exist.ImageRef = l.ImageRef
			}
			if exist.KnownStock == nil {
				exist.KnownStock = l.KnownStock
			}
			m[pid] = exist
		} else {
			m[pid] = l
		}
	}

	out := make([]Line, 0, len(m))
	for _, l := range m {
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}

// Clone returns a deep copy (KnownStock pointers included) so snapshots
// handed to observers cannot alias engine state.
func Clone(src []Line) []Line {
	out := make([]Line, 0, len(src))
	for _, l := range src {
		if l.KnownStock != nil {
			ks := *l.KnownStock
			l.KnownStock = &ks
		}
		out = append(out, l)
	}
	return out
}

// Equal reports content equality of two normalized line sets.
func Equal(a, b []Line) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i].ProductID != b[i].ProductID ||
			a[i].DisplayName != b[i].DisplayName ||
			a[i].UnitPrice != b[i].UnitPrice ||
			a[i].Qty != b[i].Qty ||
			a[i].ImageRef != b[i].ImageRef {
			return false
		}
		ka, kb := a[i].KnownStock, b[i].KnownStock
		if (ka == nil) != (kb == nil) {
			return false
		}
		if ka != nil && *ka != *kb {
			return false
		}
	}
	return true
}

// Find returns the index of productID in lines, or -1.
func Find(lines []Line, productID string) int {
	for i := range lines {
		if lines[i].ProductID == productID {
			return i
		}
	}
	return -1
}

// Remove deletes the line at idx, preserving order.
func Remove(lines []Line, idx int) []Line {
	if idx < 0 || idx >= len(lines) {
		return lines
	}
	return append(lines[:idx], lines[idx+1:]...)
}

// Total is the cart total in JPY.
func Total(lines []Line) int {
	sum := 0
	for _, l := range lines {
		sum += l.Subtotal()
	}
	return sum
}

// Count is the number of units across all lines (badge count).
func Count(lines []Line) int {
	n := 0
	for _, l := range lines {
		n += l.Qty
	}
	return n
}
