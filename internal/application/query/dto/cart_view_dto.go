// internal/application/query/dto/cart_view_dto.go
package dto

// CartViewDTO is the response shape for the cart screen.
type CartViewDTO struct {
	Identity string        `json:"identity"`
	Lines    []CartLineDTO `json:"lines"`

	// TotalQty is the badge count (units across all lines).
	TotalQty int `json:"totalQty"`

	// TotalPrice is in JPY.
	TotalPrice int `json:"totalPrice"`
}

type CartLineDTO struct {
	ProductID   string `json:"productId"`
	DisplayName string `json:"displayName"`

	UnitPrice int `json:"unitPrice"` // JPY
	Qty       int `json:"qty"`
	Subtotal  int `json:"subtotal"` // JPY

	// KnownStock is the last observed stock for availability indicators;
	// nil when never observed.
	KnownStock *int `json:"knownStock,omitempty"`

	// OutOfStock is true when the last observed stock was 0.
	OutOfStock bool `json:"outOfStock,omitempty"`

	ImageRef string `json:"imageRef,omitempty"`

	// ImageURL is the resolved (public or signed) URL for ImageRef.
	ImageURL string `json:"imageUrl,omitempty"`
}
