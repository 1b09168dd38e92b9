package types

import "github.com/shopspring/decimal"

// LineSnapshot is denormalized display data for a cart line. It is never used for pricing.
type LineSnapshot struct {
	Title    string `json:"title"`
	Author   string `json:"author,omitempty"`
	Format   string `json:"format,omitempty"`
	Category string `json:"category,omitempty"`
}

// CartItem is one line of the remote cart.
type CartItem struct {
	BookID    string          `json:"bookId"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	Quantity  int             `json:"quantity"`
	Snapshot  LineSnapshot    `json:"snapshot"`
}

// Cart is the server-held cart with its server-computed aggregates.
type Cart struct {
	Items          []CartItem      `json:"items"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	Discount       decimal.Decimal `json:"discount"`
	DeliveryCharge decimal.Decimal `json:"deliveryCharge"`
	FinalTotal     decimal.Decimal `json:"finalTotal"`
	TotalItemCount int             `json:"totalItemCount"`
}

// IsEmpty reports whether the cart has no lines.
func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Item returns the line for bookID.
func (c Cart) Item(bookID string) (CartItem, bool) {
	for _, item := range c.Items {
		if item.BookID == bookID {
			return item, true
		}
	}
	return CartItem{}, false
}

// Clone returns a deep copy of the cart.
func (c Cart) Clone() Cart {
	out := c
	if c.Items != nil {
		out.Items = make([]CartItem, len(c.Items))
		copy(out.Items, c.Items)
	}
	return out
}
