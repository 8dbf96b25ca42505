package models

import "github.com/shopspring/decimal"

// CartItem is a cart entry with a snapshot of the component taken when it was added
type CartItem struct {
	ID             string          `json:"id"`
	Name           string          `json:"name"`
	Price          decimal.Decimal `json:"price"`
	Quantity       int             `json:"quantity"`
	Image          string          `json:"image,omitempty"`
	Category       Category        `json:"category,omitempty"`
	Specifications Specifications  `json:"specifications,omitempty"`
}

// CartResponse represents a cart with its derived totals
type CartResponse struct {
	Items     []CartItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"itemCount"`
}
