package models

import "github.com/shopspring/decimal"

// Supplier identifies the shop quoting an offer
type Supplier struct {
	Name    string `json:"name"`
	Website string `json:"website"`
}

// PriceOffer is a supplier's quote for a component, fetched per request and never persisted
type PriceOffer struct {
	Supplier     Supplier        `json:"supplier"`
	Price        decimal.Decimal `json:"price"`
	ShippingCost decimal.Decimal `json:"shippingCost"`
	ShippingDays int             `json:"shippingDays"`
	Stock        int             `json:"stock"`
}

// Total is the price including shipping
func (o PriceOffer) Total() decimal.Decimal {
	return o.Price.Add(o.ShippingCost)
}
