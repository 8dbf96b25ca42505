package pricing

import (
	"sort"

	"github.com/SigNoz/pcparts-store/internal/models"
	"github.com/shopspring/decimal"
)

// NoPricesMessage is shown when no offer could be obtained
const NoPricesMessage = "No prices available"

// RankedOffer is an offer with its total cost and best-price marker
type RankedOffer struct {
	models.PriceOffer
	Total     decimal.Decimal `json:"total"`
	BestPrice bool            `json:"bestPrice"`
}

// Comparison is the ranked view of a component's offers
type Comparison struct {
	ComponentID string          `json:"componentId"`
	Available   bool            `json:"available"`
	Message     string          `json:"message,omitempty"`
	Offers      []RankedOffer   `json:"offers"`
	LowestTotal decimal.Decimal `json:"lowestTotal"`
}

// Unavailable is the comparison reported when the service failed or had nothing
func Unavailable(componentID string) Comparison {
	return Comparison{
		ComponentID: componentID,
		Message:     NoPricesMessage,
		Offers:      []RankedOffer{},
	}
}

// Compare sorts offers by price plus shipping and marks the cheapest one as best.
// Ties keep the service's order, so the first of equal offers wins.
func Compare(componentID string, offers []models.PriceOffer) Comparison {
	if len(offers) == 0 {
		return Unavailable(componentID)
	}

	ranked := make([]RankedOffer, len(offers))
	for i, o := range offers {
		ranked[i] = RankedOffer{PriceOffer: o, Total: o.Total()}
	}
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Total.LessThan(ranked[j].Total)
	})
	ranked[0].BestPrice = true

	return Comparison{
		ComponentID: componentID,
		Available:   true,
		Offers:      ranked,
		LowestTotal: ranked[0].Total,
	}
}
