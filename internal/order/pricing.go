package order

import "math"

const (
	taxRate               = 0.15
	freeShippingThreshold = 100.0
	flatShippingFee       = 10.0
)

type Totals struct {
	ItemsPrice    float64
	TaxPrice      float64
	ShippingPrice float64
	TotalPrice    float64
}

// ComputeTotals derives every money field from the line items. Totals are
// never taken from the client; the orchestrator calls this before each
// persistence of changed items.
func ComputeTotals(items []OrderItem) Totals {
	var itemsPrice float64
	for _, item := range items {
		itemsPrice += item.Price * float64(item.Quantity)
	}
	itemsPrice = round2(itemsPrice)

	taxPrice := round2(itemsPrice * taxRate)

	shippingPrice := flatShippingFee
	if itemsPrice > freeShippingThreshold {
		shippingPrice = 0
	}

	return Totals{
		ItemsPrice:    itemsPrice,
		TaxPrice:      taxPrice,
		ShippingPrice: shippingPrice,
		TotalPrice:    round2(itemsPrice + taxPrice + shippingPrice),
	}
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
