package checkout

import (
	"foodkart/internal/model"

	"github.com/shopspring/decimal"
)

// Totals are the amounts of an order.
type Totals struct {
	Subtotal    decimal.Decimal
	DeliveryFee decimal.Decimal
	Tax         decimal.Decimal
	Total       decimal.Decimal
}

// ComputeTotals prices lines for restaurant. Tax is rounded to two decimal
// places; the total is the exact sum of the parts.
func ComputeTotals(lines []model.CartLine, restaurant model.Restaurant, taxRate decimal.Decimal) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.LineTotal())
	}
	tax := subtotal.Mul(taxRate).Round(2)

	return Totals{
		Subtotal:    subtotal,
		DeliveryFee: restaurant.DeliveryFee,
		Tax:         tax,
		Total:       subtotal.Add(restaurant.DeliveryFee).Add(tax),
	}
}
