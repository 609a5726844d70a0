// Package pricing computes order totals from line item snapshots.
package pricing

import (
	"github.com/SaugatGautam100/plexify/internal/domain"
	"github.com/shopspring/decimal"
)

// Policy holds the storefront's shipping and tax parameters.
type Policy struct {
	// Orders with a subtotal strictly above the threshold ship for free.
	FreeShippingThreshold decimal.Decimal
	FlatShippingFee       decimal.Decimal
	TaxRate               decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		FreeShippingThreshold: decimal.NewFromInt(50),
		FlatShippingFee:       decimal.NewFromInt(10),
		TaxRate:               decimal.RequireFromString("0.08"),
	}
}

type Totals struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

// Calculate is exact; callers round only for display (see Format).
func (p Policy) Calculate(items []domain.LineItem) Totals {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.Amount())
	}

	shipping := p.FlatShippingFee
	if subtotal.GreaterThan(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}
	tax := subtotal.Mul(p.TaxRate)

	return Totals{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

// Format renders an amount with two decimals, rounding half away from zero.
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(2)
}
