// Package checkout derives the order financial summary from the cart.
package checkout

import (
	"fmt"
	"math"

	"labelmart/cart"
)

// Business-rule defaults. Shipping is currently free; tax applies to
// everything including shipping.
const (
	DefaultTaxRate      = 0.15
	DefaultShippingCost = 0.0
)

// Summary carries the order totals at full precision. Rounding happens only
// at display time via the Display method.
type Summary struct {
	Subtotal float64
	Shipping float64
	Tax      float64
	Total    float64
}

// ComputeSummary applies the fixed pricing rules to the current cart state.
// A cart with no items, or a corrupted subtotal, is treated as subtotal 0.
func ComputeSummary(state cart.State, taxRate, shippingCost float64) Summary {
	subtotal := state.Subtotal
	if len(state.Items) == 0 || subtotal < 0 || math.IsNaN(subtotal) {
		subtotal = 0
	}

	shipping := shippingCost
	tax := (subtotal + shipping) * taxRate
	return Summary{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal + shipping + tax,
	}
}

// DisplaySummary is a Summary rendered to 2 decimal places for the UI.
type DisplaySummary struct {
	Subtotal string
	Shipping string
	Tax      string
	Total    string
}

func (s Summary) Display() DisplaySummary {
	return DisplaySummary{
		Subtotal: formatAmount(s.Subtotal),
		Shipping: formatAmount(s.Shipping),
		Tax:      formatAmount(s.Tax),
		Total:    formatAmount(s.Total),
	}
}

func formatAmount(v float64) string {
	return fmt.Sprintf("%.2f", v)
}
