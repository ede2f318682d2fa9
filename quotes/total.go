package quotes

import "github.com/shopspring/decimal"

// Total is the amount displayed for q. In order of preference:
//  1. the cart total computed by the server;
//  2. the sum of the line prices, when every line has one;
//  3. quantity times unit price for each line, the unit price being the promotional
//     price when the product is on promotion.
//
// Zero amounts count as missing, as the server sends 0 for totals it did not compute.
func Total(q *Quote) decimal.Decimal {
	if q == nil || q.Cart == nil {
		return decimal.Zero
	}
	if present(q.Cart.TotalPrice) {
		return *q.Cart.TotalPrice
	}

	items := q.Cart.CartItems
	if len(items) > 0 && allLinesPriced(items) {
		sum := decimal.Zero
		for _, it := range items {
			sum = sum.Add(*it.PriceTtc)
		}
		return sum
	}

	sum := decimal.Zero
	for _, it := range items {
		sum = sum.Add(LineTotal(it))
	}
	return sum
}

// LineTotal is quantity times the applicable unit price, ignoring PriceTtc.
func LineTotal(it CartItem) decimal.Decimal {
	return it.Product.UnitPrice().Mul(decimal.NewFromInt(int64(it.Quantity)))
}

func allLinesPriced(items []CartItem) bool {
	for _, it := range items {
		if !present(it.PriceTtc) {
			return false
		}
	}
	return true
}

func present(d *decimal.Decimal) bool {
	return d != nil && !d.IsZero()
}
