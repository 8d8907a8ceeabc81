// Package pricing computes the monetary fields of an order.
// All amounts are exact decimals; rounding happens once, on tax, to cents.
package pricing

import "github.com/shopspring/decimal"

// 金額の小数点以下の桁数
const MoneyPlaces int32 = 2

var (
	TaxRate               = decimal.RequireFromString("0.085")
	FreeShippingThreshold = decimal.NewFromInt(50)
	FlatShipping          = decimal.RequireFromString("5.99")

	loyaltyDivisor = decimal.NewFromInt(10)
)

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int64
}

type Totals struct {
	Subtotal decimal.Decimal
	Tax      decimal.Decimal
	Shipping decimal.Decimal
	Total    decimal.Decimal
}

// Compute: total = subtotal + tax + shipping
func Compute(lines []Line) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(l.Quantity)))
	}
	subtotal = subtotal.Round(MoneyPlaces)

	// 四捨五入（0から遠い方）
	tax := subtotal.Mul(TaxRate).Round(MoneyPlaces)

	shipping := FlatShipping
	if subtotal.GreaterThanOrEqual(FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	return Totals{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Total:    subtotal.Add(tax).Add(shipping),
	}
}

// LoyaltyPoints: 10ドルごとに1ポイント
func LoyaltyPoints(total decimal.Decimal) int64 {
	if total.IsNegative() {
		return 0
	}
	return total.Div(loyaltyDivisor).Floor().IntPart()
}
