package coupon

import (
	"freshcart/internal/model"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ComputeDiscount returns the amount c takes off subtotal. Percentages round
// half up to the minor unit and respect a nonzero cap; fixed amounts never
// exceed the subtotal. Free delivery coupons discount nothing here because
// the caller waives the delivery fee instead.
func ComputeDiscount(c *model.Coupon, subtotal model.Money) model.Money {
	if subtotal <= 0 {
		return 0
	}

	var discount model.Money
	switch c.DiscountType {
	case model.DiscountPercentage:
		d := decimal.NewFromInt(int64(subtotal)).Mul(c.Value).Div(hundred).Round(0)
		discount = model.Money(d.IntPart())
		if c.MaxDiscountAmount != nil && *c.MaxDiscountAmount > 0 {
			discount = min(discount, *c.MaxDiscountAmount)
		}
	case model.DiscountFixed:
		discount = model.MoneyFromDecimal(c.Value)
	default:
		return 0
	}

	return max(0, min(discount, subtotal))
}
