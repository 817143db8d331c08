package domain

import "github.com/shopspring/decimal"

type Totals struct {
	Subtotal       decimal.Decimal
	TaxAmount      decimal.Decimal
	ServiceCharge  decimal.Decimal
	DeliveryFee    decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
}

// PriceLine snapshots the dish into a line item. Customization prices are
// added once per line, not per unit.
func PriceLine(d Dish, quantity int, customizations []Customization, instructions string) LineItem {
	total := d.Price.Mul(decimal.NewFromInt(int64(quantity)))
	for _, c := range customizations {
		total = total.Add(c.Price)
	}
	return LineItem{
		DishID:              d.ID,
		Name:                d.Name,
		Price:               d.Price,
		Quantity:            quantity,
		Customizations:      append([]Customization(nil), customizations...),
		SpecialInstructions: instructions,
		ItemTotal:           RoundMoney(total),
	}
}

// PriceOrder computes order totals from priced lines. Every component is
// rounded before the total is summed, so the total always reconciles.
func PriceOrder(lines []LineItem, s RestaurantSettings, orderType OrderType) Totals {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.ItemTotal)
	}
	subtotal = RoundMoney(subtotal)

	t := Totals{
		Subtotal:       subtotal,
		TaxAmount:      Percent(subtotal, s.TaxRate),
		ServiceCharge:  Percent(subtotal, s.ServiceChargeRate),
		DeliveryFee:    decimal.Zero,
		DiscountAmount: decimal.Zero,
	}
	if orderType == OrderTypeDelivery {
		t.DeliveryFee = RoundMoney(s.DeliveryFee)
	}
	t.TotalAmount = t.Subtotal.Add(t.TaxAmount).Add(t.ServiceCharge).Add(t.DeliveryFee).Sub(t.DiscountAmount)
	return t
}

func (t Totals) Apply(o *Order) {
	o.Subtotal = t.Subtotal
	o.TaxAmount = t.TaxAmount
	o.ServiceCharge = t.ServiceCharge
	o.DeliveryFee = t.DeliveryFee
	o.DiscountAmount = t.DiscountAmount
	o.TotalAmount = t.TotalAmount
}
