package domain

import "github.com/shopspring/decimal"

// CurrencyPlaces is the precision every stored amount is rounded to.
const CurrencyPlaces = 2

var hundred = decimal.NewFromInt(100)

// RoundMoney rounds half away from zero to CurrencyPlaces.
func RoundMoney(d decimal.Decimal) decimal.Decimal { return d.Round(CurrencyPlaces) }

// Percent returns amount * rate / 100, rounded to currency precision.
func Percent(amount, rate decimal.Decimal) decimal.Decimal {
	return RoundMoney(amount.Mul(rate).Div(hundred))
}
