package ledger

import (
	"github.com/shopspring/decimal"

	"github.com/accountbook/backend/internal/models"
)

// GrossUnit is (net - discount) * (1 + tax/100).
func GrossUnit(netPrice, discount, tax decimal.Decimal) decimal.Decimal {
	netAfterDiscount := netPrice.Sub(discount)
	return netAfterDiscount.Add(netAfterDiscount.Mul(tax).Div(hundred))
}

// NetFromGross inverts GrossUnit for a given discount and tax rate.
func NetFromGross(gross, discount, tax decimal.Decimal) decimal.Decimal {
	factor := decimal.NewFromInt(1).Add(tax.Div(hundred))
	if factor.IsZero() {
		return discount
	}
	return gross.Div(factor).Add(discount)
}

// LineTotal is the unit gross times the amount.
func LineTotal(price, amount decimal.Decimal) decimal.Decimal {
	return price.Mul(amount)
}

// RecomputePrice sets Price from net price, discount and tax.
func RecomputePrice(p *models.ProductLine) {
	gross := GrossUnit(ParseAmount(p.NetPrice), ParseAmount(p.Discount), ParseAmount(p.Tax))
	p.Price = FormatMoney(gross)
}

// RecomputeNetPrice sets NetPrice from an edited Price.
func RecomputeNetPrice(p *models.ProductLine) {
	net := NetFromGross(ParseAmount(p.Price), ParseAmount(p.Discount), ParseAmount(p.Tax))
	p.NetPrice = FormatMoney(net)
}

// PrepareProduct brings the derived fields up to date right before a compare
// or write. A blank price with a net price is derived first; TotalPrice is
// always recomputed from price and amount.
func PrepareProduct(p *models.ProductLine) {
	if isBlank(p.Price) && !isBlank(p.NetPrice) {
		RecomputePrice(p)
	}
	p.TotalPrice = FormatMoney(LineTotal(ParseAmount(p.Price), ParseAmount(p.Amount)))
}
