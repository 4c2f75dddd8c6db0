package orders

import (
	"github.com/shopspring/decimal"

	"github.com/Simplici0/panelpro/internal/pricing"
)

// DeliveryOption selects the flat delivery surcharge.
type DeliveryOption string

const (
	DeliveryPickup    DeliveryOption = "PICKUP"
	DeliveryStandard  DeliveryOption = "DELIVERY"
	DeliveryExpress   DeliveryOption = "EXPRESS"
	DeliveryTransport DeliveryOption = "TRANSPORT"
)

func (o DeliveryOption) Valid() bool {
	switch o {
	case DeliveryPickup, DeliveryStandard, DeliveryExpress, DeliveryTransport:
		return true
	}
	return false
}

// Totals are the order-level amounts. They are computed once and stored.
type Totals struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"deliveryFee"`
	TaxPercent  decimal.Decimal `json:"taxPercent"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"totalPrice"`
}

// DeliveryFee looks up the surcharge for option. Transport is quoted separately
// and counts as zero here.
func DeliveryFee(option DeliveryOption, rates pricing.RateTable) (decimal.Decimal, error) {
	switch option {
	case DeliveryStandard:
		return rates.Get(pricing.KeyDeliveryBase)
	case DeliveryExpress:
		return rates.Get(pricing.KeyDeliveryExpress)
	default:
		return decimal.Zero, nil
	}
}

var hundred = decimal.NewFromInt(100)

// ComputeTotals sums stored part prices, which already include quantity, then
// applies the delivery surcharge and tax.
func ComputeTotals(prices []decimal.Decimal, option DeliveryOption, rates pricing.RateTable, taxPercent decimal.Decimal) (Totals, error) {
	fee, err := DeliveryFee(option, rates)
	if err != nil {
		return Totals{}, err
	}

	t := Totals{
		Subtotal:    decimal.Sum(decimal.Zero, prices...),
		DeliveryFee: fee.Round(2),
		TaxPercent:  taxPercent,
	}
	taxable := t.Subtotal.Add(t.DeliveryFee)
	t.Tax = taxable.Mul(taxPercent).Div(hundred).Round(2)
	t.Total = taxable.Add(t.Tax)
	return t, nil
}
