package domain

import "github.com/shopspring/decimal"

var (
	DefaultDeliveryFee = decimal.RequireFromString("2.99")
	DefaultTaxRate     = decimal.RequireFromString("0.10")
)

type PricingConfig struct {
	DeliveryFee decimal.Decimal
	TaxRate     decimal.Decimal
}

func DefaultPricingConfig() PricingConfig {
	return PricingConfig{
		DeliveryFee: DefaultDeliveryFee,
		TaxRate:     DefaultTaxRate,
	}
}

// PriceBreakdown values are exact; round them only when rendering.
type PriceBreakdown struct {
	Subtotal    decimal.Decimal `json:"subtotal"`
	DeliveryFee decimal.Decimal `json:"delivery_fee"`
	Tax         decimal.Decimal `json:"tax"`
	Total       decimal.Decimal `json:"total"`
}

// CalculatePricing derives the breakdown for a set of line items. An empty set
// yields a zero subtotal and a total equal to the delivery fee.
func CalculatePricing(items []CartItem, cfg PricingConfig) PriceBreakdown {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	tax := subtotal.Mul(cfg.TaxRate)

	return PriceBreakdown{
		Subtotal:    subtotal,
		DeliveryFee: cfg.DeliveryFee,
		Tax:         tax,
		Total:       subtotal.Add(cfg.DeliveryFee).Add(tax),
	}
}

func (p PriceBreakdown) Rounded() PriceBreakdown {
	return PriceBreakdown{
		Subtotal:    p.Subtotal.Round(2),
		DeliveryFee: p.DeliveryFee.Round(2),
		Tax:         p.Tax.Round(2),
		Total:       p.Total.Round(2),
	}
}
