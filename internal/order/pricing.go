package order

import "math"

// EstimatedItemValue is the flat declared value per unit.
const EstimatedItemValue = 10.0

type Pricing struct {
	BasePrice   float64
	PerKgRate   float64
	DistanceFee float64
}

func DefaultPricing() Pricing {
	return Pricing{
		BasePrice:   15.99,
		PerKgRate:   2.50,
		DistanceFee: 5.00,
	}
}

// Price is base + weight*rate + flat distance fee, rounded to cents.
func (p Pricing) Price(totalWeight float64) float64 {
	raw := p.BasePrice + totalWeight*p.PerKgRate + p.DistanceFee
	return math.Round(raw*100) / 100
}
