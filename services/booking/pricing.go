package booking

import (
	"math"

	"pawhub/models"
)

// PricingRates are the platform-wide percentages applied on top of the provider's subtotal.
type PricingRates struct {
	PlatformFeeRate float64
	TaxRate         float64
}

// OccurrencePrice computes the price of one occurrence for petCount animals.
func OccurrencePrice(r models.Rates, petCount int) float64 {
	total := r.BaseRate + r.HolidayRate
	if extra := petCount - r.AppliesAfter; extra > 0 && r.AppliesAfter > 0 {
		total += float64(extra) * r.AdditionalAnimalRate
	}
	for _, a := range r.AdditionalRates {
		total += a.Amount
	}
	return total
}

// CalculateCostSummary prices every real occurrence of the booking. The platform fee and taxes
// are charged to the client; the fee is withheld from the provider payout.
func CalculateCostSummary(b *models.Booking, rates PricingRates) models.CostSummary {
	subtotal := 0.0
	for _, o := range b.Occurrences {
		if o.Placeholder {
			continue
		}
		subtotal += OccurrencePrice(o.Rates, len(b.Pets))
	}
	subtotal = roundCents(subtotal)
	fee := roundCents(subtotal * rates.PlatformFeeRate)
	taxes := roundCents(subtotal * rates.TaxRate)
	return models.CostSummary{
		Subtotal:            subtotal,
		PlatformFee:         fee,
		Taxes:               taxes,
		TotalClientCost:     roundCents(subtotal + fee + taxes),
		TotalProviderPayout: roundCents(subtotal - fee),
	}
}

func roundCents(v float64) float64 {
	return math.Round(v*100) / 100
}
