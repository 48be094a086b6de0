package booking

import (
	"math"

	"pawhub/models"
)

// Normalize applies the defaulting rules to a booking fetched from the API: a booking always
// has at least one occurrence and a non-negative cost summary.
func Normalize(b *models.Booking) {
	if b == nil {
		return
	}
	b.Occurrences = ensureOccurrences(b.Occurrences)
	b.CostSummary = clampCosts(b.CostSummary)
	if b.Pets == nil {
		b.Pets = []models.Pet{}
	}
}

// NormalizeSnapshot applies the same rules to a message's booking payload.
func NormalizeSnapshot(s *models.BookingSnapshot) {
	if s == nil {
		return
	}
	s.Occurrences = ensureOccurrences(s.Occurrences)
	s.CostSummary = clampCosts(s.CostSummary)
	if s.Pets == nil {
		s.Pets = []models.Pet{}
	}
}

// PlaceholderOccurrence is rendered in place of an empty occurrence list.
func PlaceholderOccurrence() models.Occurrence {
	return models.Occurrence{
		ID:          models.PlaceholderOccurrenceID,
		Placeholder: true,
		Rates: models.Rates{
			AdditionalRates: []models.AdditionalRate{},
		},
	}
}

func ensureOccurrences(in []models.Occurrence) []models.Occurrence {
	if len(in) > 0 {
		return in
	}
	return []models.Occurrence{PlaceholderOccurrence()}
}

func clampCosts(c models.CostSummary) models.CostSummary {
	c.Subtotal = nonNegative(c.Subtotal)
	c.PlatformFee = nonNegative(c.PlatformFee)
	c.Taxes = nonNegative(c.Taxes)
	c.TotalClientCost = nonNegative(c.TotalClientCost)
	c.TotalProviderPayout = nonNegative(c.TotalProviderPayout)
	return c
}

func nonNegative(v float64) float64 {
	if v < 0 || math.IsNaN(v) {
		return 0
	}
	return v
}
