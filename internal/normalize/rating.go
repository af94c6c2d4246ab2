package normalize

import (
	"math"

	"github.com/shopspring/decimal"

	"flex_reviews/internal/domain"
)

const (
	minRating = 0
	maxRating = 10
)

// deriveRating picks the explicit overall rating, else the mean of the
// category values, else 0. The result is clamped to [0,10] and rounded to one
// decimal.
func deriveRating(raw domain.RawReview) float64 {
	if raw.Rating != nil && finite(*raw.Rating) {
		return roundOneDecimal(clamp(*raw.Rating))
	}

	var sum float64
	var n int
	for _, c := range raw.ReviewCategory {
		if !finite(c.CategoryValue) {
			continue
		}
		sum += clamp(c.CategoryValue)
		n++
	}
	if n == 0 {
		return 0
	}
	return roundOneDecimal(sum / float64(n))
}

func normalizeCategories(in []domain.RawCategory) []domain.CategoryRating {
	out := make([]domain.CategoryRating, 0, len(in))
	for _, c := range in {
		v := 0.0
		if finite(c.CategoryValue) {
			v = roundOneDecimal(clamp(c.CategoryValue))
		}
		out = append(out, domain.CategoryRating{Category: c.CategoryName, Rating: v})
	}
	return out
}

// roundOneDecimal rounds half away from zero on the decimal representation,
// so 0.15 becomes 0.2 (scaling the float64 by 10 would give 0.1).
func roundOneDecimal(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(1).Float64()
	return f
}

func clamp(v float64) float64 {
	return math.Max(minRating, math.Min(maxRating, v))
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}
