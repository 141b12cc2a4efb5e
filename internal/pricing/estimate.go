// Package pricing derives a price estimate from marketplace listings.
package pricing

import (
	"math"
	"sort"

	"github.com/JulienRioux/slabbers/internal/model"
)

const iqrFence = 1.5

// Estimate returns an outlier-trimmed mean of the listing prices. Only
// listings in the primary currency (the first non-blank currency seen) or
// with no currency at all are considered.
func Estimate(listings []model.MarketplaceListing) model.PriceEstimate {
	currency := primaryCurrency(listings)

	var prices []float64
	for _, l := range listings {
		if l.Currency != "" && l.Currency != currency {
			continue
		}
		if math.IsNaN(l.Price) || math.IsInf(l.Price, 0) || l.Price <= 0 {
			continue
		}
		prices = append(prices, l.Price)
	}

	est := model.PriceEstimate{ListingsUsed: len(prices)}
	if len(prices) == 0 {
		return est
	}

	sorted := append([]float64(nil), prices...)
	sort.Float64s(sorted)

	value, ok := trimmedMean(sorted)
	if !ok {
		value = Percentile(sorted, 50)
	}
	if !(value > 0) {
		return est
	}

	rounded := math.Round(value*100) / 100
	est.EstimatedPrice = &rounded
	if currency != "" {
		est.Currency = &currency
	}
	return est
}

func primaryCurrency(listings []model.MarketplaceListing) string {
	for _, l := range listings {
		if l.Currency != "" {
			return l.Currency
		}
	}
	return ""
}

// trimmedMean averages the values inside the IQR fences. sorted must be in
// ascending order. ok is false when nothing survives the fences.
func trimmedMean(sorted []float64) (mean float64, ok bool) {
	if len(sorted) == 0 {
		return 0, false
	}
	q1 := Percentile(sorted, 25)
	q3 := Percentile(sorted, 75)
	iqr := q3 - q1
	lower := q1 - iqrFence*iqr
	upper := q3 + iqrFence*iqr

	var sum float64
	var n int
	for _, v := range sorted {
		if v >= lower && v <= upper {
			sum += v
			n++
		}
	}
	if n == 0 {
		return 0, false
	}
	return sum / float64(n), true
}

// Percentile interpolates linearly between the closest ranks of sorted.
// p is in [0, 100].
func Percentile(sorted []float64, p float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := p / 100 * float64(len(sorted)-1)
	lo := int(math.Floor(idx))
	hi := int(math.Ceil(idx))
	if lo == hi {
		return sorted[lo]
	}
	w := idx - float64(lo)
	return sorted[lo]*(1-w) + sorted[hi]*w
}
