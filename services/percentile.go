package services

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Percentile returns the p-quantile (0 ≤ p ≤ 1) of values using linear
// interpolation between closest ranks: rank = p*(n-1), then
// v[floor] + (v[ceil]-v[floor]) * frac(rank). values is not modified.
func Percentile(values []float64, p float64) (float64, error) {
	if len(values) == 0 {
		return 0, errors.New("percentile of empty set")
	}
	if p < 0 || p > 1 || math.IsNaN(p) {
		return 0, fmt.Errorf("percentile %v outside [0,1]", p)
	}

	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	rank := p * float64(len(sorted)-1)
	lo := int(math.Floor(rank))
	hi := int(math.Ceil(rank))
	if lo == hi {
		return sorted[lo], nil
	}
	frac := rank - float64(lo)
	return sorted[lo] + (sorted[hi]-sorted[lo])*frac, nil
}
