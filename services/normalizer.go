package services

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"

	"review-insights/models"
	"review-insights/utils"
)

// Normalizer turns RawReviews into typed Reviews and drops rows without text.
type Normalizer struct {
	logger *utils.Logger
}

// NewNormalizer creates a Normalizer with the given logger.
func NewNormalizer(logger *utils.Logger) *Normalizer {
	return &Normalizer{logger: logger}
}

// Normalize keeps every row whose review cell is present, in input order.
// Malformed ratings and blank categories are tolerated and left for the
// downstream stages to treat as missing.
func (n *Normalizer) Normalize(raw []*models.RawReview) []*models.Review {
	result := make([]*models.Review, 0, len(raw))
	unrated := 0

	for _, r := range raw {
		if !r.HasReview {
			n.logger.Debug("[normalizer] Dropping row %d: no review text", r.Row)
			continue
		}

		rating, ok := parseRating(r.Rating)
		if !ok {
			unrated++
		}

		result = append(result, &models.Review{
			Product:    normaliseText(r.Product),
			Categories: r.Categories,
			Rating:     rating,
			HasRating:  ok,
			Text:       r.Review,
			Tags:       SplitCategories(r.Categories),
		})
	}

	n.logger.Info("[normalizer] Kept %d → %d reviews (dropped %d without text, %d unrated)",
		len(raw), len(result), len(raw)-len(result), unrated)
	return result
}

// parseRating reads a numeric rating. Blank, non-numeric and NaN values are
// reported as missing.
func parseRating(raw string) (float64, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, false
	}
	val, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(val) || math.IsInf(val, 0) {
		return 0, false
	}
	return val, true
}

// normaliseText applies NFKC, strips leading/trailing whitespace and collapses
// internal whitespace.
func normaliseText(s string) string {
	s = norm.NFKC.String(s)
	fields := strings.FieldsFunc(s, unicode.IsSpace)
	return strings.Join(fields, " ")
}
