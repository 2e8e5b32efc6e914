package services

import (
	"regexp"
	"sort"
	"strings"

	"review-insights/models"
	"review-insights/utils"
)

// DefaultTopPerCategory is how many products are kept per category tag.
const DefaultTopPerCategory = 5

// categorySplit matches runs of the accepted category delimiters.
var categorySplit = regexp.MustCompile(`[|,;/]+`)

// SplitCategories lowercases a raw multi-valued category field and splits it
// into a set of tags, in first-seen order. Blank fragments are dropped, so a
// blank field yields no tags.
func SplitCategories(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	set := utils.NewOrderedSet()
	for _, part := range categorySplit.Split(strings.ToLower(raw), -1) {
		if tag := normaliseText(part); tag != "" {
			set.Add(tag)
		}
	}
	return set.Values()
}

type groupKey struct {
	category string
	product  string
}

type groupAcc struct {
	count     int
	positives int
	rated     int
	ratingSum float64
}

// Aggregator ranks products by review volume within each category tag.
type Aggregator struct {
	topN   int
	logger *utils.Logger
}

// NewAggregator creates an Aggregator keeping topN products per tag.
func NewAggregator(topN int, logger *utils.Logger) *Aggregator {
	if topN <= 0 {
		topN = DefaultTopPerCategory
	}
	return &Aggregator{topN: topN, logger: logger}
}

// Rank explodes reviews across their tags, groups by (tag, product) and keeps
// the topN most-reviewed products of every tag. Rows are ordered by tag, then
// review count descending, then product name.
func (a *Aggregator) Rank(reviews []*models.Review) []models.CategoryAggregate {
	groups := make(map[groupKey]*groupAcc)
	for _, r := range reviews {
		if r.Product == "" {
			continue
		}
		for _, tag := range r.Tags {
			key := groupKey{category: tag, product: r.Product}
			acc, ok := groups[key]
			if !ok {
				acc = &groupAcc{}
				groups[key] = acc
			}
			acc.count++
			if r.Sentiment == models.SentimentPositive {
				acc.positives++
			}
			if r.HasRating {
				acc.rated++
				acc.ratingSum += r.Rating
			}
		}
	}

	all := make([]models.CategoryAggregate, 0, len(groups))
	for key, acc := range groups {
		agg := models.CategoryAggregate{
			Category:      key.category,
			Product:       key.product,
			ReviewCount:   acc.count,
			RatedCount:    acc.rated,
			PositiveRatio: float64(acc.positives) / float64(acc.count),
		}
		if acc.rated > 0 {
			agg.AvgRating = acc.ratingSum / float64(acc.rated)
		}
		all = append(all, agg)
	}

	sort.Slice(all, func(i, j int) bool {
		if all[i].Category != all[j].Category {
			return all[i].Category < all[j].Category
		}
		if all[i].ReviewCount != all[j].ReviewCount {
			return all[i].ReviewCount > all[j].ReviewCount
		}
		return all[i].Product < all[j].Product
	})

	out := make([]models.CategoryAggregate, 0, len(all))
	tags := 0
	kept := 0
	for i, agg := range all {
		if i == 0 || agg.Category != all[i-1].Category {
			tags++
			kept = 0
		}
		if kept < a.topN {
			out = append(out, agg)
			kept++
		}
	}

	a.logger.Info("[aggregator] %d (category, product) groups across %d tags → %d bestseller rows",
		len(all), tags, len(out))
	return out
}
