package services

import (
	"fmt"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"review-insights/models"
	"review-insights/utils"
)

const (
	// DefaultTailPercentile selects the bottom review-volume decile.
	DefaultTailPercentile = 0.10
	// DefaultTopComplaintWords caps the complaint word list per product.
	DefaultTopComplaintWords = 10

	// highNegativeRatio is the exclusive lower bound for the quality action.
	highNegativeRatio = 0.4
)

// Suggested remediation actions, in the priority order they are evaluated.
const (
	ActionInvestigateQuality = "Investigate product quality or description accuracy."
	ActionReviewPricing      = "Re-evaluate pricing or offer discounts."
	ActionInspectSupplyChain = "Inspect supply chain & packaging process."
	ActionGatherMoreReviews  = "Gather more reviews for insights; monitor future feedback."
)

var wordPattern = regexp.MustCompile(`[a-zA-Z']+`)

type actionRule struct {
	action  string
	applies func(negativeRatio float64, complaints *utils.OrderedSet) bool
}

var actionRules = []actionRule{
	{
		action: ActionInvestigateQuality,
		applies: func(ratio float64, _ *utils.OrderedSet) bool {
			return ratio > highNegativeRatio
		},
	},
	{
		action: ActionReviewPricing,
		applies: func(_ float64, words *utils.OrderedSet) bool {
			return containsAny(words, "price", "expensive", "costly")
		},
	},
	{
		action: ActionInspectSupplyChain,
		applies: func(_ float64, words *utils.OrderedSet) bool {
			return containsAny(words, "broken", "defective", "damaged")
		},
	},
}

// TailRiskAnalyzer flags under-reviewed products and derives complaint themes
// and remediation actions for each.
type TailRiskAnalyzer struct {
	percentile float64
	topWords   int
	logger     *utils.Logger
}

// NewTailRiskAnalyzer creates an analyzer. Out-of-range arguments fall back to
// the defaults.
func NewTailRiskAnalyzer(percentile float64, topWords int, logger *utils.Logger) *TailRiskAnalyzer {
	if percentile < 0 || percentile > 1 || math.IsNaN(percentile) {
		percentile = DefaultTailPercentile
	}
	if topWords <= 0 {
		topWords = DefaultTopComplaintWords
	}
	return &TailRiskAnalyzer{percentile: percentile, topWords: topWords, logger: logger}
}

// Analyze returns the review-count threshold and one entry per product whose
// count is at or below it, ordered by product name. Review counts are taken
// over all reviews, not per category. Reviews without a product are ignored.
func (a *TailRiskAnalyzer) Analyze(reviews []*models.Review) (float64, []models.TailRiskEntry, error) {
	byProduct := make(map[string][]*models.Review)
	for _, r := range reviews {
		if r.Product == "" {
			continue
		}
		byProduct[r.Product] = append(byProduct[r.Product], r)
	}
	if len(byProduct) == 0 {
		a.logger.Warn("[tailrisk] No products with a name, nothing to analyse")
		return 0, nil, nil
	}

	products := make([]string, 0, len(byProduct))
	counts := make([]float64, 0, len(byProduct))
	for p, rs := range byProduct {
		products = append(products, p)
		counts = append(counts, float64(len(rs)))
	}
	sort.Strings(products)

	threshold, err := Percentile(counts, a.percentile)
	if err != nil {
		return 0, nil, fmt.Errorf("tailrisk: threshold: %w", err)
	}

	var entries []models.TailRiskEntry
	for _, p := range products {
		rs := byProduct[p]
		if float64(len(rs)) > threshold {
			continue
		}
		entries = append(entries, a.analyseProduct(p, rs))
	}

	a.logger.Info("[tailrisk] p%.0f threshold = %g reviews → %d of %d products flagged",
		a.percentile*100, threshold, len(entries), len(products))
	return threshold, entries, nil
}

func (a *TailRiskAnalyzer) analyseProduct(product string, reviews []*models.Review) models.TailRiskEntry {
	var negatives []string
	for _, r := range reviews {
		if r.Sentiment == models.SentimentNegative {
			negatives = append(negatives, r.Text)
		}
	}

	ratio := float64(len(negatives)) / float64(len(reviews))
	complaints := TopWords(negatives, a.topWords)

	return models.TailRiskEntry{
		Product:          product,
		TotalReviews:     len(reviews),
		NegativeRatio:    round3(ratio),
		TopComplaints:    complaints,
		SuggestedActions: SuggestActions(ratio, complaints),
	}
}

// TopWords tokenises texts into lowercase letter/apostrophe words and returns
// the n most frequent. Equal counts keep the order in which the words first
// appeared.
func TopWords(texts []string, n int) []string {
	counts := make(map[string]int)
	order := utils.NewOrderedSet()
	for _, t := range texts {
		for _, w := range wordPattern.FindAllString(strings.ToLower(t), -1) {
			counts[w]++
			order.Add(w)
		}
	}

	words := order.Values()
	sort.SliceStable(words, func(i, j int) bool {
		return counts[words[i]] > counts[words[j]]
	})
	if len(words) > n {
		words = words[:n]
	}
	return words
}

// SuggestActions evaluates every rule in priority order and returns the
// actions that fire, or the default action when none do.
func SuggestActions(negativeRatio float64, complaints []string) []string {
	words := utils.NewOrderedSet()
	for _, w := range complaints {
		words.Add(w)
	}

	var actions []string
	for _, rule := range actionRules {
		if rule.applies(negativeRatio, words) {
			actions = append(actions, rule.action)
		}
	}
	if len(actions) == 0 {
		actions = append(actions, ActionGatherMoreReviews)
	}
	return actions
}

func containsAny(set *utils.OrderedSet, words ...string) bool {
	for _, w := range words {
		if set.Contains(w) {
			return true
		}
	}
	return false
}

// round3 rounds to 3 decimals from the exact binary value, ties to even, so
// 1/16 becomes 0.062 and 3/16 becomes 0.188.
func round3(f float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 3, 64), 64)
	return v
}
