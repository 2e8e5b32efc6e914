package services

import (
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"review-insights/models"
	"review-insights/utils"
)

func newTestLogger() *utils.Logger { return utils.NewDiscardLogger() }

// keywordClassifier labels a text NEGATIVE when it contains one of the
// negative keywords. It records the size of every batch it receives.
type keywordClassifier struct {
	negative []string
	batches  []int
	failOn   int
	mutate   func([]models.Prediction) []models.Prediction
}

func newKeywordClassifier() *keywordClassifier {
	return &keywordClassifier{negative: []string{"bad", "broken", "expensive", "awful", "defective"}}
}

func (k *keywordClassifier) Classify(_ context.Context, texts []string) ([]models.Prediction, error) {
	k.batches = append(k.batches, len(texts))
	if k.failOn > 0 && len(k.batches) == k.failOn {
		return nil, errors.New("model exploded")
	}
	out := make([]models.Prediction, len(texts))
	for i, t := range texts {
		out[i] = models.Prediction{Label: models.SentimentPositive, Score: 0.9}
		lower := strings.ToLower(t)
		for _, w := range k.negative {
			if strings.Contains(lower, w) {
				out[i] = models.Prediction{Label: models.SentimentNegative, Score: 0.8}
				break
			}
		}
	}
	if k.mutate != nil {
		out = k.mutate(out)
	}
	return out, nil
}

func (k *keywordClassifier) Close() error { return nil }

// review builds a classified Review the way the normalizer and classifier would.
func review(product, categories, text string, label models.Sentiment) *models.Review {
	return &models.Review{
		Product:    product,
		Categories: categories,
		Text:       text,
		Tags:       SplitCategories(categories),
		Sentiment:  label,
		Confidence: 0.9,
		Classified: true,
	}
}

func rated(r *models.Review, rating float64) *models.Review {
	r.Rating = rating
	r.HasRating = true
	return r
}

func writeCSV(t *testing.T, rows [][]string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "reviews.csv")
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
	return path
}

func equalStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
