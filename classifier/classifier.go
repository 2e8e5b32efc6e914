// Package classifier defines the sentiment capability the pipeline depends on.
package classifier

import (
	"context"

	"review-insights/models"
)

// Classifier scores a batch of texts. Implementations return exactly one
// prediction per input text, in input order, and own any truncation of long
// texts.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]models.Prediction, error)
	Close() error
}
