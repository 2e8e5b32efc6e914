package services

import (
	"context"
	"fmt"
	"time"

	"review-insights/classifier"
	"review-insights/metrics"
	"review-insights/models"
	"review-insights/utils"
)

// DefaultBatchSize is the number of texts sent to the classifier per call.
const DefaultBatchSize = 64

// SentimentService labels reviews by calling the classifier in fixed-size,
// consecutive batches.
type SentimentService struct {
	clf       classifier.Classifier
	batchSize int
	logger    *utils.Logger
	metrics   *metrics.Recorder
}

// NewSentimentService creates a SentimentService. A non-positive batchSize
// falls back to DefaultBatchSize.
func NewSentimentService(clf classifier.Classifier, batchSize int, logger *utils.Logger, rec *metrics.Recorder) *SentimentService {
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}
	return &SentimentService{clf: clf, batchSize: batchSize, logger: logger, metrics: rec}
}

// Annotate sets Sentiment and Confidence on every review in place and returns
// the number of batches used. Batch i covers reviews[i*B : i*B+B]; outputs are
// mapped back 1:1 in order. Any classifier error or contract violation aborts
// the whole run and wraps ErrInference.
func (s *SentimentService) Annotate(ctx context.Context, reviews []*models.Review) (int, error) {
	total := (len(reviews) + s.batchSize - 1) / s.batchSize
	s.logger.Info("[sentiment] Classifying %d reviews in %d batches of %d",
		len(reviews), total, s.batchSize)

	batches := 0
	for start := 0; start < len(reviews); start += s.batchSize {
		if err := ctx.Err(); err != nil {
			return batches, fmt.Errorf("sentiment: interrupted before batch %d: %w", batches+1, err)
		}

		end := min(start+s.batchSize, len(reviews))
		batch := reviews[start:end]
		texts := make([]string, len(batch))
		for i, r := range batch {
			texts[i] = r.Text
		}

		began := time.Now()
		preds, err := s.clf.Classify(ctx, texts)
		s.metrics.ObserveBatch(time.Since(began))
		batches++
		if err != nil {
			return batches, fmt.Errorf("%w: sentiment: batch %d/%d (rows %d-%d): %v",
				ErrInference, batches, total, start, end-1, err)
		}
		if err := checkPredictions(preds, len(batch)); err != nil {
			return batches, fmt.Errorf("%w: sentiment: batch %d/%d: %v", ErrInference, batches, total, err)
		}

		for i, p := range preds {
			batch[i].Sentiment = p.Label
			batch[i].Confidence = p.Score
			batch[i].Classified = true
			s.metrics.ObserveLabel(p.Label)
		}
		s.logger.Debug("[sentiment] Batch %d/%d done in %v", batches, total, time.Since(began))
	}

	s.logger.Info("[sentiment] Classification complete (%d batches)", batches)
	return batches, nil
}

func checkPredictions(preds []models.Prediction, want int) error {
	if len(preds) != want {
		return fmt.Errorf("classifier returned %d predictions for %d texts", len(preds), want)
	}
	for i, p := range preds {
		if !p.Label.Valid() {
			return fmt.Errorf("prediction %d: unknown label %q", i, p.Label)
		}
		if !(p.Score >= 0 && p.Score <= 1) {
			return fmt.Errorf("prediction %d: confidence %v outside [0,1]", i, p.Score)
		}
	}
	return nil
}
