package services

import (
	"context"
	"fmt"

	"review-insights/classifier"
	"review-insights/config"
	"review-insights/metrics"
	"review-insights/models"
	"review-insights/utils"
)

// Pipeline runs the four stages in order: load, classify, then the category
// ranking and the tail-risk analysis over the classified reviews.
type Pipeline struct {
	loader     *Loader
	normalizer *Normalizer
	sentiment  *SentimentService
	aggregator *Aggregator
	tailRisk   *TailRiskAnalyzer
	logger     *utils.Logger
	metrics    *metrics.Recorder
}

// NewPipeline wires every stage from cfg around the given classifier.
func NewPipeline(cfg *config.Config, clf classifier.Classifier, logger *utils.Logger, rec *metrics.Recorder) *Pipeline {
	return &Pipeline{
		loader:     NewLoader(cfg.InputSheet, logger),
		normalizer: NewNormalizer(logger),
		sentiment:  NewSentimentService(clf, cfg.Classifier.BatchSize, logger, rec),
		aggregator: NewAggregator(cfg.Analysis.TopPerCategory, logger),
		tailRisk:   NewTailRiskAnalyzer(cfg.Analysis.TailPercentile, cfg.Analysis.TopComplaintWords, logger),
		logger:     logger,
		metrics:    rec,
	}
}

// Run executes the pipeline on the spreadsheet at path. Nothing is written;
// the caller persists the returned report.
func (p *Pipeline) Run(ctx context.Context, path string) (*models.Report, error) {
	raw, err := p.loader.Load(path)
	if err != nil {
		return nil, err
	}

	reviews := p.normalizer.Normalize(raw)
	p.metrics.ObserveLoad(len(raw), len(raw)-len(reviews))
	if len(reviews) == 0 {
		return nil, fmt.Errorf("%w: %s has no rows with review text", ErrBadInput, path)
	}

	batches, err := p.sentiment.Annotate(ctx, reviews)
	if err != nil {
		return nil, err
	}

	p.logger.Info("[pipeline] Identifying best sellers across categories")
	bestsellers := p.aggregator.Rank(reviews)

	p.logger.Info("[pipeline] Analysing least-reviewed products")
	threshold, tail, err := p.tailRisk.Analyze(reviews)
	if err != nil {
		return nil, err
	}

	report := &models.Report{
		Reviews:     reviews,
		Bestsellers: bestsellers,
		TailRisk:    tail,
		Threshold:   threshold,
		Stats:       summarise(reviews, len(raw), batches),
	}
	p.metrics.ObserveReport(report)
	return report, nil
}

func summarise(reviews []*models.Review, read, batches int) models.RunStats {
	stats := models.RunStats{
		RowsRead:    read,
		RowsDropped: read - len(reviews),
		Batches:     batches,
	}
	tags := utils.NewOrderedSet()
	products := utils.NewOrderedSet()
	for _, r := range reviews {
		switch r.Sentiment {
		case models.SentimentPositive:
			stats.PositiveCount++
		case models.SentimentNegative:
			stats.NegativeCount++
		}
		for _, t := range r.Tags {
			tags.Add(t)
		}
		if r.Product != "" {
			products.Add(r.Product)
		}
	}
	stats.DistinctTags = tags.Size()
	stats.DistinctItems = products.Size()
	return stats
}
