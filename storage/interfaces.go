package storage

import "review-insights/models"

// Output file names written by CSVWriter.
const (
	SentimentResultsFile = "sentiment_results_ml.csv"
	BestsellersFile      = "bestselling_by_category_ml.csv"
	TailRiskFile         = "least_selling_analysis_ml.csv"
)

// ReportWriter is the interface any report sink must satisfy.
type ReportWriter interface {
	WriteReport(report *models.Report) error
	Close() error
}
