package models

// Sentiment is the polarity label assigned to a review by the classifier.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNegative Sentiment = "NEGATIVE"
)

// Valid reports whether s is one of the two known labels.
func (s Sentiment) Valid() bool {
	return s == SentimentPositive || s == SentimentNegative
}

// RawReview holds the untouched cell values of one input row.
// It is produced by the loader before any cleaning or typing.
type RawReview struct {
	Row        int
	Product    string
	Categories string
	Rating     string
	Review     string
	HasReview  bool
}

// Review is the normalised record that flows through classification and analysis.
type Review struct {
	Product    string
	Categories string
	Rating     float64
	HasRating  bool
	Text       string
	Tags       []string

	Sentiment  Sentiment
	Confidence float64
	Classified bool
}

// Prediction is a single classifier output.
type Prediction struct {
	Label Sentiment
	Score float64
}
