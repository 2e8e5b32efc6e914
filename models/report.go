package models

// CategoryAggregate summarises one product within one category tag.
// AvgRating is only meaningful when RatedCount > 0.
type CategoryAggregate struct {
	Category      string
	Product       string
	ReviewCount   int
	AvgRating     float64
	RatedCount    int
	PositiveRatio float64
}

// HasAvgRating reports whether at least one review in the group carried a rating.
func (a CategoryAggregate) HasAvgRating() bool {
	return a.RatedCount > 0
}

// TailRiskEntry describes a product in the bottom review-volume percentile.
type TailRiskEntry struct {
	Product          string
	TotalReviews     int
	NegativeRatio    float64
	TopComplaints    []string
	SuggestedActions []string
}

// RunStats counts what happened to the input rows during one run.
type RunStats struct {
	RowsRead      int
	RowsDropped   int
	Batches       int
	PositiveCount int
	NegativeCount int
	DistinctTags  int
	DistinctItems int
}

// Report is everything one run produces.
type Report struct {
	Reviews     []*Review
	Bestsellers []CategoryAggregate
	TailRisk    []TailRiskEntry
	Threshold   float64
	Stats       RunStats
}
