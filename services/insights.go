package services

import (
	"fmt"
	"io"
	"os"
	"strings"

	"review-insights/models"
)

// InsightService renders a console summary of a finished run.
type InsightService struct {
	out io.Writer
}

// NewInsightService creates an InsightService printing to stdout.
func NewInsightService() *InsightService {
	return &InsightService{out: os.Stdout}
}

// Print writes the summary. The layout is for humans and may change.
func (s *InsightService) Print(r *models.Report) {
	w := s.out
	sep := strings.Repeat("═", 60)
	thin := strings.Repeat("─", 60)

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n", sep)
	fmt.Fprintf(w, "\033[1;35m  📊 PRODUCT REVIEW INSIGHTS\033[0m\n")
	fmt.Fprintf(w, "\033[1;35m%s\033[0m\n\n", sep)

	st := r.Stats
	fmt.Fprintf(w, "\033[1;33m  Overview\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	fmt.Fprintf(w, "  Rows read             : \033[1m%d\033[0m\n", st.RowsRead)
	fmt.Fprintf(w, "  Reviews analysed      : \033[1m%d\033[0m (dropped %d without text)\n",
		len(r.Reviews), st.RowsDropped)
	fmt.Fprintf(w, "  Products / categories : \033[1m%d\033[0m / \033[1m%d\033[0m\n",
		st.DistinctItems, st.DistinctTags)
	fmt.Fprintf(w, "  Classifier batches    : \033[1m%d\033[0m\n", st.Batches)
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Sentiment\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if total := st.PositiveCount + st.NegativeCount; total > 0 {
		fmt.Fprintf(w, "  Positive : \033[1;32m%d\033[0m (%.1f%%)\n",
			st.PositiveCount, 100*float64(st.PositiveCount)/float64(total))
		fmt.Fprintf(w, "  Negative : \033[1;31m%d\033[0m (%.1f%%)\n",
			st.NegativeCount, 100*float64(st.NegativeCount)/float64(total))
	} else {
		fmt.Fprintf(w, "  No classified reviews\n")
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Best Sellers by Category\033[0m\n")
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.Bestsellers) == 0 {
		fmt.Fprintf(w, "  No categorised reviews\n")
	}
	for i, b := range r.Bestsellers {
		if i == 0 || b.Category != r.Bestsellers[i-1].Category {
			fmt.Fprintf(w, "  \033[1m%s\033[0m\n", truncate(b.Category, 50))
		}
		rating := "  n/a"
		if b.HasAvgRating() {
			rating = fmt.Sprintf("%.2f ★", b.AvgRating)
		}
		fmt.Fprintf(w, "    %-36s %5d reviews  %s  %3.0f%% positive\n",
			truncate(b.Product, 34), b.ReviewCount, rating, 100*b.PositiveRatio)
	}
	fmt.Fprintln(w)

	fmt.Fprintf(w, "\033[1;33m  Least-Reviewed Products (≤ %g reviews)\033[0m\n", r.Threshold)
	fmt.Fprintf(w, "  %s\n", thin)
	if len(r.TailRisk) == 0 {
		fmt.Fprintf(w, "  No products flagged\n")
	}
	for _, e := range r.TailRisk {
		fmt.Fprintf(w, "  \033[1m%s\033[0m  (%d reviews, \033[1;31m%.1f%%\033[0m negative)\n",
			truncate(e.Product, 40), e.TotalReviews, 100*e.NegativeRatio)
		if len(e.TopComplaints) > 0 {
			fmt.Fprintf(w, "    complaints: %s\n", strings.Join(e.TopComplaints, ", "))
		}
		for _, a := range e.SuggestedActions {
			fmt.Fprintf(w, "    → %s\n", a)
		}
	}

	fmt.Fprintf(w, "\n\033[1;35m%s\033[0m\n\n", sep)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-3]) + "..."
}
