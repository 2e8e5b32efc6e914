package services

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"review-insights/config"
	"review-insights/metrics"
	"review-insights/models"
)

func testPipeline(clf *keywordClassifier) *Pipeline {
	return NewPipeline(config.Default(), clf, newTestLogger(), metrics.NewRecorder())
}

func TestPipelineRun(t *testing.T) {
	rows := [][]string{{"Product", "Categories", "Rating", "Reviews"}}
	for i := 0; i < 80; i++ {
		rows = append(rows, []string{"Alpha Blocks", "Toys", "5", fmt.Sprintf("great set %d", i)})
	}
	for i := 0; i < 4; i++ {
		rows = append(rows, []string{"Beta Board", "Toys|Games", "2", "too expensive and the box was broken"})
	}
	rows = append(rows, []string{"Beta Board", "Toys|Games", "", "fun enough"})
	rows = append(rows, []string{"Gamma", "Toys", "3", ""})
	path := writeCSV(t, rows)

	clf := newKeywordClassifier()
	report, err := testPipeline(clf).Run(context.Background(), path)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	if len(report.Reviews) != 85 {
		t.Errorf("reviews: got %d, want 85", len(report.Reviews))
	}
	if want := []int{64, 21}; fmt.Sprint(clf.batches) != fmt.Sprint(want) {
		t.Errorf("batches: got %v, want %v", clf.batches, want)
	}
	wantStats := models.RunStats{
		RowsRead: 86, RowsDropped: 1, Batches: 2,
		PositiveCount: 81, NegativeCount: 4,
		DistinctTags: 2, DistinctItems: 2,
	}
	if report.Stats != wantStats {
		t.Errorf("stats: got %+v, want %+v", report.Stats, wantStats)
	}

	type row struct {
		category, product string
		count             int
	}
	var got []row
	for _, b := range report.Bestsellers {
		got = append(got, row{b.Category, b.Product, b.ReviewCount})
	}
	wantRows := []row{{"games", "Beta Board", 5}, {"toys", "Alpha Blocks", 80}, {"toys", "Beta Board", 5}}
	if fmt.Sprint(got) != fmt.Sprint(wantRows) {
		t.Errorf("bestsellers: got %v, want %v", got, wantRows)
	}
	if b := report.Bestsellers[0]; b.AvgRating != 2 || b.RatedCount != 4 || b.PositiveRatio != 0.2 {
		t.Errorf("Beta Board aggregate: %+v", b)
	}

	if report.Threshold != 12.5 {
		t.Errorf("threshold: got %v, want 12.5", report.Threshold)
	}
	if len(report.TailRisk) != 1 {
		t.Fatalf("tail risk: got %+v, want only Beta Board", report.TailRisk)
	}
	e := report.TailRisk[0]
	if e.Product != "Beta Board" || e.TotalReviews != 5 || e.NegativeRatio != 0.8 {
		t.Errorf("tail entry: %+v", e)
	}
	wantActions := []string{ActionInvestigateQuality, ActionReviewPricing, ActionInspectSupplyChain}
	if !equalStrings(e.SuggestedActions, wantActions) {
		t.Errorf("actions: got %q, want %q", e.SuggestedActions, wantActions)
	}
}

func TestPipelineRejectsEmptyDataset(t *testing.T) {
	path := writeCSV(t, [][]string{
		{"product", "categories", "rating", "reviews"},
		{"A", "Toys", "4", ""},
	})
	clf := newKeywordClassifier()
	_, err := testPipeline(clf).Run(context.Background(), path)
	if !errors.Is(err, ErrBadInput) {
		t.Fatalf("got %v, want ErrBadInput", err)
	}
	if len(clf.batches) != 0 {
		t.Error("classifier should not run on an empty dataset")
	}
}

func TestPipelineInferenceFailure(t *testing.T) {
	path := writeCSV(t, [][]string{
		{"product", "categories", "rating", "reviews"},
		{"A", "Toys", "4", "nice"},
	})
	clf := newKeywordClassifier()
	clf.failOn = 1
	if _, err := testPipeline(clf).Run(context.Background(), path); !errors.Is(err, ErrInference) {
		t.Fatalf("got %v, want ErrInference", err)
	}
}

func TestInsightServicePrint(t *testing.T) {
	report := &models.Report{
		Reviews: []*models.Review{review("A", "Toys", "fine", models.SentimentPositive)},
		Bestsellers: []models.CategoryAggregate{
			{Category: "toys", Product: "A", ReviewCount: 1, PositiveRatio: 1},
		},
		TailRisk: []models.TailRiskEntry{{
			Product:          "A",
			TotalReviews:     1,
			TopComplaints:    []string{"flimsy"},
			SuggestedActions: []string{ActionGatherMoreReviews},
		}},
		Threshold: 1,
		Stats:     models.RunStats{RowsRead: 1, PositiveCount: 1, DistinctTags: 1, DistinctItems: 1, Batches: 1},
	}

	var buf bytes.Buffer
	(&InsightService{out: &buf}).Print(report)
	out := buf.String()

	for _, want := range []string{"PRODUCT REVIEW INSIGHTS", "toys", "n/a", "complaints: flimsy", ActionGatherMoreReviews} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("short", 10); got != "short" {
		t.Errorf("truncate = %q", got)
	}
	if got := truncate("ééééééééééé", 6); got != "ééé..." {
		t.Errorf("truncate = %q", got)
	}
}
