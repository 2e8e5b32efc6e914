package storage

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"review-insights/models"
)

var (
	sentimentHeader   = []string{"product", "categories", "rating", "reviews", "ml_sentiment", "ml_confidence", "categories_list"}
	bestsellersHeader = []string{"category", "product", "review_count", "avg_rating", "pos_ratio"}
	tailRiskHeader    = []string{"product", "total_reviews", "negative_ratio", "top_complaints", "suggested_actions"}
)

// CSVWriter writes the three report files into one directory.
type CSVWriter struct {
	dir string
}

// NewCSVWriter creates the output directory if needed.
func NewCSVWriter(dir string) (*CSVWriter, error) {
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("csv: create output dir: %w", err)
	}
	return &CSVWriter{dir: dir}, nil
}

// Paths returns the full paths of the files WriteReport produces.
func (c *CSVWriter) Paths() []string {
	return []string{
		filepath.Join(c.dir, SentimentResultsFile),
		filepath.Join(c.dir, BestsellersFile),
		filepath.Join(c.dir, TailRiskFile),
	}
}

// WriteReport (re)creates all three files. Identical reports produce
// byte-identical files.
func (c *CSVWriter) WriteReport(r *models.Report) error {
	files := []struct {
		name  string
		write func(io.Writer) error
	}{
		{SentimentResultsFile, func(w io.Writer) error { return WriteSentimentResults(w, r.Reviews) }},
		{BestsellersFile, func(w io.Writer) error { return WriteBestsellers(w, r.Bestsellers) }},
		{TailRiskFile, func(w io.Writer) error { return WriteTailRisk(w, r.TailRisk) }},
	}
	for _, f := range files {
		if err := c.writeFile(f.name, f.write); err != nil {
			return err
		}
	}
	return nil
}

// Close is a no-op; every file is closed as soon as it is written.
func (c *CSVWriter) Close() error { return nil }

func (c *CSVWriter) writeFile(name string, write func(io.Writer) error) error {
	path := filepath.Join(c.dir, name)
	tmp := path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return fmt.Errorf("csv: create file %q: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		_ = os.Remove(tmp)
		return fmt.Errorf("csv: write %s: %w", name, err)
	}
	if err := f.Close(); err != nil {
		_ = os.Remove(tmp)
		return fmt.Errorf("csv: close %s: %w", name, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("csv: rename %s: %w", name, err)
	}
	return nil
}

// WriteSentimentResults writes every classified review with its derived fields.
func WriteSentimentResults(out io.Writer, reviews []*models.Review) error {
	w := csv.NewWriter(out)
	if err := w.Write(sentimentHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, r := range reviews {
		rating := ""
		if r.HasRating {
			rating = formatFloat(r.Rating)
		}
		row := []string{
			r.Product,
			r.Categories,
			rating,
			r.Text,
			string(r.Sentiment),
			formatFloat(r.Confidence),
			strings.Join(r.Tags, "|"),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteBestsellers writes the per-category ranking in report order.
func WriteBestsellers(out io.Writer, rows []models.CategoryAggregate) error {
	w := csv.NewWriter(out)
	if err := w.Write(bestsellersHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, b := range rows {
		avg := ""
		if b.HasAvgRating() {
			avg = formatFloat(b.AvgRating)
		}
		row := []string{
			b.Category,
			b.Product,
			strconv.Itoa(b.ReviewCount),
			avg,
			formatFloat(b.PositiveRatio),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	return w.Error()
}

// WriteTailRisk writes one row per flagged product.
func WriteTailRisk(out io.Writer, entries []models.TailRiskEntry) error {
	w := csv.NewWriter(out)
	if err := w.Write(tailRiskHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	for i, e := range entries {
		row := []string{
			e.Product,
			strconv.Itoa(e.TotalReviews),
			formatFloat(e.NegativeRatio),
			strings.Join(e.TopComplaints, ", "),
			strings.Join(e.SuggestedActions, "; "),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write row %d: %w", i, err)
		}
	}
	w.Flush()
	return w.Error()
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
