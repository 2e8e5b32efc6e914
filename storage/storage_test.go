package storage

import (
	"bytes"
	"database/sql"
	"database/sql/driver"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"review-insights/models"
)

var (
	_ ReportWriter = (*CSVWriter)(nil)
	_ ReportWriter = (*PostgresWriter)(nil)
)

func sampleReport() *models.Report {
	return &models.Report{
		Reviews: []*models.Review{
			{Product: "Alpha", Categories: "Toys|Games", Rating: 4.5, HasRating: true, Text: "fun, \"really\"",
				Tags: []string{"toys", "games"}, Sentiment: models.SentimentPositive, Confidence: 0.998, Classified: true},
			{Product: "Beta", Categories: "", Text: "broken",
				Sentiment: models.SentimentNegative, Confidence: 0.75, Classified: true},
		},
		Bestsellers: []models.CategoryAggregate{
			{Category: "games", Product: "Alpha", ReviewCount: 1, AvgRating: 4.5, RatedCount: 1, PositiveRatio: 1},
			{Category: "toys", Product: "Beta", ReviewCount: 3, PositiveRatio: 0.25},
		},
		TailRisk: []models.TailRiskEntry{{
			Product:          "Beta",
			TotalReviews:     3,
			NegativeRatio:    0.667,
			TopComplaints:    []string{"broken", "box"},
			SuggestedActions: []string{"first", "second"},
		}},
	}
}

func TestWriteSentimentResults(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteSentimentResults(&buf, sampleReport().Reviews); err != nil {
		t.Fatal(err)
	}
	want := "product,categories,rating,reviews,ml_sentiment,ml_confidence,categories_list\n" +
		"Alpha,Toys|Games,4.5,\"fun, \"\"really\"\"\",POSITIVE,0.998,toys|games\n" +
		"Beta,,,broken,NEGATIVE,0.75,\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteBestsellers(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteBestsellers(&buf, sampleReport().Bestsellers); err != nil {
		t.Fatal(err)
	}
	want := "category,product,review_count,avg_rating,pos_ratio\n" +
		"games,Alpha,1,4.5,1\n" +
		"toys,Beta,3,,0.25\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestWriteTailRisk(t *testing.T) {
	var buf bytes.Buffer
	if err := WriteTailRisk(&buf, sampleReport().TailRisk); err != nil {
		t.Fatal(err)
	}
	want := "product,total_reviews,negative_ratio,top_complaints,suggested_actions\n" +
		"Beta,3,0.667,\"broken, box\",first; second\n"
	if buf.String() != want {
		t.Errorf("got:\n%s\nwant:\n%s", buf.String(), want)
	}
}

func TestCSVWriterIsIdempotent(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	w, err := NewCSVWriter(dir)
	if err != nil {
		t.Fatal(err)
	}

	read := func() map[string][]byte {
		files := make(map[string][]byte)
		for _, p := range w.Paths() {
			data, err := os.ReadFile(p)
			if err != nil {
				t.Fatalf("read %s: %v", p, err)
			}
			files[p] = data
		}
		return files
	}

	if err := w.WriteReport(sampleReport()); err != nil {
		t.Fatal(err)
	}
	first := read()
	if err := w.WriteReport(sampleReport()); err != nil {
		t.Fatal(err)
	}
	second := read()

	for p, data := range first {
		if !bytes.Equal(data, second[p]) {
			t.Errorf("%s changed between identical runs", filepath.Base(p))
		}
	}

	leftovers, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	if len(leftovers) != 0 {
		t.Errorf("temporary files left behind: %v", leftovers)
	}
}

func TestCSVWriterEmptyReport(t *testing.T) {
	w, err := NewCSVWriter(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := w.WriteReport(&models.Report{}); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(w.Paths()[2])
	if err != nil {
		t.Fatal(err)
	}
	if got := strings.TrimSpace(string(data)); got != strings.Join(tailRiskHeader, ",") {
		t.Errorf("empty tail-risk file = %q; want header only", got)
	}
}

func TestBuildInsert(t *testing.T) {
	rows := [][]any{{"a", 1}, {"b", 2}, {"c", 3}}
	query, args := buildInsert("t", []string{"name", "n"}, len(rows), func(k int) []any { return rows[k] })

	wantQuery := "INSERT INTO t (name, n) VALUES ($1,$2),($3,$4),($5,$6)"
	if query != wantQuery {
		t.Errorf("query:\n got %s\nwant %s", query, wantQuery)
	}
	if len(args) != 6 || args[0] != "a" || args[5] != 3 {
		t.Errorf("args = %v", args)
	}
}

func TestPqTextArrayNilIsEmpty(t *testing.T) {
	v, err := pqTextArray(nil).(driver.Valuer).Value()
	if err != nil {
		t.Fatal(err)
	}
	if v != "{}" {
		t.Errorf("nil tags encode as %v; want {}", v)
	}
}

// recordingTx stands in for *sql.Tx and fails the statement at index failAt.
type recordingTx struct {
	statements []string
	failAt     int
}

func (r *recordingTx) Exec(query string, _ ...any) (sql.Result, error) {
	r.statements = append(r.statements, query)
	if len(r.statements)-1 == r.failAt {
		return nil, errors.New("insert rejected")
	}
	return driver.RowsAffected(1), nil
}

func TestReplaceReportClearsInsideTransaction(t *testing.T) {
	tx := &recordingTx{failAt: -1}
	if err := replaceReport(tx, sampleReport(), time.Unix(0, 0)); err != nil {
		t.Fatal(err)
	}
	if len(tx.statements) != 4 {
		t.Fatalf("statements: got %d, want truncate + 3 inserts", len(tx.statements))
	}
	if !strings.HasPrefix(tx.statements[0], "TRUNCATE ") {
		t.Errorf("first statement = %q; want TRUNCATE", tx.statements[0])
	}
	for i, table := range []string{"review_sentiments", "category_bestsellers", "tail_risk_products"} {
		if !strings.HasPrefix(tx.statements[i+1], "INSERT INTO "+table+" ") {
			t.Errorf("statement %d = %q; want insert into %s", i+1, tx.statements[i+1], table)
		}
	}
}

func TestReplaceReportStopsOnInsertError(t *testing.T) {
	tx := &recordingTx{failAt: 2}
	err := replaceReport(tx, sampleReport(), time.Unix(0, 0))
	if err == nil || !strings.Contains(err.Error(), "category_bestsellers") {
		t.Fatalf("got %v, want category_bestsellers insert error", err)
	}
	if len(tx.statements) != 3 {
		t.Errorf("statements after failure: got %d, want 3", len(tx.statements))
	}
}
