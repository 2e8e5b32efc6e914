package metrics

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"review-insights/models"
)

func TestRecorderCounts(t *testing.T) {
	r := NewRecorder()
	r.ObserveLoad(10, 2)
	r.ObserveBatch(20 * time.Millisecond)
	r.ObserveBatch(30 * time.Millisecond)
	r.ObserveLabel(models.SentimentPositive)
	r.ObserveLabel(models.SentimentNegative)
	r.ObserveLabel(models.SentimentNegative)

	if got := testutil.ToFloat64(r.rowsRead); got != 10 {
		t.Errorf("rows read: got %v, want 10", got)
	}
	if got := testutil.ToFloat64(r.rowsDropped); got != 2 {
		t.Errorf("rows dropped: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.batches); got != 2 {
		t.Errorf("batches: got %v, want 2", got)
	}
	if got := testutil.ToFloat64(r.classified.WithLabelValues("NEGATIVE")); got != 2 {
		t.Errorf("negative: got %v, want 2", got)
	}
}

func TestNilRecorderIsNoop(t *testing.T) {
	var r *Recorder
	r.ObserveLoad(1, 1)
	r.ObserveBatch(time.Second)
	r.ObserveLabel(models.SentimentPositive)
	r.ObserveReport(&models.Report{})
	if err := r.WriteTextfile("/nonexistent/metrics.prom"); err != nil {
		t.Errorf("nil recorder should not write: %v", err)
	}
}

func TestWriteTextfile(t *testing.T) {
	r := NewRecorder()
	r.ObserveReport(&models.Report{TailRisk: make([]models.TailRiskEntry, 3)})

	path := filepath.Join(t.TempDir(), "review_insights.prom")
	if err := r.WriteTextfile(path); err != nil {
		t.Fatalf("WriteTextfile: %v", err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "review_insights_tail_risk_products 3") {
		t.Errorf("textfile missing tail risk gauge:\n%s", data)
	}
}

func TestRegistryExposesAllCollectors(t *testing.T) {
	r := NewRecorder()
	r.ObserveLabel(models.SentimentPositive)

	n, err := testutil.GatherAndCount(r.Registry())
	if err != nil {
		t.Fatal(err)
	}
	// the label vector only reports once a label has been seen
	if n != 8 {
		t.Errorf("metrics gathered: got %d, want 8", n)
	}
}
