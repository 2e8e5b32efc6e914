package storage

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/lib/pq"

	"review-insights/models"
	"review-insights/utils"
)

const insertBatchSize = 50

// PostgresWriter mirrors a run's reports into PostgreSQL. Tables are cleared
// at the start of every write, so they only ever hold the latest run.
type PostgresWriter struct {
	db *sql.DB
}

// NewPostgresWriter opens a connection, pings it with retries and runs the
// schema migration.
func NewPostgresWriter(dsn string, retry *utils.RetryConfig) (*PostgresWriter, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}

	if err := retry.Do("postgres-ping", db.Ping); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: %w", err)
	}

	pw := &PostgresWriter{db: db}
	if err := pw.migrate(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("postgres: migrate: %w", err)
	}
	return pw, nil
}

func (pw *PostgresWriter) migrate() error {
	_, err := pw.db.Exec(`
		CREATE TABLE IF NOT EXISTS review_sentiments (
			id          SERIAL PRIMARY KEY,
			product     TEXT             NOT NULL DEFAULT '',
			categories  TEXT             NOT NULL DEFAULT '',
			rating      DOUBLE PRECISION,
			review      TEXT             NOT NULL,
			sentiment   VARCHAR(16)      NOT NULL,
			confidence  DOUBLE PRECISION NOT NULL,
			tags        TEXT[]           NOT NULL DEFAULT '{}',
			created_at  TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS category_bestsellers (
			id             SERIAL PRIMARY KEY,
			category       TEXT             NOT NULL,
			product        TEXT             NOT NULL,
			review_count   INTEGER          NOT NULL,
			avg_rating     DOUBLE PRECISION,
			positive_ratio DOUBLE PRECISION NOT NULL,
			created_at     TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		);

		CREATE TABLE IF NOT EXISTS tail_risk_products (
			id                SERIAL PRIMARY KEY,
			product           TEXT             NOT NULL,
			total_reviews     INTEGER          NOT NULL,
			negative_ratio    DOUBLE PRECISION NOT NULL,
			top_complaints    TEXT             NOT NULL DEFAULT '',
			suggested_actions TEXT             NOT NULL DEFAULT '',
			created_at        TIMESTAMPTZ      NOT NULL DEFAULT NOW()
		);

		CREATE INDEX IF NOT EXISTS idx_review_sentiments_product ON review_sentiments(product);
		CREATE INDEX IF NOT EXISTS idx_category_bestsellers_cat  ON category_bestsellers(category);
	`)
	return err
}

// execer is the part of *sql.DB and *sql.Tx the writer needs.
type execer interface {
	Exec(query string, args ...any) (sql.Result, error)
}

// WriteReport replaces the stored report with r inside one transaction. If any
// statement fails the previous run's rows are left in place.
func (pw *PostgresWriter) WriteReport(r *models.Report) error {
	tx, err := pw.db.Begin()
	if err != nil {
		return fmt.Errorf("postgres: begin: %w", err)
	}
	defer tx.Rollback()

	if err := replaceReport(tx, r, time.Now().UTC()); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit: %w", err)
	}
	return nil
}

func replaceReport(tx execer, r *models.Report, now time.Time) error {
	if _, err := tx.Exec("TRUNCATE review_sentiments, category_bestsellers, tail_risk_products RESTART IDENTITY"); err != nil {
		return fmt.Errorf("postgres: clear: %w", err)
	}

	if err := insertBatched(tx, "review_sentiments",
		[]string{"product", "categories", "rating", "review", "sentiment", "confidence", "tags", "created_at"},
		len(r.Reviews), func(i int) []any {
			rv := r.Reviews[i]
			var rating any
			if rv.HasRating {
				rating = rv.Rating
			}
			return []any{rv.Product, rv.Categories, rating, rv.Text, string(rv.Sentiment), rv.Confidence, pqTextArray(rv.Tags), now}
		}); err != nil {
		return err
	}

	if err := insertBatched(tx, "category_bestsellers",
		[]string{"category", "product", "review_count", "avg_rating", "positive_ratio", "created_at"},
		len(r.Bestsellers), func(i int) []any {
			b := r.Bestsellers[i]
			var avg any
			if b.HasAvgRating() {
				avg = b.AvgRating
			}
			return []any{b.Category, b.Product, b.ReviewCount, avg, b.PositiveRatio, now}
		}); err != nil {
		return err
	}

	return insertBatched(tx, "tail_risk_products",
		[]string{"product", "total_reviews", "negative_ratio", "top_complaints", "suggested_actions", "created_at"},
		len(r.TailRisk), func(i int) []any {
			e := r.TailRisk[i]
			return []any{e.Product, e.TotalReviews, e.NegativeRatio,
				strings.Join(e.TopComplaints, ", "), strings.Join(e.SuggestedActions, "; "), now}
		})
}

func (pw *PostgresWriter) Close() error {
	return pw.db.Close()
}

// insertBatched inserts n rows built by row(i) in multi-row INSERTs of
// insertBatchSize rows each.
func insertBatched(tx execer, table string, columns []string, n int, row func(i int) []any) error {
	for start := 0; start < n; start += insertBatchSize {
		end := min(start+insertBatchSize, n)
		query, args := buildInsert(table, columns, end-start, func(k int) []any { return row(start + k) })
		if _, err := tx.Exec(query, args...); err != nil {
			return fmt.Errorf("postgres: insert %s rows %d-%d: %w", table, start, end-1, err)
		}
	}
	return nil
}

func buildInsert(table string, columns []string, rows int, row func(k int) []any) (string, []any) {
	width := len(columns)
	valueStrings := make([]string, 0, rows)
	valueArgs := make([]any, 0, rows*width)

	for k := 0; k < rows; k++ {
		placeholders := make([]string, width)
		for c := range placeholders {
			placeholders[c] = fmt.Sprintf("$%d", k*width+c+1)
		}
		valueStrings = append(valueStrings, "("+strings.Join(placeholders, ",")+")")
		valueArgs = append(valueArgs, row(k)...)
	}

	query := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		table, strings.Join(columns, ", "), strings.Join(valueStrings, ","))
	return query, valueArgs
}

// pqTextArray encodes tags as a TEXT[]; a nil slice becomes '{}' rather than NULL.
func pqTextArray(tags []string) any {
	if tags == nil {
		tags = []string{}
	}
	return pq.Array(tags)
}
