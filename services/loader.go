package services

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/xuri/excelize/v2"

	"review-insights/models"
	"review-insights/utils"
)

const (
	colProduct    = "product"
	colCategories = "categories"
	colRating     = "rating"
	colReviews    = "reviews"
)

var requiredColumns = []string{colProduct, colCategories, colRating, colReviews}

// Loader reads the review spreadsheet and selects the four columns the
// pipeline works with.
type Loader struct {
	sheet  string
	logger *utils.Logger
}

// NewLoader creates a Loader reading the named workbook sheet. An empty name
// selects the first sheet.
func NewLoader(sheet string, logger *utils.Logger) *Loader {
	return &Loader{sheet: strings.TrimSpace(sheet), logger: logger}
}

// Load reads path (.xlsx/.xlsm/.csv/.tsv) and returns one RawReview per data row.
// Every error it returns wraps ErrBadInput.
func (l *Loader) Load(path string) ([]*models.RawReview, error) {
	var (
		table [][]string
		err   error
	)
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".xlsx", ".xlsm":
		table, err = l.readWorkbook(path)
	case ".csv":
		table, err = readDelimited(path, ',')
	case ".tsv":
		table, err = readDelimited(path, '\t')
	default:
		err = fmt.Errorf("unsupported file type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: loader: %s: %v", ErrBadInput, path, err)
	}
	if len(table) == 0 {
		return nil, fmt.Errorf("%w: loader: %s: no header row", ErrBadInput, path)
	}

	index, err := resolveColumns(table[0])
	if err != nil {
		return nil, fmt.Errorf("%w: loader: %s: %v", ErrBadInput, path, err)
	}

	raw := make([]*models.RawReview, 0, len(table)-1)
	for i, row := range table[1:] {
		review := cell(row, index[colReviews])
		raw = append(raw, &models.RawReview{
			Row:        i + 2,
			Product:    cell(row, index[colProduct]),
			Categories: cell(row, index[colCategories]),
			Rating:     cell(row, index[colRating]),
			Review:     review,
			HasReview:  review != "",
		})
	}

	l.logger.Info("[loader] Read %d rows from %s", len(raw), filepath.Base(path))
	return raw, nil
}

func (l *Loader) readWorkbook(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("open workbook: %w", err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, errors.New("no sheets in workbook")
	}

	sheet := sheets[0]
	if l.sheet != "" {
		idx := slices.IndexFunc(sheets, func(name string) bool { return strings.EqualFold(name, l.sheet) })
		if idx < 0 {
			return nil, fmt.Errorf("sheet %q not found (have %v)", l.sheet, sheets)
		}
		sheet = sheets[idx]
	}
	l.logger.Debug("[loader] Sheets %v, selected %q", sheets, sheet)

	// Stored values, not display text: 4.5 formatted as "0" would read as 5.
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("read rows of %q: %w", sheet, err)
	}
	return rows, nil
}

func readDelimited(path string, comma rune) ([][]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.Comma = comma
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse: %w", err)
	}
	return rows, nil
}

// resolveColumns maps each required column to its position in the header.
func resolveColumns(header []string) (map[string]int, error) {
	index := make(map[string]int, len(requiredColumns))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := index[name]; !dup {
			index[name] = i
		}
	}
	var missing []string
	for _, col := range requiredColumns {
		if _, ok := index[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required column(s): %s", strings.Join(missing, ", "))
	}
	return index, nil
}

// cell returns row[idx], treating short rows as empty trailing cells.
func cell(row []string, idx int) string {
	if idx < 0 || idx >= len(row) {
		return ""
	}
	return row[idx]
}
