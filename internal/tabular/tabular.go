// Package tabular reads and writes the spreadsheet files exchanged with
// users: Excel workbooks through excelize and plain CSV.
package tabular

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/xuri/excelize/v2"
)

// Supported file extensions.
const (
	ExtXLSX = ".xlsx"
	ExtCSV  = ".csv"
)

// ErrUnsupportedFormat is returned for extensions other than .xlsx and .csv.
var ErrUnsupportedFormat = errors.New("unsupported file format")

// Ext returns the lower-cased extension of path.
func Ext(path string) string {
	return strings.ToLower(filepath.Ext(path))
}

// ReadFile returns every row of the first sheet (xlsx) or of the file (csv).
// Rows are returned as read, including the header row.
func ReadFile(path string) ([][]string, error) {
	switch Ext(path) {
	case ExtXLSX:
		return readXLSX(path)
	case ExtCSV:
		return readCSV(path)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func readXLSX(path string) ([][]string, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, fmt.Errorf("workbook %s has no sheets", filepath.Base(path))
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheets[0], err)
	}

	return rows, nil
}

func readCSV(path string) ([][]string, error) {
	file, err := os.Open(path) //nolint:gosec // path is provided by the operator
	if err != nil {
		return nil, fmt.Errorf("failed to open csv: %w", err)
	}
	defer func() { _ = file.Close() }()

	return ReadCSV(file)
}

// ReadCSV parses CSV content, tolerating a UTF-8 BOM, ragged rows and
// semicolon separators as exported by European spreadsheet tools.
func ReadCSV(r io.Reader) ([][]string, error) {
	content, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("failed to read csv: %w", err)
	}
	text := strings.TrimPrefix(string(content), "\ufeff")

	reader := csv.NewReader(strings.NewReader(text))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.Comma = sniffSeparator(text)

	rows, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse csv: %w", err)
	}

	return rows, nil
}

// sniffSeparator picks ';' when the header line has more semicolons than commas.
func sniffSeparator(text string) rune {
	header, _, _ := strings.Cut(text, "\n")
	if strings.Count(header, ";") > strings.Count(header, ",") {
		return ';'
	}
	return ','
}

// WriteFile writes header and rows to path, choosing the format by extension.
func WriteFile(path string, header []string, rows [][]string) error {
	switch Ext(path) {
	case ExtXLSX:
		return writeXLSX(path, header, rows)
	case ExtCSV:
		return writeCSV(path, header, rows)
	default:
		return fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(path))
	}
}

func writeXLSX(path string, header []string, rows [][]string) error {
	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := f.GetSheetName(0)

	all := make([][]string, 0, len(rows)+1)
	all = append(all, header)
	all = append(all, rows...)

	for i, row := range all {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		if err != nil {
			return fmt.Errorf("failed to address row %d: %w", i+1, err)
		}
		values := make([]any, len(row))
		for j, v := range row {
			values[j] = v
		}
		if err := f.SetSheetRow(sheet, cell, &values); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+1, err)
		}
	}

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("failed to save workbook: %w", err)
	}

	return nil
}

func writeCSV(path string, header []string, rows [][]string) error {
	file, err := os.Create(path) //nolint:gosec // path is provided by the operator
	if err != nil {
		return fmt.Errorf("failed to create csv: %w", err)
	}

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write csv header: %w", err)
	}
	if err := w.WriteAll(rows); err != nil {
		_ = file.Close()
		return fmt.Errorf("failed to write csv rows: %w", err)
	}

	return file.Close()
}
