// Package ledger loads and validates the foreign ledger submitted for
// matching.
package ledger

import (
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/Veraticus/transco/internal/common"
	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/normalize"
	"github.com/Veraticus/transco/internal/tabular"
)

// MinColumns is the number of leading columns every input row must provide:
// account number, label and class indicator.
const MinColumns = 3

// Options controls input validation.
type Options struct {
	Classifier  normalize.Classifier
	Extensions  []string
	MaxFileSize int64 // bytes; 0 disables the check
}

// DefaultOptions returns the validation limits used when none are configured.
func DefaultOptions() Options {
	return Options{
		Classifier:  normalize.FirstLetter{},
		Extensions:  []string{tabular.ExtXLSX, tabular.ExtCSV},
		MaxFileSize: 10 << 20,
	}
}

// Ledger is a validated input file split by account class.
type Ledger struct {
	ByClass    map[model.AccountClass][]model.AccountRecord
	Unknown    []model.AccountRecord
	Path       string
	Rows       int
	Duplicates int
	Blank      int
}

// Records returns the records of class in input order.
func (l *Ledger) Records(class model.AccountClass) []model.AccountRecord {
	return l.ByClass[class]
}

// Count returns the number of records of a known class.
func (l *Ledger) Count() int {
	n := 0
	for _, class := range model.Classes {
		n += len(l.ByClass[class])
	}
	return n
}

// Validate checks extension and size before the file is parsed.
func Validate(path string, opts Options) error {
	ext := tabular.Ext(path)
	if len(opts.Extensions) > 0 && !slices.Contains(opts.Extensions, ext) {
		return common.NewUserError(
			fmt.Sprintf("unsupported file type %q, expected one of %s", ext, strings.Join(opts.Extensions, ", ")),
			common.ErrInvalidInput)
	}

	info, err := os.Stat(path)
	if err != nil {
		return common.NewUserError("cannot read input file", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}
	if info.IsDir() {
		return common.NewUserError("input path is a directory", common.ErrInvalidInput)
	}
	if opts.MaxFileSize > 0 && info.Size() > opts.MaxFileSize {
		return common.NewUserError(
			fmt.Sprintf("input file is %d bytes, the limit is %d", info.Size(), opts.MaxFileSize),
			common.ErrInvalidInput)
	}

	return nil
}

// Load validates and parses the ledger at path.
func Load(path string, opts Options) (*Ledger, error) {
	if err := Validate(path, opts); err != nil {
		return nil, err
	}

	rows, err := tabular.ReadFile(path)
	if err != nil {
		return nil, common.NewUserError("cannot parse input file", fmt.Errorf("%w: %w", common.ErrInvalidInput, err))
	}

	l, err := Parse(rows, opts.Classifier)
	if err != nil {
		return nil, err
	}
	l.Path = path

	return l, nil
}

// Parse builds a Ledger from raw rows. The first row is the header; only its
// width is checked. Exact duplicate rows are dropped and blank rows skipped.
func Parse(rows [][]string, classifier normalize.Classifier) (*Ledger, error) {
	if classifier == nil {
		classifier = normalize.FirstLetter{}
	}
	if len(rows) == 0 {
		return nil, common.NewUserError("input file is empty", common.ErrInvalidInput)
	}
	if len(rows[0]) < MinColumns {
		return nil, common.NewUserError(
			fmt.Sprintf("input needs at least %d columns (account number, label, BS/P&L), found %d", MinColumns, len(rows[0])),
			common.ErrInvalidInput)
	}

	l := &Ledger{ByClass: make(map[model.AccountClass][]model.AccountRecord, len(model.Classes))}
	seen := make(map[string]struct{}, len(rows))
	position := 0

	for _, row := range rows[1:] {
		if isBlank(row) {
			l.Blank++
			continue
		}

		key := strings.Join(row, "\x1f")
		if _, dup := seen[key]; dup {
			l.Duplicates++
			continue
		}
		seen[key] = struct{}{}

		record := model.AccountRecord{
			Number:   normalize.Number(cell(row, 0)),
			Label:    strings.TrimSpace(cell(row, 1)),
			Class:    classifier.Classify(cell(row, 2)),
			Position: position,
		}
		position++
		l.Rows++

		if !record.Class.Known() {
			l.Unknown = append(l.Unknown, record)
			continue
		}
		l.ByClass[record.Class] = append(l.ByClass[record.Class], record)
	}

	if l.Count() == 0 {
		return nil, common.NewUserError("input file contains no BS or P&L accounts", common.ErrNoAccounts)
	}

	return l, nil
}

func isBlank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
