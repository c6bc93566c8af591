// Package reference loads the standardized chart of accounts that foreign
// ledger accounts are matched against.
package reference

import (
	"fmt"
	"strings"

	"github.com/Veraticus/transco/internal/common"
	"github.com/Veraticus/transco/internal/model"
	"github.com/Veraticus/transco/internal/normalize"
	"github.com/Veraticus/transco/internal/tabular"
)

// Column headers expected in the reference file.
const (
	HeaderCode  = "GL account"
	HeaderName  = "Account Name"
	HeaderClass = "BS / P&L"
)

// Set is the chart of accounts partitioned by class. It is read-only once
// loaded and safe to share between goroutines.
type Set struct {
	byClass map[model.AccountClass][]model.ReferenceEntry
	path    string
	skipped int
}

// NewSet builds a Set from already classified entries, preserving order.
// Entries of an unknown class are counted as skipped.
func NewSet(entries []model.ReferenceEntry) *Set {
	s := &Set{byClass: make(map[model.AccountClass][]model.ReferenceEntry, len(model.Classes))}
	for _, e := range entries {
		if !e.Class.Known() {
			s.skipped++
			continue
		}
		s.byClass[e.Class] = append(s.byClass[e.Class], e)
	}
	return s
}

// Load reads the chart of accounts at path. Any failure wraps
// common.ErrReferenceUnavailable.
func Load(path string, classifier normalize.Classifier) (*Set, error) {
	if classifier == nil {
		classifier = normalize.FirstLetter{}
	}

	rows, err := tabular.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrReferenceUnavailable, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %s is empty", common.ErrReferenceUnavailable, path)
	}

	cols, err := locateColumns(rows[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrReferenceUnavailable, err)
	}

	entries := make([]model.ReferenceEntry, 0, len(rows)-1)
	for _, row := range rows[1:] {
		code := normalize.Number(cell(row, cols.code))
		if code == "" {
			continue
		}
		entries = append(entries, model.ReferenceEntry{
			Code:  code,
			Name:  strings.TrimSpace(cell(row, cols.name)),
			Class: classifier.Classify(cell(row, cols.class)),
		})
	}

	s := NewSet(entries)
	s.path = path
	if s.Len() == 0 {
		return nil, fmt.Errorf("%w: %s has no BS or P&L entries", common.ErrReferenceUnavailable, path)
	}

	return s, nil
}

// Entries returns the entries of class in file order.
func (s *Set) Entries(class model.AccountClass) []model.ReferenceEntry {
	return s.byClass[class]
}

// Lines renders the entries of class as prompt lines.
func (s *Set) Lines(class model.AccountClass) []string {
	entries := s.byClass[class]
	lines := make([]string, len(entries))
	for i, e := range entries {
		lines[i] = e.Line()
	}
	return lines
}

// Len returns the number of classified entries.
func (s *Set) Len() int {
	n := 0
	for _, entries := range s.byClass {
		n += len(entries)
	}
	return n
}

// Skipped returns how many rows carried an unknown class.
func (s *Set) Skipped() int {
	return s.skipped
}

// Path returns the file the set was loaded from, if any.
func (s *Set) Path() string {
	return s.path
}

type columns struct {
	code, name, class int
}

func locateColumns(header []string) (columns, error) {
	cols := columns{code: -1, name: -1, class: -1}
	for i, h := range header {
		switch headerKey(h) {
		case headerKey(HeaderCode):
			cols.code = i
		case headerKey(HeaderName):
			cols.name = i
		case headerKey(HeaderClass):
			cols.class = i
		}
	}

	var missing []string
	if cols.code < 0 {
		missing = append(missing, HeaderCode)
	}
	if cols.name < 0 {
		missing = append(missing, HeaderName)
	}
	if cols.class < 0 {
		missing = append(missing, HeaderClass)
	}
	if len(missing) > 0 {
		return cols, fmt.Errorf("missing columns: %s", strings.Join(missing, ", "))
	}

	return cols, nil
}

// headerKey folds case and drops all whitespace so "BS/P&L" and "bs / p&l" match.
func headerKey(s string) string {
	return strings.ToLower(strings.Join(strings.Fields(s), ""))
}

func cell(row []string, i int) string {
	if i < len(row) {
		return row[i]
	}
	return ""
}
