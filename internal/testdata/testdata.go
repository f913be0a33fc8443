// Package testdata reads data-driven test rows from spreadsheets and shapes
// them into request payloads and expected responses.
package testdata

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/AbhinavRai30/api-framework/internal/compare"
	"github.com/AbhinavRai30/api-framework/internal/logging"
	"github.com/AbhinavRai30/api-framework/internal/value"
	"github.com/AbhinavRai30/api-framework/internal/verify"
)

var ErrNoData = errors.New("no Excel data loaded")

// Store keeps the rows of the last sheet read.
type Store struct {
	logger  *slog.Logger
	rows    []value.Value
	current value.Value
}

func NewStore(logger *slog.Logger) *Store {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Store{logger: logger}
}

// ReadExcel loads sheet from the workbook at path and makes its rows the
// store's data.
func (s *Store) ReadExcel(path, sheet string) ([]value.Value, error) {
	rows, err := ReadSheet(path, sheet)
	if err != nil {
		return nil, err
	}
	s.rows = rows
	s.logger.Info("read rows from sheet", "sheet", sheet, "rows", len(rows), "file", path)
	return rows, nil
}

// ByName returns the first row whose name, Name or title column equals name,
// ignoring case.
func (s *Store) ByName(name string) (value.Value, error) {
	if len(s.rows) == 0 {
		return value.Value{}, verify.Failf("%v", ErrNoData)
	}
	for _, row := range s.rows {
		for _, key := range []string{"name", "Name", "title"} {
			v, ok := row.Get(key)
			if ok && strings.EqualFold(v.Render(), name) {
				s.current = row
				return row, nil
			}
		}
	}
	return value.Value{}, verify.Failf("test data '%s' not found", name)
}

func (s *Store) All() ([]value.Value, error) {
	if len(s.rows) == 0 {
		return nil, verify.Failf("%v", ErrNoData)
	}
	return s.rows, nil
}

// Current is the row last returned by ByName, Null before any lookup.
func (s *Store) Current() value.Value {
	return s.current
}

// ReadSheet returns the rows of sheet as mappings keyed by the header row.
// Columns with an empty header are skipped, as are rows with no values.
func ReadSheet(path, sheet string) ([]value.Value, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, verify.Failf("excel file not found: %s", path)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, verify.Failf("failed to read Excel file: %v", err)
	}
	defer f.Close()

	grid, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, verify.Failf("failed to read Excel file: %v", err)
	}
	if len(grid) == 0 {
		return nil, nil
	}

	headers := grid[0]
	var out []value.Value
	for r, cells := range grid[1:] {
		rowNum := r + 2
		members := make([]value.Member, 0, len(headers))
		empty := true
		for c, header := range headers {
			if strings.TrimSpace(header) == "" {
				continue
			}
			v := value.Null()
			if c < len(cells) && cells[c] != "" {
				cell, err := excelize.CoordinatesToCellName(c+1, rowNum)
				if err != nil {
					return nil, verify.Failf("failed to read Excel file: %v", err)
				}
				ct, err := f.GetCellType(sheet, cell)
				if err != nil {
					return nil, verify.Failf("failed to read Excel file: %v", err)
				}
				v = cellValue(ct, cells[c])
				empty = false
			}
			members = append(members, value.Pair(header, v))
		}
		if !empty {
			out = append(out, value.Map(members...))
		}
	}
	return out, nil
}

func cellValue(ct excelize.CellType, raw string) value.Value {
	switch ct {
	case excelize.CellTypeBool:
		return value.Bool(raw == "1" || strings.EqualFold(raw, "true"))
	case excelize.CellTypeNumber, excelize.CellTypeUnset:
		if _, err := strconv.ParseFloat(raw, 64); err == nil && json.Valid([]byte(raw)) {
			return value.Number(json.Number(raw))
		}
	}
	return value.Text(raw)
}

// ExpectedResponse returns the expected_response column of row, parsed as
// JSON when it is JSON text.
func ExpectedResponse(row value.Value) (value.Value, error) {
	v, ok := row.Get("expected_response")
	if !ok {
		return value.Value{}, verify.Failf("'expected_response' column not found in test data")
	}
	if v.Kind() == value.KindText {
		return value.ParseExpected(v.Text()), nil
	}
	return v, nil
}

// DefaultExclude lists the columns left out of payloads when no exclusion is
// given.
var DefaultExclude = []string{"expected_response"}

// ToDict returns row without the excluded columns and without null cells.
// A nil exclude means DefaultExclude.
func ToDict(row value.Value, exclude []string) (value.Value, error) {
	if row.Kind() != value.KindMapping {
		return value.Value{}, fmt.Errorf("%w: test data row must be a mapping, got %s", compare.ErrUsage, row.Kind())
	}
	if exclude == nil {
		exclude = DefaultExclude
	}

	members := make([]value.Member, 0, row.Len())
	for _, m := range row.Members() {
		if m.Value.IsNull() || slices.Contains(exclude, m.Key) {
			continue
		}
		members = append(members, m)
	}
	return value.Map(members...), nil
}

// ToJSON is ToDict rendered as JSON text.
func ToJSON(row value.Value, exclude []string) (string, error) {
	payload, err := ToDict(row, exclude)
	if err != nil {
		return "", err
	}
	return payload.String(), nil
}
