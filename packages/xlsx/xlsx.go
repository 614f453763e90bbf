// Package xlsx copies spreadsheet cells to and from Excel workbooks. only
// A1-style cell names have a place in a workbook, and only formulas made of
// numbers, single cell references, parentheses and + - * / come back in.
package xlsx

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/xuri/efp"
	"github.com/xuri/excelize/v2"

	"github.com/paupaudragon/LiteSheet/packages/spreadsheet"
)

// DefaultSheetName is used when no sheet name is given
const DefaultSheetName = "Sheet1"

// ErrUnsupportedFormula is the reason recorded for a workbook formula that
// uses anything beyond the supported arithmetic
var ErrUnsupportedFormula = errors.New("unsupported formula")

// Skipped is a cell left out of an export or import
type Skipped struct {
	Cell   string
	Reason string
}

// Report lists what an export or import did with each cell
type Report struct {
	Copied  []string
	Skipped []Skipped
}

func (r *Report) skip(cell string, reason error) {
	r.Skipped = append(r.Skipped, Skipped{Cell: cell, Reason: reason.Error()})
}

// Export writes every non-empty cell of s into a new workbook at path.
// numbers and text are stored as values and formulas as formulas. cells
// whose names are not A1 references are skipped.
func Export(s *spreadsheet.Spreadsheet, path, sheetName string) (Report, error) {
	var report Report
	if sheetName == "" {
		sheetName = DefaultSheetName
	}

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	if sheetName != DefaultSheetName {
		if err := f.SetSheetName(DefaultSheetName, sheetName); err != nil {
			return report, fmt.Errorf("naming sheet %q: %w", sheetName, err)
		}
	}

	for _, name := range s.NonEmptyCells() {
		if _, _, err := excelize.CellNameToCoordinates(name); err != nil {
			report.skip(name, err)
			continue
		}

		content, err := s.GetCellContents(name)
		if err != nil {
			return report, fmt.Errorf("reading %s: %w", name, err)
		}

		switch c := content.(type) {
		case *spreadsheet.Formula:
			err = f.SetCellFormula(sheetName, name, c.String())
		default:
			err = f.SetCellValue(sheetName, name, c)
		}
		if err != nil {
			return report, fmt.Errorf("writing %s: %w", name, err)
		}
		report.Copied = append(report.Copied, name)
	}

	if err := f.SaveAs(path); err != nil {
		return report, fmt.Errorf("saving %s: %w", path, err)
	}
	return report, nil
}

// Import reads the cells of one sheet of the workbook at path into s. an
// empty sheetName means the first sheet. cells are applied in name order;
// a cell with an unsupported formula, an invalid name or a formula that
// would create a cycle is skipped and reported.
func Import(path, sheetName string, s *spreadsheet.Spreadsheet) (Report, error) {
	var report Report

	f, err := excelize.OpenFile(path)
	if err != nil {
		return report, fmt.Errorf("opening %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if sheetName == "" {
		sheets := f.GetSheetList()
		if len(sheets) == 0 {
			return report, fmt.Errorf("workbook %s has no sheets", path)
		}
		sheetName = sheets[0]
	}

	contents, err := readContents(f, sheetName, &report)
	if err != nil {
		return report, err
	}

	for _, name := range slices.Sorted(maps.Keys(contents)) {
		if _, err := s.SetContentsOfCell(name, contents[name]); err != nil {
			report.skip(name, err)
			continue
		}
		report.Copied = append(report.Copied, name)
	}
	return report, nil
}

// readContents returns the content string of every non-empty cell in the
// used range of the sheet
func readContents(f *excelize.File, sheetName string, report *Report) (map[string]string, error) {
	rows, err := f.GetRows(sheetName, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("reading sheet %q: %w", sheetName, err)
	}

	maxRow, maxCol := len(rows), 0
	for _, row := range rows {
		maxCol = max(maxCol, len(row))
	}
	// formula cells without a cached value can sit past the last value
	if dimension, err := f.GetSheetDimension(sheetName); err == nil {
		if _, last, ok := strings.Cut(dimension, ":"); ok {
			if col, row, err := excelize.CellNameToCoordinates(last); err == nil {
				maxRow, maxCol = max(maxRow, row), max(maxCol, col)
			}
		}
	}

	contents := make(map[string]string)
	for row := 1; row <= maxRow; row++ {
		for col := 1; col <= maxCol; col++ {
			name, err := excelize.CoordinatesToCellName(col, row)
			if err != nil {
				return nil, err
			}

			formula, err := f.GetCellFormula(sheetName, name)
			if err != nil {
				return nil, fmt.Errorf("reading formula of %s: %w", name, err)
			}
			if formula != "" {
				if err := screenFormula(formula); err != nil {
					report.skip(name, err)
					continue
				}
				contents[name] = spreadsheet.FormulaPrefix + formula
				continue
			}

			value := cellValue(rows, row, col)
			if value != "" {
				contents[name] = value
			}
		}
	}
	return contents, nil
}

func cellValue(rows [][]string, row, col int) string {
	if row > len(rows) || col > len(rows[row-1]) {
		return ""
	}
	return rows[row-1][col-1]
}

// screenFormula tokenizes a workbook formula with the Excel formula parser
// and rejects functions, ranges, sheet references, strings, prefix
// operators and any operator other than + - * /
func screenFormula(formula string) error {
	parser := efp.ExcelParser()
	for _, token := range parser.Parse(formula) {
		switch token.TType {
		case efp.TokenTypeWhitespace:
			continue
		case efp.TokenTypeOperand:
			switch token.TSubType {
			case efp.TokenSubTypeNumber:
				continue
			case efp.TokenSubTypeRange:
				if isSingleCell(token.TValue) {
					continue
				}
			}
		case efp.TokenTypeSubexpression:
			continue
		case efp.TokenTypeOperatorInfix:
			switch token.TValue {
			case "+", "-", "*", "/":
				continue
			}
		}
		return fmt.Errorf("%w: %s token %q", ErrUnsupportedFormula, strings.ToLower(token.TType), token.TValue)
	}
	return nil
}

// isSingleCell accepts relative A1 references only
func isSingleCell(ref string) bool {
	if strings.ContainsAny(ref, ":!$") {
		return false
	}
	_, _, err := excelize.CellNameToCoordinates(ref)
	return err == nil
}
