package spreadsheet

import "strconv"

// Primitive represents basic spreadsheet value types.
// types:
//   - float64: numeric values
//   - string: text values ("" for empty cells)
//   - *Formula: formula contents (never a value)
//   - *SpreadsheetError: evaluation errors (#DIV/0!, #NAME?, etc.)
type Primitive any

// ErrorCode represents standard spreadsheet error codes following
// Excel conventions
type ErrorCode uint8

const (
	ErrorCodeDiv0  ErrorCode = 2 // #DIV/0! - division by zero
	ErrorCodeValue ErrorCode = 3 // #VALUE! - malformed evaluation state
	ErrorCodeName  ErrorCode = 5 // #NAME? - variable without a numeric value
)

// ErrorMapper maps error code numbers to their string representations
var ErrorMapper = map[ErrorCode]string{
	ErrorCodeDiv0:  "#DIV/0!",
	ErrorCodeValue: "#VALUE!",
	ErrorCodeName:  "#NAME?",
}

// SpreadsheetError is the value of a cell whose formula could not be
// resolved to a number. it is data, not a failure of the edit.
type SpreadsheetError struct {
	ErrorCode ErrorCode
	Message   string
}

func (e *SpreadsheetError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return ErrorMapper[e.ErrorCode]
}

// Code returns the display code, e.g. "#DIV/0!"
func (e *SpreadsheetError) Code() string {
	return ErrorMapper[e.ErrorCode]
}

func NewSpreadsheetError(code ErrorCode, message string) *SpreadsheetError {
	if message == "" {
		message = ErrorMapper[code]
	}
	return &SpreadsheetError{
		ErrorCode: code,
		Message:   message,
	}
}

// CellType represents numeric constants for cell content
// types (external API)
type CellType uint8

const (
	CellValueTypeEmpty   CellType = 0
	CellValueTypeNumber  CellType = 1
	CellValueTypeString  CellType = 2
	CellValueTypeFormula CellType = 3
)

func (t CellType) String() string {
	switch t {
	case CellValueTypeNumber:
		return "number"
	case CellValueTypeString:
		return "text"
	case CellValueTypeFormula:
		return "formula"
	default:
		return "empty"
	}
}

// Cell holds the content a user assigned and the value derived from it
type Cell struct {
	Type    CellType  // kind of content
	Content Primitive // string, float64 or *Formula
	Value   Primitive // string, float64 or *SpreadsheetError
}

func newCell(content Primitive) *Cell {
	c := &Cell{}
	c.setContent(content)
	return c
}

// setContent replaces the content. the value is left stale until recalculate.
func (c *Cell) setContent(content Primitive) {
	c.Content = content
	switch content.(type) {
	case float64:
		c.Type = CellValueTypeNumber
	case *Formula:
		c.Type = CellValueTypeFormula
	default:
		c.Type = CellValueTypeString
	}
}

// recalculate refreshes the cached value from the content
func (c *Cell) recalculate(lookup Lookup) {
	if f, ok := c.Content.(*Formula); ok {
		c.Value = f.Evaluate(lookup)
		return
	}
	c.Value = c.Content
}

// StringForm is the persisted representation of the content: the text
// itself, the shortest round-tripping number, or the prefixed formula.
func (c *Cell) StringForm() string {
	switch content := c.Content.(type) {
	case float64:
		return formatNumber(content)
	case *Formula:
		return FormulaPrefix + content.String()
	case string:
		return content
	}
	return ""
}

// formatNumber renders a float64 the same way everywhere in the package
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// FormatValue renders a cell value for display
func FormatValue(value Primitive) string {
	switch v := value.(type) {
	case float64:
		return formatNumber(v)
	case *SpreadsheetError:
		return v.Code()
	case *Formula:
		return FormulaPrefix + v.String()
	case string:
		return v
	case nil:
		return ""
	}
	return ""
}
