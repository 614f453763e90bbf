package spreadsheet

import (
	"errors"
	"fmt"
	"maps"
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

// AppErrorCode represents gRPC-style error codes for application-level errors.
// note that we are skipping error codes that don't make sense for our use-case,
// like unauthenticated, or permission denied.
type AppErrorCode int

const (
	// OK indicates the operation completed successfully.
	OK AppErrorCode = 0

	// Unknown error. Errors raised by APIs that do not return enough error
	// information may be converted to this error.
	Unknown AppErrorCode = 2

	// InvalidArgument indicates client specified an invalid argument, such as
	// a bad cell name or a malformed formula.
	InvalidArgument AppErrorCode = 3

	// NotFound means a requested file was not found.
	NotFound AppErrorCode = 5

	// FailedPrecondition indicates operation was rejected because the
	// system is not in a state required for the operation's execution.
	// a circular dependency or a version mismatch end up here.
	FailedPrecondition AppErrorCode = 9

	// Internal errors. Means some invariants expected by underlying
	// system has been broken, or reading and writing a file failed.
	Internal AppErrorCode = 13
)

var appErrorCodeNames = map[AppErrorCode]string{
	OK:                 "ok",
	Unknown:            "unknown",
	InvalidArgument:    "invalid argument",
	NotFound:           "not found",
	FailedPrecondition: "failed precondition",
	Internal:           "internal",
}

func (c AppErrorCode) String() string {
	if name, ok := appErrorCodeNames[c]; ok {
		return name
	}
	return fmt.Sprintf("code(%d)", int(c))
}

var (
	// ErrInvalidName is returned for cell names outside the variable grammar
	// or rejected by the validator
	ErrInvalidName = errors.New("invalid cell name")

	// ErrReadWrite is returned when a spreadsheet file cannot be saved or
	// loaded
	ErrReadWrite = errors.New("spreadsheet read/write failure")

	// ErrVersionMismatch is returned when a saved file has a different
	// version than the one requested
	ErrVersionMismatch = errors.New("spreadsheet version mismatch")
)

// AppError represents errors at the application level (not
// spreadsheet formula errors)
type AppError struct {
	Code    AppErrorCode
	Message string
	Err     error
}

func (e *AppError) Error() string {
	switch {
	case e.Err == nil:
		return e.Message
	case e.Message == "":
		return e.Err.Error()
	}
	return e.Message + ": " + e.Err.Error()
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewApplicationError creates a new application error
func NewApplicationError(code AppErrorCode, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// WrapApplicationError creates an application error with a cause that
// errors.Is and errors.As can see
func WrapApplicationError(code AppErrorCode, message string, err error) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// IsAppErrorCode reports whether err is an *AppError with the given code
func IsAppErrorCode(err error, code AppErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// DefaultVersion is the version of a spreadsheet created without WithVersion
const DefaultVersion = "default"

// Spreadsheet stores named cells and keeps every formula value consistent
// with the cells it references. it is not safe for concurrent use.
type Spreadsheet struct {
	cells     map[string]*Cell
	graph     *DependencyGraph
	normalize func(string) string
	validate  func(string) bool
	version   string
	id        string
	changed   bool
	logger    zerolog.Logger
}

// Option configures a Spreadsheet
type Option func(*Spreadsheet)

// WithNormalizer sets the function applied to every cell name and formula
// variable
func WithNormalizer(normalize func(string) string) Option {
	return func(s *Spreadsheet) {
		if normalize != nil {
			s.normalize = normalize
		}
	}
}

// WithValidator sets the extra check a normalized name has to pass
func WithValidator(validate func(string) bool) Option {
	return func(s *Spreadsheet) {
		if validate != nil {
			s.validate = validate
		}
	}
}

// WithVersion sets the version written to and expected from saved files
func WithVersion(version string) Option {
	return func(s *Spreadsheet) {
		s.version = version
	}
}

// WithLogger sets the logger; the default discards everything
func WithLogger(logger zerolog.Logger) Option {
	return func(s *Spreadsheet) {
		s.logger = logger
	}
}

// WithID sets the document id instead of generating a new one
func WithID(id string) Option {
	return func(s *Spreadsheet) {
		if id != "" {
			s.id = id
		}
	}
}

// NewSpreadsheet creates a new spreadsheet instance
func NewSpreadsheet(opts ...Option) *Spreadsheet {
	s := &Spreadsheet{
		cells:     make(map[string]*Cell),
		graph:     NewDependencyGraph(),
		normalize: identity,
		validate:  acceptAll,
		version:   DefaultVersion,
		id:        uuid.NewString(),
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// cellName checks a user supplied name and returns its normalized form
func (s *Spreadsheet) cellName(name string) (string, error) {
	if !isVariableShape(name) {
		return "", WrapApplicationError(InvalidArgument, fmt.Sprintf("name %q", name), ErrInvalidName)
	}
	normalized := s.normalize(name)
	if !isVariableShape(normalized) || !s.validate(normalized) {
		return "", WrapApplicationError(InvalidArgument, fmt.Sprintf("name %q", name), ErrInvalidName)
	}
	return normalized, nil
}

// SetContentsOfCell assigns content to the named cell. an empty string
// empties the cell, a number literal stores a number, a string starting with
// "=" stores a formula, and anything else stores text.
//
// On success it returns the cell followed by every cell whose value had to
// be recomputed, in the order they were recomputed. emptying a cell returns
// an empty list. on failure nothing changes.
func (s *Spreadsheet) SetContentsOfCell(name, content string) ([]string, error) {
	cellName, err := s.cellName(name)
	if err != nil {
		return nil, err
	}

	if content == "" {
		return s.removeCell(cellName), nil
	}

	if v, ok := parseContentNumber(content); ok {
		return s.setCell(cellName, v, nil)
	}

	if expression, ok := strings.CutPrefix(content, FormulaPrefix); ok {
		formula, err := NewFormula(expression, s.normalize, s.validate)
		if err != nil {
			return nil, WrapApplicationError(InvalidArgument, fmt.Sprintf("formula for %s", cellName), err)
		}
		return s.setCell(cellName, formula, formula.Variables())
	}

	return s.setCell(cellName, content, nil)
}

// parseContentNumber accepts signed decimal and scientific literals,
// including values that overflow to an infinity. an infinity is written back
// as +Inf or -Inf, so those exact forms are numbers too. any other inf or nan
// and hex literals stay text.
func parseContentNumber(content string) (float64, bool) {
	switch content {
	case formatNumber(math.Inf(1)):
		return math.Inf(1), true
	case formatNumber(math.Inf(-1)):
		return math.Inf(-1), true
	}
	if strings.ContainsAny(content, "nNxX_") {
		return 0, false
	}
	v, err := strconv.ParseFloat(content, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return v, true
}

// setCell replaces the dependees of name, orders the recalculation and only
// then commits the content. a cycle restores the previous dependees.
func (s *Spreadsheet) setCell(name string, content Primitive, dependees []string) ([]string, error) {
	previous := s.graph.Dependees(name)
	s.graph.ReplaceDependees(name, dependees)

	order, err := s.cellsToRecalculate(name)
	if err != nil {
		s.graph.ReplaceDependees(name, previous)
		s.logger.Warn().
			Str("cell", name).
			Strs("dependees", dependees).
			Msg("rejected edit that would create a cycle")
		return nil, WrapApplicationError(FailedPrecondition, "", err)
	}

	if cell, exists := s.cells[name]; exists {
		cell.setContent(content)
	} else {
		s.cells[name] = newCell(content)
	}
	s.changed = true
	s.recalculate(order)

	s.logger.Debug().
		Str("cell", name).
		Str("kind", s.cells[name].Type.String()).
		Int("affected", len(order)).
		Msg("cell updated")
	return order, nil
}

// removeCell drops the cell and its dependees. cells that referenced it keep
// their formulas and are recomputed, which turns their values into errors.
func (s *Spreadsheet) removeCell(name string) []string {
	if _, exists := s.cells[name]; !exists {
		return []string{}
	}

	s.graph.ReplaceDependees(name, nil)
	delete(s.cells, name)
	s.changed = true

	// removing edges cannot create a cycle
	order, _ := s.cellsToRecalculate(name)
	s.recalculate(order)

	s.logger.Debug().
		Str("cell", name).
		Int("affected", len(order)-1).
		Msg("cell removed")
	return []string{}
}

// cellsToRecalculate returns name followed by every cell that depends on it,
// directly or not, each after all of its dependees
func (s *Spreadsheet) cellsToRecalculate(name string) ([]string, error) {
	return s.graph.TopologicalOrderFrom(name)
}

// recalculate refreshes the values of the given cells in order
func (s *Spreadsheet) recalculate(order []string) {
	for _, name := range order {
		if cell, exists := s.cells[name]; exists {
			cell.recalculate(s.lookup)
		}
	}
}

// lookup resolves a formula variable to the numeric value of its cell
func (s *Spreadsheet) lookup(name string) (float64, error) {
	cellName, err := s.cellName(name)
	if err != nil {
		return 0, err
	}
	cell, exists := s.cells[cellName]
	if !exists {
		return 0, fmt.Errorf("cell %s is empty", cellName)
	}
	switch v := cell.Value.(type) {
	case float64:
		return v, nil
	case *SpreadsheetError:
		return 0, fmt.Errorf("cell %s has error %s", cellName, v.Code())
	}
	return 0, fmt.Errorf("cell %s does not hold a number", cellName)
}

// GetCellContents returns the content of the cell: a string, a float64, or a
// *Formula. an empty cell returns "".
func (s *Spreadsheet) GetCellContents(name string) (Primitive, error) {
	cellName, err := s.cellName(name)
	if err != nil {
		return nil, err
	}
	cell, exists := s.cells[cellName]
	if !exists {
		return "", nil
	}
	return cell.Content, nil
}

// GetCellValue returns the value of the cell: a string, a float64, or a
// *SpreadsheetError. an empty cell returns "".
func (s *Spreadsheet) GetCellValue(name string) (Primitive, error) {
	cellName, err := s.cellName(name)
	if err != nil {
		return nil, err
	}
	cell, exists := s.cells[cellName]
	if !exists {
		return "", nil
	}
	return cell.Value, nil
}

// GetCellType returns the kind of content stored in the cell
func (s *Spreadsheet) GetCellType(name string) (CellType, error) {
	cellName, err := s.cellName(name)
	if err != nil {
		return CellValueTypeEmpty, err
	}
	cell, exists := s.cells[cellName]
	if !exists {
		return CellValueTypeEmpty, nil
	}
	return cell.Type, nil
}

// NonEmptyCells returns the names of all non-empty cells, sorted
func (s *Spreadsheet) NonEmptyCells() []string {
	return slices.Sorted(maps.Keys(s.cells))
}

// DirectDependents returns the cells whose formulas reference name directly
func (s *Spreadsheet) DirectDependents(name string) ([]string, error) {
	cellName, err := s.cellName(name)
	if err != nil {
		return nil, err
	}
	return s.graph.Dependents(cellName), nil
}

// DirectDependees returns the cells referenced by the formula in name
func (s *Spreadsheet) DirectDependees(name string) ([]string, error) {
	cellName, err := s.cellName(name)
	if err != nil {
		return nil, err
	}
	return s.graph.Dependees(cellName), nil
}

// StringForm returns the content of the cell the way SetContentsOfCell
// accepts it back
func (s *Spreadsheet) StringForm(name string) (string, error) {
	cellName, err := s.cellName(name)
	if err != nil {
		return "", err
	}
	cell, exists := s.cells[cellName]
	if !exists {
		return "", nil
	}
	return cell.StringForm(), nil
}

// Changed reports whether the spreadsheet was modified since it was created,
// loaded or saved
func (s *Spreadsheet) Changed() bool {
	return s.changed
}

// Version returns the version string written to saved files
func (s *Spreadsheet) Version() string {
	return s.version
}

// ID returns the document id written to saved files
func (s *Spreadsheet) ID() string {
	return s.id
}

// GetDependencyGraph returns the dependency graph. callers must not modify it.
func (s *Spreadsheet) GetDependencyGraph() *DependencyGraph {
	return s.graph
}

// RunnableSpreadsheet provides a chainable interface for
// spreadsheet operations. wraps the standard Spreadsheet and tracks
// errors internally
type RunnableSpreadsheet struct {
	spreadsheet *Spreadsheet
	err         error
	lastOrder   []string
	printLn     func(string)
}

// NewRunnableSpreadsheet creates a new RunnableSpreadsheet. printLn is
// required and will be used for all logging operations (Log, CheckError)
func NewRunnableSpreadsheet(printLn func(string), opts ...Option) *RunnableSpreadsheet {
	return WrapRunnable(NewSpreadsheet(opts...), printLn)
}

// WrapRunnable builds a RunnableSpreadsheet around an existing spreadsheet
func WrapRunnable(s *Spreadsheet, printLn func(string)) *RunnableSpreadsheet {
	return &RunnableSpreadsheet{
		spreadsheet: s,
		err:         nil,
		printLn:     printLn,
	}
}

// Set sets a cell content (chainable)
func (r *RunnableSpreadsheet) Set(name, content string) *RunnableSpreadsheet {
	if r.err != nil {
		return r // no-op if there's already an error
	}
	r.lastOrder, r.err = r.spreadsheet.SetContentsOfCell(name, content)
	return r
}

// Remove empties a cell (chainable)
func (r *RunnableSpreadsheet) Remove(name string) *RunnableSpreadsheet {
	return r.Set(name, "")
}

// LastOrder returns the recalculation order of the last successful Set
func (r *RunnableSpreadsheet) LastOrder() []string {
	return r.lastOrder
}

// Run returns the spreadsheet and any error. typically the last method in
// the chain
func (r *RunnableSpreadsheet) Run() (*Spreadsheet, error) {
	if r.err != nil {
		return nil, r.err
	}
	return r.spreadsheet, nil
}

// RunOrPanic returns the spreadsheet and panics if there's an
// error. useful for examples and tests where you want to fail fast
func (r *RunnableSpreadsheet) RunOrPanic() *Spreadsheet {
	spreadsheet, err := r.Run()
	if err != nil {
		panic(err)
	}
	return spreadsheet
}

// Error returns the current error state
func (r *RunnableSpreadsheet) Error() error {
	return r.err
}

// CheckError logs the current error using the PrintLn function (chainable)
func (r *RunnableSpreadsheet) CheckError() *RunnableSpreadsheet {
	if r.err != nil {
		r.printLn(fmt.Sprintf("ERROR: %v", r.err))
	} else {
		r.printLn("No errors")
	}
	return r
}

// Reset clears the error state (chainable)
func (r *RunnableSpreadsheet) Reset() *RunnableSpreadsheet {
	r.err = nil
	return r
}

// Must panics if there's an error (chainable). useful for ensuring
// critical operations succeed
func (r *RunnableSpreadsheet) Must() *RunnableSpreadsheet {
	if r.err != nil {
		panic(r.err)
	}
	return r
}

// SetBatch sets multiple cells at once in name order (chainable)
func (r *RunnableSpreadsheet) SetBatch(cells map[string]string) *RunnableSpreadsheet {
	for _, name := range slices.Sorted(maps.Keys(cells)) {
		if r.Set(name, cells[name]); r.err != nil {
			return r
		}
	}
	return r
}

// Value is a helper to get a single value from the chain.
// example: val := NewRunnableSpreadsheet(fn).Set("A1", "10").Set("A2", "=A1*2").Value("A2")
func (r *RunnableSpreadsheet) Value(name string) Primitive {
	if r.err != nil {
		return nil
	}

	val, err := r.spreadsheet.GetCellValue(name)
	if err != nil {
		r.err = err
		return nil
	}
	return val
}

// Values is a helper to get multiple values from the chain
func (r *RunnableSpreadsheet) Values(names ...string) []Primitive {
	if r.err != nil {
		return nil
	}

	values := make([]Primitive, len(names))
	for i, name := range names {
		val, err := r.spreadsheet.GetCellValue(name)
		if err != nil {
			r.err = err
			return nil
		}
		values[i] = val
	}
	return values
}

// Log logs the value of a cell using the provided PrintLn function (chainable)
func (r *RunnableSpreadsheet) Log(name string) *RunnableSpreadsheet {
	if r.err != nil {
		return r // no-op if there's already an error
	}

	val, err := r.spreadsheet.GetCellValue(name)
	if err != nil {
		r.err = err
		return r
	}

	// fmt the output
	var output string
	if val == "" {
		output = fmt.Sprintf("%s: <empty>", name)
	} else {
		output = fmt.Sprintf("%s: %s", name, FormatValue(val))
	}

	r.printLn(output)
	return r
}
