package spreadsheet

import (
	"errors"
	"fmt"
	"hash/fnv"
	"slices"
	"strconv"
	"strings"
)

// FormulaPrefix marks cell content that should be parsed as a formula
const FormulaPrefix = "="

// FormatRule names the grammar rule a rejected formula broke
type FormatRule int

const (
	RuleOneToken FormatRule = iota + 1
	RuleStartingToken
	RuleEndingToken
	RuleParsing
	RuleParenOperatorFollowing
	RuleExtraFollowing
	RuleRightParentheses
	RuleBalancedParentheses
)

var formatRuleNames = map[FormatRule]string{
	RuleOneToken:               "One Token Rule",
	RuleStartingToken:          "Starting Token Rule",
	RuleEndingToken:            "Ending Token Rule",
	RuleParsing:                "Parsing Rule",
	RuleParenOperatorFollowing: "Parenthesis/Operator Following Rule",
	RuleExtraFollowing:         "Extra Following Rule",
	RuleRightParentheses:       "Right Parentheses Rule",
	RuleBalancedParentheses:    "Balanced Parentheses Rule",
}

func (r FormatRule) String() string {
	if name, ok := formatRuleNames[r]; ok {
		return name
	}
	return "Unknown Rule"
}

// FormatError reports a syntactically invalid formula
type FormatError struct {
	Rule    FormatRule
	Token   string // offending token, empty for whole-formula rules
	Message string
}

func (e *FormatError) Error() string {
	if e.Token != "" {
		return fmt.Sprintf("%s: %s (at %q)", e.Rule, e.Message, e.Token)
	}
	return fmt.Sprintf("%s: %s", e.Rule, e.Message)
}

func newFormatError(rule FormatRule, token, message string) *FormatError {
	return &FormatError{Rule: rule, Token: token, Message: message}
}

// IsFormatError reports whether err carries a *FormatError for rule
func IsFormatError(err error, rule FormatRule) bool {
	var fe *FormatError
	return errors.As(err, &fe) && fe.Rule == rule
}

// Formula is an immutable, validated infix expression over non-negative
// numbers, variables, parentheses and the operators + - * /. it keeps the
// raw tokens as typed, classified once when the formula is built.
type Formula struct {
	tokens []string
	kinds  []TokenKind
	names  []string // normalized variable, "" for every other token
}

func identity(s string) string { return s }

func acceptAll(string) bool { return true }

// ParseFormula builds a formula with the identity normalizer and a validator
// that accepts every variable
func ParseFormula(formula string) (*Formula, error) {
	return NewFormula(formula, identity, acceptAll)
}

// NewFormula validates formula and returns it, or returns a *FormatError
// naming the first rule that failed. nil normalize/validate mean identity
// and accept-all. normalize and validate are not kept.
func NewFormula(formula string, normalize func(string) string, validate func(string) bool) (*Formula, error) {
	if normalize == nil {
		normalize = identity
	}
	if validate == nil {
		validate = acceptAll
	}

	tokens := slices.Collect(Tokens(formula))
	f := &Formula{
		tokens: tokens,
		kinds:  make([]TokenKind, len(tokens)),
		names:  make([]string, len(tokens)),
	}
	for i, token := range tokens {
		f.kinds[i], f.names[i] = classify(token, normalize, validate)
	}
	if err := f.check(); err != nil {
		return nil, err
	}
	return f, nil
}

// check enforces the grammar in one left to right pass plus the boundary
// rules
func (f *Formula) check() error {
	if len(f.tokens) == 0 {
		return newFormatError(RuleOneToken, "", "there must be at least one token")
	}

	if k := f.kinds[0]; k != TokenNumber && k != TokenVariable && k != TokenLeftParen {
		return newFormatError(RuleStartingToken, f.tokens[0],
			"the first token must be a number, a variable, or an opening parenthesis")
	}

	lastIdx := len(f.tokens) - 1
	if k := f.kinds[lastIdx]; k != TokenNumber && k != TokenVariable && k != TokenRightParen {
		return newFormatError(RuleEndingToken, f.tokens[lastIdx],
			"the last token must be a number, a variable, or a closing parenthesis")
	}

	var (
		open, closed int
		prev         = TokenUnknown
		havePrev     bool
	)
	for i, token := range f.tokens {
		kind := f.kinds[i]
		if kind == TokenUnknown {
			return newFormatError(RuleParsing, token,
				"tokens must be (, ), +, -, *, /, valid variables, or decimal real numbers")
		}

		if havePrev {
			switch prev {
			case TokenLeftParen, TokenOperator:
				if kind != TokenNumber && kind != TokenVariable && kind != TokenLeftParen {
					return newFormatError(RuleParenOperatorFollowing, token,
						"a token following an opening parenthesis or an operator must be a number, a variable, or an opening parenthesis")
				}
			case TokenNumber, TokenVariable, TokenRightParen:
				if kind != TokenOperator && kind != TokenRightParen {
					return newFormatError(RuleExtraFollowing, token,
						"a token following a number, a variable, or a closing parenthesis must be an operator or a closing parenthesis")
				}
			}
		}

		switch kind {
		case TokenLeftParen:
			open++
		case TokenRightParen:
			closed++
		}
		if closed > open {
			return newFormatError(RuleRightParentheses, token,
				"closing parentheses may never outnumber opening parentheses")
		}

		prev, havePrev = kind, true
	}

	if open != closed {
		return newFormatError(RuleBalancedParentheses, "",
			fmt.Sprintf("%d opening and %d closing parentheses", open, closed))
	}
	return nil
}

// classify returns the kind of token and, for a variable, its normalized
// form. a variable whose normalized form is rejected is not a variable at
// all.
func classify(token string, normalize func(string) string, validate func(string) bool) (TokenKind, string) {
	switch {
	case token == charLParen:
		return TokenLeftParen, ""
	case token == charRParen:
		return TokenRightParen, ""
	case isOperator(token):
		return TokenOperator, ""
	case isNumber(token):
		return TokenNumber, ""
	}
	if !isVariableShape(token) {
		return TokenUnknown, ""
	}
	normalized := normalize(token)
	if !isVariableShape(normalized) || !validate(normalized) {
		return TokenUnknown, ""
	}
	return TokenVariable, normalized
}

// isNumber accepts decimal and scientific literals. values that overflow
// float64 still count as numbers and evaluate to +Inf.
func isNumber(token string) bool {
	_, ok := parseNumber(token)
	return ok
}

func parseNumber(token string) (float64, bool) {
	if !numberExact.MatchString(token) {
		return 0, false
	}
	v, err := strconv.ParseFloat(token, 64)
	if err != nil && !errors.Is(err, strconv.ErrRange) {
		return 0, false
	}
	return v, true
}

// Variables returns the normalized variables of the formula without
// duplicates, in order of first appearance
func (f *Formula) Variables() []string {
	seen := make(map[string]struct{})
	var result []string
	for i, kind := range f.kinds {
		if kind != TokenVariable {
			continue
		}
		name := f.names[i]
		if _, exists := seen[name]; exists {
			continue
		}
		seen[name] = struct{}{}
		result = append(result, name)
	}
	return result
}

// String returns the formula without spaces and with normalized variables.
// parsing it again with the same normalizer and validator gives an equal
// formula.
func (f *Formula) String() string {
	var sb strings.Builder
	for i, token := range f.tokens {
		if f.kinds[i] == TokenVariable {
			sb.WriteString(f.names[i])
		} else {
			sb.WriteString(token)
		}
	}
	return sb.String()
}

// Tokens returns a copy of the raw tokens as typed
func (f *Formula) Tokens() []string {
	return slices.Clone(f.tokens)
}

// Equal reports whether both formulas have the same tokens in the same
// order. numbers compare by value, variables by their normalized forms.
func (f *Formula) Equal(other *Formula) bool {
	if f == nil || other == nil {
		return false
	}
	if len(f.tokens) != len(other.tokens) {
		return false
	}
	for i, token := range f.tokens {
		otherToken := other.tokens[i]
		kind := f.kinds[i]
		if kind != other.kinds[i] {
			return false
		}
		switch kind {
		case TokenNumber:
			a, _ := parseNumber(token)
			b, _ := parseNumber(otherToken)
			if a != b {
				return false
			}
		case TokenVariable:
			if f.names[i] != other.names[i] {
				return false
			}
		default:
			if token != otherToken {
				return false
			}
		}
	}
	return true
}

// Hash is consistent with Equal. it depends on token order, so a+b and b+a
// usually hash differently.
func (f *Formula) Hash() uint64 {
	var sum uint64
	for i := range f.tokens {
		h := fnv.New64a()
		h.Write([]byte(f.canonical(i)))
		sum += uint64(i+1) * h.Sum64()
	}
	return sum
}

// canonical is the form of the i-th token used for hashing
func (f *Formula) canonical(i int) string {
	switch f.kinds[i] {
	case TokenNumber:
		v, _ := parseNumber(f.tokens[i])
		return formatNumber(v)
	case TokenVariable:
		return f.names[i]
	}
	return f.tokens[i]
}
