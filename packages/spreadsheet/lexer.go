package spreadsheet

import (
	"iter"
	"regexp"
	"strings"
)

// TokenKind classifies a raw formula token
type TokenKind int

const (
	TokenUnknown TokenKind = iota
	TokenNumber
	TokenVariable
	TokenOperator
	TokenLeftParen
	TokenRightParen
)

func (k TokenKind) String() string {
	switch k {
	case TokenNumber:
		return "number"
	case TokenVariable:
		return "variable"
	case TokenOperator:
		return "operator"
	case TokenLeftParen:
		return "left paren"
	case TokenRightParen:
		return "right paren"
	default:
		return "unknown"
	}
}

// character classification constants. slightly easier to read.
const (
	charLParen   = "("
	charRParen   = ")"
	charPlus     = "+"
	charMinus    = "-"
	charAsterisk = "*"
	charSlash    = "/"
)

// token patterns. the lexer splits on the union of all of them and returns
// whatever is left between matches as well, so unrecognized input survives
// until the grammar check rejects it.
const (
	lParenPattern   = `\(`
	rParenPattern   = `\)`
	operatorPattern = `[\+\-*/]`
	variablePattern = `[a-zA-Z_](?:[a-zA-Z_]|\d)*`
	numberPattern   = `(?:\d+\.\d*|\d*\.\d+|\d+)(?:[eE][\+-]?\d+)?`
	spacePattern    = `\s+`
)

var (
	tokenSplitter = regexp.MustCompile(
		"(" + lParenPattern + ")|(" + rParenPattern + ")|(" + operatorPattern + ")|(" +
			variablePattern + ")|(" + numberPattern + ")|(" + spacePattern + ")")
	variableExact = regexp.MustCompile(`^` + variablePattern + `$`)
	numberExact   = regexp.MustCompile(`^` + numberPattern + `$`)
)

// Tokens returns the tokens of a formula as a lazy sequence. each range over
// the sequence rescans the input, so it can be consumed any number of times.
// whitespace is dropped and no token ever contains whitespace.
func Tokens(formula string) iter.Seq[string] {
	return func(yield func(string) bool) {
		pos := 0
		for _, loc := range tokenSplitter.FindAllStringIndex(formula, -1) {
			// anything between two recognized tokens is passed through as is
			if loc[0] > pos {
				if !emit(formula[pos:loc[0]], yield) {
					return
				}
			}
			if !emit(formula[loc[0]:loc[1]], yield) {
				return
			}
			pos = loc[1]
		}
		if pos < len(formula) {
			emit(formula[pos:], yield)
		}
	}
}

// emit yields a trimmed fragment unless it is whitespace only. returns false
// once the consumer stops iterating.
func emit(fragment string, yield func(string) bool) bool {
	trimmed := strings.TrimSpace(fragment)
	if trimmed == "" {
		return true
	}
	return yield(trimmed)
}

// isOperator checks for one of the four arithmetic operators
func isOperator(token string) bool {
	switch token {
	case charPlus, charMinus, charAsterisk, charSlash:
		return true
	}
	return false
}

// isVariableShape checks the lexical variable grammar only
func isVariableShape(token string) bool {
	return variableExact.MatchString(token)
}
