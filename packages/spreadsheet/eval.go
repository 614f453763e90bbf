package spreadsheet

// Lookup resolves a normalized variable name to its numeric value, or
// returns an error when the name has no usable value
type Lookup func(name string) (float64, error)

// evalState holds the two stacks of a single evaluation
type evalState struct {
	values    []float64
	operators []string
}

func (s *evalState) pushValue(v float64) {
	s.values = append(s.values, v)
}

func (s *evalState) pushOperator(op string) {
	s.operators = append(s.operators, op)
}

// onTop checks that an operation is possible and the top operator is one of
// the given ones
func (s *evalState) onTop(a, b string) bool {
	if len(s.values) < 2 || len(s.operators) == 0 {
		return false
	}
	top := s.operators[len(s.operators)-1]
	return top == a || top == b
}

// apply pops two values and one operator and pushes the result. the value
// popped first is the right operand of the textual expression.
func (s *evalState) apply() *SpreadsheetError {
	n := len(s.values)
	right := s.values[n-1]
	left := s.values[n-2]
	s.values = s.values[:n-2]

	op := s.operators[len(s.operators)-1]
	s.operators = s.operators[:len(s.operators)-1]

	var result float64
	switch op {
	case charPlus:
		result = left + right
	case charMinus:
		result = left - right
	case charAsterisk:
		result = left * right
	case charSlash:
		if right == 0 {
			return NewSpreadsheetError(ErrorCodeDiv0, "division by zero")
		}
		result = left / right
	default:
		return NewSpreadsheetError(ErrorCodeValue, "unknown operator "+op)
	}
	s.pushValue(result)
	return nil
}

// pushOperand pushes a value and eagerly applies a pending * or /
func (s *evalState) pushOperand(v float64) *SpreadsheetError {
	s.pushValue(v)
	if s.onTop(charAsterisk, charSlash) {
		return s.apply()
	}
	return nil
}

// Evaluate computes the formula, resolving variables through lookup with
// their normalized names. the result is either a float64 or a
// *SpreadsheetError; Evaluate never panics on a constructed formula.
func (f *Formula) Evaluate(lookup Lookup) Primitive {
	state := &evalState{}

	for i, token := range f.tokens {
		switch f.kinds[i] {
		case TokenNumber:
			v, _ := parseNumber(token)
			if err := state.pushOperand(v); err != nil {
				return err
			}

		case TokenVariable:
			if lookup == nil {
				return NewSpreadsheetError(ErrorCodeName, "no lookup for variable "+f.names[i])
			}
			v, lookupErr := lookup(f.names[i])
			if lookupErr != nil {
				return NewSpreadsheetError(ErrorCodeName, lookupErr.Error())
			}
			if err := state.pushOperand(v); err != nil {
				return err
			}

		case TokenOperator:
			if token == charPlus || token == charMinus {
				if state.onTop(charPlus, charMinus) {
					if err := state.apply(); err != nil {
						return err
					}
				}
			}
			state.pushOperator(token)

		case TokenLeftParen:
			state.pushOperator(token)

		case TokenRightParen:
			if state.onTop(charPlus, charMinus) {
				if err := state.apply(); err != nil {
					return err
				}
			}
			if len(state.operators) == 0 || state.operators[len(state.operators)-1] != charLParen {
				return NewSpreadsheetError(ErrorCodeValue, "unmatched closing parenthesis")
			}
			state.operators = state.operators[:len(state.operators)-1]
			if state.onTop(charAsterisk, charSlash) {
				if err := state.apply(); err != nil {
					return err
				}
			}

		default:
			return NewSpreadsheetError(ErrorCodeValue, "invalid token "+token)
		}
	}

	switch {
	case len(state.operators) == 0 && len(state.values) == 1:
		return state.values[0]
	case len(state.operators) == 1 && len(state.values) == 2:
		if err := state.apply(); err != nil {
			return err
		}
		return state.values[0]
	}
	return NewSpreadsheetError(ErrorCodeValue, "formula could not be evaluated")
}
