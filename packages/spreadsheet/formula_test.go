package spreadsheet

import (
	"regexp"
	"strings"
	"testing"
	"unicode"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var letterDigits = regexp.MustCompile(`^[A-Za-z]+[0-9]+$`)

func isCellLike(s string) bool {
	return letterDigits.MatchString(s)
}

// lowerFirst lowercases the first letter when the name has any uppercase
func lowerFirst(s string) string {
	for _, r := range s {
		if unicode.IsUpper(r) {
			return strings.ToLower(s[:1]) + s[1:]
		}
	}
	return s
}

func TestFormulaRules(t *testing.T) {
	tests := []struct {
		formula string
		rule    FormatRule
	}{
		{"", RuleOneToken},
		{"   ", RuleOneToken},
		{"+1", RuleStartingToken},
		{")+1+10*2", RuleStartingToken},
		{"1+", RuleEndingToken},
		{"1+10*2+(", RuleEndingToken},
		{"1 $ 2", RuleParsing},
		{"x + 2 # 3", RuleParsing},
		{"(+1)", RuleParenOperatorFollowing},
		{"(1+2++5*(6+9)", RuleParenOperatorFollowing},
		{"1 2", RuleExtraFollowing},
		{"(1+2+5(6+9)", RuleExtraFollowing},
		{"(1+2+5.(6+9)", RuleExtraFollowing},
		{"5+(1+2))+10", RuleRightParentheses},
		{"(1))+(2", RuleRightParentheses},
		{"A1+(B1", RuleBalancedParentheses},
		{"5+((1+2*10)", RuleBalancedParentheses},
		{"(1+2+5*(6+9)", RuleBalancedParentheses},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			f, err := ParseFormula(tt.formula)
			require.Error(t, err)
			assert.Nil(t, f)

			var fe *FormatError
			require.ErrorAs(t, err, &fe)
			assert.Equal(t, tt.rule, fe.Rule, "error: %v", err)
			assert.True(t, IsFormatError(err, tt.rule))
			assert.Contains(t, err.Error(), tt.rule.String())
		})
	}
}

func TestFormulaValid(t *testing.T) {
	formulas := []string{
		"1",
		"x1+x2+0.123",
		"__+x2+0.123",
		"_1+x2+0.123",
		"_+x2+0.123",
		"(((x)))",
		"2.5e3 * (y - .5) / 2.",
		"1e400",
	}

	for _, formula := range formulas {
		t.Run(formula, func(t *testing.T) {
			f, err := ParseFormula(formula)
			require.NoError(t, err)
			assert.NotNil(t, f)
		})
	}
}

func TestFormulaValidator(t *testing.T) {
	t.Run("validator rejects a variable", func(t *testing.T) {
		_, err := NewFormula("A1+_2+0.123", lowerFirst, isCellLike)
		assert.True(t, IsFormatError(err, RuleParsing), "error: %v", err)
	})

	t.Run("validator sees the normalized name", func(t *testing.T) {
		onlyUpper := func(s string) bool { return s == "X" }
		_, err := NewFormula("x+1", strings.ToUpper, onlyUpper)
		assert.NoError(t, err)

		_, err = NewFormula("x+y+1", strings.ToUpper, onlyUpper)
		var fe *FormatError
		require.ErrorAs(t, err, &fe)
		assert.Equal(t, RuleParsing, fe.Rule)
		assert.Equal(t, "y", fe.Token)
	})

	t.Run("normalized name must still be a variable", func(t *testing.T) {
		prefixDigit := func(s string) string { return "1" + s }
		_, err := NewFormula("1+a", prefixDigit, nil)
		assert.True(t, IsFormatError(err, RuleEndingToken), "error: %v", err)
	})

	t.Run("nil normalizer and validator", func(t *testing.T) {
		f, err := NewFormula("a+B", nil, nil)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "B"}, f.Variables())
	})
}

func TestFormulaString(t *testing.T) {
	tests := []struct {
		formula  string
		expected string
	}{
		{"1 + 2", "1+2"},
		{"x + y*2", "X+Y*2"},
		{" ( a1 - 2.000 ) / 1e2 ", "(A1-2.000)/1e2"},
	}

	for _, tt := range tests {
		t.Run(tt.formula, func(t *testing.T) {
			f, err := NewFormula(tt.formula, strings.ToUpper, nil)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, f.String())

			again, err := NewFormula(f.String(), strings.ToUpper, nil)
			require.NoError(t, err)
			assert.True(t, f.Equal(again))
			assert.Equal(t, f.Hash(), again.Hash())
		})
	}
}

func TestFormulaEqual(t *testing.T) {
	mustParse := func(formula string, normalize func(string) string, validate func(string) bool) *Formula {
		t.Helper()
		f, err := NewFormula(formula, normalize, validate)
		require.NoError(t, err)
		return f
	}

	t.Run("numbers compare by value", func(t *testing.T) {
		a := mustParse("2.0 + x", nil, nil)
		b := mustParse("2.000+x", nil, nil)
		c := mustParse("2+x", nil, nil)
		d := mustParse("200e-2+x", nil, nil)
		for _, other := range []*Formula{b, c, d} {
			assert.True(t, a.Equal(other), "%s vs %s", a, other)
			assert.Equal(t, a.Hash(), other.Hash(), "%s vs %s", a, other)
		}
	})

	t.Run("each side uses its own normalizer", func(t *testing.T) {
		a := mustParse("X1+X2+0.123", lowerFirst, isCellLike)
		b := mustParse("x1+x2+0.123000", lowerFirst, isCellLike)
		c := mustParse("x1+x2+0.123000", nil, nil)
		assert.True(t, a.Equal(b))
		assert.True(t, a.Equal(c))
		assert.Equal(t, a.Hash(), b.Hash())
		assert.Equal(t, a.Hash(), c.Hash())

		upper := mustParse("x", nil, nil)
		plain := mustParse("X", nil, nil)
		assert.False(t, upper.Equal(plain))
	})

	t.Run("order matters", func(t *testing.T) {
		a := mustParse("X1+X2+0.123", lowerFirst, isCellLike)
		b := mustParse("X1+0.123+X2", lowerFirst, isCellLike)
		assert.False(t, a.Equal(b))
		assert.NotEqual(t, a.Hash(), b.Hash())

		xy := mustParse("x+y", nil, nil)
		yx := mustParse("y+x", nil, nil)
		assert.False(t, xy.Equal(yx))
		assert.NotEqual(t, xy.Hash(), yx.Hash())
	})

	t.Run("hash matches across number spellings", func(t *testing.T) {
		a := mustParse("X1+X2+0.1230+1", lowerFirst, isCellLike)
		b := mustParse("x1+x2+0.123+1.00", lowerFirst, isCellLike)
		assert.Equal(t, a.Hash(), b.Hash())
	})

	t.Run("different formulas", func(t *testing.T) {
		a := mustParse("A1+a1+b2+5+7+8+9.01*5*(1+2+3+4+5)", lowerFirst, isCellLike)
		b := mustParse("a1+a1+b2+5+7+8+9.01*5*(5+2+3+4+1)", nil, nil)
		assert.False(t, a.Equal(b))
		assert.NotEqual(t, a.Hash(), b.Hash())
	})

	t.Run("nil is never equal", func(t *testing.T) {
		a := mustParse("a1+2", nil, nil)
		assert.False(t, a.Equal(nil))
		var none *Formula
		assert.False(t, none.Equal(a))
	})

	t.Run("kinds must match", func(t *testing.T) {
		a := mustParse("(1)", nil, nil)
		b := mustParse("1+1", nil, nil)
		assert.False(t, a.Equal(b))
	})
}

func TestFormulaVariables(t *testing.T) {
	f, err := NewFormula("A1+a1+b2+5+7+8+9.01", lowerFirst, isCellLike)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "b2"}, f.Variables())

	f, err = ParseFormula("A1+a1+b2+5+7+8+9.01")
	require.NoError(t, err)
	assert.Equal(t, []string{"A1", "a1", "b2"}, f.Variables())

	f, err = ParseFormula("1+2")
	require.NoError(t, err)
	assert.Empty(t, f.Variables())
}

func TestFormulaTokensAreCopied(t *testing.T) {
	f, err := ParseFormula("a + 1")
	require.NoError(t, err)

	tokens := f.Tokens()
	tokens[0] = "zzz"
	assert.Equal(t, []string{"a", "+", "1"}, f.Tokens())
	assert.Equal(t, "a+1", f.String())
}

func TestFormulaClassifiesOnce(t *testing.T) {
	normalized, validated := 0, 0
	normalize := func(s string) string { normalized++; return strings.ToUpper(s) }
	validate := func(s string) bool { validated++; return isCellLike(s) }

	f, err := NewFormula("a1 + b2 * (a1 - 3)", normalize, validate)
	require.NoError(t, err)
	assert.Equal(t, 3, normalized)
	assert.Equal(t, 3, validated)

	other, err := ParseFormula("A1+B2*(A1-3)")
	require.NoError(t, err)

	assert.Equal(t, "A1+B2*(A1-3)", f.String())
	assert.Equal(t, []string{"A1", "B2"}, f.Variables())
	assert.True(t, f.Equal(other))
	assert.Equal(t, other.Hash(), f.Hash())
	assert.Equal(t, -5.0, f.Evaluate(func(name string) (float64, error) {
		return map[string]float64{"A1": 1, "B2": 3}[name], nil
	}))

	assert.Equal(t, 3, normalized, "normalizer ran after construction")
	assert.Equal(t, 3, validated, "validator ran after construction")
}
