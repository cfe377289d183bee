package filter

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func compile(t *testing.T, source string) *Expression {
	t.Helper()

	expression, err := Compile(source)
	require.NoError(t, err)
	return expression
}

func TestCompile(t *testing.T) {
	t.Run("empty expression always evaluates true", func(t *testing.T) {
		expression := compile(t, "")

		assert.True(t, expression.Evaluate(nil))
	})

	t.Run("rejects a dangling operator", func(t *testing.T) {
		_, err := Compile("value >")

		assert.ErrorIs(t, err, ErrExpression)
	})

	t.Run("rejects a lone identifier", func(t *testing.T) {
		_, err := Compile("value")

		assert.ErrorIs(t, err, ErrExpression)
	})

	t.Run("rejects an unterminated string", func(t *testing.T) {
		_, err := Compile(`to == "0xabc`)

		assert.ErrorIs(t, err, ErrExpression)
	})

	t.Run("rejects a missing closing parenthesis", func(t *testing.T) {
		_, err := Compile("(value > 1 AND value < 2")

		assert.ErrorIs(t, err, ErrExpression)
	})

	t.Run("rejects contains with a numeric literal", func(t *testing.T) {
		_, err := Compile("to contains 42")

		assert.ErrorIs(t, err, ErrExpression)
	})

	t.Run("rejects ordering on a boolean literal", func(t *testing.T) {
		_, err := Compile("flag > true")

		assert.ErrorIs(t, err, ErrExpression)
	})

	t.Run("rejects trailing garbage", func(t *testing.T) {
		_, err := Compile("value > 1 value")

		assert.ErrorIs(t, err, ErrExpression)
	})
}

func TestExpression_Evaluate_Numbers(t *testing.T) {
	params := map[string]string{"value": "20000000000"}

	t.Run("greater than", func(t *testing.T) {
		assert.True(t, compile(t, "value > 10000000000").Evaluate(params))
		assert.False(t, compile(t, "value > 20000000000").Evaluate(params))
	})

	t.Run("full ordering operator set", func(t *testing.T) {
		assert.True(t, compile(t, "value >= 20000000000").Evaluate(params))
		assert.True(t, compile(t, "value <= 20000000000").Evaluate(params))
		assert.True(t, compile(t, "value == 20000000000").Evaluate(params))
		assert.True(t, compile(t, "value != 1").Evaluate(params))
		assert.True(t, compile(t, "value < 30000000000").Evaluate(params))
		assert.False(t, compile(t, "value < 20000000000").Evaluate(params))
	})

	t.Run("big-integer semantics beyond 64 bits", func(t *testing.T) {
		wide := map[string]string{"value": "79228162514264337593543950336"} // 2^96

		assert.True(t, compile(t, "value > 18446744073709551615").Evaluate(wide))
		assert.True(t, compile(t, "value == 79228162514264337593543950336").Evaluate(wide))
	})

	t.Run("hex literals compare numerically", func(t *testing.T) {
		assert.True(t, compile(t, "value == 0x4a817c800").Evaluate(map[string]string{"value": "20000000000"}))
	})

	t.Run("non-numeric parameter value never matches", func(t *testing.T) {
		assert.False(t, compile(t, "value > 1").Evaluate(map[string]string{"value": "not-a-number"}))
	})
}

func TestExpression_Evaluate_Strings(t *testing.T) {
	params := map[string]string{
		"to":     "0xDAC17F958D2ee523a2206206994597C13D831ec7",
		"symbol": "USDT",
	}

	t.Run("hex addresses compare case-insensitively", func(t *testing.T) {
		assert.True(t, compile(t, `to == "0xdac17f958d2ee523a2206206994597c13d831ec7"`).Evaluate(params))
	})

	t.Run("plain strings compare byte-wise", func(t *testing.T) {
		assert.True(t, compile(t, `symbol == "USDT"`).Evaluate(params))
		assert.False(t, compile(t, `symbol == "usdt"`).Evaluate(params))
	})

	t.Run("contains starts_with ends_with", func(t *testing.T) {
		assert.True(t, compile(t, `symbol contains "SD"`).Evaluate(params))
		assert.True(t, compile(t, `symbol starts_with "US"`).Evaluate(params))
		assert.True(t, compile(t, `symbol ends_with "DT"`).Evaluate(params))
		assert.False(t, compile(t, `symbol starts_with "DT"`).Evaluate(params))
	})
}

func TestExpression_Evaluate_Booleans(t *testing.T) {
	t.Run("equality on boolean parameters", func(t *testing.T) {
		params := map[string]string{"approved": "true"}

		assert.True(t, compile(t, "approved == true").Evaluate(params))
		assert.False(t, compile(t, "approved == false").Evaluate(params))
		assert.True(t, compile(t, "approved != false").Evaluate(params))
	})
}

func TestExpression_Evaluate_Combinators(t *testing.T) {
	params := map[string]string{"value": "100", "status": "success"}

	t.Run("AND requires both sides", func(t *testing.T) {
		assert.True(t, compile(t, `value > 50 AND status == "success"`).Evaluate(params))
		assert.False(t, compile(t, `value > 500 AND status == "success"`).Evaluate(params))
	})

	t.Run("OR requires either side", func(t *testing.T) {
		assert.True(t, compile(t, `value > 500 OR status == "success"`).Evaluate(params))
		assert.False(t, compile(t, `value > 500 OR status == "failure"`).Evaluate(params))
	})

	t.Run("parentheses override precedence", func(t *testing.T) {
		expression := compile(t, `value > 500 AND (status == "success" OR value == 100)`)
		assert.False(t, expression.Evaluate(params))

		expression = compile(t, `(value > 500 AND status == "success") OR value == 100`)
		assert.True(t, expression.Evaluate(params))
	})

	t.Run("AND binds tighter than OR", func(t *testing.T) {
		// a OR b AND c parses as a OR (b AND c)
		expression := compile(t, `value == 100 OR value == 1 AND status == "failure"`)
		assert.True(t, expression.Evaluate(params))
	})
}

func TestExpression_Evaluate_UndefinedIdentifier(t *testing.T) {
	t.Run("undefined identifier evaluates false without raising", func(t *testing.T) {
		assert.False(t, compile(t, "missing > 1").Evaluate(map[string]string{}))
	})

	t.Run("undefined identifier on one OR branch does not poison the other", func(t *testing.T) {
		params := map[string]string{"value": "5"}
		assert.True(t, compile(t, "missing > 1 OR value == 5").Evaluate(params))
	})

	t.Run("positional identifiers resolve like names", func(t *testing.T) {
		params := map[string]string{"2": "2000"}
		assert.True(t, compile(t, "2 > 1000").Evaluate(params))
		assert.False(t, compile(t, "2 > 5000").Evaluate(params))
	})
}
