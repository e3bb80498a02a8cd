package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParseHelpers(t *testing.T) {
	t.Run("empty and malformed values fold to zero", func(t *testing.T) {
		assert.True(t, parseDecimal("").IsZero())
		assert.True(t, parseDecimal("abc").IsZero())
		assert.Zero(t, parseInt(""))
		assert.Zero(t, parseInt("4.5"))
		assert.Zero(t, parseFloat("n/a"))
	})

	t.Run("negative inventory passes through", func(t *testing.T) {
		assert.Equal(t, -1, parseInt("-1"))
	})

	t.Run("whitespace is trimmed", func(t *testing.T) {
		assert.Equal(t, "9.99", parseDecimal(" 9.99 ").String())
		assert.Equal(t, 7, parseInt(" 7 "))
	})
}

func TestIsTruthy(t *testing.T) {
	for _, v := range []string{"1", "true", "YES", " y ", "On"} {
		assert.True(t, isTruthy(v), v)
	}
	for _, v := range []string{"", "0", "false", "no", "maybe"} {
		assert.False(t, isTruthy(v), v)
	}
}

func TestSplitIDs(t *testing.T) {
	assert.Nil(t, splitIDs("  "))
	assert.Equal(t, []string{"a", "b"}, splitIDs("a, b,"))
}
