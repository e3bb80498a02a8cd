package feed

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCountMismatchError(t *testing.T) {
	err := &CountMismatchError{Group: "toys", Received: 90, Expected: 100}
	assert.Equal(t, "feed toys: received 90 rows, expected 100", err.Error())
	assert.Equal(t, ErrCodeFeedCountMismatch, err.Code())
}

func TestBelowMinimumError(t *testing.T) {
	err := &BelowMinimumError{Group: "toys", Received: 2, Minimum: 10}
	assert.Equal(t, "feed toys: 2 rows is below the configured minimum of 10", err.Error())
	assert.Equal(t, ErrCodeFeedBelowMinimum, err.Code())
}

func TestTransportError(t *testing.T) {
	cause := errors.New("connection reset")
	err := &TransportError{Group: "toys", FirstRow: 11, MaxRows: 10, Err: cause}

	t.Run("carries the request context", func(t *testing.T) {
		assert.Contains(t, err.Error(), "feed toys: fetching rows 11-20")
		assert.Equal(t, ErrCodeFeedTransport, err.Code())
	})

	t.Run("unwraps to the underlying failure", func(t *testing.T) {
		assert.ErrorIs(t, err, cause)
		wrapped := fmt.Errorf("run failed: %w", err)
		var te *TransportError
		require.ErrorAs(t, wrapped, &te)
		assert.Equal(t, "toys", te.Group)
	})
}

func TestRowError(t *testing.T) {
	t.Run("message includes the column when known", func(t *testing.T) {
		err := NewRowError(7, "product_id", ErrCodeFeedMissingID, "missing product id")
		assert.Equal(t, "row 7, column product_id: missing product id", err.Error())
		assert.Equal(t, ErrCodeFeedMissingID, err.Code)
	})

	t.Run("message without a column", func(t *testing.T) {
		err := NewRowError(3, "", ErrCodeFeedRowMismatch, "column count mismatch")
		assert.Equal(t, "row 3: column count mismatch", err.Error())
	})
}

func TestSentinelErrorCodes(t *testing.T) {
	assert.Equal(t, ErrCodeFeedEmptyFirstPage, ErrEmptyFirstPage.Code)
	assert.Equal(t, ErrCodeFeedMissingHeader, ErrMissingHeader.Code)
}
