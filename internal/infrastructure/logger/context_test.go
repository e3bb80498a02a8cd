package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestWithContext(t *testing.T) {
	t.Run("round-trips the logger", func(t *testing.T) {
		log := zap.NewNop()
		ctx := WithContext(context.Background(), log)
		assert.Same(t, log, FromContext(ctx))
	})

	t.Run("missing logger falls back to a no-op", func(t *testing.T) {
		log := FromContext(context.Background())
		require.NotNil(t, log)
	})
}

func TestWithRunID(t *testing.T) {
	ctx, log := WithRunID(context.Background(), zap.NewNop(), "run-123")
	require.NotNil(t, log)
	assert.Equal(t, "run-123", GetRunID(ctx))
	assert.Same(t, log, FromContext(ctx))
}

func TestWithGroup(t *testing.T) {
	ctx, log := WithGroup(context.Background(), zap.NewNop(), "toys")
	require.NotNil(t, log)
	assert.Equal(t, "toys", GetGroup(ctx))
}

func TestGetFromEmptyContext(t *testing.T) {
	assert.Empty(t, GetRunID(context.Background()))
	assert.Empty(t, GetGroup(context.Background()))
}
