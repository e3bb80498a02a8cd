package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAggregatorAdd(t *testing.T) {
	schema := testSchema()

	t.Run("folds child prices into the parent range", func(t *testing.T) {
		agg := NewAggregator(schema, false)
		agg.Add(row("C1", "P1", "", "10", "", "2", "", "", ""), []string{"P1"})
		agg.Add(row("C2", "P1", "", "6", "", "1", "", "", ""), []string{"P1"})

		item, ok := agg.Item("P1")
		require.True(t, ok)
		assert.Equal(t, 3, item.Inventory)
		assert.Equal(t, "6", item.Price.Floor.String())
		assert.Equal(t, "10", item.Price.Ceiling.String())
	})

	t.Run("zero-stock child still moves the ceiling", func(t *testing.T) {
		agg := NewAggregator(schema, false)
		agg.Add(row("C1", "P1", "", "5", "", "4", "", "", ""), []string{"P1"})
		agg.Add(row("C2", "P1", "", "10", "", "0", "", "", ""), []string{"P1"})

		item, ok := agg.Item("P1")
		require.True(t, ok)
		assert.Equal(t, 4, item.Inventory)
		assert.Equal(t, "10", item.Price.Ceiling.String())
	})

	t.Run("multi-parent child contributes to every parent", func(t *testing.T) {
		agg := NewAggregator(schema, false)
		agg.Add(row("C1", "P1,P2", "", "7", "", "3", "", "", ""), []string{"P1", "P2"})

		for _, pid := range []string{"P1", "P2"} {
			item, ok := agg.Item(pid)
			require.True(t, ok, pid)
			assert.Equal(t, 3, item.Inventory)
			assert.Equal(t, "7", item.Price.Floor.String())
		}
		assert.Equal(t, 2, agg.Len())
	})

	t.Run("reports sale price repair", func(t *testing.T) {
		agg := NewAggregator(schema, false)
		repaired := agg.Add(row("C1", "P1", "", "10", "15", "1", "", "", ""), []string{"P1"})
		assert.True(t, repaired)

		item, ok := agg.Item("P1")
		require.True(t, ok)
		assert.False(t, item.SalePrice.IsSet())
	})

	t.Run("blank parent ids are skipped", func(t *testing.T) {
		agg := NewAggregator(schema, false)
		agg.Add(row("C1", "P1", "", "10", "", "1", "", "", ""), []string{"", " ", "P1"})
		assert.Equal(t, 1, agg.Len())
	})

	t.Run("malformed numbers fold to zero", func(t *testing.T) {
		agg := NewAggregator(schema, false)
		agg.Add(row("C1", "P1", "", "abc", "", "xyz", "n/a", "", ""), []string{"P1"})

		item, ok := agg.Item("P1")
		require.True(t, ok)
		assert.Zero(t, item.Inventory)
		assert.False(t, item.Price.IsSet())
		assert.Zero(t, item.RatingCount)
	})
}
