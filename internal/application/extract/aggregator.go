package extract

import (
	"strings"

	"github.com/catsync/backend/internal/domain/catalog"
	"github.com/catsync/backend/internal/domain/feed"
)

// Aggregator folds per-row contributions into per-parent accumulators. The
// map is built incrementally while pages arrive, consumed exactly once during
// normalization, then discarded; it is run-scoped and never shared.
type Aggregator struct {
	schema      *feed.Schema
	ignoreStock bool
	items       map[string]catalog.ParentItem
}

// NewAggregator creates an aggregator bound to the run's schema and the
// ignore-stock-in-price-range policy.
func NewAggregator(schema *feed.Schema, ignoreStock bool) *Aggregator {
	return &Aggregator{
		schema:      schema,
		ignoreStock: ignoreStock,
		items:       make(map[string]catalog.ParentItem),
	}
}

// Add builds the per-row contribution and folds it into every listed parent.
// It reports whether the row's sale price was repaired; when it was, the
// caller rewrites the originating row with the corrected (empty) value.
func (a *Aggregator) Add(row []string, parentIDs []string) bool {
	child := a.childItem(row)
	child, repaired := child.RepairSalePrice()

	for _, pid := range parentIDs {
		pid = strings.TrimSpace(pid)
		if pid == "" {
			continue
		}
		item, ok := a.items[pid]
		if !ok {
			item = catalog.ParentItem{ID: pid}
		}
		a.items[pid] = catalog.Accumulate(item, child, a.ignoreStock)
	}

	return repaired
}

// childItem derives the ephemeral per-row contribution from one row.
func (a *Aggregator) childItem(row []string) catalog.ChildItem {
	return catalog.ChildItem{
		ID:        strings.TrimSpace(a.schema.Value(row, feed.RoleProductID)),
		Inventory: parseInt(a.schema.Value(row, feed.RoleInventory)),
		Price:     parseDecimal(a.schema.Value(row, feed.RolePrice)),
		SalePrice: parseDecimal(a.schema.Value(row, feed.RoleSalePrice)),
		ListPrice: parseDecimal(a.schema.Value(row, feed.RoleListPrice)),
		Cost:      parseDecimal(a.schema.Value(row, feed.RoleCost)),
		Rating:    parseFloat(a.schema.Value(row, feed.RoleRating)),
	}
}

// Item returns the accumulator for a parent id.
func (a *Aggregator) Item(id string) (catalog.ParentItem, bool) {
	item, ok := a.items[id]
	return item, ok
}

// Len returns the number of distinct parent accumulators.
func (a *Aggregator) Len() int {
	return len(a.items)
}
