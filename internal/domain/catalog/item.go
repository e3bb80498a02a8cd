package catalog

import "github.com/shopspring/decimal"

// ChildItem is the per-row contribution derived from one feed row. It is
// ephemeral: built, folded into the parent accumulators, then discarded.
type ChildItem struct {
	ID        string
	Inventory int
	Price     decimal.Decimal
	SalePrice decimal.Decimal
	ListPrice decimal.Decimal
	Cost      decimal.Decimal
	Rating    float64
}

// RepairSalePrice zeroes a sale price that is not an actual discount
// (sale price at or above the regular price). The second return value
// reports whether a repair happened so the originating row can be rewritten
// with the corrected value.
func (c ChildItem) RepairSalePrice() (ChildItem, bool) {
	if c.SalePrice.IsPositive() && c.SalePrice.GreaterThanOrEqual(c.Price) {
		c.SalePrice = decimal.Zero
		return c, true
	}
	return c, false
}

// PriceRange accumulates the floor and ceiling of a per-parent price field
// across all contributing children. A zero floor means no contributing child
// had a positive value; once set, the floor is the minimum positive value
// seen and the ceiling the maximum.
type PriceRange struct {
	Floor   decimal.Decimal
	Ceiling decimal.Decimal
}

// Observe folds one value into the range. Non-positive values are ignored.
// The first positive observation initializes both bounds; later observations
// move the floor down and the ceiling up independently.
func (r PriceRange) Observe(v decimal.Decimal) PriceRange {
	if !v.IsPositive() {
		return r
	}
	if !r.Floor.IsPositive() || v.LessThan(r.Floor) {
		r.Floor = v
	}
	if v.GreaterThan(r.Ceiling) {
		r.Ceiling = v
	}
	return r
}

// IsSet reports whether at least one positive value was observed.
func (r PriceRange) IsSet() bool {
	return r.Floor.IsPositive()
}

// HasSpread reports whether the ceiling strictly exceeds the floor. Ceiling
// values are only surfaced downstream when they carry information beyond the
// floor.
func (r PriceRange) HasSpread() bool {
	return r.Ceiling.GreaterThan(r.Floor)
}

// ParentItem is the mutable per-parent accumulator, keyed by parent id and
// owned by the aggregator for the duration of one run. It is never persisted
// between runs and never shared across concurrent runs.
type ParentItem struct {
	ID          string
	Inventory   int
	Price       PriceRange
	SalePrice   PriceRange
	ListPrice   PriceRange
	Cost        PriceRange
	RatingSum   float64
	RatingCount int
	TopRating   float64
}

// Accumulate folds one child's contribution into a parent accumulator and
// returns the updated value. It is a pure fold: the result depends only on
// the parent, the child, and the policy flag, so the same ordered sequence of
// children always produces the same ParentItem.
//
// Inventory accumulates only positive contributions. A negative inventory
// marks unknown stock; such children contribute price and rating data only
// when ignoreStock is enabled. Zero-stock children never add inventory but
// still count toward the price ranges.
func Accumulate(p ParentItem, c ChildItem, ignoreStock bool) ParentItem {
	if c.Inventory > 0 {
		p.Inventory += c.Inventory
	}
	if c.Inventory < 0 && !ignoreStock {
		return p
	}

	p.Price = p.Price.Observe(c.Price)
	p.SalePrice = p.SalePrice.Observe(c.SalePrice)
	p.ListPrice = p.ListPrice.Observe(c.ListPrice)
	p.Cost = p.Cost.Observe(c.Cost)

	if c.Rating > 0 {
		p.RatingSum += c.Rating
		p.RatingCount++
		if c.Rating > p.TopRating {
			p.TopRating = c.Rating
		}
	}

	return p
}

// AverageRating returns the mean child rating, or 0 when no child carried a
// rating. Both the average and the top rating are retained because the
// display strategy is resolved later, per configuration.
func (p ParentItem) AverageRating() float64 {
	if p.RatingCount == 0 {
		return 0
	}
	return p.RatingSum / float64(p.RatingCount)
}
