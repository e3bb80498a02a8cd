package extract

import (
	"strings"

	"github.com/catsync/backend/internal/domain/catalog"
	"github.com/catsync/backend/internal/domain/feed"
	"github.com/catsync/backend/internal/infrastructure/config"
)

// Normalizer merges the finished aggregator state back into each product's
// final fields and produces the emitted record.
type Normalizer struct {
	schema     *feed.Schema
	agg        *Aggregator
	policies   *config.PolicyConfig
	catalogCfg *config.CatalogConfig
}

// NewNormalizer creates a normalizer for one run.
func NewNormalizer(schema *feed.Schema, agg *Aggregator, policies *config.PolicyConfig, catalogCfg *config.CatalogConfig) *Normalizer {
	return &Normalizer{
		schema:     schema,
		agg:        agg,
		policies:   policies,
		catalogCfg: catalogCfg,
	}
}

// Normalize produces the final record for one retained row.
func (n *Normalizer) Normalize(row []string) catalog.ProductRecord {
	rec := catalog.ProductRecord{
		ID:        strings.TrimSpace(n.schema.Value(row, feed.RoleProductID)),
		Name:      n.schema.Value(row, feed.RoleName),
		Page:      strings.TrimSpace(n.schema.Value(row, feed.RolePage)),
		Image:     strings.TrimSpace(n.schema.Value(row, feed.RoleImage)),
		Price:     strings.TrimSpace(n.schema.Value(row, feed.RolePrice)),
		SalePrice: strings.TrimSpace(n.schema.Value(row, feed.RoleSalePrice)),
		ListPrice: strings.TrimSpace(n.schema.Value(row, feed.RoleListPrice)),
		Cost:      strings.TrimSpace(n.schema.Value(row, feed.RoleCost)),
		Inventory: parseInt(n.schema.Value(row, feed.RoleInventory)),
		Rating:    parseFloat(n.schema.Value(row, feed.RoleRating)),
	}
	rec.Categories = n.categories(row)

	if parent, ok := n.agg.Item(rec.ID); ok {
		n.applyParent(&rec, parent)
	}

	if len(n.catalogCfg.AltFields) > 0 {
		rec.Extra = make(map[string]string, len(n.catalogCfg.AltFields))
		for _, af := range n.catalogCfg.AltFields {
			rec.Extra[af.Name] = n.schema.ValueByName(row, af.Field)
		}
	}

	return rec
}

// applyParent folds the parent accumulator into the record.
func (n *Normalizer) applyParent(rec *catalog.ProductRecord, parent catalog.ParentItem) {
	if rec.Inventory <= 0 {
		rec.Inventory = parent.Inventory
	}
	if rec.Rating == 0 {
		if n.policies.UseAverageChildRating {
			rec.Rating = parent.AverageRating()
		} else {
			rec.Rating = parent.TopRating
		}
	}

	if !parent.Price.IsSet() {
		return
	}

	// The aggregated floor supersedes the item's own price fields.
	rec.Price = parent.Price.Floor.String()

	saleFloor := parent.SalePrice.Floor
	saleShown := saleFloor.IsPositive() && saleFloor.LessThan(parent.Price.Floor)
	switch {
	case saleShown:
		rec.SalePrice = saleFloor.String()
	case parent.SalePrice.Ceiling.IsPositive():
		rec.SalePrice = n.catalogCfg.HiddenSalePrice
	default:
		rec.SalePrice = ""
	}

	if parent.ListPrice.IsSet() {
		rec.ListPrice = parent.ListPrice.Floor.String()
	}
	if parent.Cost.IsSet() {
		rec.Cost = parent.Cost.Floor.String()
	}

	// Ceiling values are surfaced only when they strictly exceed the floor.
	if parent.Price.HasSpread() {
		rec.AltPrice = parent.Price.Ceiling.String()
	}
	if saleShown && parent.SalePrice.HasSpread() {
		rec.AltSalePrice = parent.SalePrice.Ceiling.String()
	}
	if parent.ListPrice.IsSet() && parent.ListPrice.HasSpread() {
		rec.AltListPrice = parent.ListPrice.Ceiling.String()
	}
	if parent.Cost.IsSet() && parent.Cost.HasSpread() {
		rec.AltCost = parent.Cost.Ceiling.String()
	}
}

// categories splits the category field on the configured separator.
func (n *Normalizer) categories(row []string) []string {
	raw := n.schema.Value(row, feed.RoleCategory)
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	sep := n.catalogCfg.CategorySeparator
	if sep == "" {
		sep = ","
	}
	parts := strings.Split(raw, sep)
	cats := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			cats = append(cats, p)
		}
	}
	return cats
}
