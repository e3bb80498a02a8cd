package extract

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/catsync/backend/internal/domain/catalog"
	"github.com/catsync/backend/internal/domain/feed"
	"github.com/catsync/backend/internal/domain/shared"
	"github.com/catsync/backend/internal/infrastructure/config"
)

// fakeWriter records what one run handed over.
type fakeWriter struct {
	destination  string
	products     []catalog.ProductRecord
	exclusions   []catalog.ExclusionRecord
	replacements []catalog.ReplacementRecord
	err          error
}

func (w *fakeWriter) WriteCatalog(ctx context.Context, destination string, products []catalog.ProductRecord, exclusions []catalog.ExclusionRecord, replacements []catalog.ReplacementRecord) (string, error) {
	if w.err != nil {
		return "", w.err
	}
	w.destination = destination
	w.products = products
	w.exclusions = exclusions
	w.replacements = replacements
	return "ok", nil
}

type fakeMapper struct {
	ids []string
	err error
}

func (m *fakeMapper) MapID(ctx context.Context, productID string) error {
	m.ids = append(m.ids, productID)
	return m.err
}

func runConfig() *config.Config {
	return &config.Config{
		Feed: config.FeedConfig{
			DefaultRowsPerRequest: 100,
			Fields: map[string]string{
				"product_id": "id",
				"parent_id":  "parent",
				"name":       "name",
				"price":      "price",
				"sale_price": "sale",
				"inventory":  "stock",
				"rating":     "rating",
				"category":   "category",
				"image":      "image",
			},
		},
		Catalog: config.CatalogConfig{
			MinSize:           1,
			HiddenSalePrice:   "-",
			UniversalFilter:   "All",
			CategorySeparator: ",",
			Destination:       "main",
		},
	}
}

func feedPage(rows ...[]string) [][]string {
	page := [][]string{{"id", "parent", "name", "price", "sale", "stock", "rating", "category", "image"}}
	return append(page, rows...)
}

func TestRunExecute(t *testing.T) {
	ctx := context.Background()
	date := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)

	t.Run("aggregates children into the emitted parent", func(t *testing.T) {
		src := &fakeSource{pages: [][][]string{feedPage(
			row("P1", "", "Parent", "", "", "", "", "Toys", "img"),
			row("C1", "P1", "Child", "10", "8", "2", "4", "", "img"),
			row("C2", "P1", "Child", "6", "", "1", "", "", "img"),
		)}}
		writer := &fakeWriter{}
		r := NewRun(runConfig(), &catalog.RuleSet{}, src, writer)

		res, err := r.Execute(ctx, "g", date)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, res.Status)
		assert.Equal(t, 1, res.Count)
		assert.Zero(t, res.ErrorCount)

		require.Len(t, writer.products, 1)
		p := writer.products[0]
		assert.Equal(t, "P1", p.ID)
		assert.Equal(t, "6", p.Price)
		assert.Equal(t, "10", p.AltPrice)
		assert.Equal(t, "-", p.SalePrice)
		assert.Equal(t, 3, p.Inventory)
		assert.InDelta(t, 4.0, p.Rating, 1e-9)

		assert.Equal(t, "main", writer.destination)
		assert.ElementsMatch(t, []catalog.ReplacementRecord{
			{OldID: "C1", NewID: "P1"},
			{OldID: "C2", NewID: "P1"},
		}, writer.replacements)
	})

	t.Run("children are emitted when the policy includes them", func(t *testing.T) {
		src := &fakeSource{pages: [][][]string{feedPage(
			row("P1", "", "Parent", "5", "", "1", "", "", "img"),
			row("C1", "P1", "Child", "10", "", "2", "", "", "img"),
		)}}
		writer := &fakeWriter{}
		cfg := runConfig()
		cfg.Policies.IncludeChildren = true
		r := NewRun(cfg, &catalog.RuleSet{}, src, writer)

		res, err := r.Execute(ctx, "g", date)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Count)
	})

	t.Run("repaired sale price is rewritten before normalization", func(t *testing.T) {
		src := &fakeSource{pages: [][][]string{feedPage(
			row("P1", "", "Parent", "", "", "", "", "", "img"),
			row("C1", "P1", "Child", "10", "12", "1", "", "", "img"),
		)}}
		writer := &fakeWriter{}
		cfg := runConfig()
		cfg.Policies.IncludeChildren = true
		r := NewRun(cfg, &catalog.RuleSet{}, src, writer)

		_, err := r.Execute(ctx, "g", date)
		require.NoError(t, err)

		var child *catalog.ProductRecord
		for i := range writer.products {
			if writer.products[i].ID == "C1" {
				child = &writer.products[i]
			}
		}
		require.NotNil(t, child)
		assert.Equal(t, "", child.SalePrice)
	})

	t.Run("excluded items become exclusion records", func(t *testing.T) {
		src := &fakeSource{pages: [][][]string{feedPage(
			row("P1", "", "Parent", "5", "", "1", "", "Toys", "img"),
			row("P2", "", "Parent", "5", "", "1", "", "Clearance", "img"),
		)}}
		writer := &fakeWriter{}
		rules := &catalog.RuleSet{ExcludedCategories: []string{"Clearance"}}
		r := NewRun(runConfig(), rules, src, writer)

		res, err := r.Execute(ctx, "g", date)
		require.NoError(t, err)
		assert.Equal(t, 1, res.Count)
		require.Len(t, writer.exclusions, 1)
		assert.Equal(t, "P2", writer.exclusions[0].ProductID)
		assert.Equal(t, catalog.CauseExcludedCategory, writer.exclusions[0].Cause)
	})

	t.Run("header without a product id column fails the run", func(t *testing.T) {
		src := &fakeSource{pages: [][][]string{{
			{"foo", "bar"},
			{"x", "y"},
		}}}
		r := NewRun(runConfig(), &catalog.RuleSet{}, src, &fakeWriter{})

		res, err := r.Execute(ctx, "g", date)
		require.ErrorIs(t, err, shared.ErrMissingSchema)
		assert.Equal(t, StatusFailed, res.Status)
	})

	t.Run("too small a catalog fails the run", func(t *testing.T) {
		src := &fakeSource{pages: [][][]string{feedPage(
			row("P1", "", "Parent", "5", "", "1", "", "", "img"),
		)}}
		cfg := runConfig()
		cfg.Catalog.MinSize = 5
		r := NewRun(cfg, &catalog.RuleSet{}, src, &fakeWriter{})

		res, err := r.Execute(ctx, "g", date)
		var bme *feed.BelowMinimumError
		require.ErrorAs(t, err, &bme)
		assert.Equal(t, feed.ErrCodeFeedBelowMinimum, bme.Code())
		assert.Equal(t, StatusFailed, res.Status)
	})

	t.Run("cancellation is a distinct terminal status", func(t *testing.T) {
		canceled, cancel := context.WithCancel(ctx)
		cancel()
		src := &fakeSource{pages: [][][]string{feedPage(
			row("P1", "", "Parent", "5", "", "1", "", "", "img"),
		)}}
		r := NewRun(runConfig(), &catalog.RuleSet{}, src, &fakeWriter{})

		res, err := r.Execute(canceled, "g", date)
		assert.ErrorIs(t, err, context.Canceled)
		assert.Equal(t, StatusCanceled, res.Status)
	})

	t.Run("writer failure fails the run", func(t *testing.T) {
		src := &fakeSource{pages: [][][]string{feedPage(
			row("P1", "", "Parent", "5", "", "1", "", "", "img"),
		)}}
		r := NewRun(runConfig(), &catalog.RuleSet{}, src, &fakeWriter{err: errors.New("disk full")})

		res, err := r.Execute(ctx, "g", date)
		require.Error(t, err)
		assert.Equal(t, StatusFailed, res.Status)
	})

	t.Run("broken rows are counted, not fatal", func(t *testing.T) {
		src := &fakeSource{pages: [][][]string{feedPage(
			row("P1", "", "Parent", "5", "", "1", "", "", "img"),
			[]string{"only-two", "cols"},
		)}}
		writer := &fakeWriter{}
		r := NewRun(runConfig(), &catalog.RuleSet{}, src, writer)

		res, err := r.Execute(ctx, "g", date)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, res.Status)
		assert.Equal(t, 1, res.Count)
		assert.Equal(t, 1, res.ErrorCount)
	})

	t.Run("migration mapper runs once per emitted product", func(t *testing.T) {
		src := &fakeSource{pages: [][][]string{feedPage(
			row("P1", "", "Parent", "5", "", "1", "", "", "img"),
			row("P2", "", "Parent", "5", "", "1", "", "", "img"),
		)}}
		mapper := &fakeMapper{}
		r := NewRun(runConfig(), &catalog.RuleSet{}, src, &fakeWriter{},
			WithMigration(nil, mapper))

		res, err := r.Execute(ctx, "g", date)
		require.NoError(t, err)
		assert.Equal(t, 2, res.Count)
		assert.ElementsMatch(t, []string{"P1", "P2"}, mapper.ids)
	})

	t.Run("migration mapping failures are soft", func(t *testing.T) {
		src := &fakeSource{pages: [][][]string{feedPage(
			row("P1", "", "Parent", "5", "", "1", "", "", "img"),
		)}}
		mapper := &fakeMapper{err: errors.New("mapping store down")}
		r := NewRun(runConfig(), &catalog.RuleSet{}, src, &fakeWriter{},
			WithMigration(nil, mapper))

		res, err := r.Execute(ctx, "g", date)
		require.NoError(t, err)
		assert.Equal(t, StatusCompleted, res.Status)
		assert.Equal(t, 1, res.Count)
		assert.Equal(t, 1, res.ErrorCount)
	})
}
