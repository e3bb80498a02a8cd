package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/catsync/backend/internal/domain/catalog"
	"github.com/catsync/backend/internal/infrastructure/logger"
)

// CatalogProduct is one row of the persisted catalog snapshot.
type CatalogProduct struct {
	ID           uint   `gorm:"primaryKey"`
	Destination  string `gorm:"type:varchar(100);not null;index:idx_catalog_dest"`
	ProductID    string `gorm:"type:varchar(100);not null;index"`
	Name         string `gorm:"type:varchar(500)"`
	Page         string `gorm:"type:text"`
	Image        string `gorm:"type:text"`
	Price        string `gorm:"type:varchar(50)"`
	SalePrice    string `gorm:"type:varchar(50)"`
	ListPrice    string `gorm:"type:varchar(50)"`
	Cost         string `gorm:"type:varchar(50)"`
	AltPrice     string `gorm:"type:varchar(50)"`
	AltSalePrice string `gorm:"type:varchar(50)"`
	AltListPrice string `gorm:"type:varchar(50)"`
	AltCost      string `gorm:"type:varchar(50)"`
	Inventory    int    `gorm:"not null;default:0"`
	Rating       float64
	Hidden       bool      `gorm:"not null;default:false"`
	Categories   string    `gorm:"type:text"`
	Filters      string    `gorm:"type:text"`
	CrossSell    string    `gorm:"type:text"`
	UpSell       string    `gorm:"type:text"`
	Extra        string    `gorm:"type:text"`
	CreatedAt    time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM
func (CatalogProduct) TableName() string {
	return "catalog_products"
}

// CatalogExclusion records why a product was dropped from a snapshot.
type CatalogExclusion struct {
	ID          uint      `gorm:"primaryKey"`
	Destination string    `gorm:"type:varchar(100);not null;index"`
	ProductID   string    `gorm:"type:varchar(100);not null"`
	Cause       string    `gorm:"type:varchar(200);not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM
func (CatalogExclusion) TableName() string {
	return "catalog_exclusions"
}

// CatalogReplacement records an id replacement for downstream data.
type CatalogReplacement struct {
	ID          uint      `gorm:"primaryKey"`
	Destination string    `gorm:"type:varchar(100);not null;index"`
	OldID       string    `gorm:"type:varchar(100);not null"`
	NewID       string    `gorm:"type:varchar(100);not null"`
	CreatedAt   time.Time `gorm:"autoCreateTime"`
}

// TableName returns the table name for GORM
func (CatalogReplacement) TableName() string {
	return "catalog_replacements"
}

// CatalogWriter persists the output of an extraction run. Each write
// replaces the previous snapshot for the destination.
type CatalogWriter struct {
	db *gorm.DB
}

// NewCatalogWriter creates a writer on the given database.
func NewCatalogWriter(database *Database) *CatalogWriter {
	return &CatalogWriter{db: database.DB}
}

// Migrate creates or updates the snapshot tables.
func (w *CatalogWriter) Migrate() error {
	return w.db.AutoMigrate(&CatalogProduct{}, &CatalogExclusion{}, &CatalogReplacement{})
}

// WriteCatalog implements catalog.Writer.
func (w *CatalogWriter) WriteCatalog(ctx context.Context, destination string, products []catalog.ProductRecord, exclusions []catalog.ExclusionRecord, replacements []catalog.ReplacementRecord) (string, error) {
	err := w.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, model := range []any{&CatalogProduct{}, &CatalogExclusion{}, &CatalogReplacement{}} {
			if err := tx.Where("destination = ?", destination).Delete(model).Error; err != nil {
				return fmt.Errorf("clearing previous snapshot: %w", err)
			}
		}

		if len(products) > 0 {
			rows := make([]CatalogProduct, 0, len(products))
			for _, p := range products {
				rows = append(rows, toProductRow(destination, p))
			}
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				return fmt.Errorf("inserting products: %w", err)
			}
		}

		if len(exclusions) > 0 {
			rows := make([]CatalogExclusion, 0, len(exclusions))
			for _, e := range exclusions {
				rows = append(rows, CatalogExclusion{Destination: destination, ProductID: e.ProductID, Cause: e.Cause})
			}
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				return fmt.Errorf("inserting exclusions: %w", err)
			}
		}

		if len(replacements) > 0 {
			rows := make([]CatalogReplacement, 0, len(replacements))
			for _, r := range replacements {
				rows = append(rows, CatalogReplacement{Destination: destination, OldID: r.OldID, NewID: r.NewID})
			}
			if err := tx.CreateInBatches(rows, 500).Error; err != nil {
				return fmt.Errorf("inserting replacements: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return "", err
	}

	logger.FromContext(ctx).Debug("catalog snapshot replaced",
		zap.String("destination", destination),
		zap.Int("products", len(products)),
	)

	return fmt.Sprintf("wrote %d products, %d exclusions, %d replacements to %s",
		len(products), len(exclusions), len(replacements), destination), nil
}

// toProductRow flattens a ProductRecord into its persisted shape.
func toProductRow(destination string, p catalog.ProductRecord) CatalogProduct {
	row := CatalogProduct{
		Destination:  destination,
		ProductID:    p.ID,
		Name:         p.Name,
		Page:         p.Page,
		Image:        p.Image,
		Price:        p.Price,
		SalePrice:    p.SalePrice,
		ListPrice:    p.ListPrice,
		Cost:         p.Cost,
		AltPrice:     p.AltPrice,
		AltSalePrice: p.AltSalePrice,
		AltListPrice: p.AltListPrice,
		AltCost:      p.AltCost,
		Inventory:    p.Inventory,
		Rating:       p.Rating,
		Hidden:       p.Hidden,
		Categories:   strings.Join(p.Categories, "|"),
		Filters:      strings.Join(p.Filters, "|"),
		CrossSell:    strings.Join(p.CrossSell, "|"),
		UpSell:       strings.Join(p.UpSell, "|"),
	}
	if len(p.Extra) > 0 {
		if data, err := json.Marshal(p.Extra); err == nil {
			row.Extra = string(data)
		}
	}
	return row
}
