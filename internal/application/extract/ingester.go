package extract

import (
	"strings"

	"github.com/catsync/backend/internal/domain/feed"
)

// Classification tells what became of an ingested row.
type Classification int

const (
	// ClassSkipped marks a structurally broken row; it is counted and dropped.
	ClassSkipped Classification = iota
	// ClassParent marks a base product row, retained in the working set.
	ClassParent
	// ClassChild marks a variant row pointing at one or more parents.
	ClassChild
)

// IngestResult is the per-row outcome of ingestion. Err is set only for
// skipped rows.
type IngestResult struct {
	Row       []string
	Class     Classification
	ID        string
	ParentIDs []string
	Err       *feed.RowError
}

// Ingester validates incoming rows against the resolved schema and
// classifies each as parent or child. Structural problems never abort the
// loop; they increment the error counter and skip the row.
type Ingester struct {
	schema     *feed.Schema
	rows       int
	errorCount int
}

// NewIngester creates an ingester for the given schema.
func NewIngester(schema *feed.Schema) *Ingester {
	return &Ingester{schema: schema}
}

// ErrorCount returns the number of rows skipped so far.
func (in *Ingester) ErrorCount() int {
	return in.errorCount
}

// Ingest aligns one raw row to the schema and classifies it.
//
// A row with no parent-id value, or whose parent id equals its own id, is a
// parent row. A row with a distinct, non-empty parent id is a child row; the
// parent-id field may carry a comma-separated list of ids, and every listed
// parent receives the child's aggregated contribution.
func (in *Ingester) Ingest(raw []string) IngestResult {
	in.rows++

	row, ok := feed.FitRow(raw, in.schema.Len())
	if !ok {
		in.errorCount++
		return IngestResult{
			Class: ClassSkipped,
			Err:   feed.NewRowError(in.rows, "", feed.ErrCodeFeedRowMismatch, "column count mismatch"),
		}
	}

	id := strings.TrimSpace(in.schema.Value(row, feed.RoleProductID))
	if id == "" {
		in.errorCount++
		return IngestResult{
			Class: ClassSkipped,
			Err:   feed.NewRowError(in.rows, string(feed.RoleProductID), feed.ErrCodeFeedMissingID, "missing product id"),
		}
	}

	parentRaw := strings.TrimSpace(in.schema.Value(row, feed.RoleParentID))
	if parentRaw == "" || strings.EqualFold(parentRaw, id) {
		return IngestResult{
			Row:       row,
			Class:     ClassParent,
			ID:        id,
			ParentIDs: []string{id},
		}
	}

	parentIDs := splitIDs(parentRaw)
	if len(parentIDs) == 0 {
		return IngestResult{Row: row, Class: ClassParent, ID: id, ParentIDs: []string{id}}
	}

	return IngestResult{
		Row:       row,
		Class:     ClassChild,
		ID:        id,
		ParentIDs: parentIDs,
	}
}
