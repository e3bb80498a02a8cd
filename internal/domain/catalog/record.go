package catalog

import "context"

// ProductRecord is the final normalized catalog item emitted by one run.
// Price fields stay strings: feeds deliver strings, and the normalized sale
// price may be the configured hidden-sale-price sentinel rather than a
// number.
type ProductRecord struct {
	ID           string
	Name         string
	Page         string
	Image        string
	Price        string
	SalePrice    string
	ListPrice    string
	Cost         string
	AltPrice     string
	AltSalePrice string
	AltListPrice string
	AltCost      string
	Inventory    int
	Rating       float64
	Hidden       bool
	Categories   []string
	Filters      []string
	CrossSell    []string
	UpSell       []string
	Extra        map[string]string
}

// ExclusionRecord explains why a product was removed from the output catalog.
type ExclusionRecord struct {
	ProductID string
	Cause     string
}

// ReplacementRecord maps a removed or child id to the id that should be used
// in its place in downstream data.
type ReplacementRecord struct {
	OldID string
	NewID string
}

// ReplacementSet collects replacement records with first-write-wins
// semantics: at most one entry per old id, later attempts are discarded
// silently. Insertion order is preserved for the emitted sequence.
type ReplacementSet struct {
	byOld   map[string]string
	ordered []ReplacementRecord
}

// NewReplacementSet creates an empty replacement set.
func NewReplacementSet() *ReplacementSet {
	return &ReplacementSet{byOld: make(map[string]string)}
}

// Add records oldID -> newID unless oldID was already mapped. It reports
// whether the record was accepted.
func (s *ReplacementSet) Add(oldID, newID string) bool {
	if oldID == "" || newID == "" || oldID == newID {
		return false
	}
	if _, exists := s.byOld[oldID]; exists {
		return false
	}
	s.byOld[oldID] = newID
	s.ordered = append(s.ordered, ReplacementRecord{OldID: oldID, NewID: newID})
	return true
}

// Get returns the replacement for oldID, if any.
func (s *ReplacementSet) Get(oldID string) (string, bool) {
	newID, ok := s.byOld[oldID]
	return newID, ok
}

// Len returns the number of recorded replacements.
func (s *ReplacementSet) Len() int {
	return len(s.ordered)
}

// Records returns the replacement records in insertion order.
func (s *ReplacementSet) Records() []ReplacementRecord {
	return s.ordered
}

// Writer persists the output of one extraction run. The exact on-disk format
// is owned by the implementation; this core only hands over the record
// sequences and a destination identifier and receives a short status string.
type Writer interface {
	WriteCatalog(ctx context.Context, destination string, products []ProductRecord, exclusions []ExclusionRecord, replacements []ReplacementRecord) (string, error)
}

// MigrationMapper is the opaque cross-catalog id-mapping hook invoked once
// per emitted product in migration mode. Implementations live outside this
// core.
type MigrationMapper interface {
	MapID(ctx context.Context, productID string) error
}
