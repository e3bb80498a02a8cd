package feed

import (
	"context"
	"time"
)

// Query identifies one page request against a feed source.
type Query struct {
	Group         string
	ReferenceDate time.Time
	FirstRow      int
	MaxRows       int
	ExtraFields   []string
}

// Source is the abstract fetch-a-page capability behind the fetcher. The
// platform-specific HTTP/JSON/XML translation lives in adapters; this core
// only sees pages of rows of strings. Row 0 of the first page is the header
// unless the source is configured otherwise.
type Source interface {
	// ExpectedCount returns the server-reported total row count for the data
	// group, best effort. A count of 0 means unknown and disables
	// reconciliation.
	ExpectedCount(ctx context.Context, group string, referenceDate time.Time) (int, error)

	// FetchPage retrieves one page of rows for the query.
	FetchPage(ctx context.Context, q Query) ([][]string, error)
}

// Progress receives coarse (per-page) and fine (per-item) progress updates.
// It is fire-and-forget; its absence must not change pipeline behavior.
type Progress interface {
	Report(current, total int, status string)
}

// NopProgress discards all progress updates.
type NopProgress struct{}

// Report implements Progress.
func (NopProgress) Report(int, int, string) {}
