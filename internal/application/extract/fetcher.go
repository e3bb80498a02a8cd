package extract

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/catsync/backend/internal/domain/feed"
	"github.com/catsync/backend/internal/infrastructure/config"
)

// FetchResult carries the outcome of one paginated fetch: the resolved
// header, all data rows across pages, and the counts used for
// reconciliation.
type FetchResult struct {
	Header   []string
	Rows     [][]string
	Count    int
	Expected int
	Pages    int
}

// Fetcher drives paginated retrieval for one data group, reconciling the
// server-reported count against the rows actually received.
type Fetcher struct {
	source   feed.Source
	cfg      *config.FeedConfig
	policies *config.PolicyConfig
	progress feed.Progress
	logger   *zap.Logger
}

// NewFetcher creates a fetcher. A nil progress sink or logger is replaced by
// a no-op.
func NewFetcher(source feed.Source, cfg *config.FeedConfig, policies *config.PolicyConfig, progress feed.Progress, logger *zap.Logger) *Fetcher {
	if progress == nil {
		progress = feed.NopProgress{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Fetcher{
		source:   source,
		cfg:      cfg,
		policies: policies,
		progress: progress,
		logger:   logger,
	}
}

// Fetch retrieves all pages for the data group starting at firstRow. A
// maxRows of 0 means no requested cap beyond end of data.
func (f *Fetcher) Fetch(ctx context.Context, group string, referenceDate time.Time, firstRow, maxRows int) (*FetchResult, error) {
	expected, err := f.source.ExpectedCount(ctx, group, referenceDate)
	if err != nil {
		// Best effort: an unknown count just disables reconciliation.
		f.logger.Warn("expected count unavailable", zap.String("group", group), zap.Error(err))
		expected = 0
	}

	perRequest := f.rowsPerRequest(group, expected, maxRows)
	result := &FetchResult{Expected: expected}

	first := firstRow
	if first <= 0 {
		first = 1
	}

	for page := 1; ; page++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		rows, err := f.source.FetchPage(ctx, feed.Query{
			Group:         group,
			ReferenceDate: referenceDate,
			FirstRow:      first,
			MaxRows:       perRequest,
			ExtraFields:   f.cfg.ExtraFields,
		})
		if err != nil {
			return nil, &feed.TransportError{Group: group, FirstRow: first, MaxRows: perRequest, Err: err}
		}

		if page == 1 {
			if len(rows) == 0 {
				return nil, fmt.Errorf("group %s: %w", group, feed.ErrMissingHeader)
			}
			result.Header = rows[0]
			rows = rows[1:]
			if len(rows) == 0 {
				// A single-row dump is malformed, not end of data.
				return nil, fmt.Errorf("group %s: %w", group, feed.ErrEmptyFirstPage)
			}
		} else if !f.cfg.HeaderOnce && f.cfg.ExtraHeaderRows > 0 {
			if len(rows) > f.cfg.ExtraHeaderRows {
				rows = rows[f.cfg.ExtraHeaderRows:]
			} else {
				rows = nil
			}
		}

		result.Rows = append(result.Rows, rows...)
		result.Count += len(rows)
		result.Pages = page
		f.progress.Report(result.Count, expected, fmt.Sprintf("fetched page %d of %s", page, group))

		if perRequest <= 0 {
			break
		}
		if len(rows) > perRequest && !f.policies.AllowExtraRows {
			break
		}
		// A short page, beyond the repeated-header slack, means end of data.
		if len(rows) < perRequest-f.cfg.ExtraHeaderRows-1 {
			break
		}
		if maxRows > 0 && result.Count >= maxRows {
			break
		}
		first += perRequest
	}

	if expected > 0 && result.Count < expected-1 && !f.policies.AllowsLowerCount(group) {
		return nil, &feed.CountMismatchError{Group: group, Received: result.Count, Expected: expected}
	}

	f.logger.Info("fetch finished",
		zap.String("group", group),
		zap.Int("rows", result.Count),
		zap.Int("expected", expected),
		zap.Int("pages", result.Pages),
	)

	return result, nil
}

// rowsPerRequest resolves the page size from the per-group override, or from
// the count/max-rows heuristic.
func (f *Fetcher) rowsPerRequest(group string, expected, maxRows int) int {
	if n := f.cfg.RowsPerRequestFor(group); n > 0 {
		return n
	}
	n := f.cfg.DefaultRowsPerRequest
	if maxRows > 0 && (n == 0 || maxRows < n) {
		n = maxRows
	}
	if expected > 0 && expected < n {
		n = expected
	}
	return n
}
