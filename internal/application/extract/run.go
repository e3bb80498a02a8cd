package extract

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/catsync/backend/internal/domain/catalog"
	"github.com/catsync/backend/internal/domain/feed"
	"github.com/catsync/backend/internal/domain/shared"
	"github.com/catsync/backend/internal/infrastructure/config"
	"github.com/catsync/backend/internal/infrastructure/logger"
)

// Terminal statuses for a finished run. Cancellation is a distinct terminal
// outcome, never classified as a failure.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// RunResult carries the terminal outcome of one extraction run.
type RunResult struct {
	Count      int    `json:"count"`
	Status     string `json:"status"`
	ErrorCount int    `json:"error_count"`
}

// Run executes the full ingestion pipeline for one data group: paginated
// fetch, row ingestion, aggregation, normalization, rule evaluation, and the
// final write. Each run owns an isolated schema and accumulator map; nothing
// is shared across concurrent runs for different catalogs.
type Run struct {
	cfg       *config.Config
	rules     *catalog.RuleSet
	source    feed.Source
	writer    catalog.Writer
	progress  feed.Progress
	migration catalog.MigrationMapper
	nested    *Run
	logger    *zap.Logger
}

// RunOption is a functional option for Run configuration.
type RunOption func(*Run)

// WithProgress sets the progress sink.
func WithProgress(p feed.Progress) RunOption {
	return func(r *Run) {
		if p != nil {
			r.progress = p
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) RunOption {
	return func(r *Run) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithMigration enables migration mode: the given nested run is driven to
// completion before this run's pipeline starts, and the mapper hook is
// invoked once per emitted product.
func WithMigration(nested *Run, mapper catalog.MigrationMapper) RunOption {
	return func(r *Run) {
		r.nested = nested
		r.migration = mapper
	}
}

// NewRun wires a run from its collaborators.
func NewRun(cfg *config.Config, rules *catalog.RuleSet, source feed.Source, writer catalog.Writer, opts ...RunOption) *Run {
	r := &Run{
		cfg:      cfg,
		rules:    rules,
		source:   source,
		writer:   writer,
		progress: feed.NopProgress{},
		logger:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Execute runs the pipeline for one data group. The returned RunResult is
// always non-nil and carries the terminal status even when err is set.
func (r *Run) Execute(ctx context.Context, group string, referenceDate time.Time) (*RunResult, error) {
	runID := uuid.New()
	ctx, log := logger.WithRunID(ctx, r.logger, runID.String())
	ctx, log = logger.WithGroup(ctx, log, group)
	log.Info("extraction run starting")

	// Migration mode serializes the two pipelines: the nested run finishes
	// before this one touches the feed.
	if r.nested != nil {
		if res, err := r.nested.Execute(ctx, group, referenceDate); err != nil {
			log.Error("nested migration run failed", zap.String("status", res.Status), zap.Error(err))
			return &RunResult{Status: res.Status}, fmt.Errorf("nested run: %w", err)
		}
	}

	fetcher := NewFetcher(r.source, &r.cfg.Feed, &r.cfg.Policies, r.progress, log)
	fetched, err := fetcher.Fetch(ctx, group, referenceDate, 1, 0)
	if err != nil {
		return r.terminal(log, err)
	}

	schema := feed.NewSchema(fetched.Header, r.fieldBindings())
	if !schema.HasRole(feed.RoleProductID) {
		return r.terminal(log, fmt.Errorf("group %s: %w", group, shared.ErrMissingSchema))
	}

	ingester := NewIngester(schema)
	aggregator := NewAggregator(schema, r.cfg.Policies.IgnoreStockInPriceRange)
	replacements := catalog.NewReplacementSet()

	saleIdx, hasSale := schema.Column(feed.RoleSalePrice)

	var retained [][]string
	for i, raw := range fetched.Rows {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return r.terminal(log, err)
			}
		}

		res := ingester.Ingest(raw)
		if res.Class == ClassSkipped {
			log.Debug("row skipped", zap.String("code", res.Err.Code), zap.Error(res.Err))
			continue
		}

		repaired := aggregator.Add(res.Row, res.ParentIDs)
		if repaired && hasSale && saleIdx < len(res.Row) {
			res.Row[saleIdx] = ""
		}

		switch res.Class {
		case ClassParent:
			retained = append(retained, res.Row)
		case ClassChild:
			replacements.Add(res.ID, res.ParentIDs[0])
			if r.cfg.Policies.IncludeChildren {
				retained = append(retained, res.Row)
			}
		}
	}

	if len(retained) < r.cfg.Catalog.MinSize {
		return r.terminal(log, &feed.BelowMinimumError{
			Group:    group,
			Received: len(retained),
			Minimum:  r.cfg.Catalog.MinSize,
		})
	}

	normalizer := NewNormalizer(schema, aggregator, &r.cfg.Policies, &r.cfg.Catalog)
	engine := NewRuleEngine(schema, r.rules, &r.cfg.Policies, r.cfg.Catalog.UniversalFilter, log)

	migrationErrors := 0
	normalizeErrors := 0
	products := make([]catalog.ProductRecord, 0, len(retained))
	var exclusions []catalog.ExclusionRecord

	for i, row := range retained {
		if i%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return r.terminal(log, err)
			}
		}

		rec, ok := safeNormalize(normalizer, row, log)
		if !ok {
			normalizeErrors++
			continue
		}

		ev := engine.Evaluate(row, &rec, replacements)
		r.progress.Report(i+1, len(retained), "normalizing "+group)

		if ev.Excluded {
			for _, cause := range ev.Causes {
				exclusions = append(exclusions, catalog.ExclusionRecord{ProductID: rec.ID, Cause: cause})
			}
			continue
		}

		if r.migration != nil {
			if err := r.migration.MapID(ctx, rec.ID); err != nil {
				migrationErrors++
				log.Warn("migration mapping failed", zap.String("product_id", rec.ID), zap.Error(err))
			}
		}

		products = append(products, rec)
	}

	status, err := r.writer.WriteCatalog(ctx, r.cfg.Catalog.Destination, products, exclusions, replacements.Records())
	if err != nil {
		return r.terminal(log, fmt.Errorf("writing catalog: %w", err))
	}

	errorCount := ingester.ErrorCount() + engine.ErrorCount() + normalizeErrors + migrationErrors
	log.Info("extraction run completed",
		zap.Int("products", len(products)),
		zap.Int("exclusions", len(exclusions)),
		zap.Int("replacements", replacements.Len()),
		zap.Int("errors", errorCount),
		zap.String("writer_status", status),
	)

	return &RunResult{
		Count:      len(products),
		Status:     StatusCompleted,
		ErrorCount: errorCount,
	}, nil
}

// terminal classifies a pipeline error into its terminal status.
func (r *Run) terminal(log *zap.Logger, err error) (*RunResult, error) {
	if errors.Is(err, context.Canceled) {
		log.Info("extraction run canceled")
		return &RunResult{Status: StatusCanceled}, err
	}
	fields := []zap.Field{zap.Error(err)}
	var coded interface{ Code() string }
	if errors.As(err, &coded) {
		fields = append(fields, zap.String("code", coded.Code()))
	}
	log.Error("extraction run failed", fields...)
	return &RunResult{Status: StatusFailed}, err
}

// fieldBindings converts the configured role-name bindings into schema roles.
func (r *Run) fieldBindings() map[feed.FieldRole]string {
	bindings := make(map[feed.FieldRole]string, len(r.cfg.Feed.Fields))
	for role, name := range r.cfg.Feed.Fields {
		bindings[feed.FieldRole(role)] = name
	}
	return bindings
}

// safeNormalize shields the loop from a failure normalizing a single item.
func safeNormalize(n *Normalizer, row []string, log *zap.Logger) (rec catalog.ProductRecord, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			log.Error("normalization failed", zap.Any("cause", r))
			ok = false
		}
	}()
	return n.Normalize(row), true
}
