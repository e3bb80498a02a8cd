package extract

import (
	"strings"

	"go.uber.org/zap"

	"github.com/catsync/backend/internal/domain/catalog"
	"github.com/catsync/backend/internal/domain/feed"
	"github.com/catsync/backend/internal/infrastructure/config"
)

// Evaluation carries the rule outcomes for one product.
type Evaluation struct {
	Excluded bool
	Causes   []string
	Hidden   bool
}

// RuleEngine evaluates the exclusion, filter, and replacement rules once per
// product, after aggregation. Evaluation is deterministic and idempotent:
// the same row and rule set always yield the same causes.
type RuleEngine struct {
	schema          *feed.Schema
	rules           *catalog.RuleSet
	policies        *config.PolicyConfig
	universalFilter string
	logger          *zap.Logger
	errorCount      int
}

// NewRuleEngine creates a rule engine for one run.
func NewRuleEngine(schema *feed.Schema, rules *catalog.RuleSet, policies *config.PolicyConfig, universalFilter string, logger *zap.Logger) *RuleEngine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &RuleEngine{
		schema:          schema,
		rules:           rules,
		policies:        policies,
		universalFilter: universalFilter,
		logger:          logger,
	}
}

// ErrorCount returns the number of items whose evaluation failed part-way.
func (e *RuleEngine) ErrorCount() int {
	return e.errorCount
}

// Evaluate applies the rule pipeline to one product. Exclusion checks run in
// fixed order and the first applicable one wins, except the exclusion-set
// expression which may contribute several causes. A failure while evaluating
// one item is caught and counted; the item keeps whatever partial state was
// computed before the failure.
func (e *RuleEngine) Evaluate(row []string, rec *catalog.ProductRecord, replacements *catalog.ReplacementSet) (ev Evaluation) {
	defer func() {
		if r := recover(); r != nil {
			e.errorCount++
			e.logger.Error("rule evaluation failed",
				zap.String("product_id", rec.ID),
				zap.String("code", feed.ErrCodeFeedRuleFailure),
				zap.Any("cause", r),
			)
		}
	}()

	lookup := func(field string) string {
		return e.schema.ValueByName(row, field)
	}

	// Visibility, with the source-quirk inversion applied first.
	visible := true
	if e.schema.HasRole(feed.RoleVisibility) {
		visible = isTruthy(e.schema.Value(row, feed.RoleVisibility))
		if e.policies.InvertVisibility {
			visible = !visible
		}
	}
	if e.policies.MapStockToVisibility && rec.Inventory <= 0 {
		visible = false
	}
	ev.Hidden = !visible
	rec.Hidden = ev.Hidden

	// Category exclusion stops all further exclusion checks for the item.
	for _, cat := range rec.Categories {
		if e.rules.IsCategoryExcluded(cat) {
			ev.Excluded = true
			ev.Causes = append(ev.Causes, catalog.CauseExcludedCategory)
			break
		}
	}

	if !ev.Excluded {
		for _, rule := range e.rules.Exclusions {
			if rule.Condition.Matches(lookup) {
				ev.Excluded = true
				ev.Causes = append(ev.Causes, rule.Name)
				break
			}
		}
	}

	if !ev.Excluded {
		for _, group := range e.rules.ExclusionSet {
			if group.Matches(lookup) {
				ev.Excluded = true
				ev.Causes = append(ev.Causes, group.Cause)
			}
		}
	}

	// Deliberately last, so already-hidden or already-excluded items never
	// inflate the missing-image count.
	if !ev.Excluded && !ev.Hidden && !e.policies.AllowMissingPhotos && rec.Image == "" {
		ev.Excluded = true
		ev.Causes = append(ev.Causes, catalog.CauseMissingImage)
	}

	// Ignored categories are dropped independent of the exclusion outcome.
	if len(e.rules.IgnoredCategories) > 0 {
		kept := make([]string, 0, len(rec.Categories))
		for _, cat := range rec.Categories {
			if !e.rules.IsCategoryIgnored(cat) {
				kept = append(kept, cat)
			}
		}
		rec.Categories = kept
	}

	rec.Filters = e.computeFilters(rec.Categories, lookup)

	if r := e.rules.Replacement; r != nil {
		oldID := strings.TrimSpace(lookup(r.FromField))
		newID := strings.TrimSpace(lookup(r.ToField))
		replacements.Add(oldID, newID)
	}

	e.applyFeatured(rec, lookup)

	return ev
}

// computeFilters builds the deduplicated union of per-category filter tags,
// universal membership, custom filter rules and filter-parsing rules. An
// empty union falls back to the configured universal filter name.
func (e *RuleEngine) computeFilters(categories []string, lookup func(string) string) []string {
	var filters []string
	seen := make(map[string]struct{})
	add := func(f string) {
		f = strings.TrimSpace(f)
		if f == "" {
			return
		}
		key := strings.ToLower(f)
		if _, dup := seen[key]; dup {
			return
		}
		seen[key] = struct{}{}
		filters = append(filters, f)
	}

	for _, cat := range categories {
		for _, f := range e.rules.FiltersForCategory(cat) {
			add(f)
		}
		if e.rules.IsCategoryUniversal(cat) {
			add(e.universalFilter)
		}
	}
	for _, fr := range e.rules.Filters {
		if fr.Condition.Matches(lookup) {
			add(fr.Filter)
		}
	}
	for _, fp := range e.rules.FilterParses {
		for _, tag := range fp.Parse(lookup) {
			add(tag)
		}
	}

	if len(filters) == 0 && e.universalFilter != "" {
		filters = []string{e.universalFilter}
	}
	return filters
}

// applyFeatured populates the cross-sell and up-sell candidate lists from
// the configured per-product fields. The more recent directive wins: an
// exclude removes a prior inclusion and vice versa.
func (e *RuleEngine) applyFeatured(rec *catalog.ProductRecord, lookup func(string) string) {
	if len(e.rules.Featured) == 0 {
		return
	}

	cross := newDirectiveList()
	up := newDirectiveList()

	for _, ff := range e.rules.Featured {
		target := cross
		if ff.List == catalog.FeaturedUpSell {
			target = up
		}
		sep := ff.Separator
		if sep == "" {
			sep = ","
		}
		for _, id := range strings.Split(lookup(ff.Field), sep) {
			id = strings.TrimSpace(id)
			if id == "" {
				continue
			}
			if ff.Exclude {
				target.remove(id)
			} else {
				target.add(id)
			}
		}
	}

	rec.CrossSell = cross.items()
	rec.UpSell = up.items()
}

// directiveList is an ordered id set where the most recent include/exclude
// directive wins.
type directiveList struct {
	ids  []string
	seen map[string]bool
}

func newDirectiveList() *directiveList {
	return &directiveList{seen: make(map[string]bool)}
}

func (l *directiveList) add(id string) {
	if l.seen[id] {
		return
	}
	l.seen[id] = true
	l.ids = append(l.ids, id)
}

func (l *directiveList) remove(id string) {
	if !l.seen[id] {
		return
	}
	delete(l.seen, id)
	for i, v := range l.ids {
		if v == id {
			l.ids = append(l.ids[:i], l.ids[i+1:]...)
			break
		}
	}
}

func (l *directiveList) items() []string {
	return l.ids
}
