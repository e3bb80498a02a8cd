package catalog

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Exclusion causes with fixed labels.
const (
	CauseExcludedCategory = "Excluded Category"
	CauseMissingImage     = "Missing Image"
)

// Operator compares a field value against a rule value.
type Operator string

const (
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpStartsWith  Operator = "starts_with"
	OpEndsWith    Operator = "ends_with"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpEmpty       Operator = "empty"
	OpNotEmpty    Operator = "not_empty"
)

// Condition is a predicate over a single named field value.
type Condition struct {
	Field string   `mapstructure:"field"`
	Op    Operator `mapstructure:"op"`
	Value string   `mapstructure:"value"`
}

// Matches evaluates the condition against a field lookup. Greater/less
// comparisons are numeric when both sides parse as decimals, otherwise
// lexicographic.
func (c Condition) Matches(lookup func(field string) string) bool {
	got := strings.TrimSpace(lookup(c.Field))
	want := strings.TrimSpace(c.Value)

	switch c.Op {
	case OpEquals:
		return strings.EqualFold(got, want)
	case OpNotEquals:
		return !strings.EqualFold(got, want)
	case OpContains:
		return strings.Contains(strings.ToLower(got), strings.ToLower(want))
	case OpNotContains:
		return !strings.Contains(strings.ToLower(got), strings.ToLower(want))
	case OpStartsWith:
		return strings.HasPrefix(strings.ToLower(got), strings.ToLower(want))
	case OpEndsWith:
		return strings.HasSuffix(strings.ToLower(got), strings.ToLower(want))
	case OpGreaterThan:
		return compareValues(got, want) > 0
	case OpLessThan:
		return compareValues(got, want) < 0
	case OpEmpty:
		return got == ""
	case OpNotEmpty:
		return got != ""
	default:
		return false
	}
}

// compareValues compares numerically when possible, falling back to string
// comparison.
func compareValues(a, b string) int {
	da, errA := decimal.NewFromString(a)
	db, errB := decimal.NewFromString(b)
	if errA == nil && errB == nil {
		return da.Cmp(db)
	}
	return strings.Compare(a, b)
}

// ExclusionRule removes matching items from the catalog; the rule name
// becomes the recorded exclusion cause.
type ExclusionRule struct {
	Name      string    `mapstructure:"name"`
	Condition Condition `mapstructure:",squash"`
}

// ExclusionGroup is one conjunction inside the compound exclusion-set
// expression: the group matches when all of its conditions match, and every
// matching group contributes its own cause.
type ExclusionGroup struct {
	Cause      string      `mapstructure:"cause"`
	Conditions []Condition `mapstructure:"conditions"`
}

// Matches reports whether every condition in the group matches.
func (g ExclusionGroup) Matches(lookup func(field string) string) bool {
	if len(g.Conditions) == 0 {
		return false
	}
	for _, c := range g.Conditions {
		if !c.Matches(lookup) {
			return false
		}
	}
	return true
}

// FilterRule assigns a filter tag to matching items.
type FilterRule struct {
	Filter    string    `mapstructure:"filter"`
	Condition Condition `mapstructure:",squash"`
}

// FilterParseRule extracts filter tags directly from a field value by
// splitting it on a separator. An optional prefix is prepended to each
// extracted tag.
type FilterParseRule struct {
	Field     string `mapstructure:"field"`
	Separator string `mapstructure:"separator"`
	Prefix    string `mapstructure:"prefix"`
}

// Parse returns the tags extracted from the field value.
func (r FilterParseRule) Parse(lookup func(field string) string) []string {
	value := strings.TrimSpace(lookup(r.Field))
	if value == "" {
		return nil
	}
	sep := r.Separator
	if sep == "" {
		sep = ","
	}
	var tags []string
	for _, part := range strings.Split(value, sep) {
		part = strings.TrimSpace(part)
		if part != "" {
			tags = append(tags, r.Prefix+part)
		}
	}
	return tags
}

// ReplacementRule is the optional singleton full-catalog replacement rule:
// it maps one field's value to a second field's value as an id replacement.
type ReplacementRule struct {
	FromField string `mapstructure:"from_field"`
	ToField   string `mapstructure:"to_field"`
}

// FeaturedList names the candidate list a featured-field directive targets.
type FeaturedList string

const (
	FeaturedCrossSell FeaturedList = "cross_sell"
	FeaturedUpSell    FeaturedList = "up_sell"
)

// FeaturedField binds a per-product field to a featured candidate list. The
// field value is a separated list of product ids; Exclude directives remove
// prior inclusions and vice versa, the more recent directive wins.
type FeaturedField struct {
	Field     string       `mapstructure:"field"`
	List      FeaturedList `mapstructure:"list"`
	Exclude   bool         `mapstructure:"exclude"`
	Separator string       `mapstructure:"separator"`
}

// RuleSet is the immutable per-run rule configuration evaluated against every
// product after aggregation.
type RuleSet struct {
	ExcludedCategories  []string            `mapstructure:"excluded_categories"`
	IgnoredCategories   []string            `mapstructure:"ignored_categories"`
	Exclusions          []ExclusionRule     `mapstructure:"exclusions"`
	ExclusionSet        []ExclusionGroup    `mapstructure:"exclusion_set"`
	Filters             []FilterRule        `mapstructure:"filters"`
	FilterParses        []FilterParseRule   `mapstructure:"filter_parses"`
	CategoryFilters     map[string][]string `mapstructure:"category_filters"`
	UniversalCategories []string            `mapstructure:"universal_categories"`
	Replacement         *ReplacementRule    `mapstructure:"replacement"`
	Featured            []FeaturedField     `mapstructure:"featured"`
}

// FiltersForCategory returns the filter tags bound to the category. Lookup is
// case insensitive because config loaders may normalize map keys.
func (r *RuleSet) FiltersForCategory(category string) []string {
	if fs, ok := r.CategoryFilters[category]; ok {
		return fs
	}
	for k, fs := range r.CategoryFilters {
		if strings.EqualFold(k, category) {
			return fs
		}
	}
	return nil
}

// IsCategoryExcluded reports whether the category id is in the excluded set.
func (r *RuleSet) IsCategoryExcluded(category string) bool {
	return containsFold(r.ExcludedCategories, category)
}

// IsCategoryIgnored reports whether the category id should be dropped from
// the item's category list.
func (r *RuleSet) IsCategoryIgnored(category string) bool {
	return containsFold(r.IgnoredCategories, category)
}

// IsCategoryUniversal reports whether the category belongs to the universal
// filter.
func (r *RuleSet) IsCategoryUniversal(category string) bool {
	return containsFold(r.UniversalCategories, category)
}

func containsFold(list []string, v string) bool {
	for _, item := range list {
		if strings.EqualFold(item, v) {
			return true
		}
	}
	return false
}
