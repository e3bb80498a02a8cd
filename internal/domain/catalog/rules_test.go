package catalog

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func lookupFrom(fields map[string]string) func(string) string {
	return func(field string) string {
		return fields[field]
	}
}

func TestConditionMatches(t *testing.T) {
	lookup := lookupFrom(map[string]string{
		"brand": "Acme",
		"price": "19.99",
		"note":  "",
	})

	cases := []struct {
		name string
		cond Condition
		want bool
	}{
		{"equals is case insensitive", Condition{Field: "brand", Op: OpEquals, Value: "acme"}, true},
		{"not_equals", Condition{Field: "brand", Op: OpNotEquals, Value: "Other"}, true},
		{"contains", Condition{Field: "brand", Op: OpContains, Value: "cm"}, true},
		{"not_contains", Condition{Field: "brand", Op: OpNotContains, Value: "xyz"}, true},
		{"starts_with", Condition{Field: "brand", Op: OpStartsWith, Value: "ac"}, true},
		{"ends_with", Condition{Field: "brand", Op: OpEndsWith, Value: "ME"}, true},
		{"greater_than is numeric", Condition{Field: "price", Op: OpGreaterThan, Value: "9.5"}, true},
		{"less_than is numeric", Condition{Field: "price", Op: OpLessThan, Value: "100"}, true},
		{"empty", Condition{Field: "note", Op: OpEmpty}, true},
		{"not_empty", Condition{Field: "brand", Op: OpNotEmpty}, true},
		{"unknown operator never matches", Condition{Field: "brand", Op: "bogus"}, false},
		{"missing field is empty", Condition{Field: "missing", Op: OpEmpty}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.cond.Matches(lookup))
		})
	}

	t.Run("numeric comparison falls back to lexicographic", func(t *testing.T) {
		c := Condition{Field: "brand", Op: OpGreaterThan, Value: "Aa"}
		assert.True(t, c.Matches(lookup))
	})
}

func TestExclusionGroup(t *testing.T) {
	lookup := lookupFrom(map[string]string{
		"brand": "Acme",
		"stock": "0",
	})

	t.Run("matches when all conditions match", func(t *testing.T) {
		g := ExclusionGroup{Cause: "discontinued", Conditions: []Condition{
			{Field: "brand", Op: OpEquals, Value: "Acme"},
			{Field: "stock", Op: OpEquals, Value: "0"},
		}}
		assert.True(t, g.Matches(lookup))
	})

	t.Run("one failing condition fails the group", func(t *testing.T) {
		g := ExclusionGroup{Cause: "discontinued", Conditions: []Condition{
			{Field: "brand", Op: OpEquals, Value: "Acme"},
			{Field: "stock", Op: OpEquals, Value: "5"},
		}}
		assert.False(t, g.Matches(lookup))
	})

	t.Run("empty group never matches", func(t *testing.T) {
		assert.False(t, ExclusionGroup{Cause: "noop"}.Matches(lookup))
	})
}

func TestFilterParseRule(t *testing.T) {
	t.Run("splits and prefixes tags", func(t *testing.T) {
		r := FilterParseRule{Field: "tags", Separator: ";", Prefix: "tag:"}
		got := r.Parse(lookupFrom(map[string]string{"tags": "red; blue ;"}))
		assert.Equal(t, []string{"tag:red", "tag:blue"}, got)
	})

	t.Run("defaults to comma separator", func(t *testing.T) {
		r := FilterParseRule{Field: "tags"}
		got := r.Parse(lookupFrom(map[string]string{"tags": "a,b"}))
		assert.Equal(t, []string{"a", "b"}, got)
	})

	t.Run("empty field yields nothing", func(t *testing.T) {
		r := FilterParseRule{Field: "tags"}
		assert.Nil(t, r.Parse(lookupFrom(map[string]string{})))
	})
}

func TestRuleSetCategoryChecks(t *testing.T) {
	rules := &RuleSet{
		ExcludedCategories:  []string{"Clearance"},
		IgnoredCategories:   []string{"Internal"},
		UniversalCategories: []string{"All Products"},
	}

	t.Run("membership is case insensitive", func(t *testing.T) {
		assert.True(t, rules.IsCategoryExcluded("clearance"))
		assert.True(t, rules.IsCategoryIgnored("INTERNAL"))
		assert.True(t, rules.IsCategoryUniversal("all products"))
	})

	t.Run("non-members are not matched", func(t *testing.T) {
		assert.False(t, rules.IsCategoryExcluded("Featured"))
		assert.False(t, rules.IsCategoryIgnored("Featured"))
		assert.False(t, rules.IsCategoryUniversal("Featured"))
	})
}

func TestFiltersForCategory(t *testing.T) {
	rules := &RuleSet{CategoryFilters: map[string][]string{"toys": {"Kids"}}}

	t.Run("lookup tolerates normalized keys", func(t *testing.T) {
		assert.Equal(t, []string{"Kids"}, rules.FiltersForCategory("Toys"))
		assert.Equal(t, []string{"Kids"}, rules.FiltersForCategory("toys"))
	})

	t.Run("unknown category has no filters", func(t *testing.T) {
		assert.Nil(t, rules.FiltersForCategory("Games"))
	})
}
